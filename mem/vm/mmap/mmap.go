// Package mmap implements file-backed pages and the mapping of files into
// process address spaces.
//
// Mapping a file only creates pages; no file I/O happens until a page is
// first touched. Every page gets its own reopened handle on the file, so the
// caller may close its handle right after mapping. When a page goes away, its
// content is written back to the file only if the process modified it.
package mmap

import (
	"errors"
	"fmt"

	"github.com/rs/xid"
	"github.com/sarchlab/vmstore/mem/vm"
	"github.com/sarchlab/vmstore/sim/hooking"
	"go.uber.org/zap"
)

// ErrInvalidMapping is returned for map requests that cannot be satisfied
// whatever the state of the address space.
var ErrInvalidMapping = errors.New("invalid mapping")

var (
	// HookPosMap marks a successful map request.
	HookPosMap = &hooking.HookPos{Name: "Map"}

	// HookPosUnmap marks the end of an unmap request.
	HookPosUnmap = &hooking.HookPos{Name: "Unmap"}

	// HookPosWriteBack marks a dirty page written back to its file.
	HookPosWriteBack = &hooking.HookPos{Name: "WriteBack"}
)

// MapEvent is the hook detail of HookPosMap and HookPosUnmap.
type MapEvent struct {
	PID      vm.PID
	Addr     uint64
	Group    xid.ID
	NumPages int
}

// WriteBackEvent is the hook detail of HookPosWriteBack.
type WriteBackEvent struct {
	Offset int64
	Bytes  uint64
}

// Manager maps files into address spaces. It is the PageOps of file-backed
// pages.
type Manager struct {
	hooking.HookableBase

	pageTable vm.PageTable
	pageSize  uint64
	logger    *zap.Logger
}

// Type returns vm.FileBacked.
func (m *Manager) Type() vm.PageType {
	return vm.FileBacked
}

// Map maps length bytes of file, starting at offset, at addr in the address
// space of pid. The range must be free. On failure nothing stays mapped.
func (m *Manager) Map(
	pid vm.PID,
	addr, length uint64,
	writable bool,
	file vm.File,
	offset int64,
) (uint64, error) {
	err := m.validate(addr, length, file, offset)
	if err != nil {
		return 0, err
	}

	group := xid.New()
	mapped := make([]uint64, 0, (length+m.pageSize-1)/m.pageSize)
	upage := addr

	for k := 0; length > 0; k++ {
		readBytes := min(length, m.pageSize)

		handle, err := file.Reopen()
		if err != nil {
			m.rollback(pid, mapped)
			return 0, fmt.Errorf("map page %#x: %w", upage, err)
		}

		info := &vm.FileInfo{
			File:      handle,
			Offset:    offset,
			ReadBytes: readBytes,
			ZeroBytes: m.pageSize - readBytes,
			Group:     vm.MapGroup{ID: group, Ordinal: k},
		}

		err = m.pageTable.Alloc(vm.PageRequest{
			PID:      pid,
			Type:     vm.FileBacked,
			VAddr:    upage,
			Writable: writable,
			Loader:   &segment{info: info},
			Group:    info.Group,
		})
		if err != nil {
			handle.Close()
			m.rollback(pid, mapped)

			return 0, fmt.Errorf("map page %#x: %w", upage, err)
		}

		mapped = append(mapped, upage)
		length -= readBytes
		offset += int64(readBytes)
		upage += m.pageSize
	}

	m.InvokeHook(hooking.HookCtx{
		Domain: m,
		Pos:    HookPosMap,
		Detail: MapEvent{PID: pid, Addr: addr, Group: group, NumPages: len(mapped)},
	})

	return addr, nil
}

func (m *Manager) validate(
	addr, length uint64,
	file vm.File,
	offset int64,
) error {
	switch {
	case file == nil:
		return fmt.Errorf("%w: no file", ErrInvalidMapping)
	case length == 0:
		return fmt.Errorf("%w: zero length", ErrInvalidMapping)
	case addr%m.pageSize != 0:
		return fmt.Errorf("%w: address %#x not page aligned",
			ErrInvalidMapping, addr)
	case offset < 0 || uint64(offset)%m.pageSize != 0:
		return fmt.Errorf("%w: offset %d not page aligned",
			ErrInvalidMapping, offset)
	case addr+length < addr:
		return fmt.Errorf("%w: range wraps around", ErrInvalidMapping)
	}

	return nil
}

func (m *Manager) rollback(pid vm.PID, mapped []uint64) {
	for _, vAddr := range mapped {
		if page, found := m.pageTable.Find(pid, vAddr); found {
			m.pageTable.Remove(page)
		}
	}
}

// Unmap removes the page at addr and the pages that follow it in the same
// map request. Pages of other requests, even adjacent ones, stay mapped.
// Nothing happens if addr holds no file-backed page.
func (m *Manager) Unmap(pid vm.PID, addr uint64) {
	page, found := m.pageTable.Find(pid, addr)
	if !found || page.Type != vm.FileBacked {
		return
	}

	group := page.File.Group
	expected := group.Ordinal
	start := page.VAddr
	removed := 0

	for found {
		if page.Type != vm.FileBacked ||
			page.File.Group.ID != group.ID ||
			page.File.Group.Ordinal != expected {
			break
		}

		m.pageTable.Remove(page)
		removed++
		expected++

		page, found = m.pageTable.Find(pid, start+uint64(removed)*m.pageSize)
	}

	m.InvokeHook(hooking.HookCtx{
		Domain: m,
		Pos:    HookPosUnmap,
		Detail: MapEvent{PID: pid, Addr: start, Group: group.ID, NumPages: removed},
	})
}

// SwapIn reads the page content from its file again.
func (m *Manager) SwapIn(page *vm.Page, frame *vm.Frame) error {
	info := page.File.Info
	if info == nil {
		return fmt.Errorf("file page %#x has no mapping", page.VAddr)
	}

	return readSegment(info, frame.KVA)
}

// SwapOut writes a modified page back to its file. Clean pages can be read
// again from the file and need no I/O.
func (m *Manager) SwapOut(page *vm.Page) error {
	info := page.File.Info
	if info == nil {
		return nil
	}

	if !m.pageTable.IsDirty(page.PID, page.VAddr) {
		return nil
	}

	err := m.writeBack(page, info)
	if err != nil {
		return err
	}

	m.pageTable.SetDirty(page.PID, page.VAddr, false)

	return nil
}

// Destroy writes a modified page back and closes its file handle.
func (m *Manager) Destroy(page *vm.Page) {
	info := page.File.Info
	if info == nil {
		return
	}

	if page.Frame() != nil && m.pageTable.IsDirty(page.PID, page.VAddr) {
		err := m.writeBack(page, info)
		if err != nil {
			m.logger.Error("write back on destroy failed",
				zap.Uint32("pid", uint32(page.PID)),
				zap.Uint64("vaddr", page.VAddr),
				zap.Error(err))
		}
	}

	err := info.File.Close()
	if err != nil {
		m.logger.Warn("closing mapped file failed",
			zap.Uint64("vaddr", page.VAddr),
			zap.Error(err))
	}

	page.File.Info = nil
}

func (m *Manager) writeBack(page *vm.Page, info *vm.FileInfo) error {
	kva := page.Frame().KVA

	_, err := info.File.WriteAt(kva[:info.ReadBytes], info.Offset)
	if err != nil {
		return fmt.Errorf("write back page %#x at offset %d: %w",
			page.VAddr, info.Offset, err)
	}

	m.InvokeHook(hooking.HookCtx{
		Domain: m,
		Pos:    HookPosWriteBack,
		Item:   page,
		Detail: WriteBackEvent{Offset: info.Offset, Bytes: info.ReadBytes},
	})

	return nil
}
