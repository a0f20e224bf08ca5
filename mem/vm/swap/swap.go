// Package swap implements anonymous pages, whose content goes to a swap
// device when their frame is reclaimed.
//
// The swap device is divided into slots of one page each. A slot is a run of
// SectorsPerPage consecutive sectors; a bitmap with one bit per sector
// records which sectors are taken. The bitmap lives only in memory and starts
// empty every time a Manager is built.
package swap

import (
	"errors"
	"fmt"
	"sync"

	"github.com/bits-and-blooms/bitset"
	"github.com/sarchlab/vmstore/mem/disk"
	"github.com/sarchlab/vmstore/mem/vm"
	"github.com/sarchlab/vmstore/sim/hooking"
	"go.uber.org/zap"
)

// ErrSwapExhausted is returned by SwapOut if the halt function returns,
// which the default one never does.
var ErrSwapExhausted = errors.New("no free swap slot")

var (
	// HookPosSwapIn marks a page read back from its slot.
	HookPosSwapIn = &hooking.HookPos{Name: "SwapIn"}

	// HookPosSwapOut marks a page written to a newly taken slot.
	HookPosSwapOut = &hooking.HookPos{Name: "SwapOut"}

	// HookPosSlotRelease marks a slot released by a destroyed page.
	HookPosSlotRelease = &hooking.HookPos{Name: "SlotRelease"}
)

// SlotEvent is the hook detail of every swap hook.
type SlotEvent struct {
	Slot uint64
}

// Manager owns the swap device and its slot bitmap. It is the PageOps of
// anonymous pages.
type Manager struct {
	hooking.HookableBase

	device         disk.Device
	sectorsPerPage uint64
	logger         *zap.Logger
	halt           func(format string, args ...any)

	lock  sync.Mutex
	slots *bitset.BitSet
}

// Type returns vm.Anonymous.
func (m *Manager) Type() vm.PageType {
	return vm.Anonymous
}

// HasDevice tells if a swap device is configured. Without one, swapping is a
// no-op and evicted content is lost.
func (m *Manager) HasDevice() bool {
	return m.device != nil
}

// SwapIn reads the page content back from its slot and releases the slot.
// A page without slot needs no I/O.
func (m *Manager) SwapIn(page *vm.Page, frame *vm.Frame) error {
	slot, ok := page.Anon.Slot()
	if !ok || m.device == nil {
		return nil
	}

	for i := uint64(0); i < m.sectorsPerPage; i++ {
		buf := frame.KVA[i*disk.SectorSize : (i+1)*disk.SectorSize]

		err := m.device.ReadSector(slot+i, buf)
		if err != nil {
			return fmt.Errorf("swap in page %#x from slot %d: %w",
				page.VAddr, slot, err)
		}
	}

	m.release(slot)
	page.Anon.ClearSlot()

	m.InvokeHook(hooking.HookCtx{
		Domain: m,
		Pos:    HookPosSwapIn,
		Item:   page,
		Detail: SlotEvent{Slot: slot},
	})

	return nil
}

// SwapOut writes the frame of page to a free slot. Running out of slots is
// fatal: the halt function is called and the process exits.
func (m *Manager) SwapOut(page *vm.Page) error {
	if m.device == nil {
		m.logger.Warn("no swap device, dropping page content",
			zap.Uint32("pid", uint32(page.PID)),
			zap.Uint64("vaddr", page.VAddr))
		return nil
	}

	slot, ok := m.allocate()
	if !ok {
		m.halt("swap: no free swap slot for page %#x of process %d",
			page.VAddr, page.PID)
		return ErrSwapExhausted
	}

	kva := page.Frame().KVA
	for i := uint64(0); i < m.sectorsPerPage; i++ {
		buf := kva[i*disk.SectorSize : (i+1)*disk.SectorSize]

		err := m.device.WriteSector(slot+i, buf)
		if err != nil {
			m.release(slot)
			return fmt.Errorf("swap out page %#x to slot %d: %w",
				page.VAddr, slot, err)
		}
	}

	page.Anon.SetSlot(slot)

	m.InvokeHook(hooking.HookCtx{
		Domain: m,
		Pos:    HookPosSwapOut,
		Item:   page,
		Detail: SlotEvent{Slot: slot},
	})

	return nil
}

// Destroy gives the slot of a swapped-out page back to the pool. A resident
// page holds no slot and nothing happens.
func (m *Manager) Destroy(page *vm.Page) {
	slot, ok := page.Anon.Slot()
	if !ok {
		return
	}

	m.release(slot)
	page.Anon.ClearSlot()

	m.InvokeHook(hooking.HookCtx{
		Domain: m,
		Pos:    HookPosSlotRelease,
		Item:   page,
		Detail: SlotEvent{Slot: slot},
	})
}

// allocate finds the first free slot and marks it taken in one step.
func (m *Manager) allocate() (uint64, bool) {
	m.lock.Lock()
	defer m.lock.Unlock()

	if m.slots == nil {
		return 0, false
	}

	n := uint(m.slots.Len())
	spp := uint(m.sectorsPerPage)

	for start := uint(0); start+spp <= n; {
		next, found := m.slots.NextSet(start)
		if !found || next >= start+spp {
			for i := start; i < start+spp; i++ {
				m.slots.Set(i)
			}

			return uint64(start), true
		}

		start = (next/spp + 1) * spp
	}

	return 0, false
}

func (m *Manager) release(slot uint64) {
	m.lock.Lock()
	defer m.lock.Unlock()

	for i := slot; i < slot+m.sectorsPerPage; i++ {
		if !m.slots.Test(uint(i)) {
			panic(fmt.Sprintf("releasing free swap sector %d", i))
		}

		m.slots.Clear(uint(i))
	}
}

// NumSlots returns how many page slots the device can hold.
func (m *Manager) NumSlots() int {
	if m.slots == nil {
		return 0
	}

	return int(m.slots.Len() / uint(m.sectorsPerPage))
}

// NumUsedSlots returns how many page slots are taken.
func (m *Manager) NumUsedSlots() int {
	m.lock.Lock()
	defer m.lock.Unlock()

	if m.slots == nil {
		return 0
	}

	return int(m.slots.Count() / uint(m.sectorsPerPage))
}

// SlotInUse tells if the sector is part of a taken slot.
func (m *Manager) SlotInUse(sector uint64) bool {
	m.lock.Lock()
	defer m.lock.Unlock()

	if m.slots == nil {
		return false
	}

	return m.slots.Test(uint(sector))
}
