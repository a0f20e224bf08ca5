// Package vm provides the page model shared by the backing stores of a
// demand-paged virtual memory system.
//
// A Page is either Anonymous (backed by swap) or FileBacked (backed by a
// memory-mapped file). The page-type specific behavior lives behind the
// PageOps interface, implemented by the swap and mmap packages. This package
// only routes calls to the right implementation and keeps the frame
// ownership rules.
package vm

import (
	"errors"
	"io"
	"sync"

	"github.com/rs/xid"
)

// PID stands for Process ID.
type PID uint32

// PageType tells which backing store a page uses.
type PageType int

// The page types.
const (
	Anonymous PageType = iota + 1
	FileBacked
)

func (t PageType) String() string {
	switch t {
	case Anonymous:
		return "anonymous"
	case FileBacked:
		return "file-backed"
	default:
		return "unknown"
	}
}

var (
	// ErrPageExists is returned when allocating a page at an address that
	// already has one.
	ErrPageExists = errors.New("page already exists")

	// ErrPageNotFound is returned when no page covers an address.
	ErrPageNotFound = errors.New("page not found")

	// ErrUnknownPageType is returned when no PageOps are registered for the
	// requested page type.
	ErrUnknownPageType = errors.New("unknown page type")

	// ErrUnaligned is returned when an address is not page aligned.
	ErrUnaligned = errors.New("address not page aligned")

	// ErrNotResident is returned when evicting a page that has no frame.
	ErrNotResident = errors.New("page not resident")

	// ErrNoFrame is returned when no frame can be allocated or reclaimed.
	ErrNoFrame = errors.New("no frame available")

	// ErrReadOnly is returned when writing to a page mapped read-only.
	ErrReadOnly = errors.New("page is read-only")

	// ErrCrossPage is returned when an access does not fit in one page.
	ErrCrossPage = errors.New("access crosses a page boundary")
)

// AnonPayload is the state of an anonymous page.
type AnonPayload struct {
	slot    uint64
	hasSlot bool
}

// Slot returns the first sector of the swap slot holding the page content.
// The bool is false while the page has no slot.
func (a *AnonPayload) Slot() (uint64, bool) {
	return a.slot, a.hasSlot
}

// SetSlot records that the page content lives in the slot starting at
// sector.
func (a *AnonPayload) SetSlot(sector uint64) {
	a.slot = sector
	a.hasSlot = true
}

// ClearSlot records that the page no longer holds a swap slot.
func (a *AnonPayload) ClearSlot() {
	a.slot = 0
	a.hasSlot = false
}

// File is an open file that a mapping reads from and writes back to.
type File interface {
	io.ReaderAt
	io.WriterAt
	io.Closer

	// Reopen returns an independent handle on the same file. Closing one
	// handle does not affect the other.
	Reopen() (File, error)
}

// MapGroup identifies the pages created by one mapping request. ID is unique
// per request; Ordinal is the 0-based position of the page in the request.
type MapGroup struct {
	ID      xid.ID
	Ordinal int
}

// IsZero tells if the group is unset.
func (g MapGroup) IsZero() bool {
	return g.ID.IsNil()
}

// FileInfo describes where the content of a file-backed page comes from.
// ReadBytes + ZeroBytes always equals the page size.
type FileInfo struct {
	File      File
	Offset    int64
	ReadBytes uint64
	ZeroBytes uint64
	Group     MapGroup
}

// FilePayload is the state of a file-backed page. Info is nil until the
// page content has been loaded for the first time, and again after the page
// has been torn down.
type FilePayload struct {
	Group MapGroup
	Info  *FileInfo
}

// A Page is one virtual page of a process.
//
// Exactly one of Anon and File is set, selected by Type. The embedded mutex
// serializes the lifecycle transitions of the page (populate, evict,
// destroy); PageOps implementations are always called with it held.
type Page struct {
	sync.Mutex

	PID      PID
	VAddr    uint64
	Writable bool
	Type     PageType

	Anon *AnonPayload
	File *FilePayload

	frame     *Frame
	ops       PageOps
	loader    LazyLoader
	destroyed bool
}

func newPage(req PageRequest, ops PageOps) *Page {
	page := &Page{
		PID:      req.PID,
		VAddr:    req.VAddr,
		Writable: req.Writable,
		Type:     req.Type,
		ops:      ops,
		loader:   req.Loader,
	}

	switch req.Type {
	case Anonymous:
		page.Anon = &AnonPayload{}
	case FileBacked:
		page.File = &FilePayload{Group: req.Group}
	}

	return page
}

// Frame returns the frame attached to the page, or nil if the page is not
// resident.
func (p *Page) Frame() *Frame {
	return p.frame
}

// IsResident tells if the page currently has a frame.
func (p *Page) IsResident() bool {
	return p.frame != nil
}

// IsPending tells if the page still waits for its lazy loader to run.
func (p *Page) IsPending() bool {
	return p.loader != nil
}

// A PageRequest describes a page to create.
type PageRequest struct {
	PID      PID
	Type     PageType
	VAddr    uint64
	Writable bool

	// Loader, if set, fills the page the first time it is claimed.
	Loader LazyLoader

	// Group is only meaningful for file-backed pages.
	Group MapGroup
}
