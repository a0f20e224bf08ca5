package vm

import (
	"container/list"
	"errors"
	"fmt"
	"sync"
)

// A PageTable holds the pages of every process. It is what the backing
// stores see of the supplemental page table.
type PageTable interface {
	// Alloc creates a page. The content is produced by the request's
	// loader, or left zeroed, when the page is first claimed.
	Alloc(req PageRequest) error

	// Find returns the page that contains the given virtual address.
	Find(pid PID, vAddr uint64) (*Page, bool)

	// Remove takes the page out of the table and destroys it.
	Remove(page *Page)

	// IsDirty tells if the process wrote to the page since it was loaded
	// or last written back.
	IsDirty(pid PID, vAddr uint64) bool

	// SetDirty sets or clears the dirty bit of a page.
	SetDirty(pid PID, vAddr uint64, dirty bool)

	// Log2PageSize returns log2 of the page size.
	Log2PageSize() uint64
}

// Table is the default PageTable. Besides bookkeeping, it plays the role of
// the fault handler: Claim, Read, and Write bring pages in on demand and
// evict the oldest resident page when no frame is free.
type Table struct {
	lock         sync.Mutex
	log2PageSize uint64
	tables       map[PID]*processTable
	ops          map[PageType]PageOps
	frames       *FrameTable
	dirty        dirtyBits
}

func (pt *Table) getTable(pid PID) *processTable {
	pt.lock.Lock()
	defer pt.lock.Unlock()

	table, found := pt.tables[pid]
	if !found {
		table = &processTable{
			entries:      list.New(),
			entriesTable: make(map[uint64]*list.Element),
		}
		pt.tables[pid] = table
	}

	return table
}

func (pt *Table) pageSize() uint64 {
	return 1 << pt.log2PageSize
}

func (pt *Table) alignToPage(addr uint64) uint64 {
	return (addr >> pt.log2PageSize) << pt.log2PageSize
}

// Log2PageSize returns log2 of the page size.
func (pt *Table) Log2PageSize() uint64 {
	return pt.log2PageSize
}

// Frames returns the frame table that supplies frames to the pages.
func (pt *Table) Frames() *FrameTable {
	return pt.frames
}

// RegisterOps makes the table use ops for every page of ops.Type().
func (pt *Table) RegisterOps(ops PageOps) {
	pt.lock.Lock()
	defer pt.lock.Unlock()

	pt.ops[ops.Type()] = ops
}

// Alloc creates a page as described by req.
func (pt *Table) Alloc(req PageRequest) error {
	if req.VAddr != pt.alignToPage(req.VAddr) {
		return fmt.Errorf("%w: %#x", ErrUnaligned, req.VAddr)
	}

	pt.lock.Lock()
	ops, found := pt.ops[req.Type]
	pt.lock.Unlock()

	if !found {
		return fmt.Errorf("%w: %s", ErrUnknownPageType, req.Type)
	}

	table := pt.getTable(req.PID)

	return table.insert(newPage(req, ops))
}

// Find returns the page that contains the given virtual address. The bool
// return value indicates if the page is found or not.
func (pt *Table) Find(pid PID, vAddr uint64) (*Page, bool) {
	table := pt.getTable(pid)
	vAddr = pt.alignToPage(vAddr)

	return table.find(vAddr)
}

// Remove takes the page out of the table and destroys it. The page must be
// in the table.
func (pt *Table) Remove(page *Page) {
	table := pt.getTable(page.PID)
	table.remove(page.VAddr)

	Destroy(pt.frames, page)
	pt.dirty.set(page.PID, page.VAddr, false)
}

// RemoveAll destroys every page of a process, as done when it exits.
func (pt *Table) RemoveAll(pid PID) {
	table := pt.getTable(pid)

	for _, page := range table.drain() {
		Destroy(pt.frames, page)
		pt.dirty.set(page.PID, page.VAddr, false)
	}

	pt.lock.Lock()
	delete(pt.tables, pid)
	pt.lock.Unlock()
}

// NumPages returns the number of pages a process has.
func (pt *Table) NumPages(pid PID) int {
	return pt.getTable(pid).len()
}

// IsDirty tells if the page that contains vAddr has been written to.
func (pt *Table) IsDirty(pid PID, vAddr uint64) bool {
	return pt.dirty.get(pid, pt.alignToPage(vAddr))
}

// SetDirty sets or clears the dirty bit of the page that contains vAddr.
func (pt *Table) SetDirty(pid PID, vAddr uint64, dirty bool) {
	pt.dirty.set(pid, pt.alignToPage(vAddr), dirty)
}

// Claim makes the page that contains vAddr resident, as a page fault would.
func (pt *Table) Claim(pid PID, vAddr uint64) (*Page, error) {
	page, found := pt.Find(pid, vAddr)
	if !found {
		return nil, fmt.Errorf("%w: pid %d, address %#x",
			ErrPageNotFound, pid, vAddr)
	}

	page.Lock()
	resident := page.frame != nil
	page.Unlock()

	if resident {
		return page, nil
	}

	frame, err := pt.getFrame()
	if err != nil {
		return nil, err
	}

	err = Populate(pt.frames, page, frame)
	if err != nil {
		return nil, err
	}

	return page, nil
}

func (pt *Table) getFrame() (*Frame, error) {
	for {
		frame, ok := pt.frames.Alloc()
		if ok {
			return frame, nil
		}

		victim, ok := pt.frames.Victim()
		if !ok {
			return nil, ErrNoFrame
		}

		frame, err := Evict(pt.frames, victim)
		if errors.Is(err, ErrNotResident) {
			continue
		}

		if err != nil {
			return nil, err
		}

		clear(frame.KVA)

		return frame, nil
	}
}

// Evict writes the page that contains vAddr to its backing store and gives
// its frame back to the pool.
func (pt *Table) Evict(pid PID, vAddr uint64) error {
	page, found := pt.Find(pid, vAddr)
	if !found {
		return fmt.Errorf("%w: pid %d, address %#x",
			ErrPageNotFound, pid, vAddr)
	}

	frame, err := Evict(pt.frames, page)
	if err != nil {
		return err
	}

	pt.frames.Free(frame)

	return nil
}

// Read copies n bytes starting at vAddr out of the process memory.
func (pt *Table) Read(pid PID, vAddr uint64, n int) ([]byte, error) {
	buf := make([]byte, n)

	err := pt.access(pid, vAddr, n, func(page *Page, offset uint64) error {
		copy(buf, page.frame.KVA[offset:offset+uint64(n)])
		return nil
	})
	if err != nil {
		return nil, err
	}

	return buf, nil
}

// Write copies data into the process memory at vAddr and marks the page
// dirty.
func (pt *Table) Write(pid PID, vAddr uint64, data []byte) error {
	return pt.access(pid, vAddr, len(data), func(page *Page, offset uint64) error {
		if !page.Writable {
			return fmt.Errorf("%w: %#x", ErrReadOnly, page.VAddr)
		}

		copy(page.frame.KVA[offset:], data)
		pt.dirty.set(pid, page.VAddr, true)

		return nil
	})
}

func (pt *Table) access(
	pid PID,
	vAddr uint64,
	n int,
	fn func(page *Page, offset uint64) error,
) error {
	offset := vAddr - pt.alignToPage(vAddr)
	if offset+uint64(n) > pt.pageSize() {
		return fmt.Errorf("%w: %d bytes at %#x", ErrCrossPage, n, vAddr)
	}

	for {
		page, err := pt.Claim(pid, vAddr)
		if err != nil {
			return err
		}

		page.Lock()
		if page.frame == nil {
			// Evicted by someone else between the claim and the lock.
			page.Unlock()
			continue
		}

		err = fn(page, offset)
		page.Unlock()

		return err
	}
}

type processTable struct {
	sync.Mutex
	entries      *list.List
	entriesTable map[uint64]*list.Element
}

func (t *processTable) insert(page *Page) error {
	t.Lock()
	defer t.Unlock()

	if _, found := t.entriesTable[page.VAddr]; found {
		return fmt.Errorf("%w: pid %d, address %#x",
			ErrPageExists, page.PID, page.VAddr)
	}

	elem := t.entries.PushBack(page)
	t.entriesTable[page.VAddr] = elem

	return nil
}

func (t *processTable) remove(vAddr uint64) {
	t.Lock()
	defer t.Unlock()

	t.pageMustExist(vAddr)

	elem := t.entriesTable[vAddr]
	t.entries.Remove(elem)
	delete(t.entriesTable, vAddr)
}

func (t *processTable) find(vAddr uint64) (*Page, bool) {
	t.Lock()
	defer t.Unlock()

	elem, found := t.entriesTable[vAddr]
	if found {
		return elem.Value.(*Page), true
	}

	return nil, false
}

func (t *processTable) drain() []*Page {
	t.Lock()
	defer t.Unlock()

	pages := make([]*Page, 0, t.entries.Len())
	for elem := t.entries.Front(); elem != nil; elem = elem.Next() {
		pages = append(pages, elem.Value.(*Page))
	}

	t.entries.Init()
	t.entriesTable = make(map[uint64]*list.Element)

	return pages
}

func (t *processTable) len() int {
	t.Lock()
	defer t.Unlock()

	return t.entries.Len()
}

func (t *processTable) pageMustExist(vAddr uint64) {
	_, found := t.entriesTable[vAddr]
	if !found {
		panic("page does not exist")
	}
}

// dirtyBits stands in for the dirty bits of the hardware page table. They
// are keyed by address, not by Page, so that a bit outlives the removal of a
// page from the table until its destroy has run.
type dirtyBits struct {
	lock sync.Mutex
	bits map[PID]map[uint64]bool
}

func (d *dirtyBits) get(pid PID, vAddr uint64) bool {
	d.lock.Lock()
	defer d.lock.Unlock()

	return d.bits[pid][vAddr]
}

func (d *dirtyBits) set(pid PID, vAddr uint64, dirty bool) {
	d.lock.Lock()
	defer d.lock.Unlock()

	if !dirty {
		delete(d.bits[pid], vAddr)
		return
	}

	if d.bits == nil {
		d.bits = make(map[PID]map[uint64]bool)
	}

	if d.bits[pid] == nil {
		d.bits[pid] = make(map[uint64]bool)
	}

	d.bits[pid][vAddr] = true
}
