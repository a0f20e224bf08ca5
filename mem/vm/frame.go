package vm

import (
	"container/list"
	"sync"
)

// A Frame is one physical page. KVA is the kernel-accessible storage of the
// frame and is always exactly one page long.
type Frame struct {
	KVA []byte

	owner *Page
	elem  *list.Element
}

// Owner returns the page that currently owns the frame, or nil.
func (f *Frame) Owner() *Page {
	return f.owner
}

// A FrameTable owns a fixed pool of frames. Frames attached to pages are
// kept in attach order so that the oldest one can be picked for eviction.
type FrameTable struct {
	lock     sync.Mutex
	pageSize uint64
	free     []*Frame
	resident *list.List
	capacity int
}

// NewFrameTable creates a FrameTable with numFrames frames of pageSize bytes.
func NewFrameTable(numFrames int, pageSize uint64) *FrameTable {
	ft := &FrameTable{
		pageSize: pageSize,
		free:     make([]*Frame, 0, numFrames),
		resident: list.New(),
		capacity: numFrames,
	}

	for i := 0; i < numFrames; i++ {
		ft.free = append(ft.free, &Frame{KVA: make([]byte, pageSize)})
	}

	return ft
}

// Alloc takes a zeroed frame from the pool. The bool is false when the pool
// is empty.
func (ft *FrameTable) Alloc() (*Frame, bool) {
	ft.lock.Lock()
	defer ft.lock.Unlock()

	n := len(ft.free)
	if n == 0 {
		return nil, false
	}

	frame := ft.free[n-1]
	ft.free = ft.free[:n-1]
	clear(frame.KVA)

	return frame, true
}

// Free returns a frame to the pool. The frame must not be owned by a page.
func (ft *FrameTable) Free(frame *Frame) {
	ft.lock.Lock()
	defer ft.lock.Unlock()

	if frame.owner != nil {
		panic("freeing a frame that is still owned by a page")
	}

	ft.free = append(ft.free, frame)
}

// Victim returns the page that has been resident the longest. The page is
// moved to the back of the order, so concurrent callers get different pages.
func (ft *FrameTable) Victim() (*Page, bool) {
	ft.lock.Lock()
	defer ft.lock.Unlock()

	elem := ft.resident.Front()
	if elem == nil {
		return nil, false
	}

	ft.resident.MoveToBack(elem)

	return elem.Value.(*Frame).owner, true
}

// NumFree returns the number of frames in the pool.
func (ft *FrameTable) NumFree() int {
	ft.lock.Lock()
	defer ft.lock.Unlock()

	return len(ft.free)
}

// NumResident returns the number of frames attached to pages.
func (ft *FrameTable) NumResident() int {
	ft.lock.Lock()
	defer ft.lock.Unlock()

	return ft.resident.Len()
}

// Capacity returns the total number of frames managed by the table.
func (ft *FrameTable) Capacity() int {
	return ft.capacity
}

func (ft *FrameTable) attach(frame *Frame, page *Page) {
	ft.lock.Lock()
	defer ft.lock.Unlock()

	if frame.owner != nil {
		panic("frame is already owned by another page")
	}

	frame.owner = page
	frame.elem = ft.resident.PushBack(frame)
	page.frame = frame
}

func (ft *FrameTable) detach(page *Page) *Frame {
	ft.lock.Lock()
	defer ft.lock.Unlock()

	frame := page.frame
	page.frame = nil
	frame.owner = nil
	ft.resident.Remove(frame.elem)
	frame.elem = nil

	return frame
}
