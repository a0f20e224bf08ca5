package vm

import "fmt"

// PageOps is the operation set of one page type. Every method is called with
// the page locked.
type PageOps interface {
	// Type returns the page type the operations serve.
	Type() PageType

	// SwapIn fills frame with the current content of page. The frame is not
	// attached to the page yet.
	SwapIn(page *Page, frame *Frame) error

	// SwapOut persists the content of the frame attached to page. The
	// caller detaches the frame afterwards.
	SwapOut(page *Page) error

	// Destroy releases the backing-store resources held by page. The
	// caller releases the frame afterwards, if one is still attached.
	Destroy(page *Page)
}

// A LazyLoader fills a page the first time it is claimed. It owns whatever
// state it needs until Load succeeds; from then on that state belongs to the
// page.
type LazyLoader interface {
	// Load fills frame and moves the loader state into page.
	Load(page *Page, frame *Frame) error

	// Discard releases the loader state of a page that dies before it was
	// ever loaded.
	Discard(page *Page)
}

// Populate makes frame hold the content of page and attaches it. A pending
// lazy loader runs exactly once; afterwards the page-type SwapIn is used.
// If the page is already resident, frame goes back to the pool. A page that
// has been destroyed is never populated again.
func Populate(frames *FrameTable, page *Page, frame *Frame) error {
	page.Lock()
	defer page.Unlock()

	if page.destroyed {
		frames.Free(frame)
		return fmt.Errorf("%w: pid %d, address %#x destroyed",
			ErrPageNotFound, page.PID, page.VAddr)
	}

	if page.frame != nil {
		frames.Free(frame)
		return nil
	}

	var err error
	if page.loader != nil {
		err = page.loader.Load(page, frame)
		if err == nil {
			page.loader = nil
		}
	} else {
		err = page.ops.SwapIn(page, frame)
	}

	if err != nil {
		frames.Free(frame)
		return fmt.Errorf("populate %s page %#x: %w", page.Type, page.VAddr, err)
	}

	frames.attach(frame, page)

	return nil
}

// Evict persists the content of page and detaches its frame. The frame is
// returned to the caller, which may reuse it for another page.
func Evict(frames *FrameTable, page *Page) (*Frame, error) {
	page.Lock()
	defer page.Unlock()

	if page.frame == nil || page.destroyed {
		return nil, ErrNotResident
	}

	err := page.ops.SwapOut(page)
	if err != nil {
		return nil, fmt.Errorf("evict %s page %#x: %w", page.Type, page.VAddr, err)
	}

	return frames.detach(page), nil
}

// Destroy releases everything page holds: its pending loader, its backing
// store resources, and its frame. Destroy always releases an attached frame,
// whatever the page type.
func Destroy(frames *FrameTable, page *Page) {
	page.Lock()
	defer page.Unlock()

	if page.destroyed {
		return
	}

	page.destroyed = true

	if page.loader != nil {
		page.loader.Discard(page)
		page.loader = nil
	}

	page.ops.Destroy(page)

	if page.frame != nil {
		frames.Free(frames.detach(page))
	}
}
