package vm

// A Builder can build page tables.
type Builder struct {
	log2PageSize uint64
	numFrames    int
	frames       *FrameTable
}

// MakeBuilder creates a new builder with 4 KiB pages and 64 frames.
func MakeBuilder() Builder {
	return Builder{
		log2PageSize: 12,
		numFrames:    64,
	}
}

// WithLog2PageSize sets the page size.
func (b Builder) WithLog2PageSize(log2PageSize uint64) Builder {
	b.log2PageSize = log2PageSize
	return b
}

// WithNumFrames sets how many physical frames the page table can use.
func (b Builder) WithNumFrames(n int) Builder {
	b.numFrames = n
	return b
}

// WithFrameTable makes the page table share an existing frame table.
func (b Builder) WithFrameTable(frames *FrameTable) Builder {
	b.frames = frames
	return b
}

// Build creates the page table. No page type is usable until its PageOps
// are registered.
func (b Builder) Build() *Table {
	frames := b.frames
	if frames == nil {
		frames = NewFrameTable(b.numFrames, 1<<b.log2PageSize)
	}

	return &Table{
		log2PageSize: b.log2PageSize,
		tables:       make(map[PID]*processTable),
		ops:          make(map[PageType]PageOps),
		frames:       frames,
	}
}
