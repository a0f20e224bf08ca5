package tracing

import (
	"time"

	"github.com/sarchlab/vmstore/datarecording"
	"github.com/sarchlab/vmstore/sim/hooking"
)

// EventTable is the table that RecordingHook writes to.
const EventTable = "events"

type eventEntry struct {
	Pos      string
	PID      uint32
	VAddr    uint64
	PageType string
	Slot     int64
	Bytes    uint64
	Time     float64
}

// RecordingHook stores one row per hook invocation. Time is in seconds since
// the hook was created.
type RecordingHook struct {
	recorder datarecording.DataRecorder
	start    time.Time
	now      func() time.Time
}

// NewRecordingHook creates the event table in recorder.
func NewRecordingHook(recorder datarecording.DataRecorder) *RecordingHook {
	recorder.CreateTable(EventTable, eventEntry{})

	h := &RecordingHook{
		recorder: recorder,
		now:      time.Now,
	}
	h.start = h.now()

	return h
}

// Func records the hook invocation.
func (h *RecordingHook) Func(ctx hooking.HookCtx) {
	e := flatten(ctx)

	entry := eventEntry{
		Pos:   e.pos,
		PID:   uint32(e.pid),
		VAddr: e.vAddr,
		Slot:  e.slot,
		Bytes: e.bytes,
		Time:  h.now().Sub(h.start).Seconds(),
	}

	if e.pageType != 0 {
		entry.PageType = e.pageType.String()
	}

	h.recorder.InsertData(EventTable, entry)
}
