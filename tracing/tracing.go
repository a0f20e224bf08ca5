// Package tracing turns the hook invocations of the backing stores into logs,
// metrics, and recorded events.
package tracing

import (
	"fmt"
	"reflect"

	"github.com/sarchlab/vmstore/mem/vm"
	"github.com/sarchlab/vmstore/mem/vm/mmap"
	"github.com/sarchlab/vmstore/mem/vm/swap"
	"github.com/sarchlab/vmstore/sim/hooking"
)

// Collect attaches hook to every domain. Attaching the same hook twice to a
// domain panics. HookFuncs are not compared.
func Collect(hook hooking.Hook, domains ...hooking.Hookable) {
	_, isFunc := hook.(hooking.HookFunc)

	for _, domain := range domains {
		for _, h := range domain.Hooks() {
			if isFunc {
				break
			}

			if h == hook {
				panic(fmt.Sprintf("domain %s already has hook %s",
					reflect.TypeOf(domain), reflect.TypeOf(hook)))
			}
		}

		domain.AcceptHook(hook)
	}
}

// event is the flattened form of a hook invocation.
type event struct {
	pos      string
	pid      vm.PID
	vAddr    uint64
	pageType vm.PageType
	slot     int64
	bytes    uint64
	numPages int
}

func flatten(ctx hooking.HookCtx) event {
	e := event{pos: ctx.Pos.Name, slot: -1}

	if page, ok := ctx.Item.(*vm.Page); ok {
		e.pid = page.PID
		e.vAddr = page.VAddr
		e.pageType = page.Type
	}

	switch detail := ctx.Detail.(type) {
	case swap.SlotEvent:
		e.slot = int64(detail.Slot)
	case mmap.MapEvent:
		e.pid = detail.PID
		e.vAddr = detail.Addr
		e.pageType = vm.FileBacked
		e.numPages = detail.NumPages
	case mmap.WriteBackEvent:
		e.bytes = detail.Bytes
	}

	return e
}
