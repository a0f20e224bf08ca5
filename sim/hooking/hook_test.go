package hooking

import (
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type recordingHook struct {
	calls []HookCtx
}

func (h *recordingHook) Func(ctx HookCtx) {
	h.calls = append(h.calls, ctx)
}

var posA = &HookPos{Name: "A"}

var _ = Describe("HookableBase", func() {
	var domain *HookableBase

	BeforeEach(func() {
		domain = &HookableBase{}
	})

	It("should invoke every registered hook in order", func() {
		var order []int
		domain.AcceptHook(HookFunc(func(HookCtx) { order = append(order, 1) }))
		domain.AcceptHook(HookFunc(func(HookCtx) { order = append(order, 2) }))

		domain.InvokeHook(HookCtx{Pos: posA})

		Expect(order).To(Equal([]int{1, 2}))
		Expect(domain.NumHooks()).To(Equal(2))
	})

	It("should pass the context through", func() {
		hook := &recordingHook{}
		domain.AcceptHook(hook)
		item := &struct{}{}

		domain.InvokeHook(HookCtx{Pos: posA, Item: item, Detail: 42})

		Expect(hook.calls).To(HaveLen(1))
		Expect(hook.calls[0].Pos).To(BeIdenticalTo(posA))
		Expect(hook.calls[0].Item).To(BeIdenticalTo(item))
		Expect(hook.calls[0].Detail).To(Equal(42))
	})

	It("should panic when the same hook is registered twice", func() {
		hook := &recordingHook{}
		domain.AcceptHook(hook)

		Expect(func() { domain.AcceptHook(hook) }).To(Panic())
	})

	It("should return a copy of the hook list", func() {
		domain.AcceptHook(&recordingHook{})

		hooks := domain.Hooks()
		hooks[0] = nil

		Expect(domain.Hooks()[0]).ToNot(BeNil())
	})

	It("should allow invoking from several goroutines", func() {
		var (
			lock  sync.Mutex
			count int
			wg    sync.WaitGroup
		)

		domain.AcceptHook(HookFunc(func(HookCtx) {
			lock.Lock()
			count++
			lock.Unlock()
		}))

		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				domain.InvokeHook(HookCtx{Pos: posA})
			}()
		}
		wg.Wait()

		Expect(count).To(Equal(8))
	})
})
