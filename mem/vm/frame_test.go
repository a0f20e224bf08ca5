package vm

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("FrameTable", func() {
	var ft *FrameTable

	BeforeEach(func() {
		ft = NewFrameTable(2, 4096)
	})

	It("should hand out zeroed frames until the pool is empty", func() {
		f1, ok := ft.Alloc()
		Expect(ok).To(BeTrue())
		Expect(f1.KVA).To(HaveLen(4096))

		f1.KVA[0] = 0xff
		ft.Free(f1)

		f1, _ = ft.Alloc()
		Expect(f1.KVA[0]).To(Equal(byte(0)))

		_, ok = ft.Alloc()
		Expect(ok).To(BeTrue())

		_, ok = ft.Alloc()
		Expect(ok).To(BeFalse())
		Expect(ft.NumFree()).To(Equal(0))
	})

	It("should pick the oldest resident page as victim", func() {
		p1 := &Page{VAddr: 0x1000}
		p2 := &Page{VAddr: 0x2000}
		f1, _ := ft.Alloc()
		f2, _ := ft.Alloc()
		ft.attach(f1, p1)
		ft.attach(f2, p2)

		victim, ok := ft.Victim()
		Expect(ok).To(BeTrue())
		Expect(victim).To(BeIdenticalTo(p1))

		victim, _ = ft.Victim()
		Expect(victim).To(BeIdenticalTo(p2))
	})

	It("should report no victim when nothing is resident", func() {
		_, ok := ft.Victim()

		Expect(ok).To(BeFalse())
	})

	It("should clear both sides when detaching", func() {
		page := &Page{}
		frame, _ := ft.Alloc()
		ft.attach(frame, page)
		Expect(frame.Owner()).To(BeIdenticalTo(page))
		Expect(ft.NumResident()).To(Equal(1))

		detached := ft.detach(page)

		Expect(detached).To(BeIdenticalTo(frame))
		Expect(frame.Owner()).To(BeNil())
		Expect(page.Frame()).To(BeNil())
		Expect(ft.NumResident()).To(Equal(0))
	})

	It("should panic when attaching an owned frame", func() {
		frame, _ := ft.Alloc()
		ft.attach(frame, &Page{})

		Expect(func() { ft.attach(frame, &Page{}) }).To(Panic())
	})

	It("should panic when freeing an owned frame", func() {
		frame, _ := ft.Alloc()
		ft.attach(frame, &Page{})

		Expect(func() { ft.Free(frame) }).To(Panic())
	})
})
