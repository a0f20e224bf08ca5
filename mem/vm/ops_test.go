package vm

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"
)

var _ = Describe("Dispatch", func() {
	var (
		mockCtrl *gomock.Controller
		ops      *MockPageOps
		loader   *MockLazyLoader
		frames   *FrameTable
		page     *Page
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		ops = NewMockPageOps(mockCtrl)
		loader = NewMockLazyLoader(mockCtrl)
		frames = NewFrameTable(2, 4096)
		page = newPage(PageRequest{
			PID:      1,
			Type:     Anonymous,
			VAddr:    0x1000,
			Writable: true,
			Loader:   loader,
		}, ops)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should populate the payload matching the type", func() {
		Expect(page.Anon).NotTo(BeNil())
		Expect(page.File).To(BeNil())
		Expect(page.IsPending()).To(BeTrue())
	})

	It("should run the lazy loader only once", func() {
		frame, _ := frames.Alloc()
		loader.EXPECT().Load(page, frame).Return(nil)

		Expect(Populate(frames, page, frame)).To(Succeed())
		Expect(page.Frame()).To(BeIdenticalTo(frame))
		Expect(page.IsPending()).To(BeFalse())

		ops.EXPECT().SwapOut(page).Return(nil)
		evicted, err := Evict(frames, page)
		Expect(err).NotTo(HaveOccurred())
		Expect(evicted).To(BeIdenticalTo(frame))
		Expect(page.Frame()).To(BeNil())

		ops.EXPECT().SwapIn(page, evicted).Return(nil)
		Expect(Populate(frames, page, evicted)).To(Succeed())
	})

	It("should give the frame back when loading fails", func() {
		frame, _ := frames.Alloc()
		loader.EXPECT().Load(page, frame).Return(errors.New("disk on fire"))

		err := Populate(frames, page, frame)

		Expect(err).To(MatchError(ContainSubstring("disk on fire")))
		Expect(page.Frame()).To(BeNil())
		Expect(page.IsPending()).To(BeTrue())
		Expect(frames.NumFree()).To(Equal(2))
	})

	It("should free the new frame if the page is already resident", func() {
		f1, _ := frames.Alloc()
		f2, _ := frames.Alloc()
		loader.EXPECT().Load(page, f1).Return(nil)
		Expect(Populate(frames, page, f1)).To(Succeed())

		Expect(Populate(frames, page, f2)).To(Succeed())

		Expect(page.Frame()).To(BeIdenticalTo(f1))
		Expect(frames.NumFree()).To(Equal(1))
	})

	It("should refuse to evict a page without frame", func() {
		_, err := Evict(frames, page)

		Expect(err).To(MatchError(ErrNotResident))
	})

	It("should keep the frame when swapping out fails", func() {
		frame, _ := frames.Alloc()
		loader.EXPECT().Load(page, frame).Return(nil)
		Expect(Populate(frames, page, frame)).To(Succeed())
		ops.EXPECT().SwapOut(page).Return(errors.New("write error"))

		_, err := Evict(frames, page)

		Expect(err).To(HaveOccurred())
		Expect(page.Frame()).To(BeIdenticalTo(frame))
	})

	It("should discard a pending loader on destroy", func() {
		loader.EXPECT().Discard(page)
		ops.EXPECT().Destroy(page)

		Destroy(frames, page)

		Expect(page.IsPending()).To(BeFalse())
	})

	It("should release the frame of a resident page on destroy", func() {
		frame, _ := frames.Alloc()
		loader.EXPECT().Load(page, frame).Return(nil)
		Expect(Populate(frames, page, frame)).To(Succeed())

		ops.EXPECT().Destroy(page).Do(func(p *Page) {
			Expect(p.Frame()).To(BeIdenticalTo(frame))
		})

		Destroy(frames, page)

		Expect(page.Frame()).To(BeNil())
		Expect(frame.Owner()).To(BeNil())
		Expect(frames.NumFree()).To(Equal(2))
	})

	It("should not populate a page that was destroyed", func() {
		loader.EXPECT().Discard(page)
		ops.EXPECT().Destroy(page)
		Destroy(frames, page)

		frame, _ := frames.Alloc()
		err := Populate(frames, page, frame)

		Expect(err).To(MatchError(ErrPageNotFound))
		Expect(page.Frame()).To(BeNil())
		Expect(frame.Owner()).To(BeNil())
		Expect(frames.NumFree()).To(Equal(2))
		Expect(frames.NumResident()).To(Equal(0))
	})

	It("should destroy a page only once", func() {
		loader.EXPECT().Discard(page).Times(1)
		ops.EXPECT().Destroy(page).Times(1)

		Destroy(frames, page)
		Destroy(frames, page)
	})
})
