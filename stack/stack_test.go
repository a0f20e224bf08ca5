package stack

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sarchlab/vmstore/config"
	"github.com/sarchlab/vmstore/mem/disk"
	"go.uber.org/zap"
)

var _ = Describe("Stack", func() {
	var (
		cfg config.Config
		dir string
	)

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		cfg = config.Default()
		cfg.NumFrames = 4
		cfg.SwapSectors = 256
	})

	build := func() *Stack {
		s, err := New(cfg, zap.NewNop())
		Expect(err).ToNot(HaveOccurred())
		DeferCleanup(s.Close)

		return s
	}

	It("should reject an invalid config", func() {
		cfg.NumFrames = 0

		_, err := New(cfg, zap.NewNop())

		Expect(err).To(MatchError(config.ErrInvalidConfig))
	})

	It("should register the swap device", func() {
		s := build()

		_, found := s.Devices.Locate(disk.RoleSwap)
		Expect(found).To(BeTrue())
		Expect(s.Swap.HasDevice()).To(BeTrue())
		Expect(s.Swap.NumSlots()).To(Equal(32))
	})

	It("should run without swap", func() {
		cfg.SwapSectors = 0
		s := build()

		Expect(s.Swap.HasDevice()).To(BeFalse())

		sum, err := s.Run(context.Background(), Workload{
			NumProcesses: 1, PagesPerProcess: 6, Dir: dir,
		})

		Expect(err).ToNot(HaveOccurred())
		Expect(sum.AnonPages).To(Equal(6))
		Expect(sum.PeakSwapSlots).To(Equal(0))
	})

	It("should keep every page intact under memory pressure", func() {
		cfg.SwapImage = filepath.Join(dir, "swap.img")
		s := build()

		sum, err := s.Run(context.Background(), Workload{
			NumProcesses:    2,
			PagesPerProcess: 8,
			MappedPages:     3,
			Dir:             dir,
		})

		Expect(err).ToNot(HaveOccurred())
		Expect(sum.Mismatches).To(Equal(0))
		Expect(sum.AnonPages).To(Equal(16))
		Expect(sum.MappedPages).To(Equal(6))
		Expect(sum.PeakSwapSlots).To(BeNumerically(">=", 12))
		Expect(s.Swap.NumUsedSlots()).To(Equal(0))
		Expect(s.PageTable.Frames().NumFree()).To(Equal(4))

		n, err := testutil.GatherAndCount(s.Metrics, "vmstore_events_total")
		Expect(err).ToNot(HaveOccurred())
		Expect(n).To(BeNumerically(">", 0))
	})

	It("should record events when asked to", func() {
		cfg.RecordPath = filepath.Join(dir, "events")
		s := build()

		_, err := s.Run(context.Background(), Workload{
			NumProcesses: 1, PagesPerProcess: 6, Dir: dir,
		})
		Expect(err).ToNot(HaveOccurred())
		Expect(s.Close()).To(Succeed())

		info, err := os.Stat(cfg.RecordPath + ".sqlite3")
		Expect(err).ToNot(HaveOccurred())
		Expect(info.Size()).To(BeNumerically(">", 0))
	})

	It("should stop when the context is cancelled", func() {
		s := build()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := s.Run(ctx, Workload{
			NumProcesses: 1, PagesPerProcess: 2, Dir: dir,
		})

		Expect(err).To(MatchError(context.Canceled))
		Expect(s.PageTable.NumPages(1)).To(Equal(0))
	})
})
