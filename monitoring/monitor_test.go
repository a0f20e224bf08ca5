package monitoring

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sarchlab/vmstore/mem/disk"
	"github.com/sarchlab/vmstore/mem/vm"
	"github.com/sarchlab/vmstore/mem/vm/swap"
)

var _ = Describe("Monitor", func() {
	var (
		m      *Monitor
		pt     *vm.Table
		mgr    *swap.Manager
		router http.Handler
	)

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

		return rec
	}

	BeforeEach(func() {
		pt = vm.MakeBuilder().WithNumFrames(2).Build()
		mgr = swap.MakeBuilder().WithDevice(disk.NewMemDevice(64)).Build()
		pt.RegisterOps(mgr)

		reg := prometheus.NewRegistry()
		counter := prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vmstore_test_total",
			Help: "Test counter.",
		})
		reg.MustRegister(counter)
		counter.Add(3)

		m = NewMonitor().WithGatherer(reg)
		m.RegisterPageTable(pt)
		m.RegisterSwap(mgr)
		router = m.Router()
	})

	It("should expose metrics", func() {
		rec := get("/metrics")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring("vmstore_test_total 3"))
	})

	It("should report frame and slot usage", func() {
		for i := uint64(0); i < 3; i++ {
			Expect(pt.Alloc(vm.PageRequest{
				PID: 1, Type: vm.Anonymous, VAddr: i * 4096, Writable: true,
			})).To(Succeed())
			Expect(pt.Write(1, i*4096, []byte{byte(i)})).To(Succeed())
		}

		rec := get("/api/stats")

		Expect(rec.Code).To(Equal(http.StatusOK))
		var rsp statsRsp
		Expect(json.Unmarshal(rec.Body.Bytes(), &rsp)).To(Succeed())
		Expect(rsp).To(Equal(statsRsp{
			Frames:         2,
			FreeFrames:     0,
			ResidentFrames: 2,
			SwapEnabled:    true,
			SwapSlots:      8,
			UsedSwapSlots:  1,
		}))
	})

	It("should serialize a page", func() {
		Expect(pt.Alloc(vm.PageRequest{
			PID: 1, Type: vm.Anonymous, VAddr: 0x2000, Writable: true,
		})).To(Succeed())

		rec := get("/api/page/1/0x2000")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring("VAddr"))
	})

	It("should return 404 for a missing page", func() {
		rec := get("/api/page/1/0x2000")

		Expect(rec.Code).To(Equal(http.StatusNotFound))
	})

	It("should reject a bad address", func() {
		rec := get("/api/page/1/nowhere")

		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})

	It("should list progress bars until they complete", func() {
		bar := m.CreateProgressBar("workload", 10)
		bar.IncrementInProgress(4)
		bar.MoveInProgressToFinished(3)

		rec := get("/api/progress")
		var bars []progressBarRsp
		Expect(json.Unmarshal(rec.Body.Bytes(), &bars)).To(Succeed())
		Expect(bars).To(HaveLen(1))
		Expect(bars[0].Name).To(Equal("workload"))
		Expect(bars[0].Finished).To(Equal(uint64(3)))
		Expect(bars[0].InProgress).To(Equal(uint64(1)))

		m.CompleteProgressBar(bar)

		rec = get("/api/progress")
		Expect(strings.TrimSpace(rec.Body.String())).To(Equal("[]"))
	})

	It("should report process resources", func() {
		rec := get("/api/resource")

		Expect(rec.Code).To(Equal(http.StatusOK))
		var rsp resourceRsp
		Expect(json.Unmarshal(rec.Body.Bytes(), &rsp)).To(Succeed())
		Expect(rsp.MemorySize).To(BeNumerically(">", 0))
	})

	It("should fall back to a random port for reserved ports", func() {
		m.WithPortNumber(80)

		Expect(m.portNumber).To(Equal(0))
	})

	It("should serve on a free port", func() {
		addr, err := m.StartServer()

		Expect(err).ToNot(HaveOccurred())
		Expect(addr.String()).ToNot(BeEmpty())
	})
})
