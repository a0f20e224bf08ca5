// Package monitoring serves the state of a running vmstore stack over HTTP.
package monitoring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"sync"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sarchlab/vmstore/mem/vm"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"
	"go.uber.org/zap"
)

// SwapStats is what the monitor needs to know about the swap manager.
type SwapStats interface {
	HasDevice() bool
	NumSlots() int
	NumUsedSlots() int
}

// Monitor exposes metrics, resource usage, and the pages of a page table.
type Monitor struct {
	pageTable  *vm.Table
	swap       SwapStats
	gatherer   prometheus.Gatherer
	portNumber int
	logger     *zap.Logger

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar
}

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	return &Monitor{
		gatherer: prometheus.DefaultGatherer,
		logger:   zap.NewNop(),
	}
}

// WithPortNumber sets the port number of the monitor. Zero picks a free
// port.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 && portNumber < 1000 {
		m.logger.Warn("monitor port not allowed, using a random port",
			zap.Int("port", portNumber))
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// WithGatherer sets where /metrics reads metrics from.
func (m *Monitor) WithGatherer(g prometheus.Gatherer) *Monitor {
	m.gatherer = g
	return m
}

// WithLogger sets the logger.
func (m *Monitor) WithLogger(logger *zap.Logger) *Monitor {
	m.logger = logger
	return m
}

// RegisterPageTable sets the page table to report on.
func (m *Monitor) RegisterPageTable(pt *vm.Table) {
	m.pageTable = pt
}

// RegisterSwap sets the swap manager to report on.
func (m *Monitor) RegisterSwap(s SwapStats) {
	m.swap = s
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := newProgressBar(name, total)

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar from the progress list.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	newBars := make([]*ProgressBar, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	m.progressBars = newBars
}

// Router returns the HTTP routes of the monitor.
func (m *Monitor) Router() *mux.Router {
	r := mux.NewRouter()

	r.Handle("/metrics", promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{}))
	r.HandleFunc("/api/stats", m.stats)
	r.HandleFunc("/api/page/{pid:[0-9]+}/{vaddr}", m.pageDetails)
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)

	return r
}

// StartServer listens on the configured port and serves the monitor in the
// background. It returns the address actually listened on.
func (m *Monitor) StartServer() (net.Addr, error) {
	listener, err := net.Listen("tcp", ":"+strconv.Itoa(m.portNumber))
	if err != nil {
		return nil, err
	}

	m.logger.Info("monitoring server started",
		zap.String("url", fmt.Sprintf("http://localhost:%d",
			listener.Addr().(*net.TCPAddr).Port)))

	go func() {
		err := http.Serve(listener, m.Router())
		if err != nil {
			m.logger.Error("monitoring server stopped", zap.Error(err))
		}
	}()

	return listener.Addr(), nil
}

type statsRsp struct {
	Frames         int  `json:"frames"`
	FreeFrames     int  `json:"free_frames"`
	ResidentFrames int  `json:"resident_frames"`
	SwapEnabled    bool `json:"swap_enabled"`
	SwapSlots      int  `json:"swap_slots"`
	UsedSwapSlots  int  `json:"used_swap_slots"`
}

func (m *Monitor) stats(w http.ResponseWriter, _ *http.Request) {
	rsp := statsRsp{}

	if m.pageTable != nil {
		frames := m.pageTable.Frames()
		rsp.Frames = frames.Capacity()
		rsp.FreeFrames = frames.NumFree()
		rsp.ResidentFrames = frames.NumResident()
	}

	if m.swap != nil {
		rsp.SwapEnabled = m.swap.HasDevice()
		rsp.SwapSlots = m.swap.NumSlots()
		rsp.UsedSwapSlots = m.swap.NumUsedSlots()
	}

	m.writeJSON(w, rsp)
}

func (m *Monitor) pageDetails(w http.ResponseWriter, r *http.Request) {
	if m.pageTable == nil {
		http.Error(w, "no page table", http.StatusNotFound)
		return
	}

	vars := mux.Vars(r)

	pid, err := strconv.ParseUint(vars["pid"], 10, 32)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	vAddr, err := strconv.ParseUint(vars["vaddr"], 0, 64)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	page, found := m.pageTable.Find(vm.PID(pid), vAddr)
	if !found {
		http.Error(w, "page not found", http.StatusNotFound)
		return
	}

	page.Lock()
	defer page.Unlock()

	serializer := goseth.NewSerializer()
	serializer.SetRoot(page)
	serializer.SetMaxDepth(1)

	err = serializer.Serialize(w)
	if err != nil {
		m.logger.Error("serializing page failed", zap.Error(err))
	}
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	bars := make([]progressBarRsp, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		bars = append(bars, b.snapshot())
	}
	m.progressBarsLock.Unlock()

	m.writeJSON(w, bars)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

// Resources returns the CPU usage and resident set size of this process.
func Resources() (cpuPercent float64, rss uint64, err error) {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return 0, 0, err
	}

	cpuPercent, err = p.CPUPercent()
	if err != nil {
		return 0, 0, err
	}

	memInfo, err := p.MemoryInfo()
	if err != nil {
		return 0, 0, err
	}

	return cpuPercent, memInfo.RSS, nil
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	cpuPercent, rss, err := Resources()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	m.writeJSON(w, resourceRsp{CPUPercent: cpuPercent, MemorySize: rss})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	time.Sleep(time.Second)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	m.writeJSON(w, prof)
}

func (m *Monitor) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")

	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		m.logger.Error("writing response failed", zap.Error(err))
	}
}
