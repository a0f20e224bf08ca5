// Package stack assembles a complete backing-store stack from a config: the
// swap device, the page table, both page-type managers, and the hooks that
// log, count, and record what they do.
package stack

import (
	"errors"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sarchlab/vmstore/config"
	"github.com/sarchlab/vmstore/datarecording"
	"github.com/sarchlab/vmstore/mem/disk"
	"github.com/sarchlab/vmstore/mem/vm"
	"github.com/sarchlab/vmstore/mem/vm/mmap"
	"github.com/sarchlab/vmstore/mem/vm/swap"
	"github.com/sarchlab/vmstore/sim/hooking"
	"github.com/sarchlab/vmstore/tracing"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Stack is a ready-to-use set of backing stores.
type Stack struct {
	Config    config.Config
	Logger    *zap.Logger
	Devices   *disk.Registry
	PageTable *vm.Table
	Swap      *swap.Manager
	Mmap      *mmap.Manager
	Metrics   *prometheus.Registry

	closers []io.Closer
}

// New builds a stack. The caller must Close it.
func New(cfg config.Config, logger *zap.Logger) (*Stack, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	s := &Stack{
		Config:  cfg,
		Logger:  logger,
		Devices: disk.NewRegistry(),
		Metrics: prometheus.NewRegistry(),
	}

	err = s.attachSwapDevice()
	if err != nil {
		return nil, err
	}

	s.PageTable = vm.MakeBuilder().
		WithLog2PageSize(cfg.Log2PageSize).
		WithNumFrames(cfg.NumFrames).
		Build()

	s.Swap = swap.MakeBuilder().
		WithRegistry(s.Devices).
		WithPageSize(cfg.PageSize()).
		WithLogger(logger.Named("swap")).
		Build()
	s.PageTable.RegisterOps(s.Swap)

	s.Mmap = mmap.MakeBuilder().
		WithPageTable(s.PageTable).
		WithLogger(logger.Named("mmap")).
		Build()

	s.attachHooks()

	return s, nil
}

func (s *Stack) attachSwapDevice() error {
	if s.Config.SwapSectors == 0 {
		s.Logger.Info("swap disabled")
		return nil
	}

	if s.Config.SwapImage == "" {
		s.Devices.Register(disk.RoleSwap, disk.NewMemDevice(s.Config.SwapSectors))
		return nil
	}

	device, err := disk.OpenFileDevice(s.Config.SwapImage, s.Config.SwapSectors)
	if err != nil {
		return err
	}

	s.Devices.Register(disk.RoleSwap, device)
	s.closers = append(s.closers, device)

	return nil
}

func (s *Stack) attachHooks() {
	domains := []hooking.Hookable{s.Swap, s.Mmap}

	tracing.Collect(tracing.NewLogHook(s.Logger, zapcore.DebugLevel), domains...)
	tracing.Collect(tracing.NewMetricsHook(s.Metrics, s.Swap), domains...)

	if s.Config.RecordPath != "" {
		recorder := datarecording.New(s.Config.RecordPath)
		tracing.Collect(tracing.NewRecordingHook(recorder), domains...)
		s.closers = append(s.closers, recorder)
	}
}

// Close releases the devices and flushes the recorded events.
func (s *Stack) Close() error {
	var errs []error

	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i].Close())
	}

	s.closers = nil

	return errors.Join(errs...)
}
