package swap

import (
	"github.com/bits-and-blooms/bitset"
	"github.com/sarchlab/vmstore/mem/disk"
	"github.com/tebeka/atexit"
	"go.uber.org/zap"
)

// A Builder can build swap managers.
type Builder struct {
	device   disk.Device
	registry *disk.Registry
	pageSize uint64
	logger   *zap.Logger
}

// MakeBuilder creates a builder for 4 KiB pages and no device.
func MakeBuilder() Builder {
	return Builder{
		pageSize: 4096,
	}
}

// WithDevice sets the swap device.
func (b Builder) WithDevice(device disk.Device) Builder {
	b.device = device
	return b
}

// WithRegistry makes Build look up the device registered as disk.RoleSwap
// when no device is set explicitly.
func (b Builder) WithRegistry(registry *disk.Registry) Builder {
	b.registry = registry
	return b
}

// WithPageSize sets the page size. It must be a multiple of
// disk.SectorSize.
func (b Builder) WithPageSize(pageSize uint64) Builder {
	b.pageSize = pageSize
	return b
}

// WithLogger sets the logger.
func (b Builder) WithLogger(logger *zap.Logger) Builder {
	b.logger = logger
	return b
}

// Build creates the manager and its empty slot bitmap.
func (b Builder) Build() *Manager {
	if b.pageSize == 0 || b.pageSize%disk.SectorSize != 0 {
		panic("page size must be a multiple of the sector size")
	}

	m := &Manager{
		device:         b.device,
		sectorsPerPage: b.pageSize / disk.SectorSize,
		logger:         b.logger,
		halt:           atexit.Fatalf,
	}

	if m.device == nil && b.registry != nil {
		if device, found := b.registry.Locate(disk.RoleSwap); found {
			m.device = device
		}
	}

	if m.logger == nil {
		m.logger = zap.NewNop()
	}

	if m.device != nil {
		m.slots = bitset.New(uint(m.device.NumSectors()))
	}

	return m
}
