package disk

import "sync"

const memUnitSectors = 8

// A MemDevice keeps sector contents in host memory.
//
// The device manages the storage in units of several sectors. A unit that has
// never been written is not allocated and reads back as zeros, so a large
// device costs memory only for the sectors that are actually used.
type MemDevice struct {
	lock       sync.RWMutex
	numSectors uint64
	units      map[uint64][]byte
}

// NewMemDevice creates an in-memory device with the given number of sectors.
func NewMemDevice(numSectors uint64) *MemDevice {
	return &MemDevice{
		numSectors: numSectors,
		units:      make(map[uint64][]byte),
	}
}

// NumSectors returns the capacity of the device in sectors.
func (d *MemDevice) NumSectors() uint64 {
	return d.numSectors
}

func (d *MemDevice) parseSector(sector uint64) (unitIndex, inUnitOffset uint64) {
	unitIndex = sector / memUnitSectors
	inUnitOffset = (sector % memUnitSectors) * SectorSize

	return
}

// ReadSector copies sector into buf.
func (d *MemDevice) ReadSector(sector uint64, buf []byte) error {
	if err := checkTransfer(d, sector, buf); err != nil {
		return err
	}

	d.lock.RLock()
	defer d.lock.RUnlock()

	unitIndex, offset := d.parseSector(sector)

	unit, found := d.units[unitIndex]
	if !found {
		clear(buf[:SectorSize])
		return nil
	}

	copy(buf[:SectorSize], unit[offset:offset+SectorSize])

	return nil
}

// WriteSector copies buf into sector.
func (d *MemDevice) WriteSector(sector uint64, buf []byte) error {
	if err := checkTransfer(d, sector, buf); err != nil {
		return err
	}

	d.lock.Lock()
	defer d.lock.Unlock()

	unitIndex, offset := d.parseSector(sector)

	unit, found := d.units[unitIndex]
	if !found {
		unit = make([]byte, memUnitSectors*SectorSize)
		d.units[unitIndex] = unit
	}

	copy(unit[offset:offset+SectorSize], buf[:SectorSize])

	return nil
}

// NumAllocatedUnits returns how many storage units have been materialized.
func (d *MemDevice) NumAllocatedUnits() int {
	d.lock.RLock()
	defer d.lock.RUnlock()

	return len(d.units)
}
