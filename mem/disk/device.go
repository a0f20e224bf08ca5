// Package disk provides the block devices that back swap areas.
package disk

import (
	"errors"
	"fmt"
)

// SectorSize is the number of bytes in one device sector.
const SectorSize = 512

var (
	// ErrSectorOutOfRange is returned when a transfer names a sector beyond
	// the end of the device.
	ErrSectorOutOfRange = errors.New("sector out of range")

	// ErrShortBuffer is returned when the buffer handed to a transfer is
	// smaller than one sector.
	ErrShortBuffer = errors.New("buffer shorter than a sector")
)

// A Device is a fixed-size array of sectors. Transfers are synchronous and
// always move exactly SectorSize bytes.
type Device interface {
	// ReadSector copies sector into the first SectorSize bytes of buf.
	ReadSector(sector uint64, buf []byte) error

	// WriteSector copies the first SectorSize bytes of buf into sector.
	WriteSector(sector uint64, buf []byte) error

	// NumSectors returns the capacity of the device in sectors.
	NumSectors() uint64
}

func checkTransfer(d Device, sector uint64, buf []byte) error {
	if sector >= d.NumSectors() {
		return fmt.Errorf("%w: sector %d, device has %d",
			ErrSectorOutOfRange, sector, d.NumSectors())
	}

	if len(buf) < SectorSize {
		return fmt.Errorf("%w: got %d bytes", ErrShortBuffer, len(buf))
	}

	return nil
}
