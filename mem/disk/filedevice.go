package disk

import (
	"fmt"
	"os"
)

// A FileDevice stores its sectors in a host file, for example a swap image.
type FileDevice struct {
	file       *os.File
	numSectors uint64
}

// OpenFileDevice opens, or creates, the image at path and sizes it to hold
// numSectors sectors.
func OpenFileDevice(path string, numSectors uint64) (*FileDevice, error) {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open device image %s: %w", path, err)
	}

	err = file.Truncate(int64(numSectors * SectorSize))
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("size device image %s: %w", path, err)
	}

	d := &FileDevice{
		file:       file,
		numSectors: numSectors,
	}

	return d, nil
}

// NumSectors returns the capacity of the device in sectors.
func (d *FileDevice) NumSectors() uint64 {
	return d.numSectors
}

// ReadSector copies sector into buf.
func (d *FileDevice) ReadSector(sector uint64, buf []byte) error {
	if err := checkTransfer(d, sector, buf); err != nil {
		return err
	}

	_, err := d.file.ReadAt(buf[:SectorSize], int64(sector*SectorSize))
	if err != nil {
		return fmt.Errorf("read sector %d: %w", sector, err)
	}

	return nil
}

// WriteSector copies buf into sector.
func (d *FileDevice) WriteSector(sector uint64, buf []byte) error {
	if err := checkTransfer(d, sector, buf); err != nil {
		return err
	}

	_, err := d.file.WriteAt(buf[:SectorSize], int64(sector*SectorSize))
	if err != nil {
		return fmt.Errorf("write sector %d: %w", sector, err)
	}

	return nil
}

// Close releases the underlying image file.
func (d *FileDevice) Close() error {
	return d.file.Close()
}
