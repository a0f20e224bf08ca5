package mmap

import (
	"errors"
	"fmt"
	"io"

	"github.com/sarchlab/vmstore/mem/vm"
)

// A segment is the lazy loader of one mapped page. It owns its file handle
// until the page is first loaded, then hands its record over to the page.
type segment struct {
	info *vm.FileInfo
}

func (s *segment) Load(page *vm.Page, frame *vm.Frame) error {
	err := readSegment(s.info, frame.KVA)
	if err != nil {
		return err
	}

	page.File.Info = s.info

	return nil
}

func (s *segment) Discard(_ *vm.Page) {
	s.info.File.Close()
}

// readSegment fills kva with ReadBytes bytes of the file and zeros. Bytes
// past the end of the file read as zeros too.
func readSegment(info *vm.FileInfo, kva []byte) error {
	n := 0

	if info.ReadBytes > 0 {
		var err error

		n, err = info.File.ReadAt(kva[:info.ReadBytes], info.Offset)
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("read %d bytes at offset %d: %w",
				info.ReadBytes, info.Offset, err)
		}
	}

	clear(kva[n:])

	return nil
}
