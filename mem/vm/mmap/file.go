package mmap

import (
	"fmt"
	"os"

	"github.com/sarchlab/vmstore/mem/vm"
)

// OSFile is a vm.File backed by a host file.
type OSFile struct {
	*os.File
	flag int
}

// Open opens a host file for mapping. flag is passed to os.OpenFile.
func Open(name string, flag int) (*OSFile, error) {
	f, err := os.OpenFile(name, flag, 0o644)
	if err != nil {
		return nil, err
	}

	return &OSFile{File: f, flag: flag}, nil
}

// Reopen opens the same file again with the same access mode.
func (f *OSFile) Reopen() (vm.File, error) {
	flag := f.flag &^ (os.O_CREATE | os.O_EXCL | os.O_TRUNC | os.O_APPEND)

	nf, err := os.OpenFile(f.Name(), flag, 0)
	if err != nil {
		return nil, fmt.Errorf("reopen %s: %w", f.Name(), err)
	}

	return &OSFile{File: nf, flag: f.flag}, nil
}
