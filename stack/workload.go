package stack

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sarchlab/vmstore/mem/vm"
	"github.com/sarchlab/vmstore/mem/vm/mmap"
	"go.uber.org/zap"
)

// Workload describes a synthetic run over the stack.
type Workload struct {
	// NumProcesses processes each get PagesPerProcess anonymous pages.
	NumProcesses    int
	PagesPerProcess int

	// MappedPages is the size of the file each process maps. Zero skips
	// the file-backed part.
	MappedPages int

	// Dir holds the mapped files.
	Dir string
}

// Summary is the outcome of a workload run.
type Summary struct {
	AnonPages     int
	MappedPages   int
	Mismatches    int
	PeakSwapSlots int
}

func anonContent(pid vm.PID, i int, pageSize uint64) []byte {
	return bytes.Repeat([]byte{byte(pid), byte(i), 0x5a, 0xc3}, int(pageSize/4))
}

// Run writes a distinct pattern to every anonymous page, reads all of them
// back, then maps a file per process, modifies it, and checks the changes
// reached the file after unmapping. Every process is torn down at the end.
func (s *Stack) Run(ctx context.Context, w Workload) (Summary, error) {
	sum := Summary{}
	pageSize := s.Config.PageSize()

	defer func() {
		for p := 0; p < w.NumProcesses; p++ {
			s.PageTable.RemoveAll(vm.PID(p + 1))
		}
	}()

	for p := 0; p < w.NumProcesses; p++ {
		pid := vm.PID(p + 1)

		for i := 0; i < w.PagesPerProcess; i++ {
			err := s.PageTable.Alloc(vm.PageRequest{
				PID:      pid,
				Type:     vm.Anonymous,
				VAddr:    anonBase + uint64(i)*pageSize,
				Writable: true,
			})
			if err != nil {
				return sum, err
			}
		}
	}

	for p := 0; p < w.NumProcesses; p++ {
		pid := vm.PID(p + 1)

		for i := 0; i < w.PagesPerProcess; i++ {
			if err := ctx.Err(); err != nil {
				return sum, err
			}

			err := s.PageTable.Write(pid, anonBase+uint64(i)*pageSize,
				anonContent(pid, i, pageSize))
			if err != nil {
				return sum, err
			}

			sum.AnonPages++
			sum.PeakSwapSlots = max(sum.PeakSwapSlots, s.Swap.NumUsedSlots())
		}
	}

	for p := 0; p < w.NumProcesses; p++ {
		pid := vm.PID(p + 1)

		for i := 0; i < w.PagesPerProcess; i++ {
			data, err := s.PageTable.Read(pid, anonBase+uint64(i)*pageSize,
				int(pageSize))
			if err != nil {
				return sum, err
			}

			if s.Swap.HasDevice() && !bytes.Equal(data, anonContent(pid, i, pageSize)) {
				s.Logger.Error("anonymous page content lost",
					zap.Uint32("pid", uint32(pid)), zap.Int("page", i))
				sum.Mismatches++
			}
		}
	}

	if w.MappedPages == 0 {
		return sum, nil
	}

	for p := 0; p < w.NumProcesses; p++ {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		n, mismatches, err := s.runMapped(vm.PID(p+1), w)
		if err != nil {
			return sum, err
		}

		sum.MappedPages += n
		sum.Mismatches += mismatches
	}

	return sum, nil
}

const (
	anonBase = uint64(0x08048000)
	mmapBase = uint64(0x40000000)
)

func (s *Stack) runMapped(pid vm.PID, w Workload) (int, int, error) {
	pageSize := s.Config.PageSize()
	length := uint64(w.MappedPages)*pageSize - pageSize/2
	path := filepath.Join(w.Dir, fmt.Sprintf("mapped-%d", pid))

	err := os.WriteFile(path, bytes.Repeat([]byte{'.'}, int(length)), 0o644)
	if err != nil {
		return 0, 0, err
	}

	file, err := mmap.Open(path, os.O_RDWR)
	if err != nil {
		return 0, 0, err
	}

	_, err = s.Mmap.Map(pid, mmapBase, length, true, file, 0)
	file.Close()

	if err != nil {
		return 0, 0, err
	}

	stamp := []byte(fmt.Sprintf("pid %d was here", pid))
	for i := 0; i < w.MappedPages; i++ {
		err = s.PageTable.Write(pid, mmapBase+uint64(i)*pageSize, stamp)
		if err != nil {
			return 0, 0, err
		}
	}

	s.Mmap.Unmap(pid, mmapBase)

	content, err := os.ReadFile(path)
	if err != nil {
		return 0, 0, err
	}

	mismatches := 0
	if uint64(len(content)) != length {
		mismatches++
	}

	for i := 0; i < w.MappedPages; i++ {
		off := uint64(i) * pageSize
		if off >= uint64(len(content)) || !bytes.HasPrefix(content[off:], stamp) {
			mismatches++
		}
	}

	return w.MappedPages, mismatches, nil
}
