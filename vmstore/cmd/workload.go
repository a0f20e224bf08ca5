package cmd

import (
	"os"

	"github.com/sarchlab/vmstore/stack"
	"github.com/spf13/cobra"
)

func addWorkloadFlags(c *cobra.Command, w *stack.Workload) {
	c.Flags().IntVar(&w.NumProcesses, "processes", 2,
		"number of processes")
	c.Flags().IntVar(&w.PagesPerProcess, "pages", 0,
		"anonymous pages per process, 0 means twice the number of frames")
	c.Flags().IntVar(&w.MappedPages, "mapped-pages", 4,
		"pages of the file each process maps, 0 disables mapping")
}

func prepareWorkload(w stack.Workload) (stack.Workload, func(), error) {
	if w.PagesPerProcess == 0 {
		w.PagesPerProcess = 2 * cfg.NumFrames
	}

	dir, err := os.MkdirTemp("", "vmstore-")
	if err != nil {
		return w, nil, err
	}

	w.Dir = dir

	return w, func() { os.RemoveAll(dir) }, nil
}
