package cmd

import (
	"fmt"

	"github.com/sarchlab/vmstore/monitoring"
	"github.com/sarchlab/vmstore/stack"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var demoWorkload stack.Workload

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run the workload once and print a summary.",
	RunE: func(c *cobra.Command, _ []string) error {
		w, cleanup, err := prepareWorkload(demoWorkload)
		if err != nil {
			return err
		}
		defer cleanup()

		s, err := stack.New(cfg, log)
		if err != nil {
			return err
		}
		defer s.Close()

		sum, err := s.Run(c.Context(), w)
		if err != nil {
			return err
		}

		out := c.OutOrStdout()
		fmt.Fprintf(out, "anonymous pages:  %d\n", sum.AnonPages)
		fmt.Fprintf(out, "mapped pages:     %d\n", sum.MappedPages)
		fmt.Fprintf(out, "peak swap slots:  %d of %d\n",
			sum.PeakSwapSlots, s.Swap.NumSlots())
		fmt.Fprintf(out, "mismatches:       %d\n", sum.Mismatches)

		_, rss, err := monitoring.Resources()
		if err != nil {
			log.Warn("reading process resources failed", zap.Error(err))
		} else {
			fmt.Fprintf(out, "resident set:     %d KiB\n", rss/1024)
		}

		if sum.Mismatches > 0 {
			return fmt.Errorf("%d pages did not read back correctly",
				sum.Mismatches)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(demoCmd)
	addWorkloadFlags(demoCmd, &demoWorkload)
}
