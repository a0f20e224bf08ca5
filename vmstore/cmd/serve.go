package cmd

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/sarchlab/vmstore/monitoring"
	"github.com/sarchlab/vmstore/stack"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	serveWorkload stack.Workload
	serveInterval time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the workload in a loop and serve metrics until interrupted.",
	RunE: func(c *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(c.Context(),
			syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		w, cleanup, err := prepareWorkload(serveWorkload)
		if err != nil {
			return err
		}
		defer cleanup()

		s, err := stack.New(cfg, log)
		if err != nil {
			return err
		}
		defer s.Close()

		monitor := monitoring.NewMonitor().
			WithLogger(log.Named("monitor")).
			WithGatherer(s.Metrics).
			WithPortNumber(cfg.MetricsPort)
		monitor.RegisterPageTable(s.PageTable)
		monitor.RegisterSwap(s.Swap)

		_, err = monitor.StartServer()
		if err != nil {
			return err
		}

		return loop(ctx, s, monitor, w)
	},
}

func loop(
	ctx context.Context,
	s *stack.Stack,
	monitor *monitoring.Monitor,
	w stack.Workload,
) error {
	ticker := time.NewTicker(serveInterval)
	defer ticker.Stop()

	for round := 1; ; round++ {
		bar := monitor.CreateProgressBar("round", 1)
		bar.IncrementInProgress(1)

		sum, err := s.Run(ctx, w)

		bar.MoveInProgressToFinished(1)
		monitor.CompleteProgressBar(bar)

		if ctx.Err() != nil {
			log.Info("stopping")
			return nil
		}

		if err != nil {
			return err
		}

		log.Info("round finished",
			zap.Int("round", round),
			zap.Int("peak_swap_slots", sum.PeakSwapSlots),
			zap.Int("mismatches", sum.Mismatches))

		select {
		case <-ctx.Done():
			log.Info("stopping")
			return nil
		case <-ticker.C:
		}
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	addWorkloadFlags(serveCmd, &serveWorkload)
	serveCmd.Flags().DurationVar(&serveInterval, "interval", time.Second,
		"pause between workload rounds")
}
