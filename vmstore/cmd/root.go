// Package cmd provides the command-line interface for vmstore.
package cmd

import (
	"github.com/sarchlab/vmstore/config"
	"github.com/sarchlab/vmstore/logger"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
	"go.uber.org/zap"
)

var (
	envFile string
	cfg     config.Config
	log     *zap.Logger
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "vmstore",
	Short: "vmstore runs workloads against swap and memory-mapped file stores.",
	Long: `vmstore builds a page table with an anonymous (swap) store and a ` +
		`file-backed (mmap) store, then drives them with a synthetic ` +
		`workload. Settings come from VMSTORE_* environment variables or ` +
		`a .env file.`,
	SilenceUsage: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		var err error

		cfg, err = config.Load(envFile)
		if err != nil {
			return err
		}

		log, _, err = logger.New(logger.Config{
			Level:      cfg.LogLevel,
			Format:     cfg.LogFormat,
			OutputFile: cfg.LogOutput,
		})
		if err != nil {
			return err
		}

		atexit.Register(func() { _ = log.Sync() })

		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env", "",
		"a .env file to read settings from")
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}
