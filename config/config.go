// Package config loads the settings of the vmstore tools from the
// environment.
//
// Every setting has a default and can be overridden by a VMSTORE_*
// environment variable. Variables can also come from a .env file; variables
// already set in the environment win over the file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/sarchlab/vmstore/mem/disk"
)

// ErrInvalidConfig is returned when a setting cannot be parsed or is out of
// range.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds the settings of a vmstore stack.
type Config struct {
	// SwapImage is the host file used as swap device. Empty means an
	// in-memory device.
	SwapImage string

	// SwapSectors is the size of the swap device in sectors. Zero disables
	// swapping.
	SwapSectors uint64

	NumFrames    int
	Log2PageSize uint64

	LogLevel  string
	LogFormat string
	LogOutput string

	// MetricsPort is where the serve command exposes /metrics. Zero picks
	// a free port.
	MetricsPort int

	// RecordPath, if set, is where events are recorded, without the
	// .sqlite3 extension.
	RecordPath string
}

// Default returns the default settings: an 8 MiB in-memory swap device and
// 64 frames of 4 KiB.
func Default() Config {
	return Config{
		SwapSectors:  16384,
		NumFrames:    64,
		Log2PageSize: 12,
		LogLevel:     "info",
		LogFormat:    "console",
		LogOutput:    "stderr",
		MetricsPort:  9090,
	}
}

// PageSize returns the page size in bytes.
func (c Config) PageSize() uint64 {
	return 1 << c.Log2PageSize
}

// Load returns the default settings overridden by the environment. If
// envFile is not empty, it is read first and must exist.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		err := godotenv.Load(envFile)
		if err != nil {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	c := Default()

	lookupString("VMSTORE_SWAP_IMAGE", &c.SwapImage)
	lookupString("VMSTORE_LOG_LEVEL", &c.LogLevel)
	lookupString("VMSTORE_LOG_FORMAT", &c.LogFormat)
	lookupString("VMSTORE_LOG_OUTPUT", &c.LogOutput)
	lookupString("VMSTORE_RECORD_PATH", &c.RecordPath)

	err := errors.Join(
		lookupUint("VMSTORE_SWAP_SECTORS", &c.SwapSectors),
		lookupUint("VMSTORE_LOG2_PAGE_SIZE", &c.Log2PageSize),
		lookupInt("VMSTORE_NUM_FRAMES", &c.NumFrames),
		lookupInt("VMSTORE_METRICS_PORT", &c.MetricsPort),
	)
	if err != nil {
		return Config{}, err
	}

	err = c.Validate()
	if err != nil {
		return Config{}, err
	}

	return c, nil
}

// Validate checks that the settings describe a working stack.
func (c Config) Validate() error {
	switch {
	case c.NumFrames <= 0:
		return fmt.Errorf("%w: need at least one frame, got %d",
			ErrInvalidConfig, c.NumFrames)
	case c.PageSize() < disk.SectorSize || c.Log2PageSize > 20:
		return fmt.Errorf("%w: log2 page size %d out of range",
			ErrInvalidConfig, c.Log2PageSize)
	case c.MetricsPort < 0 || c.MetricsPort > 65535:
		return fmt.Errorf("%w: port %d out of range",
			ErrInvalidConfig, c.MetricsPort)
	case c.SwapSectors%(c.PageSize()/disk.SectorSize) != 0:
		return fmt.Errorf("%w: %d swap sectors is not a whole number of pages",
			ErrInvalidConfig, c.SwapSectors)
	}

	return nil
}

func lookupString(key string, dst *string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func lookupUint(key string, dst *uint64) error {
	v, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}

	n, err := strconv.ParseUint(v, 0, 64)
	if err != nil {
		return fmt.Errorf("%w: %s=%q", ErrInvalidConfig, key, v)
	}

	*dst = n

	return nil
}

func lookupInt(key string, dst *int) error {
	v, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%w: %s=%q", ErrInvalidConfig, key, v)
	}

	*dst = n

	return nil
}
