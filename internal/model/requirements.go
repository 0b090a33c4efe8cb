package model

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/shirou/gopsutil/v4/mem"
)

// ErrInsufficientMemory is returned when the machine has less RAM than the
// configured minimum.
var ErrInsufficientMemory = errors.New("insufficient memory")

// Requirements are checked before the model is used.
type Requirements struct {
	// ModelPath must exist when set.
	ModelPath string
	// MinRAMGB of zero skips the memory check.
	MinRAMGB float64
	// TotalMemory reports physical memory in bytes. Defaults to SystemMemory.
	TotalMemory func() (uint64, error)
	Logger      *slog.Logger
}

// SystemMemory returns the total physical memory of the machine.
func SystemMemory() (uint64, error) {
	v, err := mem.VirtualMemory()
	if err != nil {
		return 0, fmt.Errorf("reading system memory: %w", err)
	}
	return v.Total, nil
}

// Check verifies memory first, then the model file. A memory total that
// cannot be read is logged and skipped.
func (r Requirements) Check() error {
	logger := r.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if r.MinRAMGB > 0 {
		totalMemory := r.TotalMemory
		if totalMemory == nil {
			totalMemory = SystemMemory
		}
		total, err := totalMemory()
		switch {
		case err != nil:
			logger.Debug("skipping RAM check", "error", err)
		case total == 0:
			logger.Debug("skipping RAM check", "error", "total memory unknown")
		default:
			gb := float64(total) / (1 << 30)
			logger.Debug("checked RAM", "total_gb", gb, "min_gb", r.MinRAMGB)
			if gb < r.MinRAMGB {
				return fmt.Errorf("%w: only %.1fGB RAM available, minimum %gGB recommended", ErrInsufficientMemory, gb, r.MinRAMGB)
			}
		}
	}

	if r.ModelPath != "" {
		return CheckExists(r.ModelPath)
	}
	return nil
}
