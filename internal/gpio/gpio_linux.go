//go:build linux

package gpio

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/warthog618/go-gpiocdev"
)

// OpenInput requests a GPIO line as an input through the Linux GPIO
// character device.
//
// chip may be empty, in which case every /dev/gpiochip* is tried. name is a
// line name ("GPIO17") or, when empty, offset selects the line.
func OpenInput(chip string, name string, offset int) (*Input, error) {
	candidates := []string{}
	if chip = strings.TrimSpace(chip); chip != "" {
		candidates = append(candidates, chip)
	} else {
		entries, _ := os.ReadDir("/dev")
		for _, e := range entries {
			if strings.HasPrefix(e.Name(), "gpiochip") {
				candidates = append(candidates, filepath.Join("/dev", e.Name()))
			}
		}
	}

	var lastErr error
	for _, chipPath := range candidates {
		c, err := gpiocdev.NewChip(chipPath)
		if err != nil {
			lastErr = err
			continue
		}
		off := offset
		if name != "" {
			off, err = c.FindLine(name)
			if err != nil {
				_ = c.Close()
				lastErr = err
				continue
			}
		}
		line, err := c.RequestLine(off, gpiocdev.AsInput, gpiocdev.WithConsumer("gnss-relay-txready"))
		if err != nil {
			_ = c.Close()
			lastErr = err
			continue
		}
		return &Input{chip: c, line: line}, nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no gpio chips found")
	}
	return nil, fmt.Errorf("gpio: line %q offset %d not available: %w", name, offset, lastErr)
}

// Input is a requested input line.
type Input struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

func (in *Input) Value() (int, error) {
	if in == nil || in.line == nil {
		return 0, fmt.Errorf("gpio: line not open")
	}
	return in.line.Value()
}

func (in *Input) Close() error {
	if in == nil || in.line == nil {
		return nil
	}
	err := in.line.Close()
	in.line = nil
	if in.chip != nil {
		_ = in.chip.Close()
		in.chip = nil
	}
	return err
}
