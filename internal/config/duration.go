package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var errEmptyDuration = errors.New("empty duration")

// DurationOrDefault parses value as a Go duration ("5s", "1m30s"), using def
// when value is blank. Negative durations are rejected.
func DurationOrDefault(value, def string) (time.Duration, error) {
	raw := strings.TrimSpace(value)
	if raw == "" {
		raw = strings.TrimSpace(def)
	}
	if raw == "" {
		return 0, errEmptyDuration
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid duration %q: must not be negative", raw)
	}
	return d, nil
}
