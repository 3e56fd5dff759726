package config

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var shortDuration = regexp.MustCompile(`^(\d+)([smhd])$`)

var shortDurationUnits = map[string]time.Duration{
	"s": time.Second,
	"m": time.Minute,
	"h": time.Hour,
	"d": 24 * time.Hour,
}

// ParseDuration parses a timeout such as "10s", "2m" or "1d". Anything else
// goes through time.ParseDuration ("1m30s", "500ms"). Negative values are
// rejected because every duration here bounds a wait.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)

	if m := shortDuration.FindStringSubmatch(s); m != nil {
		n, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("duration %q: %w", s, err)
		}
		return time.Duration(n) * shortDurationUnits[m[2]], nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("duration %q must not be negative", s)
	}
	return d, nil
}
