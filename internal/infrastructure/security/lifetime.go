package security

import (
	"math"
	"regexp"
	"strconv"
	"time"
)

const (
	DefaultAccessTokenExpiry  = "15m"
	DefaultRefreshTokenExpiry = "7d"

	fallbackAccessSeconds = 900
	fallbackRefreshTTL    = 7 * 24 * time.Hour
)

var lifetimePattern = regexp.MustCompile(`^(\d+)([smhd])$`)

// parseLifetime understands "<integer><unit>" with unit one of s, m, h, d.
// Lifetimes that do not fit in a time.Duration are rejected.
func parseLifetime(s string) (time.Duration, bool) {
	m := lifetimePattern.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, false
	}

	var unit time.Duration
	switch m[2] {
	case "s":
		unit = time.Second
	case "m":
		unit = time.Minute
	case "h":
		unit = time.Hour
	case "d":
		unit = 24 * time.Hour
	}
	if n > math.MaxInt64/int64(unit) {
		return 0, false
	}
	return time.Duration(n) * unit, true
}

// ExpiresInSeconds converts a lifetime string to seconds. Anything it cannot
// parse counts as 900 seconds.
func ExpiresInSeconds(lifetime string) int64 {
	d, ok := parseLifetime(lifetime)
	if !ok {
		return fallbackAccessSeconds
	}
	return int64(d / time.Second)
}
