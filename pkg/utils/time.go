package utils

import "time"

// Now returns the current time in UTC timezone
func Now() time.Time {
	return time.Now().UTC()
}

// FormatISO8601 formats a time.Time to ISO8601 format in UTC
func FormatISO8601(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// ExponentialDelay returns base * 2^(attempt-1), capped at max. Attempts start at 1.
func ExponentialDelay(base, max time.Duration, attempt uint64) time.Duration {
	if attempt <= 1 {
		return capDelay(base, max)
	}
	// Guard against overflow on large attempt counts
	if attempt > 30 {
		return max
	}
	return capDelay(base*time.Duration(uint64(1)<<(attempt-1)), max)
}

func capDelay(d, max time.Duration) time.Duration {
	if max > 0 && d > max {
		return max
	}
	return d
}
