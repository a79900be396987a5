package accounts

import "time"

// IsWithinThresholdPeriod reports whether t falls inside the trailing
// window described by pattern, e.g. "24h" for the login cooldown.
func IsWithinThresholdPeriod(t time.Time, pattern string) (bool, error) {
	window, err := time.ParseDuration(pattern)
	if err != nil {
		return false, err
	}
	return t.After(time.Now().Add(-window)), nil
}

// IsOutsideThresholdPeriod reports whether t predates the trailing
// window, meaning any counters tied to it have gone stale.
func IsOutsideThresholdPeriod(t time.Time, pattern string) (bool, error) {
	within, err := IsWithinThresholdPeriod(t, pattern)
	if err != nil {
		return false, err
	}
	return !within, nil
}
