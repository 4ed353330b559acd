package usgs

import "time"

// SetRateLimitWait overrides the pause before a rate-limited retry and
// returns the previous value
func SetRateLimitWait(d time.Duration) time.Duration {
	prev := rateLimitWait
	rateLimitWait = d
	return prev
}
