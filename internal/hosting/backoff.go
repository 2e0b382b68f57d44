package hosting

import (
	"math"
	"time"
)

// DefaultRateLimitWait is returned when a rate-limited response carries no
// usable reset metadata.
const DefaultRateLimitWait int64 = 60

// WaitSeconds computes how long a caller should back off before retrying a
// rate-limited call. A nil or past reset time never yields a negative wait.
func WaitSeconds(resetAt *time.Time, now time.Time) int64 {
	if resetAt == nil {
		return DefaultRateLimitWait
	}
	d := resetAt.Sub(now).Seconds()
	if d <= 0 {
		return 0
	}
	return int64(math.Ceil(d))
}
