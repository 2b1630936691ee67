package cmd

import (
	"time"

	"github.com/lainio/err2/try"
)

// parseDuration throws an error if s isn't a duration.
func parseDuration(s string) time.Duration {
	if s == "" {
		return 0
	}
	return try.To1(time.ParseDuration(s))
}
