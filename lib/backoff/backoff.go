// Package backoff computes retry wait times for the cohost client,
// including Retry-After header interpretation.
package backoff

import (
	"fmt"
	"math"
	"regexp"
	"time"
)

// Schedule computes exponential retry waits: Base^failures seconds
// plus Minimum.
type Schedule struct {
	Base    float64
	Minimum time.Duration
}

var Default = Schedule{Base: 2, Minimum: 0}

func (s Schedule) Wait(failures int) time.Duration {
	secs := math.Pow(s.Base, float64(failures))
	return time.Duration(secs*float64(time.Second)) + s.Minimum
}

var allDigits = regexp.MustCompile(`^\d+$`)

// ParseRetryAfter interprets a Retry-After header value, which is
// either a number of seconds or an HTTP date, and returns the instant
// to resume at. A date already in the past falls back to Wait(failures)
// from now. An unrecognized value is an error; the caller is expected
// to fall back to Wait on its own.
func (s Schedule) ParseRetryAfter(value string, failures int, now time.Time) (time.Time, error) {
	if allDigits.MatchString(value) {
		secs, err := time.ParseDuration(value + "s")
		if err != nil {
			return time.Time{}, err
		}
		return now.Add(secs), nil
	}

	at, err := time.Parse(time.RFC1123, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("unparseable retry-after %q: %w", value, err)
	}
	if at.Before(now) {
		return now.Add(s.Wait(failures)), nil
	}
	// a second of slack in case the server rounds up
	return at.Add(time.Second), nil
}
