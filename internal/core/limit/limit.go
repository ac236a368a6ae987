// Package limit turns a problem's free-form time limit text into the wall
// clock budget a single case is allowed.
package limit

import (
	"math"
	"regexp"
	"strconv"
	"time"
)

const (
	DefaultSeconds = 2.0
	MinWait        = 1 * time.Second
	MaxWait        = 10 * time.Second
)

var limitPattern = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:초|seconds?\b|secs?\b)`)

// Parse extracts the first "N 초" / "N seconds" value from text. Anything it
// cannot read yields DefaultSeconds.
func Parse(text string) float64 {
	m := limitPattern.FindStringSubmatch(text)
	if m == nil {
		return DefaultSeconds
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return DefaultSeconds
	}
	return v
}

// Clamp converts seconds to a duration bounded to [MinWait, MaxWait].
func Clamp(seconds float64) time.Duration {
	if math.IsNaN(seconds) {
		seconds = DefaultSeconds
	}
	ns := seconds * float64(time.Second)
	switch {
	case ns >= float64(MaxWait):
		return MaxWait
	case ns <= float64(MinWait):
		return MinWait
	}
	return time.Duration(ns)
}

// Wait is Clamp(Parse(text)).
func Wait(text string) time.Duration {
	return Clamp(Parse(text))
}
