// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import "time"

// TimestepValidator gates motion samples on the time elapsed since the
// previously observed sample (the watermark).
//
// A sample is accepted only when min < delta <= max. The very first sample
// has no delta and is always rejected. Every call, accepted or not, moves the
// watermark to the sample's timestamp so a burst of bad samples is never
// compared against an increasingly stale reference.
type TimestepValidator struct {
	min, max time.Duration

	watermark    time.Duration
	hasWatermark bool
}

// NewTimestepValidator returns a validator for the (min, max] delta window.
func NewTimestepValidator(min, max time.Duration) *TimestepValidator {
	return &TimestepValidator{min: min, max: max}
}

// Validate reports whether a sample at ts should be forwarded, along with
// the delta it was judged on. delta is zero when there was no watermark.
func (v *TimestepValidator) Validate(ts time.Duration) (delta time.Duration, ok bool) {
	defer func() {
		v.watermark = ts
		v.hasWatermark = true
	}()

	if !v.hasWatermark {
		return 0, false
	}
	delta = ts - v.watermark
	if delta <= v.min || delta > v.max {
		return delta, false
	}
	return delta, true
}

// Watermark returns the last observed timestamp, if any.
func (v *TimestepValidator) Watermark() (time.Duration, bool) {
	return v.watermark, v.hasWatermark
}

// Reset forgets the watermark; the next sample is treated as the first.
func (v *TimestepValidator) Reset() {
	v.watermark = 0
	v.hasWatermark = false
}
