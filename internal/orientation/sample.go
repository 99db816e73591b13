// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"math"
	"time"

	"gonum.org/v1/gonum/spatial/r3"
)

// RotationRate is the angular velocity reported by a motion event, in rad/s.
// Alpha, Beta and Gamma map to the x, y and z axes of the filter.
type RotationRate struct {
	Alpha float64 `json:"alpha"`
	Beta  float64 `json:"beta"`
	Gamma float64 `json:"gamma"`
}

// Vec returns the rate as (alpha, beta, gamma) -> (x, y, z).
func (r RotationRate) Vec() r3.Vec {
	return r3.Vec{X: r.Alpha, Y: r.Beta, Z: r.Gamma}
}

// MotionSample is one platform motion event in the device frame.
type MotionSample struct {
	// AccelerationIncludingGravity in m/s², as the platform reports it.
	AccelerationIncludingGravity r3.Vec       `json:"acceleration_including_gravity"`
	RotationRate                 RotationRate `json:"rotation_rate"`

	// Timestamp on the source clock. Only differences between samples matter.
	Timestamp time.Duration `json:"timestamp"`
}

// TimestampFromMillis converts a platform timestamp in (possibly fractional)
// milliseconds to a Duration, rounded to the nearest nanosecond.
func TimestampFromMillis(ms float64) time.Duration {
	return time.Duration(math.Round(ms * float64(time.Millisecond)))
}

// ScreenOrientationEvent carries the new screen rotation in degrees
// (0, 90, -90 or 180 on most platforms).
type ScreenOrientationEvent struct {
	Degrees int `json:"degrees"`
}

// MotionSource is anything that can deliver motion samples over time:
// mock source, IMU over SPI, serial stream, CSV replay.
// A finite source returns io.EOF when exhausted.
type MotionSource interface {
	Next() (MotionSample, error)
}
