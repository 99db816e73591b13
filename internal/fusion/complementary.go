// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package fusion holds the accelerometer/gyroscope complementary filter and
// the short-horizon pose predictor used by the orientation tracker.
package fusion

import (
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Gyro steps outside this window are not integrated. The orchestrator
// already gates samples on a tighter window; these bounds keep the filter
// safe when driven directly.
const (
	minGyroStep = 0.001 // s
	maxGyroStep = 1.0   // s
)

// down is the direction of gravity in filter space.
var down = r3.Vec{Z: -1}

type measurement struct {
	sample    r3.Vec
	timestamp float64 // s
	valid     bool
}

// ComplementaryFilter fuses gyroscope integration (smooth, drifts) with the
// accelerometer's gravity direction (noisy, drift free).
//
// The estimate maps device-frame vectors into filter space. Accelerometer
// input is expected to point along gravity, i.e. the device at rest face up
// reads (0, 0, -g). Gyroscope input is in rad/s.
type ComplementaryFilter struct {
	// kFilter is the trust in the gyro-integrated orientation, in [0,1].
	kFilter float64

	accel, gyro, prevGyro measurement

	filterQ, prevFilterQ quat.Number
	initialized          bool
}

// NewComplementaryFilter returns a filter weighting the gyro estimate by
// kFilter and the accelerometer correction by 1-kFilter.
func NewComplementaryFilter(kFilter float64) *ComplementaryFilter {
	return &ComplementaryFilter{
		kFilter:     kFilter,
		filterQ:     Identity,
		prevFilterQ: Identity,
	}
}

// AddAccelMeasurement records the latest accelerometer sample. It is consumed
// on the next gyro step.
func (f *ComplementaryFilter) AddAccelMeasurement(v r3.Vec, timestampS float64) {
	f.accel = measurement{sample: v, timestamp: timestampS, valid: true}
}

// AddGyroMeasurement records a gyro sample and advances the filter.
func (f *ComplementaryFilter) AddGyroMeasurement(v r3.Vec, timestampS float64) {
	f.gyro = measurement{sample: v, timestamp: timestampS, valid: true}

	switch {
	case !f.initialized:
		f.initFromAccel()
	case f.prevGyro.valid:
		dt := f.gyro.timestamp - f.prevGyro.timestamp
		if dt > minGyroStep && dt <= maxGyroStep {
			f.step(dt)
		}
	}
	f.prevGyro = f.gyro
}

// Orientation returns the current fused estimate.
func (f *ComplementaryFilter) Orientation() quat.Number {
	return f.filterQ
}

// initFromAccel seeds the estimate with the tilt implied by gravity alone.
// Heading is unobservable from the accelerometer and starts at zero.
func (f *ComplementaryFilter) initFromAccel() {
	if !f.accel.valid || r3.Norm(f.accel.sample) == 0 {
		return
	}
	q := FromUnitVectors(r3.Unit(f.accel.sample), down)
	f.filterQ = q
	f.prevFilterQ = q
	f.initialized = true
}

func (f *ComplementaryFilter) step(dt float64) {
	// Gyro propagation.
	rate := f.gyro.sample
	gyroDeltaQ := FromAxisAngle(rate, r3.Norm(rate)*dt)
	f.filterQ = Normalize(quat.Mul(f.prevFilterQ, gyroDeltaQ))

	// Accelerometer correction: rotate the estimate toward the one whose
	// predicted gravity matches the measured gravity.
	if r3.Norm(f.accel.sample) > 0 {
		estimated := r3.Unit(Rotate(quat.Conj(f.filterQ), down))
		measured := r3.Unit(f.accel.sample)
		deltaQ := quat.Conj(FromUnitVectors(estimated, measured))
		target := Normalize(quat.Mul(f.filterQ, deltaQ))
		f.filterQ = Normalize(Slerp(f.filterQ, target, 1-f.kFilter))
	}

	f.prevFilterQ = f.filterQ
}
