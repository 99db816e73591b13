// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package fusion

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestComplementaryFilter_InitFromAccel(t *testing.T) {
	f := NewComplementaryFilter(0.98)
	assert.Equal(t, Identity, f.Orientation())

	gravity := r3.Vec{Y: 4, Z: -9}
	f.AddAccelMeasurement(gravity, 0)
	f.AddGyroMeasurement(r3.Vec{}, 0)

	require.True(t, f.initialized)
	assertVec(t, down, Rotate(f.Orientation(), r3.Unit(gravity)))
}

func TestComplementaryFilter_WaitsForAccel(t *testing.T) {
	f := NewComplementaryFilter(0.98)

	f.AddGyroMeasurement(r3.Vec{Z: 1}, 0)
	f.AddGyroMeasurement(r3.Vec{Z: 1}, 0.01)
	assert.False(t, f.initialized)
	assert.Equal(t, Identity, f.Orientation())

	f.AddAccelMeasurement(r3.Vec{Z: -9.8}, 0.02)
	f.AddGyroMeasurement(r3.Vec{}, 0.02)
	assert.True(t, f.initialized)
}

func TestComplementaryFilter_GyroIntegration(t *testing.T) {
	f := NewComplementaryFilter(1)
	f.AddAccelMeasurement(r3.Vec{Z: -9.8}, 0)
	f.AddGyroMeasurement(r3.Vec{}, 0)

	// 100 steps of 10 ms at 90°/s about Z is a quarter turn.
	for i := 1; i <= 100; i++ {
		ts := float64(i) * 0.01
		f.AddAccelMeasurement(r3.Vec{Z: -9.8}, ts)
		f.AddGyroMeasurement(r3.Vec{Z: math.Pi / 2}, ts)
	}

	assertQuat(t, FromAxisAngle(r3.Vec{Z: 1}, math.Pi/2), f.Orientation())
	assertVec(t, r3.Vec{Y: 1}, Rotate(f.Orientation(), r3.Vec{X: 1}))
}

func TestComplementaryFilter_AccelCorrectionConverges(t *testing.T) {
	f := NewComplementaryFilter(0.5)
	f.AddAccelMeasurement(r3.Vec{Z: -9.8}, 0)
	f.AddGyroMeasurement(r3.Vec{}, 0)

	// The device is now tilted 0.3 rad about X but the gyro missed it.
	tilted := r3.Vec{Y: 9.8 * math.Sin(0.3), Z: -9.8 * math.Cos(0.3)}
	for i := 1; i <= 60; i++ {
		ts := float64(i) * 0.01
		f.AddAccelMeasurement(tilted, ts)
		f.AddGyroMeasurement(r3.Vec{}, ts)
	}

	got := Rotate(f.Orientation(), r3.Unit(tilted))
	assert.InDelta(t, 0, got.X, 1e-6)
	assert.InDelta(t, 0, got.Y, 1e-6)
	assert.InDelta(t, -1, got.Z, 1e-6)
}

func TestComplementaryFilter_IgnoresOutOfRangeSteps(t *testing.T) {
	f := NewComplementaryFilter(1)
	f.AddAccelMeasurement(r3.Vec{Z: -9.8}, 0)
	f.AddGyroMeasurement(r3.Vec{}, 0)

	spin := r3.Vec{Z: 10}

	f.AddGyroMeasurement(spin, 5) // stall
	assert.Equal(t, Identity, f.Orientation())

	f.AddGyroMeasurement(spin, 5.0005) // too close
	assert.Equal(t, Identity, f.Orientation())

	f.AddGyroMeasurement(spin, 5.0105)
	assert.NotEqual(t, Identity, f.Orientation())
	assert.InDelta(t, 0.1, 2*math.Acos(f.Orientation().Real), 1e-6)
}
