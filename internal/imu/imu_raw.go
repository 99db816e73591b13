// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/relabs-tech/inertial_orientation/internal/orientation"
)

const standardGravity = 9.80665 // m/s²

// IMURaw represents a single raw accel+gyro sample in sensor counts.
type IMURaw struct {
	Source string `json:"source"`

	Ax int16 `json:"ax"` // accel
	Ay int16 `json:"ay"`
	Az int16 `json:"az"`

	Gx int16 `json:"gx"` // gyro
	Gy int16 `json:"gy"`
	Gz int16 `json:"gz"`
}

// Scale converts MPU-9250 class counts to SI units for the configured
// full-scale ranges.
type Scale struct {
	// AccelRange: 0=±2g, 1=±4g, 2=±8g, 3=±16g
	AccelRange byte
	// GyroRange: 0=±250°/s, 1=±500°/s, 2=±1000°/s, 3=±2000°/s
	GyroRange byte
}

// Validate checks both range codes.
func (s Scale) Validate() error {
	if s.AccelRange > 3 {
		return fmt.Errorf("accel range must be 0-3, got %d", s.AccelRange)
	}
	if s.GyroRange > 3 {
		return fmt.Errorf("gyro range must be 0-3, got %d", s.GyroRange)
	}
	return nil
}

// AccelLSBPerG is the accelerometer sensitivity, e.g. 16384 at ±2g.
func (s Scale) AccelLSBPerG() float64 {
	return 16384.0 / float64(int(1)<<s.AccelRange)
}

// GyroLSBPerDPS is the gyroscope sensitivity, e.g. 131 at ±250°/s.
func (s Scale) GyroLSBPerDPS() float64 {
	return 131.0 / float64(int(1)<<s.GyroRange)
}

// MotionSample converts r to m/s² and rad/s, stamped with ts.
// The accelerometer reports the reaction to gravity (+Z face up), matching
// the platform convention the orchestrator expects.
func (s Scale) MotionSample(r IMURaw, ts time.Duration) orientation.MotionSample {
	a := standardGravity / s.AccelLSBPerG()
	g := (math.Pi / 180) / s.GyroLSBPerDPS()
	return orientation.MotionSample{
		AccelerationIncludingGravity: r3.Vec{
			X: float64(r.Ax) * a,
			Y: float64(r.Ay) * a,
			Z: float64(r.Az) * a,
		},
		RotationRate: orientation.RotationRate{
			Alpha: float64(r.Gx) * g,
			Beta:  float64(r.Gy) * g,
			Gamma: float64(r.Gz) * g,
		},
		Timestamp: ts,
	}
}

// IMURawSource yields raw samples.
type IMURawSource interface {
	ReadRaw() (IMURaw, error)
}
