// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package fusion

import (
	"time"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// PosePredictor extrapolates an orientation forward by a fixed horizon,
// assuming the latest angular velocity holds for that long.
type PosePredictor struct {
	horizon  float64 // s
	minSpeed float64 // rad/s
}

// NewPosePredictor returns a predictor looking horizon ahead. Below minSpeed
// (rad/s) the device is treated as still and no extrapolation is applied,
// which keeps gyro noise from jittering a resting pose.
func NewPosePredictor(horizon time.Duration, minSpeed float64) *PosePredictor {
	return &PosePredictor{
		horizon:  horizon.Seconds(),
		minSpeed: minSpeed,
	}
}

// Horizon returns the prediction horizon.
func (p *PosePredictor) Horizon() time.Duration {
	return time.Duration(p.horizon * float64(time.Second))
}

// Prediction returns current rotated by the angle the gyro rate covers over
// the horizon. The horizon is measured from the gyro sample at timestampS,
// so the result depends only on its arguments.
func (p *PosePredictor) Prediction(current quat.Number, gyro r3.Vec, timestampS float64) quat.Number {
	speed := r3.Norm(gyro)
	if speed < p.minSpeed || p.horizon <= 0 {
		return current
	}
	deltaQ := FromAxisAngle(gyro, speed*p.horizon)
	return quat.Mul(current, deltaQ)
}
