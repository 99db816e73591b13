// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/relabs-tech/inertial_orientation/internal/fusion"
)

// FilterToWorld maps filter space (Z up) onto the renderer's frame
// (-Z forward, Y up, X right): -90° about +X. It is applied once, after
// prediction.
var FilterToWorld = fusion.FromAxisAngle(r3.Vec{X: 1}, -math.Pi/2)

// Pose is the orientation as Tait-Bryan angles in degrees, for consoles and
// displays. The quaternion in Frame is the authoritative value.
type Pose struct {
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
}

// PoseFromQuaternion returns the ZYX (yaw, pitch, roll) angles of q in
// degrees. Pitch is clamped at ±90° near gimbal lock.
func PoseFromQuaternion(q quat.Number) Pose {
	w, x, y, z := q.Real, q.Imag, q.Jmag, q.Kmag

	rollRad := math.Atan2(2*(w*x+y*z), 1-2*(x*x+y*y))

	sinp := 2 * (w*y - z*x)
	var pitchRad float64
	if math.Abs(sinp) >= 1 {
		pitchRad = math.Copysign(math.Pi/2, sinp)
	} else {
		pitchRad = math.Asin(sinp)
	}

	yawRad := math.Atan2(2*(w*z+x*y), 1-2*(y*y+z*z))

	return Pose{
		Roll:  rollRad * 180.0 / math.Pi,
		Pitch: pitchRad * 180.0 / math.Pi,
		Yaw:   yawRad * 180.0 / math.Pi,
	}
}

// Quaternion is the JSON form of an orientation.
type Quaternion struct {
	W float64 `json:"w"`
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// QuaternionFrom converts a gonum quaternion.
func QuaternionFrom(q quat.Number) Quaternion {
	return Quaternion{W: q.Real, X: q.Imag, Y: q.Jmag, Z: q.Kmag}
}

// Number converts back to a gonum quaternion.
func (q Quaternion) Number() quat.Number {
	return quat.Number{Real: q.W, Imag: q.X, Jmag: q.Y, Kmag: q.Z}
}

// Frame is one published orientation result.
type Frame struct {
	// TimestampS is the watermark (source clock) the frame was computed at.
	TimestampS        float64    `json:"timestamp_s"`
	Quaternion        Quaternion `json:"quaternion"`
	Pose              Pose       `json:"pose"`
	ScreenOrientation int        `json:"screen_orientation_deg"`
	Stats             Stats      `json:"stats"`
}
