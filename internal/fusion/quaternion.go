// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package fusion

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Identity is the zero rotation.
var Identity = quat.Number{Real: 1}

// FromAxisAngle returns the rotation of angle radians about axis.
// axis is normalized here; a zero axis yields Identity.
func FromAxisAngle(axis r3.Vec, angle float64) quat.Number {
	n := r3.Norm(axis)
	if n == 0 {
		return Identity
	}
	s := math.Sin(angle/2) / n
	return quat.Number{
		Real: math.Cos(angle / 2),
		Imag: axis.X * s,
		Jmag: axis.Y * s,
		Kmag: axis.Z * s,
	}
}

// Normalize scales q to unit length. A zero quaternion yields Identity.
func Normalize(q quat.Number) quat.Number {
	n := quat.Abs(q)
	if n == 0 {
		return Identity
	}
	return quat.Scale(1/n, q)
}

// Rotate applies the unit rotation q to v (q v q*).
func Rotate(q quat.Number, v r3.Vec) r3.Vec {
	p := quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}
	r := quat.Mul(quat.Mul(q, p), quat.Conj(q))
	return r3.Vec{X: r.Imag, Y: r.Jmag, Z: r.Kmag}
}

// FromUnitVectors returns the shortest rotation taking unit vector from onto
// unit vector to.
func FromUnitVectors(from, to r3.Vec) quat.Number {
	const eps = 1e-6

	r := r3.Dot(from, to) + 1
	var v r3.Vec
	if r < eps {
		// Opposite vectors: rotate half a turn about any orthogonal axis.
		r = 0
		if math.Abs(from.X) > math.Abs(from.Z) {
			v = r3.Vec{X: -from.Y, Y: from.X}
		} else {
			v = r3.Vec{Y: -from.Z, Z: from.Y}
		}
	} else {
		v = r3.Cross(from, to)
	}
	return Normalize(quat.Number{Real: r, Imag: v.X, Jmag: v.Y, Kmag: v.Z})
}

// Slerp interpolates along the shortest arc from a (t=0) to b (t=1).
func Slerp(a, b quat.Number, t float64) quat.Number {
	switch {
	case t <= 0:
		return a
	case t >= 1:
		return b
	}

	cosHalf := a.Real*b.Real + a.Imag*b.Imag + a.Jmag*b.Jmag + a.Kmag*b.Kmag
	if cosHalf < 0 {
		b = quat.Scale(-1, b)
		cosHalf = -cosHalf
	}
	if cosHalf >= 1 {
		return a
	}

	sqrSinHalf := 1 - cosHalf*cosHalf
	if sqrSinHalf <= math.SmallestNonzeroFloat64 {
		// Nearly parallel: linear blend is accurate enough.
		return Normalize(quat.Add(quat.Scale(1-t, a), quat.Scale(t, b)))
	}

	sinHalf := math.Sqrt(sqrSinHalf)
	halfTheta := math.Atan2(sinHalf, cosHalf)
	ra := math.Sin((1-t)*halfTheta) / sinHalf
	rb := math.Sin(t*halfTheta) / sinHalf
	return quat.Add(quat.Scale(ra, a), quat.Scale(rb, b))
}
