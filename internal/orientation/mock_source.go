// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"math"
	"time"

	"gonum.org/v1/gonum/spatial/r3"
)

const standardGravity = 9.80665 // m/s²

type mockSource struct {
	interval time.Duration
	n        int64
	sleep    func(time.Duration)
}

// NewMockSource creates a mock motion source that emits one sample every
// interval: the device lies face up, rocks gently about X and turns slowly
// about Z.
func NewMockSource(interval time.Duration) MotionSource {
	return &mockSource{interval: interval, sleep: time.Sleep}
}

func (m *mockSource) Next() (MotionSample, error) {
	if m.n > 0 {
		m.sleep(m.interval)
	}
	ts := time.Duration(m.n) * m.interval
	m.n++

	elapsed := ts.Seconds()

	// roll(t) = 0.3 sin(t), so roll rate = 0.3 cos(t).
	roll := 0.3 * math.Sin(elapsed)
	rollRate := 0.3 * math.Cos(elapsed)
	yawRate := 0.5 * math.Sin(elapsed*0.7)

	return MotionSample{
		AccelerationIncludingGravity: r3.Vec{
			Y: standardGravity * math.Sin(roll),
			Z: standardGravity * math.Cos(roll),
		},
		RotationRate: RotationRate{Alpha: rollRate, Gamma: yawRate},
		Timestamp:    ts,
	}, nil
}
