// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

type ingestCall struct {
	kind string
	v    r3.Vec
	ts   float64
}

// recordingFilter records ingestion and reports a fixed orientation.
type recordingFilter struct {
	calls []ingestCall
	q     quat.Number
}

func (f *recordingFilter) AddAccelMeasurement(v r3.Vec, ts float64) {
	f.calls = append(f.calls, ingestCall{"accel", v, ts})
}

func (f *recordingFilter) AddGyroMeasurement(v r3.Vec, ts float64) {
	f.calls = append(f.calls, ingestCall{"gyro", v, ts})
}

func (f *recordingFilter) Orientation() quat.Number { return f.q }

func (f *recordingFilter) accels() []ingestCall {
	var out []ingestCall
	for _, c := range f.calls {
		if c.kind == "accel" {
			out = append(out, c)
		}
	}
	return out
}

// identityPredictor returns its input and records the arguments.
type identityPredictor struct {
	gyro r3.Vec
	ts   float64
	n    int
}

func (p *identityPredictor) Prediction(current quat.Number, gyro r3.Vec, ts float64) quat.Number {
	p.gyro, p.ts = gyro, ts
	p.n++
	return current
}

type recordingLogger struct {
	lines []string
}

func (l *recordingLogger) Printf(format string, v ...any) {
	l.lines = append(l.lines, fmt.Sprintf(format, v...))
}

func newTestOrchestrator(t *testing.T) (*Orchestrator, *recordingFilter, *identityPredictor, *recordingLogger) {
	t.Helper()
	f := &recordingFilter{q: quat.Number{Real: 1}}
	p := &identityPredictor{}
	l := &recordingLogger{}
	o, err := New(DefaultParams(), WithFilter(f), WithPredictor(p), WithLogger(l))
	require.NoError(t, err)
	return o, f, p, l
}

func sampleAt(ms float64) MotionSample {
	return MotionSample{
		AccelerationIncludingGravity: r3.Vec{X: 0.1, Y: -0.2, Z: 9.8},
		RotationRate:                 RotationRate{Alpha: 0.01, Beta: 0.02, Gamma: 0.03},
		Timestamp:                    TimestampFromMillis(ms),
	}
}

var approx = cmpopts.EquateApprox(0, 1e-6)

func TestOrchestrator_Scenario(t *testing.T) {
	o, f, _, l := newTestOrchestrator(t)

	o.OnMotionSample(sampleAt(0))    // A: first sample, rejected
	o.OnMotionSample(sampleAt(20))   // B: 20 ms, accepted
	o.OnMotionSample(sampleAt(21))   // C: 1 ms, not > min, rejected
	o.OnMotionSample(sampleAt(2000)) // D: 1.979 s, > max, rejected

	accels := f.accels()
	require.Len(t, accels, 1)
	assert.InDelta(t, 0.020, accels[0].ts, 1e-12)

	assert.Len(t, l.lines, 3)
	assert.Equal(t, Stats{Accepted: 1, Rejected: 3}, o.Stats())

	wm, ok := o.Watermark()
	require.True(t, ok)
	assert.Equal(t, 2*time.Second, wm)
}

func TestOrchestrator_ForwardsInOrderExactlyOnce(t *testing.T) {
	o, f, _, l := newTestOrchestrator(t)

	const n = 50
	for i := 0; i < n; i++ {
		o.OnMotionSample(sampleAt(float64(i) * 16))
	}

	// Only the very first sample is dropped.
	assert.Len(t, l.lines, 1)
	require.Len(t, f.calls, 2*(n-1))
	for i := 1; i < n; i++ {
		accel := f.calls[2*(i-1)]
		gyro := f.calls[2*(i-1)+1]
		want := float64(i) * 0.016
		assert.Equal(t, "accel", accel.kind)
		assert.Equal(t, "gyro", gyro.kind)
		assert.InDelta(t, want, accel.ts, 1e-12)
		assert.InDelta(t, want, gyro.ts, 1e-12)
	}
}

func TestOrchestrator_NegatesAcceleration(t *testing.T) {
	o, f, _, _ := newTestOrchestrator(t)

	raw := []r3.Vec{{X: 1, Y: -2, Z: 3}, {X: -0.5, Y: 0, Z: 9.81}, {X: 0, Y: 4.2, Z: -7}}
	for i, a := range raw {
		s := sampleAt(float64(i) * 10)
		s.AccelerationIncludingGravity = a
		o.OnMotionSample(s)
	}

	accels := f.accels()
	require.Len(t, accels, 2)
	assert.Equal(t, r3.Vec{X: 0.5, Y: 0, Z: -9.81}, accels[0].v)
	assert.Equal(t, r3.Vec{X: 0, Y: -4.2, Z: 7}, accels[1].v)
}

func TestOrchestrator_GyroAxisOrder(t *testing.T) {
	o, f, p, _ := newTestOrchestrator(t)

	o.OnMotionSample(sampleAt(0))
	s := sampleAt(10)
	s.RotationRate = RotationRate{Alpha: 1, Beta: 2, Gamma: 3}
	o.OnMotionSample(s)

	want := r3.Vec{X: 1, Y: 2, Z: 3}
	require.Len(t, f.calls, 2)
	assert.Equal(t, want, f.calls[1].v)

	o.Orientation()
	assert.Equal(t, want, p.gyro)
	assert.InDelta(t, 0.010, p.ts, 1e-12, "predictor gets the watermark in seconds")
}

func TestOrchestrator_RejectedSampleKeepsGyro(t *testing.T) {
	o, _, p, _ := newTestOrchestrator(t)

	o.OnMotionSample(sampleAt(0))
	good := sampleAt(10)
	good.RotationRate = RotationRate{Alpha: 1}
	o.OnMotionSample(good)

	dup := sampleAt(10)
	dup.RotationRate = RotationRate{Gamma: 9}
	o.OnMotionSample(dup)

	o.Orientation()
	assert.Equal(t, r3.Vec{X: 1}, p.gyro)
}

func TestOrchestrator_IdentityComposesToFilterToWorld(t *testing.T) {
	o, _, _, _ := newTestOrchestrator(t)

	got := o.Orientation()
	want := quat.Number{Real: math.Cos(-math.Pi / 4), Imag: math.Sin(-math.Pi / 4)}

	if diff := cmp.Diff(want, got, approx); diff != "" {
		t.Errorf("Orientation() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(FilterToWorld, got, approx); diff != "" {
		t.Errorf("Orientation() != FilterToWorld (-want +got):\n%s", diff)
	}
}

func TestOrchestrator_AppliesFrameAfterPrediction(t *testing.T) {
	yaw := quat.Number{Real: math.Cos(math.Pi / 8), Kmag: math.Sin(math.Pi / 8)}
	f := &recordingFilter{q: yaw}
	o, err := New(DefaultParams(), WithFilter(f), WithPredictor(&identityPredictor{}), WithLogger(&recordingLogger{}))
	require.NoError(t, err)

	want := quat.Mul(FilterToWorld, yaw)
	if diff := cmp.Diff(want, o.Orientation(), approx); diff != "" {
		t.Errorf("Orientation() mismatch (-want +got):\n%s", diff)
	}

	// Composition order matters: the reverse product is a different rotation.
	reversed := quat.Mul(yaw, FilterToWorld)
	assert.False(t, cmp.Equal(reversed, o.Orientation(), approx))
}

func TestOrchestrator_OrientationIsIdempotent(t *testing.T) {
	o, err := New(DefaultParams(), WithLogger(&recordingLogger{}))
	require.NoError(t, err)

	src := NewMockSource(10 * time.Millisecond).(*mockSource)
	src.sleep = func(time.Duration) {}
	for i := 0; i < 200; i++ {
		s, err := src.Next()
		require.NoError(t, err)
		o.OnMotionSample(s)
	}

	first := o.Orientation()
	second := o.Orientation()
	assert.Equal(t, first, second)
	assert.Equal(t, first, o.Snapshot().Quaternion.Number())
}

func TestOrchestrator_ScreenOrientationIsStoredOnly(t *testing.T) {
	o, err := New(DefaultParams(), WithLogger(&recordingLogger{}))
	require.NoError(t, err)

	o.OnMotionSample(sampleAt(0))
	o.OnMotionSample(sampleAt(16))
	before := o.Orientation()

	o.OnScreenOrientationChange(ScreenOrientationEvent{Degrees: 90})

	assert.Equal(t, 90, o.ScreenOrientation())
	assert.Equal(t, before, o.Orientation())
	assert.Equal(t, 90, o.Snapshot().ScreenOrientation)
}

func TestOrchestrator_AtRestOutputsFrameRotation(t *testing.T) {
	o, err := New(DefaultParams(), WithLogger(&recordingLogger{}))
	require.NoError(t, err)

	for i := 0; i < 100; i++ {
		o.OnMotionSample(MotionSample{
			AccelerationIncludingGravity: r3.Vec{Z: standardGravity},
			Timestamp:                    time.Duration(i) * 10 * time.Millisecond,
		})
	}

	if diff := cmp.Diff(FilterToWorld, o.Orientation(), approx); diff != "" {
		t.Errorf("device face up at rest (-want +got):\n%s", diff)
	}
}

func TestOrchestrator_Snapshot(t *testing.T) {
	o, _, _, _ := newTestOrchestrator(t)
	o.OnMotionSample(sampleAt(1000))
	o.OnMotionSample(sampleAt(1016))

	f := o.Snapshot()
	assert.InDelta(t, 1.016, f.TimestampS, 1e-12)
	assert.Equal(t, Stats{Accepted: 1, Rejected: 1}, f.Stats)
	assert.InDelta(t, -90, f.Pose.Roll, 1e-9)
}

func TestNew_InvalidParams(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Params)
	}{
		{"negative min", func(p *Params) { p.MinTimestep = -1 }},
		{"max not above min", func(p *Params) { p.MaxTimestep = p.MinTimestep }},
		{"weight above one", func(p *Params) { p.FilterWeight = 1.5 }},
		{"weight below zero", func(p *Params) { p.FilterWeight = -0.1 }},
		{"weight NaN", func(p *Params) { p.FilterWeight = math.NaN() }},
		{"negative horizon", func(p *Params) { p.PredictionHorizon = -time.Millisecond }},
		{"negative min speed", func(p *Params) { p.PredictionMinSpeed = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams()
			tt.mutate(&p)
			_, err := New(p)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidParams))
		})
	}
}

func TestNew_IndependentInstances(t *testing.T) {
	a, _, _, _ := newTestOrchestrator(t)
	b, _, _, _ := newTestOrchestrator(t)

	a.OnMotionSample(sampleAt(0))
	a.OnMotionSample(sampleAt(16))

	_, ok := b.Watermark()
	assert.False(t, ok)
	assert.Equal(t, Stats{}, b.Stats())
}
