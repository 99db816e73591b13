// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"errors"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/relabs-tech/inertial_orientation/internal/fusion"
)

// ErrInvalidParams is returned by New when Params are out of range.
var ErrInvalidParams = errors.New("invalid orientation params")

// FusionFilter turns accelerometer and gyroscope samples into an orientation
// estimate. Timestamps are in seconds.
type FusionFilter interface {
	AddAccelMeasurement(v r3.Vec, timestampS float64)
	AddGyroMeasurement(v r3.Vec, timestampS float64)
	Orientation() quat.Number
}

// PosePredictor extrapolates an estimate slightly into the future.
type PosePredictor interface {
	Prediction(current quat.Number, gyro r3.Vec, timestampS float64) quat.Number
}

// Logger receives diagnostics for dropped samples. *log.Logger satisfies it.
type Logger interface {
	Printf(format string, v ...any)
}

// Params configures one Orchestrator.
type Params struct {
	// Samples are forwarded only when MinTimestep < delta <= MaxTimestep.
	MinTimestep time.Duration
	MaxTimestep time.Duration

	// FilterWeight is the complementary filter's trust in the gyro, in [0,1].
	FilterWeight float64

	// PredictionHorizon is how far ahead Orientation looks.
	PredictionHorizon time.Duration

	// PredictionMinSpeed (rad/s) below which no prediction is applied.
	PredictionMinSpeed float64
}

// DefaultParams tunes for ~60 Hz motion events and a 50 ms render latency.
func DefaultParams() Params {
	return Params{
		MinTimestep:        time.Millisecond,
		MaxTimestep:        time.Second,
		FilterWeight:       0.98,
		PredictionHorizon:  50 * time.Millisecond,
		PredictionMinSpeed: 20 * math.Pi / 180,
	}
}

// Validate checks that p describes a usable configuration.
func (p Params) Validate() error {
	if p.MinTimestep < 0 {
		return fmt.Errorf("%w: min timestep %v is negative", ErrInvalidParams, p.MinTimestep)
	}
	if p.MaxTimestep <= p.MinTimestep {
		return fmt.Errorf("%w: max timestep %v must exceed min timestep %v", ErrInvalidParams, p.MaxTimestep, p.MinTimestep)
	}
	if p.FilterWeight < 0 || p.FilterWeight > 1 || math.IsNaN(p.FilterWeight) {
		return fmt.Errorf("%w: filter weight %v not in [0,1]", ErrInvalidParams, p.FilterWeight)
	}
	if p.PredictionHorizon < 0 {
		return fmt.Errorf("%w: prediction horizon %v is negative", ErrInvalidParams, p.PredictionHorizon)
	}
	if p.PredictionMinSpeed < 0 {
		return fmt.Errorf("%w: prediction min speed %v is negative", ErrInvalidParams, p.PredictionMinSpeed)
	}
	return nil
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithFilter replaces the default complementary filter.
func WithFilter(f FusionFilter) Option {
	return func(o *Orchestrator) { o.filter = f }
}

// WithPredictor replaces the default pose predictor.
func WithPredictor(p PosePredictor) Option {
	return func(o *Orchestrator) { o.predictor = p }
}

// WithLogger sets the diagnostics sink. Defaults to log.Default().
func WithLogger(l Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// Stats counts samples seen by an Orchestrator.
type Stats struct {
	Accepted uint64 `json:"accepted"`
	Rejected uint64 `json:"rejected"`
}

// Orchestrator validates motion samples, feeds the fusion filter, and
// answers orientation queries with a predicted pose in the output frame
// (-Z forward, Y up, X right).
//
// Ingestion and queries may come from different goroutines; a single mutex
// keeps a query from seeing a gyro vector that does not match the filter
// state it is combined with.
type Orchestrator struct {
	mu sync.Mutex

	filter    FusionFilter
	predictor PosePredictor
	validator *TimestepValidator
	logger    Logger

	gyro              r3.Vec
	screenOrientation int
	stats             Stats
}

// New returns an Orchestrator for p. Unless overridden by options it owns a
// fusion.ComplementaryFilter and a fusion.PosePredictor built from p.
func New(p Params, opts ...Option) (*Orchestrator, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	o := &Orchestrator{
		validator: NewTimestepValidator(p.MinTimestep, p.MaxTimestep),
		logger:    log.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.filter == nil {
		o.filter = fusion.NewComplementaryFilter(p.FilterWeight)
	}
	if o.predictor == nil {
		o.predictor = fusion.NewPosePredictor(p.PredictionHorizon, p.PredictionMinSpeed)
	}
	return o, nil
}

// OnMotionSample ingests one motion event. Samples with an implausible time
// step are logged and dropped; the watermark still advances.
func (o *Orchestrator) OnMotionSample(s MotionSample) {
	o.mu.Lock()
	defer o.mu.Unlock()

	delta, ok := o.validator.Validate(s.Timestamp)
	if !ok {
		o.stats.Rejected++
		o.logger.Printf("orientation: dropping sample at %v (step %v): time step between successive motion samples is very small or not monotonic",
			s.Timestamp, delta)
		return
	}
	o.stats.Accepted++

	// The platform reports the reaction to gravity; the filter wants gravity.
	accel := r3.Scale(-1, s.AccelerationIncludingGravity)
	o.gyro = s.RotationRate.Vec()

	ts := s.Timestamp.Seconds()
	o.filter.AddAccelMeasurement(accel, ts)
	o.filter.AddGyroMeasurement(o.gyro, ts)
}

// OnScreenOrientationChange records the new screen rotation.
//
// TODO: apply a world-to-screen rotation in Orientation once the expected
// convention for landscape renderers is settled; until then the value is
// only reported in Snapshot.
func (o *Orchestrator) OnScreenOrientationChange(ev ScreenOrientationEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.screenOrientation = ev.Degrees
}

// Orientation returns the fused, predicted orientation in the output frame.
// Without new samples repeated calls return identical values.
func (o *Orchestrator) Orientation() quat.Number {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.orientationLocked()
}

func (o *Orchestrator) orientationLocked() quat.Number {
	estimate := o.filter.Orientation()
	watermark, _ := o.validator.Watermark()
	predicted := o.predictor.Prediction(estimate, o.gyro, watermark.Seconds())
	return quat.Mul(FilterToWorld, predicted)
}

// ScreenOrientation returns the last recorded screen rotation in degrees.
func (o *Orchestrator) ScreenOrientation() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.screenOrientation
}

// Watermark returns the timestamp of the most recently observed sample.
func (o *Orchestrator) Watermark() (time.Duration, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.validator.Watermark()
}

// Stats returns the accepted/rejected sample counters.
func (o *Orchestrator) Stats() Stats {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stats
}

// Snapshot reads everything a publisher needs under one lock.
func (o *Orchestrator) Snapshot() Frame {
	o.mu.Lock()
	defer o.mu.Unlock()

	q := o.orientationLocked()
	watermark, _ := o.validator.Watermark()
	return Frame{
		TimestampS:        watermark.Seconds(),
		Quaternion:        QuaternionFrom(q),
		Pose:              PoseFromQuaternion(q),
		ScreenOrientation: o.screenOrientation,
		Stats:             o.stats,
	}
}
