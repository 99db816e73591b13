// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/relabs-tech/inertial_orientation/internal/orientation"
)

// ReplayHeader is the column layout of a recorded motion file. Rotation rate
// is in rad/s, acceleration in m/s².
var ReplayHeader = []string{"timestamp_ms", "ax", "ay", "az", "alpha", "beta", "gamma"}

// ReplaySource plays back a CSV recording. With pacing enabled it sleeps
// for the recorded gap between rows so consumers see the original cadence.
type ReplaySource struct {
	r      *csv.Reader
	closer io.Closer
	pace   bool
	sleep  func(time.Duration)

	row  int
	last time.Duration
	seen bool
}

// NewReplaySource reads rows from r. A header row matching ReplayHeader is
// skipped.
func NewReplaySource(r io.Reader, pace bool) *ReplaySource {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(ReplayHeader)
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	s := &ReplaySource{r: cr, pace: pace, sleep: time.Sleep}
	if c, ok := r.(io.Closer); ok {
		s.closer = c
	}
	return s
}

// OpenReplaySource opens a recording file.
func OpenReplaySource(path string, pace bool) (*ReplaySource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("replay: open %s: %w", path, err)
	}
	return NewReplaySource(f, pace), nil
}

// Next returns the next recorded sample, or io.EOF at the end.
func (s *ReplaySource) Next() (orientation.MotionSample, error) {
	for {
		rec, err := s.r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return orientation.MotionSample{}, io.EOF
			}
			return orientation.MotionSample{}, fmt.Errorf("replay: %w", err)
		}
		s.row++

		if s.row == 1 && strings.EqualFold(rec[0], ReplayHeader[0]) {
			continue
		}

		sample, err := parseReplayRecord(rec)
		if err != nil {
			return orientation.MotionSample{}, fmt.Errorf("replay: row %d: %w", s.row, err)
		}

		if s.pace && s.seen && sample.Timestamp > s.last {
			s.sleep(sample.Timestamp - s.last)
		}
		s.last = sample.Timestamp
		s.seen = true
		return sample, nil
	}
}

// Close closes the underlying file, if any.
func (s *ReplaySource) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

func parseReplayRecord(rec []string) (orientation.MotionSample, error) {
	var v [7]float64
	for i := range v {
		f, err := strconv.ParseFloat(rec[i], 64)
		if err != nil {
			return orientation.MotionSample{}, fmt.Errorf("column %s: %w", ReplayHeader[i], err)
		}
		if !finite(f) {
			return orientation.MotionSample{}, fmt.Errorf("column %s: non-finite value %q", ReplayHeader[i], rec[i])
		}
		v[i] = f
	}
	return orientation.MotionSample{
		AccelerationIncludingGravity: r3.Vec{X: v[1], Y: v[2], Z: v[3]},
		RotationRate:                 orientation.RotationRate{Alpha: v[4], Beta: v[5], Gamma: v[6]},
		Timestamp:                    orientation.TimestampFromMillis(v[0]),
	}, nil
}
