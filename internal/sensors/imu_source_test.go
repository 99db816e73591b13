// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/inertial_orientation/internal/imu"
)

type fakeRawReader struct {
	samples []imu.IMURaw
	err     error
}

func (f *fakeRawReader) ReadRaw() (imu.IMURaw, error) {
	if f.err != nil {
		return imu.IMURaw{}, f.err
	}
	s := f.samples[0]
	f.samples = f.samples[1:]
	return s, nil
}

func TestRawMotionSource(t *testing.T) {
	reader := &fakeRawReader{samples: []imu.IMURaw{
		{Az: 16384},
		{Az: 16384, Gz: 131},
		{Az: 16384},
	}}
	src := NewRawMotionSource(reader, imu.Scale{}, 10*time.Millisecond).(*rawMotionSource)

	clock := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	var slept []time.Duration
	src.now = func() time.Time { return clock }
	src.sleep = func(d time.Duration) {
		slept = append(slept, d)
		clock = clock.Add(d + time.Millisecond)
	}

	var stamps []time.Duration
	for i := 0; i < 3; i++ {
		s, err := src.Next()
		require.NoError(t, err)
		stamps = append(stamps, s.Timestamp)
		assert.InDelta(t, 9.80665, s.AccelerationIncludingGravity.Z, 1e-9)
	}

	assert.Equal(t, []time.Duration{0, 11 * time.Millisecond, 22 * time.Millisecond}, stamps)
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 10 * time.Millisecond}, slept)
}

func TestRawMotionSource_ReadError(t *testing.T) {
	boom := errors.New("spi timeout")
	src := NewRawMotionSource(&fakeRawReader{err: boom}, imu.Scale{}, time.Millisecond)

	_, err := src.Next()
	assert.ErrorIs(t, err, boom)
}
