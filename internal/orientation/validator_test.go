// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimestepValidator_FirstSampleRejected(t *testing.T) {
	v := NewTimestepValidator(time.Millisecond, time.Second)

	_, ok := v.Watermark()
	require.False(t, ok)

	delta, ok := v.Validate(5 * time.Second)
	assert.False(t, ok, "first sample has no delta and must be dropped")
	assert.Zero(t, delta)

	wm, ok := v.Watermark()
	require.True(t, ok)
	assert.Equal(t, 5*time.Second, wm)
}

func TestTimestepValidator_Window(t *testing.T) {
	tests := []struct {
		name  string
		delta time.Duration
		want  bool
	}{
		{"negative", -10 * time.Millisecond, false},
		{"duplicate", 0, false},
		{"at min is exclusive", time.Millisecond, false},
		{"just above min", time.Millisecond + time.Nanosecond, true},
		{"typical 60Hz", 16 * time.Millisecond, true},
		{"at max is inclusive", time.Second, true},
		{"just above max", time.Second + time.Nanosecond, false},
		{"stall", 5 * time.Second, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewTimestepValidator(time.Millisecond, time.Second)
			base := 10 * time.Second
			v.Validate(base)

			delta, ok := v.Validate(base + tt.delta)
			assert.Equal(t, tt.want, ok)
			assert.Equal(t, tt.delta, delta)

			wm, _ := v.Watermark()
			assert.Equal(t, base+tt.delta, wm, "watermark follows every sample")
		})
	}
}

func TestTimestepValidator_RejectBurstUsesLatestWatermark(t *testing.T) {
	v := NewTimestepValidator(time.Millisecond, time.Second)
	v.Validate(0)

	// A stall is rejected, but the next sample is judged against the
	// stalled sample rather than the one before it.
	_, ok := v.Validate(3 * time.Second)
	assert.False(t, ok)

	_, ok = v.Validate(3*time.Second + 20*time.Millisecond)
	assert.True(t, ok)
}

func TestTimestepValidator_Reset(t *testing.T) {
	v := NewTimestepValidator(time.Millisecond, time.Second)
	v.Validate(0)
	v.Reset()

	_, ok := v.Watermark()
	assert.False(t, ok)

	_, ok = v.Validate(20 * time.Millisecond)
	assert.False(t, ok, "first sample after reset is dropped")
}
