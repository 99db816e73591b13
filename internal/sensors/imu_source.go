// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"log"
	"time"

	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/devices/v3/mpu9250"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/inertial_orientation/internal/imu"
	"github.com/relabs-tech/inertial_orientation/internal/orientation"
)

// IMUOptions selects and configures the MPU9250.
type IMUOptions struct {
	SPIDevice string
	CSPin     string
	Scale     imu.Scale
	Interval  time.Duration
}

type mpu9250Reader struct {
	imu *mpu9250.MPU9250
}

// NewIMUSource initializes an MPU9250 over SPI and returns a motion source
// sampling it every opts.Interval. Timestamps come from the host monotonic
// clock.
func NewIMUSource(opts IMUOptions) (orientation.MotionSource, error) {
	if err := opts.Scale.Validate(); err != nil {
		return nil, fmt.Errorf("IMU: %w", err)
	}

	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("IMU: periph host init: %w", err)
	}

	cs := gpioreg.ByName(opts.CSPin)
	if cs == nil {
		return nil, fmt.Errorf("IMU: CS pin %q not found", opts.CSPin)
	}

	tr, err := mpu9250.NewSpiTransport(opts.SPIDevice, cs)
	if err != nil {
		return nil, fmt.Errorf("IMU: SPI transport (%s): %w", opts.SPIDevice, err)
	}

	dev, err := mpu9250.New(tr)
	if err != nil {
		return nil, fmt.Errorf("IMU: device creation: %w", err)
	}

	if err := dev.Init(); err != nil {
		return nil, fmt.Errorf("IMU: initialization: %w", err)
	}

	if err := dev.SetAccelRange(opts.Scale.AccelRange); err != nil {
		return nil, fmt.Errorf("IMU: set accel range: %w", err)
	}
	log.Printf("IMU: accelerometer range set to %d (±%dg)", opts.Scale.AccelRange, []int{2, 4, 8, 16}[opts.Scale.AccelRange])

	if err := dev.SetGyroRange(opts.Scale.GyroRange); err != nil {
		return nil, fmt.Errorf("IMU: set gyro range: %w", err)
	}
	log.Printf("IMU: gyroscope range set to %d (±%d°/s)", opts.Scale.GyroRange, []int{250, 500, 1000, 2000}[opts.Scale.GyroRange])

	if _, err := dev.SelfTest(); err != nil {
		log.Printf("Warning: IMU self-test failed: %v", err)
	} else {
		log.Printf("IMU self-test passed")
	}

	if err := dev.Calibrate(); err != nil {
		log.Printf("Warning: IMU calibration failed: %v", err)
	} else {
		log.Printf("IMU calibration complete")
	}

	return NewRawMotionSource(&mpu9250Reader{imu: dev}, opts.Scale, opts.Interval), nil
}

// ReadRaw reads accelerometer and gyroscope counts.
func (r *mpu9250Reader) ReadRaw() (imu.IMURaw, error) {
	ax, err := r.imu.GetAccelerationX()
	if err != nil {
		return imu.IMURaw{}, fmt.Errorf("IMU accel X: %w", err)
	}
	ay, err := r.imu.GetAccelerationY()
	if err != nil {
		return imu.IMURaw{}, fmt.Errorf("IMU accel Y: %w", err)
	}
	az, err := r.imu.GetAccelerationZ()
	if err != nil {
		return imu.IMURaw{}, fmt.Errorf("IMU accel Z: %w", err)
	}

	gx, err := r.imu.GetRotationX()
	if err != nil {
		return imu.IMURaw{}, fmt.Errorf("IMU gyro X: %w", err)
	}
	gy, err := r.imu.GetRotationY()
	if err != nil {
		return imu.IMURaw{}, fmt.Errorf("IMU gyro Y: %w", err)
	}
	gz, err := r.imu.GetRotationZ()
	if err != nil {
		return imu.IMURaw{}, fmt.Errorf("IMU gyro Z: %w", err)
	}

	return imu.IMURaw{
		Source: "mpu9250",
		Ax:     ax,
		Ay:     ay,
		Az:     az,
		Gx:     gx,
		Gy:     gy,
		Gz:     gz,
	}, nil
}

// rawMotionSource paces an IMURawSource and converts its counts.
type rawMotionSource struct {
	reader   imu.IMURawSource
	scale    imu.Scale
	interval time.Duration

	start time.Time
	now   func() time.Time
	sleep func(time.Duration)
	read  int
}

// NewRawMotionSource wraps reader as a MotionSource. Each Next waits one
// interval (except the first) and stamps the sample with the time elapsed
// since the first read.
func NewRawMotionSource(reader imu.IMURawSource, scale imu.Scale, interval time.Duration) orientation.MotionSource {
	return &rawMotionSource{
		reader:   reader,
		scale:    scale,
		interval: interval,
		now:      time.Now,
		sleep:    time.Sleep,
	}
}

func (s *rawMotionSource) Next() (orientation.MotionSample, error) {
	if s.read > 0 {
		s.sleep(s.interval)
	}
	s.read++

	raw, err := s.reader.ReadRaw()
	if err != nil {
		return orientation.MotionSample{}, err
	}

	t := s.now()
	if s.start.IsZero() {
		s.start = t
	}
	return s.scale.MotionSample(raw, t.Sub(s.start)), nil
}
