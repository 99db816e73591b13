// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"math"
	"strings"
	"sync"

	nmea "github.com/adrianmo/go-nmea"
	serial "github.com/jacobsa/go-serial/serial"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/relabs-tech/inertial_orientation/internal/orientation"
)

// TypeMOT is the sentence type of a motion record, e.g.
//
//	$IMMOT,<t_ms>,<ax>,<ay>,<az>,<alpha>,<beta>,<gamma>*hh
//
// Acceleration (including gravity) is in m/s², rotation rate in °/s.
const TypeMOT = "MOT"

// MOT is one motion record.
type MOT struct {
	nmea.BaseSentence
	TimestampMS float64
	Ax, Ay, Az  float64
	Alpha       float64
	Beta        float64
	Gamma       float64
}

var registerMOTOnce sync.Once

func registerMOT() {
	registerMOTOnce.Do(func() {
		if err := nmea.RegisterParser(TypeMOT, parseMOT); err != nil {
			log.Printf("serial: registering %s parser: %v", TypeMOT, err)
		}
	})
}

func parseMOT(s nmea.BaseSentence) (nmea.Sentence, error) {
	p := nmea.NewParser(s)
	m := MOT{
		BaseSentence: s,
		TimestampMS:  p.Float64(0, "timestamp"),
		Ax:           p.Float64(1, "accel x"),
		Ay:           p.Float64(2, "accel y"),
		Az:           p.Float64(3, "accel z"),
		Alpha:        p.Float64(4, "rotation rate alpha"),
		Beta:         p.Float64(5, "rotation rate beta"),
		Gamma:        p.Float64(6, "rotation rate gamma"),
	}
	if err := p.Err(); err != nil {
		return m, err
	}
	if !finite(m.TimestampMS, m.Ax, m.Ay, m.Az, m.Alpha, m.Beta, m.Gamma) {
		return m, fmt.Errorf("nmea: %s has a non-finite field", TypeMOT)
	}
	return m, nil
}

// finite reports whether none of vs is NaN or ±Inf.
func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// MotionSample converts the record to the tracker's units.
func (m MOT) MotionSample() orientation.MotionSample {
	const degToRad = math.Pi / 180
	return orientation.MotionSample{
		AccelerationIncludingGravity: r3.Vec{X: m.Ax, Y: m.Ay, Z: m.Az},
		RotationRate: orientation.RotationRate{
			Alpha: m.Alpha * degToRad,
			Beta:  m.Beta * degToRad,
			Gamma: m.Gamma * degToRad,
		},
		Timestamp: orientation.TimestampFromMillis(m.TimestampMS),
	}
}

// NMEASource reads MOT sentences from a byte stream. Other sentence types
// and garbled lines are skipped.
type NMEASource struct {
	reader *bufio.Reader
	closer io.Closer
}

// NewNMEASource reads from r.
func NewNMEASource(r io.Reader) *NMEASource {
	registerMOT()
	s := &NMEASource{reader: bufio.NewReader(r)}
	if c, ok := r.(io.Closer); ok {
		s.closer = c
	}
	return s
}

// OpenSerialSource opens portName (e.g. /dev/ttyUSB0) at baud, 8N1.
func OpenSerialSource(portName string, baud uint) (*NMEASource, error) {
	opts := serial.OpenOptions{
		PortName:              portName,
		BaudRate:              baud,
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}

	port, err := serial.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("serial: open %s: %w", portName, err)
	}
	log.Printf("serial: motion port opened on %s at %d baud", portName, baud)
	return NewNMEASource(port), nil
}

// Next returns the next motion record. Read errors, including io.EOF, are
// returned as is.
func (s *NMEASource) Next() (orientation.MotionSample, error) {
	for {
		line, err := s.reader.ReadString('\n')
		line = strings.TrimSpace(line)
		if line != "" && strings.HasPrefix(line, "$") {
			sentence, perr := nmea.Parse(line)
			if perr == nil {
				if m, ok := sentence.(MOT); ok {
					return m.MotionSample(), nil
				}
			}
			// noisy links produce partial sentences; drop them quietly
		}
		if err != nil {
			return orientation.MotionSample{}, err
		}
	}
}

// Close closes the underlying port, if any.
func (s *NMEASource) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
