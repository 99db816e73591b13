// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/inertial_orientation/internal/config"
	"github.com/relabs-tech/inertial_orientation/internal/imu"
	"github.com/relabs-tech/inertial_orientation/internal/orientation"
	"github.com/relabs-tech/inertial_orientation/internal/sensors"
)

// maxSourceErrors consecutive read failures stop the source reader.
const maxSourceErrors = 10

// ParamsFromConfig builds orchestrator parameters from the config file values.
func ParamsFromConfig(cfg *config.Config) orientation.Params {
	return orientation.Params{
		MinTimestep:        time.Duration(cfg.MinTimestepMS) * time.Millisecond,
		MaxTimestep:        time.Duration(cfg.MaxTimestepMS) * time.Millisecond,
		FilterWeight:       cfg.FilterWeight,
		PredictionHorizon:  time.Duration(cfg.PredictionHorizonMS) * time.Millisecond,
		PredictionMinSpeed: cfg.PredictionMinSpeedDPS * math.Pi / 180,
	}
}

// openSource builds the motion source selected by cfg.Source.
func openSource(cfg *config.Config) (orientation.MotionSource, io.Closer, error) {
	interval := time.Duration(cfg.SampleInterval) * time.Millisecond

	switch cfg.Source {
	case config.SourceMock:
		log.Println("using mock motion source")
		return orientation.NewMockSource(interval), nil, nil
	case config.SourceIMU:
		log.Println("using MPU9250 motion source")
		src, err := sensors.NewIMUSource(sensors.IMUOptions{
			SPIDevice: cfg.IMUSPIDevice,
			CSPin:     cfg.IMUCSPin,
			Scale:     imu.Scale{AccelRange: cfg.IMUAccelRange, GyroRange: cfg.IMUGyroRange},
			Interval:  interval,
		})
		return src, nil, err
	case config.SourceSerial:
		log.Println("using serial motion source")
		src, err := sensors.OpenSerialSource(cfg.SerialPort, uint(cfg.SerialBaudRate))
		if err != nil {
			return nil, nil, err
		}
		return src, src, nil
	case config.SourceReplay:
		log.Printf("replaying motion from %s", cfg.ReplayFile)
		src, err := sensors.OpenReplaySource(cfg.ReplayFile, true)
		if err != nil {
			return nil, nil, err
		}
		return src, src, nil
	default:
		return nil, nil, fmt.Errorf("unknown motion source %q", cfg.Source)
	}
}

// RunOrientationProducer reads motion samples, tracks orientation, and
// publishes a predicted Frame to MQTT every render interval. Screen
// orientation events arriving on MQTT are handed to the orchestrator.
func RunOrientationProducer(cfg *config.Config) error {
	log.Println("starting inertial orientation producer")

	orch, err := orientation.New(ParamsFromConfig(cfg))
	if err != nil {
		return fmt.Errorf("orientation tracker: %w", err)
	}

	src, closer, err := openSource(cfg)
	if err != nil {
		return fmt.Errorf("motion source: %w", err)
	}
	if closer != nil {
		defer closer.Close()
	}

	client, err := connectMQTT(cfg.MQTTBroker, clientID(cfg.MQTTClientIDProducer, "producer"))
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	if cfg.TopicScreenOrientation != "" {
		err := subscribe(client, cfg.TopicScreenOrientation, func(_ mqtt.Client, msg mqtt.Message) {
			var ev orientation.ScreenOrientationEvent
			if err := json.Unmarshal(msg.Payload(), &ev); err != nil {
				log.Printf("screen orientation unmarshal error: %v", err)
				return
			}
			orch.OnScreenOrientationChange(ev)
			log.Printf("screen orientation now %d°", ev.Degrees)
		})
		if err != nil {
			return err
		}
	}

	stop := make(chan struct{})
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("producer: shutting down")
		close(stop)
	}()

	samples := make(chan orientation.MotionSample, 64)
	go readSource(src, samples, stop)

	t := &tracker{
		orch:   orch,
		pub:    mqttPublisher{client: client, retain: true},
		topic:  cfg.TopicOrientation,
		render: time.Duration(cfg.RenderInterval) * time.Millisecond,
	}
	return t.run(stop, samples)
}

// readSource pumps src into out until the source ends, fails repeatedly,
// or stop is closed. out is closed on return.
func readSource(src orientation.MotionSource, out chan<- orientation.MotionSample, stop <-chan struct{}) {
	defer close(out)

	failures := 0
	for {
		s, err := src.Next()
		if errors.Is(err, io.EOF) {
			log.Println("motion source exhausted")
			return
		}
		if err != nil {
			failures++
			log.Printf("motion source read error (%d/%d): %v", failures, maxSourceErrors, err)
			if failures >= maxSourceErrors {
				return
			}
			continue
		}
		failures = 0

		select {
		case out <- s:
		case <-stop:
			return
		}
	}
}

// tracker owns the ingest/publish loop. All orchestrator ingestion happens
// on the goroutine running run.
type tracker struct {
	orch   *orientation.Orchestrator
	pub    publisher
	topic  string
	render time.Duration
}

// run ingests samples and publishes a frame every render tick. It returns
// when stop is closed, or after a final publish once samples is closed.
func (t *tracker) run(stop <-chan struct{}, samples <-chan orientation.MotionSample) error {
	ticker := time.NewTicker(t.render)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return nil
		case s, ok := <-samples:
			if !ok {
				t.publish()
				st := t.orch.Stats()
				log.Printf("producer: source ended after %d accepted / %d rejected samples", st.Accepted, st.Rejected)
				return nil
			}
			t.orch.OnMotionSample(s)
		case <-ticker.C:
			t.publish()
		}
	}
}

func (t *tracker) publish() {
	frame := t.orch.Snapshot()
	payload, err := json.Marshal(frame)
	if err != nil {
		log.Printf("json marshal error (frame): %v", err)
		return
	}
	if err := t.pub.Publish(t.topic, payload); err != nil {
		log.Printf("MQTT publish error (%s): %v", t.topic, err)
	}
}
