// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/relabs-tech/inertial_orientation/internal/config"
	"github.com/relabs-tech/inertial_orientation/internal/orientation"
)

// consolePublisher prints frames instead of sending them to a broker.
type consolePublisher struct {
	w io.Writer
}

func (p consolePublisher) Publish(_ string, payload []byte) error {
	var f orientation.Frame
	if err := json.Unmarshal(payload, &f); err != nil {
		return err
	}
	_, err := fmt.Fprintln(p.w, formatFrame(f))
	return err
}

// RunLocalConsole tracks orientation from the configured source and prints
// frames to stdout, without MQTT.
func RunLocalConsole(cfg *config.Config) error {
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

	stop := make(chan struct{})
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		close(stop)
	}()

	samples := make(chan orientation.MotionSample, 64)
	go readSource(src, samples, stop)

	t := &tracker{
		orch:   orch,
		pub:    consolePublisher{w: os.Stdout},
		render: time.Duration(cfg.RenderInterval) * time.Millisecond,
	}
	return t.run(stop, samples)
}
