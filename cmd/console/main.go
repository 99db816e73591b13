// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"flag"
	"log"

	"github.com/relabs-tech/inertial_orientation/internal/app"
	"github.com/relabs-tech/inertial_orientation/internal/config"
)

// console runs the tracker in-process and prints frames; no broker needed.
func main() {
	configPath := flag.String("config", "", "Path to configuration file (defaults to the mock source)")
	source := flag.String("source", "", "Override SOURCE (mock, imu, serial, replay)")
	replay := flag.String("replay", "", "Override REPLAY_FILE")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}
	if *source != "" {
		cfg.Source = *source
	}
	if *replay != "" {
		cfg.ReplayFile = *replay
	}

	if err := app.RunLocalConsole(cfg); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
