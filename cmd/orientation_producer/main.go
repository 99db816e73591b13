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

func main() {
	configPath := flag.String("config", "inertial_config.txt", "Path to configuration file (KEY=VALUE or .yaml)")
	flag.Parse()

	log.Println("starting inertial orientation producer (MQTT publisher)")

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunOrientationProducer(cfg); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
