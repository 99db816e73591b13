// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/inertial_orientation/internal/config"
	"github.com/relabs-tech/inertial_orientation/internal/orientation"
)

func formatFrame(f orientation.Frame) string {
	q := f.Quaternion
	return fmt.Sprintf(
		"[ORIENT] t=%9.3fs  q=(%+.4f %+.4f %+.4f %+.4f)  ROLL=%7.2f  PITCH=%7.2f  YAW=%7.2f  screen=%4d°  ok=%d drop=%d",
		f.TimestampS, q.W, q.X, q.Y, q.Z,
		f.Pose.Roll, f.Pose.Pitch, f.Pose.Yaw,
		f.ScreenOrientation, f.Stats.Accepted, f.Stats.Rejected,
	)
}

// RunConsoleMQTT prints every orientation frame until interrupted.
func RunConsoleMQTT(cfg *config.Config) error {
	client, err := connectMQTT(cfg.MQTTBroker, clientID(cfg.MQTTClientIDConsole, "console"))
	if err != nil {
		return err
	}

	err = subscribe(client, cfg.TopicOrientation, func(_ mqtt.Client, msg mqtt.Message) {
		var f orientation.Frame
		if err := json.Unmarshal(msg.Payload(), &f); err != nil {
			log.Printf("console: frame unmarshal error: %v", err)
			return
		}
		fmt.Println(formatFrame(f))
	})
	if err != nil {
		return err
	}

	if cfg.TopicScreenOrientation != "" {
		err = subscribe(client, cfg.TopicScreenOrientation, func(_ mqtt.Client, msg mqtt.Message) {
			var ev orientation.ScreenOrientationEvent
			if err := json.Unmarshal(msg.Payload(), &ev); err != nil {
				log.Printf("console: screen orientation unmarshal error: %v", err)
				return
			}
			fmt.Printf("[SCREEN] %d°\n", ev.Degrees)
		})
		if err != nil {
			return err
		}
	}

	// Wait for Ctrl+C
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("console: shutting down")
	client.Disconnect(250)
	return nil
}
