// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"image"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/inertial_orientation/internal/config"
	"github.com/relabs-tech/inertial_orientation/internal/orientation"
)

// DisplayData is the most recent frame received from MQTT.
type DisplayData struct {
	mu sync.RWMutex

	frame     orientation.Frame
	haveFrame bool
}

func (d *DisplayData) set(f orientation.Frame) {
	d.mu.Lock()
	d.frame = f
	d.haveFrame = true
	d.mu.Unlock()
}

func (d *DisplayData) get() (orientation.Frame, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.frame, d.haveFrame
}

// RunDisplay shows the tracked orientation on an SSD1306 OLED.
func RunDisplay(cfg *config.Config) error {
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("display: periph host init: %w", err)
	}

	bus, err := i2creg.Open("")
	if err != nil {
		return fmt.Errorf("display: open I2C bus: %w", err)
	}
	defer bus.Close()

	// The upstream driver always talks to address 0x3C.
	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		return fmt.Errorf("display: SSD1306 init: %w", err)
	}
	log.Printf("display: initialized %s", dev)

	if err := dev.Draw(dev.Bounds(), renderSplash(), image.Point{}); err != nil {
		log.Printf("display: error showing splash: %v", err)
	}

	data := &DisplayData{}

	client, err := connectMQTT(cfg.MQTTBroker, clientID(cfg.MQTTClientIDDisplay, "display"))
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	err = subscribe(client, cfg.TopicOrientation, func(_ mqtt.Client, msg mqtt.Message) {
		var f orientation.Frame
		if err := json.Unmarshal(msg.Payload(), &f); err != nil {
			log.Printf("display: frame unmarshal error: %v", err)
			return
		}
		data.set(f)
	})
	if err != nil {
		return err
	}

	stop := make(chan struct{})
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("display: shutting down")
		close(stop)
	}()

	data.run(dev, time.Duration(cfg.DisplayUpdateInterval)*time.Millisecond, stop)
	return nil
}

// screen is the part of ssd1306.Dev the update loop draws on.
type screen interface {
	Bounds() image.Rectangle
	Draw(r image.Rectangle, src image.Image, sp image.Point) error
}

// run redraws the latest frame every interval until stop is closed.
func (d *DisplayData) run(dev screen, interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Println("display: starting update loop")

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			f, ok := d.get()
			if err := dev.Draw(dev.Bounds(), renderOrientation(f, ok), image.Point{}); err != nil {
				log.Printf("display: error updating display: %v", err)
			}
		}
	}
}

const (
	oledWidth  = 128
	oledHeight = 64
	lineHeight = 13 // basicfont.Face7x13
)

func newCanvas() (*image1bit.VerticalLSB, *font.Drawer) {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, oledWidth, oledHeight))
	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	return img, drawer
}

// drawLines writes one string per text row, starting at row first (1-based).
func drawLines(d *font.Drawer, x, first int, lines ...string) {
	for i, line := range lines {
		d.Dot = fixed.P(x, (first+i)*lineHeight)
		d.DrawString(line)
	}
}

func renderOrientation(f orientation.Frame, haveData bool) *image1bit.VerticalLSB {
	img, drawer := newCanvas()

	if !haveData {
		drawLines(drawer, 0, 2, "Orientation", "Waiting...")
		return img
	}

	drawLines(drawer, 0, 1,
		fmt.Sprintf("R: %6.1f", f.Pose.Roll),
		fmt.Sprintf("P: %6.1f", f.Pose.Pitch),
		fmt.Sprintf("Y: %6.1f", f.Pose.Yaw),
		fmt.Sprintf("S:%4d D:%d", f.ScreenOrientation, f.Stats.Rejected),
	)
	return img
}

func renderSplash() *image1bit.VerticalLSB {
	img, drawer := newCanvas()
	drawLines(drawer, 8, 2, "Inertial Pi", "Orientation")
	return img
}
