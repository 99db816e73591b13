// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Motion sources selectable with SOURCE.
const (
	SourceMock   = "mock"
	SourceIMU    = "imu"
	SourceSerial = "serial"
	SourceReplay = "replay"
)

// Config holds all application configuration values.
type Config struct {
	// MQTT
	MQTTBroker           string `yaml:"mqtt_broker"`
	MQTTClientIDProducer string `yaml:"mqtt_client_id_producer"`
	MQTTClientIDConsole  string `yaml:"mqtt_client_id_console"`
	MQTTClientIDWeb      string `yaml:"mqtt_client_id_web"`
	MQTTClientIDDisplay  string `yaml:"mqtt_client_id_display"`

	// Topics
	TopicOrientation       string `yaml:"topic_orientation"`
	TopicScreenOrientation string `yaml:"topic_screen_orientation"`

	// Motion source: mock, imu, serial or replay
	Source string `yaml:"source"`

	// IMU Hardware
	IMUSPIDevice string `yaml:"imu_spi_device"`
	IMUCSPin     string `yaml:"imu_cs_pin"`
	// Accelerometer: 0=±2g, 1=±4g, 2=±8g, 3=±16g
	IMUAccelRange byte `yaml:"imu_accel_range"`
	// Gyroscope: 0=±250°/s, 1=±500°/s, 2=±1000°/s, 3=±2000°/s
	IMUGyroRange byte `yaml:"imu_gyro_range"`

	// Serial motion stream
	SerialPort     string `yaml:"serial_port"`
	SerialBaudRate int    `yaml:"serial_baud_rate"`

	// Replay
	ReplayFile string `yaml:"replay_file"`

	// Timing
	SampleInterval int `yaml:"sample_interval"` // milliseconds
	RenderInterval int `yaml:"render_interval"` // milliseconds

	// Orientation tracking
	MinTimestepMS         int     `yaml:"min_timestep_ms"`
	MaxTimestepMS         int     `yaml:"max_timestep_ms"`
	FilterWeight          float64 `yaml:"filter_weight"`
	PredictionHorizonMS   int     `yaml:"prediction_horizon_ms"`
	PredictionMinSpeedDPS float64 `yaml:"prediction_min_speed_dps"`

	// Web Server
	WebServerPort int    `yaml:"web_server_port"`
	WebStaticDir  string `yaml:"web_static_dir"`

	// Display (SSD1306 at its fixed I2C address 0x3C)
	DisplayUpdateInterval int `yaml:"display_update_interval"` // milliseconds
}

// Default returns a configuration that runs the mock source against a local
// broker.
func Default() *Config {
	return &Config{
		MQTTBroker: "tcp://localhost:1883",

		TopicOrientation:       "inertial/orientation",
		TopicScreenOrientation: "inertial/screen_orientation",

		Source: SourceMock,

		IMUSPIDevice: "/dev/spidev0.0",
		IMUCSPin:     "8",

		SerialPort:     "/dev/ttyUSB0",
		SerialBaudRate: 115200,

		ReplayFile: "motion.csv",

		SampleInterval: 5,
		RenderInterval: 16,

		MinTimestepMS:         1,
		MaxTimestepMS:         1000,
		FilterWeight:          0.98,
		PredictionHorizonMS:   50,
		PredictionMinSpeedDPS: 20,

		WebServerPort: 8080,
		WebStaticDir:  "web",

		DisplayUpdateInterval: 200,
	}
}

// Load reads the configuration file and returns a Config struct. Files
// ending in .yaml or .yml are parsed as YAML; anything else as KEY=VALUE
// lines. Keys missing from the file keep their Default values.
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}

	cfg := Default()
	switch strings.ToLower(filepath.Ext(configPath)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	default:
		if err := cfg.parseKeyValue(data); err != nil {
			return nil, err
		}
	}

	// Validate required fields
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) parseKeyValue(data []byte) error {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := c.setValue(key, value); err != nil {
			return fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}
	return nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_PRODUCER":
		c.MQTTClientIDProducer = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value
	case "MQTT_CLIENT_ID_DISPLAY":
		c.MQTTClientIDDisplay = value

	// Topics
	case "TOPIC_ORIENTATION":
		c.TopicOrientation = value
	case "TOPIC_SCREEN_ORIENTATION":
		c.TopicScreenOrientation = value

	case "SOURCE":
		c.Source = strings.ToLower(value)

	// IMU Hardware
	case "IMU_SPI_DEVICE":
		c.IMUSPIDevice = value
	case "IMU_CS_PIN":
		c.IMUCSPin = value
	case "IMU_ACCEL_RANGE":
		rangeVal, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid IMU_ACCEL_RANGE %q: %w", value, err)
		}
		if rangeVal < 0 || rangeVal > 3 {
			return fmt.Errorf("IMU_ACCEL_RANGE must be 0-3 (0=±2g, 1=±4g, 2=±8g, 3=±16g), got %d", rangeVal)
		}
		c.IMUAccelRange = byte(rangeVal)
	case "IMU_GYRO_RANGE":
		rangeVal, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid IMU_GYRO_RANGE %q: %w", value, err)
		}
		if rangeVal < 0 || rangeVal > 3 {
			return fmt.Errorf("IMU_GYRO_RANGE must be 0-3 (0=±250°/s, 1=±500°/s, 2=±1000°/s, 3=±2000°/s), got %d", rangeVal)
		}
		c.IMUGyroRange = byte(rangeVal)

	// Serial
	case "SERIAL_PORT":
		c.SerialPort = value
	case "SERIAL_BAUD_RATE":
		rate, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid SERIAL_BAUD_RATE %q: %w", value, err)
		}
		c.SerialBaudRate = rate

	case "REPLAY_FILE":
		c.ReplayFile = value

	// Timing
	case "SAMPLE_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid SAMPLE_INTERVAL %q: %w", value, err)
		}
		c.SampleInterval = interval
	case "RENDER_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid RENDER_INTERVAL %q: %w", value, err)
		}
		c.RenderInterval = interval

	// Orientation tracking
	case "MIN_TIMESTEP_MS":
		val, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid MIN_TIMESTEP_MS %q: %w", value, err)
		}
		c.MinTimestepMS = val
	case "MAX_TIMESTEP_MS":
		val, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid MAX_TIMESTEP_MS %q: %w", value, err)
		}
		c.MaxTimestepMS = val
	case "FILTER_WEIGHT":
		val, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid FILTER_WEIGHT %q: %w", value, err)
		}
		c.FilterWeight = val
	case "PREDICTION_HORIZON_MS":
		val, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid PREDICTION_HORIZON_MS %q: %w", value, err)
		}
		c.PredictionHorizonMS = val
	case "PREDICTION_MIN_SPEED_DPS":
		val, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid PREDICTION_MIN_SPEED_DPS %q: %w", value, err)
		}
		c.PredictionMinSpeedDPS = val

	// Web Server
	case "WEB_SERVER_PORT":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid WEB_SERVER_PORT %q: %w", value, err)
		}
		c.WebServerPort = port
	case "WEB_STATIC_DIR":
		c.WebStaticDir = value

	// Display
	case "DISPLAY_UPDATE_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid DISPLAY_UPDATE_INTERVAL %q: %w", value, err)
		}
		c.DisplayUpdateInterval = interval

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return nil
}

// validate checks that all required fields are set and consistent.
func (c *Config) validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	if c.TopicOrientation == "" {
		return fmt.Errorf("TOPIC_ORIENTATION is required")
	}

	switch c.Source {
	case SourceMock:
	case SourceIMU:
		if c.IMUSPIDevice == "" {
			return fmt.Errorf("IMU_SPI_DEVICE is required for SOURCE=imu")
		}
		if c.IMUAccelRange > 3 || c.IMUGyroRange > 3 {
			return fmt.Errorf("IMU_ACCEL_RANGE and IMU_GYRO_RANGE must be 0-3")
		}
	case SourceSerial:
		if c.SerialPort == "" {
			return fmt.Errorf("SERIAL_PORT is required for SOURCE=serial")
		}
		if c.SerialBaudRate <= 0 {
			return fmt.Errorf("SERIAL_BAUD_RATE must be positive, got %d", c.SerialBaudRate)
		}
	case SourceReplay:
		if c.ReplayFile == "" {
			return fmt.Errorf("REPLAY_FILE is required for SOURCE=replay")
		}
	default:
		return fmt.Errorf("unknown SOURCE %q (want mock, imu, serial or replay)", c.Source)
	}

	if c.SampleInterval <= 0 {
		return fmt.Errorf("SAMPLE_INTERVAL must be positive, got %d", c.SampleInterval)
	}
	if c.RenderInterval <= 0 {
		return fmt.Errorf("RENDER_INTERVAL must be positive, got %d", c.RenderInterval)
	}
	if c.MinTimestepMS < 0 {
		return fmt.Errorf("MIN_TIMESTEP_MS must not be negative, got %d", c.MinTimestepMS)
	}
	if c.MaxTimestepMS <= c.MinTimestepMS {
		return fmt.Errorf("MAX_TIMESTEP_MS (%d) must exceed MIN_TIMESTEP_MS (%d)", c.MaxTimestepMS, c.MinTimestepMS)
	}
	if c.FilterWeight < 0 || c.FilterWeight > 1 {
		return fmt.Errorf("FILTER_WEIGHT must be in [0,1], got %v", c.FilterWeight)
	}
	if c.DisplayUpdateInterval <= 0 {
		return fmt.Errorf("DISPLAY_UPDATE_INTERVAL must be positive, got %d", c.DisplayUpdateInterval)
	}
	if c.PredictionHorizonMS < 0 {
		return fmt.Errorf("PREDICTION_HORIZON_MS must not be negative, got %d", c.PredictionHorizonMS)
	}
	if c.PredictionMinSpeedDPS < 0 {
		return fmt.Errorf("PREDICTION_MIN_SPEED_DPS must not be negative, got %v", c.PredictionMinSpeedDPS)
	}
	return nil
}
