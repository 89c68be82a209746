package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Serial SerialConfig `yaml:"serial"`
	Device DeviceConfig `yaml:"device"`
	Mock   MockConfig   `yaml:"mock"`
}

// SerialConfig contains serial link configuration.
type SerialConfig struct {
	// Port pins the driver to a specific serial port. Empty means discover
	// the device by its USB signature.
	Port string `yaml:"port"`
	// USBLocation selects a device by physical USB port instead of by name.
	USBLocation string        `yaml:"usb_location"`
	BaudRate    int           `yaml:"baud_rate"`
	ReadTimeout time.Duration `yaml:"read_timeout"`
}

// DeviceConfig contains the USB identity used for discovery.
type DeviceConfig struct {
	VID string `yaml:"vid"`
	PID string `yaml:"pid"`
}

// MockConfig contains simulated device configuration.
type MockConfig struct {
	ModelName   string  `yaml:"model_name"`
	SerialNo    string  `yaml:"serial_no"`
	FWVersion   string  `yaml:"fw_version"`
	InitialTemp float64 `yaml:"initial_temp"` // plate temperature at power-on (°C)
	ThermalRate float64 `yaml:"thermal_rate"` // °C per second toward the setpoint, 0 = static
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		Serial: SerialConfig{
			Port:        "", // discover automatically
			BaudRate:    9600,
			ReadTimeout: 500 * time.Millisecond,
		},
		Device: DeviceConfig{
			VID: "04D8",
			PID: "EE93",
		},
		Mock: MockConfig{
			ModelName:   "temp_deck_v1.0.1",
			SerialNo:    "TDV0118052801",
			FWVersion:   "edge-1a2b3c4",
			InitialTemp: 25.0,
			ThermalRate: 0,
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			// File doesn't exist, return defaults
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Ensure minimum required fields are set (use defaults if missing)
	cfg.ensureDefaults()

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ensureDefaults ensures that all required fields have default values if missing.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Serial.BaudRate == 0 {
		c.Serial.BaudRate = def.Serial.BaudRate
	}
	if c.Serial.ReadTimeout == 0 {
		c.Serial.ReadTimeout = def.Serial.ReadTimeout
	}

	if c.Device.VID == "" {
		c.Device.VID = def.Device.VID
	}
	if c.Device.PID == "" {
		c.Device.PID = def.Device.PID
	}

	if c.Mock.ModelName == "" {
		c.Mock.ModelName = def.Mock.ModelName
	}
	if c.Mock.SerialNo == "" {
		c.Mock.SerialNo = def.Mock.SerialNo
	}
	if c.Mock.FWVersion == "" {
		c.Mock.FWVersion = def.Mock.FWVersion
	}
	if c.Mock.InitialTemp == 0 {
		c.Mock.InitialTemp = def.Mock.InitialTemp
	}
}
