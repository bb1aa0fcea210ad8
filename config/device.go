// Package config loads the device configuration YAML document
// cmd/tl4demo (and any other embedder) starts from, following the
// teacher pack's plain os.Open + io.ReadAll + yaml.Unmarshal shape
// (doismellburning-samoyed/src/deviceid.go) rather than a generic
// config-framework library.
package config

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Device is the static configuration for one TL4 endpoint.
type Device struct {
	// OwnAddress is the device's KNX physical address, e.g. "1.1.5".
	OwnAddress string `yaml:"own_address"`

	// Style selects "style1" (Style 1 Rationalised) or "style3".
	Style string `yaml:"style"`

	// ConnectionTimeoutMS overrides protocol.ConnectionTimeoutMS when
	// non-zero.
	ConnectionTimeoutMS uint32 `yaml:"connection_timeout_ms"`

	// AckTimeoutMS overrides protocol.AckTimeoutMS when non-zero.
	AckTimeoutMS uint32 `yaml:"ack_timeout_ms"`

	// SerialDevice is the path to the bus interface (e.g.
	// /dev/ttyUSB0) for bushost.SerialBus. Empty means use an
	// in-memory link.SimBus instead.
	SerialDevice string `yaml:"serial_device"`

	// SerialBaud is the serial port speed for SerialDevice.
	SerialBaud int `yaml:"serial_baud"`

	// MetricsAddr, if set, is the address cmd/tl4demo listens on for
	// Prometheus scraping (e.g. ":9100").
	MetricsAddr string `yaml:"metrics_addr"`
}

// Load reads and parses a Device configuration file.
func Load(path string) (*Device, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var d Device
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return &d, nil
}
