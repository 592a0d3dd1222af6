package cliconfig

import (
	"fmt"
	"strconv"
	"time"
)

// DefaultAddr is the default listen address for the API server.
const DefaultAddr = ":8080"

// Config carries everything cmd/parkd needs to assemble the service.
// Values are resolved with flag > environment > file > default precedence.
type Config struct {
	ListenAddr  string
	StaticDir   string
	DataDir     string
	MetricsAddr string

	Capacity  int
	SmallRate float64
	LargeRate float64

	// AdmitWait bounds how long an admission may block waiting for a
	// freed slot. Zero rejects a full lot immediately.
	AdmitWait time.Duration

	Workers     int
	MaxInflight int
	AcceptRate  float64

	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxHeaderBytes int
	MaxBodyBytes   int

	Debug bool
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		ListenAddr:     DefaultAddr,
		StaticDir:      "web",
		DataDir:        ".",
		Capacity:       100,
		SmallRate:      5.0,
		LargeRate:      8.0,
		Workers:        8,
		MaxInflight:    64,
		ReadTimeout:    5 * time.Second,
		WriteTimeout:   5 * time.Second,
		MaxHeaderBytes: 8 << 10,
		MaxBodyBytes:   1 << 20,
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen address is required")
	}
	if c.Capacity <= 0 {
		return fmt.Errorf("capacity must be positive")
	}
	if c.SmallRate <= 0 || c.LargeRate <= 0 {
		return fmt.Errorf("rates must be positive")
	}
	if c.Workers <= 0 {
		return fmt.Errorf("worker count must be positive")
	}
	if c.MaxInflight <= 0 {
		return fmt.Errorf("max inflight connections must be positive")
	}
	if c.ReadTimeout <= 0 || c.WriteTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	if c.MaxHeaderBytes <= 0 || c.MaxBodyBytes <= 0 {
		return fmt.Errorf("header and body limits must be positive")
	}
	if c.AdmitWait < 0 {
		return fmt.Errorf("admit wait must not be negative")
	}
	return nil
}

// configSetter applies configuration values while respecting flag
// precedence: a value is skipped when its flag was set explicitly.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

func (s *configSetter) setFloat(flag string, value float64, dst *float64) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

func (s *configSetter) setFloatFromString(flag, value string, dst *float64) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if f <= 0 {
		return nil
	}
	*dst = f
	return nil
}

func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
