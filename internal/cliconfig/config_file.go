package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to keep the
// TOML friendly.
type FileConfig struct {
	ListenAddr  string `toml:"listen_addr"`
	StaticDir   string `toml:"static_dir"`
	DataDir     string `toml:"data_dir"`
	MetricsAddr string `toml:"metrics_addr"`

	Capacity  int     `toml:"capacity"`
	SmallRate float64 `toml:"small_rate"`
	LargeRate float64 `toml:"large_rate"`

	AdmitWait string `toml:"admit_wait"`

	Workers     int     `toml:"workers"`
	MaxInflight int     `toml:"max_inflight"`
	AcceptRate  float64 `toml:"accept_rate"`

	ReadTimeout    string `toml:"read_timeout"`
	WriteTimeout   string `toml:"write_timeout"`
	MaxHeaderBytes int    `toml:"max_header_bytes"`
	MaxBodyBytes   int    `toml:"max_body_bytes"`

	Debug *bool `toml:"debug"`
}

// LoadFileConfig reads and parses a TOML config file.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns ~/.parkd/config.toml if the user home
// directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".parkd", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies file values to the Config, skipping anything
// whose flag was set explicitly (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("listen", fc.ListenAddr, &cfg.ListenAddr)
	s.setString("static-dir", fc.StaticDir, &cfg.StaticDir)
	s.setString("data-dir", fc.DataDir, &cfg.DataDir)
	s.setString("metrics-addr", fc.MetricsAddr, &cfg.MetricsAddr)

	s.setInt("capacity", fc.Capacity, &cfg.Capacity)
	s.setFloat("small-rate", fc.SmallRate, &cfg.SmallRate)
	s.setFloat("large-rate", fc.LargeRate, &cfg.LargeRate)

	if err := s.setDuration("admit-wait", fc.AdmitWait, &cfg.AdmitWait); err != nil {
		return err
	}

	s.setInt("workers", fc.Workers, &cfg.Workers)
	s.setInt("max-inflight", fc.MaxInflight, &cfg.MaxInflight)
	s.setFloat("accept-rate", fc.AcceptRate, &cfg.AcceptRate)

	if err := s.setDuration("read-timeout", fc.ReadTimeout, &cfg.ReadTimeout); err != nil {
		return err
	}
	if err := s.setDuration("write-timeout", fc.WriteTimeout, &cfg.WriteTimeout); err != nil {
		return err
	}

	s.setInt("max-header-bytes", fc.MaxHeaderBytes, &cfg.MaxHeaderBytes)
	s.setInt("max-body-bytes", fc.MaxBodyBytes, &cfg.MaxBodyBytes)

	s.setBool("debug", fc.Debug, &cfg.Debug)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
