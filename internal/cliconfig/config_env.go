package cliconfig

import "os"

// ApplyEnvConfig applies configuration from PARKD_* environment
// variables. Environment values override the file but are overridden by
// explicitly set flags (changed map).
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("listen", os.Getenv("PARKD_LISTEN_ADDR"), &cfg.ListenAddr)
	s.setString("static-dir", os.Getenv("PARKD_STATIC_DIR"), &cfg.StaticDir)
	s.setString("data-dir", os.Getenv("PARKD_DATA_DIR"), &cfg.DataDir)
	s.setString("metrics-addr", os.Getenv("PARKD_METRICS_ADDR"), &cfg.MetricsAddr)

	if err := s.setIntFromString("capacity", os.Getenv("PARKD_CAPACITY"), &cfg.Capacity); err != nil {
		return err
	}
	if err := s.setFloatFromString("small-rate", os.Getenv("PARKD_SMALL_RATE"), &cfg.SmallRate); err != nil {
		return err
	}
	if err := s.setFloatFromString("large-rate", os.Getenv("PARKD_LARGE_RATE"), &cfg.LargeRate); err != nil {
		return err
	}

	if err := s.setDuration("admit-wait", os.Getenv("PARKD_ADMIT_WAIT"), &cfg.AdmitWait); err != nil {
		return err
	}

	if err := s.setIntFromString("workers", os.Getenv("PARKD_WORKERS"), &cfg.Workers); err != nil {
		return err
	}
	if err := s.setIntFromString("max-inflight", os.Getenv("PARKD_MAX_INFLIGHT"), &cfg.MaxInflight); err != nil {
		return err
	}
	if err := s.setFloatFromString("accept-rate", os.Getenv("PARKD_ACCEPT_RATE"), &cfg.AcceptRate); err != nil {
		return err
	}

	if err := s.setDuration("read-timeout", os.Getenv("PARKD_READ_TIMEOUT"), &cfg.ReadTimeout); err != nil {
		return err
	}
	if err := s.setDuration("write-timeout", os.Getenv("PARKD_WRITE_TIMEOUT"), &cfg.WriteTimeout); err != nil {
		return err
	}

	if err := s.setIntFromString("max-header-bytes", os.Getenv("PARKD_MAX_HEADER_BYTES"), &cfg.MaxHeaderBytes); err != nil {
		return err
	}
	if err := s.setIntFromString("max-body-bytes", os.Getenv("PARKD_MAX_BODY_BYTES"), &cfg.MaxBodyBytes); err != nil {
		return err
	}

	s.setBoolFromString("debug", os.Getenv("PARKD_DEBUG"), &cfg.Debug)

	return nil
}
