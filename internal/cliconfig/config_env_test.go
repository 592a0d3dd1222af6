package cliconfig

import (
	"os"
	"testing"
	"time"
)

func TestApplyEnvConfig(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		changed  map[string]bool
		initial  Config
		expected Config
		wantErr  bool
	}{
		{
			name: "applies all valid env vars",
			envVars: map[string]string{
				"PARKD_LISTEN_ADDR": ":9090",
				"PARKD_CAPACITY":    "50",
				"PARKD_SMALL_RATE":  "3.5",
				"PARKD_ADMIT_WAIT":  "30s",
				"PARKD_DEBUG":       "true",
			},
			changed: map[string]bool{},
			initial: Config{},
			expected: Config{
				ListenAddr: ":9090",
				Capacity:   50,
				SmallRate:  3.5,
				AdmitWait:  30 * time.Second,
				Debug:      true,
			},
			wantErr: false,
		},
		{
			name: "respects changed flags",
			envVars: map[string]string{
				"PARKD_LISTEN_ADDR": ":9090",
				"PARKD_CAPACITY":    "50",
			},
			changed: map[string]bool{"listen": true},
			initial: Config{
				ListenAddr: ":7070",
			},
			expected: Config{
				ListenAddr: ":7070",
				Capacity:   50,
			},
			wantErr: false,
		},
		{
			name: "returns error for invalid duration",
			envVars: map[string]string{
				"PARKD_READ_TIMEOUT": "not-a-duration",
			},
			changed: map[string]bool{},
			initial: Config{},
			wantErr: true,
		},
		{
			name: "returns error for invalid int",
			envVars: map[string]string{
				"PARKD_CAPACITY": "not-a-number",
			},
			changed: map[string]bool{},
			initial: Config{},
			wantErr: true,
		},
		{
			name: "returns error for invalid float",
			envVars: map[string]string{
				"PARKD_SMALL_RATE": "not-a-float",
			},
			changed: map[string]bool{},
			initial: Config{},
			wantErr: true,
		},
		{
			name: "handles bool '1' as true",
			envVars: map[string]string{
				"PARKD_DEBUG": "1",
			},
			changed: map[string]bool{},
			initial: Config{},
			expected: Config{
				Debug: true,
			},
			wantErr: false,
		},
		{
			name: "handles bool 'false' as false",
			envVars: map[string]string{
				"PARKD_DEBUG": "false",
			},
			changed: map[string]bool{},
			initial: Config{Debug: true},
			expected: Config{
				Debug: false,
			},
			wantErr: false,
		},
		{
			name: "handles all field types correctly",
			envVars: map[string]string{
				"PARKD_LISTEN_ADDR":      ":9090",
				"PARKD_STATIC_DIR":       "/srv/web",
				"PARKD_DATA_DIR":         "/var/lib/parkd",
				"PARKD_METRICS_ADDR":     ":9100",
				"PARKD_CAPACITY":         "200",
				"PARKD_SMALL_RATE":       "3.5",
				"PARKD_LARGE_RATE":       "6.5",
				"PARKD_ADMIT_WAIT":       "1m",
				"PARKD_WORKERS":          "16",
				"PARKD_MAX_INFLIGHT":     "128",
				"PARKD_ACCEPT_RATE":      "500",
				"PARKD_READ_TIMEOUT":     "10s",
				"PARKD_WRITE_TIMEOUT":    "15s",
				"PARKD_MAX_HEADER_BYTES": "4096",
				"PARKD_MAX_BODY_BYTES":   "2048",
				"PARKD_DEBUG":            "true",
			},
			changed: map[string]bool{},
			initial: Config{},
			expected: Config{
				ListenAddr:     ":9090",
				StaticDir:      "/srv/web",
				DataDir:        "/var/lib/parkd",
				MetricsAddr:    ":9100",
				Capacity:       200,
				SmallRate:      3.5,
				LargeRate:      6.5,
				AdmitWait:      time.Minute,
				Workers:        16,
				MaxInflight:    128,
				AcceptRate:     500,
				ReadTimeout:    10 * time.Second,
				WriteTimeout:   15 * time.Second,
				MaxHeaderBytes: 4096,
				MaxBodyBytes:   2048,
				Debug:          true,
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				os.Setenv(k, v)
			}
			defer func() {
				for k := range tt.envVars {
					os.Unsetenv(k)
				}
			}()

			cfg := tt.initial
			err := ApplyEnvConfig(&cfg, tt.changed)

			if tt.wantErr && err == nil {
				t.Error("ApplyEnvConfig() expected error but got nil")
				return
			}
			if !tt.wantErr && err != nil {
				t.Errorf("ApplyEnvConfig() unexpected error: %v", err)
				return
			}
			if !tt.wantErr && cfg != tt.expected {
				t.Errorf("config = %+v, want %+v", cfg, tt.expected)
			}
		})
	}
}
