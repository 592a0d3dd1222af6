package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/parkd-io/parkd/internal/api"
	"github.com/parkd-io/parkd/internal/cliconfig"
	"github.com/parkd-io/parkd/internal/httpd"
	"github.com/parkd-io/parkd/internal/lot"
	"github.com/parkd-io/parkd/internal/metrics"
	"github.com/parkd-io/parkd/internal/ratewatch"
	"github.com/parkd-io/parkd/internal/snapshot"
	"github.com/parkd-io/parkd/internal/static"
)

const longHelp = `parkd is a parking lot management service: a fixed pool of spaces
allocated to vehicles by plate, with time-based fees computed on exit.

Highlights:
  - Bounded worker pool and connection gate keep the server responsive under load.
  - State survives restarts through versioned snapshots written after every change.
  - Rates can be adjusted at runtime via the API or by editing the config file.
`

const exampleUsage = `  parkd --capacity 200 --small-rate 4.5 --large-rate 7
  parkd --config /etc/parkd/config.toml --listen :9090`

// shutdownTimeout bounds the wait for in-flight connections at stop.
const shutdownTimeout = 30 * time.Second

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	log := cliconfig.Logger()

	root := &cobra.Command{
		Use:     "parkd",
		Short:   "Parking lot management service with a bounded-concurrency HTTP API",
		Long:    longHelp,
		Example: exampleUsage,
		Version: fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgFile := cfgPath
			if cfgFile == "" {
				cfgFile = cliconfig.DefaultConfigPath()
			}

			// Build set of changed flags so file/env never override them
			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			if cfgFile != "" && cliconfig.FileExists(cfgFile) {
				fc, err := cliconfig.LoadFileConfig(cfgFile)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				if err := cliconfig.ApplyFileConfig(&cfg, fc, changed); err != nil {
					return err
				}
			}

			if err := cliconfig.ApplyEnvConfig(&cfg, changed); err != nil {
				return err
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			if cfg.Debug {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			} else {
				zerolog.SetGlobalLevel(zerolog.InfoLevel)
			}

			log.Info().Interface("config", cfg).Msg("configuration")
			return run(cfg, cfgFile, log)
		},
	}

	root.Flags().StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.parkd/config.toml)")
	root.Flags().StringVar(&cfg.ListenAddr, "listen", cfg.ListenAddr, "API listen address")
	root.Flags().StringVar(&cfg.StaticDir, "static-dir", cfg.StaticDir, "document root for the frontend")
	root.Flags().StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "directory for the state snapshot")
	root.Flags().StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "Prometheus listen address (empty disables)")

	root.Flags().IntVar(&cfg.Capacity, "capacity", cfg.Capacity, "total number of parking spaces")
	root.Flags().Float64Var(&cfg.SmallRate, "small-rate", cfg.SmallRate, "hourly rate for small vehicles")
	root.Flags().Float64Var(&cfg.LargeRate, "large-rate", cfg.LargeRate, "hourly rate for large vehicles")
	root.Flags().DurationVar(&cfg.AdmitWait, "admit-wait", cfg.AdmitWait, "how long an admission may wait for a freed space (0 = fail fast)")

	root.Flags().IntVar(&cfg.Workers, "workers", cfg.Workers, "connection worker count")
	root.Flags().IntVar(&cfg.MaxInflight, "max-inflight", cfg.MaxInflight, "max concurrent in-flight connections")
	root.Flags().Float64Var(&cfg.AcceptRate, "accept-rate", cfg.AcceptRate, "max accepted connections per second (0 = unlimited)")

	root.Flags().DurationVar(&cfg.ReadTimeout, "read-timeout", cfg.ReadTimeout, "per-read socket timeout")
	root.Flags().DurationVar(&cfg.WriteTimeout, "write-timeout", cfg.WriteTimeout, "response write timeout")
	root.Flags().IntVar(&cfg.MaxHeaderBytes, "max-header-bytes", cfg.MaxHeaderBytes, "request header size limit")
	root.Flags().IntVar(&cfg.MaxBodyBytes, "max-body-bytes", cfg.MaxBodyBytes, "request body size limit")

	root.Flags().BoolVar(&cfg.Debug, "debug", cfg.Debug, "enable debug logging")

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("parkd")
		os.Exit(1)
	}
}

func run(cfg cliconfig.Config, cfgFile string, log zerolog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	codec := snapshot.NewBinaryCodec()
	repo := snapshot.NewFileRepository(cfg.DataDir)

	l := lot.New(lot.Config{
		Capacity:  cfg.Capacity,
		SmallRate: cfg.SmallRate,
		LargeRate: cfg.LargeRate,
	},
		lot.WithLogger(log),
		lot.WithPersistence(codec, repo),
	)

	// A failed or missing snapshot means starting from defaults.
	if data, err := repo.Load(ctx); err != nil {
		log.Warn().Err(err).Msg("snapshot read failed, starting from defaults")
	} else if len(data) > 0 {
		if err := l.Restore(data); err != nil {
			log.Warn().Err(err).Msg("snapshot restore failed, starting from defaults")
		} else {
			log.Info().Int("occupied", l.OccupiedCount()).Int("capacity", l.Capacity()).
				Msg("state restored from snapshot")
		}
	}

	router := httpd.NewRouter(api.APIPrefix)
	router.Static = static.NewResolver(cfg.StaticDir, log).Handler
	api.New(l, cfg.AdmitWait, log).Register(router)

	m := metrics.New(l)
	if cfg.MetricsAddr != "" {
		go func() {
			if err := m.Serve(cfg.MetricsAddr, log); err != nil {
				log.Error().Err(err).Msg("metrics listener failed")
			}
		}()
	}

	server := httpd.NewServer(httpd.ServerConfig{
		Addr:           cfg.ListenAddr,
		Workers:        cfg.Workers,
		MaxInflight:    cfg.MaxInflight,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		MaxHeaderBytes: cfg.MaxHeaderBytes,
		MaxBodyBytes:   cfg.MaxBodyBytes,
		AcceptRate:     cfg.AcceptRate,
	}, router, m, log)

	if err := server.Start(); err != nil {
		return fmt.Errorf("start server: %w", err)
	}

	if cfgFile != "" && cliconfig.FileExists(cfgFile) {
		go ratewatch.New(cfgFile, l, log).Run(ctx)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info().Str("signal", sig.String()).Msg("received signal, stopping...")

	cancel()

	stopped := make(chan error, 1)
	go func() { stopped <- server.Stop() }()
	select {
	case err := <-stopped:
		if err != nil {
			log.Warn().Err(err).Msg("server stop")
		}
	case <-time.After(shutdownTimeout):
		log.Warn().Dur("timeout", shutdownTimeout).Msg("shutdown timeout, forcing exit")
	}

	// Final snapshot so a clean shutdown never loses the last mutation.
	saveCtx, saveCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer saveCancel()
	if err := l.Save(saveCtx); err != nil {
		log.Error().Err(err).Msg("final snapshot failed")
	}
	return nil
}
