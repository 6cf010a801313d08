package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"modelrepo/internal/config"
	"modelrepo/internal/httpapi"
	"modelrepo/internal/lifecycle"
	"modelrepo/internal/manager"
	"modelrepo/internal/repowatch"
)

func main() {
	if err := buildRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	var configPath string
	var addrFlag string
	var logLevel string

	root := &cobra.Command{
		Use:           "modelrepod",
		Short:         "Model repository manager daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a .yaml/.json/.toml config file")
	root.PersistentFlags().StringVar(&addrFlag, "addr", "", "HTTP listen address, overrides the config file")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug|info|warn|error")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the model repository manager HTTP daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath, addrFlag, logLevel)
		},
	}
	root.AddCommand(serveCmd)
	return root
}

func runServe(configPath, addrOverride, logLevel string) error {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger().Level(parseLevel(logLevel))

	var cfg config.Config
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	} else {
		cfg = config.Config{PollingEnabled: true, PollIntervalSeconds: 15}
	}
	addr := cfg.Addr
	if addrOverride != "" {
		addr = addrOverride
	}
	if addr == "" {
		addr = ":8080"
	}

	httpapi.SetLogger(log)
	if cfg.MaxBodyBytes > 0 {
		httpapi.SetMaxBodyBytes(cfg.MaxBodyBytes)
	}
	if cfg.CORS.Enabled {
		httpapi.SetCORSOptions(true, cfg.CORS.Origins, cfg.CORS.Methods, cfg.CORS.Headers)
	}

	mgrCfg := cfg.ManagerConfig()
	engine := lifecycle.NewMemoryEngine(0, 0)
	memPub := manager.NewMemoryPublisher()
	events := &fanoutPublisher{delegates: []manager.EventPublisher{memPub, scheduleWaveRecorder{}}}

	mgr := manager.New(mgrCfg, engine, events, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	httpapi.SetBaseContext(ctx)

	if mgrCfg.PollingEnabled {
		if _, err := mgr.PollAndUpdate(); err != nil {
			log.Warn().Err(err).Msg("initial poll failed")
		}
		go pollLoop(ctx, mgr, mgrCfg.PollInterval, log)
		if watcher, err := repowatch.New(mgrCfg.Repositories, func() {
			if _, err := mgr.PollAndUpdate(); err != nil {
				log.Warn().Err(err).Msg("watch-triggered poll failed")
			}
		}, repowatch.DefaultDebounceWindow); err != nil {
			log.Warn().Err(err).Msg("repository watcher unavailable, falling back to interval polling only")
		} else if err := watcher.Start(ctx); err != nil {
			log.Warn().Err(err).Msg("repository watcher failed to start")
		} else {
			defer watcher.Stop()
		}
	} else {
		// Polling already loads every model reachable from a repository
		// (POLL/NONE marks every discovered node explicitly loaded), so
		// StartupModels only needs an explicit LoadUnloadModel call here in
		// explicit-control mode, where nothing else would ever load them.
		for _, err := range mgr.LoadStartupModels() {
			log.Warn().Err(err).Msg("startup model failed to load")
		}
	}

	mux := httpapi.NewMux(mgr, httpapi.NewEventFeed(memPub, log))
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		log.Info().Str("addr", addr).Msg("modelrepod listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("graceful shutdown error")
	}
	return nil
}

func pollLoop(ctx context.Context, mgr *manager.Manager, interval time.Duration, log zerolog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := mgr.PollAndUpdate(); err != nil {
				log.Warn().Err(err).Msg("periodic poll failed")
			}
		}
	}
}

func parseLevel(s string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(s)
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}

// fanoutPublisher forwards each event to every delegate in order. Used to
// feed both the /v2/events websocket buffer and the Prometheus scheduler
// counters from a single manager.EventPublisher.
type fanoutPublisher struct {
	delegates []manager.EventPublisher
}

func (f *fanoutPublisher) Publish(e manager.Event) {
	for _, d := range f.delegates {
		d.Publish(e)
	}
}

// scheduleWaveRecorder increments the modelrepo_scheduler_waves_total
// counter for schedule.verdict events. It lives in cmd/modelrepod rather
// than internal/manager to avoid a manager -> httpapi import cycle.
type scheduleWaveRecorder struct{}

func (scheduleWaveRecorder) Publish(e manager.Event) {
	if e.Name != "schedule.verdict" {
		return
	}
	httpapi.RecordScheduleWave(e.Fields["ok"] == "true")
}
