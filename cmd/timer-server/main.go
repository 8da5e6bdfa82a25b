// Package main is the entry point for the SuperWave timer server.
// It only handles dependency injection and server initialization.
// NO business logic belongs here.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"

	"github.com/superwave/timer/server/internal/clock"
	"github.com/superwave/timer/server/internal/countdown"
	"github.com/superwave/timer/server/internal/events"
	"github.com/superwave/timer/server/internal/infra/storage"
	"github.com/superwave/timer/server/internal/network"
	"github.com/superwave/timer/server/internal/panel"
	"github.com/superwave/timer/server/internal/platform/config"
	"github.com/superwave/timer/server/internal/platform/logger"
	"github.com/superwave/timer/server/internal/platform/metrics"
)

var Version = "v0.1.0"

const tuningReportInterval = time.Minute

type mainFlags struct {
	Version   bool          `help:"print version"`
	Config    string        `help:"yaml config file" type:"path" placeholder:"FILE"`
	Addr      string        `help:"http listen address"`
	DB        string        `name:"db" help:"sqlite journal path; empty keeps the configured path"`
	NoDB      bool          `name:"no-db" help:"keep the journal in memory only"`
	LogLevel  string        `help:"log level (trace, debug, info, warn, error)"`
	LogFormat string        `help:"log format (terminal, json)"`
	Interval  time.Duration `help:"countdown tick interval"`
	Profile   string        `help:"tuning profile (default, stress, low)"`
}

func main() {
	flags := &mainFlags{}
	kctx := kong.Parse(
		flags,
		kong.Name("timer-server"),
		kong.Description("SuperWave countdown timer server"),
		kong.UsageOnError(),
	)

	if flags.Version {
		_, _ = fmt.Fprintln(os.Stdout, Version)

		os.Exit(0)
	}

	kctx.FatalIfErrorf(flags.Run())
}

// resolve loads the config file and overlays the flags that were set.
func (cmd *mainFlags) resolve() (*config.Config, error) {
	cfg, err := config.LoadOptional(cmd.Config)
	if err != nil {
		return nil, err
	}

	if cmd.Addr != "" {
		cfg.Server.Addr = cmd.Addr
	}
	if cmd.DB != "" {
		cfg.Storage.Path = cmd.DB
	}
	if cmd.NoDB {
		cfg.Storage.Path = ""
	}
	if cmd.LogLevel != "" {
		cfg.Log.Level = cmd.LogLevel
	}
	if cmd.LogFormat != "" {
		cfg.Log.Format = cmd.LogFormat
	}
	if cmd.Interval != 0 {
		cfg.Timer.Interval = cmd.Interval
	}
	if cmd.Profile != "" {
		cfg.Profile = cmd.Profile
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func newLogger(cfg *config.Config) (*logger.Logger, error) {
	level, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}

	format, err := logger.ParseFormat(cfg.Log.Format)
	if err != nil {
		return nil, err
	}

	return logger.New(os.Stderr, level, format), nil
}

func (cmd *mainFlags) Run() error {
	cfg, err := cmd.resolve()
	if err != nil {
		return err
	}

	appLogger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	tuning := cfg.Tuning()
	collector := metrics.NewCollector()

	var repo storage.EventRepository
	var persister events.EventPersister
	if cfg.Storage.Path != "" {
		appLogger.Zerolog().Info().Str("path", cfg.Storage.Path).Msg("initializing sqlite journal")

		db, err := storage.InitSQLite(cfg.Storage.Path, tuning.DBMaxOpenConns)
		if err != nil {
			return errors.Wrap(err, "failed to initialize sqlite")
		}
		defer db.Close()

		sqliteRepo := storage.NewSQLiteEventRepository(db)
		repo = sqliteRepo
		persister = storage.NewJournalPersister(sqliteRepo, collector)
	}

	journal := events.NewJournal(persister)
	journal.OnPersistError(func(e events.TimerEvent, err error) {
		appLogger.Zerolog().Error().Err(err).Str("event", string(e.Type)).Str("id", e.ID).Msg("failed to persist timer event")
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loop := clock.NewLoop(tuning.LoopBuffer)
	go loop.Run(ctx)

	engine := countdown.New(loop, countdown.WithInterval(cfg.Timer.Interval)).
		SetLogger(appLogger).
		SetMetrics(collector)

	timerPanel := panel.New(engine, journal, appLogger, cfg.Timer.ID)

	hub := network.NewHub(appLogger, collector, tuning.BroadcastChannelBuffer)
	go hub.Run(ctx)
	timerPanel.OnState().Subscribe(hub.BroadcastState)

	ctrl := network.NewController(loop, timerPanel)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", network.ServeWS(ctx, hub, ctrl, network.WSOptions{
		SendBuffer: tuning.ClientSendBuffer,
		MinGap:     commandGap(tuning.MaxCommandsPerSecond),
		MaxClients: tuning.MaxClients,
	}))
	network.NewAPI(ctrl, appLogger).RegisterRoutes(mux)
	network.NewHistoryHandler(cfg.Timer.ID, repo, journal, appLogger).RegisterRoutes(mux)
	mux.HandleFunc("/metrics", collector.Handler())
	mux.HandleFunc("/metrics/prometheus", collector.PrometheusHandler())

	go reportTuning(ctx, collector, tuning, appLogger)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		appLogger.Zerolog().Info().
			Str("addr", cfg.Server.Addr).
			Str("timer", cfg.Timer.ID).
			Dur("interval", cfg.Timer.Interval).
			Str("profile", cfg.Profile).
			Msg("HTTP API & WS server listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			stop()
			<-loop.Done()
			return errors.Wrap(err, "server failed")
		}
	}

	appLogger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Err(err, "http shutdown")
	}

	<-loop.Done()
	timerPanel.Close()
	journal.Flush()

	snapshot := collector.Snapshot()
	appLogger.Zerolog().Info().
		Str("events", humanize.Comma(int64(journal.Len()))).
		Str("uptime", humanize.RelTime(collector.StartTime, time.Now(), "", "")).
		Interface("engine", snapshot["engine"]).
		Msg("server stopped")

	return nil
}

func commandGap(perSecond int) time.Duration {
	if perSecond <= 0 {
		return 0
	}
	return time.Second / time.Duration(perSecond)
}

// reportTuning periodically logs recommendations derived from the metrics.
func reportTuning(ctx context.Context, c *metrics.Collector, tuning *config.Tuning, log *logger.Logger) {
	ticker := time.NewTicker(tuningReportInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rec := config.Analyze(c.Snapshot())
			if len(rec.Notes) == 0 {
				continue
			}

			next := *tuning
			suggested := config.ApplyRecommendations(&next, rec)
			log.Zerolog().Warn().
				Strs("notes", rec.Notes).
				Interface("suggested", suggested).
				Msg("tuning recommendations")
		}
	}
}
