package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/MimeLyc/subedit/internal/backend"
	"github.com/MimeLyc/subedit/internal/config"
	"github.com/MimeLyc/subedit/internal/httpapi"
	"github.com/MimeLyc/subedit/internal/jobs"
	"github.com/MimeLyc/subedit/internal/persistence"
	"github.com/MimeLyc/subedit/internal/session"
	"github.com/MimeLyc/subedit/pkg/log"
)

type scheduler interface {
	Schedule(ctx context.Context) error
}

type cronEngine interface {
	Start()
	Stop() context.Context
}

type httpServer interface {
	ListenAndServe(addr string) error
	Shutdown(ctx context.Context) error
}

func newServeCmd() *cobra.Command {
	var (
		addr   string
		dbPath string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the editing API",
		Long: `Run the HTTP editing API, the autosave workers and the idle session sweep.

Configuration is read from the environment (and a .env file when present).
Settings saved through the API are kept in $SETTINGS_FILE and override the
environment on the next start.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, addr, dbPath)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default: $HTTP_ADDR or :8080)")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database path (default: $DB_PATH)")
	return cmd
}

func runServe(ctx context.Context, addr, dbPath string) error {
	opts := []config.Option{config.WithAddr(addr), config.WithDBPath(dbPath)}

	settingsPath := config.RuntimeSettingsFilePath()
	if saved, err := config.LoadRuntimeSettingsFile(settingsPath); err == nil {
		opts = append(opts, config.WithRuntimeSettings(saved))
	} else if !errors.Is(err, os.ErrNotExist) {
		log.Warn("Ignoring settings file %s: %v", settingsPath, err)
	}

	cfg, err := config.NewFromEnv(opts...)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	settings, err := config.NewRuntimeSettingsStore(settingsPath, cfg.RuntimeSettings())
	if err != nil {
		return fmt.Errorf("init settings store: %w", err)
	}

	store, err := persistence.NewSQLiteStore(cfg.Storage.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	queue := jobs.NewQueue(cfg.Storage.AutosaveWorkers, store)
	defer queue.Stop()

	client := backend.NewClient(cfg.Backend.URL, cfg.Backend.Token, cfg.Backend.Timeout)
	manager := session.NewManager(client, store, queue, session.Options{
		HistoryMaxSize: cfg.Editor.HistoryMaxSize,
		IdleTTL:        cfg.Editor.IdleTTL,
		StrictParsing:  cfg.Editor.StrictParsing,
	})
	queue.Start(manager.ExecuteSave)

	c := cron.New()
	apply := func(next config.RuntimeSettings) error {
		fetcher := backend.NewClient(next.BackendURL, cfg.Backend.Token, cfg.Backend.Timeout)
		manager.Reconfigure(next.HistoryMaxSize, next.StrictParsing, fetcher)
		if err := manager.Schedule(c, next.SweepCron); err != nil {
			return err
		}
		log.Info("Applied runtime settings: backend=%s history=%d sweep=%q strict=%t",
			next.BackendURL, next.HistoryMaxSize, next.SweepCron, next.StrictParsing)
		return nil
	}

	srv := httpapi.NewServer(manager, queue,
		httpapi.WithUI(cfg.HTTP.UIStaticDir, cfg.HTTP.UIEnabled),
		httpapi.WithSubtitleSets(store),
		httpapi.WithRuntimeSettingsStore(settings),
		httpapi.WithRuntimeSettingsApplier(apply),
	)

	runErr := runWithComponents(ctx, cfg, sweepSchedule{manager: manager, cron: c, expr: cfg.Editor.SweepCron}, c, srv)

	flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout(cfg))
	defer cancel()
	if err := manager.SaveAll(flushCtx); err != nil {
		log.Error("Failed to save open sessions: %v", err)
		runErr = errors.Join(runErr, err)
	}
	return runErr
}

// sweepSchedule registers the idle session sweep on a cron engine.
type sweepSchedule struct {
	manager *session.Manager
	cron    *cron.Cron
	expr    string
}

func (s sweepSchedule) Schedule(context.Context) error {
	return s.manager.Schedule(s.cron, s.expr)
}

// runWithComponents schedules the sweep, starts cron and HTTP, and shuts both
// down once ctx is done or the server fails.
func runWithComponents(ctx context.Context, cfg *config.Config, sched scheduler, engine cronEngine, srv httpServer) error {
	if err := sched.Schedule(ctx); err != nil {
		return err
	}
	engine.Start()
	defer func() {
		<-engine.Stop().Done()
	}()

	errCh := make(chan error, 1)
	go func() {
		log.Info("Listening on %s", cfg.HTTP.Addr)
		errCh <- srv.ListenAndServe(cfg.HTTP.Addr)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout(cfg))
	defer cancel()

	log.Info("Shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// shutdownTimeout bounds each shutdown step, 10s when unset.
func shutdownTimeout(cfg *config.Config) time.Duration {
	if cfg.HTTP.ShutdownTimeout <= 0 {
		return 10 * time.Second
	}
	return cfg.HTTP.ShutdownTimeout
}
