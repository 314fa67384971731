package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/p-n-ai/exam-atlas/internal/analysis"
	"github.com/p-n-ai/exam-atlas/internal/curriculum"
	"github.com/p-n-ai/exam-atlas/internal/dashboard"
	"github.com/p-n-ai/exam-atlas/internal/platform/config"
	"github.com/p-n-ai/exam-atlas/internal/platform/database"
	"github.com/p-n-ai/exam-atlas/internal/platform/logging"
	"github.com/p-n-ai/exam-atlas/internal/snapshot"
	"github.com/p-n-ai/exam-atlas/internal/statsource"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logging.New(cfg.Log.Level, cfg.Log.Format, os.Stdout))

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	// Graceful shutdown on SIGTERM/SIGINT.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := run(ctx, cfg, nil); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

// run serves until ctx is done. When ready is non-nil it receives the
// listening address.
func run(ctx context.Context, cfg *config.Config, ready chan<- string) error {
	source, closeSource, err := statsource.Open(ctx, cfg)
	if err != nil {
		slog.Warn("statistics source unavailable, computing directly", "kind", cfg.Stats.Source, "error", err)
		source = nil
	}
	defer closeSource()

	opts := snapshot.Options{
		Engine:           analysis.NewEngine(analysis.Options{SkipEmptyLabels: cfg.Analysis.SkipEmptyLabels}),
		Facade:           analysis.NewStatisticsFacade(source),
		VerifyStatistics: source != nil,
	}
	checks := map[string]dashboard.Checker{}
	addStatsCheck(checks, source)

	if cfg.HasDatabase() {
		db, err := database.New(ctx, database.Options{
			URL:      cfg.Database.URL,
			MaxConns: cfg.Database.MaxConns,
			MinConns: cfg.Database.MinConns,
		})
		if err != nil {
			slog.Warn("database unavailable, reload journal disabled", "error", err)
		} else {
			defer db.Close()
			journal, err := snapshot.NewPostgresJournal(ctx, db.Pool)
			if err != nil {
				slog.Warn("reload journal disabled", "error", err)
			} else {
				opts.Journal = journal
			}
			checks["database"] = db
		}
	}

	manager := snapshot.NewManager(curriculum.NewLoader(cfg.Data.CurriculumPath, cfg.Data.QuestionsPath), opts)
	if _, err := manager.Reload(ctx); err != nil {
		slog.Error("initial load failed, serving 503 until a reload succeeds", "error", err)
	}

	dash := dashboard.New(manager, dashboard.Options{
		Checks:         checks,
		OriginPatterns: cfg.Server.WSOrigins,
	})
	dash.Start(ctx)
	go manager.Run(ctx, cfg.Data.RefreshInterval)

	ln, err := net.Listen("tcp", net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)))
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	srv := &http.Server{
		Handler:     dash.Handler(),
		ReadTimeout: 10 * time.Second,
		// No WriteTimeout: websocket connections stay open.
		IdleTimeout: 60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	if ready != nil {
		ready <- ln.Addr().String()
	}

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// addStatsCheck registers the statistics store with /readyz when it has
// an external backend.
func addStatsCheck(checks map[string]dashboard.Checker, source analysis.StatisticsSource) {
	if hc := statsource.Checker(source); hc != nil {
		checks["statistics"] = hc
	}
}
