package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/pandablocks/panda-registry/pkg/console"
	"github.com/pandablocks/panda-registry/pkg/hardware"
	"github.com/pandablocks/panda-registry/pkg/layout"
	"github.com/pandablocks/panda-registry/pkg/log"
	"github.com/pandablocks/panda-registry/pkg/metrics"
	"github.com/pandablocks/panda-registry/pkg/model"
	"github.com/pandablocks/panda-registry/pkg/persistence"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Build the registry, restore saved state and run until stopped",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	addServeFlags(cmd.Flags())
	return cmd
}

// serveConfig resolves the configuration file and flag overrides.
func serveConfig(cmd *cobra.Command) (Config, error) {
	cfg := DefaultConfig()
	if f := cmd.Flag("config"); f != nil && f.Value.String() != "" {
		var err error
		if cfg, err = LoadConfig(f.Value.String()); err != nil {
			return cfg, err
		}
	}
	applyFlags(&cfg, cmd.Flags())
	return cfg, cfg.Validate()
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := serveConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cfg.LogLevel, cmd.ErrOrStderr())

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := newServer(cfg, logger)
	if err != nil {
		return err
	}
	defer srv.close()

	return srv.run(ctx, stop)
}

// server is one running registry with its supporting loops.
type server struct {
	cfg     Config
	logger  *slog.Logger
	sim     *hardware.Simulator
	metrics *metrics.Metrics
	events  *log.FileLogger
	reg     *model.Registry
	saver   *persistence.Saver
}

func newServer(cfg Config, logger *slog.Logger) (*server, error) {
	s := &server{
		cfg:     cfg,
		logger:  logger,
		sim:     hardware.NewSimulator(logger),
		metrics: metrics.New(),
	}

	var eventLogger log.Logger = log.NewSlogAdapter(logger)
	if cfg.EventLog != "" {
		fl, err := log.NewFileLogger(cfg.EventLog)
		if err != nil {
			return nil, fmt.Errorf("opening event log: %w", err)
		}
		s.events = fl
		eventLogger = log.NewMultiLogger(fl, eventLogger)
	}

	l, err := loadLayout(cfg.Layout)
	if err != nil {
		s.close()
		return nil, err
	}
	s.reg, err = l.Build(model.Config{
		Hardware:    s.sim,
		Logger:      logger,
		EventLogger: eventLogger,
		Metrics:     s.metrics,
	})
	if err != nil {
		s.close()
		return nil, fmt.Errorf("building registry: %w", err)
	}
	logger.Info("registry open", "blocks", len(s.reg.Blocks()), "layout", layoutName(cfg.Layout))

	if cfg.State.Path != "" {
		if err := s.restore(); err != nil {
			s.close()
			return nil, err
		}
	}
	return s, nil
}

// restore loads saved state into the registry. Lines that no longer apply
// are logged and skipped.
func (s *server) restore() error {
	store := persistence.NewStore(s.cfg.State.Path)
	state, err := store.Load()
	if err != nil {
		return fmt.Errorf("loading state: %w", err)
	}
	if state != nil {
		if err := persistence.Restore(s.reg, state, s.logger); err != nil {
			s.logger.Warn("state partially restored", "path", store.Path(), "error", err)
		} else {
			s.logger.Info("state restored", "path", store.Path(), "saved_at", state.SavedAt)
		}
	}

	s.saver = persistence.NewSaver(s.reg, store, s.logger)
	return s.saver.Sync()
}

// run starts every configured loop and waits for them. stop ends the
// session, for example when the console exits.
func (s *server) run(ctx context.Context, stop context.CancelFunc) error {
	g, ctx := errgroup.WithContext(ctx)

	if s.saver != nil {
		g.Go(func() error { return s.saver.Run(ctx, s.cfg.State.Interval) })
	}

	if s.cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", s.metrics.Handler())
		httpSrv := &http.Server{
			Addr:              s.cfg.MetricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			s.logger.Info("metrics listening", "addr", s.cfg.MetricsAddr)
			if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return httpSrv.Shutdown(shutdownCtx)
		})
	}

	if s.cfg.Simulation.Enabled {
		g.Go(func() error {
			runSimulation(ctx, s.reg, s.sim, s.cfg.Simulation.Interval, s.logger)
			return nil
		})
	}

	if s.cfg.Console {
		g.Go(func() error {
			defer stop()
			return console.New(s.reg, s.logger).Run(ctx, console.Options{})
		})
	}

	<-ctx.Done()
	s.logger.Info("shutting down")
	return g.Wait()
}

func (s *server) close() {
	if s.reg != nil {
		_ = s.reg.Close()
	}
	if s.events != nil {
		if err := s.events.Close(); err != nil {
			s.logger.Warn("closing event log", "error", err)
		}
	}
}

func loadLayout(path string) (*layout.Layout, error) {
	if path == "" {
		return layout.Default(), nil
	}
	return layout.Load(path)
}

func layoutName(path string) string {
	if path == "" {
		return "built-in"
	}
	return path
}
