package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	app "github.com/courierhq/dispatch"
	"github.com/courierhq/dispatch/internal/aggregator"
	"github.com/courierhq/dispatch/internal/approval"
	"github.com/courierhq/dispatch/internal/carrier"
	"github.com/courierhq/dispatch/internal/carrier/mock"
	"github.com/courierhq/dispatch/internal/carrier/velocity"
	"github.com/courierhq/dispatch/internal/config"
	"github.com/courierhq/dispatch/internal/intent"
	"github.com/courierhq/dispatch/internal/labels"
	"github.com/courierhq/dispatch/internal/server"
	"github.com/courierhq/dispatch/internal/workflow"
	"github.com/courierhq/dispatch/pkg/log"
)

type dispatchd struct {
	cfg        *config.Config
	runs       workflow.RunStore
	interrupts approval.InterruptStore
	archive    *labels.Archive
	registry   *carrier.Registry
	gate       *approval.Gate
	hub        *workflow.Hub
	engine     *workflow.Engine
	apiServer  *server.Server
	httpServer *http.Server
	closers    []io.Closer
	quit       chan os.Signal
}

var (
	ErrCreatePolicy = errors.New("failed to compile approval policy")
	ErrOpenArchive  = errors.New("failed to open label archive")
	ErrNoProviders  = errors.New("no provider adapters enabled")
)

var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

func main() {
	cfg := config.NewDefaultConfig()
	if err := cfg.LoadFromEnv(); err != nil {
		slog.Error("Invalid configuration", log.Error(err))
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", log.Error(err))
		os.Exit(1)
	}

	s := &dispatchd{
		cfg:  cfg,
		quit: make(chan os.Signal, 1),
	}
	s.setupLogging()

	if err := s.run(); err != nil {
		slog.Error("Failed to start application", log.Error(err))
		os.Exit(1)
	}
}

func (s *dispatchd) run() error {
	if err := s.initializeStores(); err != nil {
		return err
	}

	if err := s.initializeEngine(); err != nil {
		return err
	}
	s.startServer()

	signal.Notify(s.quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(s.quit)
	<-s.quit

	s.shutdown()
	return nil
}

func (s *dispatchd) setupLogging() {
	level, ok := logLevels[s.cfg.LogLevel]
	if !ok {
		level = slog.LevelInfo
	}

	env := os.Getenv("ENV")
	logger := log.NewWithLevel(app.Name, env, app.Version, level)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level)

	slog.Info("Dispatch agent starting",
		slog.String("log_level", s.cfg.LogLevel))

	slog.Info("Configuration loaded",
		slog.String("run_redis_addr", s.cfg.RunStore.Addr),
		slog.String("interrupt_redis_addr", s.cfg.InterruptStore.Addr),
		slog.String("default_strategy", string(s.cfg.DefaultStrategy)),
		slog.Int("max_hops", s.cfg.MaxHops),
		slog.Float64("auto_approval_limit", s.cfg.AutoApprovalLimit),
		slog.String("api_host", s.cfg.APIHost),
		slog.Int("api_port", s.cfg.APIPort))
}

func (s *dispatchd) initializeStores() error {
	if s.cfg.RunStore.Addr != "" {
		store := workflow.NewRedisRunStore(s.cfg.RunStore)
		s.runs = store
		s.closers = append(s.closers, store)
	} else {
		s.runs = workflow.NewMemoryRunStore()
	}

	if s.cfg.InterruptStore.Addr != "" {
		store := approval.NewRedisStore(s.cfg.InterruptStore)
		s.interrupts = store
		s.closers = append(s.closers, store)
	} else {
		s.interrupts = approval.NewMemoryStore()
	}

	if s.cfg.LabelBucketURL != "" {
		archive, err := labels.Open(
			context.Background(), s.cfg.LabelBucketURL,
			s.cfg.RunStore.Prefix,
		)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrOpenArchive, err)
		}
		s.archive = archive
		s.closers = append(s.closers, archive)
	}

	return nil
}

func (s *dispatchd) initializeEngine() error {
	s.registry = carrier.NewRegistry()
	if s.cfg.Providers.MockEnabled {
		s.registry.Register(mock.New())
	}
	if s.cfg.Providers.Velocity.Enabled {
		s.registry.Register(velocity.New(
			s.cfg.Providers.Velocity, s.cfg.AdapterTimeout,
		))
	}
	if s.registry.Len() == 0 {
		return ErrNoProviders
	}

	policy, err := approval.NewPolicy(
		s.cfg.ApprovalPolicy, s.cfg.AutoApprovalLimit,
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCreatePolicy, err)
	}
	s.gate = approval.NewGate(s.interrupts, policy)

	var classifier intent.Classifier = intent.KeywordClassifier{}
	if s.cfg.IntentEndpoint != "" {
		classifier = intent.NewHTTPClassifier(
			s.cfg.IntentEndpoint, s.cfg.AdapterTimeout,
		)
	}

	graph := workflow.NewLogisticsGraph(workflow.Deps{
		Aggregator: aggregator.New(s.registry, s.cfg.AdapterTimeout),
		Gate:       s.gate,
		Classifier: classifier,
		Archive:    s.archive,
		Strategy:   s.cfg.DefaultStrategy,
	})

	s.hub = workflow.NewHub()
	s.engine = workflow.NewEngine(graph, s.runs, s.hub, s.cfg.MaxHops)
	return nil
}

func (s *dispatchd) startServer() {
	s.apiServer = server.NewServer(
		s.engine, s.gate, s.registry, s.hub, s.cfg,
	)
	mux := s.apiServer.SetupRoutes()

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.cfg.APIHost, s.cfg.APIPort),
		Handler: mux,
	}

	go func() {
		slog.Info("HTTP server starting",
			slog.String("addr", s.httpServer.Addr))
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", log.Error(err))
		}
	}()
}

func (s *dispatchd) shutdown() {
	slog.Info("Shutting down")

	ctx, cancel := context.WithTimeout(
		context.Background(), s.cfg.ShutdownTimeout,
	)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		slog.Error("Shutdown failed", log.Error(err))
	}

	s.apiServer.CloseWebSockets()
	s.hub.Close()

	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			slog.Error("Store shutdown failed", log.Error(err))
		}
	}

	slog.Info("Server exited")
}
