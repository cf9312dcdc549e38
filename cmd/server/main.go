package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/BerylCAtieno/radiant-launch-agent/internal/a2a"
	"github.com/BerylCAtieno/radiant-launch-agent/internal/api"
	"github.com/BerylCAtieno/radiant-launch-agent/internal/campaign"
	"github.com/BerylCAtieno/radiant-launch-agent/internal/config"
	"github.com/BerylCAtieno/radiant-launch-agent/internal/content"
	"github.com/BerylCAtieno/radiant-launch-agent/internal/deploy"
	"github.com/BerylCAtieno/radiant-launch-agent/internal/events"
	"github.com/BerylCAtieno/radiant-launch-agent/internal/leads"
	"github.com/BerylCAtieno/radiant-launch-agent/internal/logging"
	"github.com/BerylCAtieno/radiant-launch-agent/internal/render"
)

func main() {
	os.Exit(run())
}

// run wires the service and blocks until shutdown. It returns the process
// exit code so deferred cleanup runs before main exits.
func run() int {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on OS environment variables")
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, warnings := config.Load(configPath)

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Development)
	if err != nil {
		log.Printf("Failed to initialize logger: %v", err)
		return 1
	}
	defer logger.Sync() //nolint:errcheck

	for _, w := range warnings {
		logger.Warn("Configuration", zap.String("warning", w))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	publisher := newPublisher(cfg, logger)
	defer publisher.Close()

	syncer, closeLeads := newSyncer(ctx, cfg, publisher, logger)
	defer closeLeads()

	model, err := content.NewModel(cfg.LLM, cfg.LLMTimeout())
	if err != nil {
		logger.Warn("Language model unavailable, pages will use default copy", zap.Error(err))
	} else if c, ok := model.(*content.GeminiClient); ok {
		defer c.Close()
	}
	generator := content.NewGenerator(model, cfg, content.WithLogger(logger.Named("content")))

	orchestrator := campaign.New(
		syncer,
		generator,
		render.Default,
		deploy.NewAdapter(cfg, deploy.WithLogger(logger.Named("deploy"))),
		campaign.WithEvents(publisher),
		campaign.WithLogger(logger.Named("campaign")),
		campaign.WithObserver(func(runID string, s campaign.State) {
			logger.Debug("Campaign state", zap.String("run_id", runID), zap.String("state", string(s)))
		}),
	)

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(
		a2a.NewA2AHandler(orchestrator, logger.Named("a2a")),
		api.NewHandler(orchestrator, syncer, logger.Named("api")),
		logger.Named("http"),
	)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Radiant Launch Agent starting",
		zap.String("port", cfg.Server.Port),
		zap.String("crm_backend", cfg.CRM.Backend),
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.Bool("model", generator.HasModel()))
	logger.Info("Agent card available", zap.String("url", "http://localhost:"+cfg.Server.Port+"/.well-known/agent.json"))
	logger.Info("A2A endpoint available", zap.String("url", "http://localhost:"+cfg.Server.Port+"/a2a/campaign"))

	if err := serve(ctx, srv, logger); err != nil {
		logger.Error("Server stopped", zap.Error(err))
		return 1
	}
	return 0
}

// serve runs srv until ctx is cancelled or the listener fails. A listener
// error is returned to the caller rather than ending the process.
func serve(ctx context.Context, srv *http.Server, logger *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}

func newPublisher(cfg *config.Config, logger *zap.Logger) events.Publisher {
	if cfg.Events.AMQPURL == "" {
		return events.Nop{}
	}
	p, err := events.NewAMQPPublisher(cfg.Events.AMQPURL, cfg.Events.Exchange)
	if err != nil {
		logger.Warn("Event broker unavailable, events disabled", zap.Error(err))
		return events.Nop{}
	}
	logger.Info("Publishing events", zap.String("exchange", cfg.Events.Exchange))
	return p
}

// newSyncer picks the configured lead backend. The mock store is always
// loaded since it answers whenever the primary backend fails.
func newSyncer(ctx context.Context, cfg *config.Config, publisher events.Publisher, logger *zap.Logger) (*leads.Syncer, func()) {
	seed, err := leads.LoadFile(cfg.CRM.LeadsFile)
	if err != nil {
		logger.Warn("Mock CRM data unavailable, starting empty", zap.Error(err))
	}
	local := leads.NewMemoryStore(seed)

	opts := []leads.Option{
		leads.WithEvents(publisher),
		leads.WithTimeout(cfg.CRMTimeout()),
		leads.WithLogger(logger.Named("leads")),
	}
	closer := func() {}

	var primary leads.Store
	switch cfg.CRM.Backend {
	case "mcp":
		primary = leads.NewMCPStore(cfg.MCPURL, cfg.CRMTimeout())
		opts = append(opts, leads.WithPrimaryName("mcp"))
	case "postgres":
		openCtx, cancel := context.WithTimeout(ctx, cfg.CRMTimeout())
		defer cancel()
		pg, err := leads.OpenPostgres(openCtx, cfg.CRM.PostgresDSN)
		if err != nil {
			logger.Warn("Postgres CRM unavailable, using mock store", zap.Error(err))
			break
		}
		primary = pg
		closer = func() { pg.Close() }
		opts = append(opts, leads.WithPrimaryName("postgres"))
	}

	return leads.NewSyncer(primary, local, opts...), closer
}
