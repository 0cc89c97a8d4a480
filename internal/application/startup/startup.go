// Package startup prepares the preview host
package startup

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/AtRiskMedia/tractstack-storyblok/internal/application/container"
	domain "github.com/AtRiskMedia/tractstack-storyblok/internal/domain/entities/integration"
	"github.com/AtRiskMedia/tractstack-storyblok/internal/infrastructure/bridge"
	"github.com/AtRiskMedia/tractstack-storyblok/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/tractstack-storyblok/internal/infrastructure/security"
	"github.com/AtRiskMedia/tractstack-storyblok/internal/presentation/http/server"
	"github.com/AtRiskMedia/tractstack-storyblok/pkg/config"
)

const shutdownTimeout = 30 * time.Second

// NewLogger builds the channeled logger from the environment settings.
func NewLogger() (*logging.ChanneledLogger, error) {
	cfg := logging.DefaultLoggerConfig()
	cfg.DefaultLevel = logging.ParseLevel(config.LogLevel)
	cfg.JSONFormat = config.LogJSON
	cfg.OutputToFile = config.LogToFile
	cfg.LogDirectory = config.LogDir
	return logging.NewChanneledLogger(cfg)
}

// NewContainer wires the container from the environment settings. A random
// session secret is generated when JWT_SECRET is unset.
func NewContainer(logger *logging.ChanneledLogger) (*container.Container, error) {
	jwtSecret := config.JWTSecret
	if jwtSecret == "" && config.PreviewToken != "" {
		generated, err := security.GenerateSecureKey(64)
		if err != nil {
			return nil, err
		}
		jwtSecret = generated
		logger.Startup().Warn("JWT_SECRET not set, preview sessions will not survive a restart")
	}

	return container.NewContainer(logger, container.PreviewSettings{
		PreviewToken:   config.PreviewToken,
		JWTSecret:      jwtSecret,
		WebhookSecret:  config.WebhookSecret,
		DefaultVersion: config.DefaultVersion,
		AllowedOrigins: strings.Split(config.CORSAllowedOrigins, ","),
	}), nil
}

// Build runs the first configuration pass from the options file and environment.
func Build(ctx context.Context, c *container.Container) (domain.IntegrationOptions, error) {
	opts, err := config.ResolveOptions(config.OptionsFile)
	if err != nil {
		return opts, fmt.Errorf("failed to load integration options: %w", err)
	}
	if err := c.Pipeline.Rebuild(ctx, opts, c.IntegrationOptions...); err != nil {
		return opts, err
	}
	return opts, nil
}

// Initialize performs the startup sequence and serves until ctx is cancelled.
func Initialize(ctx context.Context) error {
	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	start := time.Now().UTC()

	logger, err := NewLogger()
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer logger.Close()

	logger.Startup().Info("\033[32mtractstack-storyblok\033[0m preview host starting")

	// Step 1: Container
	phaseStart := time.Now()
	appContainer, err := NewContainer(logger)
	if err != nil {
		return fmt.Errorf("failed to create container: %w", err)
	}
	defer appContainer.Hub.Close()
	logger.LogStartupPhase("container", time.Since(phaseStart), true, nil)

	// Step 2: First build. Failures here are fatal.
	phaseStart = time.Now()
	if _, err := Build(ctx, appContainer); err != nil {
		logger.LogStartupPhase("build", time.Since(phaseStart), false, map[string]any{"error": err.Error()})
		return err
	}
	logger.LogStartupPhase("build", time.Since(phaseStart), true, map[string]any{"buildId": appContainer.Pipeline.BuildID()})

	// Step 3: Live-preview relay. Published and change events reload content.
	pending := bridge.Attach(ctx, appContainer.Hub.Loader(), bridge.ReloadOnChange(appContainer.Pipeline), logger.Bridge())
	if _, err := pending.Wait(ctx); err != nil {
		return fmt.Errorf("failed to attach live-preview bridge: %w", err)
	}

	httpServer := server.New(config.Port, appContainer)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(httpServer.Start)

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Stop(shutdownCtx)
	})

	watcher := config.NewOptionsWatcher(config.OptionsFile, config.OptionsReloadDebounce,
		func(ctx context.Context, opts domain.IntegrationOptions) error {
			return appContainer.Pipeline.Rebuild(ctx, opts, appContainer.IntegrationOptions...)
		}, logger.Integration())
	g.Go(func() error {
		if err := watcher.Run(gctx); err != nil {
			logger.Startup().Warn("Options watcher unavailable", "error", err.Error())
		}
		return nil
	})

	logger.Startup().Info("Application startup complete",
		"totalDuration", time.Since(start),
		"port", config.Port,
		"buildId", appContainer.Pipeline.BuildID())

	err = g.Wait()
	logger.Shutdown().Info("Application shutdown complete", "totalUptime", time.Since(start))
	return err
}
