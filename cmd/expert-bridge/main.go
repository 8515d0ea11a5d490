// Package main is the entry point for the expert-bridge server.
//
// By default the bridge speaks MCP over stdio, which is how coding
// assistants attach to it. With -http it serves the same operations as a
// JSON API instead.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/externalbrain/expert-bridge/internal/adapter"
	"github.com/externalbrain/expert-bridge/internal/config"
	"github.com/externalbrain/expert-bridge/internal/contextfile"
	"github.com/externalbrain/expert-bridge/internal/dispatch"
	"github.com/externalbrain/expert-bridge/internal/domain"
	"github.com/externalbrain/expert-bridge/internal/handler"
	"github.com/externalbrain/expert-bridge/internal/security"
	"github.com/externalbrain/expert-bridge/internal/ui"
)

const version = "1.0.0"

func main() {
	httpMode := flag.Bool("http", false, "serve the HTTP API instead of MCP stdio")
	configPath := flag.String("config", "", "path to config.yaml (optional)")
	flag.Parse()

	// Keys are commonly kept in a .env next to the binary during local use.
	// A missing file is fine.
	_ = godotenv.Load()

	var cfg *config.Configuration
	var err error
	if *configPath != "" {
		cfg, err = config.GetConfigWithPath(*configPath)
	} else {
		cfg, err = config.GetConfig()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg)

	registry := domain.NewRegistry(cfg.Aliases)
	keyring := domain.KeyringFromEnv()

	validator := contextfile.NewValidator(
		contextfile.WithMaxFileBytes(int64(cfg.Context.MaxFileBytes)),
		contextfile.WithSniffBytes(cfg.Context.SniffBytes),
		contextfile.WithMaxNonPrintableRatio(cfg.Context.MaxNonPrintableRatio),
	)
	formatter := contextfile.NewFormatter(cfg.Context.MaxTotalChars)

	dispatcher := dispatch.NewDispatcher(
		registry,
		keyring,
		validator,
		formatter,
		dispatch.WithLogger(logger),
		dispatch.WithCallTimeout(cfg.ProviderTimeout()),
		dispatch.WithRetryBackoff(cfg.RetryBackoff()),
		dispatch.WithAskTemperature(cfg.Chat.AskTemperature),
		dispatch.WithDraftTemperature(cfg.Chat.DraftTemperature),
		dispatch.WithClientFactory(clientFactory(cfg)),
	)

	logger.Info("expert bridge initialized",
		slog.Int("aliases", registry.Size()),
		slog.Any("providers_with_keys", keyring.ConfiguredProviders()),
	)

	if *httpMode {
		runHTTP(cfg, dispatcher, registry, keyring, logger)
		return
	}

	runStdio(dispatcher, registry, keyring, logger)
}

// clientFactory binds the configured endpoints and timeout into per-request
// adapter construction.
func clientFactory(cfg *config.Configuration) dispatch.ClientFactory {
	return func(provider domain.ProviderType, apiKey string) (adapter.Client, error) {
		opts := []adapter.Option{
			adapter.WithTimeout(cfg.ProviderTimeout()),
		}
		if baseURL := cfg.BaseURLFor(provider); baseURL != "" {
			opts = append(opts, adapter.WithBaseURL(baseURL))
		}
		if provider == domain.ProviderOpenRouter {
			opts = append(opts, adapter.WithAttribution(cfg.Providers.Referer, cfg.Providers.Title))
		}
		return adapter.NewClient(provider, apiKey, opts...)
	}
}

// runStdio serves MCP over stdin/stdout. All human-facing output goes to
// stderr; stdout carries only protocol frames.
func runStdio(dispatcher *dispatch.Dispatcher, registry *domain.Registry, keyring *domain.Keyring, logger *slog.Logger) {
	ui.PrintMiniBanner()
	printProviderStatus(keyring)

	s := mcpserver.NewMCPServer("expert-bridge", version)
	handler.NewToolHandler(dispatcher, registry, logger).RegisterTools(s)

	logger.Info("serving MCP over stdio", slog.Int("aliases", registry.Size()))

	if err := mcpserver.ServeStdio(s); err != nil {
		logger.Error("stdio server error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("stdio session ended")
}

// runHTTP serves the JSON API with graceful shutdown.
func runHTTP(cfg *config.Configuration, dispatcher *dispatch.Dispatcher, registry *domain.Registry, keyring *domain.Keyring, logger *slog.Logger) {
	ui.PrintBanner()
	printProviderStatus(keyring)
	printExpertTable(cfg)

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(handler.RecoveryMiddleware(logger))
	router.Use(handler.CORSMiddleware())
	router.Use(handler.LoggingMiddleware(logger))

	bridgeHandler := handler.NewBridgeHandler(dispatcher, registry, handler.WithHandlerLogger(logger))
	bridgeHandler.RegisterRoutes(router)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
	}

	go func() {
		logger.Info("server starting", slog.String("address", addr))
		ui.PrintStartupInfo(cfg.Server.Host, cfg.Server.Port, registry.Size())

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("shutdown signal received", slog.String("signal", sig.String()))
	ui.PrintShutdown()

	shutdownTimeout := time.Duration(cfg.Server.ShutdownTimeoutSeconds) * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
	ui.PrintGoodbye()
}

func printProviderStatus(keyring *domain.Keyring) {
	for _, provider := range domain.KnownProviders {
		ui.PrintProviderStatus(string(provider), keyring.HasKey(provider))
	}
}

func printExpertTable(cfg *config.Configuration) {
	rows := make([][2]string, 0, len(cfg.Aliases))
	for _, alias := range cfg.Aliases {
		rows = append(rows, [2]string{
			alias.Name,
			ui.TruncateModel(alias.ModelID, 15),
		})
	}
	ui.PrintExpertTable(rows)
}

// setupLogger creates the structured logger. Output always goes to stderr:
// the MCP transport owns stdout. Every record passes through the redactor so
// API keys cannot leak into logs.
func setupLogger(cfg *config.Configuration) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	var inner slog.Handler
	if cfg.Logging.Format == "text" {
		inner = slog.NewTextHandler(os.Stderr, opts)
	} else {
		inner = slog.NewJSONHandler(os.Stderr, opts)
	}

	logger := slog.New(security.NewRedactedHandler(inner))
	slog.SetDefault(logger)

	return logger
}
