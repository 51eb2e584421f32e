package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"mesaYaRelay/internal/config"
	handler "mesaYaRelay/internal/modules/relay/application/handler"
	usecase "mesaYaRelay/internal/modules/relay/application/usecase"
	"mesaYaRelay/internal/modules/relay/infrastructure"
	transport "mesaYaRelay/internal/modules/relay/interface"
	"mesaYaRelay/internal/platform/broker"
	"mesaYaRelay/internal/platform/natsx"
	"mesaYaRelay/internal/platform/otel"
	"mesaYaRelay/internal/shared/auth"
	"mesaYaRelay/internal/shared/logging"
)

func main() {
	// Attempt to load variables from .env so local runs honour configuration tweaks.
	if err := godotenv.Overload(); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, ".env load warning: %v\n", err)
		}
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}

	logFile, logger, err := setupLogging(cfg.Logging, cfg.Telemetry.ServiceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging setup error: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()
	slog.SetDefault(logger)
	slog.Info("logging initialized", slog.String("directory", cfg.Logging.Directory), slog.String("level", cfg.Logging.Level), slog.String("format", cfg.Logging.Format))
	if cfg.Security.InsecureSecret {
		slog.Warn("JWT_SECRET not set; using the development secret. Authenticated joins are NOT secure.", slog.String("environment", cfg.Environment))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := otel.Setup(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.Endpoint)
	if err != nil {
		slog.Warn("tracing disabled", slog.Any("error", err))
	}
	defer func() {
		flushCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		_ = shutdownTracing(flushCtx)
	}()

	registry := infrastructure.NewGroupRegistry(
		infrastructure.WithChannelCapacity(cfg.Websocket.ChannelCapacity),
		infrastructure.WithIdleTTL(cfg.Groups.IdleTTL),
	)
	go registry.RunSweeper(ctx, cfg.Groups.SweepInterval)
	directory := infrastructure.NewGroupDirectory(registry)

	// Use cases
	gate := auth.NewGate(auth.NewJWTValidator(cfg.Security.JWTSecret, cfg.Security.Leeway), cfg.Security.InsecureSecret)
	joinUC := usecase.NewJoinGroupUseCase(gate)
	ingestUC := usecase.NewIngestUseCase(directory)
	listUC := usecase.NewListGroupsUseCase(directory)

	// Broker ingest: every Kafka topic and NATS subject carries ServerMessage JSON.
	handlers := infrastructure.NewHandlerRegistry()
	for _, topic := range cfg.Kafka.Topics {
		handlers.Register(handler.NewIngestStreamHandler(topic, ingestUC))
	}
	for _, subject := range cfg.NATS.Subjects {
		handlers.Register(handler.NewIngestStreamHandler(subject, ingestUC))
	}
	slog.Info("ingest topics registered", slog.Any("topics", handlers.Topics()))
	broker.StartKafkaConsumers(ctx, handlers, cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.Topics)
	natsSub, err := natsx.Start(ctx, natsx.Config{
		URL:      cfg.NATS.URL,
		Name:     cfg.NATS.Name,
		Subjects: cfg.NATS.Subjects,
		Queue:    cfg.NATS.Queue,
	}, handlers)
	if err != nil {
		slog.Error("nats ingest unavailable", slog.String("url", cfg.NATS.URL), slog.Any("error", err))
	}

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.Logger.SetOutput(log.Writer())
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLoggerWithConfig(requestLoggerConfig(logging.Component("http"))))

	transport.RegisterRoutes(e, transport.Routes{
		Websocket: transport.NewWebsocketHandler(joinUC, registry, infrastructure.SessionConfig{
			OutboundQueue: cfg.Websocket.OutboundQueue,
			PingInterval:  cfg.Websocket.PingInterval,
			IdleTimeout:   cfg.Websocket.IdleTimeout,
			ReadLimit:     cfg.Websocket.ReadLimit,
			InboundRate:   cfg.Websocket.InboundRate,
			InboundBurst:  cfg.Websocket.InboundBurst,
		}),
		IngestUC: ingestUC,
		ListUC:   listUC,
	})

	go func() {
		slog.Info("http server listening", slog.String("address", cfg.Server.Address()))
		if err := e.Start(cfg.Server.Address()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server stopped", slog.Any("error", err))
			cancel()
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-stop:
	case <-ctx.Done():
	}
	slog.Info("shutting down")

	cancel()
	if err := natsSub.Close(); err != nil {
		slog.Warn("nats drain failed", slog.Any("error", err))
	}
	// Closing the registry ends every session, which lets Shutdown finish.
	registry.Close()
	shutdownCtx, done := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer done()
	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Warn("http shutdown incomplete", slog.Any("error", err))
	}
}

func requestLoggerConfig(logger *slog.Logger) middleware.RequestLoggerConfig {
	return middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("ip", v.RemoteIP),
				slog.String("requestId", v.RequestID),
			}
			level := slog.LevelInfo
			if v.Error != nil {
				attrs = append(attrs, slog.Any("error", v.Error))
				level = slog.LevelWarn
			}
			logger.LogAttrs(c.Request().Context(), level, "http request", attrs...)
			return nil
		},
	}
}

func setupLogging(cfg config.LoggingConfig, service string) (*os.File, *slog.Logger, error) {
	dir := cfg.Directory
	if dir == "" {
		dir = "./logs"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	fileName := filepath.Join(dir, time.Now().UTC().Format("2006-01-02")+".log")
	file, err := os.OpenFile(fileName, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}

	writer := io.MultiWriter(os.Stdout, file)
	logger := logging.New(writer, logging.Config{
		Level:     cfg.Level,
		Format:    cfg.Format,
		AddSource: true,
		Service:   service,
	})
	log.SetOutput(writer)
	log.SetFlags(0)
	log.SetPrefix("")

	return file, logger, nil
}
