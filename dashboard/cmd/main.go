package main

import (
	"context"
	"net/http"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/viper"

	"github.com/imtaco/stream-dashboard/dashboard/client"
	"github.com/imtaco/stream-dashboard/dashboard/listing"
	"github.com/imtaco/stream-dashboard/dashboard/playback"
	"github.com/imtaco/stream-dashboard/dashboard/transport"
	"github.com/imtaco/stream-dashboard/internal/config"
	"github.com/imtaco/stream-dashboard/internal/httputil"
	"github.com/imtaco/stream-dashboard/internal/log"
	"github.com/imtaco/stream-dashboard/internal/otel"
	"github.com/imtaco/stream-dashboard/internal/workflow"
)

type Config struct {
	App        config.App      `mapstructure:"app"`
	HTTP       httputil.Config `mapstructure:"http"`
	Otel       otel.Config     `mapstructure:"otel"`
	Client     client.Config   `mapstructure:"client"`
	Playback   playback.Config `mapstructure:"playback"`
	BackendURL string          `mapstructure:"backend_url"`
}

func loadConfig() (*Config, error) {
	return config.Load(&Config{}, func(v *viper.Viper) {
		v.SetDefault("backend_url", "http://localhost:3001")

		config.Setup(v, "app")
		otel.Setup(v, "otel")
		httputil.Setup(v, "http")
		client.Setup(v, "client")
		playback.Setup(v, "playback")

		v.SetDefault("otel.service_name", "dashboard")
	})
}

func main() {
	config, err := loadConfig()
	if err != nil {
		log.Fatal("Failed to load configuration", err)
	}

	logger, err := log.NewLogger("dashboard", config.App.LogConfigFile)
	if err != nil {
		log.Fatal("Failed to create logger", err)
	}
	defer func() { _ = logger.Sync() }()

	// global background context
	ctx := context.Background()

	otelShutdown, err := otel.Init(ctx, &config.Otel, logger)
	if err != nil {
		logger.Fatal("Failed to initialize OTEL provider", log.Error(err))
	}

	logger.Info("Starting dashboard",
		log.String("addr", config.HTTP.Addr),
		log.String("backendUrl", config.BackendURL))

	streamAPI := client.New(config.BackendURL, &config.Client, logger.Module("Client"))
	streams := listing.New(streamAPI, logger.Module("Listing"))

	router, err := transport.NewRouter(
		streams,
		config.BackendURL,
		transport.NewMetrics(),
		clockwork.NewRealClock(),
		logger.Module("Router"),
	)
	if err != nil {
		logger.Fatal("Failed to create router", log.Error(err))
	}
	server := httputil.NewServer(&config.HTTP, router.Handler())

	go func() {
		logger.Info("Starting HTTP server", log.String("addr", config.HTTP.Addr))
		if err := server.Listen(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start HTTP server", log.Error(err))
		}
	}()

	// first load, every list request reloads
	if err := streams.Load(ctx); err != nil {
		logger.Warn("Initial stream load failed", log.Error(err))
	}

	var follower *playback.Follower
	if config.Playback.FollowStream != "" {
		follower = playback.NewFollower(&config.Playback, clockwork.NewRealClock(), logger.Module("Playback"))
		follower.Follow(config.Playback.FollowStream)
	}

	logger.Info("Dashboard started")

	cleanup := func(ctx context.Context) {
		if follower != nil {
			follower.Close()
		}
		_ = server.Shutdown(ctx)

		if err := otelShutdown(ctx); err != nil {
			logger.Error("Failed to shutdown OTEL", log.Error(err))
		}
	}
	workflow.WaitGracefulShutdown(ctx, logger.Module("CleanUp"), cleanup, config.App.ShutdownTimeout)
}
