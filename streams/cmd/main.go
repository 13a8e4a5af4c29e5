package main

import (
	"context"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/viper"
	"golang.org/x/time/rate"

	"github.com/imtaco/stream-dashboard/internal/config"
	"github.com/imtaco/stream-dashboard/internal/httputil"
	"github.com/imtaco/stream-dashboard/internal/log"
	"github.com/imtaco/stream-dashboard/internal/otel"
	intredis "github.com/imtaco/stream-dashboard/internal/redis"
	"github.com/imtaco/stream-dashboard/internal/workflow"
	"github.com/imtaco/stream-dashboard/streams/ingest"
	"github.com/imtaco/stream-dashboard/streams/service"
	"github.com/imtaco/stream-dashboard/streams/store"
	"github.com/imtaco/stream-dashboard/streams/transport"
)

type Config struct {
	App               config.App      `mapstructure:"app"`
	HTTP              httputil.Config `mapstructure:"http"`
	Redis             intredis.Config `mapstructure:"redis"`
	Otel              otel.Config     `mapstructure:"otel"`
	Ingest            ingest.Config   `mapstructure:"ingest"`
	KeyPrefix         string          `mapstructure:"key_prefix"`
	UploadRate        float64         `mapstructure:"upload_rate"`
	UploadBurst       int             `mapstructure:"upload_burst"`
	PlaylistCacheSize int             `mapstructure:"playlist_cache_size"`
}

func loadConfig() (*Config, error) {
	return config.Load(&Config{}, func(v *viper.Viper) {
		v.SetDefault("key_prefix", "streams:")
		v.SetDefault("upload_rate", 1.0)
		v.SetDefault("upload_burst", 4)
		v.SetDefault("playlist_cache_size", 256)

		config.Setup(v, "app")
		intredis.Setup(v, "redis")
		otel.Setup(v, "otel")
		httputil.Setup(v, "http")
		ingest.Setup(v, "ingest")

		v.SetDefault("http.addr", "0.0.0.0:3001")
		// uploads are long lived
		v.SetDefault("app.shutdown_timeout", "30s")
	})
}

func main() {
	config, err := loadConfig()
	if err != nil {
		log.Fatal("Failed to load configuration", err)
	}

	logger, err := log.NewLogger("streams", config.App.LogConfigFile)
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

	logger.Info("Starting stream service",
		log.String("addr", config.HTTP.Addr),
		log.String("redisAddr", config.Redis.Addr),
		log.String("resourceDir", config.Ingest.ResourceDir),
		log.String("segmentBaseUrl", config.Ingest.SegmentBaseURL))

	redisClient := intredis.NewClient(&config.Redis)
	if err := intredis.Ping(redisClient); err != nil {
		logger.Fatal("Failed to connect to redis", log.Error(err))
	}

	forever := intredis.NewForever(
		redisClient,
		100*time.Millisecond,
		5*time.Second,
		logger.Module("Redis"),
	)

	streamStore := store.NewStreamStore(
		forever,
		config.KeyPrefix,
		logger.Module("StreamStore"),
	)

	ingester, err := ingest.NewManager(
		&config.Ingest,
		streamStore,
		clockwork.NewRealClock(),
		logger.Module("Ingest"),
	)
	if err != nil {
		logger.Fatal("Failed to create ingest manager", log.Error(err))
	}

	streamService, err := service.NewStreamService(
		streamStore,
		ingester,
		config.Ingest.ResourceDir,
		config.PlaylistCacheSize,
		logger.Module("StreamSvc"),
	)
	if err != nil {
		logger.Fatal("Failed to create stream service", log.Error(err))
	}

	uploadLimiter := rate.NewLimiter(rate.Limit(config.UploadRate), config.UploadBurst)
	router := transport.NewRouter(streamService, uploadLimiter, logger.Module("Router"))
	server := httputil.NewServer(&config.HTTP, router.Handler())

	go func() {
		logger.Info("Starting HTTP server", log.String("addr", config.HTTP.Addr))
		if err := server.Listen(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start HTTP server", log.Error(err))
		}
	}()

	logger.Info("Stream service started")

	cleanup := func(ctx context.Context) {
		// stopping ingests first lets pending upload handlers return
		if err := ingester.Close(ctx); err != nil {
			logger.Error("Failed to stop ingests", log.Error(err))
		}
		_ = server.Shutdown(ctx)

		if err := redisClient.Close(); err != nil {
			logger.Error("Failed to close redis client", log.Error(err))
		}
		if err := otelShutdown(ctx); err != nil {
			logger.Error("Failed to shutdown OTEL", log.Error(err))
		}
	}
	workflow.WaitGracefulShutdown(ctx, logger.Module("CleanUp"), cleanup, config.App.ShutdownTimeout)
}
