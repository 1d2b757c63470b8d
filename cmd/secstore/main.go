package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/secstore/secstore/internal/api"
	"github.com/secstore/secstore/internal/config"
	"github.com/secstore/secstore/internal/decode"
	"github.com/secstore/secstore/internal/ingest"
	"github.com/secstore/secstore/internal/logger"
	"github.com/secstore/secstore/internal/query"
	"github.com/secstore/secstore/internal/session"
	"github.com/secstore/secstore/internal/storage"
)

// Version is set at build time
var Version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Log.Level, cfg.Log.Format)
	log.Info().Str("version", Version).Msg("Starting secstore...")

	backend, err := newBackend(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize storage backend")
	}
	defer backend.Close()

	log.Info().
		Str("backend", backend.Type()).
		Msg("Storage backend initialized")

	store := session.NewStore(backend, logger.Get("session"))
	registry := decode.NewRegistry(cfg.Ingest.SampleSize, logger.Get("decode"))
	ingester := ingest.NewIngester(store, cfg.Ingest.ChunkSize, logger.Get("ingest"))
	engine := query.NewEngine(store, cfg.Query.MaxConcurrentChunkReads, logger.Get("query"))

	serverCfg := &api.ServerConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ReadTimeout:     time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:    time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:     120 * time.Second,
		ShutdownTimeout: 30 * time.Second,
		MaxUploadSize:   cfg.Server.MaxUploadSize,
	}
	server := api.NewServer(serverCfg, store, registry, ingester, engine, logger.Get("api"))

	if err := server.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start server")
	}

	server.WaitForShutdown(serverCfg.ShutdownTimeout)
}

func newBackend(cfg *config.Config) (storage.Backend, error) {
	switch cfg.Storage.Backend {
	case "local":
		return storage.NewLocalBackend(cfg.Storage.LocalPath, logger.Get("storage"))
	case "s3":
		return storage.NewS3Backend(&storage.S3Config{
			Bucket:    cfg.Storage.S3Bucket,
			Region:    cfg.Storage.S3Region,
			Endpoint:  cfg.Storage.S3Endpoint,
			AccessKey: cfg.Storage.S3AccessKey,
			SecretKey: cfg.Storage.S3SecretKey,
			UseSSL:    cfg.Storage.S3UseSSL,
			PathStyle: cfg.Storage.S3PathStyle,
		}, logger.Get("storage"))
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
