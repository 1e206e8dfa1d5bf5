// Package bootstrap provides dependency initialization for the slidecast API.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/maauso/slidecast/internal/audio"
	"github.com/maauso/slidecast/internal/config"
	"github.com/maauso/slidecast/internal/job"
	"github.com/maauso/slidecast/internal/media"
	"github.com/maauso/slidecast/internal/pipeline"
	"github.com/maauso/slidecast/internal/storage"
)

// Dependencies holds all initialized dependencies for the HTTP server.
type Dependencies struct {
	RenderService *job.RenderService

	closers []func() error
}

// Close releases connections opened by NewDependencies.
func (d *Dependencies) Close() error {
	var first error
	for _, c := range d.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// NewPipeline wires the ffmpeg-backed stages into a pipeline.
func NewPipeline(ffmpegPath string, concurrency int, logger *slog.Logger) *pipeline.Pipeline {
	settings := media.DefaultSettings()
	transcoder := media.NewFFmpegTranscoder(ffmpegPath, logger)

	return pipeline.New(
		audio.NewFFmpegNormalizer(transcoder, settings),
		media.NewImageSanitizer(),
		media.NewSegmentMuxer(transcoder, settings),
		media.NewConcatenator(transcoder, settings),
		pipeline.WithConcurrency(concurrency),
		pipeline.WithLogger(logger),
	)
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{}

	store, err := initStorage(cfg, logger)
	if err != nil {
		return nil, err
	}

	repo, err := deps.initRepository(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	renderer := NewPipeline(cfg.FFmpegPath, cfg.PipelineConcurrency, logger)

	deps.RenderService = job.NewRenderService(
		repo,
		renderer,
		store,
		logger,
		job.WithProber(media.NewProber(cfg.FFprobePath)),
		job.WithMaxPairs(cfg.MaxPairs),
	)
	return deps, nil
}

// initRepository returns a Redis-backed repository when REDIS_ADDR is set
// and an in-memory one otherwise.
func (d *Dependencies) initRepository(ctx context.Context, cfg *config.Config, logger *slog.Logger) (job.Repository, error) {
	ttl := time.Duration(cfg.JobTTLHours) * time.Hour
	if !cfg.RedisEnabled() {
		logger.Info("in-memory job repository configured", slog.Duration("retention", ttl))
		return job.NewMemoryRepository(job.WithRetention(ttl)), nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connect to redis %s: %w", cfg.RedisAddr, err)
	}
	d.closers = append(d.closers, rdb.Close)

	logger.Info("redis job repository configured",
		slog.String("addr", cfg.RedisAddr),
		slog.Duration("ttl", ttl),
	)
	return job.NewRedisRepository(rdb, job.WithTTL(ttl)), nil
}

// initStorage creates the appropriate storage backend based on configuration.
func initStorage(cfg *config.Config, logger *slog.Logger) (storage.Storage, error) {
	if cfg.S3Enabled() {
		s3Cfg := storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		}
		s3Store, err := storage.NewS3Storage(cfg.TempDir, cfg.OutputDir, s3Cfg)
		if err != nil {
			return nil, fmt.Errorf("create S3 storage: %w", err)
		}
		logger.Info("S3 storage configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
			slog.String("output_dir", cfg.OutputDir),
		)
		return s3Store, nil
	}

	localStore, err := storage.NewLocalStorage(cfg.TempDir, cfg.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("create local storage: %w", err)
	}
	logger.Info("local storage configured",
		slog.String("temp_dir", localStore.TempDir()),
		slog.String("output_dir", localStore.OutputDir()),
	)
	return localStore, nil
}
