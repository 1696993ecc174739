package main

import (
	"context"
	"fmt"
	"io"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/hakimbdev/TeleMedicineAIHelper2-sub000/internal/config"
	"github.com/hakimbdev/TeleMedicineAIHelper2-sub000/internal/domain/interview"
	"github.com/hakimbdev/TeleMedicineAIHelper2-sub000/internal/domain/knowledge"
	"github.com/hakimbdev/TeleMedicineAIHelper2-sub000/internal/domain/mention"
	"github.com/hakimbdev/TeleMedicineAIHelper2-sub000/internal/domain/reasoning"
	"github.com/hakimbdev/TeleMedicineAIHelper2-sub000/internal/platform/db"
	"github.com/hakimbdev/TeleMedicineAIHelper2-sub000/internal/platform/logging"
)

// app carries what every subcommand needs: config, logger and lazily opened
// connections.
type app struct {
	cfg     *config.Config
	logger  zerolog.Logger
	closers []io.Closer
	pool    *pgxpool.Pool
	redis   *redis.Client
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, logCloser := logging.New(logging.Options{
		Level:       cfg.LogLevel,
		Development: cfg.IsDev(),
		File:        cfg.LogFile,
		MaxSizeMB:   cfg.LogMaxSizeMB,
		MaxBackups:  cfg.LogMaxBackups,
		MaxAgeDays:  cfg.LogMaxAgeDays,
	})
	return &app{cfg: cfg, logger: logger, closers: []io.Closer{logCloser}}, nil
}

func (a *app) close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i].Close()
	}
}

// database opens the pool on first use. It fails when DATABASE_URL is unset.
func (a *app) database(ctx context.Context) (*pgxpool.Pool, error) {
	if a.pool != nil {
		return a.pool, nil
	}
	if a.cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}
	pool, err := db.NewPool(ctx, db.PoolConfig{
		URL:      a.cfg.DatabaseURL,
		MaxConns: a.cfg.DBMaxConns,
		MinConns: a.cfg.DBMinConns,
	})
	if err != nil {
		return nil, err
	}
	a.pool = pool
	a.logger.Info().Msg("connected to database")
	return pool, nil
}

func (a *app) knowledgeTable(ctx context.Context) (*knowledge.Table, error) {
	var pool *pgxpool.Pool
	if a.cfg.UsesPostgresKnowledge() {
		p, err := a.database(ctx)
		if err != nil {
			return nil, err
		}
		pool = p
	}
	table, err := knowledge.Load(ctx, a.cfg.KnowledgeSource, pool)
	if err != nil {
		return nil, fmt.Errorf("load knowledge table: %w", err)
	}
	a.logger.Info().
		Str("source", a.cfg.KnowledgeSource).
		Int("concepts", len(table.Concepts())).
		Int("conditions", len(table.Conditions())).
		Msg("knowledge table loaded")
	return table, nil
}

func (a *app) limits() interview.Limits {
	return interview.Limits{
		MaxQuestions:       a.cfg.InterviewMaxQuestions,
		MaxPresentEvidence: a.cfg.InterviewMaxPresent,
	}
}

// extractor uses the hosted model when an API key is configured and the local
// matcher otherwise.
func (a *app) extractor(table *knowledge.Table) mention.Extractor {
	if a.cfg.OpenAIAPIKey == "" {
		return mention.NewLocal(table)
	}
	a.logger.Info().Str("model", a.cfg.OpenAIModel).Msg("using model-backed mention extraction")
	return mention.NewLLMExtractor(mention.LLMConfig{
		APIKey:  a.cfg.OpenAIAPIKey,
		Model:   a.cfg.OpenAIModel,
		BaseURL: a.cfg.OpenAIBaseURL,
	}, table, a.logger)
}

// reasoner selects the reasoning backend and wraps its concept search with a
// cache, shared through redis when REDIS_URL is set.
func (a *app) reasoner(ctx context.Context, table *knowledge.Table) (interview.Reasoner, error) {
	r, kind, err := reasoning.New(ctx, reasoning.Config{
		Remote: reasoning.RemoteConfig{
			BaseURL:    a.cfg.ReasonerURL,
			AppID:      a.cfg.ReasonerAppID,
			AppKey:     a.cfg.ReasonerAppKey,
			Timeout:    a.cfg.ReasonerTimeout,
			SessionTTL: a.cfg.InterviewTTL,
		},
		Fallback: a.cfg.ReasonerFallback,
		Limits:   a.limits(),
	}, table, a.logger)
	if err != nil {
		return nil, err
	}

	var cache reasoning.SearchCache = reasoning.NewMemoryCache(a.cfg.SearchCacheTTL)
	if a.cfg.RedisURL != "" {
		opts, err := redis.ParseURL(a.cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		a.redis = redis.NewClient(opts)
		cache = reasoning.NewRedisCache(a.redis, a.cfg.SearchCacheTTL, a.logger)
	}
	a.logger.Info().Str("reasoner", kind).Bool("shared_search_cache", a.redis != nil).Msg("reasoner ready")
	return reasoning.NewCachedSearch(r, cache), nil
}
