package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/haleth-io/vectorpipe/internal/chunker"
	"github.com/haleth-io/vectorpipe/internal/config"
	"github.com/haleth-io/vectorpipe/internal/convert"
	"github.com/haleth-io/vectorpipe/internal/core"
	"github.com/haleth-io/vectorpipe/internal/core/cache"
	db "github.com/haleth-io/vectorpipe/internal/core/database"
	"github.com/haleth-io/vectorpipe/internal/core/llm"
	objectclient "github.com/haleth-io/vectorpipe/internal/core/object-client"
	"github.com/haleth-io/vectorpipe/internal/dedupe"
	"github.com/haleth-io/vectorpipe/internal/embed"
	"github.com/haleth-io/vectorpipe/internal/jobs"
	"github.com/haleth-io/vectorpipe/internal/rag"
	"github.com/haleth-io/vectorpipe/internal/search"
	"github.com/haleth-io/vectorpipe/internal/tokens"
)

// App wires the pipeline together: database, object storage, conversion,
// chunking, embedding, the job worker and the HTTP surface.
type App struct {
	DBClient core.DbClient
	Queue    *jobs.Queue
	Server   *Server

	redisCache *cache.RedisCache
	llm        *llm.GeminiLLM
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	appCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	dbClient, err := db.NewDatabaseClient(appCtx, cfg)
	if err != nil {
		return nil, err
	}
	log.Println("Database initialized and ready.")

	// Object storage, the conversion cache and the LLM provider have no
	// dependencies on each other, so they connect concurrently.
	var (
		objClient   core.ObjectClient
		redisCache  *cache.RedisCache
		llmProvider *llm.GeminiLLM
	)
	g, gCtx := errgroup.WithContext(appCtx)
	g.Go(func() error {
		var err error
		objClient, err = objectclient.NewS3Client(gCtx, cfg)
		if err == nil {
			log.Println("Object client initialized and ready.")
		}
		return err
	})
	g.Go(func() error {
		// The conversion cache is optional: without Redis every upload
		// just converts from scratch.
		if cfg.RedisURL == "" {
			return nil
		}
		rc, err := cache.NewRedisCache(gCtx, cfg.RedisURL)
		if err != nil {
			log.Printf("WARN: redis unavailable, conversion cache disabled: %v", err)
			return nil
		}
		redisCache = rc
		log.Println("Conversion cache connected.")
		return nil
	})
	g.Go(func() error {
		var err error
		llmProvider, err = llm.NewGeminiLLM(gCtx, cfg.AIAPIKey, cfg.GenModel)
		if err != nil {
			return fmt.Errorf("couldn't initialize the LLM provider: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var cacheBackend core.Cache
	if redisCache != nil {
		cacheBackend = redisCache
	}

	registry := convert.NewRegistry()
	convCache := convert.NewConversionCache(cacheBackend, time.Duration(cfg.CacheTTLDays)*24*time.Hour)
	converter := convert.NewService(registry, convCache)

	validator := dedupe.NewValidator(dbClient)

	chunkSvc := chunker.New(tokens.NewEstimator())

	keys, err := embed.NewKeyResolver(dbClient, cfg.KeySealSecret, cfg.AIAPIKey)
	if err != nil {
		return nil, err
	}
	factory := func(ctx context.Context, apiKey string) (core.EmbeddingProvider, error) {
		return llm.NewGeminiEmbedder(ctx, apiKey, cfg.EmbedModel)
	}
	retry := embed.DefaultRetryPolicy(func(err error) bool {
		return errors.Is(err, core.ErrRateLimited)
	})
	generator := embed.NewGenerator(factory, keys, cfg.EmbedModel, cfg.EmbedBatchSize, retry)
	store := embed.NewStore(dbClient)

	queue := jobs.NewQueue(dbClient, cfg.MaxJobAttempts)
	worker := jobs.NewWorker(queue, dbClient, chunkSvc, generator, store, cfg.WorkerConcurrency, cfg.JobRatePerMinute, cfg.ChunkSize, cfg.ChunkOverlap)
	if err := worker.Start(ctx); err != nil {
		return nil, fmt.Errorf("start worker: %w", err)
	}
	if recovered, err := queue.Recover(appCtx); err != nil {
		log.Printf("WARN: job recovery incomplete: %v", err)
	} else if recovered > 0 {
		log.Printf("Recovered %d interrupted jobs.", recovered)
	}

	searcher := search.NewService(dbClient, generator)
	builder := rag.NewBuilder(searcher)

	server := NewServer(cfg, dbClient, objClient, converter, validator, queue, searcher, builder, llmProvider)

	return &App{
		DBClient:   dbClient,
		Queue:      queue,
		Server:     server,
		redisCache: redisCache,
		llm:        llmProvider,
	}, nil
}

func (a *App) Close() {
	if a.llm != nil {
		_ = a.llm.Close()
	}
	if a.redisCache != nil {
		_ = a.redisCache.Close()
	}
	if a.DBClient != nil {
		_ = a.DBClient.Close()
	}
}
