package bootstrap

import (
	"context"
	"fmt"
	"time"

	qdrantsdk "github.com/qdrant/go-client/qdrant"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"teamkb/internal/ai"
	"teamkb/internal/cache"
	"teamkb/internal/config"
	"teamkb/internal/ingest"
	"teamkb/internal/model"
	"teamkb/internal/pkg/logger"
	mongoClient "teamkb/internal/platform/mongo"
	mysqlClient "teamkb/internal/platform/mysql"
	qdrantClient "teamkb/internal/platform/qdrant"
	rabbitmqClient "teamkb/internal/platform/rabbitmq"
	redisClient "teamkb/internal/platform/redis"
	"teamkb/internal/repository"
	"teamkb/internal/storage"
	"teamkb/internal/vectorindex"
	"teamkb/internal/worker"
)

// App owns every long-lived dependency: clients, the object store, the
// ingestion pipeline and its background worker.
type App struct {
	Config *config.Config
	Logger *zap.Logger

	MySQL  *gorm.DB
	Redis  *redis.Client
	MQConn *amqp.Connection
	Mongo  *mongo.Client
	Qdrant *qdrantsdk.Client

	Blobs       *storage.GridFSStore
	Signer      *storage.URLSigner
	VectorIndex *vectorindex.QdrantIndex
	Embedder    *ai.EmbeddingClient

	IngestPublisher *rabbitmqClient.IngestPublisher
	Pipeline        *ingest.Pipeline
	Reprocessor     *ingest.Reprocessor
	SearchCache     *cache.SearchCache
	IngestWorker    *worker.IngestWorker

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	log, err := logger.New(cfg.App.Env, cfg.App.LogLevel)
	if err != nil {
		return nil, err
	}

	mysqlDB, err := mysqlClient.New(ctx, cfg.MySQLDSN())
	if err != nil {
		return nil, err
	}
	if err := mysqlDB.AutoMigrate(
		&model.KnowledgeBase{},
		&model.Folder{},
		&model.Document{},
		&model.DocumentVersion{},
		&model.Favorite{},
		&model.ProjectSettings{},
	); err != nil {
		return nil, fmt.Errorf("auto migrate tables failed: %w", err)
	}

	redisCli, err := redisClient.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, err
	}

	mqConn, err := rabbitmqClient.New(cfg.RabbitMQ.URL)
	if err != nil {
		return nil, err
	}

	mongoCli, err := mongoClient.New(ctx, cfg.Mongo.URI)
	if err != nil {
		return nil, err
	}

	qdrantCli, err := qdrantClient.New(ctx, cfg.Qdrant.Host, cfg.Qdrant.Port, cfg.Qdrant.APIKey)
	if err != nil {
		return nil, err
	}

	signer := storage.NewURLSigner(
		cfg.Storage.SigningSecret,
		cfg.Storage.PublicBaseURL,
		time.Duration(cfg.Storage.SignedURLTTLSecs)*time.Second,
	)
	blobs, err := storage.NewGridFSStore(mongoCli.Database(cfg.Mongo.DB), cfg.Mongo.Bucket, signer)
	if err != nil {
		return nil, err
	}

	vectorIndex := vectorindex.NewQdrantIndex(qdrantCli, cfg.Qdrant.VectorSize)
	embedder := ai.NewEmbeddingClient(ai.Config{
		BaseURL: cfg.Embedding.BaseURL,
		APIKey:  cfg.Embedding.APIKey,
		Model:   cfg.Embedding.Model,
	})

	docRepo := repository.NewDocumentRepository(mysqlDB)
	pipeline := ingest.NewPipeline(docRepo, blobs, embedder, vectorIndex, log, ingest.Options{
		ChunkSize:      cfg.Ingest.ChunkSize,
		ChunkOverlap:   cfg.Ingest.ChunkOverlap,
		EmbedBatchSize: cfg.Ingest.EmbedBatchSize,
		PreviewLength:  cfg.Ingest.PreviewLength,
	})
	reprocessor := ingest.NewReprocessor(docRepo, pipeline, log, cfg.Ingest.Workers)

	searchCache := cache.NewSearchCache(redisCli,
		time.Duration(cfg.Redis.SearchCacheTTLSeconds)*time.Second)
	ingestLock := cache.NewIngestLock(redisCli,
		time.Duration(cfg.Redis.IngestLockTTLSeconds)*time.Second)

	publisher := rabbitmqClient.NewIngestPublisher(mqConn, cfg.RabbitMQ.IngestQueue)
	ingestWorker := worker.NewIngestWorker(mqConn, pipeline, ingestLock, searchCache,
		cfg.RabbitMQ.IngestQueue, log)
	if err := ingestWorker.Start(ctx); err != nil {
		return nil, fmt.Errorf("start ingest worker failed: %w", err)
	}

	return &App{
		Config:          cfg,
		Logger:          log,
		MySQL:           mysqlDB,
		Redis:           redisCli,
		MQConn:          mqConn,
		Mongo:           mongoCli,
		Qdrant:          qdrantCli,
		Blobs:           blobs,
		Signer:          signer,
		VectorIndex:     vectorIndex,
		Embedder:        embedder,
		IngestPublisher: publisher,
		Pipeline:        pipeline,
		Reprocessor:     reprocessor,
		SearchCache:     searchCache,
		IngestWorker:    ingestWorker,
		StartedAt:       time.Now(),
	}, nil
}

func (a *App) Close() error {
	var closeErr error
	if a.IngestWorker != nil {
		a.IngestWorker.Close()
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.Mongo != nil {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.Mongo.Disconnect(disconnectCtx); err != nil {
			closeErr = err
		}
		cancel()
	}
	if a.Qdrant != nil {
		if err := a.Qdrant.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MySQL != nil {
		sqlDB, err := a.MySQL.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	if a.Logger != nil {
		_ = a.Logger.Sync()
	}
	return closeErr
}
