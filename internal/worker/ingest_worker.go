package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"teamkb/internal/cache"
	"teamkb/internal/ingest"
	"teamkb/internal/platform/rabbitmq"
)

// IngestWorker consumes ingest events and drives the pipeline. Each event is
// handled under a per-document lock so racing triggers don't pay for the same
// embedding twice.
type IngestWorker struct {
	conn        *amqp.Connection
	pipeline    *ingest.Pipeline
	lock        *cache.IngestLock
	searchCache *cache.SearchCache
	queueName   string
	logger      *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewIngestWorker(
	conn *amqp.Connection,
	pipeline *ingest.Pipeline,
	lock *cache.IngestLock,
	searchCache *cache.SearchCache,
	queueName string,
	logger *zap.Logger,
) *IngestWorker {
	return &IngestWorker{
		conn:        conn,
		pipeline:    pipeline,
		lock:        lock,
		searchCache: searchCache,
		queueName:   queueName,
		logger:      logger,
	}
}

func (w *IngestWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}

	_, err = ch.QueueDeclare(
		w.queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("declare ingest queue failed: %w", err)
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume ingest queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				w.handle(workerCtx, d)
			}
		}
	}()

	return nil
}

func (w *IngestWorker) handle(ctx context.Context, d amqp.Delivery) {
	var event rabbitmq.IngestEvent
	if err := json.Unmarshal(d.Body, &event); err != nil {
		w.logger.Error("decode ingest event failed", zap.Error(err))
		_ = d.Nack(false, false)
		return
	}

	acquired, err := w.lock.Acquire(ctx, event.DocumentID)
	if err != nil {
		w.logger.Warn("acquire ingest lock failed, proceeding unlocked",
			zap.Uint("document_id", event.DocumentID), zap.Error(err))
	} else if !acquired {
		// Another run owns this document; idempotent ids make redelivery safe.
		w.logger.Info("ingest already in flight, dropping event",
			zap.Uint("document_id", event.DocumentID))
		_ = d.Ack(false)
		return
	}
	if acquired {
		defer func() {
			if err := w.lock.Release(context.Background(), event.DocumentID); err != nil {
				w.logger.Warn("release ingest lock failed", zap.Error(err))
			}
		}()
	}

	result := w.pipeline.Process(ctx, event.TeamID, event.DocumentID)
	switch result.Status {
	case ingest.StatusError:
		w.logger.Error("ingest failed",
			zap.Uint("document_id", event.DocumentID),
			zap.Error(result.Err))
		_ = d.Nack(false, false)
	case ingest.StatusIndexed:
		if err := w.searchCache.InvalidateTeam(ctx, event.TeamID); err != nil {
			w.logger.Warn("invalidate search cache failed", zap.Error(err))
		}
		_ = d.Ack(false)
	default:
		_ = d.Ack(false)
	}
}

func (w *IngestWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
