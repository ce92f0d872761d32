package services

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/Sole248k/CloudShield/internal/metrics"
	"github.com/Sole248k/CloudShield/internal/models"
	"github.com/Sole248k/CloudShield/internal/utils"
)

// Classifier scores an uploaded traffic capture with the selected model.
type Classifier interface {
	Classify(ctx context.Context, modelID models.ModelID, filename string, payload io.Reader) ([]models.LogRecord, *models.Metrics, error)
}

// BatchStore persists the classified batch for the views to read.
type BatchStore interface {
	Put(ctx context.Context, batch models.Batch) error
}

var (
	// ErrSubmissionInFlight rejects uploads while one is already pending.
	ErrSubmissionInFlight = errors.New("a submission is already being processed")
	// ErrNoFile rejects submissions without an uploaded capture.
	ErrNoFile = errors.New("no file supplied")
	// ErrUnknownModel rejects submissions naming a model outside the catalog.
	ErrUnknownModel = errors.New("unknown model id")
)

// IngestCoordinator drives a submission end to end: validate, classify,
// store. At most one submission runs at a time; concurrent attempts fail
// fast with ErrSubmissionInFlight instead of queueing.
type IngestCoordinator struct {
	logger     *slog.Logger
	classifier Classifier
	store      BatchStore
	latencies  *utils.LatencyTracker
	busy       atomic.Bool

	now   func() time.Time
	newID func() string
}

// NewIngestCoordinator constructs the submission coordinator.
func NewIngestCoordinator(logger *slog.Logger, classifier Classifier, store BatchStore) *IngestCoordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &IngestCoordinator{
		logger:     logger,
		classifier: classifier,
		store:      store,
		latencies:  utils.NewLatencyTracker(1024),
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// Submit classifies the uploaded capture and replaces the stored batch.
// The previous batch survives untouched when classification fails.
func (c *IngestCoordinator) Submit(ctx context.Context, modelID models.ModelID, filename string, payload io.Reader) (models.Batch, error) {
	if c.classifier == nil {
		return models.Batch{}, utils.NewAppError("ingest.Submit", "classifier not configured", nil)
	}
	if c.store == nil {
		return models.Batch{}, utils.NewAppError("ingest.Submit", "store not configured", nil)
	}
	if !modelID.Valid() {
		return models.Batch{}, ErrUnknownModel
	}
	if payload == nil {
		return models.Batch{}, ErrNoFile
	}
	// A zero-byte upload is rejected before the classifier sees it.
	buffered := bufio.NewReader(payload)
	if _, err := buffered.Peek(1); err != nil {
		return models.Batch{}, ErrNoFile
	}

	if !c.busy.CompareAndSwap(false, true) {
		metrics.ObserveSubmission(0, metrics.OutcomeBusy)
		return models.Batch{}, ErrSubmissionInFlight
	}
	defer c.busy.Store(false)

	c.logger.Debug("submission started",
		slog.String("model_id", string(modelID)),
		slog.String("filename", filename))

	start := c.now()
	records, batchMetrics, err := c.classifier.Classify(ctx, modelID, filename, buffered)
	duration := c.now().Sub(start)
	if err != nil {
		metrics.ObserveSubmission(duration, metrics.OutcomeError)
		c.logger.Error("classification failed",
			slog.String("model_id", string(modelID)),
			slog.Any("error", err))
		return models.Batch{}, utils.NewAppError("ingest.Submit", "classification failed", err)
	}

	batch := models.Batch{
		ID:         c.newID(),
		ModelID:    modelID,
		UploadedAt: c.now().UTC(),
		Records:    records,
		Metrics:    batchMetrics,
	}
	if err := c.store.Put(ctx, batch); err != nil {
		metrics.ObserveSubmission(duration, metrics.OutcomeError)
		return models.Batch{}, utils.NewAppError("ingest.Submit", "store batch", err)
	}

	c.latencies.Observe(duration)
	metrics.ObserveSubmission(duration, metrics.OutcomeSuccess)
	if count := c.latencies.Count(); count >= 20 && count%20 == 0 {
		p95 := c.latencies.Percentile(95)
		c.logger.Info("submission latency", slog.Duration("p95", p95), slog.Int("samples", count))
	}

	c.logger.Info("batch stored",
		slog.String("batch_id", batch.ID),
		slog.String("model_id", string(modelID)),
		slog.Int("records", len(records)),
		slog.Bool("labeled", batchMetrics != nil))

	return batch, nil
}

// Busy reports whether a submission is currently in flight.
func (c *IngestCoordinator) Busy() bool {
	return c.busy.Load()
}

// LatencyP95 returns the current p95 submission latency.
func (c *IngestCoordinator) LatencyP95() time.Duration {
	if c.latencies == nil {
		return 0
	}
	return c.latencies.Percentile(95)
}
