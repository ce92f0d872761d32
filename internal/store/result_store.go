package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Sole248k/CloudShield/internal/cache"
	"github.com/Sole248k/CloudShield/internal/models"
)

// Session cache slots. Records and metrics are written together; the
// batch envelope carries identity so a reloaded console resumes where the
// operator left off.
const (
	recordsKey = "cloudshield:session:records"
	metricsKey = "cloudshield:session:metrics"
)

// ErrNoBatch signals that nothing has been uploaded this session.
var ErrNoBatch = errors.New("no batch uploaded")

// batchEnvelope is the records-slot payload: the batch minus its metrics.
type batchEnvelope struct {
	ID         string             `json:"id"`
	ModelID    models.ModelID     `json:"model_id"`
	UploadedAt time.Time          `json:"uploaded_at"`
	Records    []models.LogRecord `json:"records"`
}

// ResultStore owns the current batch and metrics: the single source of
// truth read by every view. Writes replace the pair atomically,
// last-write-wins. The session cache keeps the pair across console
// restarts; the in-memory copy is authoritative while the process lives.
type ResultStore struct {
	mu      sync.RWMutex
	cache   cache.Provider
	logger  *slog.Logger
	current *models.Batch
}

// New constructs a store over the given session cache.
func New(provider cache.Provider, logger *slog.Logger) *ResultStore {
	if provider == nil {
		provider = cache.NewMemoryProvider()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ResultStore{cache: provider, logger: logger}
}

// Put replaces the current batch and metrics together. The previous pair
// is discarded wholesale; there is no merge.
func (s *ResultStore) Put(ctx context.Context, batch models.Batch) error {
	envelope, err := json.Marshal(batchEnvelope{
		ID:         batch.ID,
		ModelID:    batch.ModelID,
		UploadedAt: batch.UploadedAt,
		Records:    batch.Records,
	})
	if err != nil {
		return fmt.Errorf("marshal batch: %w", err)
	}
	var metricsData []byte
	if batch.Metrics != nil {
		metricsData, err = json.Marshal(batch.Metrics)
		if err != nil {
			return fmt.Errorf("marshal metrics: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = &batch

	// Cache persistence is best-effort: the slots are written together and
	// a records-slot failure skips the metrics slot so the pair is never
	// torn across uploads.
	if err := s.cache.Set(ctx, recordsKey, envelope, 0); err != nil {
		s.logger.Warn("session cache write failed", slog.Any("error", err))
		return nil
	}
	if metricsData == nil {
		if err := s.cache.Del(ctx, metricsKey); err != nil {
			s.logger.Warn("session cache metrics clear failed", slog.Any("error", err))
		}
		return nil
	}
	if err := s.cache.Set(ctx, metricsKey, metricsData, 0); err != nil {
		s.logger.Warn("session cache metrics write failed", slog.Any("error", err))
	}
	return nil
}

// Get returns the last-written batch, reloading it from the session cache
// after a restart. ErrNoBatch when nothing was ever uploaded.
func (s *ResultStore) Get(ctx context.Context) (models.Batch, error) {
	s.mu.RLock()
	if s.current != nil {
		batch := *s.current
		s.mu.RUnlock()
		return batch, nil
	}
	s.mu.RUnlock()

	return s.reload(ctx)
}

func (s *ResultStore) reload(ctx context.Context) (models.Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil {
		return *s.current, nil
	}

	data, err := s.cache.Get(ctx, recordsKey)
	if errors.Is(err, cache.ErrCacheMiss) {
		return models.Batch{}, ErrNoBatch
	}
	if err != nil {
		return models.Batch{}, fmt.Errorf("session cache read: %w", err)
	}

	var envelope batchEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return models.Batch{}, fmt.Errorf("decode cached batch: %w", err)
	}
	batch := models.Batch{
		ID:         envelope.ID,
		ModelID:    envelope.ModelID,
		UploadedAt: envelope.UploadedAt,
		Records:    envelope.Records,
	}

	metricsData, err := s.cache.Get(ctx, metricsKey)
	switch {
	case errors.Is(err, cache.ErrCacheMiss):
		// Unlabeled upload: no metrics slot.
	case err != nil:
		return models.Batch{}, fmt.Errorf("session cache read: %w", err)
	default:
		var metrics models.Metrics
		if err := json.Unmarshal(metricsData, &metrics); err != nil {
			return models.Batch{}, fmt.Errorf("decode cached metrics: %w", err)
		}
		batch.Metrics = &metrics
	}

	s.current = &batch
	return batch, nil
}
