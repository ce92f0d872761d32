package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/Sole248k/CloudShield/internal/models"
)

type classifierStub struct {
	records []models.LogRecord
	metrics *models.Metrics
	err     error

	calls   int
	started chan struct{}
	release chan struct{}
}

func (c *classifierStub) Classify(ctx context.Context, modelID models.ModelID, filename string, payload io.Reader) ([]models.LogRecord, *models.Metrics, error) {
	c.calls++
	if c.started != nil {
		close(c.started)
	}
	if c.release != nil {
		<-c.release
	}
	return c.records, c.metrics, c.err
}

type storeStub struct {
	puts []models.Batch
	err  error
}

func (s *storeStub) Put(ctx context.Context, batch models.Batch) error {
	if s.err != nil {
		return s.err
	}
	s.puts = append(s.puts, batch)
	return nil
}

func labeledRecord(t *testing.T) models.LogRecord {
	t.Helper()
	var rec models.LogRecord
	if err := rec.UnmarshalJSON([]byte(`{"sbytes":100,"label":1,"prediction":1}`)); err != nil {
		t.Fatalf("build record: %v", err)
	}
	return rec
}

func TestSubmitStoresBatch(t *testing.T) {
	classifier := &classifierStub{records: []models.LogRecord{labeledRecord(t)}}
	stored := &storeStub{}
	coordinator := NewIngestCoordinator(nil, classifier, stored)

	batch, err := coordinator.Submit(context.Background(), models.ModelNormalIF, "capture.csv", strings.NewReader("payload"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if batch.ID == "" {
		t.Fatalf("expected batch id to be assigned")
	}
	if batch.ModelID != models.ModelNormalIF {
		t.Fatalf("unexpected model id %q", batch.ModelID)
	}
	if len(stored.puts) != 1 {
		t.Fatalf("expected one store write, got %d", len(stored.puts))
	}
	if stored.puts[0].ID != batch.ID {
		t.Fatalf("stored batch id %q does not match returned %q", stored.puts[0].ID, batch.ID)
	}
}

func TestSubmitRejectsUnknownModel(t *testing.T) {
	coordinator := NewIngestCoordinator(nil, &classifierStub{}, &storeStub{})

	_, err := coordinator.Submit(context.Background(), models.ModelID("model9"), "capture.csv", strings.NewReader("payload"))
	if !errors.Is(err, ErrUnknownModel) {
		t.Fatalf("expected ErrUnknownModel, got %v", err)
	}
}

func TestSubmitRejectsMissingFile(t *testing.T) {
	coordinator := NewIngestCoordinator(nil, &classifierStub{}, &storeStub{})

	_, err := coordinator.Submit(context.Background(), models.ModelNormalIF, "", nil)
	if !errors.Is(err, ErrNoFile) {
		t.Fatalf("expected ErrNoFile, got %v", err)
	}
}

func TestSubmitRejectsEmptyFile(t *testing.T) {
	classifier := &classifierStub{}
	coordinator := NewIngestCoordinator(nil, classifier, &storeStub{})

	_, err := coordinator.Submit(context.Background(), models.ModelNormalIF, "empty.csv", strings.NewReader(""))
	if !errors.Is(err, ErrNoFile) {
		t.Fatalf("expected ErrNoFile, got %v", err)
	}
	if classifier.calls != 0 {
		t.Fatalf("classifier must not be called for an empty upload, got %d calls", classifier.calls)
	}
}

func TestSubmitClassifierFailureLeavesStoreUntouched(t *testing.T) {
	classifier := &classifierStub{err: errors.New("backend down")}
	stored := &storeStub{}
	coordinator := NewIngestCoordinator(nil, classifier, stored)

	_, err := coordinator.Submit(context.Background(), models.ModelNormalIF, "capture.csv", strings.NewReader("payload"))
	if err == nil {
		t.Fatalf("expected classifier failure to surface")
	}
	if len(stored.puts) != 0 {
		t.Fatalf("store must not be written on failure, got %d writes", len(stored.puts))
	}
}

func TestSubmitRejectsConcurrentSubmission(t *testing.T) {
	classifier := &classifierStub{
		records: []models.LogRecord{labeledRecord(t)},
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	coordinator := NewIngestCoordinator(nil, classifier, &storeStub{})

	done := make(chan error, 1)
	go func() {
		_, err := coordinator.Submit(context.Background(), models.ModelNormalIF, "capture.csv", strings.NewReader("payload"))
		done <- err
	}()

	<-classifier.started
	if !coordinator.Busy() {
		t.Fatalf("expected coordinator to report busy")
	}
	_, err := coordinator.Submit(context.Background(), models.ModelNormalIF, "other.csv", strings.NewReader("payload"))
	if !errors.Is(err, ErrSubmissionInFlight) {
		t.Fatalf("expected ErrSubmissionInFlight, got %v", err)
	}

	close(classifier.release)
	if err := <-done; err != nil {
		t.Fatalf("first submission failed: %v", err)
	}
	if coordinator.Busy() {
		t.Fatalf("coordinator still busy after completion")
	}
	if classifier.calls != 1 {
		t.Fatalf("classifier called %d times, want 1", classifier.calls)
	}
}
