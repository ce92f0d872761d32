package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/Sole248k/CloudShield/internal/export"
	"github.com/Sole248k/CloudShield/internal/metrics"
	"github.com/Sole248k/CloudShield/internal/models"
	"github.com/Sole248k/CloudShield/internal/services"
	"github.com/Sole248k/CloudShield/internal/store"
	"github.com/Sole248k/CloudShield/internal/triage"
)

// maxUploadMemory caps the multipart form buffer for capture uploads.
const maxUploadMemory = 32 << 20

// breakdownLimit caps the prediction breakdown table shown to operators.
const breakdownLimit = 50

// Submitter runs an upload through classification and storage.
type Submitter interface {
	Submit(ctx context.Context, modelID models.ModelID, filename string, payload io.Reader) (models.Batch, error)
}

// BatchReader returns the current batch or store.ErrNoBatch.
type BatchReader interface {
	Get(ctx context.Context) (models.Batch, error)
}

// Handler serves the operator API.
type Handler struct {
	logger    *slog.Logger
	submitter Submitter
	batches   BatchReader
	triage    *triage.Controller
}

// NewHandler constructs the operator API handler.
func NewHandler(logger *slog.Logger, submitter Submitter, batches BatchReader, triageCtrl *triage.Controller) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if triageCtrl == nil {
		triageCtrl = triage.NewController()
	}
	return &Handler{
		logger:    logger,
		submitter: submitter,
		batches:   batches,
		triage:    triageCtrl,
	}
}

// Router wires the operator API routes.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()

	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/batches", h.SubmitBatch).Methods(http.MethodPost)
	v1.HandleFunc("/overview", h.GetOverview).Methods(http.MethodGet)
	v1.HandleFunc("/records", h.ListRecords).Methods(http.MethodGet)
	v1.HandleFunc("/records/{index}", h.GetRecord).Methods(http.MethodGet)
	v1.HandleFunc("/performance", h.GetPerformance).Methods(http.MethodGet)
	v1.HandleFunc("/export", h.ExportCSV).Methods(http.MethodGet)
	v1.HandleFunc("/models", h.ListModels).Methods(http.MethodGet)

	v1.HandleFunc("/triage", h.GetTriage).Methods(http.MethodGet)
	v1.HandleFunc("/triage/open", h.OpenTriage).Methods(http.MethodPost)
	v1.HandleFunc("/triage/action", h.ChooseTriageAction).Methods(http.MethodPost)
	v1.HandleFunc("/triage/details", h.ToggleTriageDetails).Methods(http.MethodPost)
	v1.HandleFunc("/triage/dismiss", h.DismissTriageFeedback).Methods(http.MethodPost)
	v1.HandleFunc("/triage/close", h.CloseTriage).Methods(http.MethodPost)

	r.HandleFunc("/healthz", h.Health).Methods(http.MethodGet)
	return r
}

// SubmitBatch handles POST /api/v1/batches: multipart upload {file, model_id}.
func (h *Handler) SubmitBatch(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		respondError(w, http.StatusBadRequest, "expected multipart form upload")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "no file supplied")
		return
	}
	defer file.Close()

	modelID := models.ModelID(r.FormValue("model_id"))

	batch, err := h.submitter.Submit(r.Context(), modelID, header.Filename, file)
	switch {
	case err == nil:
	case errors.Is(err, services.ErrSubmissionInFlight):
		respondError(w, http.StatusConflict, err.Error())
		return
	case errors.Is(err, services.ErrUnknownModel), errors.Is(err, services.ErrNoFile):
		respondError(w, http.StatusBadRequest, err.Error())
		return
	default:
		h.logger.Error("submission failed", slog.Any("error", err))
		respondError(w, http.StatusBadGateway, "classification failed")
		return
	}

	respondJSON(w, http.StatusOK, buildOverview(batch))
}

// GetOverview handles GET /api/v1/overview.
func (h *Handler) GetOverview(w http.ResponseWriter, r *http.Request) {
	batch, ok := h.currentBatch(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, buildOverview(batch))
}

// ListRecords handles GET /api/v1/records.
func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	batch, ok := h.currentBatch(w, r)
	if !ok {
		return
	}

	items := make([]recordListItem, len(batch.Records))
	for i, rec := range batch.Records {
		item := recordListItem{Index: i, Prediction: -1}
		if p, ok := rec.Prediction(); ok {
			item.Prediction = p
			item.IsAnomaly = p == 1
		}
		if score, ok := rec.AnomalyScore(); ok {
			item.AnomalyScore = &score
		}
		items[i] = item
	}

	respondJSON(w, http.StatusOK, recordListResponse{
		BatchID: batch.ID,
		Count:   len(items),
		Records: items,
	})
}

// GetRecord handles GET /api/v1/records/{index}.
func (h *Handler) GetRecord(w http.ResponseWriter, r *http.Request) {
	batch, ok := h.currentBatch(w, r)
	if !ok {
		return
	}

	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil || index < 0 {
		respondError(w, http.StatusBadRequest, "invalid record index")
		return
	}
	if index >= len(batch.Records) {
		respondError(w, http.StatusNotFound, "record index out of range")
		return
	}

	rec := batch.Records[index]
	detail := recordDetailResponse{Index: index, Prediction: -1, Record: rec}
	if p, ok := rec.Prediction(); ok {
		detail.Prediction = p
		detail.IsAnomaly = p == 1
	}
	respondJSON(w, http.StatusOK, detail)
}

// GetPerformance handles GET /api/v1/performance.
func (h *Handler) GetPerformance(w http.ResponseWriter, r *http.Request) {
	batch, ok := h.currentBatch(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, buildPerformance(batch))
}

// ExportCSV handles GET /api/v1/export.
func (h *Handler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	batch, err := h.batches.Get(r.Context())
	if errors.Is(err, store.ErrNoBatch) || (err == nil && len(batch.Records) == 0) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		h.logger.Error("load batch failed", slog.Any("error", err))
		respondError(w, http.StatusInternalServerError, "failed to load batch")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename))
	if err := export.Write(w, batch.Records); err != nil {
		h.logger.Error("csv export failed", slog.Any("error", err))
		return
	}
	metrics.ObserveExport()
}

// ListModels handles GET /api/v1/models.
func (h *Handler) ListModels(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string][]models.ModelInfo{"models": models.KnownModels()})
}

// GetTriage handles GET /api/v1/triage.
func (h *Handler) GetTriage(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.triage.Snapshot())
}

// OpenTriage handles POST /api/v1/triage/open.
func (h *Handler) OpenTriage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Index int `json:"index"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	batch, ok := h.currentBatch(w, r)
	if !ok {
		return
	}
	if req.Index < 0 || req.Index >= len(batch.Records) {
		respondError(w, http.StatusNotFound, "record index out of range")
		return
	}

	respondJSON(w, http.StatusOK, h.triage.OpenRecord(req.Index, batch.Records[req.Index]))
}

// ChooseTriageAction handles POST /api/v1/triage/action.
func (h *Handler) ChooseTriageAction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Action string `json:"action"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := h.triage.ChooseAction(triage.ActionKind(req.Action))
	switch {
	case errors.Is(err, triage.ErrNotActing):
		respondError(w, http.StatusConflict, err.Error())
		return
	case errors.Is(err, triage.ErrUnknownAction):
		respondError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	metrics.ObserveTriageAction(req.Action)
	respondJSON(w, http.StatusOK, session)
}

// ToggleTriageDetails handles POST /api/v1/triage/details.
func (h *Handler) ToggleTriageDetails(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.triage.ToggleDetails())
}

// DismissTriageFeedback handles POST /api/v1/triage/dismiss.
func (h *Handler) DismissTriageFeedback(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.triage.DismissFeedback())
}

// CloseTriage handles POST /api/v1/triage/close.
func (h *Handler) CloseTriage(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.triage.Close())
}

// Health handles GET /healthz.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// currentBatch loads the stored batch, writing the error response itself
// when there is nothing to serve.
func (h *Handler) currentBatch(w http.ResponseWriter, r *http.Request) (models.Batch, bool) {
	batch, err := h.batches.Get(r.Context())
	if errors.Is(err, store.ErrNoBatch) {
		respondError(w, http.StatusNotFound, "no batch uploaded")
		return models.Batch{}, false
	}
	if err != nil {
		h.logger.Error("load batch failed", slog.Any("error", err))
		respondError(w, http.StatusInternalServerError, "failed to load batch")
		return models.Batch{}, false
	}
	return batch, true
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
