package models

import "time"

// ModelID names one of the fixed feature-engineering + detector
// combinations served by the classifier backend.
type ModelID string

const (
	ModelNormalIF   ModelID = "model1"
	ModelHybridIF   ModelID = "model2"
	ModelNormalECDF ModelID = "model3"
	ModelHybridECDF ModelID = "model4"
)

// ModelInfo describes a selectable model for the operator UI.
type ModelInfo struct {
	ID   ModelID `json:"id"`
	Name string  `json:"name"`
}

// KnownModels lists the selectable classifier models in display order.
func KnownModels() []ModelInfo {
	return []ModelInfo{
		{ID: ModelNormalIF, Name: "Normal features + Isolation Forest"},
		{ID: ModelHybridIF, Name: "Hybrid features + Isolation Forest"},
		{ID: ModelNormalECDF, Name: "Normal features + ECDF threshold"},
		{ID: ModelHybridECDF, Name: "Hybrid features + ECDF threshold"},
	}
}

// Valid reports whether the id belongs to the known model set.
func (m ModelID) Valid() bool {
	switch m {
	case ModelNormalIF, ModelHybridIF, ModelNormalECDF, ModelHybridECDF:
		return true
	default:
		return false
	}
}

// Batch is the full set of classified records from one upload cycle,
// together with the evaluation metrics computed for it. A new upload
// replaces the previous batch wholesale.
type Batch struct {
	ID         string      `json:"id"`
	ModelID    ModelID     `json:"model_id"`
	UploadedAt time.Time   `json:"uploaded_at"`
	Records    []LogRecord `json:"records"`
	Metrics    *Metrics    `json:"metrics,omitempty"`
}
