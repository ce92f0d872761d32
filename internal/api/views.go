package api

import (
	"fmt"
	"time"

	"github.com/Sole248k/CloudShield/internal/derive"
	"github.com/Sole248k/CloudShield/internal/models"
)

// Operator-facing verdict copy keyed by batch health.
var verdictText = map[models.Verdict]string{
	models.VerdictUnstable:          "Network is unstable and requires immediate attention.",
	models.VerdictPartiallyUnstable: "Network shows partially unstable behavior.",
	models.VerdictStable:            "Network appears mostly stable.",
}

type overviewResponse struct {
	BatchID         string               `json:"batch_id"`
	ModelID         models.ModelID       `json:"model_id"`
	UploadedAt      time.Time            `json:"uploaded_at"`
	TotalRecords    int                  `json:"total_records"`
	Counts          models.ClassCounts   `json:"counts"`
	AnomalyRate     float64              `json:"anomaly_rate"`
	Verdict         models.Verdict       `json:"verdict"`
	VerdictText     string               `json:"verdict_text"`
	Series          []models.SeriesPoint `json:"series"`
	Spikes          models.SpikeReport   `json:"spikes"`
	Interpretations []string             `json:"interpretations"`
}

type recordListItem struct {
	Index        int      `json:"index"`
	Prediction   int      `json:"prediction"`
	IsAnomaly    bool     `json:"is_anomaly"`
	AnomalyScore *float64 `json:"anomaly_score,omitempty"`
}

type recordListResponse struct {
	BatchID string           `json:"batch_id"`
	Count   int              `json:"count"`
	Records []recordListItem `json:"records"`
}

type recordDetailResponse struct {
	Index      int              `json:"index"`
	Prediction int              `json:"prediction"`
	IsAnomaly  bool             `json:"is_anomaly"`
	Record     models.LogRecord `json:"record"`
}

type metricRow struct {
	Metric string  `json:"metric"`
	Value  float64 `json:"value"`
}

type performanceResponse struct {
	Labeled                 bool                  `json:"labeled"`
	MetricRows              []metricRow           `json:"metric_rows,omitempty"`
	ConfusionMatrix         []int                 `json:"confusion_matrix,omitempty"`
	Summary                 string                `json:"summary,omitempty"`
	Histogram               []models.HistogramBin `json:"histogram,omitempty"`
	ECDF                    []models.ECDFPoint    `json:"ecdf,omitempty"`
	Threshold               *float64              `json:"threshold,omitempty"`
	ThresholdAnomalyRate    *float64              `json:"threshold_anomaly_rate,omitempty"`
	ThresholdInterpretation string                `json:"threshold_interpretation,omitempty"`
	Breakdown               []models.BreakdownRow `json:"breakdown,omitempty"`
}

// buildOverview derives the dashboard payload from the current batch.
func buildOverview(batch models.Batch) overviewResponse {
	counts := derive.ClassCounts(batch.Records)
	series := derive.WindowedSeries(batch.Records, derive.DefaultWindowSize)
	spikes := derive.DetectSpikes(series, derive.DefaultSpikeThreshold)
	rate := derive.AnomalyRate(counts)
	verdict := derive.VerdictFor(rate)

	interpretations := make([]string, 0, len(spikes.Source)+len(spikes.Dest))
	for _, idx := range spikes.Source {
		interpretations = append(interpretations, fmt.Sprintf("Spike detected in source packets around index %d", idx))
	}
	for _, idx := range spikes.Dest {
		interpretations = append(interpretations, fmt.Sprintf("Spike detected in destination packets around index %d", idx))
	}

	return overviewResponse{
		BatchID:         batch.ID,
		ModelID:         batch.ModelID,
		UploadedAt:      batch.UploadedAt,
		TotalRecords:    len(batch.Records),
		Counts:          counts,
		AnomalyRate:     derive.Round2(rate),
		Verdict:         verdict,
		VerdictText:     verdictText[verdict],
		Series:          series,
		Spikes:          spikes,
		Interpretations: interpretations,
	}
}

// buildPerformance derives the evaluation payload. Unlabeled batches get a
// bare response so the view can say there is nothing to evaluate.
func buildPerformance(batch models.Batch) performanceResponse {
	m := batch.Metrics
	if m == nil {
		return performanceResponse{Labeled: false}
	}

	resp := performanceResponse{
		Labeled: true,
		MetricRows: []metricRow{
			{Metric: "Accuracy", Value: m.Accuracy},
			{Metric: "Precision", Value: m.Precision},
			{Metric: "Recall", Value: m.Recall},
			{Metric: "F1 Score", Value: m.F1Score},
			{Metric: "ROC AUC", Value: m.ROCAUC},
		},
		ConfusionMatrix: m.ConfusionMatrix,
		Summary: fmt.Sprintf(
			"The model achieved an F1-score of %.2f%%. Recall was %.2f%%, and precision was %.2f%%.",
			m.F1Score*100, m.Recall*100, m.Precision*100),
		Histogram: derive.Histogram(m.Scores, derive.DefaultBinPrecision),
		ECDF:      derive.ECDF(m.Scores),
		Threshold: m.Threshold,
		Breakdown: derive.PredictionBreakdown(batch.Records, breakdownLimit),
	}

	if m.Threshold != nil {
		rate := derive.Round2(derive.ThresholdAnomalyRate(m.Scores, *m.Threshold))
		resp.ThresholdAnomalyRate = &rate
		resp.ThresholdInterpretation = fmt.Sprintf(
			"%.2f%% of points classified as anomalies, %.2f%% classified as normal.",
			rate, 100-rate)
	}

	return resp
}
