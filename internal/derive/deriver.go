package derive

import (
	"math"
	"sort"

	"github.com/Sole248k/CloudShield/internal/models"
)

// Fixed display and policy constants. The verdict boundaries are policy,
// not configuration.
const (
	DefaultWindowSize     = 50
	DefaultSpikeThreshold = 400.0
	DefaultBinPrecision   = 1e-3

	unstableRateLimit          = 30.0
	partiallyUnstableRateLimit = 10.0
)

// ClassCounts partitions records by prediction. Records whose prediction
// is absent or outside {0,1} are excluded from both buckets.
func ClassCounts(records []models.LogRecord) models.ClassCounts {
	var counts models.ClassCounts
	for _, rec := range records {
		p, ok := rec.Prediction()
		if !ok {
			continue
		}
		if p == 1 {
			counts.Anomaly++
		} else {
			counts.Normal++
		}
	}
	return counts
}

// WindowedSeries maps the first windowSize records onto chart samples.
// Records missing a byte-count field produce a point flagged as missing
// rather than a fabricated value.
func WindowedSeries(records []models.LogRecord, windowSize int) []models.SeriesPoint {
	if windowSize <= 0 {
		windowSize = DefaultWindowSize
	}
	if len(records) < windowSize {
		windowSize = len(records)
	}

	series := make([]models.SeriesPoint, 0, windowSize)
	for i := 0; i < windowSize; i++ {
		rec := records[i]
		point := models.SeriesPoint{Index: i, Prediction: -1}
		if v, ok := rec.Number(models.FieldSourceBytes); ok {
			point.Source = v
		} else {
			point.SourceMissing = true
		}
		if v, ok := rec.Number(models.FieldDestBytes); ok {
			point.Dest = v
		} else {
			point.DestMissing = true
		}
		if p, ok := rec.Prediction(); ok {
			point.Prediction = p
		}
		series = append(series, point)
	}
	return series
}

// DetectSpikes returns the series indices whose byte counts strictly
// exceed the threshold, per direction. A point exactly at the threshold
// is not a spike, and missing points never spike.
func DetectSpikes(series []models.SeriesPoint, threshold float64) models.SpikeReport {
	if threshold <= 0 {
		threshold = DefaultSpikeThreshold
	}
	report := models.SpikeReport{Source: []int{}, Dest: []int{}}
	for _, point := range series {
		if !point.SourceMissing && point.Source > threshold {
			report.Source = append(report.Source, point.Index)
		}
		if !point.DestMissing && point.Dest > threshold {
			report.Dest = append(report.Dest, point.Index)
		}
	}
	return report
}

// AnomalyRate converts class counts to an anomaly percentage. An empty
// partition yields 0 rather than a division by zero.
func AnomalyRate(counts models.ClassCounts) float64 {
	total := counts.Total()
	if total == 0 {
		return 0
	}
	return float64(counts.Anomaly) / float64(total) * 100
}

// VerdictFor classifies batch health from the anomaly rate percentage.
func VerdictFor(rate float64) models.Verdict {
	switch {
	case rate > unstableRateLimit:
		return models.VerdictUnstable
	case rate > partiallyUnstableRateLimit:
		return models.VerdictPartiallyUnstable
	default:
		return models.VerdictStable
	}
}

// Histogram buckets scores by rounding each to the nearest multiple of
// binPrecision. Bins are returned in ascending order and their counts sum
// to len(scores).
func Histogram(scores []float64, binPrecision float64) []models.HistogramBin {
	if binPrecision <= 0 {
		binPrecision = DefaultBinPrecision
	}
	buckets := make(map[float64]int, len(scores))
	for _, score := range scores {
		bin := math.Round(score/binPrecision) * binPrecision
		buckets[bin]++
	}

	bins := make([]models.HistogramBin, 0, len(buckets))
	for bin, count := range buckets {
		bins = append(bins, models.HistogramBin{Bin: bin, Count: count})
	}
	sort.Slice(bins, func(i, j int) bool { return bins[i].Bin < bins[j].Bin })
	return bins
}

// ECDF computes the empirical cumulative distribution of the scores.
// Tied scores each occupy their own rank, so the curve is non-decreasing
// but not necessarily strictly increasing; the final value is 1.
func ECDF(scores []float64) []models.ECDFPoint {
	if len(scores) == 0 {
		return []models.ECDFPoint{}
	}
	sorted := append([]float64(nil), scores...)
	sort.Float64s(sorted)

	n := float64(len(sorted))
	points := make([]models.ECDFPoint, len(sorted))
	for i, score := range sorted {
		points[i] = models.ECDFPoint{Score: score, Cumulative: float64(i+1) / n}
	}
	return points
}

// ThresholdAnomalyRate is the share of reference scores strictly below
// the decision threshold, as a percentage. Below threshold means
// anomalous under this system's score convention. This rate is computed
// from the training distribution and may legitimately disagree with the
// record-level anomaly rate; both are reported, never merged.
func ThresholdAnomalyRate(scores []float64, threshold float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	below := 0
	for _, score := range scores {
		if score < threshold {
			below++
		}
	}
	return float64(below) / float64(len(scores)) * 100
}

// PredictionBreakdown compares ground-truth labels with predictions for
// up to limit records. Records missing either field are skipped. Indices
// are 1-based to match the operator-facing table.
func PredictionBreakdown(records []models.LogRecord, limit int) []models.BreakdownRow {
	if limit <= 0 || limit > len(records) {
		limit = len(records)
	}
	rows := make([]models.BreakdownRow, 0, limit)
	for i := 0; i < limit; i++ {
		label, ok := records[i].Label()
		if !ok {
			continue
		}
		pred, ok := records[i].Prediction()
		if !ok {
			continue
		}
		rows = append(rows, models.BreakdownRow{
			Index:     i + 1,
			Actual:    label,
			Predicted: pred,
			Correct:   label == pred,
		})
	}
	return rows
}

// Round2 rounds a percentage to two decimals for operator display.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
