package models

// ClassCounts partitions a batch by the classifier's binary verdict.
// Records without a valid prediction belong to neither bucket.
type ClassCounts struct {
	Normal  int `json:"normal"`
	Anomaly int `json:"anomaly"`
}

// Total returns the number of records with a valid prediction.
func (c ClassCounts) Total() int {
	return c.Normal + c.Anomaly
}

// SeriesPoint is one chart sample from the windowed traffic series.
// Missing byte counts are surfaced explicitly instead of being
// substituted with synthetic values; missing points render as gaps.
// Prediction is -1 when the record carries no valid verdict.
type SeriesPoint struct {
	Index         int     `json:"index"`
	Source        float64 `json:"source"`
	Dest          float64 `json:"dest"`
	SourceMissing bool    `json:"source_missing,omitempty"`
	DestMissing   bool    `json:"dest_missing,omitempty"`
	Prediction    int     `json:"prediction"`
}

// SpikeReport lists windowed-series indices whose byte counts exceed the
// spike threshold, per direction.
type SpikeReport struct {
	Source []int `json:"source"`
	Dest   []int `json:"dest"`
}

// Verdict classifies overall batch health from the anomaly rate.
type Verdict string

const (
	VerdictStable            Verdict = "stable"
	VerdictPartiallyUnstable Verdict = "partially_unstable"
	VerdictUnstable          Verdict = "unstable"
)

// HistogramBin is one bucket of the reference score distribution.
type HistogramBin struct {
	Bin   float64 `json:"bin"`
	Count int     `json:"count"`
}

// ECDFPoint is one step of the empirical cumulative distribution curve.
type ECDFPoint struct {
	Score      float64 `json:"score"`
	Cumulative float64 `json:"cumulative"`
}

// BreakdownRow compares ground truth with the model verdict for one
// record of a labeled batch.
type BreakdownRow struct {
	Index     int  `json:"index"`
	Actual    int  `json:"actual"`
	Predicted int  `json:"predicted"`
	Correct   bool `json:"correct"`
}
