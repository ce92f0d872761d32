package models

import "fmt"

// Metrics summarises the classifier's evaluation of one labeled batch.
// The scores slice is the training/reference score distribution and is
// independent of the per-record anomaly scores in the batch itself.
type Metrics struct {
	Accuracy        float64   `json:"accuracy"`
	Precision       float64   `json:"precision"`
	Recall          float64   `json:"recall"`
	F1Score         float64   `json:"f1_score"`
	ROCAUC          float64   `json:"roc_auc"`
	ConfusionMatrix []int     `json:"confusion_matrix"`
	Threshold       *float64  `json:"threshold"`
	Scores          []float64 `json:"scores"`
}

// Confusion matrix entry order as emitted by the classifier.
const (
	ConfusionTrueNegative = iota
	ConfusionFalsePositive
	ConfusionFalseNegative
	ConfusionTruePositive
)

// Validate enforces the confusion-matrix shape invariant.
func (m *Metrics) Validate() error {
	if m == nil {
		return nil
	}
	if len(m.ConfusionMatrix) != 4 {
		return fmt.Errorf("confusion matrix has %d entries, want 4", len(m.ConfusionMatrix))
	}
	for i, v := range m.ConfusionMatrix {
		if v < 0 {
			return fmt.Errorf("confusion matrix entry %d is negative", i)
		}
	}
	return nil
}

// Empty reports whether the classifier returned no evaluation at all,
// which happens for unlabeled uploads.
func (m *Metrics) Empty() bool {
	return m == nil || (len(m.ConfusionMatrix) == 0 && len(m.Scores) == 0)
}
