package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Well-known classifier output fields. Anything else on a record is opaque
// and carried through display and export untouched.
const (
	FieldSourceBytes  = "sbytes"
	FieldDestBytes    = "dbytes"
	FieldPrediction   = "prediction"
	FieldAnomalyScore = "anomaly_score"
	FieldLabel        = "label"
)

// LogRecord is one classified network-flow observation. The classifier's
// column set is open, so the record is an ordered document: key order from
// the classifier response is preserved for display and export.
type LogRecord struct {
	keys   []string
	values map[string]any
}

// Set stores a value, appending the key to the column order on first use.
func (r *LogRecord) Set(key string, value any) {
	if r.values == nil {
		r.values = make(map[string]any)
	}
	if _, exists := r.values[key]; !exists {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
}

// Get returns the raw value stored under key.
func (r LogRecord) Get(key string) (any, bool) {
	value, ok := r.values[key]
	return value, ok
}

// Keys returns the column order as emitted by the classifier.
func (r LogRecord) Keys() []string {
	return append([]string(nil), r.keys...)
}

// Len reports the number of fields on the record.
func (r LogRecord) Len() int {
	return len(r.keys)
}

// Number interprets the value under key as a float64. Absent or
// non-numeric values report ok=false.
func (r LogRecord) Number(key string) (float64, bool) {
	value, ok := r.values[key]
	if !ok {
		return 0, false
	}
	switch v := value.(type) {
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

// Prediction returns the binary verdict for the record. Values outside
// {0,1} (or a missing field) report ok=false so callers exclude the
// record rather than miscounting it.
func (r LogRecord) Prediction() (int, bool) {
	v, ok := r.Number(FieldPrediction)
	if !ok {
		return 0, false
	}
	switch v {
	case 0:
		return 0, true
	case 1:
		return 1, true
	default:
		return 0, false
	}
}

// IsAnomaly reports whether the classifier flagged the record.
func (r LogRecord) IsAnomaly() bool {
	p, ok := r.Prediction()
	return ok && p == 1
}

// AnomalyScore returns the continuous model output, when present.
func (r LogRecord) AnomalyScore() (float64, bool) {
	return r.Number(FieldAnomalyScore)
}

// Label returns the ground-truth label, when the batch was labeled.
func (r LogRecord) Label() (int, bool) {
	v, ok := r.Number(FieldLabel)
	if !ok || (v != 0 && v != 1) {
		return 0, false
	}
	return int(v), true
}

// UnmarshalJSON decodes an object while preserving its key order. Numbers
// are kept as json.Number so export reproduces them verbatim.
func (r *LogRecord) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("log record: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("log record: expected JSON object, got %v", tok)
	}

	rec := LogRecord{values: make(map[string]any)}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("log record key: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("log record: non-string key %v", keyTok)
		}
		var value any
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("log record field %q: %w", key, err)
		}
		if _, dup := rec.values[key]; !dup {
			rec.keys = append(rec.keys, key)
		}
		rec.values[key] = value
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("log record: %w", err)
	}

	*r = rec
	return nil
}

// MarshalJSON encodes the record with its original key order.
func (r LogRecord) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyData, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.Write(keyData)
		buf.WriteByte(':')
		valueData, err := json.Marshal(r.values[key])
		if err != nil {
			return nil, fmt.Errorf("marshal field %q: %w", key, err)
		}
		buf.Write(valueData)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
