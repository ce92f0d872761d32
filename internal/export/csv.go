package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/Sole248k/CloudShield/internal/models"
)

// Filename is the fixed download name for batch exports.
const Filename = "evaluation_data.csv"

// Columns returns the export header: the union of keys across the batch,
// keeping the first record's key order and appending later-seen keys in
// first-seen order. Taking the union instead of just the first record's
// keys prevents silent column misalignment on heterogeneous batches.
func Columns(records []models.LogRecord) []string {
	columns := make([]string, 0)
	seen := make(map[string]struct{})
	for _, rec := range records {
		for _, key := range rec.Keys() {
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			columns = append(columns, key)
		}
	}
	return columns
}

// Write emits the batch as CSV: a header row of column names, then one row
// per record with values in header order. Cells are quoted by the CSV
// writer where needed, so delimiters inside values survive. An empty batch
// writes nothing and is not an error.
func Write(w io.Writer, records []models.LogRecord) error {
	if len(records) == 0 {
		return nil
	}

	columns := Columns(records)
	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	row := make([]string, len(columns))
	for i, rec := range records {
		for j, column := range columns {
			value, ok := rec.Get(column)
			if !ok {
				row[j] = ""
				continue
			}
			row[j] = formatValue(value)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write record %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		// Nested structures are rare but legal in an open record; keep
		// them machine-readable.
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(data)
	}
}
