package repo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Sole248k/CloudShield/internal/models"
)

func newClassifierServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *ClassifierClient) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server, NewClassifierClient(server.URL, "/predict", 5*time.Second)
}

func TestClassifySuccess(t *testing.T) {
	_, client := newClassifierServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("expected POST, got %s", r.Method)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		if got := r.FormValue("model_id"); got != "model3" {
			t.Fatalf("expected model_id model3, got %q", got)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		defer file.Close()
		if header.Filename != "traffic.csv" {
			t.Fatalf("unexpected filename %q", header.Filename)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"data": [
				{"sbytes":120,"dbytes":30,"anomaly_score":-0.02,"prediction":0},
				{"sbytes":900,"dbytes":700,"anomaly_score":-0.31,"prediction":1}
			],
			"metrics": {
				"accuracy":0.95,"precision":0.9,"recall":0.8,"f1_score":0.85,"roc_auc":0.93,
				"confusion_matrix":[10,1,2,7],"threshold":-0.05,"scores":[-0.3,-0.1,0.2]
			}
		}`))
	})

	records, metrics, err := client.Classify(context.Background(), models.ModelNormalECDF, "traffic.csv", strings.NewReader("sbytes,dbytes\n120,30\n900,700\n"))
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if !records[1].IsAnomaly() {
		t.Fatalf("second record should be flagged: %+v", records[1])
	}
	if metrics == nil || metrics.Accuracy != 0.95 {
		t.Fatalf("metrics not decoded: %+v", metrics)
	}
	if metrics.Threshold == nil || *metrics.Threshold != -0.05 {
		t.Fatalf("threshold not decoded: %+v", metrics.Threshold)
	}
	keys := records[0].Keys()
	if len(keys) != 4 || keys[0] != "sbytes" || keys[3] != "prediction" {
		t.Fatalf("record key order not preserved: %v", keys)
	}
}

func TestClassifyUnlabeledBatchHasNoMetrics(t *testing.T) {
	_, client := newClassifierServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"prediction":0}],"metrics":{}}`))
	})

	records, metrics, err := client.Classify(context.Background(), models.ModelNormalIF, "traffic.csv", strings.NewReader("x\n1\n"))
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if len(records) != 1 || metrics != nil {
		t.Fatalf("expected records without metrics, got %d records, metrics %+v", len(records), metrics)
	}
}

func TestClassifyServerError(t *testing.T) {
	_, client := newClassifierServer(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	if _, _, err := client.Classify(context.Background(), models.ModelNormalIF, "traffic.csv", strings.NewReader("x\n")); err == nil {
		t.Fatalf("expected error on 500 response")
	}
}

func TestClassifyRejectsMalformedResponse(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"missing data", `{"metrics":{}}`},
		{"error body", `{"error":"Invalid model_id: model9"}`},
		{"bad confusion matrix", `{"data":[],"metrics":{"accuracy":1,"confusion_matrix":[1,2,3],"scores":[0.1]}}`},
		{"not json", `<html>`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, client := newClassifierServer(t, func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(tc.body))
			})
			if _, _, err := client.Classify(context.Background(), models.ModelNormalIF, "traffic.csv", strings.NewReader("x\n")); err == nil {
				t.Fatalf("expected error for %s", tc.name)
			}
		})
	}
}

func TestClassifyUnconfigured(t *testing.T) {
	client := NewClassifierClient("", "/predict", time.Second)
	if _, _, err := client.Classify(context.Background(), models.ModelNormalIF, "traffic.csv", strings.NewReader("x\n")); err == nil {
		t.Fatalf("expected error when base URL is missing")
	}
}
