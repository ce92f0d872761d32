package main

import (
	"encoding/json"
	"log"
	"net/http"
	"time"
)

// Canned /predict response so the console can be exercised without the
// real classification backend running.
func main() {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/predict", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			writeJSON(w, map[string]any{"error": "expected multipart upload"})
			return
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			writeJSON(w, map[string]any{"error": "file is required"})
			return
		}
		file.Close()
		modelID := r.FormValue("model_id")
		log.Printf("classifying upload with %s", modelID)

		writeJSON(w, map[string]any{
			"data": []map[string]any{
				{"sbytes": 120, "dbytes": 80, "proto": "tcp", "label": 0, "prediction": 0, "anomaly_score": 0.31},
				{"sbytes": 480, "dbytes": 95, "proto": "tcp", "label": 1, "prediction": 1, "anomaly_score": -0.12},
				{"sbytes": 60, "dbytes": 520, "proto": "udp", "label": 0, "prediction": 0, "anomaly_score": 0.27},
				{"sbytes": 210, "dbytes": 130, "proto": "tcp", "label": 1, "prediction": 0, "anomaly_score": 0.05},
			},
			"metrics": map[string]any{
				"accuracy":         0.75,
				"precision":        1.0,
				"recall":           0.5,
				"f1_score":         0.667,
				"roc_auc":          0.81,
				"confusion_matrix": []int{2, 0, 1, 1},
				"threshold":        0.02,
				"scores":           []float64{-0.12, 0.05, 0.27, 0.31},
			},
		})
	})

	logger := log.New(log.Writer(), "classifier-mock ", log.LstdFlags|log.Lmicroseconds)
	srv := &http.Server{
		Addr:    ":8000",
		Handler: logRequests(logger, mux),
	}

	logger.Println("listening on :8000")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("server error: %v", err)
	}
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("encode error: %v", err)
	}
}

func logRequests(logger *log.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		logger.Printf("%s %s %d %s", r.Method, r.URL.Path, rw.status, time.Since(start))
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
