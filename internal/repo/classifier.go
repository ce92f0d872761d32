package repo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/Sole248k/CloudShield/internal/models"
)

// ClassifierClient wraps the external ML inference backend. The backend
// scores an uploaded log batch with the selected model and returns the
// classified records together with evaluation metrics.
type ClassifierClient struct {
	baseURL     string
	predictPath string
	httpClient  *http.Client
}

// NewClassifierClient constructs a client targeting the configured
// classifier instance.
func NewClassifierClient(baseURL, predictPath string, timeout time.Duration) *ClassifierClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ClassifierClient{
		baseURL:     strings.TrimRight(baseURL, "/"),
		predictPath: predictPath,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// classifyResponse is the classifier's wire shape. Metrics stays raw until
// the shape is validated: an unlabeled upload legitimately returns an
// empty metrics object.
type classifyResponse struct {
	Data    []models.LogRecord `json:"data"`
	Metrics json.RawMessage    `json:"metrics"`
	Error   string             `json:"error"`
}

// Classify submits the file payload and model id to the classifier and
// returns the classified batch. A malformed response is reported as an
// error rather than propagated into derivation.
func (c *ClassifierClient) Classify(ctx context.Context, modelID models.ModelID, filename string, payload io.Reader) ([]models.LogRecord, *models.Metrics, error) {
	if c == nil || c.baseURL == "" {
		return nil, nil, fmt.Errorf("classifier base URL not configured")
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, nil, fmt.Errorf("build upload form: %w", err)
	}
	if _, err := io.Copy(part, payload); err != nil {
		return nil, nil, fmt.Errorf("copy upload payload: %w", err)
	}
	if err := writer.WriteField("model_id", string(modelID)); err != nil {
		return nil, nil, fmt.Errorf("build upload form: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, nil, fmt.Errorf("build upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.predictURL(), &body)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("classifier request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("classifier returned %s", resp.Status)
	}

	var decoded classifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, nil, fmt.Errorf("decode classifier response: %w", err)
	}
	if decoded.Error != "" {
		return nil, nil, fmt.Errorf("classifier rejected request: %s", decoded.Error)
	}
	if decoded.Data == nil {
		return nil, nil, fmt.Errorf("classifier response missing data")
	}

	metrics, err := parseMetrics(decoded.Metrics)
	if err != nil {
		return nil, nil, fmt.Errorf("classifier response metrics: %w", err)
	}
	return decoded.Data, metrics, nil
}

// parseMetrics treats an absent or empty metrics object as "unlabeled
// batch" and anything structurally invalid as a backend error.
func parseMetrics(raw json.RawMessage) (*models.Metrics, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" || trimmed == "{}" {
		return nil, nil
	}

	var metrics models.Metrics
	if err := json.Unmarshal(raw, &metrics); err != nil {
		return nil, err
	}
	if metrics.Empty() {
		return nil, nil
	}
	if err := metrics.Validate(); err != nil {
		return nil, err
	}
	return &metrics, nil
}

func (c *ClassifierClient) predictURL() string {
	cleaned := "/" + strings.TrimLeft(c.predictPath, "/")
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return c.baseURL + cleaned
	}
	u.Path = path.Join(u.Path, cleaned)
	return u.String()
}
