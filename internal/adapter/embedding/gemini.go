package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"ragcloud/internal/domain"
)

const serviceName = "embedding"

// GeminiEmbedder calls the Gemini batchEmbedContents endpoint.
type GeminiEmbedder struct {
	apiKey  string
	model   string
	baseURL string
	timeout time.Duration
	client  *http.Client

	mu        sync.RWMutex
	dimension int
}

type batchEmbedRequest struct {
	Requests []embedContentRequest `json:"requests"`
}

type embedContentRequest struct {
	Model    string  `json:"model"`
	Content  content `json:"content"`
	TaskType string  `json:"taskType"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type batchEmbedResponse struct {
	Embeddings []struct {
		Values []float32 `json:"values"`
	} `json:"embeddings"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// NewGeminiEmbedder reads the API key from apiKeyEnv.
func NewGeminiEmbedder(apiKeyEnv, model, baseURL string, timeout time.Duration) (*GeminiEmbedder, error) {
	apiKey := os.Getenv(apiKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("API key not found in environment variable: %s", apiKeyEnv)
	}
	return NewGeminiEmbedderWithKey(apiKey, model, baseURL, timeout), nil
}

func NewGeminiEmbedderWithKey(apiKey, model, baseURL string, timeout time.Duration) *GeminiEmbedder {
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if model == "" {
		model = "models/gemini-embedding-001"
	}
	if !strings.HasPrefix(model, "models/") {
		model = "models/" + model
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &GeminiEmbedder{
		apiKey:  apiKey,
		model:   model,
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		client:  &http.Client{},
	}
}

// TaskType maps an intent to the Gemini task type.
func TaskType(intent domain.Intent) string {
	if intent == domain.IntentQuery {
		return "RETRIEVAL_QUERY"
	}
	return "RETRIEVAL_DOCUMENT"
}

func (e *GeminiEmbedder) Embed(ctx context.Context, texts []string, intent domain.Intent) ([][]float32, error) {
	texts = FilterBlank(texts)
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	reqBody := batchEmbedRequest{Requests: make([]embedContentRequest, len(texts))}
	taskType := TaskType(intent)
	for i, t := range texts {
		reqBody.Requests[i] = embedContentRequest{
			Model:    e.model,
			Content:  content{Parts: []part{{Text: t}}},
			TaskType: taskType,
		}
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s:batchEmbedContents", e.baseURL, e.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-goog-api-key", e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, &domain.RemoteServiceError{Service: serviceName, Err: fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.RemoteServiceError{Service: serviceName, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &domain.RemoteServiceError{Service: serviceName, StatusCode: resp.StatusCode, Err: errors.New(preview(body))}
	}

	var embResp batchEmbedResponse
	if err := json.Unmarshal(body, &embResp); err != nil {
		return nil, &domain.RemoteServiceError{
			Service:    serviceName,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("failed to parse response (body: %s): %w", preview(body), err),
		}
	}
	if embResp.Error != nil {
		return nil, &domain.RemoteServiceError{Service: serviceName, StatusCode: embResp.Error.Code, Err: errors.New(embResp.Error.Message)}
	}

	vectors, err := e.collect(embResp, len(texts))
	if err != nil {
		return nil, &domain.RemoteServiceError{Service: serviceName, StatusCode: resp.StatusCode, Err: err}
	}
	return vectors, nil
}

// collect validates the response shape and records the dimension on first use.
func (e *GeminiEmbedder) collect(resp batchEmbedResponse, want int) ([][]float32, error) {
	if len(resp.Embeddings) != want {
		return nil, fmt.Errorf("expected %d embeddings, got %d", want, len(resp.Embeddings))
	}

	vectors := make([][]float32, want)
	dim := len(resp.Embeddings[0].Values)
	if dim == 0 {
		return nil, errors.New("empty embedding vector")
	}
	for i, emb := range resp.Embeddings {
		if len(emb.Values) != dim {
			return nil, fmt.Errorf("embedding %d has dimension %d, expected %d", i, len(emb.Values), dim)
		}
		vectors[i] = emb.Values
	}

	e.mu.Lock()
	if e.dimension == 0 {
		e.dimension = dim
	}
	e.mu.Unlock()

	return vectors, nil
}

func (e *GeminiEmbedder) Dimension() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.dimension
}

func (e *GeminiEmbedder) ModelName() string {
	return e.model
}

// FilterBlank drops blank texts and trims the rest.
func FilterBlank(texts []string) []string {
	out := make([]string, 0, len(texts))
	for _, t := range texts {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func preview(body []byte) string {
	s := string(body)
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
