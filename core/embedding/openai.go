package embedding

import (
	"bytes"
	"context"
	"net"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gogf/gf/v2/frame/g"

	"github.com/edugo/edugen/core/config"
	"github.com/edugo/edugen/core/errors"
)

// maxBatchSize bounds the number of inputs per outbound call to respect
// upstream payload and rate limits. Batching is a throughput concern only;
// results are identical at batch size 1.
const maxBatchSize = 5

// retry parameters for transient upstream failures
const (
	maxRetries        = 2
	initialRetryDelay = 500 * time.Millisecond
	maxRetryDelay     = 5 * time.Second
	retryMultiplier   = 2.0
)

// OpenAIProvider calls an OpenAI-compatible embeddings endpoint.
type OpenAIProvider struct {
	apiKey     string
	baseURL    string
	model      string
	dimension  int
	timeout    time.Duration
	httpClient *http.Client
}

// EmbeddingRequest embeddings API request body
type EmbeddingRequest struct {
	Input      []string `json:"input"`
	Model      string   `json:"model"`
	Dimensions *int     `json:"dimensions,omitempty"`
}

// EmbeddingResponse embeddings API response body
type EmbeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
		Object    string    `json:"object"`
	} `json:"data"`
	Model string `json:"model"`
}

// ErrorResponse API error response
type ErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code,omitempty"`
	} `json:"error"`
}

// NewOpenAIProvider builds the real embedding client. Configuration must be
// complete; a missing key or URL is a configuration error, not a degraded
// condition.
func NewOpenAIProvider(conf config.EmbeddingConfig) (*OpenAIProvider, error) {
	if conf.GetAPIKey() == "" {
		return nil, errors.New(errors.ErrConfiguration, "embedding apiKey is required")
	}
	if conf.GetBaseURL() == "" {
		return nil, errors.New(errors.ErrConfiguration, "embedding baseURL is required")
	}
	if conf.GetEmbeddingModel() == "" {
		return nil, errors.New(errors.ErrConfiguration, "embedding model is required")
	}

	httpClient := &http.Client{
		Timeout: 2 * time.Minute,
		Transport: &http.Transport{
			Dial: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).Dial,
			TLSHandshakeTimeout:   30 * time.Second,
			ResponseHeaderTimeout: 1 * time.Minute,
			ExpectContinueTimeout: 1 * time.Second,
			IdleConnTimeout:       90 * time.Second,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   10,
		},
	}

	return &OpenAIProvider{
		apiKey:     conf.GetAPIKey(),
		baseURL:    conf.GetBaseURL(),
		model:      conf.GetEmbeddingModel(),
		dimension:  conf.GetDimension(),
		timeout:    conf.GetEmbeddingTimeout(),
		httpClient: httpClient,
	}, nil
}

func (e *OpenAIProvider) Dimension() int {
	return e.dimension
}

// Embed vectorizes texts in bounded sequential batches; batch N+1 is not sent
// before batch N returns.
func (e *OpenAIProvider) Embed(ctx context.Context, texts []string) (*Result, error) {
	if len(texts) == 0 {
		return &Result{Vectors: [][]float32{}}, nil
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += maxBatchSize {
		end := start + maxBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := e.embedBatchWithRetry(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batch...)
	}

	return &Result{Vectors: vectors}, nil
}

// embedBatchWithRetry retries transient upstream failures with exponential
// backoff before giving up on the batch
func (e *OpenAIProvider) embedBatchWithRetry(ctx context.Context, texts []string) ([][]float32, error) {
	var lastErr error
	delay := initialRetryDelay

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			g.Log().Infof(ctx, "Retrying embedding attempt %d/%d after %v delay", attempt, maxRetries, delay)

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
				delay = time.Duration(float64(delay) * retryMultiplier)
				if delay > maxRetryDelay {
					delay = maxRetryDelay
				}
			}
		}

		vectors, err := e.embedBatch(ctx, texts)
		if err != nil {
			lastErr = err
			g.Log().Warningf(ctx, "Embedding attempt %d failed: %v", attempt+1, err)
			continue
		}
		return vectors, nil
	}

	return nil, errors.Newf(errors.ErrEmbeddingFailed, "embedding failed after %d retries, last error: %v", maxRetries, lastErr)
}

func (e *OpenAIProvider) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	req := EmbeddingRequest{
		Input:      texts,
		Model:      e.model,
		Dimensions: &e.dimension,
	}

	jsonData, err := sonic.Marshal(req)
	if err != nil {
		return nil, errors.Newf(errors.ErrEmbeddingFailed, "failed to marshal request: %v", err)
	}

	url := e.baseURL + "/embeddings"
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, errors.Newf(errors.ErrEmbeddingFailed, "failed to create request: %v", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return nil, errors.Newf(errors.ErrProviderUnavailable, "failed to send request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp ErrorResponse
		if err := sonic.ConfigDefault.NewDecoder(resp.Body).Decode(&errResp); err != nil {
			return nil, errors.Newf(errors.ErrProviderUnavailable, "HTTP %d: failed to decode error response: %v", resp.StatusCode, err)
		}
		return nil, errors.Newf(errors.ErrProviderUnavailable, "API error (HTTP %d): %s", resp.StatusCode, errResp.Error.Message)
	}

	var embResp EmbeddingResponse
	if err := sonic.ConfigDefault.NewDecoder(resp.Body).Decode(&embResp); err != nil {
		return nil, errors.Newf(errors.ErrEmbeddingFailed, "failed to decode response: %v", err)
	}

	if len(embResp.Data) != len(texts) {
		return nil, errors.Newf(errors.ErrEmbeddingFailed, "response data length (%d) doesn't match input length (%d)", len(embResp.Data), len(texts))
	}

	// data is indexed, order-aligned with input
	result := make([][]float32, len(texts))
	for _, data := range embResp.Data {
		if data.Index < 0 || data.Index >= len(result) {
			return nil, errors.Newf(errors.ErrEmbeddingFailed, "invalid embedding index: %d", data.Index)
		}
		result[data.Index] = data.Embedding
	}

	return result, nil
}
