package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/artranslate/relay/internal/protocol"
)

// ErrRetryExhausted is returned once the bounded retry budget is spent.
// Callers convert it to a structured error frame; it never crosses the relay
// boundary as a crash.
var ErrRetryExhausted = errors.New("translation failed after retries")

// Translator is the upstream translation boundary. Implementations must be
// safe for concurrent use across connections.
type Translator interface {
	Translate(ctx context.Context, req *protocol.TranslationRequest) (*protocol.TranslationResponse, error)
}

const (
	defaultMaxRetries  = 3
	defaultBackoffBase = 1 * time.Second
	defaultTimeout     = 30 * time.Second
)

// Config holds configuration for the Google Translate client.
// Required fields:
// - APIKey: the translation API key, sent as a query parameter
// - URL: the translation endpoint
// Optional fields with defaults:
// - MaxRetries: attempts per call (default 3)
// - BackoffBase: linear backoff base; attempt n waits n times this (default 1s)
// - Timeout: per-attempt HTTP timeout (default 30s)
type Config struct {
	APIKey      string
	URL         string
	MaxRetries  int
	BackoffBase time.Duration
	Timeout     time.Duration
}

// Client calls the translation API over a pooled HTTP transport. It is
// stateless apart from per-call retry bookkeeping and safe for concurrent
// use.
type Client struct {
	apiKey      string
	endpoint    string
	maxRetries  int
	backoffBase time.Duration
	httpClient  *http.Client
	logger      *zap.Logger

	// sleep waits for the backoff duration or until ctx is done.
	sleep func(ctx context.Context, d time.Duration) error
}

var _ Translator = (*Client)(nil)

// NewClient creates a translation client. Credentials are fixed for the
// lifetime of the client.
func NewClient(config Config, logger *zap.Logger) (*Client, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("translation API key is required")
	}
	if config.URL == "" {
		return nil, fmt.Errorf("translation API URL is required")
	}
	if _, err := url.Parse(config.URL); err != nil {
		return nil, fmt.Errorf("invalid translation API URL: %w", err)
	}

	maxRetries := config.MaxRetries
	if maxRetries == 0 {
		maxRetries = defaultMaxRetries
	}
	backoffBase := config.BackoffBase
	if backoffBase == 0 {
		backoffBase = defaultBackoffBase
	}
	timeout := config.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	httpClient := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	return &Client{
		apiKey:      config.APIKey,
		endpoint:    config.URL,
		maxRetries:  maxRetries,
		backoffBase: backoffBase,
		httpClient:  httpClient,
		logger:      logger,
		sleep:       sleepContext,
	}, nil
}

// Translate attempts the upstream call up to the configured retry budget.
// After a failed attempt n it waits n times the backoff base before trying
// again. A success on any attempt short-circuits the remaining retries; on
// exhaustion the error wraps ErrRetryExhausted.
func (c *Client) Translate(ctx context.Context, req *protocol.TranslationRequest) (*protocol.TranslationResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid translation request: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		resp, err := c.doRequest(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		c.logger.Warn("Translation attempt failed",
			zap.Int("attempt", attempt),
			zap.Int("maxRetries", c.maxRetries),
			zap.Error(err))

		if attempt == c.maxRetries {
			break
		}

		if err := c.sleep(ctx, time.Duration(attempt)*c.backoffBase); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRetryExhausted, err)
		}
	}

	return nil, fmt.Errorf("%w after %d attempts: %v", ErrRetryExhausted, c.maxRetries, lastErr)
}

func (c *Client) doRequest(ctx context.Context, req *protocol.TranslationRequest) (*protocol.TranslationResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	callURL, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint: %w", err)
	}
	query := callURL.Query()
	query.Set("key", c.apiKey)
	callURL.RawQuery = query.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, callURL.String(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errorBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("HTTP error %d: %s", resp.StatusCode, string(errorBody))
	}

	var translationResp protocol.TranslationResponse
	if err := json.NewDecoder(resp.Body).Decode(&translationResp); err != nil {
		return nil, fmt.Errorf("failed to parse response JSON: %w", err)
	}

	// The API contract is order-preserving and length-preserving; anything
	// else is a malformed response.
	if got, want := len(translationResp.Data.Translations), len(req.Q); got != want {
		return nil, fmt.Errorf("response has %d translations for %d inputs", got, want)
	}

	return &translationResp, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
