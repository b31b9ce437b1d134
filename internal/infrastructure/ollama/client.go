package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phuslu/log"
	"golang.org/x/time/rate"

	"github.com/productsheet/backend/internal/domain"
)

const (
	statusPath   = "/api/tags"
	generatePath = "/api/generate"
	userAgent    = "ProductSheet/1.0"
)

// Options tunes the HTTP behaviour of the client
type Options struct {
	// Timeout bounds a single generate request.
	Timeout time.Duration
	// RequestsPerSecond limits generate calls; zero disables limiting.
	RequestsPerSecond float64
}

// Client handles communication with an Ollama-compatible model service
type Client struct {
	httpClient  *http.Client
	baseURL     string
	rateLimiter *rate.Limiter
	debug       bool
}

// NewClient creates a new model-service client
func NewClient(baseURL string, opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 180 * time.Second
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL:     strings.TrimRight(baseURL, "/"),
		rateLimiter: limiter,
	}
}

// SetDebug enables request/response size logging
func (c *Client) SetDebug(debug bool) {
	c.debug = debug
}

// Ping checks the status endpoint. Any transport error or non-200 status
// means the service is not ready. The caller bounds it through ctx.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+statusPath, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classifyTransportError(ctx, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return &domain.StatusError{StatusCode: resp.StatusCode}
	}
	return nil
}

// Models lists the model names the service has available.
func (c *Client) Models(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+statusPath, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(ctx, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, &domain.StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var tags tagsResponse
	if err := json.Unmarshal(body, &tags); err != nil {
		return nil, fmt.Errorf("%w: decode tags: %v", domain.ErrModelResponse, err)
	}
	return modelNames(tags), nil
}

// Generate submits one non-streaming prompt. Errors wrap ErrModelConnection
// when the service could not be reached, ErrAnalysisTimeout when the request
// exceeded its deadline, and ErrModelResponse for bad replies.
func (c *Client) Generate(ctx context.Context, request domain.ModelRequest) (*domain.ModelReply, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	reqID := uuid.New().String()
	start := time.Now()

	payload, err := json.Marshal(toGenerateRequest(request))
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+generatePath, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Request-ID", reqID)

	if c.debug {
		log.Debug().Str("req_id", reqID).Str("model", request.Model).Int("prompt_len", len(request.Prompt)).Msg("ollama generate request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		classified := classifyTransportError(ctx, err)
		log.Warn().Str("req_id", reqID).Err(classified).Dur("elapsed", time.Since(start)).Msg("ollama generate failed")
		return nil, classified
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransportError(ctx, err)
	}

	if resp.StatusCode != http.StatusOK {
		log.Warn().Str("req_id", reqID).Int("status", resp.StatusCode).Msg("ollama generate rejected")
		return nil, &domain.StatusError{StatusCode: resp.StatusCode, Body: truncate(string(body), 512)}
	}

	var wire generateResponse
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("%w: decode reply: %v", domain.ErrModelResponse, err)
	}

	if c.debug {
		log.Debug().Str("req_id", reqID).Int("bytes", len(body)).Dur("elapsed", time.Since(start)).Msg("ollama generate reply")
	}

	reply := fromGenerateResponse(wire)
	return &reply, nil
}

// classifyTransportError maps client-side failures onto the domain taxonomy.
// Caller cancellation is passed through untouched so it is never retried.
// wait blocks on the rate limiter. A wait that would outlast the request
// deadline counts as a timeout.
func (c *Client) wait(ctx context.Context) error {
	err := c.rateLimiter.Wait(ctx)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return classifyTransportError(ctx, ctx.Err())
	}
	if _, ok := ctx.Deadline(); ok {
		return fmt.Errorf("%w: rate limiter: %v", domain.ErrAnalysisTimeout, err)
	}
	return fmt.Errorf("rate limiter error: %w", err)
}

func classifyTransportError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return ctx.Err()
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %v", domain.ErrAnalysisTimeout, err)
	}
	return fmt.Errorf("%w: %v", domain.ErrModelConnection, err)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
