// Package recommend talks to the external recommendation service
package recommend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/car-advisor/advisor/pkg/types"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

const (
	recommendPath = "/api/recommend"
	batchPath     = "/api/cars/batch"

	defaultTimeout = 15 * time.Second
	maxErrorBody   = 4 << 10
)

// ErrDecode is returned when the response body is not the expected JSON
var ErrDecode = errors.New("failed to decode upstream response")

// HTTPError is a non-2xx upstream status
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP error! status: %d", e.StatusCode)
}

// UpstreamError is a well-formed response with success=false
type UpstreamError struct {
	Message string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("recommendation failed: %s", e.Message)
}

// Observer receives call outcomes; metrics.Recorder satisfies it
type Observer interface {
	ObserveUpstream(endpoint string, duration time.Duration, err error)
}

// Client calls the recommendation and batch endpoints
type Client struct {
	baseURL  string
	http     *http.Client
	group    singleflight.Group
	observer Observer
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-call timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithObserver reports every call to o
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// NewClient creates a client for the service at baseURL
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Recommend posts req and returns the ranked cars. Identical requests in
// flight at the same time share one upstream call. The shared call runs
// detached from any single caller and is bounded by the client timeout;
// each caller stops waiting when its own ctx is done.
func (c *Client) Recommend(ctx context.Context, req types.RecommendationRequest) (*types.RecommendResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	detached := context.WithoutCancel(ctx)
	ch := c.group.DoChan(string(body), func() (interface{}, error) {
		callCtx, cancel := context.WithTimeout(detached, c.callTimeout())
		defer cancel()

		var resp types.RecommendResponse
		if err := c.post(callCtx, recommendPath, body, &resp); err != nil {
			return nil, err
		}
		if !resp.Success {
			return nil, &UpstreamError{Message: resp.Error}
		}
		return &resp, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("request to %s abandoned: %w", recommendPath, ctx.Err())
	case res = <-ch:
	}
	if res.Err != nil {
		return nil, res.Err
	}

	if res.Shared {
		log.WithField("profile", req.UserProfile).Debug("Shared in-flight recommendation call")
	}

	resp := *res.Val.(*types.RecommendResponse)
	resp.Cars = append([]types.CarRecord(nil), resp.Cars...)
	return &resp, nil
}

func (c *Client) callTimeout() time.Duration {
	if c.http.Timeout > 0 {
		return c.http.Timeout
	}
	return defaultTimeout
}

// Batch fetches cars by id, used for the favorites page
func (c *Client) Batch(ctx context.Context, ids []string) ([]types.CarRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(struct {
		IDs []string `json:"ids"`
	}{IDs: ids})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	var cars []types.CarRecord
	if err := c.post(ctx, batchPath, body, &cars); err != nil {
		return nil, err
	}
	return cars, nil
}

func (c *Client) post(ctx context.Context, path string, body []byte, out interface{}) (err error) {
	start := time.Now()
	defer func() {
		if c.observer != nil {
			c.observer.ObserveUpstream(path, time.Since(start), err)
		}
	}()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		log.WithFields(log.Fields{
			"path":  path,
			"error": err.Error(),
		}).Warn("Recommendation service unreachable")
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		log.WithFields(log.Fields{
			"path":   path,
			"status": resp.StatusCode,
		}).Warn("Recommendation service returned error status")
		return &HTTPError{StatusCode: resp.StatusCode, Body: string(snippet)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}

	log.WithFields(log.Fields{
		"path":     path,
		"duration": time.Since(start).Milliseconds(),
	}).Debug("Recommendation service call completed")
	return nil
}
