package runpod

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/runpod-serverless-metrics/runner/config"
	"github.com/runpod-serverless-metrics/runner/types"
)

// maxBodySize caps how much of a metrics response is read into memory
const maxBodySize = 16 << 20

// Response is the raw result of a metrics API call
type Response struct {
	StatusCode int
	Body       []byte
}

// Client queries the RunPod serverless metrics API
type Client struct {
	baseURL    string
	interval   string
	httpClient *http.Client
	log        logrus.FieldLogger
}

// NewClient creates a metrics API client. A zero timeout leaves the default in place.
func NewClient(baseURL, interval string, timeout time.Duration, log logrus.FieldLogger) *Client {
	if timeout <= 0 {
		timeout = config.DefaultRequestTimeout
	}
	if interval == "" {
		interval = config.DefaultInterval
	}
	return &Client{
		baseURL:  baseURL,
		interval: interval,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log.WithField("component", "runpod-client"),
	}
}

// NewClientFromConfig creates a client using the API settings of cfg
func NewClientFromConfig(cfg *config.Config, log logrus.FieldLogger) *Client {
	return NewClient(cfg.APIBaseURL, cfg.Interval, cfg.Timeout(), log)
}

// MetricsURL returns the request_ts_v1 URL for an endpoint id
func (c *Client) MetricsURL(endpointID string) (string, error) {
	u, err := url.JoinPath(c.baseURL, "v2", endpointID, "metrics", "request_ts_v1")
	if err != nil {
		return "", fmt.Errorf("failed to build metrics URL: %w", err)
	}
	return u + "?" + url.Values{"interval": {c.interval}}.Encode(), nil
}

// FetchMetrics issues one GET for the endpoint's metrics. Transport errors are
// returned as-is; the status code is not interpreted.
func (c *Client) FetchMetrics(ctx context.Context, endpoint config.Endpoint) (*Response, error) {
	if err := config.ValidateEndpoint(endpoint); err != nil {
		return nil, err
	}

	metricsURL, err := c.MetricsURL(endpoint.ID)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, metricsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+endpoint.APIKey)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request for %s endpoint failed: %w", endpoint.Name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	c.log.WithFields(logrus.Fields{
		"endpoint":    endpoint.Name,
		"status_code": resp.StatusCode,
		"bytes":       len(body),
		"duration":    time.Since(start),
	}).Debug("Fetched endpoint metrics")

	return &Response{StatusCode: resp.StatusCode, Body: body}, nil
}

// Classify turns a raw response into decoded metrics or a typed error
func Classify(endpointName string, resp *Response) (*types.MetricsResponse, error) {
	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		return nil, &AuthenticationError{Endpoint: endpointName}
	default:
		return nil, &UnexpectedStatusError{Endpoint: endpointName, StatusCode: resp.StatusCode}
	}

	var metrics types.MetricsResponse
	if err := json.Unmarshal(resp.Body, &metrics); err != nil {
		return nil, &MalformedSampleError{Endpoint: endpointName, Err: err}
	}
	return &metrics, nil
}

// LatestSample fetches the endpoint's metrics and returns the most recent sample.
// It returns nil without error when the API has no samples for the endpoint.
// Only the sample time is checked here; numeric fields are left to the caller
// so a stale sample is never rejected for its contents.
func (c *Client) LatestSample(ctx context.Context, endpoint config.Endpoint) (*types.Sample, error) {
	resp, err := c.FetchMetrics(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	metrics, err := Classify(endpoint.Name, resp)
	if err != nil {
		return nil, err
	}

	sample, ok := metrics.Latest()
	if !ok {
		return nil, nil
	}

	if _, err := sample.Timestamp(); err != nil {
		return nil, &MalformedSampleError{Endpoint: endpoint.Name, Err: err}
	}

	return sample, nil
}
