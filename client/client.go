// Package client is a typed client for the graphbench REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"graphbench/structs"

	log "github.com/sirupsen/logrus"
)

const (
	// BaseURLEnv names the environment variable holding the API base URL.
	BaseURLEnv     = "GRAPHBENCH_API_URL"
	DefaultBaseURL = "http://localhost:8000/api"
)

var ErrAlgorithmNotFound = errors.New("algorithm not found")

// HTTPError is returned for any non-2xx response.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("unexpected status code %d: %s", e.StatusCode, e.Body)
}

// APIClient talks to the catalogue, graph, run and benchmark endpoints.
type APIClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewAPIClient creates a client for baseURL; an empty baseURL falls back to
// GRAPHBENCH_API_URL and then to DefaultBaseURL.
func NewAPIClient(baseURL string) *APIClient {
	if baseURL == "" {
		baseURL = os.Getenv(BaseURLEnv)
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &APIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}
}

func (c *APIClient) BaseURL() string { return c.baseURL }

// FetchAlgorithms lists the whole catalogue.
// GET {baseURL}/algorithms/
func (c *APIClient) FetchAlgorithms(ctx context.Context) ([]structs.Algorithm, error) {
	var out []structs.Algorithm
	err := c.do(ctx, http.MethodGet, "/algorithms/", nil, nil, &out)
	return out, err
}

// FetchAlgorithm returns one catalogue entry.
// GET {baseURL}/algorithms/{id}/
func (c *APIClient) FetchAlgorithm(ctx context.Context, id int64) (*structs.Algorithm, error) {
	var out structs.Algorithm
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/algorithms/%d/", id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FetchAlgorithmByType returns the first entry matching both types.
// GET {baseURL}/algorithms/?algorithm_type=..&implementation_type=..
func (c *APIClient) FetchAlgorithmByType(ctx context.Context, algorithmType, implementationType string) (*structs.Algorithm, error) {
	q := url.Values{}
	q.Set("algorithm_type", algorithmType)
	q.Set("implementation_type", implementationType)

	var out []structs.Algorithm
	if err := c.do(ctx, http.MethodGet, "/algorithms/", q, nil, &out); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s/%s: %w", algorithmType, implementationType, ErrAlgorithmNotFound)
	}
	return &out[0], nil
}

// FetchPerformanceData lists the performance rows of one algorithm.
// GET {baseURL}/performance/?algorithm={id}
func (c *APIClient) FetchPerformanceData(ctx context.Context, algorithmID int64) ([]structs.PerformanceData, error) {
	var out []structs.PerformanceData
	err := c.do(ctx, http.MethodGet, "/performance/", algorithmQuery(algorithmID), nil, &out)
	return out, err
}

// FetchSpeedupData lists the speedup rows of one algorithm.
// GET {baseURL}/speedup/?algorithm={id}
func (c *APIClient) FetchSpeedupData(ctx context.Context, algorithmID int64) ([]structs.SpeedupData, error) {
	var out []structs.SpeedupData
	err := c.do(ctx, http.MethodGet, "/speedup/", algorithmQuery(algorithmID), nil, &out)
	return out, err
}

func algorithmQuery(id int64) url.Values {
	q := url.Values{}
	q.Set("algorithm", strconv.FormatInt(id, 10))
	return q
}

// do sends one request and decodes a 2xx JSON body into out.
func (c *APIClient) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	log.Debugf("%s %s", method, target)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to request %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(resp.Body)
		return &HTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
