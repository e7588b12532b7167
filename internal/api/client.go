// Package api is the REST client for the carbon-sink monitoring backend.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"carbonsink/internal/logger"

	"github.com/go-resty/resty/v2"
)

// ErrUnauthorized is matched by every error caused by a 401 response
var ErrUnauthorized = errors.New("unauthorized")

// APIError is a non-2xx backend response
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("backend returned status %d", e.Status)
	}
	return fmt.Sprintf("backend returned status %d: %s", e.Status, e.Detail)
}

// Unwrap makes errors.Is(err, ErrUnauthorized) hold for 401 responses
func (e *APIError) Unwrap() error {
	if e.Status == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	return nil
}

// Client issues requests against the backend REST API.
// Authentication state is never stored on the client; callers pass a Session.
type Client struct {
	http    *resty.Client
	baseURL string
	log     *logger.Logger
}

// NewClient creates a client for the API rooted at baseURL (e.g. http://localhost:8000/api)
func NewClient(baseURL string) *Client {
	client := resty.New()
	client.SetTimeout(30 * time.Second)
	client.SetRetryCount(2)
	client.SetRetryWaitTime(1 * time.Second)
	client.AddRetryCondition(func(r *resty.Response, err error) bool {
		return err != nil || (r != nil && r.StatusCode() >= 500)
	})

	return &Client{
		http:    client,
		baseURL: strings.TrimRight(baseURL, "/"),
		log:     logger.Component("api"),
	}
}

// BaseURL returns the API root the client talks to
func (c *Client) BaseURL() string {
	return c.baseURL
}

type call struct {
	method string
	path   string
	query  map[string]string
	body   interface{}
	form   map[string]string
}

// do executes a call and decodes a JSON response into out (when non-nil).
// A 401 clears the session.
func (c *Client) do(ctx context.Context, s *Session, cl call, out interface{}) error {
	req := c.http.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json")

	if s != nil {
		if err := s.authorize(req, time.Now()); err != nil {
			return err
		}
	}
	if len(cl.query) > 0 {
		req.SetQueryParams(cl.query)
	}
	if cl.form != nil {
		req.SetFormData(cl.form)
	} else if cl.body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(cl.body)
	}

	resp, err := req.Execute(cl.method, c.baseURL+cl.path)
	if err != nil {
		return fmt.Errorf("%s %s failed: %w", cl.method, cl.path, err)
	}

	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		apiErr := &APIError{Status: resp.StatusCode(), Detail: parseDetail(resp.Body())}
		if apiErr.Status == http.StatusUnauthorized && s != nil {
			s.Clear()
			c.log.Warn("Backend rejected credentials, session cleared", logger.Fields{
				"path": cl.path,
			})
		}
		return apiErr
	}

	if out == nil || len(resp.Body()) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("failed to parse %s response: %w", cl.path, err)
	}
	return nil
}

// parseDetail extracts the backend's "detail" message, falling back to the raw body
func parseDetail(body []byte) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || len(payload.Detail) == 0 {
		return strings.TrimSpace(string(body))
	}
	var text string
	if err := json.Unmarshal(payload.Detail, &text); err == nil {
		return text
	}
	return string(payload.Detail)
}
