// Package client is a small JSON over HTTP client shared by the enrollment backends.
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
	"strings"

	"github.com/openfun/richie-sub000/enrollment"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/openfun/richie-sub000/backend/client"

// maximum number of response body bytes kept for an HTTP error message.
const maxErrorBody = 512

// Client sends JSON requests to a backend API rooted at a base URL.
type Client struct {
	name    string
	baseURL *url.URL
	client  *http.Client
	tracer  trace.Tracer
}

// Option configures a client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.client = client
	}
}

// WithTracerProvider uses tp instead of the global tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Client) {
		c.tracer = tp.Tracer(tracerName)
	}
}

// New creates a new client for the backend name rooted at baseURL.
func New(name, baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base URL not absolute: %s", baseURL)
	}
	c := &Client{
		name:    name,
		baseURL: u,
		client:  http.DefaultClient,
		tracer:  otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// URL resolves path (which may carry a query) against the base URL.
func (c *Client) URL(path string) string {
	return c.baseURL.String() + path
}

// Do sends a request with an optional JSON body in and decodes the
// JSON response into out. The returned bool is false when the response
// body was empty or JSON null (out is left untouched).
// The user access token, if any, is sent as a bearer token.
func (c *Client) Do(ctx context.Context, method, path string, user *enrollment.User, in, out any) (bool, error) {
	reqURL := c.URL(path)

	ctx, span := c.tracer.Start(ctx, c.name+" "+method, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("http.request.method", method),
		attribute.String("url.full", reqURL),
		attribute.String("enrollment.backend", c.name),
	)

	found, err := c.do(ctx, method, reqURL, user, in, out)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return found, err
}

func (c *Client) do(ctx context.Context, method, reqURL string, user *enrollment.User, in, out any) (bool, error) {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return false, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return false, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != nil && user.AccessToken != "" {
		req.Header.Set("Authorization", "Bearer "+user.AccessToken)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return false, &enrollment.NetworkError{Method: method, URL: reqURL, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, &enrollment.NetworkError{Method: method, URL: reqURL, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return false, &enrollment.HTTPError{
			Method:     method,
			URL:        reqURL,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(respBody),
		}
	}

	trimmed := bytes.TrimSpace(respBody)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return false, nil
	}
	if out != nil {
		if err = json.Unmarshal(trimmed, out); err != nil {
			return true, fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return true, nil
}

// errorMessage extracts a human readable reason from an error body.
// Backends variously use "detail", "message" or "error" keys.
func errorMessage(body []byte) string {
	var v struct {
		Detail  string `json:"detail"`
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &v); err == nil {
		for _, m := range []string{v.Detail, v.Message, v.Error} {
			if m != "" {
				return m
			}
		}
		return ""
	}
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	if !json.Valid(body) && bytes.HasPrefix(bytes.TrimSpace(body), []byte("<")) {
		// likely an HTML error page
		return ""
	}
	return strings.TrimSpace(string(body))
}

// IsStatus reports whether err is an HTTP error with the given status code.
func IsStatus(err error, status int) bool {
	var httpErr *enrollment.HTTPError
	return errors.As(err, &httpErr) && httpErr.StatusCode == status
}
