// Package client talks to a vizgo render service.
//
//	c := client.New("http://localhost:8080")
//	svg, err := c.RenderString(ctx, "digraph { a -> b }", viz.Options{})
//
// Network failures and 5xx responses are retried with exponential backoff.
// Render failures come back as *pipeline.SerializedError carrying the
// engine's error code.
package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/vizgo/pkg/errors"
	"github.com/matzehuels/vizgo/pkg/httputil"
	"github.com/matzehuels/vizgo/pkg/observability"
	"github.com/matzehuels/vizgo/pkg/server"
	"github.com/matzehuels/vizgo/pkg/viz"
)

const defaultTimeout = 60 * time.Second

// Client renders DOT sources through a remote render service.
type Client struct {
	baseURL  string
	http     *http.Client
	attempts int
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithAttempts sets how many times a transient failure is tried.
func WithAttempts(n int) Option {
	return func(c *Client) { c.attempts = n }
}

// New returns a client for the service at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &http.Client{Timeout: defaultTimeout},
		attempts: 3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RenderString renders src and returns the output bytes.
func (c *Client) RenderString(ctx context.Context, src string, opts viz.Options) ([]byte, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	body, err := json.Marshal(server.RenderRequest{ID: uuid.NewString(), Src: src, Options: opts})
	if err != nil {
		return nil, err
	}

	var out server.RenderResponse
	if err := c.post(ctx, "/api/v1/render", body, &out); err != nil {
		return nil, err
	}
	if out.Error != nil {
		return nil, out.Error
	}
	if out.Encoding == server.EncodingBase64 {
		data, err := base64.StdEncoding.DecodeString(out.Result)
		if err != nil {
			return nil, fmt.Errorf("decode result: %w", err)
		}
		return data, nil
	}
	return []byte(out.Result), nil
}

// RenderJSONObject renders src as Graphviz JSON and decodes it. The format
// is forced to json unless json0 was requested.
func (c *Client) RenderJSONObject(ctx context.Context, src string, opts viz.Options) (map[string]any, error) {
	if opts.Format != viz.FormatJSON0 {
		opts.Format = viz.FormatJSON
	}
	data, err := c.RenderString(ctx, src, opts)
	if err != nil {
		return nil, err
	}
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("decode %s result: %w", opts.Format, err)
	}
	return obj, nil
}

// Engines lists the layout engines the service supports.
func (c *Client) Engines(ctx context.Context) ([]string, error) {
	var out struct {
		Engines []string `json:"engines"`
	}
	if err := c.get(ctx, "/api/v1/engines", &out); err != nil {
		return nil, err
	}
	return out.Engines, nil
}

// Formats lists the output formats the service supports.
func (c *Client) Formats(ctx context.Context) ([]string, error) {
	var out struct {
		Formats []string `json:"formats"`
	}
	if err := c.get(ctx, "/api/v1/formats", &out); err != nil {
		return nil, err
	}
	return out.Formats, nil
}

func (c *Client) get(ctx context.Context, path string, v any) error {
	return c.do(ctx, http.MethodGet, path, nil, v)
}

func (c *Client) post(ctx context.Context, path string, body []byte, v any) error {
	return c.do(ctx, http.MethodPost, path, body, v)
}

// do sends a request and decodes the JSON response into v. Render error
// responses (4xx with an error body) are decoded too, so callers see the
// service's error code.
func (c *Client) do(ctx context.Context, method, path string, body []byte, v any) error {
	return httputil.Retry(ctx, c.attempts, 500*time.Millisecond, func() error {
		var rd io.Reader
		if body != nil {
			rd = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
		if err != nil {
			return err
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		req.Header.Set("Accept", "application/json")

		hooks := observability.HTTP()
		hooks.OnRequest(ctx, method, req.URL.Host, path)
		start := time.Now()

		resp, err := c.http.Do(req)
		if err != nil {
			hooks.OnError(ctx, method, req.URL.Host, path, err)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return httputil.Retryable(errors.Wrap(errors.ErrCodeNetwork, err, "%s %s", method, path))
		}
		defer resp.Body.Close()
		hooks.OnResponse(ctx, method, req.URL.Host, path, resp.StatusCode, time.Since(start))

		statusErr := httputil.CheckStatus(resp.StatusCode)
		if statusErr != nil && (httputil.IsRetryable(statusErr) || !isJSON(resp)) {
			return wrapStatus(statusErr, method, path)
		}
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			if statusErr != nil {
				return wrapStatus(statusErr, method, path)
			}
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	})
}

func isJSON(resp *http.Response) bool {
	return strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json")
}

func wrapStatus(err error, method, path string) error {
	var se *httputil.StatusError
	code := errors.ErrCodeNetwork
	if stderrors.As(err, &se) && se.Code == http.StatusNotFound {
		code = errors.ErrCodeNotFound
	}
	wrapped := errors.Wrap(code, err, "%s %s", method, path)
	if httputil.IsRetryable(err) {
		return httputil.Retryable(wrapped)
	}
	return wrapped
}
