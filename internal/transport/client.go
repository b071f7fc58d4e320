// Package transport issues the HTTP calls the domain operations are built on.
// A request is a method, a path, optional multipart fields and files, and a
// flag saying whether the `token` header is attached. Responses carry the
// decoded `result` object of the backend envelope.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/docflow/docflow/portal/pkg/logger"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

var (
	ErrMalformedBody = errors.New("malformed response body")
	ErrMissingField  = errors.New("expected field missing from response")
)

// Field is one form field; order is preserved on the wire.
type Field struct {
	Name  string
	Value string
}

// File is one uploaded file part.
type File struct {
	Field   string
	Name    string
	Content io.Reader
}

type Request struct {
	Method string
	Path   string
	Query  url.Values
	Fields []Field
	Files  []File
	// Auth attaches the token header when true; it is never sent otherwise.
	Auth bool
}

// Response is a successful (2xx) reply.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Result     json.RawMessage
}

// Field decodes result[key] into v.
func (r *Response) Field(key string, v interface{}) error {
	if r == nil || len(r.Result) == 0 {
		return fmt.Errorf("%w: no result object", ErrMalformedBody)
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(r.Result, &obj); err != nil {
		return fmt.Errorf("%w: result is not an object: %v", ErrMalformedBody, err)
	}
	raw, ok := obj[key]
	if !ok || string(raw) == "null" {
		return fmt.Errorf("%w: %s", ErrMissingField, key)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedBody, key, err)
	}
	return nil
}

// StatusError is returned for non-2xx replies.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s returned %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// Doer is what the domain operations need from a transport.
type Doer interface {
	Do(ctx context.Context, req Request) (*Response, error)
}

type Client struct {
	base        *url.URL
	http        *http.Client
	tokens      TokenSource
	tokenHeader string
	limiter     *rate.Limiter
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }

func WithTokenSource(ts TokenSource) Option { return func(c *Client) { c.tokens = ts } }

// WithRateLimit bounds outgoing calls; rps <= 0 disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps > 0 {
			if burst < 1 {
				burst = 1
			}
			c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}

// WithTimeout sets the underlying http.Client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse backend url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("backend url %q must be absolute", baseURL)
	}
	c := &Client{
		base:        u,
		http:        &http.Client{Timeout: 30 * time.Second},
		tokens:      ContextToken{},
		tokenHeader: "token",
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Do executes one request. It never retries.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}
	target := c.base.String() + req.Path
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	body, contentType, err := encodeBody(req)
	if err != nil {
		return nil, err
	}
	hr, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if contentType != "" {
		hr.Header.Set("Content-Type", contentType)
	}
	hr.Header.Set("Accept", "application/json")
	hr.Header.Set("X-Request-ID", uuid.NewString())
	if req.Auth {
		// a missing token still marks the call as authenticated; the backend rejects it
		tok, _ := c.tokens.Token(ctx)
		hr.Header.Set(c.tokenHeader, tok)
	}

	logger.Debugf("transport: %s %s auth=%t", req.Method, req.Path, req.Auth)
	resp, err := c.http.Do(hr)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.Path, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Method: req.Method, Path: req.Path, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	out := &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: raw}
	if len(bytes.TrimSpace(raw)) > 0 {
		var env struct {
			Result json.RawMessage `json:"result"`
		}
		if err := json.Unmarshal(raw, &env); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedBody, err)
		}
		out.Result = env.Result
	}
	return out, nil
}

func encodeBody(req Request) (io.Reader, string, error) {
	if len(req.Fields) == 0 && len(req.Files) == 0 {
		return nil, "", nil
	}
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, f := range req.Fields {
		if err := w.WriteField(f.Name, f.Value); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", f.Name, err)
		}
	}
	for _, f := range req.Files {
		part, err := w.CreateFormFile(f.Field, f.Name)
		if err != nil {
			return nil, "", fmt.Errorf("create file part %s: %w", f.Field, err)
		}
		if f.Content != nil {
			if _, err := io.Copy(part, f.Content); err != nil {
				return nil, "", fmt.Errorf("copy file %s: %w", f.Name, err)
			}
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
