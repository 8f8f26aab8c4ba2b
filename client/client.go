// Package client implements workflow.API against a remote hedge accounting
// service speaking the api package's routes.
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
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/rustyeddy/hedger/hedge"
	"github.com/rustyeddy/hedger/workflow"
)

// APIError is a non-2xx answer from the service.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.Status, e.Message)
}

// Temporary reports whether the request may succeed if repeated.
func (e *APIError) Temporary() bool {
	return e.Status >= 500 || e.Status == http.StatusTooManyRequests
}

type Options struct {
	Timeout time.Duration
	// RetryMaxElapsed bounds retries of idempotent requests. Zero disables
	// retrying.
	RetryMaxElapsed time.Duration
	// RetryInitial is the first backoff interval; zero means 200ms.
	RetryInitial time.Duration
	Logger       *zap.Logger
}

type Client struct {
	baseURL      string
	token        string
	httpClient   *http.Client
	maxElapsed   time.Duration
	retryInitial time.Duration
	log          *zap.Logger
}

var _ workflow.API = (*Client)(nil)

func NewClient(baseURL, token string, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RetryInitial <= 0 {
		opts.RetryInitial = 200 * time.Millisecond
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		token:        token,
		httpClient:   &http.Client{Timeout: opts.Timeout},
		maxElapsed:   opts.RetryMaxElapsed,
		retryInitial: opts.RetryInitial,
		log:          opts.Logger,
	}
}

func hedgePath(id string, parts ...string) string {
	p := "/api/v1/hedges/" + url.PathEscape(id)
	for _, s := range parts {
		p += "/" + s
	}
	return p
}

func (c *Client) Get(ctx context.Context, id string) (hedge.Relationship, error) {
	var out hedge.Relationship
	err := c.read(ctx, hedgePath(id), &out)
	return out, err
}

func (c *Client) Save(ctx context.Context, rel hedge.Relationship) (hedge.Relationship, error) {
	var out hedge.Relationship
	err := c.write(ctx, http.MethodPost, "/api/v1/hedges", rel, &out)
	return out, err
}

func (c *Client) RunRegression(ctx context.Context, rel hedge.Relationship, rt hedge.ResultType) (hedge.Relationship, error) {
	var out hedge.Relationship
	path := hedgePath(rel.ID, "regressions") + "?type=" + url.QueryEscape(string(rt))
	err := c.write(ctx, http.MethodPost, path, rel, &out)
	return out, err
}

func (c *Client) FindDocumentTemplate(ctx context.Context, id string) (bool, error) {
	var out struct {
		Exists bool `json:"exists"`
	}
	err := c.read(ctx, hedgePath(id, "template"), &out)
	return out.Exists, err
}

func (c *Client) Designate(ctx context.Context, rel hedge.Relationship) error {
	return c.write(ctx, http.MethodPost, hedgePath(rel.ID, "designate"), rel, nil)
}

func (c *Client) RedesignateFetch(ctx context.Context, id string) (hedge.ReDesignation, error) {
	var out hedge.ReDesignation
	err := c.read(ctx, hedgePath(id, "redesignation"), &out)
	return out, err
}

func (c *Client) RedesignateConfirm(ctx context.Context, id string, p hedge.ReDesignation) (hedge.Relationship, error) {
	var out hedge.Relationship
	err := c.write(ctx, http.MethodPost, hedgePath(id, "redesignation"), p, &out)
	return out, err
}

func (c *Client) DedesignateFetch(ctx context.Context, id string, reason hedge.DedesignationReason) (hedge.DeDesignation, error) {
	var out hedge.DeDesignation
	path := hedgePath(id, "dedesignation") + "?reason=" + url.QueryEscape(string(reason))
	err := c.read(ctx, path, &out)
	return out, err
}

func (c *Client) DedesignateConfirm(ctx context.Context, id string, p hedge.DeDesignation) (hedge.Relationship, error) {
	var out hedge.Relationship
	err := c.write(ctx, http.MethodPost, hedgePath(id, "dedesignation"), p, &out)
	return out, err
}

func (c *Client) Redraft(ctx context.Context, id string) (hedge.Relationship, error) {
	var out hedge.Relationship
	err := c.write(ctx, http.MethodPost, hedgePath(id, "redraft"), nil, &out)
	return out, err
}

func (c *Client) DeleteAmortization(ctx context.Context, id, amortizationID string) error {
	return c.retry(ctx, func() error {
		return c.do(ctx, http.MethodDelete, hedgePath(id, "amortizations", url.PathEscape(amortizationID)), nil, nil)
	})
}

func (c *Client) CheckAnalyticsAvailable(ctx context.Context) (bool, error) {
	var out struct {
		Available bool `json:"available"`
	}
	err := c.read(ctx, "/api/v1/analytics", &out)
	return out.Available, err
}

// read is an idempotent GET and is retried on transient failures.
func (c *Client) read(ctx context.Context, path string, out any) error {
	return c.retry(ctx, func() error {
		return c.do(ctx, http.MethodGet, path, nil, out)
	})
}

// write is never retried: the service may have applied it.
func (c *Client) write(ctx context.Context, method, path string, in, out any) error {
	return unwrapPermanent(c.do(ctx, method, path, in, out))
}

func (c *Client) retry(ctx context.Context, op func() error) error {
	if c.maxElapsed <= 0 {
		return unwrapPermanent(op())
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.retryInitial
	bo.MaxElapsedTime = c.maxElapsed
	return backoff.RetryNotify(op, backoff.WithContext(bo, ctx), func(err error, wait time.Duration) {
		c.log.Debug("retrying request", zap.Error(err), zap.Duration("wait", wait))
	})
}

// do runs one request. Errors that repeating cannot fix come back wrapped
// in backoff.Permanent.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("encode request: %w", err))
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("create request: %w", err))
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		apiErr := decodeError(resp)
		if apiErr.Temporary() {
			return apiErr
		}
		return backoff.Permanent(apiErr)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return backoff.Permanent(fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func decodeError(resp *http.Response) *APIError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var e struct {
		Message string `json:"message"`
	}
	msg := strings.TrimSpace(string(body))
	if json.Unmarshal(body, &e) == nil && e.Message != "" {
		msg = e.Message
	}
	return &APIError{Status: resp.StatusCode, Message: msg}
}

func unwrapPermanent(err error) error {
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		return perm.Err
	}
	return err
}
