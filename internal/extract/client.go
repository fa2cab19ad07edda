package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 10 << 20

var (
	// ErrMalformedResponse reports a body that could not be decoded.
	ErrMalformedResponse = errors.New("extract: malformed response")

	// ErrHistoryUnavailable reports a history payload with success=false.
	ErrHistoryUnavailable = errors.New("extract: history unavailable")
)

// Client calls the extraction service. Safe for concurrent use.
// Every call is a single attempt; nothing is retried.
type Client struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

// NewClient creates a Client for the service rooted at baseURL.
// interval spaces consecutive requests; zero disables spacing.
func NewClient(baseURL string, interval time.Duration) *Client {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  newHTTPClient(),
		limiter: rate.NewLimiter(limit, 1),
	}
}

// newHTTPClient has no overall Timeout: deadlines come from the caller's
// context so a timeout can be told apart from other failures.
func newHTTPClient() *http.Client {
	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 60 * time.Second}).DialContext,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	return &http.Client{Transport: tr}
}

// BaseURL returns the service root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Extract uploads img to POST /ocr and returns the decoded result.
//
// A body reporting success=false is returned as a Result with a nil error:
// that is a domain failure, not a transport failure. A non-nil error means
// the request could not be completed or the body could not be decoded;
// context errors are wrapped so errors.Is(err, context.DeadlineExceeded)
// works.
func (c *Client) Extract(ctx context.Context, img Upload) (*Result, error) {
	body, contentType, err := multipartBody(img)
	if err != nil {
		return nil, fmt.Errorf("extract: build request body: %w", err)
	}

	raw, status, err := c.do(ctx, http.MethodPost, "/ocr", body, contentType)
	if err != nil {
		return nil, err
	}

	var res Result
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("%w: status %d: %v", ErrMalformedResponse, status, err)
	}
	if status/100 != 2 && res.Success {
		return nil, fmt.Errorf("%w: status %d with success=true", ErrMalformedResponse, status)
	}
	return &res, nil
}

// History fetches GET /events. The entries are returned in service order.
func (c *Client) History(ctx context.Context) ([]HistoryEntry, error) {
	raw, status, err := c.do(ctx, http.MethodGet, "/events", nil, "")
	if err != nil {
		return nil, err
	}

	var resp historyResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("%w: status %d: %v", ErrMalformedResponse, status, err)
	}
	if !resp.Success {
		if resp.Error != "" {
			return nil, fmt.Errorf("%w: %s", ErrHistoryUnavailable, resp.Error)
		}
		return nil, ErrHistoryUnavailable
	}
	if resp.Events == nil {
		resp.Events = []HistoryEntry{}
	}
	return resp.Events, nil
}

// do performs one request and returns the (size-capped) body and status.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string) ([]byte, int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return nil, 0, fmt.Errorf("extract: %s %s: %w", method, path, ctx.Err())
		}
		return nil, 0, fmt.Errorf("extract: rate limiter wait failed: %w", err)
	}

	endpoint, err := url.JoinPath(c.baseURL, path)
	if err != nil {
		return nil, 0, fmt.Errorf("extract: bad base url %q: %w", c.baseURL, err)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, 0, fmt.Errorf("extract: failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, 0, fmt.Errorf("extract: %s %s: %w", method, path, ctx.Err())
		}
		return nil, 0, fmt.Errorf("extract: request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		if ctx.Err() != nil {
			return nil, resp.StatusCode, fmt.Errorf("extract: %s %s: %w", method, path, ctx.Err())
		}
		return nil, resp.StatusCode, fmt.Errorf("extract: failed to read response: %w", err)
	}
	return raw, resp.StatusCode, nil
}

// multipartBody encodes img as the single "file" field of a form.
func multipartBody(img Upload) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	name := img.Name
	if name == "" {
		name = "upload"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, name))
	h.Set("Content-Type", http.DetectContentType(img.Data))

	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(img.Data); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
