// Package backend is the REST client for the transaction service: reference
// entities, transactions, change logs and receipts.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"softetsolutions/mattax/internal/logging"
	"softetsolutions/mattax/internal/models"
	"softetsolutions/mattax/internal/txerror"

	"github.com/google/uuid"
)

// HeaderRequestID carries a per-request id for correlating client and server logs.
const HeaderRequestID = "X-Request-ID"

const maxErrorBody = 4096

// Client talks to the backend over HTTP. It is safe for concurrent use.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	logger     logging.Logger
}

// NewClient creates a Client for baseURL. A zero timeout leaves the HTTP client
// without a deadline; a nil logger falls back to the default logger.
func NewClient(baseURL string, timeout time.Duration, logger logging.Logger) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid backend URL %q: %w", baseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("backend URL %q must be absolute", baseURL)
	}
	return &Client{
		baseURL:    u,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logging.OrDefault(logger),
	}, nil
}

// SetHTTPClient replaces the underlying HTTP client.
func (c *Client) SetHTTPClient(hc *http.Client) {
	if hc != nil {
		c.httpClient = hc
	}
}

// request describes one backend call.
type request struct {
	op          string
	method      string
	path        string
	query       url.Values
	body        io.Reader
	contentType string
}

func (c *Client) jsonRequest(op, method, path string, query url.Values, body any) (request, error) {
	r := request{op: op, method: method, path: path, query: query}
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return r, fmt.Errorf("%s: failed to encode request: %w", op, err)
		}
		r.body = bytes.NewReader(data)
		r.contentType = "application/json"
	}
	return r, nil
}

// do sends r and decodes a JSON answer into out when out is non-nil.
func (c *Client) do(ctx context.Context, sess models.Session, r request, out any) error {
	u := *c.baseURL
	u.Path = u.Path + r.path
	if len(r.query) > 0 {
		u.RawQuery = r.query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, r.method, u.String(), r.body)
	if err != nil {
		return fmt.Errorf("%s: failed to create request: %w", r.op, err)
	}
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	req.Header.Set("Accept", "application/json")
	if sess.Token != "" {
		req.Header.Set("Authorization", "Bearer "+sess.Token)
	}
	requestID := uuid.NewString()
	req.Header.Set(HeaderRequestID, requestID)

	log := c.logger.WithFields(
		logging.F(logging.FieldOperation, r.op),
		logging.F(logging.FieldRequestID, requestID),
	)
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.WithError(err).Debug("Backend request failed")
		return fmt.Errorf("%s: %w", r.op, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			log.WithError(cerr).Warn("Failed to close response body")
		}
	}()

	log.Debug("Backend request completed",
		logging.F(logging.FieldStatus, resp.StatusCode),
		logging.F(logging.FieldDuration, time.Since(start).Milliseconds()))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(r.op, resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: failed to decode response: %w", r.op, err)
	}
	return nil
}

func newAPIError(op string, resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &txerror.APIError{
		Op:         op,
		StatusCode: resp.StatusCode,
		Message:    errorMessage(data),
	}
}

// errorMessage pulls a human readable message out of an error body. JSON bodies
// with a message or error key are unwrapped; anything else is returned trimmed.
func errorMessage(data []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}
	return strings.TrimSpace(string(data))
}

func userQuery(sess models.Session, kv ...string) url.Values {
	q := url.Values{}
	q.Set("userId", sess.UserID)
	for i := 0; i+1 < len(kv); i += 2 {
		q.Set(kv[i], kv[i+1])
	}
	return q
}
