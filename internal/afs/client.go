// Package afs is the HTTP client of the external airline reservation system,
// the source of truth for flight bookings. It cancels and retrieves bookings
// by carrier booking reference.
package afs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Domenick1991/tripbooking/config"
	"github.com/Domenick1991/tripbooking/internal/domain"
	"github.com/sethvargo/go-retry"
)

const maxBodyBytes = 1 << 20

// ErrUnavailable wraps transport failures and timeouts.
var ErrUnavailable = errors.New("afs unavailable")

// CancelFailedError is returned when the reservation system answers a
// cancellation with a non-2xx status.
type CancelFailedError struct {
	Reference  string
	StatusCode int
	RawMessage string
}

func (e *CancelFailedError) Error() string {
	return fmt.Sprintf("afs: cancel %s failed (status %d): %s", e.Reference, e.StatusCode, e.RawMessage)
}

// RetrieveFailedError is returned when a retrieval answers with a non-2xx
// status.
type RetrieveFailedError struct {
	Reference  string
	StatusCode int
	RawMessage string
}

func (e *RetrieveFailedError) Error() string {
	return fmt.Sprintf("afs: retrieve %s failed (status %d): %s", e.Reference, e.StatusCode, e.RawMessage)
}

type Client struct {
	http       *http.Client
	baseURL    string
	apiKey     string
	maxRetries uint64
	backoff    time.Duration
	logger     *slog.Logger
}

func NewClient(cfg config.AFSConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	backoff := cfg.RetryBackoff()
	if backoff <= 0 {
		backoff = 200 * time.Millisecond
	}
	return &Client{
		http:       &http.Client{Timeout: cfg.Timeout()},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		maxRetries: uint64(cfg.Retries()),
		backoff:    backoff,
		logger:     logger,
	}
}

type cancelRequest struct {
	BookingReference string `json:"bookingReference"`
	LastName         string `json:"lastName"`
}

// CancelByReference cancels every segment issued under the reference. An
// empty success body yields an empty payload.
func (c *Client) CancelByReference(ctx context.Context, reference, lastName string) (map[string]any, error) {
	body, err := json.Marshal(cancelRequest{BookingReference: reference, LastName: lastName})
	if err != nil {
		return nil, fmt.Errorf("afs: encode cancel request: %w", err)
	}

	resp, err := c.send(ctx, http.MethodPost, c.baseURL+"/bookings/cancel", body)
	if err != nil {
		return nil, fmt.Errorf("afs: cancel %s: %w", reference, err)
	}
	if !resp.ok() {
		return nil, &CancelFailedError{Reference: reference, StatusCode: resp.status, RawMessage: resp.message()}
	}

	payload := map[string]any{}
	if len(bytes.TrimSpace(resp.body)) == 0 {
		return payload, nil
	}
	if err := json.Unmarshal(resp.body, &payload); err != nil {
		return nil, fmt.Errorf("afs: decode cancel response for %s: %w", reference, err)
	}
	return payload, nil
}

type retrieveResponse struct {
	Flights []domain.AFSFlight `json:"flights"`
}

// RetrieveByReference returns the segments the reservation system holds for
// the reference.
func (c *Client) RetrieveByReference(ctx context.Context, reference, lastName string) ([]domain.AFSFlight, error) {
	q := url.Values{}
	q.Set("bookingReference", reference)
	q.Set("lastName", lastName)

	resp, err := c.send(ctx, http.MethodGet, c.baseURL+"/bookings/retrieve?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("afs: retrieve %s: %w", reference, err)
	}
	if !resp.ok() {
		return nil, &RetrieveFailedError{Reference: reference, StatusCode: resp.status, RawMessage: resp.message()}
	}

	data := bytes.TrimSpace(resp.body)
	if len(data) == 0 {
		return nil, nil
	}
	if data[0] == '[' {
		var flights []domain.AFSFlight
		if err := json.Unmarshal(data, &flights); err != nil {
			return nil, fmt.Errorf("afs: decode retrieve response for %s: %w", reference, err)
		}
		return flights, nil
	}
	var out retrieveResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("afs: decode retrieve response for %s: %w", reference, err)
	}
	return out.Flights, nil
}

type response struct {
	status int
	body   []byte
}

func (r *response) ok() bool {
	return r.status >= 200 && r.status < 300
}

// message extracts a human readable error from the body.
func (r *response) message() string {
	var parsed struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(r.body, &parsed); err == nil {
		if parsed.Message != "" {
			return parsed.Message
		}
		if parsed.Error != "" {
			return parsed.Error
		}
	}
	if msg := strings.TrimSpace(string(r.body)); msg != "" {
		return msg
	}
	return http.StatusText(r.status)
}

// send performs the request, retrying transport failures and 5xx answers
// up to maxRetries times. The last 5xx response is returned as a response,
// not an error.
func (c *Client) send(ctx context.Context, method, endpoint string, body []byte) (*response, error) {
	var last *response
	attempt := 0
	backoff := retry.WithMaxRetries(c.maxRetries, retry.NewConstant(c.backoff))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		last = nil

		resp, err := c.once(ctx, method, endpoint, body)
		if err != nil {
			c.logger.WarnContext(ctx, "afs request failed", "method", method, "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		last = resp
		if resp.status >= http.StatusInternalServerError {
			c.logger.WarnContext(ctx, "afs server error", "method", method, "attempt", attempt, "status", resp.status)
			return retry.RetryableError(fmt.Errorf("status %d", resp.status))
		}
		return nil
	})
	if last != nil {
		return last, nil
	}
	if err == nil {
		err = errors.New("no response")
	}
	if !errors.Is(err, ErrUnavailable) {
		err = fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return nil, err
}

func (c *Client) once(ctx context.Context, method, endpoint string, body []byte) (*response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrUnavailable, err)
	}
	return &response{status: resp.StatusCode, body: data}, nil
}
