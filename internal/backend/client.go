// Package backend talks to the remote iGoLanka booking API.
package backend

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

	"github.com/kdilshan5712/igolanka-booking/internal/booking"
	"github.com/kdilshan5712/igolanka-booking/internal/catalog"
	"golang.org/x/oauth2"
)

const emailNotVerifiedMessage = "email not verified"

// APIError is a non-2xx answer from the backend.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.Status, e.Message)
}

// UserMessage is shown verbatim to the traveler.
func (e *APIError) UserMessage() string {
	return e.Message
}

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

type packagePayload struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Duration string  `json:"duration"`
	Image    string  `json:"image"`
}

type envelope struct {
	Data    json.RawMessage `json:"data"`
	Package json.RawMessage `json:"package"`
	Booking json.RawMessage `json:"booking"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
}

func (c *Client) GetByID(ctx context.Context, id string) (*catalog.Package, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/packages/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}

	body, err := c.do(c.http, req)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
			return nil, catalog.ErrNotFound
		}
		return nil, err
	}

	var p packagePayload
	if err := json.Unmarshal(unwrap(body), &p); err != nil {
		return nil, fmt.Errorf("decode package %s: %w", id, err)
	}
	if p.ID == "" {
		return nil, catalog.ErrNotFound
	}

	return &catalog.Package{ID: p.ID, Name: p.Name, Price: p.Price, Duration: p.Duration, Image: p.Image}, nil
}

// CreateBooking files a booking on behalf of the bearer of authToken and
// returns the reference the backend assigned.
func (c *Client) CreateBooking(ctx context.Context, in booking.BackendBookingRequest, authToken string) (string, error) {
	payload, err := json.Marshal(in)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/bookings", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	client := c.http
	if authToken != "" {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, c.http)
		client = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: authToken, TokenType: "Bearer"}))
		client.Timeout = c.http.Timeout
	}

	body, err := c.do(client, req)
	if err != nil {
		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			return "", err
		}
		if apiErr.Status == http.StatusForbidden && strings.Contains(strings.ToLower(apiErr.Message), emailNotVerifiedMessage) {
			return "", fmt.Errorf("%w: %s", booking.ErrEmailNotVerified, apiErr.Message)
		}
		// server-side failures are not the traveler's to read
		if apiErr.Status >= http.StatusInternalServerError {
			return "", fmt.Errorf("create booking: backend status %d", apiErr.Status)
		}
		return "", apiErr
	}

	var created struct {
		BookingID        string `json:"bookingId"`
		BookingReference string `json:"bookingReference"`
		Reference        string `json:"reference"`
	}
	if err := json.Unmarshal(unwrap(body), &created); err != nil {
		return "", fmt.Errorf("decode booking: %w", err)
	}
	for _, ref := range []string{created.BookingID, created.BookingReference, created.Reference} {
		if ref != "" {
			return ref, nil
		}
	}
	return "", nil
}

func (c *Client) do(client *http.Client, req *http.Request) ([]byte, error) {
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{Status: resp.StatusCode, Message: errorMessage(resp.StatusCode, body)}
	}
	return body, nil
}

// unwrap accepts bare objects as well as {"data"|"package"|"booking": ...} envelopes.
func unwrap(body []byte) []byte {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return body
	}
	for _, inner := range []json.RawMessage{env.Data, env.Package, env.Booking} {
		if len(inner) > 0 && string(inner) != "null" {
			return inner
		}
	}
	return body
}

func errorMessage(status int, body []byte) string {
	var env envelope
	if err := json.Unmarshal(body, &env); err == nil {
		if env.Message != "" {
			return env.Message
		}
		if env.Error != "" {
			return env.Error
		}
	}
	return http.StatusText(status)
}
