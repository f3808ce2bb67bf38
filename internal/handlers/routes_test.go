package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/kdilshan5712/igolanka-booking/internal/auth"
	"github.com/kdilshan5712/igolanka-booking/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type routeClient struct {
	t       *testing.T
	server  *httptest.Server
	token   string
	session string
}

func newRouteClient(t *testing.T, opts RouteOptions) (*routeClient, *testApp) {
	t.Helper()
	app := newTestApp(t, approvingGateway())
	authHandler := auth.NewAuthHandler(&config.Config{JWTSecret: "test-secret"}, app.db)

	r := chi.NewRouter()
	RegisterRoutes(r, authHandler, app.handler, NewAPIKeyHandler(app.db), opts)
	server := httptest.NewServer(r)
	t.Cleanup(server.Close)

	token, err := authHandler.GenerateToken(app.user.ID)
	require.NoError(t, err)
	return &routeClient{t: t, server: server, token: token}, app
}

func (c *routeClient) do(method, path string, body any) (int, map[string]any) {
	c.t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, c.server.URL+path, reader)
	require.NoError(c.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.AddCookie(&http.Cookie{Name: auth.TokenCookie, Value: c.token})
	}
	if c.session != "" {
		req.Header.Set(SessionHeader, c.session)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()

	if s := resp.Header.Get(SessionHeader); s != "" {
		c.session = s
	}

	out := map[string]any{}
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 {
		json.Unmarshal(raw, &out)
	}
	return resp.StatusCode, out
}

func TestRoutes_BookingFlow(t *testing.T) {
	c, _ := newRouteClient(t, RouteOptions{})

	status, body := c.do(http.MethodPost, "/booking/start", map[string]any{"packageId": "P1"})
	require.Equal(t, http.StatusOK, status, body)
	require.NotEmpty(t, c.session)

	status, body = c.do(http.MethodPatch, "/booking/draft", map[string]any{
		"travelDate":    "2026-03-20",
		"travelerCount": 3,
		"travelerInfo": map[string]any{
			"fullName": "Nimal Perera",
			"email":    "nimal@example.com",
			"phone":    "+94 77 123 4567",
		},
	})
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, 300.0, body["totalAmount"])

	status, body = c.do(http.MethodPost, "/booking/steps/travelers", nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "/booking/payment", body["location"])

	status, body = c.do(http.MethodPost, "/booking/payment", map[string]any{
		"cardNumber":     "4111 1111 1111 1111",
		"cardholderName": "Nimal Perera",
		"expiry":         "12/27",
		"cvv":            "123",
	})
	require.Equal(t, http.StatusOK, status, body)
	reference, _ := body["bookingReference"].(string)
	assert.Regexp(t, referencePattern, reference)

	status, body = c.do(http.MethodGet, "/booking/confirmation", nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, reference, body["reference"])

	status, body = c.do(http.MethodGet, "/booking/confirmation", nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "/packages", body["location"])

	status, body = c.do(http.MethodGet, "/bookings", nil)
	require.Equal(t, http.StatusOK, status, body)
	bookings, _ := body["bookings"].([]any)
	assert.Len(t, bookings, 1)
}

func TestRoutes_TravelerCountAsText(t *testing.T) {
	c, _ := newRouteClient(t, RouteOptions{})

	status, _ := c.do(http.MethodPost, "/booking/start", map[string]any{"packageId": "P2"})
	require.Equal(t, http.StatusOK, status)

	status, body := c.do(http.MethodPatch, "/booking/draft", map[string]any{"travelerCount": "25"})
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, 20.0, body["travelerCount"])
	assert.Equal(t, 4800.0, body["totalAmount"])
}

func TestRoutes_Redirects(t *testing.T) {
	c, _ := newRouteClient(t, RouteOptions{})
	c.token = ""
	c.session = "anonymous-tab"

	status, body := c.do(http.MethodGet, "/booking/steps/payment", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "/auth/discord/login?return_to=%2Fbooking%2Fpayment", body["location"])
	assert.Equal(t, "unauthenticated", body["reason"])

	status, _ = c.do(http.MethodGet, "/me", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestRoutes_SessionHeaderRequired(t *testing.T) {
	c, _ := newRouteClient(t, RouteOptions{})

	status, _ := c.do(http.MethodGet, "/booking/draft", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
}

func TestRoutes_FieldErrors(t *testing.T) {
	c, _ := newRouteClient(t, RouteOptions{})

	status, _ := c.do(http.MethodPost, "/booking/start", map[string]any{"packageId": "P1"})
	require.Equal(t, http.StatusOK, status)

	status, body := c.do(http.MethodPost, "/booking/steps/travelers", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	errs, _ := body["errors"].([]any)
	assert.Len(t, errs, 3)
}

func TestRoutes_Health(t *testing.T) {
	c, _ := newRouteClient(t, RouteOptions{})

	resp, err := http.Get(c.server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRoutes_CORSPreflight(t *testing.T) {
	c, _ := newRouteClient(t, RouteOptions{EnableCORS: true, AllowedOrigin: "http://127.0.0.1:5173/app"})

	req, err := http.NewRequest(http.MethodOptions, c.server.URL+"/booking/draft", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "http://127.0.0.1:5173", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Headers"), SessionHeader)
}
