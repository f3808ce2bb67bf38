package handlers

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/kdilshan5712/igolanka-booking/internal/auth"
	"github.com/kdilshan5712/igolanka-booking/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIKeyHandler(t *testing.T) {
	db := newTestDB(t)
	user := models.User{DiscordID: "123456789", Username: "agent"}
	db.Create(&user)

	handler := NewAPIKeyHandler(db)
	ctx := auth.WithUser(context.Background(), user.ID, "token")

	input := &CreateAPIKeyInput{}
	input.Body.Name = "Partner portal"
	created, err := handler.HandleCreate(ctx, input)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(created.Body.Key, apiKeyPrefix))

	var stored models.APIKey
	require.NoError(t, db.First(&stored, created.Body.ID).Error)
	assert.NotContains(t, stored.KeyHash, created.Body.Key)
	assert.Equal(t, auth.HashAPIKey(created.Body.Key), stored.KeyHash)

	list, err := handler.HandleList(ctx, &ListAPIKeysInput{})
	require.NoError(t, err)
	require.Len(t, list.Body, 1)
	assert.Equal(t, "..."+created.Body.Key[len(created.Body.Key)-4:], list.Body[0].Key)

	t.Run("PastExpiryRejected", func(t *testing.T) {
		past := time.Now().Add(-time.Hour)
		in := &CreateAPIKeyInput{}
		in.Body.Name = "stale"
		in.Body.ExpiresAt = &past
		_, err := handler.HandleCreate(ctx, in)
		assert.Error(t, err)
	})

	t.Run("OtherUsersCannotDelete", func(t *testing.T) {
		other := auth.WithUser(context.Background(), user.ID+1, "token")
		_, err := handler.HandleDelete(other, &DeleteAPIKeyInput{ID: created.Body.ID})
		assert.Error(t, err)
	})

	t.Run("Delete", func(t *testing.T) {
		_, err := handler.HandleDelete(ctx, &DeleteAPIKeyInput{ID: created.Body.ID})
		require.NoError(t, err)

		list, err := handler.HandleList(ctx, &ListAPIKeysInput{})
		require.NoError(t, err)
		assert.Empty(t, list.Body)
	})

	t.Run("Unauthenticated", func(t *testing.T) {
		_, err := handler.HandleList(context.Background(), &ListAPIKeysInput{})
		assert.Error(t, err)
	})
}

func TestRoutes_APIKeyAuthenticates(t *testing.T) {
	c, _ := newRouteClient(t, RouteOptions{})

	status, body := c.do(http.MethodPost, "/api-keys", map[string]any{"name": "Partner portal"})
	require.Equal(t, http.StatusCreated, status, body)
	key, _ := body["key"].(string)
	require.NotEmpty(t, key)

	c.token = ""
	req, err := http.NewRequest(http.MethodGet, c.server.URL+"/bookings", nil)
	require.NoError(t, err)
	req.Header.Set("X-API-KEY", key)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	req, _ = http.NewRequest(http.MethodGet, c.server.URL+"/bookings", nil)
	req.Header.Set("X-API-KEY", apiKeyPrefix+"unknown")
	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp2.StatusCode)
}
