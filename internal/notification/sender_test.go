package notification

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bigvision-74/SimCollectiveERP-sub000/pkg/config"
	"github.com/bigvision-74/SimCollectiveERP-sub000/pkg/logger"
	"github.com/bigvision-74/SimCollectiveERP-sub000/pkg/types"
)

func newSenderFor(url string) *FCMSender {
	return NewFCMSender(&config.PushConfig{
		Endpoint:   url,
		ServerKey:  "test-key",
		TimeoutSec: 5,
	}, logger.New("error"))
}

func TestFCMSenderSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key=test-key", r.Header.Get("Authorization"))

		var req fcmRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "tok-1", req.To)
		assert.Equal(t, "Session started", req.Notification.Title)

		json.NewEncoder(w).Encode(fcmResponse{Success: 1})
	}))
	defer server.Close()

	result, err := newSenderFor(server.URL).Send(context.Background(), &types.PushMessage{
		Token: "tok-1",
		Title: "Session started",
		Body:  "Ward round A is underway",
	})

	require.NoError(t, err)
	assert.True(t, result.Success)
}

func TestFCMSenderReportsTokenError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":0,"failure":1,"results":[{"error":"NotRegistered"}]}`))
	}))
	defer server.Close()

	result, err := newSenderFor(server.URL).Send(context.Background(), &types.PushMessage{Token: "tok-dead"})

	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, types.PushErrNotRegistered, result.ErrorCode)
	assert.True(t, result.TokenInvalid())
}

func TestFCMSenderProviderUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := newSenderFor(server.URL).Send(context.Background(), &types.PushMessage{Token: "tok-1"})

	assert.Error(t, err)
}
