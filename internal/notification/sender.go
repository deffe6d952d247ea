package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/bigvision-74/SimCollectiveERP-sub000/pkg/config"
	"github.com/bigvision-74/SimCollectiveERP-sub000/pkg/logger"
	"github.com/bigvision-74/SimCollectiveERP-sub000/pkg/types"
)

// fcmRequest is the legacy HTTP API request body
type fcmRequest struct {
	To           string            `json:"to"`
	Notification fcmNotification   `json:"notification"`
	Data         map[string]string `json:"data,omitempty"`
}

type fcmNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// fcmResponse is the legacy HTTP API response body
type fcmResponse struct {
	Success int `json:"success"`
	Failure int `json:"failure"`
	Results []struct {
		MessageID string `json:"message_id"`
		Error     string `json:"error"`
	} `json:"results"`
}

// FCMSender delivers push notifications through the FCM legacy HTTP API.
// It implements interfaces.PushSender.
type FCMSender struct {
	endpoint  string
	serverKey string
	client    *http.Client
	logger    *logger.Logger
}

// NewFCMSender creates a sender configured from the push section
func NewFCMSender(cfg *config.PushConfig, log *logger.Logger) *FCMSender {
	return &FCMSender{
		endpoint:  cfg.Endpoint,
		serverKey: cfg.ServerKey,
		client: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSec) * time.Second,
		},
		logger: log,
	}
}

// Send delivers one notification. Provider verdicts about the token come
// back in the result; a non-nil error means the attempt itself failed.
func (s *FCMSender) Send(ctx context.Context, msg *types.PushMessage) (*types.PushResult, error) {
	body, err := json.Marshal(fcmRequest{
		To: msg.Token,
		Notification: fcmNotification{
			Title: msg.Title,
			Body:  msg.Body,
		},
		Data: msg.Data,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal push request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "key="+s.serverKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("push request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("push provider returned status %d", resp.StatusCode)
	}

	var parsed fcmResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode push response: %w", err)
	}

	if parsed.Failure > 0 && len(parsed.Results) > 0 {
		return &types.PushResult{Success: false, ErrorCode: parsed.Results[0].Error}, nil
	}
	return &types.PushResult{Success: true}, nil
}
