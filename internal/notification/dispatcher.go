package notification

import (
	"context"

	"github.com/bigvision-74/SimCollectiveERP-sub000/pkg/interfaces"
	"github.com/bigvision-74/SimCollectiveERP-sub000/pkg/logger"
	"github.com/bigvision-74/SimCollectiveERP-sub000/pkg/monitoring"
	"github.com/bigvision-74/SimCollectiveERP-sub000/pkg/types"
)

// Dispatcher fans notifications out to users' registered devices. It
// implements interfaces.PushDispatcher.
//
// Delivery is best-effort: failures are logged and counted but never
// escalated, and tokens the provider rejects as dead are cleared so the
// next device registration starts clean.
type Dispatcher struct {
	users   interfaces.UserRepository
	sender  interfaces.PushSender
	logger  *logger.Logger
	metrics *monitoring.MetricsCollector
}

// NewDispatcher creates a push dispatcher
func NewDispatcher(users interfaces.UserRepository, sender interfaces.PushSender, log *logger.Logger, metrics *monitoring.MetricsCollector) *Dispatcher {
	return &Dispatcher{
		users:   users,
		sender:  sender,
		logger:  log,
		metrics: metrics,
	}
}

// DispatchToUsers sends one notification to every listed user that has a
// registered device token. Users without a token are skipped silently.
func (d *Dispatcher) DispatchToUsers(ctx context.Context, userIDs []string, title, body string, data map[string]string) {
	if len(userIDs) == 0 {
		return
	}

	tokens, err := d.users.GetDeviceTokens(ctx, userIDs)
	if err != nil {
		d.logger.WithError(err).Error("Failed to resolve device tokens for push dispatch")
		d.metrics.RecordPushNotification("token_lookup_failed")
		return
	}

	for _, userID := range userIDs {
		token, ok := tokens[userID]
		if !ok {
			continue
		}
		d.sendOne(ctx, userID, token, title, body, data)
	}
}

func (d *Dispatcher) sendOne(ctx context.Context, userID, token, title, body string, data map[string]string) {
	result, err := d.sender.Send(ctx, &types.PushMessage{
		Token: token,
		Title: title,
		Body:  body,
		Data:  data,
	})
	if err != nil {
		d.logger.WithUserID(userID).WithError(err).Warn("Push delivery attempt failed")
		d.metrics.RecordPushNotification("error")
		return
	}

	if result.Success {
		d.metrics.RecordPushNotification("success")
		d.logger.PushDelivery(userID, true, "")
		return
	}

	d.metrics.RecordPushNotification("failure")
	d.logger.PushDelivery(userID, false, result.ErrorCode)

	if result.TokenInvalid() {
		if err := d.users.ClearDeviceToken(ctx, token); err != nil {
			d.logger.WithUserID(userID).WithError(err).Warn("Failed to clear stale device token")
			return
		}
		d.metrics.RecordStaleTokenCleared()
		d.logger.WithUserID(userID).Info("Cleared stale device token")
	}
}
