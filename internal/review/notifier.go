package review

import (
	"context"
	"fmt"

	"github.com/echeyne/restaurant-menu-optimizer-sub002/internal/common/config"
	"github.com/echeyne/restaurant-menu-optimizer-sub002/internal/common/logger"
)

// EmailSender is satisfied by the SES wrapper.
type EmailSender interface {
	SendPlainText(ctx context.Context, from, to, subject, body string) error
}

// SMSSender is satisfied by the SNS wrapper.
type SMSSender interface {
	PublishSMS(ctx context.Context, phoneNumber, message string) error
}

// Notifier tells reviewers that a pipeline run left records waiting for
// them. Delivery is best effort; a notification failure is logged and never
// propagated, because the records are already safely pending.
type Notifier struct {
	cfg    config.NotificationConfig
	email  EmailSender
	sms    SMSSender
	logger logger.Logger
}

func NewNotifier(cfg config.NotificationConfig, email EmailSender, sms SMSSender, log logger.Logger) *Notifier {
	return &Notifier{
		cfg:    cfg,
		email:  email,
		sms:    sms,
		logger: log.With(map[string]interface{}{"component": "review-notifier"}),
	}
}

// PendingCreated announces newly pending records for one restaurant.
func (n *Notifier) PendingCreated(ctx context.Context, restaurantID string, optimizations, suggestions int) {
	if n == nil || optimizations+suggestions == 0 {
		return
	}

	message := fmt.Sprintf(
		"Restaurant %s has new AI content awaiting review: %d menu optimizations, %d item suggestions.",
		restaurantID, optimizations, suggestions,
	)

	if n.cfg.Email.Enabled && n.email != nil {
		err := n.email.SendPlainText(ctx, n.cfg.Email.FromEmail, n.cfg.Email.ToEmail,
			"Menu content awaiting review", message)
		if err != nil {
			n.logger.Warn("review email not delivered", map[string]interface{}{
				"restaurant_id": restaurantID,
				"error":         err.Error(),
			})
		}
	}

	if n.cfg.SMS.Enabled && n.sms != nil {
		if err := n.sms.PublishSMS(ctx, n.cfg.SMS.PhoneNumber, message); err != nil {
			n.logger.Warn("review sms not delivered", map[string]interface{}{
				"restaurant_id": restaurantID,
				"error":         err.Error(),
			})
		}
	}
}
