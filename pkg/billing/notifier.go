package billing

import "context"

// Notification template identifiers as configured on the email provider.
const (
	TemplateSubscriptionActivated   int64 = 32100241
	TemplateSubscriptionCancelled   int64 = 32100242
	TemplateSubscriptionReactivated int64 = 32100243
)

// Notification is a fire-and-forget request to notify a subscriber about a
// committed lifecycle transition.
type Notification struct {
	TemplateID int64
	Recipient  string
	Params     map[string]string
}

// Notifier dispatches outbound notifications. Delivery failure must never
// roll back or retry the already-committed state transition; the lifecycle
// manager logs and moves on.
type Notifier interface {
	Send(ctx context.Context, notification Notification) error
}

// NoopNotifier discards all notifications. Used when no email provider is
// configured and in tests that don't assert on notifications.
type NoopNotifier struct{}

func (NoopNotifier) Send(ctx context.Context, notification Notification) error { return nil }
