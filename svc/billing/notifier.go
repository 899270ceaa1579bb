package billing

import (
	"context"

	"github.com/linkdeck/linkdeck/pkg/billing"
	"github.com/linkdeck/linkdeck/pkg/email"
)

// templateNotifier adapts email.TemplateSender to the billing.Notifier
// contract used by the lifecycle manager.
type templateNotifier struct {
	sender email.TemplateSender
}

// NewTemplateNotifier wraps a template sender as a Notifier. Panics on nil.
func NewTemplateNotifier(sender email.TemplateSender) billing.Notifier {
	if sender == nil {
		panic("billing: template notifier requires a sender")
	}
	return &templateNotifier{sender: sender}
}

func (n *templateNotifier) Send(ctx context.Context, notification billing.Notification) error {
	model := make(map[string]any, len(notification.Params))
	for k, v := range notification.Params {
		model[k] = v
	}
	return n.sender.SendTemplate(ctx, email.SendTemplateParams{
		TemplateID:    notification.TemplateID,
		SendTo:        notification.Recipient,
		Tag:           "billing",
		TemplateModel: model,
	})
}
