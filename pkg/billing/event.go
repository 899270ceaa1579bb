package billing

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// EventType is the provider's event name from the webhook envelope.
type EventType string

const (
	EventChargeSuccess          EventType = "charge.success"
	EventSubscriptionCreate     EventType = "subscription.create"
	EventSubscriptionDisable    EventType = "subscription.disable"
	EventSubscriptionNotRenew   EventType = "subscription.not_renew"
	EventInvoiceCreate          EventType = "invoice.create"
	EventInvoiceUpdate          EventType = "invoice.update"
	EventInvoicePaymentFailed   EventType = "invoice.payment_failed"
	EventCustomerIdentification EventType = "customeridentification.success"
)

// Event is a webhook delivery decoded into its validated fields.
// It is transient: constructed by ParseEvent, consumed once by the router,
// then discarded. Known is false for forward-compatible unrecognized event
// names, which are accepted and routed to a no-op.
type Event struct {
	Type  EventType
	Known bool

	Email        string
	CustomerCode string

	// Charge / invoice fields. A zero Amount is legitimate (fully
	// discounted invoices); amountSet distinguishes it from a missing field.
	Reference string
	Amount    int64
	amountSet bool
	Currency  string
	Status    string
	Channel   string

	// Subscription fields.
	PlanCode         string
	SubscriptionCode string
	EmailToken       string
	NextPaymentAt    *time.Time

	// Checkout metadata set by our own frontend, when present.
	SubscriberID uuid.UUID
	PlanType     string
	Cycle        BillingCycle
}

type rawEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type rawCustomer struct {
	Email        string `json:"email"`
	CustomerCode string `json:"customer_code"`
}

type rawAuthorization struct {
	Channel string `json:"channel"`
}

type rawMetadata struct {
	SubscriberID string `json:"subscriber_id"`
	PlanType     string `json:"plan_type"`
	BillingCycle string `json:"billing_cycle"`
}

type rawData struct {
	Reference        string           `json:"reference"`
	Amount           json.Number      `json:"amount"`
	Currency         string           `json:"currency"`
	Status           string           `json:"status"`
	Customer         *rawCustomer     `json:"customer"`
	CustomerCode     string           `json:"customer_code"`
	Plan             json.RawMessage  `json:"plan"`
	Subscription     json.RawMessage  `json:"subscription"`
	SubscriptionCode string           `json:"subscription_code"`
	EmailToken       string           `json:"email_token"`
	NextPaymentDate  string           `json:"next_payment_date"`
	PeriodEnd        string           `json:"period_end"`
	Authorization    rawAuthorization `json:"authorization"`
	Metadata         json.RawMessage  `json:"metadata"`
}

// ParseEvent decodes and structurally validates a raw webhook body.
// Malformed JSON, a missing envelope field, or a failed category validation
// yields ErrInvalidPayload; an unrecognized event name passes through with
// Known=false so new provider events never bounce deliveries.
func ParseEvent(body []byte) (*Event, error) {
	var envelope rawEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if envelope.Event == "" {
		return nil, fmt.Errorf("%w: missing event name", ErrInvalidPayload)
	}
	if !isJSONObject(envelope.Data) {
		return nil, fmt.Errorf("%w: missing data object", ErrInvalidPayload)
	}

	var data rawData
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	event := &Event{
		Type:             EventType(envelope.Event),
		Known:            knownEventType(EventType(envelope.Event)),
		Reference:        data.Reference,
		Currency:         data.Currency,
		Status:           data.Status,
		Channel:          data.Authorization.Channel,
		SubscriptionCode: data.SubscriptionCode,
		EmailToken:       data.EmailToken,
		CustomerCode:     data.CustomerCode,
	}

	if data.Customer != nil {
		event.Email = data.Customer.Email
		if data.Customer.CustomerCode != "" {
			event.CustomerCode = data.Customer.CustomerCode
		}
	}
	if data.Amount != "" {
		// Providers send the amount in the smallest currency unit; a
		// fractional value means a malformed payload for our purposes.
		n, err := data.Amount.Int64()
		if err != nil {
			return nil, fmt.Errorf("%w: non-integer amount", ErrInvalidPayload)
		}
		event.Amount = n
		event.amountSet = true
	}

	event.PlanCode = planCode(data.Plan)
	sub := subscriptionDetails(data.Subscription)
	if event.SubscriptionCode == "" {
		event.SubscriptionCode = sub.SubscriptionCode
	}
	// Invoice payloads nest the date under the subscription object or send
	// period_end; the first present value wins.
	for _, value := range []string{data.NextPaymentDate, sub.NextPaymentDate, data.PeriodEnd} {
		if value == "" {
			continue
		}
		if ts, err := time.Parse(time.RFC3339, value); err == nil {
			utc := ts.UTC()
			event.NextPaymentAt = &utc
			break
		}
	}
	applyMetadata(event, data.Metadata)

	if err := validateCategory(event); err != nil {
		return nil, err
	}
	return event, nil
}

// knownEventType reports whether the router has an explicit mapping for t.
func knownEventType(t EventType) bool {
	switch t {
	case EventChargeSuccess, EventSubscriptionCreate, EventSubscriptionDisable,
		EventSubscriptionNotRenew, EventInvoiceCreate, EventInvoiceUpdate,
		EventInvoicePaymentFailed, EventCustomerIdentification:
		return true
	}
	return false
}

// validateCategory enforces the per-category required fields. Unrecognized
// event names pass with minimal structure only.
func validateCategory(event *Event) error {
	name := string(event.Type)
	switch {
	case strings.HasPrefix(name, "charge."):
		if event.Reference == "" || !event.amountSet || event.Currency == "" ||
			event.Status == "" || event.Email == "" {
			return fmt.Errorf("%w: incomplete charge event", ErrInvalidPayload)
		}
	case strings.HasPrefix(name, "subscription."):
		if event.Email == "" {
			return fmt.Errorf("%w: subscription event without customer email", ErrInvalidPayload)
		}
		if event.SubscriptionCode == "" && event.PlanCode == "" {
			return fmt.Errorf("%w: subscription event without subscription or plan", ErrInvalidPayload)
		}
	case strings.HasPrefix(name, "invoice."):
		if event.Email == "" || !event.amountSet {
			return fmt.Errorf("%w: incomplete invoice event", ErrInvalidPayload)
		}
	}
	return nil
}

// planCode extracts the plan code whether the provider sent a bare string or
// an expanded plan object.
func planCode(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ""
	}
	if trimmed[0] == '"' {
		var code string
		if err := json.Unmarshal(trimmed, &code); err == nil {
			return code
		}
		return ""
	}
	var obj struct {
		PlanCode string `json:"plan_code"`
	}
	if err := json.Unmarshal(trimmed, &obj); err == nil {
		return obj.PlanCode
	}
	return ""
}

// rawSubscription is the embedded subscription object on invoice events.
type rawSubscription struct {
	SubscriptionCode string `json:"subscription_code"`
	NextPaymentDate  string `json:"next_payment_date"`
}

// subscriptionDetails mirrors planCode for the subscription field, which
// arrives as a bare code string or an expanded object.
func subscriptionDetails(raw json.RawMessage) rawSubscription {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return rawSubscription{}
	}
	if trimmed[0] == '"' {
		var code string
		if err := json.Unmarshal(trimmed, &code); err == nil {
			return rawSubscription{SubscriptionCode: code}
		}
		return rawSubscription{}
	}
	var obj rawSubscription
	if err := json.Unmarshal(trimmed, &obj); err == nil {
		return obj
	}
	return rawSubscription{}
}

// applyMetadata copies checkout metadata onto the event. Some providers
// stringify metadata on redelivery, so both encodings are tolerated and any
// unusable value is simply dropped.
func applyMetadata(event *Event, raw json.RawMessage) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return
	}

	var meta rawMetadata
	if trimmed[0] == '"' {
		var inner string
		if err := json.Unmarshal(trimmed, &inner); err != nil {
			return
		}
		if err := json.Unmarshal([]byte(inner), &meta); err != nil {
			return
		}
	} else if err := json.Unmarshal(trimmed, &meta); err != nil {
		return
	}

	event.PlanType = meta.PlanType
	if cycle := BillingCycle(meta.BillingCycle); cycle.Valid() {
		event.Cycle = cycle
	}
	if meta.SubscriberID != "" {
		if id, err := uuid.Parse(meta.SubscriberID); err == nil {
			event.SubscriberID = id
		}
	}
}

// isJSONObject reports whether raw holds a JSON object literal.
func isJSONObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}
