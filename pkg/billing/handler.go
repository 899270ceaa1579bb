package billing

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// maxWebhookBody caps the payload size; provider events are a few KB.
const maxWebhookBody = 1 << 20

// WebhookHandler is the inbound boundary of the pipeline:
// signature verification, parsing, per-subscriber serialization, routing.
// Verification runs before any parsing or I/O, so a forged delivery exits
// with zero side effects.
type WebhookHandler struct {
	secret string
	router *Router
	locker Locker
	logger *slog.Logger
}

// NewWebhookHandler creates the webhook HTTP handler.
// Returns ErrMissingWebhookSecret when secret is empty so a misconfigured
// deployment cannot silently accept unauthenticated deliveries.
func NewWebhookHandler(secret string, router *Router, locker Locker, logger *slog.Logger) (*WebhookHandler, error) {
	if secret == "" {
		return nil, ErrMissingWebhookSecret
	}
	if router == nil {
		panic("billing: Router is required")
	}
	if locker == nil {
		locker = NewKeyedMutex()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookHandler{
		secret: secret,
		router: router,
		locker: locker,
		logger: logger,
	}, nil
}

// Routes mounts the webhook endpoint on a chi router.
// Non-POST methods get chi's 405 response.
func (h *WebhookHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/webhooks/paystack", h.ServeHTTP)
	return r
}

func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		respond(w, http.StatusBadRequest, "unreadable body")
		return
	}

	if !VerifySignature(h.secret, body, r.Header.Get(SignatureHeader)) {
		h.logger.WarnContext(ctx, "webhook signature rejected",
			slog.String("remote_addr", r.RemoteAddr))
		respond(w, http.StatusBadRequest, "invalid signature")
		return
	}

	event, err := ParseEvent(body)
	if err != nil {
		h.logger.WarnContext(ctx, "webhook payload rejected",
			slog.String("error", err.Error()))
		respond(w, http.StatusBadRequest, "invalid payload")
		return
	}

	if key := lockKey(event); key != "" {
		release, err := h.locker.Acquire(ctx, key)
		if err != nil {
			respond(w, http.StatusInternalServerError, "processing interrupted")
			return
		}
		defer release()
	}

	result, err := h.router.Route(ctx, event)
	if err != nil {
		// Safe for the provider to retry: every operation is idempotent.
		h.logger.ErrorContext(ctx, "webhook processing failed",
			slog.String("event", string(event.Type)),
			slog.String("error", err.Error()))
		respond(w, http.StatusInternalServerError, "processing failed")
		return
	}

	h.logger.InfoContext(ctx, "webhook handled",
		slog.String("event", string(event.Type)),
		slog.String("outcome", string(result.Outcome)),
		slog.String("reason", result.Reason))
	respond(w, http.StatusOK, string(result.Outcome))
}

// lockKey derives the per-subscriber serialization key. Events that resolve
// no subscriber need no lock.
func lockKey(event *Event) string {
	if event.SubscriberID != uuid.Nil {
		return "subscriber:" + event.SubscriberID.String()
	}
	if event.Email != "" {
		return "email:" + strings.ToLower(event.Email)
	}
	return ""
}

func respond(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": status})
}
