package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/salonhq/booking-agent/internal/conversation"
	"github.com/salonhq/booking-agent/internal/messaging"
	"github.com/salonhq/booking-agent/internal/observability/metrics"
	"github.com/salonhq/booking-agent/pkg/logging"
)

// emptyTwiML is the no-op ack body: the transport drives nothing off it.
const emptyTwiML = `<?xml version="1.0" encoding="UTF-8"?><Response></Response>`

type jobPublisher interface {
	Enqueue(ctx context.Context, job conversation.InboundJob) error
}

// WebhookHandler owns the ack-then-process contract for inbound chat events.
// The transport gets its acknowledgement before any storage, advisor or
// outbound call is attempted, and never sees an error once the ack is out.
type WebhookHandler struct {
	webhookSecret string
	publicBaseURL string
	publisher     jobPublisher
	metrics       *metrics.PipelineMetrics
	logger        *logging.Logger
}

// NewWebhookHandler creates the inbound webhook handler.
func NewWebhookHandler(webhookSecret, publicBaseURL string, publisher jobPublisher, m *metrics.PipelineMetrics, logger *logging.Logger) *WebhookHandler {
	if publisher == nil {
		panic("handlers: publisher required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &WebhookHandler{
		webhookSecret: webhookSecret,
		publicBaseURL: publicBaseURL,
		publisher:     publisher,
		metrics:       m,
		logger:        logger,
	}
}

// Inbound handles POST /webhook.
func (h *WebhookHandler) Inbound(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if h.webhookSecret != "" {
		if !messaging.ValidateTwilioSignature(r, h.webhookSecret, h.publicBaseURL+"/webhook") {
			h.logger.Warn("invalid webhook signature")
			h.metrics.ObserveInbound("unauthorized")
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
	}

	inbound, err := messaging.ParseInbound(r)
	if err != nil {
		h.logger.Error("failed to parse webhook", "error", err)
		h.metrics.ObserveInbound("bad_request")
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	// Ack first. Everything after this write is deferred work whose
	// failures must never reach the transport.
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(emptyTwiML))
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	h.metrics.ObserveAckLatency(time.Since(start).Seconds())

	if inbound.From == "" || inbound.Body == "" {
		h.logger.Warn("webhook missing sender or body, dropped",
			"message_sid", inbound.MessageSid)
		h.metrics.ObserveInbound("dropped")
		return
	}

	job := conversation.InboundJob{
		ID:          inbound.MessageSid,
		From:        inbound.From,
		To:          inbound.To,
		Body:        inbound.Body,
		ProfileName: inbound.ProfileName,
	}

	enqueueCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := h.publisher.Enqueue(enqueueCtx, job); err != nil {
		// Ack is already sent; this event is lost and only the log knows.
		h.logger.Error("conversation job dead-lettered at intake", "error", err, "from", inbound.From, "body", inbound.Body)
		h.metrics.ObserveInbound("enqueue_failed")
		return
	}

	h.metrics.ObserveInbound("accepted")
	h.logger.Info("webhook accepted", "message_sid", inbound.MessageSid)
}
