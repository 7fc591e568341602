package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/tabsplit/internal/domain/shared"
	"github.com/tabsplit/internal/platform/messaging/producers"
)

// PaymentEventHandler handles payment lifecycle messages from Kafka
type PaymentEventHandler struct {
	processingService ProcessingService
	producer          producers.DeadLetterPublisher
	logger            *slog.Logger
}

func NewPaymentEventHandler(
	logger *slog.Logger,
	processingService ProcessingService,
	producer producers.DeadLetterPublisher,
) *PaymentEventHandler {
	return &PaymentEventHandler{
		processingService: processingService,
		producer:          producer,
		logger:            logger,
	}
}

// HandleMessage decodes one message and applies it. Messages that can never be
// applied are moved to the DLQ so the partition keeps moving.
func (h *PaymentEventHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var event shared.PaymentEvent
	if err := json.Unmarshal(value, &event); err != nil {
		return h.deadLetter(ctx, key, value, "Failed to unmarshal payment event from Kafka message", err)
	}
	if err := event.Validate(); err != nil {
		return h.deadLetter(ctx, key, value, "Payment event failed validation", err)
	}
	if event.EventID == uuid.Nil {
		event.EventID = uuid.New()
	}

	logger := h.logger
	if event.CorrelationID != "" {
		logger = h.logger.With("correlation_id", event.CorrelationID)
	}

	logger.Info("Received payment event",
		"event_id", event.EventID.String(),
		"event_type", event.Type,
		"bill_id", event.BillID,
		"person_id", event.PersonID,
		"amount", event.Amount,
	)

	if err := h.processingService.ProcessEvent(ctx, &event); err != nil {
		logger.Error("Failed to process payment event",
			"event_id", event.EventID.String(),
			"bill_id", event.BillID,
			"error", err,
		)
		return fmt.Errorf("processing payment event %s failed: %w", event.EventID.String(), err)
	}

	return nil
}

// deadLetter parks a message that can never be applied. Without a DLQ the
// message is dropped; when the DLQ write fails it is kept for redelivery.
func (h *PaymentEventHandler) deadLetter(ctx context.Context, key, value []byte, msg string, cause error) error {
	h.logger.Error(msg, "error", cause, "message_key", string(key))

	if h.producer == nil {
		h.logger.Error("No DLQ configured, dropping unprocessable message", "message_key", string(key))
		return nil
	}

	reason := fmt.Sprintf("%s: %s", msg, cause.Error())
	dlqErr := h.producer.PublishToDLQ(ctx, string(key), value, reason)
	switch {
	case dlqErr == nil:
		h.logger.Info("Published unprocessable message to DLQ", "message_key", string(key), "reason", reason)
		return nil
	case errors.Is(dlqErr, producers.ErrDLQDisabled):
		h.logger.Error("No DLQ configured, dropping unprocessable message", "message_key", string(key))
		return nil
	}

	h.logger.Error("Failed to publish message to DLQ",
		"dlq_error", dlqErr,
		"original_error", cause,
		"message_key", string(key),
	)
	return fmt.Errorf("%s: %w", msg, cause)
}
