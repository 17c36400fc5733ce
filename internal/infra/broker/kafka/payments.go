package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/IBM/sarama"

	"staybook/internal/app/reservations"
	"staybook/internal/domain/booking"
)

// paymentEvent is the payload the external payment collaborator publishes on
// its events topic.
type paymentEvent struct {
	BookingID string `json:"booking_id"`
	Status    string `json:"status"`
	Reference string `json:"reference"`
}

// PaymentUpdates adapts payment-collaborator events into payment status
// recordings on the engine. Unknown bookings and malformed payloads are
// logged and committed rather than redelivered forever.
func PaymentUpdates(svc *reservations.Service, logger *slog.Logger) HandlerFunc {
	return func(ctx context.Context, msg *sarama.ConsumerMessage) error {
		var evt paymentEvent
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			logger.Warn("payment event payload invalid", "topic", msg.Topic, "offset", msg.Offset, "error", err)
			return nil
		}
		status, ok := parsePaymentStatus(evt.Status)
		if !ok {
			logger.Warn("payment event status unknown", "status", evt.Status, "booking_id", evt.BookingID)
			return nil
		}
		_, err := svc.RecordPayment(ctx, booking.BookingID(evt.BookingID), status, evt.Reference)
		if err != nil {
			if errors.Is(err, booking.ErrNotFound) || errors.Is(err, booking.ErrInvalidState) {
				logger.Warn("payment event dropped", "booking_id", evt.BookingID, "error", err)
				return nil
			}
			return err
		}
		return nil
	}
}

func parsePaymentStatus(raw string) (booking.PaymentStatus, bool) {
	switch booking.PaymentStatus(strings.ToUpper(strings.TrimSpace(raw))) {
	case booking.PaymentPending:
		return booking.PaymentPending, true
	case booking.PaymentPaid:
		return booking.PaymentPaid, true
	case booking.PaymentFailed:
		return booking.PaymentFailed, true
	}
	return "", false
}
