package reminders

import (
	"context"
	"fmt"
	"time"

	"github.com/salonhq/booking-agent/internal/bookings"
	"github.com/salonhq/booking-agent/internal/observability/metrics"
	"github.com/salonhq/booking-agent/pkg/logging"
)

// MessageSender abstracts the outbound chat transport.
type MessageSender interface {
	SendMessage(ctx context.Context, to, body string) error
}

// AppointmentSource lists confirmed appointments for a calendar date.
type AppointmentSource interface {
	ConfirmedOn(ctx context.Context, date string) ([]bookings.ReminderTarget, error)
}

// Worker sends next-day reminders for confirmed appointments. Each run scans
// appointments dated exactly one day after asOf; per-appointment failures are
// isolated so one bad send never blocks the rest of the run.
type Worker struct {
	appointments AppointmentSource
	ledger       *Store
	sender       MessageSender
	metrics      *metrics.PipelineMetrics
	logger       *logging.Logger
}

// NewWorker creates a reminder worker.
func NewWorker(appointments AppointmentSource, ledger *Store, sender MessageSender, logger *logging.Logger) *Worker {
	if appointments == nil {
		panic("reminders: appointment source required")
	}
	if sender == nil {
		panic("reminders: sender required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Worker{appointments: appointments, ledger: ledger, sender: sender, logger: logger}
}

// SetMetrics attaches pipeline metrics. Safe to skip; observations are no-ops
// without it.
func (w *Worker) SetMetrics(m *metrics.PipelineMetrics) {
	w.metrics = m
}

// Run sends reminders for appointments on the day after asOf. Returns the
// number of reminders actually sent.
func (w *Worker) Run(ctx context.Context, asOf time.Time) (int, error) {
	tomorrow := asOf.AddDate(0, 0, 1).Format(time.DateOnly)

	targets, err := w.appointments.ConfirmedOn(ctx, tomorrow)
	if err != nil {
		return 0, fmt.Errorf("reminders: list confirmed: %w", err)
	}
	if len(targets) == 0 {
		return 0, nil
	}

	w.logger.Info("reminder run started", "date", tomorrow, "candidates", len(targets))

	sent := 0
	for _, target := range targets {
		delivered, err := w.sendOne(ctx, target, tomorrow)
		switch {
		case err != nil:
			w.metrics.ObserveReminder("failed")
			w.logger.Error("reminder send failed",
				"appointment_id", target.AppointmentID, "phone", target.Phone, "error", err)
			continue
		case delivered:
			w.metrics.ObserveReminder("sent")
			sent++
		default:
			w.metrics.ObserveReminder("skipped")
		}
	}
	return sent, nil
}

func (w *Worker) sendOne(ctx context.Context, target bookings.ReminderTarget, remindOn string) (bool, error) {
	if w.ledger != nil {
		already, err := w.ledger.AlreadySent(ctx, target.AppointmentID, remindOn)
		if err != nil {
			return false, err
		}
		if already {
			w.logger.Debug("reminder already sent, skipping", "appointment_id", target.AppointmentID)
			return false, nil
		}
	}

	if err := w.sender.SendMessage(ctx, target.Phone, Message(target)); err != nil {
		return false, err
	}

	if w.ledger != nil {
		if _, err := w.ledger.MarkSent(ctx, target.AppointmentID, remindOn); err != nil {
			// The reminder went out; a ledger failure only risks a duplicate
			// on the next run.
			w.logger.Error("failed to record reminder ledger entry",
				"appointment_id", target.AppointmentID, "error", err)
		}
	}

	w.logger.Info("reminder sent", "appointment_id", target.AppointmentID, "phone", target.Phone)
	return true, nil
}

// Message formats the reminder body for one appointment.
func Message(target bookings.ReminderTarget) string {
	name := target.Name
	if name == "" {
		name = "there"
	}
	return fmt.Sprintf(
		"Hi %s!\n\nThis is a reminder about your appointment tomorrow:\nDate: %s\nTime: %s\nService: %s\nPrice: $%d\n\nWe look forward to seeing you! If you need to reschedule or cancel, please reply to this message.",
		name, target.Date, target.Time, target.ServiceName, target.PriceUSD,
	)
}
