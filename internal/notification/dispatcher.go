package notification

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/reimbursement-management/internal/core/events"
	"github.com/frahmantamala/reimbursement-management/internal/metrics"
)

type RecipientLookup interface {
	ListAdminEmails(ctx context.Context) ([]string, error)
}

// Dispatcher turns application.submitted events into notices.
type Dispatcher struct {
	sender     Sender
	recipients RecipientLookup
	logger     *slog.Logger
}

func NewDispatcher(sender Sender, recipients RecipientLookup, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		sender:     sender,
		recipients: recipients,
		logger:     logger,
	}
}

// Register subscribes the dispatcher on bus.
func (d *Dispatcher) Register(bus *events.EventBus) {
	bus.Subscribe(events.EventTypeApplicationSubmitted, d.HandleApplicationSubmitted)
}

// HandleApplicationSubmitted never returns the delivery failure: it is
// recorded here and the event is considered handled.
func (d *Dispatcher) HandleApplicationSubmitted(ctx context.Context, event events.Event) error {
	submitted, ok := event.(*events.ApplicationSubmittedEvent)
	if !ok {
		return fmt.Errorf("unexpected event payload %T for %s", event, event.EventType())
	}

	d.Dispatch(ctx, Notice{
		ApplicationID:     submitted.ApplicationID,
		ApplicationNumber: submitted.ApplicationNumber,
		MemberID:          submitted.UserID,
		Amount:            submitted.Amount,
		SubmittedAt:       submitted.SubmittedAt,
	})
	return nil
}

// Dispatch fills in the recipients and sends notice.
func (d *Dispatcher) Dispatch(ctx context.Context, notice Notice) Result {
	recipients, err := d.recipients.ListAdminEmails(ctx)
	if err != nil {
		return d.record(ctx, notice, Failed(fmt.Errorf("failed to resolve recipients: %w", err)))
	}
	notice.Recipients = recipients

	return d.record(ctx, notice, d.sender.Notify(ctx, notice))
}

func (d *Dispatcher) record(ctx context.Context, notice Notice, result Result) Result {
	if result.Success {
		metrics.Notifications.WithLabelValues("success").Inc()
		d.logger.InfoContext(ctx, "submission notice sent",
			"application_id", notice.ApplicationID,
			"recipients", len(notice.Recipients))
		return result
	}

	metrics.Notifications.WithLabelValues("failure").Inc()
	d.logger.ErrorContext(ctx, "submission notice failed",
		"application_id", notice.ApplicationID,
		"error", result.Err)
	return result
}
