package approval

import (
	"context"
	"log/slog"

	"github.com/courierhq/dispatch/pkg/api"
	"github.com/courierhq/dispatch/pkg/log"
)

// Notifier informs an external approval or identity service that an
// interrupt was created. Notification is best-effort: a failure is logged
// by the gate and never blocks interrupt creation
type Notifier interface {
	NotifyCreated(ctx context.Context, interrupt *api.Interrupt) error
}

// LogNotifier is the reference Notifier; it only records the request
type LogNotifier struct{}

var _ Notifier = (*LogNotifier)(nil)

func (LogNotifier) NotifyCreated(
	_ context.Context, interrupt *api.Interrupt,
) error {
	slog.Info("Approval request raised",
		log.InterruptID(interrupt.ID),
		slog.String("resource_id", interrupt.ResourceID),
		slog.String("action", interrupt.Action),
		slog.String("reason", interrupt.Reason))
	return nil
}
