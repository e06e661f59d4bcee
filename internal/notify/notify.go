// Package notify tells workers about tickets issued in their name.
package notify

import (
	"context"
	"log/slog"

	"github.com/erazemk/irontrace/internal/model"
)

// Notifier delivers a ticket to a worker's contact address.
type Notifier interface {
	TicketIssued(ctx context.Context, contact string, ticket *model.Ticket) error
}

// Logger is the subset of *slog.Logger the log notifier needs.
type Logger interface {
	Info(msg string, args ...any)
}

// LogNotifier records notifications in the log instead of sending them.
type LogNotifier struct {
	Logger Logger
}

// NewLogNotifier returns a notifier writing to the default slog logger.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{Logger: slog.Default()}
}

// TicketIssued logs the ticket as if it had been mailed to contact.
func (n *LogNotifier) TicketIssued(_ context.Context, contact string, ticket *model.Ticket) error {
	n.Logger.Info("ticket notification",
		"to", contact,
		"ticket", ticket.ID,
		"worker", ticket.WorkerName,
		"lines", len(ticket.Lines),
	)
	return nil
}

// Nop discards notifications.
type Nop struct{}

// TicketIssued does nothing.
func (Nop) TicketIssued(context.Context, string, *model.Ticket) error { return nil }
