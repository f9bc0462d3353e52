// Package notify delivers allocation outcomes to operator channels. Each run
// is rendered into a structured Message that senders map onto their native
// format (Discord embeds, Telegram markdown), filtered by event type so
// operators receive only the alerts they care about.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/qrlworks/qrlbot/internal/domain"
)

// Event types emitted by the bot.
const (
	EventAllocationExecuted = "allocation_executed"
	EventAllocationSkipped  = "allocation_skipped"
	EventAllocationRejected = "allocation_rejected"
	EventAllocationError    = "allocation_error"
	EventArchiveCompleted   = "archive_completed"
)

// Field is one labelled value of a notification, e.g. "order" / "ord-7".
type Field struct {
	Name  string
	Value string
}

// Message is one notification. Fields are ordered and rendered
// channel-natively by each sender.
type Message struct {
	Event  string
	Title  string
	Fields []Field
}

// Sender is the interface that each notification channel must implement.
type Sender interface {
	// Send delivers the message in the channel's native format.
	Send(ctx context.Context, msg Message) error
	// Name returns a human-readable identifier for the sender (e.g. "telegram").
	Name() string
}

// Notifier dispatches messages to one or more Senders. It maintains a set of
// allowed event types; messages with other event types are dropped.
type Notifier struct {
	senders []Sender
	events  map[string]bool // allowed event types
	logger  *slog.Logger
}

// NewNotifier creates a Notifier that will deliver to the given senders. Only
// events whose type appears in the events slice will be forwarded by Notify.
// If events is empty, all event types are allowed.
func NewNotifier(senders []Sender, events []string, logger *slog.Logger) *Notifier {
	allowed := make(map[string]bool, len(events))
	for _, e := range events {
		allowed[strings.TrimSpace(e)] = true
	}
	return &Notifier{
		senders: senders,
		events:  allowed,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// Notify sends the message to all senders only if its event type is in the
// allowed list. If no events were configured (empty list), all events pass.
func (n *Notifier) Notify(ctx context.Context, msg Message) error {
	if len(n.events) > 0 && !n.events[msg.Event] {
		n.logger.DebugContext(ctx, "event filtered out",
			slog.String("event", msg.Event),
		)
		return nil
	}

	return n.dispatch(ctx, msg)
}

// NotifyAllocation renders the outcome of one allocation run. The event type
// is derived from the run status, so operators can subscribe to executions
// and errors while muting routine skips.
func (n *Notifier) NotifyAllocation(ctx context.Context, res domain.AllocationResult) error {
	var event, title string
	switch res.Status {
	case domain.AllocationStatusOK:
		event = EventAllocationExecuted
		title = fmt.Sprintf("Allocation executed: %s", res.Action)
	case domain.AllocationStatusSkipped:
		event = EventAllocationSkipped
		title = "Allocation skipped"
	case domain.AllocationStatusRejected:
		event = EventAllocationRejected
		title = "Allocation rejected"
	default:
		event = EventAllocationError
		title = "Allocation failed"
	}

	fields := []Field{
		{Name: "request", Value: res.RequestID},
		{Name: "action", Value: string(res.Action)},
	}
	if res.OrderID != "" {
		fields = append(fields, Field{Name: "order", Value: res.OrderID})
	}
	if res.Reason != "" {
		fields = append(fields, Field{Name: "reason", Value: res.Reason})
	}
	if !res.SlippagePct.IsZero() {
		fields = append(fields, Field{Name: "slippage", Value: res.SlippagePct.StringFixed(4) + "%"})
	}
	if !res.ExpectedFill.IsZero() {
		fields = append(fields, Field{Name: "expected fill", Value: res.ExpectedFill.String()})
	}
	fields = append(fields, Field{Name: "at", Value: res.ExecutedAt.Format("2006-01-02 15:04:05 MST")})

	return n.Notify(ctx, Message{Event: event, Title: title, Fields: fields})
}

// NotifyArchive reports one completed archival sweep.
func (n *Notifier) NotifyArchive(ctx context.Context, runs, orders int64) error {
	return n.Notify(ctx, Message{
		Event: EventArchiveCompleted,
		Title: "Archive sweep completed",
		Fields: []Field{
			{Name: "allocation runs", Value: fmt.Sprintf("%d", runs)},
			{Name: "orders", Value: fmt.Sprintf("%d", orders)},
		},
	})
}

// dispatch iterates over all senders and sends the message. Errors from
// individual senders are collected and returned as a combined error; a single
// sender failure does not prevent delivery to the remaining senders.
func (n *Notifier) dispatch(ctx context.Context, msg Message) error {
	if len(n.senders) == 0 {
		return nil
	}

	var errs []string
	for _, s := range n.senders {
		if err := s.Send(ctx, msg); err != nil {
			n.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Sprintf("%s: %v", s.Name(), err))
		} else {
			n.logger.DebugContext(ctx, "notification sent",
				slog.String("sender", s.Name()),
				slog.String("event", msg.Event),
			)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("notify: %d sender(s) failed: %s", len(errs), strings.Join(errs, "; "))
	}
	return nil
}
