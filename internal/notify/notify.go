// Package notify fans out "audit changed" signals to collaborators currently
// viewing the same audit. Delivery is best-effort, at-most-once, with no
// replay for late subscribers; a notification failure never fails the
// mutation that triggered it.
package notify

import "context"

// EventAuditUpdated is the event name broadcast after a mutating operation.
const EventAuditUpdated = "updateAudit"

// Notifier broadcasts an event to all subscribers of the topic keyed by
// audit id. Business logic only publishes; subscription management belongs
// to the transport layer.
type Notifier interface {
	Notify(ctx context.Context, auditID, event string)
}

// ChannelFor returns the topic name for an audit.
func ChannelFor(auditID string) string {
	return "audit:" + auditID
}

// Noop discards every notification. Useful when no broker is configured.
type Noop struct{}

func (Noop) Notify(context.Context, string, string) {}
