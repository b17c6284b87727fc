// Package notifier implements the severity-filtered notification fan-out
// (C9). Every variant declares its own min_severity; transport failures
// never propagate to callers — a notifier suspends, it never fails a sync.
package notifier

import (
	"context"

	"github.com/konozy/ordersync/logging"
)

// Severity thresholds, per the notifier contract.
const (
	SeverityInfo     = 0
	SeverityWarn     = 50
	SeverityCritical = 80
)

// Variant is one notification transport. MinSeverity below is dropped
// before Send is ever called.
type Variant interface {
	MinSeverity() int
	Send(ctx context.Context, message string, severity int) error
}

// Notifier fans a message out to every configured variant whose
// min_severity the message clears.
type Notifier struct {
	variants []Variant
}

// New wires a set of variants. Order does not matter; each is evaluated
// independently against its own threshold.
func New(variants ...Variant) *Notifier {
	return &Notifier{variants: variants}
}

// Notify dispatches message at severity to every variant that accepts it.
// Transport failures are logged and swallowed, never returned to the
// caller — a notifier outage must never fail a sync.
func (n *Notifier) Notify(ctx context.Context, message string, severity int) {
	for _, v := range n.variants {
		if severity < v.MinSeverity() {
			continue
		}
		if err := v.Send(ctx, message, severity); err != nil {
			logging.Warn("notifier: send failed, dropping", logging.String("error", err.Error()))
		}
	}
}

// NotifySuccess is the specialized info-severity form for a clean sync.
func (n *Notifier) NotifySuccess(ctx context.Context, message string) {
	n.Notify(ctx, message, SeverityInfo)
}

// NotifyError is the specialized critical-severity form for a failed sync.
func (n *Notifier) NotifyError(ctx context.Context, message string) {
	n.Notify(ctx, message, SeverityCritical)
}
