package notifier

import (
	"context"

	"github.com/konozy/ordersync/logging"
)

// LogVariant writes every notification through the structured logger. It
// has no transport to fail, so Send never returns an error.
type LogVariant struct {
	minSeverity int
}

// NewLogVariant builds a log-only variant, dropping anything below
// minSeverity.
func NewLogVariant(minSeverity int) *LogVariant {
	return &LogVariant{minSeverity: minSeverity}
}

func (l *LogVariant) MinSeverity() int { return l.minSeverity }

func (l *LogVariant) Send(_ context.Context, message string, severity int) error {
	switch {
	case severity >= SeverityCritical:
		logging.Error(message, nil, logging.Int("severity", severity))
	case severity >= SeverityWarn:
		logging.Warn(message, logging.Int("severity", severity))
	default:
		logging.Info(message, logging.Int("severity", severity))
	}
	return nil
}
