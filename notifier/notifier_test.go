package notifier

import (
	"context"
	"testing"
)

type recordingVariant struct {
	min  int
	sent []string
}

func (r *recordingVariant) MinSeverity() int { return r.min }
func (r *recordingVariant) Send(_ context.Context, message string, severity int) error {
	r.sent = append(r.sent, message)
	return nil
}

func TestNotifyDropsBelowMinSeverity(t *testing.T) {
	warnOnly := &recordingVariant{min: SeverityWarn}
	n := New(warnOnly)

	n.Notify(context.Background(), "just info", SeverityInfo)
	if len(warnOnly.sent) != 0 {
		t.Fatalf("info-severity message should have been dropped by a warn-threshold variant")
	}

	n.Notify(context.Background(), "a warning", SeverityWarn)
	if len(warnOnly.sent) != 1 {
		t.Fatalf("warn-severity message should have reached a warn-threshold variant")
	}
}

func TestNotifySuccessAndError(t *testing.T) {
	everything := &recordingVariant{min: SeverityInfo}
	n := New(everything)

	n.NotifySuccess(context.Background(), "done")
	n.NotifyError(context.Background(), "broke")

	if len(everything.sent) != 2 {
		t.Fatalf("expected both success and error to reach an info-threshold variant, got %v", everything.sent)
	}
}
