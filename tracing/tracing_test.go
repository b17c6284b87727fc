package tracing

import (
	"context"
	"testing"
)

func TestStartAttachesRetrievableExecutionID(t *testing.T) {
	ctx, id := Start(context.Background())
	if id == "" {
		t.Fatalf("expected a non-empty execution id")
	}
	if got := From(ctx); got != id {
		t.Fatalf("From(ctx) = %q, want %q", got, id)
	}
}

func TestFromEmptyContext(t *testing.T) {
	if got := From(context.Background()); got != "" {
		t.Fatalf("From(background) = %q, want empty", got)
	}
}
