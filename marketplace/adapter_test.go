package marketplace

import (
	"context"
	"testing"
	"time"
)

func TestFetchWindowRejectsZeroPostedAfter(t *testing.T) {
	a := New("http://example.invalid", "key", "seller-1", 2*time.Minute)
	_, err := a.FetchWindow(context.Background(), time.Time{})
	if err == nil {
		t.Fatalf("expected ConfigurationError for zero posted_after")
	}
	if _, ok := err.(*ConfigurationError); !ok {
		t.Fatalf("expected *ConfigurationError, got %T", err)
	}
}

func TestFetchWindowRejectsWindowNotBeforeClamp(t *testing.T) {
	a := New("http://example.invalid", "key", "seller-1", 2*time.Minute)
	_, err := a.FetchWindow(context.Background(), time.Now())
	if err == nil {
		t.Fatalf("expected ConfigurationError when posted_after is inside the clamp window")
	}
}
