// Package marketplace is the inbound adapter (C11) over the external
// seller API: a date-windowed, paginated source of raw financial-event
// payloads. The system never invents a fallback date — an unset
// posted_after is a fatal configuration error, not a default.
package marketplace

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/konozy/ordersync/decomposer"
	"github.com/konozy/ordersync/logging"
)

// ConfigurationError marks a fatal, startup-time misconfiguration. It is
// never raised mid-sync for a single order.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string { return "marketplace: configuration error: " + e.Reason }

// Adapter pulls raw financial-event payloads for a date window from the
// seller API, paginating via continuation token until exhaustion.
type Adapter struct {
	http        *resty.Client
	sellerID    string
	clampWindow time.Duration
}

// New builds an adapter against baseURL, authenticated with apiKey.
// clampWindow is the upstream-required distance from now that posted_before
// is clamped to (typically 2 minutes).
func New(baseURL, apiKey, sellerID string, clampWindow time.Duration) *Adapter {
	http := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Authorization", "Bearer "+apiKey).
		SetRetryCount(3).
		SetRetryWaitTime(1_000_000_000)
	return &Adapter{http: http, sellerID: sellerID, clampWindow: clampWindow}
}

type financialEventsPage struct {
	Payloads           []decomposer.RawPayload `json:"payloads"`
	ContinuationToken  string                   `json:"continuation_token"`
}

// FetchWindow pulls every raw payload with posted_after <= posted_date <
// posted_before, clamping the upper bound to now-clampWindow. postedAfter
// must be non-zero: an unset lower bound is a ConfigurationError, never a
// silently assumed default.
func (a *Adapter) FetchWindow(ctx context.Context, postedAfter time.Time) ([]decomposer.RawPayload, error) {
	if postedAfter.IsZero() {
		return nil, &ConfigurationError{Reason: "posted_after is required and has no default"}
	}

	postedBefore := time.Now().UTC().Add(-a.clampWindow)
	if !postedBefore.After(postedAfter) {
		return nil, &ConfigurationError{Reason: "posted_after is not before the clamped posted_before window"}
	}

	var all []decomposer.RawPayload
	token := ""
	for {
		page, err := a.fetchPage(ctx, postedAfter, postedBefore, token)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Payloads...)
		if page.ContinuationToken == "" {
			break
		}
		token = page.ContinuationToken
	}

	logging.Info("marketplace: fetched financial events",
		logging.String("seller_id", a.sellerID),
		logging.Int("payload_count", len(all)),
	)
	return all, nil
}

func (a *Adapter) fetchPage(ctx context.Context, postedAfter, postedBefore time.Time, token string) (*financialEventsPage, error) {
	req := a.http.R().SetContext(ctx).
		SetQueryParam("seller_id", a.sellerID).
		SetQueryParam("posted_after", postedAfter.Format(time.RFC3339)).
		SetQueryParam("posted_before", postedBefore.Format(time.RFC3339))
	if token != "" {
		req.SetQueryParam("continuation_token", token)
	}

	var page financialEventsPage
	resp, err := req.SetResult(&page).Get("/financial-events")
	if err != nil {
		return nil, fmt.Errorf("marketplace: fetch financial events: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("marketplace: fetch financial events: status %d", resp.StatusCode())
	}
	return &page, nil
}
