package notifier

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
)

// WebhookVariant posts a JSON payload to a configured URL. It declares its
// own min_severity and is otherwise stateless.
type WebhookVariant struct {
	http        *resty.Client
	url         string
	minSeverity int
}

// NewWebhookVariant builds a webhook variant posting to url, dropping
// anything below minSeverity.
func NewWebhookVariant(url string, minSeverity int) *WebhookVariant {
	return &WebhookVariant{
		http:        resty.New().SetRetryCount(2),
		url:         url,
		minSeverity: minSeverity,
	}
}

func (w *WebhookVariant) MinSeverity() int { return w.minSeverity }

func (w *WebhookVariant) Send(ctx context.Context, message string, severity int) error {
	if w.url == "" {
		return nil
	}
	resp, err := w.http.R().SetContext(ctx).
		SetBody(map[string]interface{}{"message": message, "severity": severity}).
		Post(w.url)
	if err != nil {
		return fmt.Errorf("notifier: webhook post: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("notifier: webhook post: status %d", resp.StatusCode())
	}
	return nil
}
