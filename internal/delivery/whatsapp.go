package delivery

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/glamhair/patglam-agent/pkg/client"
	"github.com/glamhair/patglam-agent/pkg/validation"
)

// WhatsAppDispatcher posts lead briefs to a WhatsApp business API relay.
type WhatsAppDispatcher struct {
	apiURL     string
	httpClient *client.HTTPClient
}

// NewWhatsAppDispatcher creates a dispatcher for a WhatsApp relay endpoint.
func NewWhatsAppDispatcher(apiURL, apiToken string, timeout time.Duration) *WhatsAppDispatcher {
	return &WhatsAppDispatcher{
		apiURL:     apiURL,
		httpClient: client.NewHTTPClient("whatsapp", timeout).WithBearerToken(apiToken),
	}
}

// Name identifies the channel for logging
func (d *WhatsAppDispatcher) Name() string {
	return "whatsapp"
}

// Send delivers the message, retrying transient failures with backoff.
func (d *WhatsAppDispatcher) Send(ctx context.Context, destination, body string) error {
	if d.apiURL == "" {
		return fmt.Errorf("whatsapp dispatcher not configured")
	}

	to, err := validation.NormalizeE164(destination)
	if err != nil {
		return fmt.Errorf("invalid whatsapp destination: %w", err)
	}

	resp, err := d.httpClient.Post(ctx, d.apiURL, map[string]string{
		"to":   to,
		"text": body,
	})
	if err != nil {
		return fmt.Errorf("whatsapp request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("whatsapp API error: %d - %s", resp.StatusCode, string(respBody))
	}
	return nil
}
