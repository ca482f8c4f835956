package alert

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// LogTransport delivers alerts through the application's structured logger.
type LogTransport struct {
	Logger zerolog.Logger
}

// NewLogTransport creates a LogTransport writing under the "alert" component.
func NewLogTransport(logger zerolog.Logger) LogTransport {
	return LogTransport{Logger: logger.With().Str("component", "alert").Logger()}
}

// Send implements Transport.
func (t LogTransport) Send(a Alert) error {
	event := t.Logger.Info()
	if a.Severity == SeverityCritical {
		event = t.Logger.Error()
	} else if a.Severity == SeverityWarning {
		event = t.Logger.Warn()
	}
	event.
		Str("kind", string(a.Kind)).
		Int("pair_index", a.PairIndex).
		Time("timestamp", a.Timestamp).
		Msg(a.Message)
	return nil
}

// WebhookTransport posts alerts as JSON to an operator-configured HTTP
// endpoint. Nothing in the endpoint's response body is parsed; only the
// status code matters.
type WebhookTransport struct {
	URL        string
	HTTPClient *http.Client
}

// NewWebhookTransport creates a WebhookTransport with a bounded request timeout.
func NewWebhookTransport(url string) WebhookTransport {
	return WebhookTransport{
		URL:        url,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type webhookPayload struct {
	Kind      Kind      `json:"kind"`
	Severity  Severity  `json:"severity"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	PairIndex int       `json:"pair_index"`
}

// Send implements Transport.
func (t WebhookTransport) Send(a Alert) error {
	body, err := json.Marshal(webhookPayload{
		Kind:      a.Kind,
		Severity:  a.Severity,
		Message:   a.Message,
		Timestamp: a.Timestamp,
		PairIndex: a.PairIndex,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal alert payload: %w", err)
	}

	resp, err := t.HTTPClient.Post(t.URL, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to post alert to webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook responded with status %d", resp.StatusCode)
	}

	return nil
}
