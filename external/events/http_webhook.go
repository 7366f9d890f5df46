package events

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/programmingdumpster/partybot/internal/events"
)

const (
	webhookTimeout = 10 * time.Second

	eventTypeHeader = "X-Partybot-Event"
	partyIDHeader   = "X-Partybot-Party"
)

// HTTPPublisher posts every party event as JSON to a single endpoint. The
// event type and party id are repeated in headers so receivers can route
// without decoding the body.
type HTTPPublisher struct {
	endpoint string
	client   *http.Client
}

func NewHTTPPublisher(endpoint string) events.Publisher {
	return &HTTPPublisher{
		endpoint: endpoint,
		client:   &http.Client{Timeout: webhookTimeout},
	}
}

func (p *HTTPPublisher) Publish(ctx context.Context, ev events.Event) error {
	if p.endpoint == "" {
		return nil
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", ev.Type, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s webhook request: %w", ev.Type, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(eventTypeHeader, string(ev.Type))
	req.Header.Set(partyIDHeader, ev.PartyID)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("post %s event for party %s: %w", ev.Type, ev.PartyID, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("event webhook rejected %s for party %s: status %d", ev.Type, ev.PartyID, resp.StatusCode)
	}
	return nil
}
