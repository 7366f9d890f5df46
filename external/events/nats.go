package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/programmingdumpster/partybot/internal/events"
)

type natsConn interface {
	Publish(subject string, data []byte) error
}

// NATSPublisher publishes each event on "<prefix>.<event type>".
type NATSPublisher struct {
	conn   natsConn
	prefix string
}

func NewNATSPublisher(conn natsConn, prefix string) *NATSPublisher {
	return &NATSPublisher{conn: conn, prefix: strings.Trim(prefix, ".")}
}

func ConnectNATS(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name("partybot"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(500*time.Millisecond),
		nats.Timeout(3*time.Second),
	)
}

func (p *NATSPublisher) Subject(t events.Type) string {
	if p.prefix == "" {
		return string(t)
	}
	return p.prefix + "." + string(t)
}

func (p *NATSPublisher) Publish(_ context.Context, ev events.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if err := p.conn.Publish(p.Subject(ev.Type), data); err != nil {
		return fmt.Errorf("nats publish %s: %w", ev.Type, err)
	}
	return nil
}
