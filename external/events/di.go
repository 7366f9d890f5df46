package events

import (
	"fmt"
	"log/slog"

	"github.com/programmingdumpster/partybot/internal/config"
	"github.com/programmingdumpster/partybot/internal/events"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (events.Publisher, error) {
		c := do.MustInvoke[*config.Config](i)
		var publishers Multi
		if c.EventWebhookURL != "" {
			publishers = append(publishers, NewHTTPPublisher(c.EventWebhookURL))
		}
		if c.NATSURL != "" {
			nc, err := ConnectNATS(c.NATSURL)
			if err != nil {
				return nil, fmt.Errorf("failed to connect nats: %w", err)
			}
			slog.Info("nats connected for party events", "subject_prefix", c.NATSSubjectPrefix)
			publishers = append(publishers, NewNATSPublisher(nc, c.NATSSubjectPrefix))
		}
		if len(publishers) == 0 {
			return events.Nop{}, nil
		}
		return publishers, nil
	})
}
