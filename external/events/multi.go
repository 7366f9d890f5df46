package events

import (
	"context"
	"errors"

	"github.com/programmingdumpster/partybot/internal/events"
)

// Multi sends every event to all publishers and joins their errors.
type Multi []events.Publisher

func (m Multi) Publish(ctx context.Context, ev events.Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
