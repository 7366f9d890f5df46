package repository

import (
	"context"
	"errors"
)

// ErrNoSnapshot means nothing was ever saved. It is not a corruption.
var ErrNoSnapshot = errors.New("no party snapshot stored")

// PartyRepository stores the whole set of active parties as one snapshot keyed
// by party id. SaveParties must replace the previous snapshot atomically.
type PartyRepository interface {
	LoadParties(ctx context.Context) (map[string]Party, error)
	SaveParties(ctx context.Context, parties map[string]Party) error
}
