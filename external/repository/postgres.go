package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/programmingdumpster/partybot/internal/repository"
)

const snapshotRowID = 1

type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) repository.PartyRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) LoadParties(ctx context.Context) (map[string]repository.Party, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT payload FROM party_snapshots WHERE id = $1`,
		snapshotRowID)
	var payload []byte
	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNoSnapshot
		}
		return nil, err
	}
	parties := make(map[string]repository.Party)
	if err := json.Unmarshal(payload, &parties); err != nil {
		return nil, fmt.Errorf("decode party snapshot: %w", err)
	}
	return parties, nil
}

func (r *PostgresRepository) SaveParties(ctx context.Context, parties map[string]repository.Party) error {
	if parties == nil {
		parties = map[string]repository.Party{}
	}
	payload, err := json.Marshal(parties)
	if err != nil {
		return fmt.Errorf("encode party snapshot: %w", err)
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO party_snapshots (id, payload, saved_at)
		 VALUES ($1, $2, NOW())
		 ON CONFLICT (id) DO UPDATE SET payload = EXCLUDED.payload, saved_at = EXCLUDED.saved_at`,
		snapshotRowID, payload)
	return err
}
