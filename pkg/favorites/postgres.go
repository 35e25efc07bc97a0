package favorites

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

// PostgresStore keeps favorites in the favorites table, one JSON array of
// car ids per client
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps an open pool; the schema comes from database.Migrate
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) List(ctx context.Context, client string) ([]string, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT car_ids FROM favorites WHERE client_id = $1`, client,
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load favorites: %w", err)
	}
	return decodeIDs(raw)
}

// Toggle locks the client row for the read-modify-write so concurrent
// toggles from the same client serialize
func (s *PostgresStore) Toggle(ctx context.Context, client, carID string) (bool, error) {
	client, carID, err := validate(client, carID)
	if err != nil {
		return false, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO favorites (client_id, car_ids) VALUES ($1, '[]'::jsonb)
		 ON CONFLICT (client_id) DO NOTHING`, client,
	); err != nil {
		return false, fmt.Errorf("failed to create favorites row: %w", err)
	}

	var raw []byte
	if err := tx.QueryRow(ctx,
		`SELECT car_ids FROM favorites WHERE client_id = $1 FOR UPDATE`, client,
	).Scan(&raw); err != nil {
		return false, fmt.Errorf("failed to lock favorites: %w", err)
	}

	ids, err := decodeIDs(raw)
	if err != nil {
		return false, err
	}
	ids, added := toggle(ids, carID)

	encoded, err := json.Marshal(ids)
	if err != nil {
		return false, fmt.Errorf("failed to encode favorites: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`UPDATE favorites SET car_ids = $2::jsonb, updated_at = now() WHERE client_id = $1`,
		client, string(encoded),
	); err != nil {
		return false, fmt.Errorf("failed to save favorites: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit favorites: %w", err)
	}

	log.WithFields(log.Fields{
		"client": client,
		"car_id": carID,
		"added":  added,
		"count":  len(ids),
	}).Debug("Toggled favorite")
	return added, nil
}

func (s *PostgresStore) Contains(ctx context.Context, client, carID string) (bool, error) {
	ids, err := s.List(ctx, client)
	if err != nil {
		return false, err
	}
	for _, id := range ids {
		if id == carID {
			return true, nil
		}
	}
	return false, nil
}

func decodeIDs(raw []byte) ([]string, error) {
	ids := []string{}
	if len(raw) == 0 {
		return ids, nil
	}
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, fmt.Errorf("corrupt favorites row: %w", err)
	}
	return ids, nil
}
