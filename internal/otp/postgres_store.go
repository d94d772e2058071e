package otp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type postgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore constructs a Postgres-backed challenge store. Expects the
// otp_challenges table from the migrations directory.
func NewPostgresStore(db *pgxpool.Pool) Store {
	return &postgresStore{db: db}
}

func (s *postgresStore) Save(ctx context.Context, ch Challenge) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`UPDATE otp_challenges SET superseded = TRUE WHERE phone = $1 AND NOT consumed AND NOT superseded`,
		ch.Phone); err != nil {
		return fmt.Errorf("supersede prior challenges: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO otp_challenges (correlation_id, phone, code_hash, issued_at, expires_at, consumed, superseded, attempts)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		ch.CorrelationID, ch.Phone, ch.CodeHash, ch.IssuedAt.UTC(), ch.ExpiresAt.UTC(),
		ch.Consumed, ch.Superseded, ch.Attempts); err != nil {
		return fmt.Errorf("insert challenge: %w", err)
	}

	return tx.Commit(ctx)
}

func (s *postgresStore) Find(ctx context.Context, correlationID string) (Challenge, error) {
	row := s.db.QueryRow(ctx,
		`SELECT correlation_id, phone, code_hash, issued_at, expires_at, consumed, superseded, attempts
		 FROM otp_challenges WHERE correlation_id = $1`, correlationID)

	var ch Challenge
	err := row.Scan(&ch.CorrelationID, &ch.Phone, &ch.CodeHash, &ch.IssuedAt, &ch.ExpiresAt,
		&ch.Consumed, &ch.Superseded, &ch.Attempts)
	if errors.Is(err, pgx.ErrNoRows) {
		return Challenge{}, ErrChallengeNotFound
	}
	if err != nil {
		return Challenge{}, fmt.Errorf("fetch challenge: %w", err)
	}
	ch.IssuedAt = ch.IssuedAt.UTC()
	ch.ExpiresAt = ch.ExpiresAt.UTC()
	return ch, nil
}

func (s *postgresStore) Update(ctx context.Context, ch Challenge) error {
	cmd, err := s.db.Exec(ctx,
		`UPDATE otp_challenges SET consumed = $2, superseded = $3, attempts = $4 WHERE correlation_id = $1`,
		ch.CorrelationID, ch.Consumed, ch.Superseded, ch.Attempts)
	if err != nil {
		return fmt.Errorf("update challenge: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrChallengeNotFound
	}
	return nil
}

func (s *postgresStore) PurgeExpired(ctx context.Context, cutoff time.Time) (int, error) {
	cmd, err := s.db.Exec(ctx, `DELETE FROM otp_challenges WHERE expires_at < $1`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("purge challenges: %w", err)
	}
	return int(cmd.RowsAffected()), nil
}
