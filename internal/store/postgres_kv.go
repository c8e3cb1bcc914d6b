package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgresKV keeps catalogue entries in the saved_forms table.
type PostgresKV struct {
	db *sql.DB
}

func NewPostgresKV(db *sql.DB) *PostgresKV {
	return &PostgresKV{db: db}
}

func (s *PostgresKV) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM saved_forms WHERE key=$1`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("select saved form %s: %w", key, err)
	}
	return value, true, nil
}

func (s *PostgresKV) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO saved_forms(key, value, updated_at) VALUES($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value=EXCLUDED.value, updated_at=NOW()
	`, key, value)
	if err != nil {
		var pgErr *pgconn.PgError
		// 53100 disk_full, 54000 program_limit_exceeded
		if errors.As(err, &pgErr) && (pgErr.Code == "53100" || pgErr.Code == "54000") {
			return fmt.Errorf("%w: %v", ErrQuotaExceeded, err)
		}
		return fmt.Errorf("upsert saved form %s: %w", key, err)
	}
	return nil
}

func (s *PostgresKV) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM saved_forms WHERE key=$1`, key); err != nil {
		return fmt.Errorf("delete saved form %s: %w", key, err)
	}
	return nil
}

func (s *PostgresKV) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key FROM saved_forms ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("list saved forms: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan saved form key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// Ping checks database connectivity.
func (s *PostgresKV) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
