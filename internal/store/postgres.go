package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/brad-usredoxlabs/computable-lab-sub000/internal/domain"
)

// pgUniqueViolation — SQLSTATE конфликта уникальности.
const pgUniqueViolation = "23505"

const schema = `
CREATE TABLE IF NOT EXISTS cl_records (
    id         TEXT PRIMARY KEY,
    kind       TEXT NOT NULL,
    payload    JSONB NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS cl_records_kind_idx ON cl_records (kind, id);
`

// NewPool создаёт pgx pool по DB_URL.
func NewPool(ctx context.Context) (*pgxpool.Pool, error) {
	dsn := os.Getenv("DB_URL")
	if dsn == "" {
		dsn = "postgresql://cl:cl@localhost:55432/cl?sslmode=disable"
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.MaxConns = 10
	cfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("new pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return pool, nil
}

// Postgres — реализация Store поверх одной таблицы cl_records.
//
// Record store намеренно примитивен: документы по (id, kind), без
// cross-document транзакций и серверных счётчиков — ядро рассчитано
// именно на такой контракт.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres создаёт Postgres store и применяет схему.
func NewPostgres(ctx context.Context, pool *pgxpool.Pool) (*Postgres, error) {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// Get возвращает запись по id.
func (p *Postgres) Get(ctx context.Context, id string) (*Record, error) {
	query := `
		SELECT id, kind, payload, created_at, updated_at
		FROM cl_records
		WHERE id = $1
	`
	var rec Record
	err := p.pool.QueryRow(ctx, query, id).Scan(
		&rec.ID, &rec.Kind, &rec.Payload, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	return &rec, nil
}

// Create создаёт запись.
func (p *Postgres) Create(ctx context.Context, rec Record) error {
	query := `
		INSERT INTO cl_records (id, kind, payload)
		VALUES ($1, $2, $3)
	`
	_, err := p.pool.Exec(ctx, query, rec.ID, rec.Kind, rec.Payload)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrAlreadyExists
		}
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

// Update перезаписывает payload существующей записи.
func (p *Postgres) Update(ctx context.Context, rec Record) error {
	query := `
		UPDATE cl_records
		SET payload = $3, updated_at = now()
		WHERE id = $1 AND kind = $2
	`
	result, err := p.pool.Exec(ctx, query, rec.ID, rec.Kind, rec.Payload)
	if err != nil {
		return fmt.Errorf("update record: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// List возвращает записи kind в порядке id.
func (p *Postgres) List(ctx context.Context, kind domain.Kind, limit int) ([]Record, error) {
	query := `
		SELECT id, kind, payload, created_at, updated_at
		FROM cl_records
		WHERE kind = $1
		ORDER BY id ASC
	`
	args := []any{kind}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var recs []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.Kind, &rec.Payload, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}
