package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"JobCopilot/internal/ports"
)

const defaultTable = "kv_store"

// Executor is the subset of *pgxpool.Pool the store needs.
type Executor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore persists values as jsonb rows keyed by (namespace, key).
type PostgresStore struct {
	db        Executor
	namespace string
	table     string // quoted identifier
	psql      sq.StatementBuilderType
}

var _ ports.Store = (*PostgresStore)(nil)

// NewPostgresStore wires an executor. An empty table name uses kv_store.
// A dotted name such as "jobs.kv_store" is treated as schema-qualified.
func NewPostgresStore(db Executor, namespace, table string) *PostgresStore {
	if table == "" {
		table = defaultTable
	}
	return &PostgresStore{
		db:        db,
		namespace: namespace,
		table:     pgx.Identifier(strings.Split(table, ".")).Sanitize(),
		psql:      sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// NewPostgresPool creates and verifies a pgxpool connection pool.
func NewPostgresPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}

	return pool, nil
}

// EnsureSchema creates the backing table when it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		namespace  TEXT NOT NULL,
		key        TEXT NOT NULL,
		value      JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (namespace, key)
	)`, s.table)

	if _, err := s.db.Exec(ctx, query); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Get reads one value. A missing row is not an error.
func (s *PostgresStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	query, args, err := s.selectQuery(key)
	if err != nil {
		return nil, false, fmt.Errorf("build select: %w", err)
	}

	var value []byte
	if err := s.db.QueryRow(ctx, query, args...).Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("select %s: %w", key, err)
	}
	return value, true, nil
}

// Set upserts one value.
func (s *PostgresStore) Set(ctx context.Context, key string, value []byte) error {
	query, args, err := s.upsertQuery(key, value)
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}

	if _, err := s.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert %s: %w", key, err)
	}
	return nil
}

// Clear deletes every row in the namespace.
func (s *PostgresStore) Clear(ctx context.Context) error {
	query, args, err := s.psql.Delete(s.table).Where(sq.Eq{"namespace": s.namespace}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	if _, err := s.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("delete namespace: %w", err)
	}
	return nil
}

func (s *PostgresStore) selectQuery(key string) (string, []any, error) {
	return s.psql.Select("value").
		From(s.table).
		Where(sq.And{sq.Eq{"namespace": s.namespace}, sq.Eq{"key": key}}).
		Limit(1).
		ToSql()
}

func (s *PostgresStore) upsertQuery(key string, value []byte) (string, []any, error) {
	return s.psql.Insert(s.table).
		Columns("namespace", "key", "value", "updated_at").
		Values(s.namespace, key, string(value), sq.Expr("NOW()")).
		Suffix("ON CONFLICT (namespace, key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at").
		ToSql()
}
