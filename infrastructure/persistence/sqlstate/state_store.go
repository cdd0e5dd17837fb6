// Package sqlstate keeps the persistence space in a SQL table, either in
// Postgres (lib/pq) or in a local SQLite file (modernc.org/sqlite).
package sqlstate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/rankboard/portalgate/application/port/outbound"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

const stateSchema = `
CREATE TABLE IF NOT EXISTS app_state (
	namespace   TEXT NOT NULL,
	state_key   TEXT NOT NULL,
	state_value TEXT NOT NULL,
	updated_at  BIGINT NOT NULL,
	PRIMARY KEY (namespace, state_key)
)`

type StateStore struct {
	db        *sql.DB
	dialect   string
	namespace string
	ownDB     bool
}

// Open connects with the driver registered for dialect, creates the table
// when missing and returns a store that owns the connection pool.
func Open(ctx context.Context, dialect, dsn, namespace string) (*StateStore, error) {
	if dialect != DialectPostgres && dialect != DialectSQLite {
		return nil, fmt.Errorf("unsupported sql dialect: %s", dialect)
	}

	db, err := sql.Open(dialect, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dialect == DialectSQLite {
		// one writer; avoids SQLITE_BUSY between pooled connections
		db.SetMaxOpenConns(1)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store, err := NewStateStore(ctx, db, dialect, namespace)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	store.ownDB = true
	return store, nil
}

// NewStateStore uses an existing pool and ensures the schema exists.
func NewStateStore(ctx context.Context, db *sql.DB, dialect, namespace string) (*StateStore, error) {
	s := &StateStore{db: db, dialect: dialect, namespace: namespace}
	if _, err := db.ExecContext(ctx, stateSchema); err != nil {
		return nil, fmt.Errorf("failed to migrate app_state: %w", err)
	}
	return s, nil
}

func (s *StateStore) Get(ctx context.Context, key string) (string, error) {
	query := s.rebind(`
		SELECT state_value
		FROM app_state
		WHERE namespace = ? AND state_key = ?
	`)

	var value string
	err := s.db.QueryRowContext(ctx, query, s.namespace, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", outbound.ErrStateNotFound
		}
		return "", fmt.Errorf("failed to get state %q: %w", key, err)
	}
	return value, nil
}

func (s *StateStore) Set(ctx context.Context, key, value string) error {
	query := s.rebind(`
		INSERT INTO app_state (namespace, state_key, state_value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (namespace, state_key)
		DO UPDATE SET state_value = excluded.state_value, updated_at = excluded.updated_at
	`)

	if _, err := s.db.ExecContext(ctx, query, s.namespace, key, value, time.Now().Unix()); err != nil {
		return fmt.Errorf("failed to set state %q: %w", key, err)
	}
	return nil
}

func (s *StateStore) Clear(ctx context.Context) error {
	query := s.rebind(`DELETE FROM app_state WHERE namespace = ?`)

	if _, err := s.db.ExecContext(ctx, query, s.namespace); err != nil {
		return fmt.Errorf("failed to clear state: %w", err)
	}
	return nil
}

func (s *StateStore) Keys(ctx context.Context) ([]string, error) {
	query := s.rebind(`
		SELECT state_key
		FROM app_state
		WHERE namespace = ?
		ORDER BY state_key
	`)

	rows, err := s.db.QueryContext(ctx, query, s.namespace)
	if err != nil {
		return nil, fmt.Errorf("failed to list state keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("failed to scan state key: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate state keys: %w", err)
	}
	return keys, nil
}

func (s *StateStore) Close() error {
	if s.ownDB {
		return s.db.Close()
	}
	return nil
}

// rebind rewrites ? placeholders to $n for Postgres.
func (s *StateStore) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
