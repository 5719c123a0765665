// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package store persists properties in PostgreSQL and manages the schema
// they live in.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"

	"github.com/DjCaptainPlus/WarpBook/internal/property"
)

// poolIface is the subset of pgxpool.Pool the store uses. pgxmock pools
// satisfy it in unit tests.
type poolIface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// ConnectAttempts bounds how many times Open pings a database that is not
// yet accepting connections.
const ConnectAttempts = 5

// PostgresStore implements property.Store on a properties table.
type PostgresStore struct {
	pool poolIface
}

var (
	_ property.Store       = (*PostgresStore)(nil)
	_ property.ScopeLister = (*PostgresStore)(nil)
)

// Open connects to dsn, retrying the first ping with exponential backoff.
// The schema must already be migrated.
func Open(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, oops.Code("STORE_OPEN_FAILED").With("operation", "create pool").Wrap(err)
	}
	s := NewPostgresStore(pool)
	if err := s.ping(ctx, 200*time.Millisecond); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgresStore wraps an existing pool.
func NewPostgresStore(pool poolIface) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) ping(ctx context.Context, base time.Duration) error {
	backoff := retry.WithMaxRetries(ConnectAttempts-1, retry.NewExponential(base))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := s.pool.Ping(ctx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return oops.Code("STORE_OPEN_FAILED").With("operation", "ping").With("attempts", ConnectAttempts).Wrap(err)
	}
	return nil
}

// Close releases the pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// classify attaches STORE_NOT_MIGRATED when the table is missing, and code
// otherwise.
func classify(err error, code string) oops.OopsErrorBuilder {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UndefinedTable {
		return oops.Code("STORE_NOT_MIGRATED").Hint("run `warpbook migrate up`")
	}
	return oops.Code(code)
}

// Get implements property.Store.
func (s *PostgresStore) Get(ctx context.Context, scope property.Scope, key string) (property.Value, error) {
	var (
		kind    int16
		payload string
	)
	err := s.pool.QueryRow(ctx,
		`SELECT kind, payload FROM properties WHERE scope = $1 AND key = $2`,
		scope.String(), key).Scan(&kind, &payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return property.Absent, nil
	}
	if err != nil {
		return property.Absent, classify(err, "STORE_GET_FAILED").With("scope", scope.String()).With("key", key).Wrap(err)
	}
	v, err := property.Decode(property.Kind(kind), payload)
	if err != nil {
		return property.Absent, oops.With("scope", scope.String()).With("key", key).Wrap(err)
	}
	return v, nil
}

// Set implements property.Store. Setting Absent deletes the row.
func (s *PostgresStore) Set(ctx context.Context, scope property.Scope, key string, value property.Value) error {
	var err error
	if value.IsAbsent() {
		_, err = s.pool.Exec(ctx,
			`DELETE FROM properties WHERE scope = $1 AND key = $2`,
			scope.String(), key)
	} else {
		_, err = s.pool.Exec(ctx,
			`INSERT INTO properties (scope, key, kind, payload)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (scope, key) DO UPDATE
			 SET kind = EXCLUDED.kind, payload = EXCLUDED.payload, updated_at = now()`,
			scope.String(), key, int16(value.Kind()), value.Encode())
	}
	if err != nil {
		return classify(err, "STORE_SET_FAILED").With("scope", scope.String()).With("key", key).Wrap(err)
	}
	return nil
}

// ListKeys implements property.Store. Keys enumerate in byte order.
func (s *PostgresStore) ListKeys(ctx context.Context, scope property.Scope, prefix string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT key FROM properties WHERE scope = $1 AND starts_with(key, $2) ORDER BY key`,
		scope.String(), prefix)
	if err != nil {
		return nil, classify(err, "STORE_LIST_FAILED").With("scope", scope.String()).With("prefix", prefix).Wrap(err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, oops.Code("STORE_LIST_FAILED").With("scope", scope.String()).Wrap(err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("STORE_LIST_FAILED").With("scope", scope.String()).Wrap(err)
	}
	return keys, nil
}

// Scopes implements property.ScopeLister. Rows with a scope name that does
// not parse are ignored.
func (s *PostgresStore) Scopes(ctx context.Context) ([]property.Scope, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT scope FROM properties WHERE scope <> 'world' ORDER BY scope`)
	if err != nil {
		return nil, classify(err, "STORE_LIST_FAILED").With("operation", "list scopes").Wrap(err)
	}
	defer rows.Close()

	var scopes []property.Scope
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, oops.Code("STORE_LIST_FAILED").With("operation", "scan scope").Wrap(err)
		}
		if scope, ok := property.ParseScope(name); ok {
			scopes = append(scopes, scope)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("STORE_LIST_FAILED").With("operation", "list scopes").Wrap(err)
	}
	return scopes, nil
}
