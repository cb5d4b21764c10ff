// Package postgres implements the document-store driver on PostgreSQL.
// Each collection is a table of the form:
//
//	CREATE TABLE forms (id text PRIMARY KEY, doc jsonb NOT NULL);
//
// Equality queries use jsonb containment on doc. Tables are provisioned
// outside this service.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/JaimeStill/form-intake/internal/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type driver struct{}

// New returns the PostgreSQL driver.
func New() database.Driver {
	return driver{}
}

func (driver) Name() string {
	return database.DriverPostgres
}

func (driver) Target(cfg *database.Config) (string, error) {
	dsn := cfg.Dsn()
	if _, err := pgxpool.ParseConfig(dsn); err != nil {
		return "", fmt.Errorf("invalid dsn: %w", err)
	}
	return dsn, nil
}

func (driver) Connect(ctx context.Context, target string, cfg *database.Config) (database.Conn, error) {
	poolCfg, err := pgxpool.ParseConfig(target)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	poolCfg.ConnConfig.ConnectTimeout = cfg.ConnTimeoutDuration()

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnTimeoutDuration())
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	c := &conn{pool: pool, schema: cfg.Schema}
	c.pinger = database.NewPinger(&c.Health, pool.Ping, cfg.HeartbeatIntervalDuration(), cfg.ConnTimeoutDuration())
	c.pinger.Start()
	return c, nil
}

type conn struct {
	database.Health

	pool   *pgxpool.Pool
	schema string
	pinger *database.Pinger
}

func (c *conn) Collection(ctx context.Context, name string) (database.Collection, error) {
	table := pgx.Identifier{c.schema, name}.Sanitize()

	var resolved *string
	if err := c.pool.QueryRow(ctx, "SELECT to_regclass($1)::text", table).Scan(&resolved); err != nil {
		return nil, fmt.Errorf("resolve table: %w", err)
	}
	if resolved == nil {
		return nil, database.ErrCollectionNotFound
	}
	return &collection{pool: c.pool, table: table}, nil
}

func (c *conn) Close(ctx context.Context) error {
	c.pinger.Stop()
	c.pool.Close()
	return nil
}

type collection struct {
	pool  *pgxpool.Pool
	table string
}

func (c *collection) Find(ctx context.Context, q database.Query) ([]database.Document, error) {
	sql, args, err := selectStatement(c.table, q)
	if err != nil {
		return nil, err
	}

	rows, err := c.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}

	docs, err := pgx.CollectRows(rows, scanDocument)
	if err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	return docs, nil
}

func (c *collection) InsertOne(ctx context.Context, doc database.Document) (string, error) {
	payload, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("encode document: %w", err)
	}

	id := uuid.NewString()
	if _, err := c.pool.Exec(ctx, newBuilder(c.table).buildInsert(), id, string(payload)); err != nil {
		return "", fmt.Errorf("insert: %w", err)
	}
	return id, nil
}

func selectStatement(table string, q database.Query) (string, []any, error) {
	b := newBuilder(table)

	contains := make(map[string]any, len(q))
	for k, v := range q {
		if k == database.IDField {
			b.whereID(v)
			continue
		}
		contains[k] = v
	}

	if _, err := b.whereContains(contains); err != nil {
		return "", nil, err
	}

	sql, args := b.buildSelect()
	return sql, args, nil
}

func scanDocument(row pgx.CollectableRow) (database.Document, error) {
	var (
		id  string
		doc database.Document
	)
	if err := row.Scan(&id, &doc); err != nil {
		return nil, err
	}
	if doc == nil {
		doc = database.Document{}
	}
	doc[database.IDField] = id
	return doc, nil
}
