// Package firestore implements the document-store driver on Cloud Firestore.
// Firestore collections exist implicitly, so resolution is governed by the
// configured collection allow-list. Connection health is checked by a periodic ping.
package firestore

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"

	"cloud.google.com/go/firestore"
	"github.com/JaimeStill/form-intake/internal/database"
	"google.golang.org/api/iterator"
)

type driver struct{}

// New returns the Firestore driver.
func New() database.Driver {
	return driver{}
}

func (driver) Name() string {
	return database.DriverFirestore
}

func (driver) Target(cfg *database.Config) (string, error) {
	if cfg.ProjectID == "" {
		return "", fmt.Errorf("project_id required")
	}
	return cfg.ProjectID, nil
}

func (driver) Connect(ctx context.Context, target string, cfg *database.Config) (database.Conn, error) {
	databaseID := cfg.DatabaseID
	if databaseID == "" {
		databaseID = firestore.DefaultDatabaseID
	}

	client, err := firestore.NewClientWithDatabase(context.WithoutCancel(ctx), target, databaseID)
	if err != nil {
		return nil, fmt.Errorf("create firestore client: %w", err)
	}

	c := &conn{
		client:  client,
		allowed: cfg.Collections,
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnTimeoutDuration())
	defer cancel()

	if err := c.ping(pingCtx); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	c.pinger = database.NewPinger(&c.Health, c.ping, cfg.HeartbeatIntervalDuration(), cfg.ConnTimeoutDuration())
	c.pinger.Start()
	return c, nil
}

type conn struct {
	database.Health

	client  *firestore.Client
	allowed []string
	pinger  *database.Pinger
}

func (c *conn) ping(ctx context.Context) error {
	_, err := c.client.Collections(ctx).Next()
	if err != nil && !errors.Is(err, iterator.Done) {
		return err
	}
	return nil
}

func (c *conn) Collection(ctx context.Context, name string) (database.Collection, error) {
	if len(c.allowed) > 0 && !slices.Contains(c.allowed, name) {
		return nil, database.ErrCollectionNotFound
	}

	ref := c.client.Collection(name)
	if ref == nil {
		return nil, database.ErrCollectionNotFound
	}
	return &collection{ref: ref}, nil
}

func (c *conn) Close(ctx context.Context) error {
	c.pinger.Stop()
	return c.client.Close()
}

type collection struct {
	ref *firestore.CollectionRef
}

func (c *collection) Find(ctx context.Context, q database.Query) ([]database.Document, error) {
	query := c.ref.Query

	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		v := q[k]
		if k != database.IDField {
			query = query.Where(k, "==", v)
			continue
		}

		id, ok := v.(string)
		if !ok {
			return []database.Document{}, nil
		}
		doc := c.ref.Doc(id)
		if doc == nil {
			return []database.Document{}, nil
		}
		query = query.Where(firestore.DocumentID, "==", doc)
	}

	snaps, err := query.Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}

	docs := make([]database.Document, 0, len(snaps))
	for _, snap := range snaps {
		doc := database.Document(snap.Data())
		doc[database.IDField] = snap.Ref.ID
		docs = append(docs, doc)
	}
	return docs, nil
}

func (c *collection) InsertOne(ctx context.Context, doc database.Document) (string, error) {
	ref, _, err := c.ref.Add(ctx, map[string]any(doc))
	if err != nil {
		return "", fmt.Errorf("add document: %w", err)
	}
	return ref.ID, nil
}
