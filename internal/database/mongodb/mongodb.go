// Package mongodb implements the document-store driver on MongoDB. Server
// heartbeat events from the driver's topology monitor are translated into
// close/reconnect signals.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/JaimeStill/form-intake/internal/database"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/event"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type driver struct{}

// New returns the MongoDB driver.
func New() database.Driver {
	return driver{}
}

func (driver) Name() string {
	return database.DriverMongoDB
}

func (driver) Target(cfg *database.Config) (string, error) {
	if cfg.URI == "" {
		return "", fmt.Errorf("uri required")
	}
	if err := options.Client().ApplyURI(cfg.URI).Validate(); err != nil {
		return "", fmt.Errorf("invalid uri: %w", err)
	}
	return cfg.URI, nil
}

func (driver) Connect(ctx context.Context, target string, cfg *database.Config) (database.Conn, error) {
	c := &conn{servers: make(map[string]bool)}

	opts := options.Client().
		ApplyURI(target).
		SetConnectTimeout(cfg.ConnTimeoutDuration()).
		SetHeartbeatInterval(cfg.HeartbeatIntervalDuration()).
		SetServerMonitor(&event.ServerMonitor{
			ServerHeartbeatSucceeded: func(e *event.ServerHeartbeatSucceededEvent) {
				c.heartbeat(serverAddress(e.ConnectionID), nil)
			},
			ServerHeartbeatFailed: func(e *event.ServerHeartbeatFailedEvent) {
				c.heartbeat(serverAddress(e.ConnectionID), e.Failure)
			},
		})

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnTimeoutDuration())
	defer cancel()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping: %w", err)
	}

	c.client = client
	c.db = client.Database(cfg.Name)
	return c, nil
}

type conn struct {
	database.Health

	client *mongo.Client
	db     *mongo.Database

	mu      sync.Mutex
	servers map[string]bool
}

// serverAddress strips the "-N" monitor connection counter from a
// heartbeat connection ID so every heartbeat from one server lands on
// the same "host:port" key.
func serverAddress(connID string) string {
	i := strings.LastIndexByte(connID, '-')
	if i < 0 || i < strings.LastIndexByte(connID, ':') {
		return connID
	}
	if _, err := strconv.Atoi(connID[i+1:]); err != nil {
		return connID
	}
	return connID[:i]
}

// heartbeat records the outcome for one server. The connection is healthy
// while at least one known server answers.
func (c *conn) heartbeat(addr string, failure error) {
	c.mu.Lock()
	c.servers[addr] = failure == nil
	healthy := false
	for _, ok := range c.servers {
		if ok {
			healthy = true
			break
		}
	}
	c.mu.Unlock()

	if healthy {
		c.Report(nil)
		return
	}
	if failure == nil {
		failure = errors.New("no reachable servers")
	}
	c.Report(failure)
}

func (c *conn) Collection(ctx context.Context, name string) (database.Collection, error) {
	names, err := c.db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	if len(names) == 0 {
		return nil, database.ErrCollectionNotFound
	}
	return &collection{coll: c.db.Collection(name)}, nil
}

func (c *conn) Close(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}

type collection struct {
	coll *mongo.Collection
}

func (c *collection) Find(ctx context.Context, q database.Query) ([]database.Document, error) {
	cursor, err := c.coll.Find(ctx, filter(q))
	if err != nil {
		return nil, fmt.Errorf("find: %w", err)
	}

	var raw []bson.M
	if err := cursor.All(ctx, &raw); err != nil {
		return nil, fmt.Errorf("read cursor: %w", err)
	}

	docs := make([]database.Document, 0, len(raw))
	for _, m := range raw {
		docs = append(docs, document(m))
	}
	return docs, nil
}

func (c *collection) InsertOne(ctx context.Context, doc database.Document) (string, error) {
	res, err := c.coll.InsertOne(ctx, bson.M(doc))
	if err != nil {
		return "", fmt.Errorf("insert: %w", err)
	}
	return idString(res.InsertedID), nil
}

func filter(q database.Query) bson.M {
	f := bson.M{}
	for k, v := range q {
		if k != database.IDField {
			f[k] = v
			continue
		}
		if s, ok := v.(string); ok {
			if oid, err := primitive.ObjectIDFromHex(s); err == nil {
				f["_id"] = oid
				continue
			}
		}
		f["_id"] = v
	}
	return f
}

func document(m bson.M) database.Document {
	doc := make(database.Document, len(m))
	for k, v := range m {
		if k == "_id" {
			doc[database.IDField] = idString(v)
			continue
		}
		doc[k] = v
	}
	return doc
}

func idString(v any) string {
	switch id := v.(type) {
	case primitive.ObjectID:
		return id.Hex()
	case string:
		return id
	default:
		return fmt.Sprint(id)
	}
}
