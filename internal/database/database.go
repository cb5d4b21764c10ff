// Package database owns the process-wide document-store connection. A
// Manager installs a single Conn produced by a Driver, watches it for
// close/reconnect signals, and discards it when a reconnect does not arrive
// within the configured window.
package database

import (
	"context"
	"errors"
	"maps"
)

// IDField is the document key that carries the store-assigned identifier.
const IDField = "id"

// ErrCollectionNotFound is returned by Conn.Collection when the named
// collection cannot be resolved.
var ErrCollectionNotFound = errors.New("database: collection not found")

// Document is a schemaless record stored in a collection.
type Document map[string]any

// Clone returns a shallow copy of d.
func (d Document) Clone() Document {
	if d == nil {
		return Document{}
	}
	return maps.Clone(d)
}

// ID returns the identifier stored under IDField, if any.
func (d Document) ID() string {
	id, _ := d[IDField].(string)
	return id
}

// Query holds equality filters. A filter on IDField matches the native
// document identifier.
type Query map[string]any

// Signal is a connection lifecycle event emitted by a Conn.
type Signal int

const (
	// SignalClosed reports that the underlying connection was lost.
	SignalClosed Signal = iota + 1

	// SignalReconnected reports that a lost connection was re-established.
	SignalReconnected
)

func (s Signal) String() string {
	switch s {
	case SignalClosed:
		return "closed"
	case SignalReconnected:
		return "reconnected"
	default:
		return "unknown"
	}
}

// Collection performs reads and writes against one named collection.
type Collection interface {
	// Find returns every document matching q, fully materialized.
	Find(ctx context.Context, q Query) ([]Document, error)

	// InsertOne stores doc and returns the identifier assigned to it.
	InsertOne(ctx context.Context, doc Document) (string, error)
}

// Conn is a live document-store connection handle.
type Conn interface {
	// Collection resolves a named collection. It returns
	// ErrCollectionNotFound when the name cannot be resolved.
	Collection(ctx context.Context, name string) (Collection, error)

	// Observe registers fn for lifecycle signals and returns a function
	// that detaches it. Implementations never invoke fn from within Observe.
	Observe(fn func(Signal)) (detach func())

	// Close releases the connection.
	Close(ctx context.Context) error
}

// Driver builds connection targets and opens connections for one backend.
type Driver interface {
	// Name identifies the driver in logs.
	Name() string

	// Target builds the connection target (URI, DSN, project) from cfg.
	Target(cfg *Config) (string, error)

	// Connect opens a connection to target.
	Connect(ctx context.Context, target string, cfg *Config) (Conn, error)
}
