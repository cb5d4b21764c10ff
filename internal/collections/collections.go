// Package collections provides read and write access to named document
// collections on the shared database connection.
package collections

import (
	"context"

	"github.com/JaimeStill/form-intake/internal/database"
	"github.com/JaimeStill/form-intake/internal/fault"
)

// Resolver resolves a named collection on the current connection.
// database.Manager satisfies it.
type Resolver interface {
	Collection(ctx context.Context, name string) (database.Collection, error)
}

// Accessor reads and writes documents through a Resolver.
type Accessor struct {
	resolver Resolver
}

// New creates an Accessor backed by resolver.
func New(resolver Resolver) *Accessor {
	return &Accessor{resolver: resolver}
}

// Find returns every document in the named collection matching q.
// Resolution errors are returned unchanged. The result is never nil.
func (a *Accessor) Find(ctx context.Context, name string, q database.Query) ([]database.Document, error) {
	coll, err := a.resolver.Collection(ctx, name)
	if err != nil {
		return nil, err
	}

	docs, err := coll.Find(ctx, q)
	if err != nil {
		return nil, fault.DB(err)
	}
	if docs == nil {
		docs = []database.Document{}
	}
	return docs, nil
}

// Save inserts a copy of doc into the named collection and returns a new
// document carrying the assigned identifier. doc is never mutated.
func (a *Accessor) Save(ctx context.Context, name string, doc database.Document) (database.Document, error) {
	coll, err := a.resolver.Collection(ctx, name)
	if err != nil {
		return nil, err
	}

	record := doc.Clone()
	delete(record, database.IDField)

	id, err := coll.InsertOne(ctx, record.Clone())
	if err != nil {
		return nil, fault.DB(err)
	}

	record[database.IDField] = id
	return record, nil
}
