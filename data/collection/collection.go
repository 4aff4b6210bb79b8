// Package collection provides the document store used by the asset, progress
// and lazy asset services. Filters and updates are expressed as bson.M so the
// same calls run against MongoDB and the in-memory implementation.
package collection

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	// ErrNotFound is returned by FindOne when no document matches.
	ErrNotFound = errors.New("document not found")
	// ErrDuplicate is returned when an insert collides with an existing _id or unique key.
	ErrDuplicate = errors.New("duplicate document")
)

// Collection is a named set of documents.
//
// Supported filter operators are plain equality (including dotted paths),
// $exists and $ne. Supported update operators are $set, $unset, $inc and
// $setOnInsert.
type Collection interface {
	// FindOne decodes the first matching document into out.
	FindOne(ctx context.Context, filter bson.M, out any) error
	// InsertOne stores doc, which must carry its own _id.
	InsertOne(ctx context.Context, doc any) error
	// UpdateOne applies update to the first match and reports how many
	// documents were matched or upserted. The check and the write are atomic.
	UpdateOne(ctx context.Context, filter, update bson.M, upsert bool) (int64, error)
	// DeleteOne removes the first match and reports how many documents were removed.
	DeleteOne(ctx context.Context, filter bson.M) (int64, error)
	// EnsureIndex creates an ascending index on field.
	EnsureIndex(ctx context.Context, field string, unique bool) error
}

// NewID returns a new document id.
func NewID() string {
	return primitive.NewObjectID().Hex()
}

// ByID is the filter selecting a document by id.
func ByID(id string) bson.M {
	return bson.M{"_id": id}
}
