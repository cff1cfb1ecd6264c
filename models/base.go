package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Base holds the fields every persisted entity shares.
// ObjectID is the storage-native key; ID is its portable string form and is
// never written to the store.
type Base struct {
	ObjectID  primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	ID        string             `bson:"-" json:"id"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Meta gives repositories access to the shared fields of any entity.
func (b *Base) Meta() *Base {
	return b
}

// Normalize copies the native identifier into the portable ID field.
func (b *Base) Normalize() {
	if !b.ObjectID.IsZero() {
		b.ID = b.ObjectID.Hex()
	}
}

// Document is implemented by every entity through the embedded Base.
type Document interface {
	Meta() *Base
}
