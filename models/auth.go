package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Account, Session и VerificationToken принадлежат внешнему провайдеру
// аутентификации; ядро только хранит их и удаляет просроченные.

type Account struct {
	Base `bson:",inline"`

	UserID            primitive.ObjectID `bson:"userId" json:"userId" validate:"required"`
	Type              string             `bson:"type" json:"type" validate:"required"`
	Provider          string             `bson:"provider" json:"provider" validate:"required"`
	ProviderAccountID string             `bson:"providerAccountId" json:"providerAccountId" validate:"required"`
	RefreshToken      *string            `bson:"refresh_token,omitempty" json:"-"`
	AccessToken       *string            `bson:"access_token,omitempty" json:"-"`
	ExpiresAt         *int64             `bson:"expires_at,omitempty" json:"expiresAt,omitempty"`
	TokenType         *string            `bson:"token_type,omitempty" json:"tokenType,omitempty"`
	Scope             *string            `bson:"scope,omitempty" json:"scope,omitempty"`
	IDToken           *string            `bson:"id_token,omitempty" json:"-"`
	SessionState      *string            `bson:"session_state,omitempty" json:"-"`
}

type Session struct {
	Base `bson:",inline"`

	SessionToken string             `bson:"sessionToken" json:"-" validate:"required"`
	UserID       primitive.ObjectID `bson:"userId" json:"userId" validate:"required"`
	Expires      time.Time          `bson:"expires" json:"expires" validate:"required"`
}

type VerificationToken struct {
	Base `bson:",inline"`

	Identifier string    `bson:"identifier" json:"identifier" validate:"required"`
	Token      string    `bson:"token" json:"-" validate:"required"`
	Expires    time.Time `bson:"expires" json:"expires" validate:"required"`
}
