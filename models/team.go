package models

import "go.mongodb.org/mongo-driver/bson/primitive"

type Team struct {
	Base `bson:",inline"`

	Name          string              `bson:"name" json:"name" validate:"required"`
	CompetitionID primitive.ObjectID  `bson:"competitionId" json:"competitionId" validate:"required"`
	CaptainID     primitive.ObjectID  `bson:"captainId" json:"captainId" validate:"required"`
	GroupID       *primitive.ObjectID `bson:"groupId,omitempty" json:"groupId,omitempty"`
	Description   *string             `bson:"description,omitempty" json:"description,omitempty"`
	Logo          *string             `bson:"logo,omitempty" json:"logo,omitempty"`
	IsActive      bool                `bson:"isActive" json:"isActive"`
}

type TeamSummary struct {
	ObjectID primitive.ObjectID `bson:"_id" json:"id"`
	Name     string             `bson:"name" json:"name"`
	Logo     *string            `bson:"logo,omitempty" json:"logo,omitempty"`
}

// TeamWithPlayers: команда с составом, капитаном, соревнованием и группой.
type TeamWithPlayers struct {
	Team `bson:",inline"`

	Players     []Player            `bson:"players" json:"players"`
	Captain     *UserSummary        `bson:"captain,omitempty" json:"captain,omitempty"`
	Competition *CompetitionSummary `bson:"competition,omitempty" json:"competition,omitempty"`
	Group       *Group              `bson:"group,omitempty" json:"group,omitempty"`
}
