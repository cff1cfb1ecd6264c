package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PlayerPosition string

const (
	PositionGoalkeeper PlayerPosition = "GOALKEEPER"
	PositionDefender   PlayerPosition = "DEFENDER"
	PositionMidfielder PlayerPosition = "MIDFIELDER"
	PositionForward    PlayerPosition = "FORWARD"
	PositionOther      PlayerPosition = "OTHER"
)

const MaxJerseyNumber = 99

type Player struct {
	Base `bson:",inline"`

	FirstName    string              `bson:"firstName" json:"firstName"`
	LastName     string              `bson:"lastName" json:"lastName"`
	Name         string              `bson:"name" json:"name" validate:"required"`
	TeamID       primitive.ObjectID  `bson:"teamId" json:"teamId" validate:"required"`
	UserID       *primitive.ObjectID `bson:"userId,omitempty" json:"userId,omitempty"`
	JerseyNumber int                 `bson:"jerseyNumber" json:"jerseyNumber" validate:"min=1,max=99"`
	Position     PlayerPosition      `bson:"position" json:"position" validate:"required,oneof=GOALKEEPER DEFENDER MIDFIELDER FORWARD OTHER"`
	IsActive     bool                `bson:"isActive" json:"isActive"`
	IsCaptain    bool                `bson:"isCaptain" json:"isCaptain"`
	BirthDate    *time.Time          `bson:"birthDate,omitempty" json:"birthDate,omitempty"`
	Nationality  *string             `bson:"nationality,omitempty" json:"nationality,omitempty"`
	Height       *float64            `bson:"height,omitempty" json:"height,omitempty" validate:"omitempty,gt=0"`
	Weight       *float64            `bson:"weight,omitempty" json:"weight,omitempty" validate:"omitempty,gt=0"`
	Photo        *string             `bson:"photo,omitempty" json:"photo,omitempty"`
}
