package models

import "go.mongodb.org/mongo-driver/bson/primitive"

type Group struct {
	Base `bson:",inline"`

	Name          string             `bson:"name" json:"name" validate:"required"`
	CompetitionID primitive.ObjectID `bson:"competitionId" json:"competitionId" validate:"required"`
}
