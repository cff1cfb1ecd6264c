package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type MatchStatus string

const (
	MatchScheduled MatchStatus = "SCHEDULED"
	MatchLive      MatchStatus = "LIVE"
	MatchCompleted MatchStatus = "COMPLETED"
	MatchCancelled MatchStatus = "CANCELLED"
	MatchPostponed MatchStatus = "POSTPONED"
)

type Match struct {
	Base `bson:",inline"`

	CompetitionID primitive.ObjectID  `bson:"competitionId" json:"competitionId" validate:"required"`
	HomeTeamID    primitive.ObjectID  `bson:"homeTeamId" json:"homeTeamId" validate:"required"`
	AwayTeamID    primitive.ObjectID  `bson:"awayTeamId" json:"awayTeamId" validate:"required"`
	GroupID       *primitive.ObjectID `bson:"groupId,omitempty" json:"groupId,omitempty"`
	Round         *int                `bson:"round,omitempty" json:"round,omitempty" validate:"omitempty,min=1"`
	MatchNumber   *int                `bson:"matchNumber,omitempty" json:"matchNumber,omitempty" validate:"omitempty,min=1"`
	ScheduledDate time.Time           `bson:"scheduledDate" json:"scheduledDate" validate:"required"`
	Status        MatchStatus         `bson:"status" json:"status" validate:"required,oneof=SCHEDULED LIVE COMPLETED CANCELLED POSTPONED"`
	HomeScore     *int                `bson:"homeScore,omitempty" json:"homeScore,omitempty" validate:"omitempty,min=0"`
	AwayScore     *int                `bson:"awayScore,omitempty" json:"awayScore,omitempty" validate:"omitempty,min=0"`
	StartTime     *time.Time          `bson:"startTime,omitempty" json:"startTime,omitempty"`
	EndTime       *time.Time          `bson:"endTime,omitempty" json:"endTime,omitempty"`
	Venue         *string             `bson:"venue,omitempty" json:"venue,omitempty"`
	Referee       *string             `bson:"referee,omitempty" json:"referee,omitempty"`
	Notes         *string             `bson:"notes,omitempty" json:"notes,omitempty"`
	Reason        *string             `bson:"reason,omitempty" json:"reason,omitempty"`
}

// MatchWithTeams is the joined view used for upcoming-match listings.
type MatchWithTeams struct {
	Match `bson:",inline"`

	HomeTeam    *TeamSummary        `bson:"homeTeam,omitempty" json:"homeTeam,omitempty"`
	AwayTeam    *TeamSummary        `bson:"awayTeam,omitempty" json:"awayTeam,omitempty"`
	Competition *CompetitionSummary `bson:"competition,omitempty" json:"competition,omitempty"`
}

// Очки за результат матча.
const (
	PointsForWin  = 3
	PointsForDraw = 1
	PointsForLoss = 0
)

// TeamRecord: итоги команды по завершённым матчам.
type TeamRecord struct {
	TeamID         string `json:"teamId"`
	TeamName       string `json:"teamName,omitempty"`
	Played         int    `json:"played"`
	Won            int    `json:"won"`
	Drawn          int    `json:"drawn"`
	Lost           int    `json:"lost"`
	GoalsFor       int    `json:"goalsFor"`
	GoalsAgainst   int    `json:"goalsAgainst"`
	GoalDifference int    `json:"goalDifference"`
	Points         int    `json:"points"`
	Rank           int    `json:"rank,omitempty"`
}
