package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type CompetitionCategory string

const (
	CategoryFootball   CompetitionCategory = "FOOTBALL"
	CategoryBasketball CompetitionCategory = "BASKETBALL"
	CategoryVolleyball CompetitionCategory = "VOLLEYBALL"
	CategoryHandball   CompetitionCategory = "HANDBALL"
	CategoryTennis     CompetitionCategory = "TENNIS"
	CategoryRugby      CompetitionCategory = "RUGBY"
	CategoryAthletics  CompetitionCategory = "ATHLETICS"
	CategoryOther      CompetitionCategory = "OTHER"
)

type CompetitionType string

const (
	TypeRoundRobin        CompetitionType = "ROUND_ROBIN"
	TypeGroups            CompetitionType = "GROUPS"
	TypeKnockout          CompetitionType = "KNOCKOUT"
	TypeSingleElimination CompetitionType = "SINGLE_ELIMINATION"
	TypeDoubleElimination CompetitionType = "DOUBLE_ELIMINATION"
	TypeSwiss             CompetitionType = "SWISS"
)

// CompetitionStatus представляет статусы соревнования.
type CompetitionStatus string

const (
	CompetitionDraft      CompetitionStatus = "DRAFT"
	CompetitionOpen       CompetitionStatus = "OPEN"
	CompetitionClosed     CompetitionStatus = "CLOSED"
	CompetitionInProgress CompetitionStatus = "IN_PROGRESS"
	CompetitionCompleted  CompetitionStatus = "COMPLETED"
	CompetitionCancelled  CompetitionStatus = "CANCELLED"
)

// ActiveCompetitionStatuses are the statuses counted as "active" on dashboards.
var ActiveCompetitionStatuses = []CompetitionStatus{CompetitionOpen, CompetitionClosed, CompetitionInProgress}

var competitionTransitions = map[CompetitionStatus][]CompetitionStatus{
	CompetitionDraft:      {CompetitionOpen, CompetitionCancelled},
	CompetitionOpen:       {CompetitionClosed, CompetitionInProgress, CompetitionCancelled},
	CompetitionClosed:     {CompetitionOpen, CompetitionInProgress, CompetitionCancelled},
	CompetitionInProgress: {CompetitionCompleted, CompetitionCancelled},
	CompetitionCompleted:  {},
	CompetitionCancelled:  {},
}

// CanTransitionTo reports whether the state machine allows s -> next.
func (s CompetitionStatus) CanTransitionTo(next CompetitionStatus) bool {
	if s == next {
		return true
	}
	for _, allowed := range competitionTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type Competition struct {
	Base `bson:",inline"`

	Name                  string              `bson:"name" json:"name" validate:"required"`
	Description           *string             `bson:"description,omitempty" json:"description,omitempty"`
	Category              CompetitionCategory `bson:"category" json:"category" validate:"required,oneof=FOOTBALL BASKETBALL VOLLEYBALL HANDBALL TENNIS RUGBY ATHLETICS OTHER"`
	Type                  CompetitionType     `bson:"type" json:"type" validate:"required,oneof=ROUND_ROBIN GROUPS KNOCKOUT SINGLE_ELIMINATION DOUBLE_ELIMINATION SWISS"`
	Status                CompetitionStatus   `bson:"status" json:"status" validate:"required,oneof=DRAFT OPEN CLOSED IN_PROGRESS COMPLETED CANCELLED"`
	OrganizerID           primitive.ObjectID  `bson:"organizerId" json:"organizerId" validate:"required"`
	Venue                 *string             `bson:"venue,omitempty" json:"venue,omitempty"`
	Address               *string             `bson:"address,omitempty" json:"address,omitempty"`
	City                  *string             `bson:"city,omitempty" json:"city,omitempty"`
	Country               *string             `bson:"country,omitempty" json:"country,omitempty"`
	StartDate             *time.Time          `bson:"startDate,omitempty" json:"startDate,omitempty"`
	EndDate               *time.Time          `bson:"endDate,omitempty" json:"endDate,omitempty"`
	RegistrationStartDate *time.Time          `bson:"registrationStartDate,omitempty" json:"registrationStartDate,omitempty"`
	RegistrationDeadline  *time.Time          `bson:"registrationDeadline,omitempty" json:"registrationDeadline,omitempty"`
	MinParticipants       *int                `bson:"minParticipants,omitempty" json:"minParticipants,omitempty" validate:"omitempty,min=0"`
	MaxParticipants       *int                `bson:"maxParticipants,omitempty" json:"maxParticipants,omitempty" validate:"omitempty,min=1"`
	IsPublic              bool                `bson:"isPublic" json:"isPublic"`
	RequiresApproval      bool                `bson:"requiresApproval" json:"requiresApproval"`
	UniqueCode            string              `bson:"uniqueCode" json:"uniqueCode" validate:"required"`
	Rules                 bson.M              `bson:"rules,omitempty" json:"rules,omitempty"`
	Logo                  *string             `bson:"logo,omitempty" json:"logo,omitempty"`
}

// AcceptsRegistrations: только OPEN и только внутри окна регистрации.
func (c *Competition) AcceptsRegistrations(at time.Time) bool {
	if c.Status != CompetitionOpen {
		return false
	}
	if c.RegistrationStartDate != nil && at.Before(*c.RegistrationStartDate) {
		return false
	}
	return c.RegistrationDeadline == nil || !at.After(*c.RegistrationDeadline)
}

// CompetitionSummary is joined into team and match views.
type CompetitionSummary struct {
	ObjectID primitive.ObjectID  `bson:"_id" json:"id"`
	Name     string              `bson:"name" json:"name"`
	Category CompetitionCategory `bson:"category" json:"category"`
	Status   CompetitionStatus   `bson:"status" json:"status"`
}

type CompetitionFilters struct {
	Country  string
	Category CompetitionCategory
	Status   CompetitionStatus
	Search   string
	Page     int
	Limit    int
}

type CompetitionPage struct {
	Competitions []Competition `json:"competitions"`
	Total        int64         `json:"total"`
	Page         int           `json:"page"`
	Limit        int           `json:"limit"`
}

// CompetitionDetails: соревнование вместе с организатором, заявками и командами.
type CompetitionDetails struct {
	Competition `bson:",inline"`

	Organizer          *UserSummary    `bson:"organizer,omitempty" json:"organizer,omitempty"`
	Participations     []Participation `bson:"participations" json:"participations"`
	Teams              []Team          `bson:"teams" json:"teams"`
	ParticipationCount int             `bson:"participationCount" json:"participationCount"`
	ApprovedCount      int             `bson:"approvedCount" json:"approvedCount"`
	TeamCount          int             `bson:"teamCount" json:"teamCount"`
}

type OrganizerStats struct {
	TotalCompetitions         int64            `json:"totalCompetitions"`
	ByStatus                  map[string]int64 `json:"byStatus"`
	ByCategory                map[string]int64 `json:"byCategory"`
	TotalApprovedParticipants int64            `json:"totalApprovedParticipants"`
}
