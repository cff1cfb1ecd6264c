package models

import "go.mongodb.org/mongo-driver/bson"

// Входные данные из JSON: идентификаторы строками, даты в свободной форме,
// флаги указателями, чтобы отличать "не передано" от false.

type CompetitionInput struct {
	Name                  string              `json:"name"`
	Description           *string             `json:"description,omitempty"`
	Category              CompetitionCategory `json:"category"`
	Type                  CompetitionType     `json:"type"`
	Status                CompetitionStatus   `json:"status,omitempty"`
	OrganizerID           string              `json:"organizerId"`
	Venue                 *string             `json:"venue,omitempty"`
	Address               *string             `json:"address,omitempty"`
	City                  *string             `json:"city,omitempty"`
	Country               *string             `json:"country,omitempty"`
	StartDate             *FlexTime           `json:"startDate,omitempty"`
	EndDate               *FlexTime           `json:"endDate,omitempty"`
	RegistrationStartDate *FlexTime           `json:"registrationStartDate,omitempty"`
	RegistrationDeadline  *FlexTime           `json:"registrationDeadline,omitempty"`
	MinParticipants       *int                `json:"minParticipants,omitempty"`
	MaxParticipants       *int                `json:"maxParticipants,omitempty"`
	IsPublic              *bool               `json:"isPublic,omitempty"`
	RequiresApproval      *bool               `json:"requiresApproval,omitempty"`
	Rules                 bson.M              `json:"rules,omitempty"`
	Logo                  *string             `json:"logo,omitempty"`
}

type TeamInput struct {
	Name          string  `json:"name"`
	CompetitionID string  `json:"competitionId"`
	CaptainID     string  `json:"captainId"`
	GroupID       *string `json:"groupId,omitempty"`
	Description   *string `json:"description,omitempty"`
	Logo          *string `json:"logo,omitempty"`
}

type PlayerInput struct {
	FirstName    string         `json:"firstName"`
	LastName     string         `json:"lastName"`
	Name         string         `json:"name,omitempty"`
	TeamID       string         `json:"teamId"`
	UserID       *string        `json:"userId,omitempty"`
	JerseyNumber int            `json:"jerseyNumber,omitempty"`
	Position     PlayerPosition `json:"position,omitempty"`
	BirthDate    *FlexTime      `json:"birthDate,omitempty"`
	Nationality  *string        `json:"nationality,omitempty"`
	Height       *float64       `json:"height,omitempty"`
	Weight       *float64       `json:"weight,omitempty"`
	Photo        *string        `json:"photo,omitempty"`
}

type MatchInput struct {
	CompetitionID string    `json:"competitionId"`
	HomeTeamID    string    `json:"homeTeamId"`
	AwayTeamID    string    `json:"awayTeamId"`
	GroupID       *string   `json:"groupId,omitempty"`
	Round         *int      `json:"round,omitempty"`
	MatchNumber   *int      `json:"matchNumber,omitempty"`
	ScheduledDate *FlexTime `json:"scheduledDate"`
	Venue         *string   `json:"venue,omitempty"`
	Referee       *string   `json:"referee,omitempty"`
	Notes         *string   `json:"notes,omitempty"`
}

type NotificationInput struct {
	UserID      string               `json:"userId"`
	Title       string               `json:"title"`
	Message     string               `json:"message"`
	Type        NotificationType     `json:"type,omitempty"`
	Category    NotificationCategory `json:"category,omitempty"`
	RelatedID   *string              `json:"relatedId,omitempty"`
	RelatedType *RelatedType         `json:"relatedType,omitempty"`
	ActionURL   *string              `json:"actionUrl,omitempty"`
	ExpiresAt   *FlexTime            `json:"expiresAt,omitempty"`
}
