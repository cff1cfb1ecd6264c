package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type NotificationType string

const (
	NotificationInfo    NotificationType = "INFO"
	NotificationSuccess NotificationType = "SUCCESS"
	NotificationWarning NotificationType = "WARNING"
	NotificationError   NotificationType = "ERROR"
)

type NotificationCategory string

const (
	CategoryCompetitionNotice   NotificationCategory = "COMPETITION"
	CategoryTeamNotice          NotificationCategory = "TEAM"
	CategoryMatchNotice         NotificationCategory = "MATCH"
	CategorySystemNotice        NotificationCategory = "SYSTEM"
	CategoryParticipationNotice NotificationCategory = "PARTICIPATION"
)

// RelatedType tags what RelatedID points at. The reference is resolved by the
// caller; nothing enforces that the target exists.
type RelatedType string

const (
	RelatedCompetition   RelatedType = "COMPETITION"
	RelatedTeam          RelatedType = "TEAM"
	RelatedMatch         RelatedType = "MATCH"
	RelatedParticipation RelatedType = "PARTICIPATION"
	RelatedPlayer        RelatedType = "PLAYER"
	RelatedGroup         RelatedType = "GROUP"
	RelatedUser          RelatedType = "USER"
)

type Notification struct {
	Base `bson:",inline"`

	UserID      primitive.ObjectID   `bson:"userId" json:"userId" validate:"required"`
	Title       string               `bson:"title" json:"title" validate:"required"`
	Message     string               `bson:"message" json:"message" validate:"required"`
	Type        NotificationType     `bson:"type" json:"type" validate:"required,oneof=INFO SUCCESS WARNING ERROR"`
	Category    NotificationCategory `bson:"category" json:"category" validate:"required,oneof=COMPETITION TEAM MATCH SYSTEM PARTICIPATION"`
	IsRead      bool                 `bson:"isRead" json:"isRead"`
	ReadAt      *time.Time           `bson:"readAt,omitempty" json:"readAt,omitempty"`
	RelatedID   *string              `bson:"relatedId,omitempty" json:"relatedId,omitempty" validate:"required_with=RelatedType"`
	RelatedType *RelatedType         `bson:"relatedType,omitempty" json:"relatedType,omitempty" validate:"omitempty,oneof=COMPETITION TEAM MATCH PARTICIPATION PLAYER GROUP USER"`
	ActionURL   *string              `bson:"actionUrl,omitempty" json:"actionUrl,omitempty"`
	ExpiresAt   *time.Time           `bson:"expiresAt,omitempty" json:"expiresAt,omitempty"`
}

type NotificationStats struct {
	Total      int64            `json:"total"`
	Unread     int64            `json:"unread"`
	ByType     map[string]int64 `json:"byType"`
	ByCategory map[string]int64 `json:"byCategory"`
}
