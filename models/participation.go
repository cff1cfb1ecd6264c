package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ParticipationStatus string

const (
	ParticipationPending   ParticipationStatus = "PENDING"
	ParticipationApproved  ParticipationStatus = "APPROVED"
	ParticipationAccepted  ParticipationStatus = "ACCEPTED"
	ParticipationRejected  ParticipationStatus = "REJECTED"
	ParticipationWithdrawn ParticipationStatus = "WITHDRAWN"
)

// ParticipationOpenStatuses are the non-terminal statuses.
var ParticipationOpenStatuses = []ParticipationStatus{ParticipationPending, ParticipationApproved, ParticipationAccepted}

// ParticipationAdmittedStatuses count toward a competition's approved participants.
var ParticipationAdmittedStatuses = []ParticipationStatus{ParticipationApproved, ParticipationAccepted}

type Participation struct {
	Base `bson:",inline"`

	CompetitionID   primitive.ObjectID  `bson:"competitionId" json:"competitionId" validate:"required"`
	ParticipantID   primitive.ObjectID  `bson:"participantId" json:"participantId" validate:"required"`
	Status          ParticipationStatus `bson:"status" json:"status" validate:"required,oneof=PENDING APPROVED ACCEPTED REJECTED WITHDRAWN"`
	ApplicationDate time.Time           `bson:"applicationDate" json:"applicationDate"`
	ApprovalDate    *time.Time          `bson:"approvalDate,omitempty" json:"approvalDate,omitempty"`
	RejectionReason *string             `bson:"rejectionReason,omitempty" json:"rejectionReason,omitempty"`
	Message         *string             `bson:"message,omitempty" json:"message,omitempty"`
}

type ParticipationStats struct {
	Total              int64            `json:"total"`
	ByStatus           map[string]int64 `json:"byStatus"`
	RecentApplications int64            `json:"recentApplications"`
}
