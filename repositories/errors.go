package repositories

import (
	"errors"
	"fmt"
)

// ErrConflict is the kind every uniqueness violation unwraps to, whether it
// was caught by a pre-check or by a unique index.
var ErrConflict = errors.New("conflict")

// ConflictError carries the message shown to the user.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

func (e *ConflictError) Unwrap() error {
	return ErrConflict
}

var (
	ErrUserEmailConflict       = &ConflictError{Message: "Un utilisateur avec cet email existe déjà"}
	ErrUserPhoneConflict       = &ConflictError{Message: "Un utilisateur avec ce numéro de téléphone existe déjà"}
	ErrAlreadyParticipating    = &ConflictError{Message: "Cet utilisateur participe déjà à cette compétition"}
	ErrTeamNameConflict        = &ConflictError{Message: "Une équipe avec ce nom existe déjà dans cette compétition"}
	ErrGroupNameConflict       = &ConflictError{Message: "Un groupe avec ce nom existe déjà dans cette compétition"}
	ErrCaptainConflict         = &ConflictError{Message: "Cette équipe a déjà un capitaine"}
	ErrCompetitionCodeConflict = &ConflictError{Message: "Ce code de compétition est déjà utilisé"}
	ErrAccountConflict         = &ConflictError{Message: "Ce compte est déjà lié à un utilisateur"}
	ErrSessionConflict         = &ConflictError{Message: "Cette session existe déjà"}
	ErrTokenConflict           = &ConflictError{Message: "Ce jeton existe déjà"}
)

// JerseyConflict reports a number already worn by an active player of the team.
func JerseyConflict(number int) *ConflictError {
	return &ConflictError{Message: fmt.Sprintf("Le numéro %d est déjà utilisé", number)}
}

// Not found on mutation. Plain reads return nil, nil instead.
var (
	ErrUserNotFound          = errors.New("user not found")
	ErrCompetitionNotFound   = errors.New("competition not found")
	ErrParticipationNotFound = errors.New("participation not found")
	ErrTeamNotFound          = errors.New("team not found")
	ErrPlayerNotFound        = errors.New("player not found")
	ErrMatchNotFound         = errors.New("match not found")
	ErrGroupNotFound         = errors.New("group not found")
	ErrNotificationNotFound  = errors.New("notification not found")
)

var (
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrInvalidInput            = errors.New("invalid input")
	ErrCompetitionFull         = errors.New("competition has reached its maximum number of participants")
	ErrJerseyNumbersExhausted  = errors.New("all jersey numbers are taken on this team")

	ErrRejectionReasonRequired      = fmt.Errorf("%w: a rejection reason is required", ErrInvalidInput)
	ErrRegistrationDeadlineRequired = fmt.Errorf("%w: a registration deadline is required to open registrations", ErrInvalidInput)
	ErrScoresRequired               = fmt.Errorf("%w: both scores are required", ErrInvalidInput)
	ErrNewDateRequired              = fmt.Errorf("%w: a new date is required to postpone a match", ErrInvalidInput)
	ErrRegistrationClosed           = fmt.Errorf("%w: registrations are closed for this competition", ErrInvalidInput)
	ErrNotEnoughTeams               = fmt.Errorf("%w: at least two distinct teams are required", ErrInvalidInput)
	ErrPlayerInactive               = fmt.Errorf("%w: player is not active", ErrInvalidInput)
)

// transitionError wraps ErrInvalidStatusTransition with the statuses involved.
func transitionError[S ~string](from S, to S) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, from, to)
}
