package services

import "errors"

// Ошибки сервисного слоя. Ошибки данных приходят из repositories и
// validation и пробрасываются как есть.
var (
	ErrNotFound = errors.New("requested resource not found")

	ErrAuthInvalidCredentials = errors.New("invalid email or password")
	ErrAuthenticationFailed   = errors.New("authentication failed")
	ErrInvalidVerification    = errors.New("invalid or expired verification token")

	ErrForbiddenOperation     = errors.New("operation not allowed for the current user")
	ErrOrganizerRoleRequired  = errors.New("only organizers can create competitions")
	ErrCaptainActionForbidden = errors.New("only the team captain or the organizer can perform this action")
)
