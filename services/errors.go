package services

import "errors"

// Shared sentinel errors, mapped to HTTP statuses in the handlers.
var (
	ErrNotFound = errors.New("requested resource not found")

	// Validation and business-rule errors: rejected before any mutation.
	ErrValidationFailed         = errors.New("validation failed")
	ErrDisplayNameRequired      = errors.New("participant display name is required")
	ErrSameUserBothSlots        = errors.New("a doubles team cannot list the same user twice")
	ErrRegistrationNotOpen      = errors.New("tournament registration is not open")
	ErrWithdrawalNotAllowed     = errors.New("withdrawal is not allowed for this tournament")
	ErrStageAlreadyPopulated    = errors.New("stage participants already generated")
	ErrAdvanceCountMissing      = errors.New("participants advancing per group is zero or missing")
	ErrNoGroups                 = errors.New("no groups found for this stage")
	ErrNotEnoughQualifiers      = errors.New("fewer than 2 qualifiers: cannot build a bracket")
	ErrMatchSlotsUnresolved     = errors.New("match cannot be completed while a slot is unresolved")
	ErrKnockoutTieNotAllowed    = errors.New("a knockout match cannot end in a tie")
	ErrScoreInvalid             = errors.New("invalid score")
	ErrGroupCountInvalid        = errors.New("group count must be positive")
	ErrNotEnoughParticipants    = errors.New("not enough participants")

	// Consistency errors: fatal to the current operation, rolled back.
	ErrFinalStageNotFound        = errors.New("final stage not found")
	ErrUnresolvedPlaceholder     = errors.New("unresolved placeholder during seeding")
	ErrPlaceholderResolutionRace = errors.New("placeholder resolution race detected")

	// Entity-specific not-found errors.
	ErrTournamentNotFound  = errors.New("tournament not found")
	ErrStageNotFound       = errors.New("stage not found")
	ErrGroupNotFound       = errors.New("group not found")
	ErrMatchNotFound       = errors.New("match not found")
	ErrParticipantNotFound = errors.New("participant not found")

	// Conflicts.
	ErrTournamentNameConflict = errors.New("tournament name already exists")
	ErrRegistrationConflict   = errors.New("user is already registered for this tournament")
)
