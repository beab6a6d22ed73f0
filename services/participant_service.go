package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/courtline/tournament-engine/models"
	"github.com/courtline/tournament-engine/repositories"
)

// ParticipantService manages the registered field of a tournament:
// registration while it is open, withdrawal where the organizer allows
// it, and disqualification at any point.
type ParticipantService interface {
	Register(ctx context.Context, participant *models.Participant, actorID *int) (*models.Participant, error)
	Withdraw(ctx context.Context, participantID int, actorID *int) error
	Disqualify(ctx context.Context, participantID int, actorID *int) error
	ListByTournament(ctx context.Context, tournamentID int) ([]*models.Participant, error)
}

type participantService struct {
	tx              repositories.TxRunner
	participantRepo repositories.ParticipantRepository
	tournamentRepo  repositories.TournamentRepository
	userRepo        repositories.UserRepository
	audit           AuditLogger
	notifier        Notifier
	email           EmailSender
	logger          *slog.Logger
}

func NewParticipantService(
	tx repositories.TxRunner,
	participantRepo repositories.ParticipantRepository,
	tournamentRepo repositories.TournamentRepository,
	userRepo repositories.UserRepository,
	audit AuditLogger,
	notifier Notifier,
	email EmailSender,
	logger *slog.Logger,
) ParticipantService {
	return &participantService{
		tx:              tx,
		participantRepo: participantRepo,
		tournamentRepo:  tournamentRepo,
		userRepo:        userRepo,
		audit:           audit,
		notifier:        notifier,
		email:           email,
		logger:          logger,
	}
}

func (s *participantService) Register(ctx context.Context, participant *models.Participant, actorID *int) (*models.Participant, error) {
	participant.DisplayName = strings.TrimSpace(participant.DisplayName)
	if participant.DisplayName == "" {
		return nil, ErrDisplayNameRequired
	}
	if participant.User1ID != nil && participant.User2ID != nil && *participant.User1ID == *participant.User2ID {
		return nil, ErrSameUserBothSlots
	}

	err := s.tx.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		tournament, err := s.tournamentRepo.GetByID(ctx, exec, participant.TournamentID)
		if err != nil {
			if errors.Is(err, repositories.ErrTournamentNotFound) {
				return ErrTournamentNotFound
			}
			return err
		}
		if tournament.Status != models.TournamentStatusRegistration {
			return ErrRegistrationNotOpen
		}

		if err := s.participantRepo.Create(ctx, exec, participant); err != nil {
			switch {
			case errors.Is(err, repositories.ErrParticipantConflict):
				return ErrRegistrationConflict
			case errors.Is(err, repositories.ErrParticipantUserInvalid):
				return fmt.Errorf("%w: unknown user", ErrValidationFailed)
			}
			return err
		}
		return nil
	})

	description := fmt.Sprintf("%q in tournament %d", participant.DisplayName, participant.TournamentID)
	if err != nil {
		s.audit.Record(ctx, actorID, "participant.register", "participant", participant.ID, description+": "+err.Error(), false)
		return nil, err
	}
	s.audit.Record(ctx, actorID, "participant.register", "participant", participant.ID, description, true)
	s.notifier.Notify(participant.TournamentID, EventTournamentUpdated, map[string]interface{}{
		"participant_id": participant.ID,
	})
	return participant, nil
}

// Withdraw removes a participant before the draw. Once the tournament
// has left registration the field is locked and only disqualification
// can take a participant out.
func (s *participantService) Withdraw(ctx context.Context, participantID int, actorID *int) error {
	var tournamentID int
	err := s.tx.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		participant, err := s.participantRepo.GetByID(ctx, exec, participantID)
		if err != nil {
			if errors.Is(err, repositories.ErrParticipantNotFound) {
				return ErrParticipantNotFound
			}
			return err
		}
		tournamentID = participant.TournamentID

		tournament, err := s.tournamentRepo.GetByID(ctx, exec, participant.TournamentID)
		if err != nil {
			return err
		}
		if !tournament.AllowWithdrawal {
			return ErrWithdrawalNotAllowed
		}
		if tournament.Status != models.TournamentStatusRegistration {
			return fmt.Errorf("%w: the draw is already made", ErrWithdrawalNotAllowed)
		}
		return s.participantRepo.Delete(ctx, participantID)
	})

	if err != nil {
		s.audit.Record(ctx, actorID, "participant.withdraw", "participant", participantID, err.Error(), false)
		return err
	}
	s.audit.Record(ctx, actorID, "participant.withdraw", "participant", participantID, "withdrawn", true)
	s.notifier.Notify(tournamentID, EventTournamentUpdated, map[string]interface{}{
		"participant_id": participantID,
		"withdrawn":      true,
	})
	return nil
}

// Disqualify flags the participant. Their played results stand, their
// remaining matches are decided by the normal progression flow, and
// they are skipped when qualifiers advance to the bracket.
func (s *participantService) Disqualify(ctx context.Context, participantID int, actorID *int) error {
	var (
		tournamentID int
		emails       []string
		displayName  string
	)
	err := s.tx.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		participant, err := s.participantRepo.GetByID(ctx, exec, participantID)
		if err != nil {
			if errors.Is(err, repositories.ErrParticipantNotFound) {
				return ErrParticipantNotFound
			}
			return err
		}
		tournamentID = participant.TournamentID
		displayName = participant.DisplayName

		if participant.Disqualified {
			return nil
		}
		if err := s.participantRepo.SetDisqualified(ctx, exec, participantID); err != nil {
			return err
		}

		users, err := s.userRepo.ListByIDs(ctx, exec, participant.UserIDs())
		if err != nil {
			return err
		}
		for _, u := range users {
			if u.Email != "" {
				emails = append(emails, u.Email)
			}
		}
		return nil
	})

	if err != nil {
		s.audit.Record(ctx, actorID, "participant.disqualify", "participant", participantID, err.Error(), false)
		return err
	}
	s.audit.Record(ctx, actorID, "participant.disqualify", "participant", participantID, displayName, true)
	s.notifier.Notify(tournamentID, EventTournamentUpdated, map[string]interface{}{
		"participant_id": participantID,
		"disqualified":   true,
	})
	sendAsync(s.email, s.logger, emails,
		"You have been disqualified",
		fmt.Sprintf("<p>Team <b>%s</b> has been disqualified from the tournament.</p>", displayName))
	return nil
}

func (s *participantService) ListByTournament(ctx context.Context, tournamentID int) ([]*models.Participant, error) {
	return s.participantRepo.ListByTournament(ctx, nil, tournamentID)
}
