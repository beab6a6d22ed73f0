package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/courtline/tournament-engine/brackets"
	"github.com/courtline/tournament-engine/models"
	"github.com/courtline/tournament-engine/repositories"
)

// StageService starts a tournament's first stage: either drawing the
// round-robin groups or, for knockout-only tournaments, materializing
// the bracket straight from the registered field.
type StageService interface {
	GenerateGroups(ctx context.Context, tournamentID, groupCount int, actorID *int) ([]*models.Group, error)
	StartKnockout(ctx context.Context, tournamentID int, actorID *int) ([]*models.Match, error)
}

type stageService struct {
	tx              repositories.TxRunner
	tournamentRepo  repositories.TournamentRepository
	stageRepo       repositories.StageRepository
	groupRepo       repositories.GroupRepository
	matchRepo       repositories.MatchRepository
	participantRepo repositories.ParticipantRepository
	stagePartRepo   repositories.StageParticipantRepository
	bracketService  BracketService
	audit           AuditLogger
	notifier        Notifier
	logger          *slog.Logger
}

func NewStageService(
	tx repositories.TxRunner,
	tournamentRepo repositories.TournamentRepository,
	stageRepo repositories.StageRepository,
	groupRepo repositories.GroupRepository,
	matchRepo repositories.MatchRepository,
	participantRepo repositories.ParticipantRepository,
	stagePartRepo repositories.StageParticipantRepository,
	bracketService BracketService,
	audit AuditLogger,
	notifier Notifier,
	logger *slog.Logger,
) StageService {
	return &stageService{
		tx:              tx,
		tournamentRepo:  tournamentRepo,
		stageRepo:       stageRepo,
		groupRepo:       groupRepo,
		matchRepo:       matchRepo,
		participantRepo: participantRepo,
		stagePartRepo:   stagePartRepo,
		bracketService:  bracketService,
		audit:           audit,
		notifier:        notifier,
		logger:          logger,
	}
}

// GenerateGroups distributes the registered field over groupCount
// groups, schedules a full round-robin inside each, and pre-creates the
// elimination stage's qualifier placeholders ("A1", "B2", ...). The
// tournament moves to active and registration closes.
func (s *stageService) GenerateGroups(ctx context.Context, tournamentID, groupCount int, actorID *int) ([]*models.Group, error) {
	if groupCount <= 0 {
		return nil, ErrGroupCountInvalid
	}

	var groups []*models.Group
	var matchCount int
	err := s.tx.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		tournament, err := s.tournamentRepo.GetByID(ctx, exec, tournamentID)
		if err != nil {
			if errors.Is(err, repositories.ErrTournamentNotFound) {
				return ErrTournamentNotFound
			}
			return err
		}
		if tournament.Status != models.TournamentStatusRegistration {
			return fmt.Errorf("%w: tournament is %s", ErrValidationFailed, tournament.Status)
		}
		if tournament.AdvancePerGroup <= 0 {
			return ErrAdvanceCountMissing
		}

		groupStage, err := s.stageRepo.FindByKind(ctx, exec, tournamentID, models.StageKindRoundRobin)
		if err != nil {
			if errors.Is(err, repositories.ErrStageNotFound) {
				return ErrStageNotFound
			}
			return err
		}
		finalStage, err := s.stageRepo.FindByKind(ctx, exec, tournamentID, models.StageKindElimination)
		if err != nil {
			if errors.Is(err, repositories.ErrStageNotFound) {
				return ErrFinalStageNotFound
			}
			return err
		}

		existing, err := s.groupRepo.ListByStage(ctx, exec, groupStage.ID)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return ErrStageAlreadyPopulated
		}

		field, err := s.eligibleField(ctx, exec, tournamentID)
		if err != nil {
			return err
		}
		if len(field) < groupCount*2 {
			return fmt.Errorf("%w: %d participants cannot fill %d groups of at least 2",
				ErrNotEnoughParticipants, len(field), groupCount)
		}

		// Round-robin distribution in registration order keeps groups
		// within one participant of each other in size.
		buckets := make([][]*models.Participant, groupCount)
		for i, p := range field {
			buckets[i%groupCount] = append(buckets[i%groupCount], p)
		}

		placeholders := make([]*models.StageParticipant, 0, groupCount*tournament.AdvancePerGroup)
		for idx, bucket := range buckets {
			group := &models.Group{
				StageID: groupStage.ID,
				Index:   idx,
				State:   models.GroupStatePending,
			}
			if err := s.groupRepo.Create(ctx, exec, group); err != nil {
				return err
			}
			groups = append(groups, group)

			memberIDs := make([]int, 0, len(bucket))
			for _, p := range bucket {
				if err := s.groupRepo.AssignParticipant(ctx, exec, group.ID, p.ID); err != nil {
					return err
				}
				memberIDs = append(memberIDs, p.ID)
			}

			for _, pairing := range brackets.RoundRobinPairings(memberIDs) {
				p1 := pairing.P1
				p2 := pairing.P2
				groupID := group.ID
				match := &models.Match{
					TournamentID:    tournamentID,
					StageID:         groupStage.ID,
					GroupID:         &groupID,
					Round:           pairing.Round,
					RoundName:       fmt.Sprintf("Group %s", group.Letter()),
					P1ParticipantID: &p1,
					P2ParticipantID: &p2,
					State:           models.MatchStatePending,
				}
				if err := s.matchRepo.Create(ctx, exec, match); err != nil {
					return err
				}
				matchCount++
			}

			for rank := 1; rank <= tournament.AdvancePerGroup; rank++ {
				placeholders = append(placeholders, &models.StageParticipant{
					StageID: finalStage.ID,
					Label:   fmt.Sprintf("%s%d", group.Letter(), rank),
				})
			}
		}
		if err := s.stagePartRepo.CreateBatch(ctx, exec, placeholders); err != nil {
			return err
		}

		if err := s.stageRepo.SetCurrent(ctx, exec, tournamentID, groupStage.ID); err != nil {
			return err
		}
		return s.tournamentRepo.UpdateStatus(ctx, exec, tournamentID, models.TournamentStatusActive)
	})

	description := fmt.Sprintf("generated %d groups for tournament %d", groupCount, tournamentID)
	if err != nil {
		s.audit.Record(ctx, actorID, "stage.generate_groups", "tournament", tournamentID, description+": "+err.Error(), false)
		return nil, err
	}
	s.audit.Record(ctx, actorID, "stage.generate_groups", "tournament", tournamentID, description, true)

	s.notifier.Notify(tournamentID, EventGroupsUpdated, map[string]int{"groups": len(groups)})
	s.notifier.Notify(tournamentID, EventMatchesGenerated, map[string]int{"matches": matchCount})
	s.logger.Info("groups generated",
		slog.Int("tournament_id", tournamentID),
		slog.Int("groups", len(groups)),
		slog.Int("matches", matchCount))
	return groups, nil
}

// StartKnockout activates a knockout-only tournament by building its
// bracket from the registered field.
func (s *stageService) StartKnockout(ctx context.Context, tournamentID int, actorID *int) ([]*models.Match, error) {
	var matches []*models.Match
	err := s.tx.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		tournament, err := s.tournamentRepo.GetByID(ctx, exec, tournamentID)
		if err != nil {
			if errors.Is(err, repositories.ErrTournamentNotFound) {
				return ErrTournamentNotFound
			}
			return err
		}
		if tournament.Status != models.TournamentStatusRegistration {
			return fmt.Errorf("%w: tournament is %s", ErrValidationFailed, tournament.Status)
		}

		stage, err := s.stageRepo.FindByKind(ctx, exec, tournamentID, models.StageKindSingle)
		if err != nil {
			if errors.Is(err, repositories.ErrStageNotFound) {
				return ErrStageNotFound
			}
			return err
		}

		field, err := s.participantRepo.ListByTournament(ctx, exec, tournamentID)
		if err != nil {
			return err
		}
		matches, err = s.bracketService.BuildSingleStage(ctx, exec, tournament, stage, field)
		if err != nil {
			return err
		}
		return s.tournamentRepo.UpdateStatus(ctx, exec, tournamentID, models.TournamentStatusActive)
	})

	description := fmt.Sprintf("knockout started for tournament %d", tournamentID)
	if err != nil {
		s.audit.Record(ctx, actorID, "stage.start_knockout", "tournament", tournamentID, description+": "+err.Error(), false)
		return nil, err
	}
	s.audit.Record(ctx, actorID, "stage.start_knockout", "tournament", tournamentID, description, true)

	s.notifier.Notify(tournamentID, EventMatchesGenerated, map[string]int{"matches": len(matches)})
	return matches, nil
}

func (s *stageService) eligibleField(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) ([]*models.Participant, error) {
	all, err := s.participantRepo.ListByTournament(ctx, exec, tournamentID)
	if err != nil {
		return nil, err
	}
	field := make([]*models.Participant, 0, len(all))
	for _, p := range all {
		if !p.Disqualified {
			field = append(field, p)
		}
	}
	return field, nil
}
