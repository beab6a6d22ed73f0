package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/courtline/tournament-engine/models"
	"github.com/courtline/tournament-engine/repositories"
)

// TournamentFormat selects the stage layout created with a tournament.
type TournamentFormat string

const (
	// FormatGroupsKnockout plays round-robin groups followed by an
	// elimination bracket seeded from the group standings.
	FormatGroupsKnockout TournamentFormat = "groups_knockout"
	// FormatKnockout is a single elimination bracket over the whole field.
	FormatKnockout TournamentFormat = "knockout"
)

type TournamentService interface {
	Create(ctx context.Context, tournament *models.Tournament, format TournamentFormat, actorID *int) (*models.Tournament, error)
	GetByID(ctx context.Context, id int) (*models.Tournament, error)
	// GetFullData loads the tournament with its stages, groups,
	// participants and matches in parallel.
	GetFullData(ctx context.Context, id int) (*models.Tournament, error)
	List(ctx context.Context, limit, offset int) ([]*models.Tournament, error)
	Cancel(ctx context.Context, id int, actorID *int) error
}

type tournamentService struct {
	tx              repositories.TxRunner
	tournamentRepo  repositories.TournamentRepository
	stageRepo       repositories.StageRepository
	groupRepo       repositories.GroupRepository
	participantRepo repositories.ParticipantRepository
	matchRepo       repositories.MatchRepository
	audit           AuditLogger
	notifier        Notifier
	logger          *slog.Logger
}

func NewTournamentService(
	tx repositories.TxRunner,
	tournamentRepo repositories.TournamentRepository,
	stageRepo repositories.StageRepository,
	groupRepo repositories.GroupRepository,
	participantRepo repositories.ParticipantRepository,
	matchRepo repositories.MatchRepository,
	audit AuditLogger,
	notifier Notifier,
	logger *slog.Logger,
) TournamentService {
	return &tournamentService{
		tx:              tx,
		tournamentRepo:  tournamentRepo,
		stageRepo:       stageRepo,
		groupRepo:       groupRepo,
		participantRepo: participantRepo,
		matchRepo:       matchRepo,
		audit:           audit,
		notifier:        notifier,
		logger:          logger,
	}
}

func (s *tournamentService) Create(ctx context.Context, tournament *models.Tournament, format TournamentFormat, actorID *int) (*models.Tournament, error) {
	tournament.Name = strings.TrimSpace(tournament.Name)
	if tournament.Name == "" {
		return nil, fmt.Errorf("%w: tournament name is required", ErrValidationFailed)
	}
	if format == FormatGroupsKnockout && tournament.AdvancePerGroup <= 0 {
		return nil, ErrAdvanceCountMissing
	}
	tournament.Status = models.TournamentStatusRegistration

	err := s.tx.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		if err := s.tournamentRepo.Create(ctx, exec, tournament); err != nil {
			if errors.Is(err, repositories.ErrTournamentNameConflict) {
				return ErrTournamentNameConflict
			}
			return err
		}
		for _, stage := range stageLayout(tournament.ID, format) {
			if err := s.stageRepo.Create(ctx, exec, stage); err != nil {
				return err
			}
			tournament.Stages = append(tournament.Stages, *stage)
		}
		return nil
	})
	if err != nil {
		s.audit.Record(ctx, actorID, "tournament.create", "tournament", tournament.ID, tournament.Name+": "+err.Error(), false)
		return nil, err
	}
	s.audit.Record(ctx, actorID, "tournament.create", "tournament", tournament.ID, tournament.Name, true)
	s.logger.Info("tournament created",
		slog.Int("tournament_id", tournament.ID),
		slog.String("format", string(format)))
	return tournament, nil
}

// stageLayout builds the stage rows for a format.
func stageLayout(tournamentID int, format TournamentFormat) []*models.Stage {
	if format == FormatKnockout {
		return []*models.Stage{
			{TournamentID: tournamentID, Kind: models.StageKindSingle, Position: 1},
		}
	}
	return []*models.Stage{
		{TournamentID: tournamentID, Kind: models.StageKindRoundRobin, Position: 1},
		{TournamentID: tournamentID, Kind: models.StageKindElimination, Position: 2},
	}
}

func (s *tournamentService) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	return tournament, nil
}

func (s *tournamentService) GetFullData(ctx context.Context, id int) (*models.Tournament, error) {
	tournament, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var (
		stages       []*models.Stage
		participants []*models.Participant
		matches      []*models.Match
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		stages, err = s.stageRepo.ListByTournament(gctx, nil, id)
		return err
	})
	g.Go(func() error {
		var err error
		participants, err = s.participantRepo.ListByTournament(gctx, nil, id)
		return err
	})
	g.Go(func() error {
		var err error
		matches, err = s.matchRepo.ListByTournament(gctx, nil, id)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, stage := range stages {
		groups, err := s.groupRepo.ListByStage(ctx, nil, stage.ID)
		if err != nil {
			return nil, err
		}
		for _, group := range groups {
			stage.Groups = append(stage.Groups, *group)
		}
		tournament.Stages = append(tournament.Stages, *stage)
	}
	for _, p := range participants {
		tournament.Participants = append(tournament.Participants, *p)
	}
	for _, m := range matches {
		tournament.Matches = append(tournament.Matches, *m)
	}
	return tournament, nil
}

func (s *tournamentService) List(ctx context.Context, limit, offset int) ([]*models.Tournament, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.tournamentRepo.List(ctx, limit, offset)
}

func (s *tournamentService) Cancel(ctx context.Context, id int, actorID *int) error {
	err := s.tx.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		tournament, err := s.tournamentRepo.GetByID(ctx, exec, id)
		if err != nil {
			if errors.Is(err, repositories.ErrTournamentNotFound) {
				return ErrTournamentNotFound
			}
			return err
		}
		if tournament.Status == models.TournamentStatusCompleted {
			return fmt.Errorf("%w: a completed tournament cannot be canceled", ErrValidationFailed)
		}
		return s.tournamentRepo.UpdateStatus(ctx, exec, id, models.TournamentStatusCanceled)
	})
	if err != nil {
		s.audit.Record(ctx, actorID, "tournament.cancel", "tournament", id, err.Error(), false)
		return err
	}
	s.audit.Record(ctx, actorID, "tournament.cancel", "tournament", id, "canceled", true)
	s.notifier.Notify(id, EventTournamentUpdated, map[string]interface{}{"status": models.TournamentStatusCanceled})
	return nil
}
