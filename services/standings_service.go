package services

import (
	"context"
	"errors"

	"github.com/courtline/tournament-engine/models"
	"github.com/courtline/tournament-engine/repositories"
	"github.com/courtline/tournament-engine/standings"
)

// GroupStandings is the API view of one group's table.
type GroupStandings struct {
	GroupID int             `json:"group_id"`
	Letter  string          `json:"letter"`
	State   models.GroupState `json:"state"`
	Rows    []standings.Row `json:"rows"`
}

// StandingsService is the read side of group standings. It recomputes
// the table from completed matches on demand; standings are never
// stored.
type StandingsService interface {
	ForGroup(ctx context.Context, groupID int) (*GroupStandings, error)
	ForTournament(ctx context.Context, tournamentID int) ([]*GroupStandings, error)
}

type standingsService struct {
	stageRepo       repositories.StageRepository
	groupRepo       repositories.GroupRepository
	matchRepo       repositories.MatchRepository
	participantRepo repositories.ParticipantRepository
}

func NewStandingsService(
	stageRepo repositories.StageRepository,
	groupRepo repositories.GroupRepository,
	matchRepo repositories.MatchRepository,
	participantRepo repositories.ParticipantRepository,
) StandingsService {
	return &standingsService{
		stageRepo:       stageRepo,
		groupRepo:       groupRepo,
		matchRepo:       matchRepo,
		participantRepo: participantRepo,
	}
}

func (s *standingsService) ForGroup(ctx context.Context, groupID int) (*GroupStandings, error) {
	group, err := s.groupRepo.GetByID(ctx, nil, groupID)
	if err != nil {
		if errors.Is(err, repositories.ErrGroupNotFound) {
			return nil, ErrGroupNotFound
		}
		return nil, err
	}
	return s.compute(ctx, group)
}

func (s *standingsService) ForTournament(ctx context.Context, tournamentID int) ([]*GroupStandings, error) {
	stage, err := s.stageRepo.FindByKind(ctx, nil, tournamentID, models.StageKindRoundRobin)
	if err != nil {
		if errors.Is(err, repositories.ErrStageNotFound) {
			return nil, ErrNoGroups
		}
		return nil, err
	}
	groups, err := s.groupRepo.ListByStage(ctx, nil, stage.ID)
	if err != nil {
		return nil, err
	}

	tables := make([]*GroupStandings, 0, len(groups))
	for _, group := range groups {
		table, err := s.compute(ctx, group)
		if err != nil {
			return nil, err
		}
		tables = append(tables, table)
	}
	return tables, nil
}

func (s *standingsService) compute(ctx context.Context, group *models.Group) (*GroupStandings, error) {
	memberIDs, err := s.groupRepo.ListParticipantIDs(ctx, nil, group.ID)
	if err != nil {
		return nil, err
	}
	members, err := s.participantRepo.ListByIDs(ctx, nil, memberIDs)
	if err != nil {
		return nil, err
	}
	groupMatches, err := s.matchRepo.ListByGroup(ctx, nil, group.ID)
	if err != nil {
		return nil, err
	}

	participants := make([]models.Participant, len(members))
	for i, m := range members {
		participants[i] = *m
	}
	results := make([]standings.Result, 0, len(groupMatches))
	for _, m := range groupMatches {
		if m.State != models.MatchStateCompleted || m.Score == nil ||
			m.P1ParticipantID == nil || m.P2ParticipantID == nil {
			continue
		}
		results = append(results, standings.Result{
			P1ID:     *m.P1ParticipantID,
			P2ID:     *m.P2ParticipantID,
			WinnerID: m.WinnerID,
			Score:    *m.Score,
		})
	}

	table, err := standings.Compute(participants, results)
	if err != nil {
		return nil, err
	}
	return &GroupStandings{
		GroupID: group.ID,
		Letter:  group.Letter(),
		State:   group.State,
		Rows:    table.Rows,
	}, nil
}
