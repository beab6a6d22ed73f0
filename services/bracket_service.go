package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/courtline/tournament-engine/brackets"
	"github.com/courtline/tournament-engine/models"
	"github.com/courtline/tournament-engine/repositories"
	"github.com/courtline/tournament-engine/standings"
)

// BracketService turns qualifiers into a materialized knockout bracket.
// Both entry points run inside the caller's transaction so a failed
// build leaves no partial bracket behind.
type BracketService interface {
	// BuildFinalStage seeds the qualifiers out of completed group
	// standings and materializes the elimination stage. Calling it
	// again after the bracket exists is a no-op.
	BuildFinalStage(ctx context.Context, exec repositories.SQLExecutor, tournament *models.Tournament) ([]*models.Match, error)
	// BuildSingleStage materializes a knockout bracket directly from
	// registered participants, used by tournaments without a group
	// phase. Seeds follow explicit participant seeds where present and
	// registration order otherwise.
	BuildSingleStage(ctx context.Context, exec repositories.SQLExecutor, tournament *models.Tournament, stage *models.Stage, participants []*models.Participant) ([]*models.Match, error)
	// ResolveGroupQualifiers binds a completed group's eligible top
	// finishers to their group-rank placeholders on the elimination
	// stage. Re-resolving the same binding is a no-op; a conflicting
	// binding fails the transaction.
	ResolveGroupQualifiers(ctx context.Context, exec repositories.SQLExecutor, tournament *models.Tournament, group *models.Group) error
}

type bracketService struct {
	stageRepo            repositories.StageRepository
	groupRepo            repositories.GroupRepository
	matchRepo            repositories.MatchRepository
	participantRepo      repositories.ParticipantRepository
	stageParticipantRepo repositories.StageParticipantRepository
	logger               *slog.Logger
}

func NewBracketService(
	stageRepo repositories.StageRepository,
	groupRepo repositories.GroupRepository,
	matchRepo repositories.MatchRepository,
	participantRepo repositories.ParticipantRepository,
	stageParticipantRepo repositories.StageParticipantRepository,
	logger *slog.Logger,
) BracketService {
	return &bracketService{
		stageRepo:            stageRepo,
		groupRepo:            groupRepo,
		matchRepo:            matchRepo,
		participantRepo:      participantRepo,
		stageParticipantRepo: stageParticipantRepo,
		logger:               logger,
	}
}

// groupOutcome is one completed group's ranked table plus the identity
// needed for placeholder labels and head-to-head lookups.
type groupOutcome struct {
	group  *models.Group
	table  *standings.Table
	letter string
}

func (s *bracketService) BuildFinalStage(ctx context.Context, exec repositories.SQLExecutor, tournament *models.Tournament) ([]*models.Match, error) {
	groupStage, err := s.stageRepo.FindByKind(ctx, exec, tournament.ID, models.StageKindRoundRobin)
	if err != nil {
		if errors.Is(err, repositories.ErrStageNotFound) {
			return nil, ErrNoGroups
		}
		return nil, err
	}
	finalStage, err := s.stageRepo.FindByKind(ctx, exec, tournament.ID, models.StageKindElimination)
	if err != nil {
		if errors.Is(err, repositories.ErrStageNotFound) {
			return nil, ErrFinalStageNotFound
		}
		return nil, err
	}

	// Already built: a retried trigger must not produce a second bracket.
	existing, err := s.matchRepo.ListByStage(ctx, exec, finalStage.ID)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return existing, nil
	}

	if tournament.AdvancePerGroup <= 0 {
		return nil, ErrAdvanceCountMissing
	}

	groups, err := s.groupRepo.ListByStage(ctx, exec, groupStage.ID)
	if err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		return nil, ErrNoGroups
	}

	outcomes := make(map[int]*groupOutcome, len(groups))
	qualifiers := make([]brackets.Qualifier, 0, len(groups)*tournament.AdvancePerGroup)
	for _, group := range groups {
		outcome, err := s.groupStandings(ctx, exec, group)
		if err != nil {
			return nil, err
		}
		outcomes[group.ID] = outcome

		// Disqualified participants keep their record but never
		// advance; the qualifier behind them moves up a tier.
		tier := 0
		for _, row := range outcome.table.Rows {
			if row.Disqualified {
				continue
			}
			tier++
			if tier > tournament.AdvancePerGroup {
				break
			}
			qualifiers = append(qualifiers, brackets.Qualifier{
				ParticipantID: row.ParticipantID,
				GroupID:       group.ID,
				Rank:          tier,
				Wins:          row.Wins,
				PointDiff:     row.PointDiff(),
				PointsScored:  row.PointsFor,
			})
		}
		if tier < tournament.AdvancePerGroup {
			return nil, fmt.Errorf("%w: group %s has only %d eligible finishers, need %d",
				ErrNotEnoughQualifiers, outcome.letter, tier, tournament.AdvancePerGroup)
		}
	}
	if len(qualifiers) < 2 {
		return nil, ErrNotEnoughQualifiers
	}

	// Head-to-head only applies to qualifiers out of the same group.
	sameGroupH2H := func(a, b int) int {
		for _, outcome := range outcomes {
			if winner := outcome.table.HeadToHead(a, b); winner != 0 {
				return winner
			}
		}
		return 0
	}
	seeded := brackets.SeedQualifiers(qualifiers, sameGroupH2H)

	entrants := make([]brackets.Entrant, 0, len(seeded))
	for i := range seeded {
		q := seeded[i]
		seed := i + 1
		if err := s.participantRepo.SetSeed(ctx, exec, q.ParticipantID, seed); err != nil {
			return nil, err
		}

		label := fmt.Sprintf("%s%d", outcomes[q.GroupID].letter, q.Rank)
		if err := s.stageParticipantRepo.Resolve(ctx, exec, finalStage.ID, label, q.ParticipantID); err != nil {
			if errors.Is(err, repositories.ErrStageParticipantResolved) {
				return nil, fmt.Errorf("%w: label %s", ErrPlaceholderResolutionRace, label)
			}
			return nil, err
		}
		if err := s.stageParticipantRepo.AssignSeed(ctx, exec, finalStage.ID, label, seed); err != nil {
			return nil, err
		}

		participantID := q.ParticipantID
		entrants = append(entrants, brackets.Entrant{
			Seed:          seed,
			ParticipantID: &participantID,
			Placeholder:   label,
		})
	}

	matches, err := s.buildAndMaterialize(ctx, exec, tournament, finalStage, entrants)
	if err != nil {
		return nil, err
	}
	if err := s.stageRepo.SetCurrent(ctx, exec, tournament.ID, finalStage.ID); err != nil {
		return nil, err
	}

	s.logger.Info("final stage bracket built",
		slog.Int("tournament_id", tournament.ID),
		slog.Int("entrants", len(entrants)),
		slog.Int("matches", len(matches)))
	return matches, nil
}

func (s *bracketService) BuildSingleStage(ctx context.Context, exec repositories.SQLExecutor, tournament *models.Tournament, stage *models.Stage, participants []*models.Participant) ([]*models.Match, error) {
	existing, err := s.matchRepo.ListByStage(ctx, exec, stage.ID)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return existing, nil
	}

	eligible := make([]*models.Participant, 0, len(participants))
	for _, p := range participants {
		if !p.Disqualified {
			eligible = append(eligible, p)
		}
	}
	if len(eligible) < 2 {
		return nil, ErrNotEnoughParticipants
	}

	// Explicitly seeded participants come first in seed order, the rest
	// follow in registration order.
	sort.SliceStable(eligible, func(i, j int) bool {
		a, b := eligible[i], eligible[j]
		switch {
		case a.Seed != nil && b.Seed != nil:
			return *a.Seed < *b.Seed
		case a.Seed != nil:
			return true
		case b.Seed != nil:
			return false
		default:
			return a.ID < b.ID
		}
	})

	entrants := make([]brackets.Entrant, 0, len(eligible))
	for i, p := range eligible {
		seed := i + 1
		if p.Seed == nil || *p.Seed != seed {
			if err := s.participantRepo.SetSeed(ctx, exec, p.ID, seed); err != nil {
				return nil, err
			}
		}
		participantID := p.ID
		entrants = append(entrants, brackets.Entrant{Seed: seed, ParticipantID: &participantID})
	}

	matches, err := s.buildAndMaterialize(ctx, exec, tournament, stage, entrants)
	if err != nil {
		return nil, err
	}
	if err := s.stageRepo.SetCurrent(ctx, exec, tournament.ID, stage.ID); err != nil {
		return nil, err
	}
	return matches, nil
}

func (s *bracketService) ResolveGroupQualifiers(ctx context.Context, exec repositories.SQLExecutor, tournament *models.Tournament, group *models.Group) error {
	if tournament.AdvancePerGroup <= 0 {
		return ErrAdvanceCountMissing
	}
	finalStage, err := s.stageRepo.FindByKind(ctx, exec, tournament.ID, models.StageKindElimination)
	if err != nil {
		if errors.Is(err, repositories.ErrStageNotFound) {
			return ErrFinalStageNotFound
		}
		return err
	}

	outcome, err := s.groupStandings(ctx, exec, group)
	if err != nil {
		return err
	}

	tier := 0
	for _, row := range outcome.table.Rows {
		if row.Disqualified {
			continue
		}
		tier++
		if tier > tournament.AdvancePerGroup {
			break
		}
		label := fmt.Sprintf("%s%d", outcome.letter, tier)
		if err := s.stageParticipantRepo.Resolve(ctx, exec, finalStage.ID, label, row.ParticipantID); err != nil {
			if errors.Is(err, repositories.ErrStageParticipantResolved) {
				return fmt.Errorf("%w: label %s", ErrPlaceholderResolutionRace, label)
			}
			return err
		}
	}
	if tier < tournament.AdvancePerGroup {
		return fmt.Errorf("%w: group %s has only %d eligible finishers, need %d",
			ErrNotEnoughQualifiers, outcome.letter, tier, tournament.AdvancePerGroup)
	}
	return nil
}

// groupStandings aggregates a group's completed matches into its ranked
// table.
func (s *bracketService) groupStandings(ctx context.Context, exec repositories.SQLExecutor, group *models.Group) (*groupOutcome, error) {
	memberIDs, err := s.groupRepo.ListParticipantIDs(ctx, exec, group.ID)
	if err != nil {
		return nil, err
	}
	members, err := s.participantRepo.ListByIDs(ctx, exec, memberIDs)
	if err != nil {
		return nil, err
	}
	groupMatches, err := s.matchRepo.ListByGroup(ctx, exec, group.ID)
	if err != nil {
		return nil, err
	}

	participants := make([]models.Participant, len(members))
	for i, m := range members {
		participants[i] = *m
	}
	results := make([]standings.Result, 0, len(groupMatches))
	for _, m := range groupMatches {
		if m.State != models.MatchStateCompleted || m.Score == nil {
			continue
		}
		if m.P1ParticipantID == nil || m.P2ParticipantID == nil {
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
		return nil, fmt.Errorf("standings of group %s: %w", group.Letter(), err)
	}
	return &groupOutcome{group: group, table: table, letter: group.Letter()}, nil
}

// buildAndMaterialize computes the bracket plan for the entrants and
// persists it. Plan matches are ordered so that every prerequisite
// precedes its consumers, which lets a single pass wire the source
// match ids. Bye matches are auto-completed at the end so the bracket
// never waits on a side that does not exist.
func (s *bracketService) buildAndMaterialize(ctx context.Context, exec repositories.SQLExecutor, tournament *models.Tournament, stage *models.Stage, entrants []brackets.Entrant) ([]*models.Match, error) {
	policy := brackets.ByeDirectAdvance
	if tournament.VirtualByes {
		policy = brackets.ByeVirtualMatch
	}

	plan, err := brackets.BuildPlan(entrants, policy)
	if err != nil {
		if errors.Is(err, brackets.ErrNotEnoughEntrants) {
			return nil, ErrNotEnoughQualifiers
		}
		return nil, err
	}

	idByUID := make(map[string]int, len(plan.Matches))
	created := make([]*models.Match, 0, len(plan.Matches))
	byeMatches := make([]*models.Match, 0)

	for _, pm := range plan.Matches {
		uid := pm.UID
		match := &models.Match{
			TournamentID: tournament.ID,
			StageID:      stage.ID,
			Round:        pm.Round,
			RoundName:    pm.RoundName,
			BracketUID:   &uid,
			State:        models.MatchStatePending,
			Bye:          pm.Bye,
		}
		if err := s.fillSlot(pm.Slot1, idByUID, &match.P1ParticipantID, &match.P1SourceMatchID); err != nil {
			return nil, fmt.Errorf("bracket match %s: %w", uid, err)
		}
		if err := s.fillSlot(pm.Slot2, idByUID, &match.P2ParticipantID, &match.P2SourceMatchID); err != nil {
			return nil, fmt.Errorf("bracket match %s: %w", uid, err)
		}
		if err := s.matchRepo.Create(ctx, exec, match); err != nil {
			return nil, err
		}
		idByUID[uid] = match.ID
		created = append(created, match)
		if pm.Bye {
			byeMatches = append(byeMatches, match)
		}
	}

	for _, bye := range byeMatches {
		winner := loneResolvedSide(bye)
		if winner == nil {
			// A bye fed by a play-in resolves once that match completes.
			continue
		}
		transitioned, err := s.matchRepo.Complete(ctx, exec, bye.ID, nil, winner, time.Now())
		if err != nil {
			return nil, err
		}
		if !transitioned {
			continue
		}
		bye.State = models.MatchStateCompleted
		bye.WinnerID = winner
		if _, err := advanceWinnerCascade(ctx, exec, s.matchRepo, bye.ID, *winner); err != nil {
			return nil, err
		}
	}
	return created, nil
}

func (s *bracketService) fillSlot(slot brackets.Slot, idByUID map[string]int, participantID **int, sourceMatchID **int) error {
	switch slot.Kind {
	case brackets.SlotEntrant:
		if slot.Entrant == nil || slot.Entrant.ParticipantID == nil {
			return fmt.Errorf("%w: %q", ErrUnresolvedPlaceholder, placeholderOf(slot.Entrant))
		}
		id := *slot.Entrant.ParticipantID
		*participantID = &id
	case brackets.SlotWinnerOf:
		sourceID, ok := idByUID[slot.SourceUID]
		if !ok {
			return fmt.Errorf("prerequisite %q materialized after its consumer", slot.SourceUID)
		}
		id := sourceID
		*sourceMatchID = &id
	case brackets.SlotBye:
		// Empty side, nothing to persist.
	}
	return nil
}

func placeholderOf(e *brackets.Entrant) string {
	if e == nil {
		return ""
	}
	return e.Placeholder
}
