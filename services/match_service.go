package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/courtline/tournament-engine/models"
	"github.com/courtline/tournament-engine/repositories"
)

// MatchService is the progression engine: submitting a result completes
// the match and triggers every downstream consequence in one
// transaction. Retrying a submission, or racing two submissions for the
// same match, performs each transition at most once.
type MatchService interface {
	SubmitResult(ctx context.Context, matchID int, score string, actorID *int) (*models.Match, error)
	GetByID(ctx context.Context, id int) (*models.Match, error)
	ListByTournament(ctx context.Context, tournamentID int) ([]*models.Match, error)
}

type matchService struct {
	tx              repositories.TxRunner
	matchRepo       repositories.MatchRepository
	stageRepo       repositories.StageRepository
	groupRepo       repositories.GroupRepository
	participantRepo repositories.ParticipantRepository
	tournamentRepo  repositories.TournamentRepository
	userRepo        repositories.UserRepository

	bracketService BracketService
	ratingService  RatingService
	audit          AuditLogger
	notifier       Notifier
	email          EmailSender
	logger         *slog.Logger
}

func NewMatchService(
	tx repositories.TxRunner,
	matchRepo repositories.MatchRepository,
	stageRepo repositories.StageRepository,
	groupRepo repositories.GroupRepository,
	participantRepo repositories.ParticipantRepository,
	tournamentRepo repositories.TournamentRepository,
	userRepo repositories.UserRepository,
	bracketService BracketService,
	ratingService RatingService,
	audit AuditLogger,
	notifier Notifier,
	email EmailSender,
	logger *slog.Logger,
) MatchService {
	return &matchService{
		tx:              tx,
		matchRepo:       matchRepo,
		stageRepo:       stageRepo,
		groupRepo:       groupRepo,
		participantRepo: participantRepo,
		tournamentRepo:  tournamentRepo,
		userRepo:        userRepo,
		bracketService:  bracketService,
		ratingService:   ratingService,
		audit:           audit,
		notifier:        notifier,
		email:           email,
		logger:          logger,
	}
}

// pendingEvent is a real-time notification deferred until after commit.
type pendingEvent struct {
	tournamentID int
	eventType    string
	payload      interface{}
}

// pendingEmail is an outbound notice deferred until after commit.
type pendingEmail struct {
	to      []string
	subject string
	body    string
}

// submission carries the side effects of one result submission out of
// the transaction.
type submission struct {
	match  *models.Match
	events []pendingEvent
	emails []pendingEmail
}

func (s *submission) notify(tournamentID int, eventType string, payload interface{}) {
	s.events = append(s.events, pendingEvent{tournamentID: tournamentID, eventType: eventType, payload: payload})
}

func (s *matchService) GetByID(ctx context.Context, id int) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return match, nil
}

func (s *matchService) ListByTournament(ctx context.Context, tournamentID int) ([]*models.Match, error) {
	return s.matchRepo.ListByTournament(ctx, nil, tournamentID)
}

func (s *matchService) SubmitResult(ctx context.Context, matchID int, score string, actorID *int) (*models.Match, error) {
	sets, err := models.ParseScore(score)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrScoreInvalid, err)
	}

	sub := &submission{}
	err = s.tx.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		return s.submitInTx(ctx, exec, sub, matchID, score, sets)
	})

	description := fmt.Sprintf("result %q for match %d", score, matchID)
	if err != nil {
		s.audit.Record(ctx, actorID, "match.submit_result", "match", matchID, description+": "+err.Error(), false)
		return nil, err
	}
	s.audit.Record(ctx, actorID, "match.submit_result", "match", matchID, description, true)

	for _, event := range sub.events {
		s.notifier.Notify(event.tournamentID, event.eventType, event.payload)
	}
	for _, mail := range sub.emails {
		sendAsync(s.email, s.logger, mail.to, mail.subject, mail.body)
	}
	return sub.match, nil
}

func (s *matchService) submitInTx(ctx context.Context, exec repositories.SQLExecutor, sub *submission, matchID int, score string, sets []models.SetScore) error {
	match, err := s.matchRepo.GetByID(ctx, exec, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return ErrMatchNotFound
		}
		return err
	}

	if match.State == models.MatchStateCompleted {
		return s.editCompleted(ctx, exec, sub, match, score, sets)
	}

	if match.P1ParticipantID == nil || match.P2ParticipantID == nil {
		return ErrMatchSlotsUnresolved
	}

	stage, err := s.stageRepo.GetByID(ctx, exec, match.StageID)
	if err != nil {
		return err
	}

	winnerID := deriveWinner(match, sets)
	if stage.IsKnockout() && winnerID == nil {
		return ErrKnockoutTieNotAllowed
	}

	transitioned, err := s.matchRepo.Complete(ctx, exec, match.ID, &score, winnerID, time.Now())
	if err != nil {
		return err
	}
	if !transitioned {
		// Lost a completion race; the other submission owns the
		// consequences. Report current state and change nothing.
		sub.match, err = s.matchRepo.GetByID(ctx, exec, match.ID)
		return err
	}
	now := time.Now()
	match.Score = &score
	match.WinnerID = winnerID
	match.State = models.MatchStateCompleted
	match.CompletedAt = &now
	sub.match = match
	sub.notify(match.TournamentID, EventMatchUpdated, match)

	// Ratings move for every decisive match between two real sides.
	// Ties and byes leave ratings untouched. A rating failure aborts
	// the whole completion so results and ratings never diverge.
	if winnerID != nil && !match.IsBye() {
		if err := s.ratingService.ApplyMatchRating(ctx, exec, match, sets); err != nil {
			return err
		}
	}

	if match.GroupID != nil {
		if err := s.onGroupMatchCompleted(ctx, exec, sub, match); err != nil {
			return err
		}
	}
	if stage.IsKnockout() && winnerID != nil {
		if err := s.onKnockoutMatchCompleted(ctx, exec, sub, match, *winnerID); err != nil {
			return err
		}
	}
	return nil
}

// editCompleted rewrites the score and winner of an already-completed
// match. An identical resubmission is a pure no-op. A changed result
// deliberately does not re-run advancement or ratings: by the time an
// edit arrives, downstream matches may already be decided.
func (s *matchService) editCompleted(ctx context.Context, exec repositories.SQLExecutor, sub *submission, match *models.Match, score string, sets []models.SetScore) error {
	if match.Score != nil && *match.Score == score {
		sub.match = match
		return nil
	}

	stage, err := s.stageRepo.GetByID(ctx, exec, match.StageID)
	if err != nil {
		return err
	}
	winnerID := deriveWinner(match, sets)
	if stage.IsKnockout() && winnerID == nil {
		return ErrKnockoutTieNotAllowed
	}

	if err := s.matchRepo.UpdateScoreWinner(ctx, exec, match.ID, &score, winnerID); err != nil {
		return err
	}
	s.logger.Warn("completed match edited; downstream progression and ratings not revisited",
		slog.Int("match_id", match.ID))

	match.Score = &score
	match.WinnerID = winnerID
	sub.match = match
	sub.notify(match.TournamentID, EventMatchUpdated, match)
	return nil
}

// onGroupMatchCompleted closes the group when its last match completes,
// resolves the group's qualifier placeholders, and builds the final
// stage bracket once every group of the stage is done. MarkCompleted is
// guarded, so exactly one submission runs these consequences.
func (s *matchService) onGroupMatchCompleted(ctx context.Context, exec repositories.SQLExecutor, sub *submission, match *models.Match) error {
	groupID := *match.GroupID

	pending, err := s.matchRepo.CountPendingByGroup(ctx, exec, groupID)
	if err != nil {
		return err
	}
	sub.notify(match.TournamentID, EventStandingsUpdated, map[string]int{"group_id": groupID})
	if pending > 0 {
		return nil
	}

	transitioned, err := s.groupRepo.MarkCompleted(ctx, exec, groupID)
	if err != nil {
		return err
	}
	if !transitioned {
		return nil
	}

	group, err := s.groupRepo.GetByID(ctx, exec, groupID)
	if err != nil {
		return err
	}
	tournament, err := s.tournamentRepo.GetByID(ctx, exec, match.TournamentID)
	if err != nil {
		return err
	}

	if err := s.bracketService.ResolveGroupQualifiers(ctx, exec, tournament, group); err != nil {
		return err
	}
	sub.notify(match.TournamentID, EventGroupsUpdated, map[string]interface{}{
		"group_id": groupID,
		"state":    models.GroupStateCompleted,
	})

	siblings, err := s.groupRepo.ListByStage(ctx, exec, group.StageID)
	if err != nil {
		return err
	}
	for _, g := range siblings {
		if g.ID != groupID && g.State != models.GroupStateCompleted {
			return nil
		}
	}

	bracket, err := s.bracketService.BuildFinalStage(ctx, exec, tournament)
	if err != nil {
		return err
	}
	sub.notify(match.TournamentID, EventMatchesGenerated, map[string]int{"matches": len(bracket)})
	return nil
}

// onKnockoutMatchCompleted propagates the winner downstream and, when
// the completed match is the Final, records the tournament placements.
func (s *matchService) onKnockoutMatchCompleted(ctx context.Context, exec repositories.SQLExecutor, sub *submission, match *models.Match, winnerID int) error {
	advanced, err := advanceWinnerCascade(ctx, exec, s.matchRepo, match.ID, winnerID)
	if err != nil {
		return err
	}
	for _, m := range advanced {
		sub.notify(match.TournamentID, EventMatchUpdated, m)
	}

	dependents, err := s.matchRepo.FindDependent(ctx, exec, match.ID)
	if err != nil {
		return err
	}
	if len(dependents) > 0 {
		return nil
	}

	// No consumer: this was the Final.
	runnerUpID := match.LoserID()
	if runnerUpID == nil {
		return fmt.Errorf("final match %d has no resolvable runner-up", match.ID)
	}
	if err := s.tournamentRepo.SetPlacements(ctx, exec, match.TournamentID, winnerID, *runnerUpID); err != nil {
		return err
	}
	if err := s.tournamentRepo.UpdateStatus(ctx, exec, match.TournamentID, models.TournamentStatusCompleted); err != nil {
		return err
	}
	sub.notify(match.TournamentID, EventTournamentUpdated, map[string]interface{}{
		"status":                   models.TournamentStatusCompleted,
		"winner_participant_id":    winnerID,
		"runner_up_participant_id": *runnerUpID,
	})

	s.queuePlacementEmails(ctx, exec, sub, match.TournamentID, winnerID, *runnerUpID)
	return nil
}

// queuePlacementEmails stages congratulation notices for the finalists.
// Delivery is best-effort; a lookup failure only logs.
func (s *matchService) queuePlacementEmails(ctx context.Context, exec repositories.SQLExecutor, sub *submission, tournamentID, winnerID, runnerUpID int) {
	tournament, err := s.tournamentRepo.GetByID(ctx, exec, tournamentID)
	if err != nil {
		s.logger.Error("placement email: load tournament", slog.Any("error", err))
		return
	}
	queue := func(participantID int, subject, body string) {
		participant, err := s.participantRepo.GetByID(ctx, exec, participantID)
		if err != nil {
			s.logger.Error("placement email: load participant", slog.Any("error", err))
			return
		}
		users, err := s.userRepo.ListByIDs(ctx, exec, participant.UserIDs())
		if err != nil {
			s.logger.Error("placement email: load users", slog.Any("error", err))
			return
		}
		to := make([]string, 0, len(users))
		for _, u := range users {
			if u.Email != "" {
				to = append(to, u.Email)
			}
		}
		if len(to) > 0 {
			sub.emails = append(sub.emails, pendingEmail{to: to, subject: subject, body: body})
		}
	}
	queue(winnerID,
		fmt.Sprintf("You won %s!", tournament.Name),
		fmt.Sprintf("<p>Congratulations, you are the champion of <b>%s</b>.</p>", tournament.Name))
	queue(runnerUpID,
		fmt.Sprintf("Runner-up at %s", tournament.Name),
		fmt.Sprintf("<p>Congratulations on reaching the final of <b>%s</b>.</p>", tournament.Name))
}

// deriveWinner picks the side with more sets won, or nil for a tie.
func deriveWinner(match *models.Match, sets []models.SetScore) *int {
	p1Sets, p2Sets := models.SetsWon(sets)
	switch {
	case p1Sets > p2Sets:
		return match.P1ParticipantID
	case p2Sets > p1Sets:
		return match.P2ParticipantID
	default:
		return nil
	}
}
