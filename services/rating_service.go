package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/courtline/tournament-engine/models"
	"github.com/courtline/tournament-engine/rating"
	"github.com/courtline/tournament-engine/repositories"
)

// RatingService applies the Elo update for a completed match to every
// involved user, inside the caller's transaction. A failure here must
// abort the whole completion so ratings and results never diverge.
type RatingService interface {
	ApplyMatchRating(ctx context.Context, exec repositories.SQLExecutor, match *models.Match, sets []models.SetScore) error
}

type ratingService struct {
	participantRepo repositories.ParticipantRepository
	userRepo        repositories.UserRepository
	logger          *slog.Logger
}

func NewRatingService(
	participantRepo repositories.ParticipantRepository,
	userRepo repositories.UserRepository,
	logger *slog.Logger,
) RatingService {
	return &ratingService{
		participantRepo: participantRepo,
		userRepo:        userRepo,
		logger:          logger,
	}
}

func (s *ratingService) ApplyMatchRating(ctx context.Context, exec repositories.SQLExecutor, match *models.Match, sets []models.SetScore) error {
	if match.WinnerID == nil {
		return fmt.Errorf("match %d has no winner to rate", match.ID)
	}
	loserID := match.LoserID()
	if loserID == nil {
		return fmt.Errorf("match %d has no resolvable loser to rate", match.ID)
	}

	winners, err := s.sideUsers(ctx, exec, *match.WinnerID)
	if err != nil {
		return err
	}
	losers, err := s.sideUsers(ctx, exec, *loserID)
	if err != nil {
		return err
	}

	// Orient set margins from the winner's perspective so dominance is
	// computed the same way regardless of which slot won.
	orientedSets := sets
	if match.P2ParticipantID != nil && *match.P2ParticipantID == *match.WinnerID {
		orientedSets = make([]models.SetScore, len(sets))
		for i, set := range sets {
			orientedSets[i] = models.SetScore{P1: set.P2, P2: set.P1}
		}
	}

	outcome, err := rating.MatchDeltas(ratingsOf(winners), ratingsOf(losers), match.RoundName, orientedSets)
	if err != nil {
		return fmt.Errorf("rating computation for match %d: %w", match.ID, err)
	}

	touched := make(map[string]bool)
	apply := func(users []*models.User, delta float64) error {
		for _, u := range users {
			oldValue := u.Rating
			if oldValue <= 0 {
				oldValue = rating.Baseline
			}
			newValue := oldValue + delta
			newCategory := rating.Category(newValue)
			touched[rating.Letter(u.RatingCategory)] = true
			touched[rating.Letter(newCategory)] = true
			if err := s.userRepo.UpdateRating(ctx, exec, u.ID, newValue, newCategory); err != nil {
				return err
			}
		}
		return nil
	}
	if err := apply(winners, outcome.WinnerDelta); err != nil {
		return err
	}
	if err := apply(losers, outcome.LoserDelta); err != nil {
		return err
	}

	letters := make([]string, 0, len(touched))
	for letter := range touched {
		if letter != "" {
			letters = append(letters, letter)
		}
	}
	if err := s.userRepo.RecomputeRanksForLetters(ctx, exec, letters); err != nil {
		return err
	}

	s.logger.Debug("ratings applied",
		slog.Int("match_id", match.ID),
		slog.Float64("k", outcome.K),
		slog.Float64("winner_delta", outcome.WinnerDelta))
	return nil
}

// sideUsers resolves the users linked to one side's participant. A
// side with zero identifiable users cannot be rated and aborts the
// completion transaction.
func (s *ratingService) sideUsers(ctx context.Context, exec repositories.SQLExecutor, participantID int) ([]*models.User, error) {
	participant, err := s.participantRepo.GetByID(ctx, exec, participantID)
	if err != nil {
		return nil, fmt.Errorf("rating: load participant %d: %w", participantID, err)
	}
	userIDs := participant.UserIDs()
	if len(userIDs) == 0 {
		return nil, fmt.Errorf("rating: %w (participant %d)", rating.ErrNoRatedUsers, participantID)
	}
	users, err := s.userRepo.ListByIDs(ctx, exec, userIDs)
	if err != nil {
		return nil, fmt.Errorf("rating: load users of participant %d: %w", participantID, err)
	}
	if len(users) == 0 {
		return nil, fmt.Errorf("rating: %w (participant %d)", rating.ErrNoRatedUsers, participantID)
	}
	return users, nil
}

func ratingsOf(users []*models.User) []float64 {
	values := make([]float64, len(users))
	for i, u := range users {
		values[i] = u.Rating
	}
	return values
}
