package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courtline/tournament-engine/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fixture wires every service against the in-memory fakes.
type fixture struct {
	tournamentRepo *fakeTournamentRepo
	stageRepo      *fakeStageRepo
	groupRepo      *fakeGroupRepo
	partRepo       *fakeParticipantRepo
	spRepo         *fakeStageParticipantRepo
	matchRepo      *fakeMatchRepo
	userRepo       *fakeUserRepo
	notifier       *recordingNotifier

	bracketService BracketService
	matchService   MatchService
	stageService   StageService

	tournament *models.Tournament
}

// newFixture creates a registration-phase tournament with the given
// stage layout and n registered participants, each backed by one user
// at the baseline rating.
func newFixture(t *testing.T, format TournamentFormat, n, advancePerGroup int, virtualByes bool) *fixture {
	t.Helper()
	f := &fixture{
		tournamentRepo: newFakeTournamentRepo(),
		stageRepo:      newFakeStageRepo(),
		groupRepo:      newFakeGroupRepo(),
		partRepo:       newFakeParticipantRepo(),
		spRepo:         newFakeStageParticipantRepo(),
		matchRepo:      newFakeMatchRepo(),
		userRepo:       newFakeUserRepo(),
		notifier:       &recordingNotifier{},
	}
	logger := testLogger()

	f.tournament = &models.Tournament{
		Name:            "Test Open",
		Status:          models.TournamentStatusRegistration,
		StartDate:       time.Now(),
		AdvancePerGroup: advancePerGroup,
		VirtualByes:     virtualByes,
	}
	require.NoError(t, f.tournamentRepo.Create(context.Background(), nil, f.tournament))
	for _, stage := range stageLayout(f.tournament.ID, format) {
		require.NoError(t, f.stageRepo.Create(context.Background(), nil, stage))
	}

	for i := 1; i <= n; i++ {
		userID := 1000 + i
		f.userRepo.users[userID] = &models.User{
			ID:             userID,
			Email:          fmt.Sprintf("player%d@example.com", i),
			Rating:         models.DefaultRating,
			RatingCategory: "D-",
		}
		uid := userID
		p := &models.Participant{
			TournamentID: f.tournament.ID,
			DisplayName:  fmt.Sprintf("Player %d", i),
			User1ID:      &uid,
		}
		require.NoError(t, f.partRepo.Create(context.Background(), nil, p))
	}

	ratingService := NewRatingService(f.partRepo, f.userRepo, logger)
	f.bracketService = NewBracketService(f.stageRepo, f.groupRepo, f.matchRepo, f.partRepo, f.spRepo, logger)
	f.matchService = NewMatchService(
		fakeTxRunner{}, f.matchRepo, f.stageRepo, f.groupRepo, f.partRepo, f.tournamentRepo, f.userRepo,
		f.bracketService, ratingService, NopAudit{}, f.notifier, nil, logger)
	f.stageService = NewStageService(
		fakeTxRunner{}, f.tournamentRepo, f.stageRepo, f.groupRepo, f.matchRepo, f.partRepo,
		f.spRepo, f.bracketService, NopAudit{}, f.notifier, logger)
	return f
}

// playGroupStage submits every pending group match; the lower
// participant id always wins 6-0,6-0.
func (f *fixture) playGroupStage(t *testing.T) {
	t.Helper()
	for {
		played := false
		for _, m := range f.matchRepo.sorted(func(m *models.Match) bool {
			return m.GroupID != nil && m.State == models.MatchStatePending
		}) {
			score := "6-0,6-0"
			if *m.P2ParticipantID < *m.P1ParticipantID {
				score = "0-6,0-6"
			}
			_, err := f.matchService.SubmitResult(context.Background(), m.ID, score, nil)
			require.NoError(t, err)
			played = true
		}
		if !played {
			return
		}
	}
}

func TestSubmitResultCompletesGroupMatch(t *testing.T) {
	f := newFixture(t, FormatGroupsKnockout, 8, 2, false)
	_, err := f.stageService.GenerateGroups(context.Background(), f.tournament.ID, 2, nil)
	require.NoError(t, err)

	pending := f.matchRepo.sorted(func(m *models.Match) bool { return m.State == models.MatchStatePending })
	require.NotEmpty(t, pending)
	target := pending[0]

	match, err := f.matchService.SubmitResult(context.Background(), target.ID, "6-4,6-2", nil)
	require.NoError(t, err)

	assert.Equal(t, models.MatchStateCompleted, match.State)
	require.NotNil(t, match.WinnerID)
	assert.Equal(t, *target.P1ParticipantID, *match.WinnerID)
	require.NotNil(t, match.Score)
	assert.Equal(t, "6-4,6-2", *match.Score)
	assert.True(t, f.notifier.has(EventMatchUpdated))
	assert.True(t, f.notifier.has(EventStandingsUpdated))
}

func TestSubmitResultMovesRatings(t *testing.T) {
	f := newFixture(t, FormatGroupsKnockout, 8, 2, false)
	_, err := f.stageService.GenerateGroups(context.Background(), f.tournament.ID, 2, nil)
	require.NoError(t, err)

	target := f.matchRepo.sorted(func(m *models.Match) bool { return m.State == models.MatchStatePending })[0]
	winner, _ := f.partRepo.GetByID(context.Background(), nil, *target.P1ParticipantID)
	loser, _ := f.partRepo.GetByID(context.Background(), nil, *target.P2ParticipantID)

	_, err = f.matchService.SubmitResult(context.Background(), target.ID, "6-0,6-0", nil)
	require.NoError(t, err)

	winnerUser := f.userRepo.users[*winner.User1ID]
	loserUser := f.userRepo.users[*loser.User1ID]
	assert.Greater(t, winnerUser.Rating, models.DefaultRating)
	assert.Less(t, loserUser.Rating, models.DefaultRating)
	assert.Positive(t, f.userRepo.recomputeCalls)
}

func TestSubmitResultIdenticalResubmissionIsNoOp(t *testing.T) {
	f := newFixture(t, FormatGroupsKnockout, 8, 2, false)
	_, err := f.stageService.GenerateGroups(context.Background(), f.tournament.ID, 2, nil)
	require.NoError(t, err)

	target := f.matchRepo.sorted(func(m *models.Match) bool { return m.State == models.MatchStatePending })[0]
	winner, _ := f.partRepo.GetByID(context.Background(), nil, *target.P1ParticipantID)

	first, err := f.matchService.SubmitResult(context.Background(), target.ID, "6-0,6-0", nil)
	require.NoError(t, err)
	ratingAfterFirst := f.userRepo.users[*winner.User1ID].Rating

	second, err := f.matchService.SubmitResult(context.Background(), target.ID, "6-0,6-0", nil)
	require.NoError(t, err)

	assert.Equal(t, first.State, second.State)
	assert.Equal(t, *first.WinnerID, *second.WinnerID)
	// No double rating application.
	assert.Equal(t, ratingAfterFirst, f.userRepo.users[*winner.User1ID].Rating)
}

func TestSubmitResultEditRewritesWithoutReprocessing(t *testing.T) {
	f := newFixture(t, FormatGroupsKnockout, 8, 2, false)
	_, err := f.stageService.GenerateGroups(context.Background(), f.tournament.ID, 2, nil)
	require.NoError(t, err)

	target := f.matchRepo.sorted(func(m *models.Match) bool { return m.State == models.MatchStatePending })[0]
	winner, _ := f.partRepo.GetByID(context.Background(), nil, *target.P1ParticipantID)

	_, err = f.matchService.SubmitResult(context.Background(), target.ID, "6-0,6-0", nil)
	require.NoError(t, err)
	ratingAfterFirst := f.userRepo.users[*winner.User1ID].Rating

	// Edit flips the result: the score and winner change, ratings stay.
	edited, err := f.matchService.SubmitResult(context.Background(), target.ID, "0-6,0-6", nil)
	require.NoError(t, err)

	require.NotNil(t, edited.WinnerID)
	assert.Equal(t, *target.P2ParticipantID, *edited.WinnerID)
	assert.Equal(t, models.MatchStateCompleted, edited.State)
	assert.Equal(t, ratingAfterFirst, f.userRepo.users[*winner.User1ID].Rating)
}

func TestSubmitResultRejectsGarbageScore(t *testing.T) {
	f := newFixture(t, FormatGroupsKnockout, 8, 2, false)
	_, err := f.matchService.SubmitResult(context.Background(), 1, "not-a-score", nil)
	assert.ErrorIs(t, err, ErrScoreInvalid)
}

func TestSubmitResultUnknownMatch(t *testing.T) {
	f := newFixture(t, FormatGroupsKnockout, 8, 2, false)
	_, err := f.matchService.SubmitResult(context.Background(), 999, "6-0,6-0", nil)
	assert.ErrorIs(t, err, ErrMatchNotFound)
}

func TestSubmitResultUnresolvedSlotRejected(t *testing.T) {
	f := newFixture(t, FormatGroupsKnockout, 8, 2, false)
	elim, err := f.stageRepo.FindByKind(context.Background(), nil, f.tournament.ID, models.StageKindElimination)
	require.NoError(t, err)

	p1 := 1
	src := 41
	waiting := &models.Match{
		TournamentID:    f.tournament.ID,
		StageID:         elim.ID,
		Round:           2,
		RoundName:       "Final",
		P1ParticipantID: &p1,
		P2SourceMatchID: &src,
		State:           models.MatchStatePending,
	}
	require.NoError(t, f.matchRepo.Create(context.Background(), nil, waiting))

	_, err = f.matchService.SubmitResult(context.Background(), waiting.ID, "6-0,6-0", nil)
	assert.ErrorIs(t, err, ErrMatchSlotsUnresolved)
}

func TestSubmitResultKnockoutTieRejected(t *testing.T) {
	f := newFixture(t, FormatGroupsKnockout, 8, 2, false)
	elim, err := f.stageRepo.FindByKind(context.Background(), nil, f.tournament.ID, models.StageKindElimination)
	require.NoError(t, err)

	p1, p2 := 1, 2
	m := &models.Match{
		TournamentID:    f.tournament.ID,
		StageID:         elim.ID,
		Round:           1,
		RoundName:       "Semi Finals",
		P1ParticipantID: &p1,
		P2ParticipantID: &p2,
		State:           models.MatchStatePending,
	}
	require.NoError(t, f.matchRepo.Create(context.Background(), nil, m))

	_, err = f.matchService.SubmitResult(context.Background(), m.ID, "6-4,4-6", nil)
	assert.ErrorIs(t, err, ErrKnockoutTieNotAllowed)
}

func TestGroupMatchMayTie(t *testing.T) {
	f := newFixture(t, FormatGroupsKnockout, 8, 2, false)
	_, err := f.stageService.GenerateGroups(context.Background(), f.tournament.ID, 2, nil)
	require.NoError(t, err)

	target := f.matchRepo.sorted(func(m *models.Match) bool { return m.State == models.MatchStatePending })[0]
	winnerBefore := f.userRepo.users[1001].Rating

	match, err := f.matchService.SubmitResult(context.Background(), target.ID, "6-4,4-6", nil)
	require.NoError(t, err)

	assert.Nil(t, match.WinnerID)
	assert.Equal(t, models.MatchStateCompleted, match.State)
	// Ties leave ratings untouched.
	assert.Equal(t, winnerBefore, f.userRepo.users[1001].Rating)
}
