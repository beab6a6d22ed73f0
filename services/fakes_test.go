package services

import (
	"context"
	"sort"
	"time"

	"github.com/courtline/tournament-engine/models"
	"github.com/courtline/tournament-engine/repositories"
)

// The fakes below implement the repository interfaces over plain maps
// so the services can be exercised without a database. Guarded updates
// mirror the SQL semantics: a transition happens at most once.

type fakeTxRunner struct{}

func (fakeTxRunner) RunInTx(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error {
	return fn(nil)
}

type fakeTournamentRepo struct {
	nextID      int
	tournaments map[int]*models.Tournament
}

func newFakeTournamentRepo() *fakeTournamentRepo {
	return &fakeTournamentRepo{tournaments: map[int]*models.Tournament{}}
}

func (r *fakeTournamentRepo) Create(_ context.Context, _ repositories.SQLExecutor, t *models.Tournament) error {
	for _, existing := range r.tournaments {
		if existing.Name == t.Name {
			return repositories.ErrTournamentNameConflict
		}
	}
	r.nextID++
	t.ID = r.nextID
	t.CreatedAt = time.Now()
	r.tournaments[t.ID] = t
	return nil
}

func (r *fakeTournamentRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Tournament, error) {
	t, ok := r.tournaments[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	copied := *t
	return &copied, nil
}

func (r *fakeTournamentRepo) List(_ context.Context, limit, offset int) ([]*models.Tournament, error) {
	out := make([]*models.Tournament, 0, len(r.tournaments))
	for _, t := range r.tournaments {
		copied := *t
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeTournamentRepo) UpdateStatus(_ context.Context, _ repositories.SQLExecutor, id int, status models.TournamentStatus) error {
	t, ok := r.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.Status = status
	return nil
}

func (r *fakeTournamentRepo) SetPlacements(_ context.Context, _ repositories.SQLExecutor, id int, winnerID, runnerUpID int) error {
	t, ok := r.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	if t.WinnerParticipantID != nil {
		return nil // already recorded, idempotent
	}
	w, ru := winnerID, runnerUpID
	t.WinnerParticipantID = &w
	t.RunnerUpParticipantID = &ru
	t.Status = models.TournamentStatusCompleted
	return nil
}

type fakeStageRepo struct {
	nextID int
	stages map[int]*models.Stage
}

func newFakeStageRepo() *fakeStageRepo {
	return &fakeStageRepo{stages: map[int]*models.Stage{}}
}

func (r *fakeStageRepo) Create(_ context.Context, _ repositories.SQLExecutor, stage *models.Stage) error {
	r.nextID++
	stage.ID = r.nextID
	r.stages[stage.ID] = stage
	return nil
}

func (r *fakeStageRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Stage, error) {
	s, ok := r.stages[id]
	if !ok {
		return nil, repositories.ErrStageNotFound
	}
	copied := *s
	return &copied, nil
}

func (r *fakeStageRepo) ListByTournament(_ context.Context, _ repositories.SQLExecutor, tournamentID int) ([]*models.Stage, error) {
	out := []*models.Stage{}
	for _, s := range r.stages {
		if s.TournamentID == tournamentID {
			copied := *s
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (r *fakeStageRepo) FindByKind(_ context.Context, _ repositories.SQLExecutor, tournamentID int, kind models.StageKind) (*models.Stage, error) {
	for _, s := range r.stages {
		if s.TournamentID == tournamentID && s.Kind == kind {
			copied := *s
			return &copied, nil
		}
	}
	return nil, repositories.ErrStageNotFound
}

func (r *fakeStageRepo) SetCurrent(_ context.Context, _ repositories.SQLExecutor, tournamentID, stageID int) error {
	for _, s := range r.stages {
		if s.TournamentID == tournamentID {
			s.Current = s.ID == stageID
		}
	}
	return nil
}

type fakeGroupRepo struct {
	nextID  int
	groups  map[int]*models.Group
	members map[int][]int
}

func newFakeGroupRepo() *fakeGroupRepo {
	return &fakeGroupRepo{groups: map[int]*models.Group{}, members: map[int][]int{}}
}

func (r *fakeGroupRepo) Create(_ context.Context, _ repositories.SQLExecutor, group *models.Group) error {
	r.nextID++
	group.ID = r.nextID
	if group.State == "" {
		group.State = models.GroupStatePending
	}
	r.groups[group.ID] = group
	return nil
}

func (r *fakeGroupRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Group, error) {
	g, ok := r.groups[id]
	if !ok {
		return nil, repositories.ErrGroupNotFound
	}
	copied := *g
	return &copied, nil
}

func (r *fakeGroupRepo) ListByStage(_ context.Context, _ repositories.SQLExecutor, stageID int) ([]*models.Group, error) {
	out := []*models.Group{}
	for _, g := range r.groups {
		if g.StageID == stageID {
			copied := *g
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out, nil
}

func (r *fakeGroupRepo) MarkCompleted(_ context.Context, _ repositories.SQLExecutor, id int) (bool, error) {
	g, ok := r.groups[id]
	if !ok {
		return false, repositories.ErrGroupNotFound
	}
	if g.State != models.GroupStatePending {
		return false, nil
	}
	g.State = models.GroupStateCompleted
	return true, nil
}

func (r *fakeGroupRepo) AssignParticipant(_ context.Context, _ repositories.SQLExecutor, groupID, participantID int) error {
	r.members[groupID] = append(r.members[groupID], participantID)
	return nil
}

func (r *fakeGroupRepo) ListParticipantIDs(_ context.Context, _ repositories.SQLExecutor, groupID int) ([]int, error) {
	return append([]int{}, r.members[groupID]...), nil
}

type fakeParticipantRepo struct {
	nextID       int
	participants map[int]*models.Participant
}

func newFakeParticipantRepo() *fakeParticipantRepo {
	return &fakeParticipantRepo{participants: map[int]*models.Participant{}}
}

func (r *fakeParticipantRepo) Create(_ context.Context, _ repositories.SQLExecutor, p *models.Participant) error {
	for _, existing := range r.participants {
		if existing.TournamentID == p.TournamentID &&
			existing.User1ID != nil && p.User1ID != nil && *existing.User1ID == *p.User1ID {
			return repositories.ErrParticipantConflict
		}
	}
	r.nextID++
	p.ID = r.nextID
	p.CreatedAt = time.Now()
	r.participants[p.ID] = p
	return nil
}

func (r *fakeParticipantRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Participant, error) {
	p, ok := r.participants[id]
	if !ok {
		return nil, repositories.ErrParticipantNotFound
	}
	copied := *p
	return &copied, nil
}

func (r *fakeParticipantRepo) ListByTournament(_ context.Context, _ repositories.SQLExecutor, tournamentID int) ([]*models.Participant, error) {
	out := []*models.Participant{}
	for _, p := range r.participants {
		if p.TournamentID == tournamentID {
			copied := *p
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeParticipantRepo) ListByIDs(_ context.Context, _ repositories.SQLExecutor, ids []int) ([]*models.Participant, error) {
	out := []*models.Participant{}
	for _, id := range ids {
		if p, ok := r.participants[id]; ok {
			copied := *p
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeParticipantRepo) SetSeed(_ context.Context, _ repositories.SQLExecutor, id, seed int) error {
	p, ok := r.participants[id]
	if !ok {
		return repositories.ErrParticipantSeedConflict
	}
	if p.Seed != nil {
		return repositories.ErrParticipantSeedConflict
	}
	s := seed
	p.Seed = &s
	return nil
}

func (r *fakeParticipantRepo) SetDisqualified(_ context.Context, _ repositories.SQLExecutor, id int) error {
	p, ok := r.participants[id]
	if !ok {
		return repositories.ErrParticipantNotFound
	}
	p.Disqualified = true
	return nil
}

func (r *fakeParticipantRepo) Delete(_ context.Context, id int) error {
	if _, ok := r.participants[id]; !ok {
		return repositories.ErrParticipantNotFound
	}
	delete(r.participants, id)
	return nil
}

type fakeStageParticipantRepo struct {
	nextID       int
	placeholders []*models.StageParticipant
}

func newFakeStageParticipantRepo() *fakeStageParticipantRepo {
	return &fakeStageParticipantRepo{}
}

func (r *fakeStageParticipantRepo) CreateBatch(_ context.Context, _ repositories.SQLExecutor, placeholders []*models.StageParticipant) error {
	for _, sp := range placeholders {
		r.nextID++
		sp.ID = r.nextID
		r.placeholders = append(r.placeholders, sp)
	}
	return nil
}

func (r *fakeStageParticipantRepo) ListByStage(_ context.Context, _ repositories.SQLExecutor, stageID int) ([]*models.StageParticipant, error) {
	out := []*models.StageParticipant{}
	for _, sp := range r.placeholders {
		if sp.StageID == stageID {
			copied := *sp
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out, nil
}

func (r *fakeStageParticipantRepo) find(stageID int, label string) *models.StageParticipant {
	for _, sp := range r.placeholders {
		if sp.StageID == stageID && sp.Label == label {
			return sp
		}
	}
	return nil
}

func (r *fakeStageParticipantRepo) Resolve(_ context.Context, _ repositories.SQLExecutor, stageID int, label string, participantID int) error {
	sp := r.find(stageID, label)
	if sp == nil {
		return repositories.ErrStageParticipantNotFound
	}
	if sp.ParticipantID == nil {
		id := participantID
		sp.ParticipantID = &id
		return nil
	}
	if *sp.ParticipantID == participantID {
		return nil
	}
	return repositories.ErrStageParticipantResolved
}

func (r *fakeStageParticipantRepo) AssignSeed(_ context.Context, _ repositories.SQLExecutor, stageID int, label string, seed int) error {
	sp := r.find(stageID, label)
	if sp == nil {
		return repositories.ErrStageParticipantNotFound
	}
	s := seed
	sp.Seed = &s
	return nil
}

type fakeMatchRepo struct {
	nextID  int
	matches map[int]*models.Match
}

func newFakeMatchRepo() *fakeMatchRepo {
	return &fakeMatchRepo{matches: map[int]*models.Match{}}
}

func (r *fakeMatchRepo) Create(_ context.Context, _ repositories.SQLExecutor, match *models.Match) error {
	r.nextID++
	match.ID = r.nextID
	match.CreatedAt = time.Now()
	if match.State == "" {
		match.State = models.MatchStatePending
	}
	r.matches[match.ID] = match
	return nil
}

func (r *fakeMatchRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Match, error) {
	m, ok := r.matches[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	copied := *m
	return &copied, nil
}

func (r *fakeMatchRepo) sorted(filter func(*models.Match) bool) []*models.Match {
	out := []*models.Match{}
	for _, m := range r.matches {
		if filter(m) {
			copied := *m
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Round != out[j].Round {
			return out[i].Round < out[j].Round
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (r *fakeMatchRepo) ListByTournament(_ context.Context, _ repositories.SQLExecutor, tournamentID int) ([]*models.Match, error) {
	return r.sorted(func(m *models.Match) bool { return m.TournamentID == tournamentID }), nil
}

func (r *fakeMatchRepo) ListByGroup(_ context.Context, _ repositories.SQLExecutor, groupID int) ([]*models.Match, error) {
	return r.sorted(func(m *models.Match) bool { return m.GroupID != nil && *m.GroupID == groupID }), nil
}

func (r *fakeMatchRepo) ListByStage(_ context.Context, _ repositories.SQLExecutor, stageID int) ([]*models.Match, error) {
	return r.sorted(func(m *models.Match) bool { return m.StageID == stageID }), nil
}

func (r *fakeMatchRepo) CountPendingByGroup(_ context.Context, _ repositories.SQLExecutor, groupID int) (int, error) {
	count := 0
	for _, m := range r.matches {
		if m.GroupID != nil && *m.GroupID == groupID && m.State == models.MatchStatePending {
			count++
		}
	}
	return count, nil
}

func (r *fakeMatchRepo) Complete(_ context.Context, _ repositories.SQLExecutor, id int, score *string, winnerID *int, completedAt time.Time) (bool, error) {
	m, ok := r.matches[id]
	if !ok {
		return false, repositories.ErrMatchNotFound
	}
	if m.State != models.MatchStatePending {
		return false, nil
	}
	m.Score = score
	m.WinnerID = winnerID
	m.State = models.MatchStateCompleted
	at := completedAt
	m.CompletedAt = &at
	return true, nil
}

func (r *fakeMatchRepo) UpdateScoreWinner(_ context.Context, _ repositories.SQLExecutor, id int, score *string, winnerID *int) error {
	m, ok := r.matches[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	m.Score = score
	m.WinnerID = winnerID
	return nil
}

func (r *fakeMatchRepo) AdvanceWinner(_ context.Context, _ repositories.SQLExecutor, sourceMatchID, winnerID int) ([]int, error) {
	advanced := []int{}
	for _, m := range r.sorted(func(*models.Match) bool { return true }) {
		stored := r.matches[m.ID]
		if stored.P1SourceMatchID != nil && *stored.P1SourceMatchID == sourceMatchID && stored.P1ParticipantID == nil {
			id := winnerID
			stored.P1ParticipantID = &id
			stored.P1SourceMatchID = nil
			advanced = append(advanced, stored.ID)
		}
		if stored.P2SourceMatchID != nil && *stored.P2SourceMatchID == sourceMatchID && stored.P2ParticipantID == nil {
			id := winnerID
			stored.P2ParticipantID = &id
			stored.P2SourceMatchID = nil
			advanced = append(advanced, stored.ID)
		}
	}
	return advanced, nil
}

func (r *fakeMatchRepo) FindDependent(_ context.Context, _ repositories.SQLExecutor, sourceMatchID int) ([]*models.Match, error) {
	return r.sorted(func(m *models.Match) bool {
		return (m.P1SourceMatchID != nil && *m.P1SourceMatchID == sourceMatchID) ||
			(m.P2SourceMatchID != nil && *m.P2SourceMatchID == sourceMatchID)
	}), nil
}

type fakeUserRepo struct {
	users           map[int]*models.User
	recomputeCalls  int
	recomputedAlpha map[string]bool
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[int]*models.User{}, recomputedAlpha: map[string]bool{}}
}

func (r *fakeUserRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	copied := *u
	return &copied, nil
}

func (r *fakeUserRepo) ListByIDs(_ context.Context, _ repositories.SQLExecutor, ids []int) ([]*models.User, error) {
	out := []*models.User{}
	for _, id := range ids {
		if u, ok := r.users[id]; ok {
			copied := *u
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeUserRepo) UpdateRating(_ context.Context, _ repositories.SQLExecutor, id int, ratingValue float64, category string) error {
	u, ok := r.users[id]
	if !ok {
		return repositories.ErrUserNotFound
	}
	u.Rating = ratingValue
	u.RatingCategory = category
	return nil
}

func (r *fakeUserRepo) RecomputeRanksForLetters(_ context.Context, _ repositories.SQLExecutor, letters []string) error {
	r.recomputeCalls++
	for _, l := range letters {
		r.recomputedAlpha[l] = true
	}
	return nil
}

// recordingNotifier captures emitted events for assertions.
type recordingNotifier struct {
	events []string
}

func (n *recordingNotifier) Notify(tournamentID int, eventType string, payload interface{}) {
	n.events = append(n.events, eventType)
}

func (n *recordingNotifier) has(eventType string) bool {
	for _, e := range n.events {
		if e == eventType {
			return true
		}
	}
	return false
}
