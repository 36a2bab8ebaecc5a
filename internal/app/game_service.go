package app

import (
	"context"
	"log"
	"strings"
	"time"

	"biblia-question/internal/domain"
)

// expectedDailyAnswers is the full daily set: four normal questions plus
// one extra. A user at or past this count has completed the day.
const expectedDailyAnswers = 5

// ContentRepository loads the day's content (from cache/backing store).
type ContentRepository interface {
	DailyContent(ctx context.Context, tournamentID string, from, to time.Time) (*domain.DailyContent, error)
	DailyQuestions(ctx context.Context, tournamentID string, from, to time.Time) ([]domain.Question, error)
}

// AnswerRepository persists answer facts. SaveAnswer must be an idempotent
// upsert keyed by the answer's deterministic ID, and must keep the
// participant's star total consistent with the stored record.
type AnswerRepository interface {
	CountAnswers(ctx context.Context, userID, tournamentID string, from, to time.Time) (int, error)
	DailyAnswers(ctx context.Context, userID, tournamentID string, from, to time.Time) ([]domain.Answer, error)
	SaveAnswer(ctx context.Context, answer domain.Answer) error
}

// TournamentRepository manages tournaments, enrollment and standings.
type TournamentRepository interface {
	Tournament(ctx context.Context, id string) (domain.Tournament, error)
	Join(ctx context.Context, p domain.Participant) error
	Participant(ctx context.Context, tournamentID, userID string) (domain.Participant, error)
	Ranking(ctx context.Context, tournamentID string, limit int) ([]domain.LeaderboardEntry, int, error)
	UserRank(ctx context.Context, tournamentID, userID string) (rank, stars int, err error)
	ListActive(ctx context.Context) ([]domain.Tournament, error)
	ActivateDue(ctx context.Context, now time.Time) (int, error)
	CompleteEnded(ctx context.Context, now time.Time) (int, error)
	RecomputeRanks(ctx context.Context, tournamentID string) error
}

// ChallengeLookup is the narrow read side of challenge submissions that
// the gameplay flow needs.
type ChallengeLookup interface {
	UserSubmittedBetween(ctx context.Context, tournamentID, userID string, from, to time.Time) (bool, error)
}

// GameService drives one user through one day's content: it decides the
// starting phase, scores answers and feeds the leaderboard.
type GameService struct {
	tournaments TournamentRepository
	content     ContentRepository
	answers     AnswerRepository
	challenges  ChallengeLookup
	clock       func() time.Time
	onStars     func(tournamentID string)
}

func NewGameService(tournaments TournamentRepository, content ContentRepository, answers AnswerRepository, challenges ChallengeLookup) *GameService {
	return &GameService{
		tournaments: tournaments,
		content:     content,
		answers:     answers,
		challenges:  challenges,
		clock:       time.Now,
	}
}

// NewGameServiceWithClock is test-only for deterministic day windows.
func NewGameServiceWithClock(tournaments TournamentRepository, content ContentRepository, answers AnswerRepository, challenges ChallengeLookup, now func() time.Time) *GameService {
	s := NewGameService(tournaments, content, answers, challenges)
	s.clock = now
	return s
}

// NotifyStars registers a callback invoked after a persisted star change,
// typically to refresh the live leaderboard.
func (g *GameService) NotifyStars(fn func(tournamentID string)) {
	g.onStars = fn
}

// StartSession resolves the phase a user starts today's run in. Read
// failures degrade to the completed phase so the caller is never left on
// a loading screen; the failure is logged, not surfaced.
func (g *GameService) StartSession(ctx context.Context, tournamentID, userID string) SessionState {
	state := SessionState{TournamentID: tournamentID, UserID: userID, Phase: PhaseLoading}
	from, to := dayWindow(g.clock())

	count, err := g.answers.CountAnswers(ctx, userID, tournamentID, from, to)
	if err != nil {
		log.Printf("count answers for %s/%s: %v", tournamentID, userID, err)
		state.Phase = PhaseCompleted
		return state
	}
	if count >= expectedDailyAnswers {
		state.Phase = PhaseCompleted
		return state
	}

	content, err := g.content.DailyContent(ctx, tournamentID, from, to)
	if err != nil {
		log.Printf("load daily content for %s: %v", tournamentID, err)
		state.Phase = PhaseCompleted
		return state
	}
	state.Content = content

	questions, err := g.content.DailyQuestions(ctx, tournamentID, from, to)
	if err != nil {
		log.Printf("load daily questions for %s: %v", tournamentID, err)
		state.Phase = PhaseCompleted
		return state
	}
	for _, q := range questions {
		if err := q.Validate(); err != nil {
			log.Printf("skipping question %s: %v", q.ID, err)
			continue
		}
		state.Questions = append(state.Questions, q)
	}

	if len(state.Questions) == 0 {
		state.Phase = PhaseCompleted
	} else {
		state.Phase = PhaseBibleVerse
	}
	return state
}

// SubmitAnswer scores the current question's selected option and persists
// the answer. The persisted record is keyed by (user, question) so a
// resubmission overwrites rather than duplicates. A write failure is
// logged and the session still advances.
func (g *GameService) SubmitAnswer(ctx context.Context, state SessionState) (SessionState, domain.AnswerOutcome, error) {
	if state.Phase != PhaseQuestion || state.ShowResult {
		return state, domain.AnswerOutcome{}, domain.ErrInvalidTransition
	}
	if state.Selected == "" {
		return state, domain.AnswerOutcome{}, domain.ErrNoSelection
	}
	question, ok := state.CurrentQuestion()
	if !ok {
		return state, domain.AnswerOutcome{}, domain.ErrQuestionNotFound
	}

	isCorrect := strings.EqualFold(state.Selected, question.CorrectAnswer)
	stars := 0
	if isCorrect {
		stars = question.StarValue()
	}
	outcome := domain.AnswerOutcome{
		QuestionID:    question.ID,
		IsCorrect:     isCorrect,
		CorrectAnswer: question.CorrectAnswer,
		StarsEarned:   stars,
	}

	answer := domain.Answer{
		ID:             domain.AnswerID(state.UserID, question.ID),
		UserID:         state.UserID,
		QuestionID:     question.ID,
		TournamentID:   state.TournamentID,
		SelectedOption: strings.ToUpper(state.Selected),
		IsCorrect:      isCorrect,
		StarsEarned:    stars,
		AnsweredAt:     g.clock(),
	}
	if err := g.answers.SaveAnswer(ctx, answer); err != nil {
		log.Printf("save answer %s: %v", answer.ID, err)
	} else if g.onStars != nil {
		g.onStars(state.TournamentID)
	}

	return state.applyResult(question, outcome), outcome, nil
}

// Tournament returns one tournament by ID.
func (g *GameService) Tournament(ctx context.Context, tournamentID string) (domain.Tournament, error) {
	return g.tournaments.Tournament(ctx, tournamentID)
}

// ActiveTournaments lists the tournaments currently open for play, for
// the discovery screen.
func (g *GameService) ActiveTournaments(ctx context.Context) ([]domain.Tournament, error) {
	return g.tournaments.ListActive(ctx)
}

// JoinTournament enrolls a user. Joining an already-active tournament
// marks the participant for catch-up scoring.
func (g *GameService) JoinTournament(ctx context.Context, tournamentID, userID, displayName string) (domain.Participant, error) {
	t, err := g.tournaments.Tournament(ctx, tournamentID)
	if err != nil {
		return domain.Participant{}, err
	}
	if t.Status == domain.TournamentCompleted {
		return domain.Participant{}, domain.ErrTournamentCompleted
	}
	if t.Status == domain.TournamentActive && !t.LateRegistrationAllowed {
		return domain.Participant{}, domain.ErrRegistrationClosed
	}

	p := domain.Participant{
		TournamentID: tournamentID,
		UserID:       userID,
		DisplayName:  displayName,
		JoinedAt:     g.clock(),
		WeeklyStars:  map[string]int{},
		IsCatchUp:    t.Status == domain.TournamentActive,
	}
	if err := g.tournaments.Join(ctx, p); err != nil {
		return domain.Participant{}, err
	}
	return p, nil
}

// Progress reports today's answered/earned counts for the dashboard.
func (g *GameService) Progress(ctx context.Context, tournamentID, userID string) (domain.DailyProgress, error) {
	from, to := dayWindow(g.clock())

	answers, err := g.answers.DailyAnswers(ctx, userID, tournamentID, from, to)
	if err != nil {
		return domain.DailyProgress{}, err
	}
	questions, err := g.content.DailyQuestions(ctx, tournamentID, from, to)
	if err != nil {
		return domain.DailyProgress{}, err
	}

	progress := domain.DailyProgress{
		QuestionsAnswered: len(answers),
		QuestionsTotal:    len(questions),
	}
	for _, a := range answers {
		progress.StarsEarned += a.StarsEarned
	}
	for _, q := range questions {
		progress.MaxStars += q.StarValue()
	}

	submitted, err := g.challenges.UserSubmittedBetween(ctx, tournamentID, userID, from, to)
	if err != nil {
		// Challenge state is decorative on the dashboard; don't fail progress for it.
		log.Printf("challenge lookup for %s/%s: %v", tournamentID, userID, err)
	}
	progress.ChallengeSubmitted = submitted
	return progress, nil
}

// dayWindow is [start-of-today, start-of-tomorrow) in the service clock's
// location, the tournament's notion of "today".
func dayWindow(now time.Time) (time.Time, time.Time) {
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return start, start.AddDate(0, 0, 1)
}
