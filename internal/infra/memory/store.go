package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"biblia-question/internal/domain"
)

// Store is an in-memory implementation of the app repositories, used for
// tests and for running the server without Postgres configured.
type Store struct {
	mu           sync.RWMutex
	clock        func() time.Time
	tournaments  map[string]domain.Tournament
	participants map[string]map[string]*domain.Participant
	content      map[string][]domain.DailyContent
	questions    map[string][]domain.Question
	answers      map[string]domain.Answer
	submissions  map[string]domain.ChallengeSubmission
}

func NewStore() *Store {
	return &Store{
		clock:        time.Now,
		tournaments:  make(map[string]domain.Tournament),
		participants: make(map[string]map[string]*domain.Participant),
		content:      make(map[string][]domain.DailyContent),
		questions:    make(map[string][]domain.Question),
		answers:      make(map[string]domain.Answer),
		submissions:  make(map[string]domain.ChallengeSubmission),
	}
}

// NewStoreWithClock is test-only for deterministic timestamps.
func NewStoreWithClock(now func() time.Time) *Store {
	s := NewStore()
	s.clock = now
	return s
}

// PutTournament seeds or replaces a tournament.
func (s *Store) PutTournament(t domain.Tournament) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tournaments[t.ID] = t
}

// PutDailyContent seeds a day's content. At most one entry survives per
// (tournament, week, day); a duplicate replaces the earlier one.
func (s *Store) PutDailyContent(dc domain.DailyContent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing := s.content[dc.TournamentID]
	for i, e := range existing {
		if e.WeekNumber == dc.WeekNumber && e.DayNumber == dc.DayNumber {
			existing[i] = dc
			return
		}
	}
	s.content[dc.TournamentID] = append(existing, dc)
}

// PutQuestion seeds a question.
func (s *Store) PutQuestion(q domain.Question) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.questions[q.TournamentID] = append(s.questions[q.TournamentID], q)
}

// DailyContent returns the content whose release date falls in [from, to),
// or nil when the day has none.
func (s *Store) DailyContent(_ context.Context, tournamentID string, from, to time.Time) (*domain.DailyContent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, dc := range s.content[tournamentID] {
		if inWindow(dc.ReleaseDate, from, to) {
			copied := dc
			return &copied, nil
		}
	}
	return nil, nil
}

// DailyQuestions returns the questions released in [from, to), ordered by
// release date then question number.
func (s *Store) DailyQuestions(_ context.Context, tournamentID string, from, to time.Time) ([]domain.Question, error) {
	s.mu.RLock()
	var result []domain.Question
	for _, q := range s.questions[tournamentID] {
		if inWindow(q.ReleaseDate, from, to) {
			result = append(result, q)
		}
	}
	s.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if !result[i].ReleaseDate.Equal(result[j].ReleaseDate) {
			return result[i].ReleaseDate.Before(result[j].ReleaseDate)
		}
		return result[i].QuestionNumber < result[j].QuestionNumber
	})
	return result, nil
}

func (s *Store) CountAnswers(_ context.Context, userID, tournamentID string, from, to time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, a := range s.answers {
		if a.UserID == userID && a.TournamentID == tournamentID && inWindow(a.AnsweredAt, from, to) {
			count++
		}
	}
	return count, nil
}

func (s *Store) DailyAnswers(_ context.Context, userID, tournamentID string, from, to time.Time) ([]domain.Answer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []domain.Answer
	for _, a := range s.answers {
		if a.UserID == userID && a.TournamentID == tournamentID && inWindow(a.AnsweredAt, from, to) {
			result = append(result, a)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].AnsweredAt.Before(result[j].AnsweredAt) })
	return result, nil
}

// SaveAnswer upserts the answer and applies the star delta to the
// participant's total, so an overwrite never double counts.
func (s *Store) SaveAnswer(_ context.Context, answer domain.Answer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	previous := 0
	if old, ok := s.answers[answer.ID]; ok {
		previous = old.StarsEarned
	}
	s.answers[answer.ID] = answer

	if delta := answer.StarsEarned - previous; delta != 0 {
		if p, ok := s.participants[answer.TournamentID][answer.UserID]; ok {
			p.TotalStars += delta
		}
	}
	return nil
}

func (s *Store) Tournament(_ context.Context, id string) (domain.Tournament, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tournaments[id]
	if !ok {
		return domain.Tournament{}, domain.ErrTournamentNotFound
	}
	return t, nil
}

func (s *Store) Join(_ context.Context, p domain.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tournaments[p.TournamentID]
	if !ok {
		return domain.ErrTournamentNotFound
	}
	byUser, ok := s.participants[p.TournamentID]
	if !ok {
		byUser = make(map[string]*domain.Participant)
		s.participants[p.TournamentID] = byUser
	}
	if _, ok := byUser[p.UserID]; ok {
		return domain.ErrAlreadyJoined
	}

	copied := p
	byUser[p.UserID] = &copied
	t.ParticipantCount++
	s.tournaments[p.TournamentID] = t
	return nil
}

func (s *Store) Participant(_ context.Context, tournamentID, userID string) (domain.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.participants[tournamentID][userID]
	if !ok {
		return domain.Participant{}, domain.ErrParticipantNotFound
	}
	return *p, nil
}

func (s *Store) Ranking(_ context.Context, tournamentID string, limit int) ([]domain.LeaderboardEntry, int, error) {
	s.mu.RLock()
	ordered := s.orderedParticipantsLocked(tournamentID)
	s.mu.RUnlock()

	total := len(ordered)
	entries := make([]domain.LeaderboardEntry, 0, total)
	for i, p := range ordered {
		if limit > 0 && i >= limit {
			break
		}
		entries = append(entries, domain.LeaderboardEntry{
			Rank:        i + 1,
			UserID:      p.UserID,
			DisplayName: p.DisplayName,
			TotalStars:  p.TotalStars,
		})
	}
	return entries, total, nil
}

func (s *Store) UserRank(_ context.Context, tournamentID, userID string) (int, int, error) {
	s.mu.RLock()
	ordered := s.orderedParticipantsLocked(tournamentID)
	s.mu.RUnlock()

	for i, p := range ordered {
		if p.UserID == userID {
			return i + 1, p.TotalStars, nil
		}
	}
	return 0, 0, domain.ErrParticipantNotFound
}

func (s *Store) ListActive(_ context.Context) ([]domain.Tournament, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var active []domain.Tournament
	for _, t := range s.tournaments {
		if t.Status == domain.TournamentActive {
			active = append(active, t)
		}
	}
	return active, nil
}

func (s *Store) ActivateDue(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, t := range s.tournaments {
		if t.Status == domain.TournamentUpcoming && !t.StartDate.After(now) {
			t.Status = domain.TournamentActive
			t.UpdatedAt = now
			s.tournaments[id] = t
			n++
		}
	}
	return n, nil
}

func (s *Store) CompleteEnded(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, t := range s.tournaments {
		if t.Status == domain.TournamentActive && t.EndDate.Before(now) {
			t.Status = domain.TournamentCompleted
			t.UpdatedAt = now
			s.tournaments[id] = t
			n++
		}
	}
	return n, nil
}

// RecomputeRanks reassigns ranks and rebuilds the per-week star breakdown
// from the stored answers.
func (s *Store) RecomputeRanks(_ context.Context, tournamentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	weekOf := make(map[string]int, len(s.questions[tournamentID]))
	for _, q := range s.questions[tournamentID] {
		weekOf[q.ID] = q.WeekNumber
	}

	weekly := make(map[string]map[string]int)
	for _, a := range s.answers {
		if a.TournamentID != tournamentID || a.StarsEarned == 0 {
			continue
		}
		week, ok := weekOf[a.QuestionID]
		if !ok {
			continue
		}
		if weekly[a.UserID] == nil {
			weekly[a.UserID] = make(map[string]int)
		}
		weekly[a.UserID][fmt.Sprintf("week%d", week)] += a.StarsEarned
	}

	ordered := s.orderedParticipantsLocked(tournamentID)
	for i, p := range ordered {
		p.Rank = i + 1
		if w, ok := weekly[p.UserID]; ok {
			p.WeeklyStars = w
		}
	}
	return nil
}

// orderedParticipantsLocked sorts by stars desc, then earliest join, then name.
func (s *Store) orderedParticipantsLocked(tournamentID string) []*domain.Participant {
	byUser := s.participants[tournamentID]
	ordered := make([]*domain.Participant, 0, len(byUser))
	for _, p := range byUser {
		ordered = append(ordered, p)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].TotalStars != ordered[j].TotalStars {
			return ordered[i].TotalStars > ordered[j].TotalStars
		}
		if !ordered[i].JoinedAt.Equal(ordered[j].JoinedAt) {
			return ordered[i].JoinedAt.Before(ordered[j].JoinedAt)
		}
		return ordered[i].DisplayName < ordered[j].DisplayName
	})
	return ordered
}

func (s *Store) SaveSubmission(_ context.Context, sub domain.ChallengeSubmission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submissions[sub.ID] = sub
	return nil
}

func (s *Store) Submission(_ context.Context, id string) (domain.ChallengeSubmission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.submissions[id]
	if !ok {
		return domain.ChallengeSubmission{}, domain.ErrSubmissionNotFound
	}
	return sub, nil
}

func (s *Store) PendingSubmissions(_ context.Context, tournamentID string) ([]domain.ChallengeSubmission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var pending []domain.ChallengeSubmission
	for _, sub := range s.submissions {
		if sub.Status == domain.SubmissionPending && (tournamentID == "" || sub.TournamentID == tournamentID) {
			pending = append(pending, sub)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].SubmittedAt.Before(pending[j].SubmittedAt) })
	return pending, nil
}

func (s *Store) UserSubmissions(_ context.Context, userID string) ([]domain.ChallengeSubmission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []domain.ChallengeSubmission
	for _, sub := range s.submissions {
		if sub.UserID == userID {
			result = append(result, sub)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].SubmittedAt.Before(result[j].SubmittedAt) })
	return result, nil
}

func (s *Store) UserSubmittedBetween(_ context.Context, tournamentID, userID string, from, to time.Time) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sub := range s.submissions {
		if sub.TournamentID == tournamentID && sub.UserID == userID && inWindow(sub.SubmittedAt, from, to) {
			return true, nil
		}
	}
	return false, nil
}

// Review settles a pending submission and applies the star award to the
// participant in the same locked section.
func (s *Store) Review(_ context.Context, id string, approved bool, reviewerID, comment string, stars int, at time.Time) (domain.ChallengeSubmission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.submissions[id]
	if !ok {
		return domain.ChallengeSubmission{}, domain.ErrSubmissionNotFound
	}
	if sub.Status != domain.SubmissionPending {
		return domain.ChallengeSubmission{}, domain.ErrSubmissionReviewed
	}

	if approved {
		sub.Status = domain.SubmissionApproved
		sub.StarsAwarded = stars
		if p, ok := s.participants[sub.TournamentID][sub.UserID]; ok {
			p.TotalStars += stars
		}
	} else {
		sub.Status = domain.SubmissionRejected
	}
	sub.ReviewedBy = reviewerID
	sub.ReviewComment = comment
	reviewedAt := at
	sub.ReviewedAt = &reviewedAt
	s.submissions[id] = sub
	return sub, nil
}

func inWindow(t, from, to time.Time) bool {
	return !t.Before(from) && t.Before(to)
}
