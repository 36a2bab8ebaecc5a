package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"biblia-question/internal/domain"
)

var day = time.Date(2025, 8, 11, 0, 0, 0, 0, time.UTC)

func storeWithTournament() *Store {
	s := NewStore()
	s.PutTournament(domain.Tournament{
		ID:        "t1",
		Status:    domain.TournamentActive,
		StartDate: day.AddDate(0, 0, -1),
		EndDate:   day.AddDate(0, 0, 27),
	})
	return s
}

func TestJoinRejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	s := storeWithTournament()

	p := domain.Participant{TournamentID: "t1", UserID: "u1", DisplayName: "Alice", JoinedAt: day}
	if err := s.Join(ctx, p); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := s.Join(ctx, p); !errors.Is(err, domain.ErrAlreadyJoined) {
		t.Fatalf("expected duplicate error, got %v", err)
	}

	tour, _ := s.Tournament(ctx, "t1")
	if tour.ParticipantCount != 1 {
		t.Fatalf("expected count 1, got %d", tour.ParticipantCount)
	}
}

func TestSaveAnswerUpsertAppliesDelta(t *testing.T) {
	ctx := context.Background()
	s := storeWithTournament()
	_ = s.Join(ctx, domain.Participant{TournamentID: "t1", UserID: "u1", JoinedAt: day})

	first := domain.Answer{
		ID:           domain.AnswerID("u1", "q1"),
		UserID:       "u1",
		QuestionID:   "q1",
		TournamentID: "t1",
		IsCorrect:    true,
		StarsEarned:  3,
		AnsweredAt:   day.Add(time.Hour),
	}
	if err := s.SaveAnswer(ctx, first); err != nil {
		t.Fatalf("save: %v", err)
	}
	p, _ := s.Participant(ctx, "t1", "u1")
	if p.TotalStars != 3 {
		t.Fatalf("expected 3 stars, got %d", p.TotalStars)
	}

	second := first
	second.IsCorrect = false
	second.StarsEarned = 0
	if err := s.SaveAnswer(ctx, second); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	p, _ = s.Participant(ctx, "t1", "u1")
	if p.TotalStars != 0 {
		t.Fatalf("expected delta applied on overwrite, got %d", p.TotalStars)
	}
	if n, _ := s.CountAnswers(ctx, "u1", "t1", day, day.AddDate(0, 0, 1)); n != 1 {
		t.Fatalf("expected 1 record, got %d", n)
	}
}

func TestDailyContentDuplicateDayReplaced(t *testing.T) {
	ctx := context.Background()
	s := storeWithTournament()

	s.PutDailyContent(domain.DailyContent{ID: "a", TournamentID: "t1", WeekNumber: 1, DayNumber: 1, BibleReference: "old", ReleaseDate: day})
	s.PutDailyContent(domain.DailyContent{ID: "b", TournamentID: "t1", WeekNumber: 1, DayNumber: 1, BibleReference: "new", ReleaseDate: day})

	dc, err := s.DailyContent(ctx, "t1", day, day.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("daily content: %v", err)
	}
	if dc == nil || dc.ID != "b" {
		t.Fatalf("expected replacement to win, got %+v", dc)
	}
}

func TestDailyQuestionsOrdered(t *testing.T) {
	ctx := context.Background()
	s := storeWithTournament()
	s.PutQuestion(domain.Question{ID: "q2", TournamentID: "t1", QuestionNumber: 2, ReleaseDate: day})
	s.PutQuestion(domain.Question{ID: "q1", TournamentID: "t1", QuestionNumber: 1, ReleaseDate: day})
	s.PutQuestion(domain.Question{ID: "q0", TournamentID: "t1", QuestionNumber: 9, ReleaseDate: day.AddDate(0, 0, -1)})

	qs, err := s.DailyQuestions(ctx, "t1", day, day.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("daily questions: %v", err)
	}
	if len(qs) != 2 || qs[0].ID != "q1" || qs[1].ID != "q2" {
		t.Fatalf("expected ordered today-only questions, got %+v", qs)
	}
}

func TestRankingTieBreaksByJoinTime(t *testing.T) {
	ctx := context.Background()
	s := storeWithTournament()
	_ = s.Join(ctx, domain.Participant{TournamentID: "t1", UserID: "late", JoinedAt: day.Add(2 * time.Hour)})
	_ = s.Join(ctx, domain.Participant{TournamentID: "t1", UserID: "early", JoinedAt: day})

	entries, total, err := s.Ranking(ctx, "t1", 10)
	if err != nil {
		t.Fatalf("ranking: %v", err)
	}
	if total != 2 || entries[0].UserID != "early" {
		t.Fatalf("expected earliest joiner to win ties, got %+v", entries)
	}
}

func TestTournamentLifecycleUpdates(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	s.PutTournament(domain.Tournament{ID: "up", Status: domain.TournamentUpcoming, StartDate: day, EndDate: day.AddDate(0, 0, 7)})
	s.PutTournament(domain.Tournament{ID: "done", Status: domain.TournamentActive, EndDate: day.Add(-time.Hour)})

	if n, _ := s.ActivateDue(ctx, day); n != 1 {
		t.Fatalf("expected 1 activation, got %d", n)
	}
	// A freshly activated tournament whose end date is still ahead must
	// not be swept up by the completion pass.
	if n, _ := s.CompleteEnded(ctx, day); n != 1 {
		t.Fatalf("expected 1 completion, got %d", n)
	}

	up, _ := s.Tournament(ctx, "up")
	done, _ := s.Tournament(ctx, "done")
	if up.Status != domain.TournamentActive || done.Status != domain.TournamentCompleted {
		t.Fatalf("unexpected statuses: %s, %s", up.Status, done.Status)
	}
}

func TestRecomputeRanksBuildsWeeklyBreakdown(t *testing.T) {
	ctx := context.Background()
	s := storeWithTournament()
	_ = s.Join(ctx, domain.Participant{TournamentID: "t1", UserID: "u1", JoinedAt: day})
	s.PutQuestion(domain.Question{ID: "w1q", TournamentID: "t1", WeekNumber: 1, ReleaseDate: day})
	s.PutQuestion(domain.Question{ID: "w2q", TournamentID: "t1", WeekNumber: 2, ReleaseDate: day.AddDate(0, 0, 7)})

	_ = s.SaveAnswer(ctx, domain.Answer{ID: domain.AnswerID("u1", "w1q"), UserID: "u1", QuestionID: "w1q", TournamentID: "t1", StarsEarned: 2, AnsweredAt: day})
	_ = s.SaveAnswer(ctx, domain.Answer{ID: domain.AnswerID("u1", "w2q"), UserID: "u1", QuestionID: "w2q", TournamentID: "t1", StarsEarned: 3, AnsweredAt: day.AddDate(0, 0, 7)})

	if err := s.RecomputeRanks(ctx, "t1"); err != nil {
		t.Fatalf("recompute: %v", err)
	}
	p, _ := s.Participant(ctx, "t1", "u1")
	if p.Rank != 1 {
		t.Fatalf("expected rank 1, got %d", p.Rank)
	}
	if p.WeeklyStars["week1"] != 2 || p.WeeklyStars["week2"] != 3 {
		t.Fatalf("unexpected weekly breakdown: %v", p.WeeklyStars)
	}
}

func TestReviewOnlySettlesPending(t *testing.T) {
	ctx := context.Background()
	s := storeWithTournament()
	_ = s.Join(ctx, domain.Participant{TournamentID: "t1", UserID: "u1", JoinedAt: day})
	_ = s.SaveSubmission(ctx, domain.ChallengeSubmission{
		ID: "sub1", TournamentID: "t1", UserID: "u1",
		Status: domain.SubmissionPending, SubmittedAt: day,
	})

	sub, err := s.Review(ctx, "sub1", true, "mod", "", 5, day.Add(time.Hour))
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	if sub.Status != domain.SubmissionApproved || sub.StarsAwarded != 5 || sub.ReviewedAt == nil {
		t.Fatalf("unexpected reviewed submission: %+v", sub)
	}
	p, _ := s.Participant(ctx, "t1", "u1")
	if p.TotalStars != 5 {
		t.Fatalf("expected award applied, got %d", p.TotalStars)
	}

	if _, err := s.Review(ctx, "sub1", false, "mod", "", 0, day); !errors.Is(err, domain.ErrSubmissionReviewed) {
		t.Fatalf("expected already-reviewed, got %v", err)
	}
	if _, err := s.Review(ctx, "missing", true, "mod", "", 5, day); !errors.Is(err, domain.ErrSubmissionNotFound) {
		t.Fatalf("expected not-found, got %v", err)
	}
}
