package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"biblia-question/internal/domain"
	"biblia-question/internal/infra/memory"
)

var day = time.Date(2025, 8, 11, 0, 0, 0, 0, time.UTC)

type countingLoader struct {
	ContentLoader
	contentCalls  int
	questionCalls int
}

func (l *countingLoader) DailyContent(ctx context.Context, tournamentID string, from, to time.Time) (*domain.DailyContent, error) {
	l.contentCalls++
	return l.ContentLoader.DailyContent(ctx, tournamentID, from, to)
}

func (l *countingLoader) DailyQuestions(ctx context.Context, tournamentID string, from, to time.Time) ([]domain.Question, error) {
	l.questionCalls++
	return l.ContentLoader.DailyQuestions(ctx, tournamentID, from, to)
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func seededLoader() *countingLoader {
	store := memory.NewStore()
	store.PutDailyContent(domain.DailyContent{
		ID:             "dc1",
		TournamentID:   "t1",
		WeekNumber:     1,
		DayNumber:      1,
		BibleReference: "Genesis 1:1",
		ReleaseDate:    day,
	})
	store.PutQuestion(domain.Question{
		ID:             "q1",
		TournamentID:   "t1",
		QuestionNumber: 1,
		Options:        []domain.Option{{ID: "A"}, {ID: "B"}},
		CorrectAnswer:  "A",
		ReleaseDate:    day,
	})
	return &countingLoader{ContentLoader: store}
}

func TestContentCacheServesFromRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	loader := seededLoader()
	cache := NewContentCache(newClient(mr), loader, time.Minute)
	ctx := context.Background()
	to := day.AddDate(0, 0, 1)

	dc, err := cache.DailyContent(ctx, "t1", day, to)
	if err != nil {
		t.Fatalf("daily content: %v", err)
	}
	if dc == nil || dc.BibleReference != "Genesis 1:1" {
		t.Fatalf("unexpected content: %+v", dc)
	}
	if loader.contentCalls != 1 {
		t.Fatalf("expected one loader call, got %d", loader.contentCalls)
	}

	// The questions of the same day ride on the cached payload.
	qs, err := cache.DailyQuestions(ctx, "t1", day, to)
	if err != nil {
		t.Fatalf("daily questions: %v", err)
	}
	if len(qs) != 1 || qs[0].ID != "q1" {
		t.Fatalf("unexpected questions: %+v", qs)
	}
	if loader.contentCalls != 1 || loader.questionCalls != 1 {
		t.Fatalf("expected cache hit, got content=%d questions=%d", loader.contentCalls, loader.questionCalls)
	}

	if !mr.Exists("daily:t1:2025-08-11") {
		t.Fatalf("expected day key in redis")
	}
}

func TestContentCacheCachesEmptyDay(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	loader := &countingLoader{ContentLoader: memory.NewStore()}
	cache := NewContentCache(newClient(mr), loader, time.Minute)
	ctx := context.Background()
	to := day.AddDate(0, 0, 1)

	for i := 0; i < 2; i++ {
		dc, err := cache.DailyContent(ctx, "t-empty", day, to)
		if err != nil {
			t.Fatalf("daily content: %v", err)
		}
		if dc != nil {
			t.Fatalf("expected nil content for empty day, got %+v", dc)
		}
	}
	if loader.contentCalls != 1 {
		t.Fatalf("an empty day must still be cached, loader calls=%d", loader.contentCalls)
	}
}

func TestContentCacheDifferentDaysDifferentKeys(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	loader := seededLoader()
	cache := NewContentCache(newClient(mr), loader, time.Minute)
	ctx := context.Background()

	if _, err := cache.DailyContent(ctx, "t1", day, day.AddDate(0, 0, 1)); err != nil {
		t.Fatalf("day one: %v", err)
	}
	nextDay := day.AddDate(0, 0, 1)
	if _, err := cache.DailyContent(ctx, "t1", nextDay, nextDay.AddDate(0, 0, 1)); err != nil {
		t.Fatalf("day two: %v", err)
	}
	if loader.contentCalls != 2 {
		t.Fatalf("expected a load per day, got %d", loader.contentCalls)
	}
}
