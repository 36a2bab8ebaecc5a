package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"biblia-question/internal/domain"
)

// ContentLoader fetches daily content from the backing store on cache miss.
type ContentLoader interface {
	DailyContent(ctx context.Context, tournamentID string, from, to time.Time) (*domain.DailyContent, error)
	DailyQuestions(ctx context.Context, tournamentID string, from, to time.Time) ([]domain.Question, error)
}

// ContentCache caches one day's content and questions per tournament in
// Redis as a single JSON payload:
//
//	SET daily:{tournamentID}:{yyyy-mm-dd} {json} EX ttl
//
// Every player of a tournament replays the same day, so one loader round
// trip serves them all; singleflight keeps a cold day from stampeding the
// backing store.
type ContentCache struct {
	client *redis.Client
	loader ContentLoader
	ttl    time.Duration
	sf     singleflight.Group
}

type dailyPayload struct {
	Content   *domain.DailyContent `json:"content"`
	Questions []domain.Question    `json:"questions"`
}

func NewContentCache(client *redis.Client, loader ContentLoader, ttl time.Duration) *ContentCache {
	return &ContentCache{
		client: client,
		loader: loader,
		ttl:    ttl,
	}
}

func (c *ContentCache) DailyContent(ctx context.Context, tournamentID string, from, to time.Time) (*domain.DailyContent, error) {
	payload, err := c.day(ctx, tournamentID, from, to)
	if err != nil {
		return nil, err
	}
	return payload.Content, nil
}

func (c *ContentCache) DailyQuestions(ctx context.Context, tournamentID string, from, to time.Time) ([]domain.Question, error) {
	payload, err := c.day(ctx, tournamentID, from, to)
	if err != nil {
		return nil, err
	}
	return payload.Questions, nil
}

func (c *ContentCache) day(ctx context.Context, tournamentID string, from, to time.Time) (dailyPayload, error) {
	key := c.key(tournamentID, from)

	if payload, ok := c.cached(ctx, key); ok {
		return payload, nil
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		// Re-check in case another goroutine filled it.
		if payload, ok := c.cached(ctx, key); ok {
			return payload, nil
		}

		content, err := c.loader.DailyContent(ctx, tournamentID, from, to)
		if err != nil {
			return dailyPayload{}, err
		}
		questions, err := c.loader.DailyQuestions(ctx, tournamentID, from, to)
		if err != nil {
			return dailyPayload{}, err
		}

		payload := dailyPayload{Content: content, Questions: questions}
		if raw, err := json.Marshal(payload); err == nil {
			_ = c.client.Set(ctx, key, raw, c.ttlWithJitter()).Err()
		}
		return payload, nil
	})
	if err != nil {
		return dailyPayload{}, err
	}
	return result.(dailyPayload), nil
}

func (c *ContentCache) cached(ctx context.Context, key string) (dailyPayload, bool) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return dailyPayload{}, false
	}
	var payload dailyPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return dailyPayload{}, false
	}
	return payload, true
}

func (c *ContentCache) key(tournamentID string, day time.Time) string {
	return "daily:" + tournamentID + ":" + day.Format("2006-01-02")
}

func (c *ContentCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations; the top-level source is
	// safe for concurrent singleflight fills
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(rand.Int63n(jitterMax+1))
}
