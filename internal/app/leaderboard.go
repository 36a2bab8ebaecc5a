package app

import (
	"context"
	"sync"
	"time"

	"biblia-question/internal/domain"
)

// LeaderboardService builds ranked standings from the tournament store and
// fans live updates out to subscribers. Rankings are eventually consistent:
// readers see the last published snapshot, not a transactional view.
type LeaderboardService struct {
	tournaments TournamentRepository
	limit       int
	clock       func() time.Time

	mu    sync.Mutex
	feeds map[string]*feed
}

type feed struct {
	mu          sync.Mutex
	subscribers map[chan domain.Leaderboard]struct{}
}

func NewLeaderboardService(tournaments TournamentRepository, limit int) *LeaderboardService {
	if limit <= 0 {
		limit = 100
	}
	return &LeaderboardService{
		tournaments: tournaments,
		limit:       limit,
		clock:       time.Now,
		feeds:       make(map[string]*feed),
	}
}

// Leaderboard returns the ranked standings, resolving the requesting
// user's own rank and stars even when they fall outside the listed rows.
func (l *LeaderboardService) Leaderboard(ctx context.Context, tournamentID, userID string) (domain.Leaderboard, error) {
	entries, total, err := l.tournaments.Ranking(ctx, tournamentID, l.limit)
	if err != nil {
		return domain.Leaderboard{}, err
	}

	lb := domain.Leaderboard{
		TournamentID:      tournamentID,
		Entries:           entries,
		TotalParticipants: total,
		UpdatedAt:         l.clock(),
	}

	if userID != "" {
		for _, e := range entries {
			if e.UserID == userID {
				lb.UserRank = e.Rank
				lb.UserStars = e.TotalStars
				return lb, nil
			}
		}
		rank, stars, err := l.tournaments.UserRank(ctx, tournamentID, userID)
		if err == nil {
			lb.UserRank = rank
			lb.UserStars = stars
		}
	}
	return lb, nil
}

// Refresh reads the current standings and pushes them to subscribers.
// Used after star-changing writes and by the periodic rank job.
func (l *LeaderboardService) Refresh(ctx context.Context, tournamentID string) (domain.Leaderboard, error) {
	lb, err := l.Leaderboard(ctx, tournamentID, "")
	if err != nil {
		return domain.Leaderboard{}, err
	}
	l.publish(tournamentID, lb)
	return lb, nil
}

// Subscribe returns a channel receiving standings snapshots for a
// tournament, primed with the current one. The caller must invoke the
// returned cancel function on teardown to avoid leaks.
func (l *LeaderboardService) Subscribe(ctx context.Context, tournamentID string) (<-chan domain.Leaderboard, func(), error) {
	initial, err := l.Leaderboard(ctx, tournamentID, "")
	if err != nil {
		return nil, nil, err
	}

	f := l.feed(tournamentID)
	ch := make(chan domain.Leaderboard, 8)

	f.mu.Lock()
	f.subscribers[ch] = struct{}{}
	f.mu.Unlock()

	ch <- initial

	cancel := func() {
		f.mu.Lock()
		if _, ok := f.subscribers[ch]; ok {
			delete(f.subscribers, ch)
			close(ch)
		}
		f.mu.Unlock()
	}
	return ch, cancel, nil
}

func (l *LeaderboardService) feed(tournamentID string) *feed {
	l.mu.Lock()
	defer l.mu.Unlock()
	f, ok := l.feeds[tournamentID]
	if !ok {
		f = &feed{subscribers: make(map[chan domain.Leaderboard]struct{})}
		l.feeds[tournamentID] = f
	}
	return f
}

func (l *LeaderboardService) publish(tournamentID string, lb domain.Leaderboard) {
	f := l.feed(tournamentID)
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subscribers {
		select {
		case ch <- lb:
		default:
			// Drop the stale snapshot so a slow reader never blocks broadcast.
			select {
			case <-ch:
			default:
			}
			ch <- lb
		}
	}
}
