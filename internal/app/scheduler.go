package app

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// StartTournamentScheduler runs the periodic tournament jobs: flipping
// lifecycle status at start/end dates and recomputing ranks for active
// tournaments. The returned scheduler should be shut down with the server.
func StartTournamentScheduler(tournaments TournamentRepository, leaderboard *LeaderboardService, interval time.Duration) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			now := time.Now()

			if n, err := tournaments.ActivateDue(ctx, now); err != nil {
				log.Printf("scheduler: activate tournaments: %v", err)
			} else if n > 0 {
				log.Printf("scheduler: activated %d tournament(s)", n)
			}
			if n, err := tournaments.CompleteEnded(ctx, now); err != nil {
				log.Printf("scheduler: complete tournaments: %v", err)
			} else if n > 0 {
				log.Printf("scheduler: completed %d tournament(s)", n)
			}
		}),
	)
	if err != nil {
		return nil, err
	}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
			defer cancel()

			active, err := tournaments.ListActive(ctx)
			if err != nil {
				log.Printf("scheduler: list active tournaments: %v", err)
				return
			}
			for _, t := range active {
				if err := tournaments.RecomputeRanks(ctx, t.ID); err != nil {
					log.Printf("scheduler: recompute ranks for %s: %v", t.ID, err)
					continue
				}
				if leaderboard != nil {
					if _, err := leaderboard.Refresh(ctx, t.ID); err != nil {
						log.Printf("scheduler: refresh leaderboard for %s: %v", t.ID, err)
					}
				}
			}
		}),
	)
	if err != nil {
		return nil, err
	}

	sched.Start()
	return sched, nil
}
