package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"biblia-question/internal/app"
	"biblia-question/internal/config"
	"biblia-question/internal/domain"
	"biblia-question/internal/infra/memory"
	pgstore "biblia-question/internal/infra/postgres"
	rediscache "biblia-question/internal/infra/redis"
	s3store "biblia-question/internal/infra/s3"
	transport "biblia-question/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the tournament server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var (
		tournaments app.TournamentRepository
		content     app.ContentRepository
		answers     app.AnswerRepository
		submissions app.SubmissionRepository
		loader      rediscache.ContentLoader
	)
	if pool != nil {
		store := pgstore.NewStore(pool)
		tournaments, content, answers, submissions = store, store, store, store
		loader = store
	} else {
		store := memory.NewStore()
		seedSampleTournament(store)
		tournaments, content, answers, submissions = store, store, store, store
		loader = store
	}

	contentTTL := config.TTLDuration(cfg.Content.TTL, 10*time.Minute)
	if redisClient != nil {
		content = rediscache.NewContentCache(redisClient, loader, contentTTL)
	}

	var videos app.VideoStore
	if cfg.Storage.Bucket != "" {
		videos, err = s3store.NewVideoStore(ctx, s3store.Config{
			Endpoint:        cfg.Storage.Endpoint,
			Region:          cfg.Storage.Region,
			Bucket:          cfg.Storage.Bucket,
			AccessKeyID:     cfg.Storage.AccessKeyID,
			AccessKeySecret: cfg.Storage.AccessKeySecret,
			CDNBaseURL:      cfg.Storage.CDNBaseURL,
		})
		if err != nil {
			return err
		}
	} else {
		videos = memory.NewVideoStore()
	}

	game := app.NewGameService(tournaments, content, answers, submissions)
	leaders := app.NewLeaderboardService(tournaments, cfg.Leaderboard.Limit)
	challenges := app.NewChallengeService(submissions, videos, leaders)

	game.NotifyStars(func(tournamentID string) {
		refreshCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if _, err := leaders.Refresh(refreshCtx, tournamentID); err != nil {
			log.Printf("leaderboard refresh failed for %s: %v", tournamentID, err)
		}
	})

	interval := config.TTLDuration(cfg.Scheduler.Interval, time.Minute)
	sched, err := app.StartTournamentScheduler(tournaments, leaders, interval)
	if err != nil {
		return err
	}
	defer func() {
		if err := sched.Shutdown(); err != nil {
			log.Printf("scheduler shutdown: %v", err)
		}
	}()

	handler := transport.NewHandler(game, leaders, challenges)
	wsHandler := transport.NewWSHandler(leaders)

	mux := http.NewServeMux()
	handler.Register(mux, wsHandler)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting biblia-question on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// seedSampleTournament provides minimal data for running without Postgres.
func seedSampleTournament(store *memory.Store) {
	now := time.Now()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	store.PutTournament(domain.Tournament{
		ID:                      "t-sample",
		Name:                    "Sample Tournament",
		StartDate:               start,
		EndDate:                 start.AddDate(0, 0, 28),
		TotalWeeks:              4,
		Status:                  domain.TournamentActive,
		LateRegistrationAllowed: true,
		CreatedAt:               now,
		UpdatedAt:               now,
	})
	store.PutDailyContent(domain.DailyContent{
		ID:             "dc-sample",
		TournamentID:   "t-sample",
		WeekNumber:     1,
		DayNumber:      1,
		BibleReference: "John 3:16",
		BibleVerseText: "For God so loved the world...",
		ChallengeText:  "Recite today's verse from memory on video.",
		ReleaseDate:    start,
		CreatedAt:      now,
	})
	store.PutQuestion(domain.Question{
		ID:             "q-sample-1",
		TournamentID:   "t-sample",
		WeekNumber:     1,
		DayNumber:      1,
		QuestionNumber: 1,
		Text:           "Who wrote the Gospel of John?",
		Options: []domain.Option{
			{ID: "A", Text: "John"},
			{ID: "B", Text: "Peter"},
			{ID: "C", Text: "Paul"},
			{ID: "D", Text: "Luke"},
		},
		CorrectAnswer: "A",
		ReleaseDate:   start,
		CreatedAt:     now,
	})
}
