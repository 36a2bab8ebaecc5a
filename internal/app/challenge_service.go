package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"biblia-question/internal/domain"
)

// MaxVideoBytes is the hard upload limit, checked before any transfer.
const MaxVideoBytes = 50 * 1024 * 1024

// SubmissionRepository persists challenge submissions. Review must apply
// the status change and any star award in one atomic step.
type SubmissionRepository interface {
	SaveSubmission(ctx context.Context, sub domain.ChallengeSubmission) error
	Submission(ctx context.Context, id string) (domain.ChallengeSubmission, error)
	PendingSubmissions(ctx context.Context, tournamentID string) ([]domain.ChallengeSubmission, error)
	UserSubmissions(ctx context.Context, userID string) ([]domain.ChallengeSubmission, error)
	UserSubmittedBetween(ctx context.Context, tournamentID, userID string, from, to time.Time) (bool, error)
	Review(ctx context.Context, id string, approved bool, reviewerID, comment string, stars int, at time.Time) (domain.ChallengeSubmission, error)
}

// VideoStore uploads challenge videos to durable blob storage and returns
// the public URL. Progress, when non-nil, receives percentages 0-100.
type VideoStore interface {
	Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string, progress func(percent int)) (string, error)
}

// approvedChallengeStars is the fixed award for an approved video.
const approvedChallengeStars = 5

// SubmitVideoRequest carries one challenge video upload.
type SubmitVideoRequest struct {
	TournamentID   string
	DailyContentID string
	UserID         string
	UserName       string
	Size           int64
	ContentType    string
	Body           io.Reader
	Progress       func(percent int)
}

// ChallengeService handles challenge video submission and moderation.
type ChallengeService struct {
	submissions SubmissionRepository
	videos      VideoStore
	leaderboard *LeaderboardService
	clock       func() time.Time
}

func NewChallengeService(submissions SubmissionRepository, videos VideoStore, leaderboard *LeaderboardService) *ChallengeService {
	return &ChallengeService{
		submissions: submissions,
		videos:      videos,
		leaderboard: leaderboard,
		clock:       time.Now,
	}
}

// NewChallengeServiceWithClock is test-only for deterministic timestamps.
func NewChallengeServiceWithClock(submissions SubmissionRepository, videos VideoStore, leaderboard *LeaderboardService, now func() time.Time) *ChallengeService {
	s := NewChallengeService(submissions, videos, leaderboard)
	s.clock = now
	return s
}

// SubmitVideo validates, uploads and records one challenge entry. Oversized
// files are rejected before any transfer and leave no record; an upload
// failure also leaves no record so a retry starts clean.
func (c *ChallengeService) SubmitVideo(ctx context.Context, req SubmitVideoRequest) (domain.ChallengeSubmission, error) {
	if req.Size > MaxVideoBytes {
		return domain.ChallengeSubmission{}, domain.ErrVideoTooLarge
	}

	key := fmt.Sprintf("challenges/%s/videos/%s_%s.mp4", req.TournamentID, req.UserID, uuid.NewString())
	url, err := c.videos.Upload(ctx, key, req.Body, req.Size, req.ContentType, req.Progress)
	if err != nil {
		if req.Progress != nil {
			req.Progress(0)
		}
		return domain.ChallengeSubmission{}, fmt.Errorf("upload video: %w", err)
	}

	sub := domain.ChallengeSubmission{
		ID:             uuid.NewString(),
		DailyContentID: req.DailyContentID,
		TournamentID:   req.TournamentID,
		UserID:         req.UserID,
		UserName:       req.UserName,
		VideoURL:       url,
		Status:         domain.SubmissionPending,
		SubmittedAt:    c.clock(),
	}
	if err := c.submissions.SaveSubmission(ctx, sub); err != nil {
		return domain.ChallengeSubmission{}, fmt.Errorf("save submission: %w", err)
	}
	return sub, nil
}

// Review settles a pending submission. Approval awards the fixed star
// amount to the participant; players can never trigger this transition.
func (c *ChallengeService) Review(ctx context.Context, submissionID string, approved bool, reviewerID, comment string) (domain.ChallengeSubmission, error) {
	stars := 0
	if approved {
		stars = approvedChallengeStars
	}
	sub, err := c.submissions.Review(ctx, submissionID, approved, reviewerID, comment, stars, c.clock())
	if err != nil {
		return domain.ChallengeSubmission{}, err
	}
	if approved && c.leaderboard != nil {
		if _, err := c.leaderboard.Refresh(ctx, sub.TournamentID); err != nil {
			// The award is already durable; stale subscribers catch up on the next push.
			return sub, nil
		}
	}
	return sub, nil
}

// Pending lists submissions awaiting review for a tournament.
func (c *ChallengeService) Pending(ctx context.Context, tournamentID string) ([]domain.ChallengeSubmission, error) {
	return c.submissions.PendingSubmissions(ctx, tournamentID)
}

// UserSubmissions lists a user's submissions across tournaments.
func (c *ChallengeService) UserSubmissions(ctx context.Context, userID string) ([]domain.ChallengeSubmission, error) {
	return c.submissions.UserSubmissions(ctx, userID)
}
