package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"biblia-question/internal/domain"
)

// Store implements the app repositories on Postgres. Answers and star
// totals are kept consistent inside a single transaction per write.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Tournament(ctx context.Context, id string) (domain.Tournament, error) {
	var t domain.Tournament
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, description, start_date, end_date, total_weeks, status,
		       late_registration_allowed, catch_up_percentage, participant_count,
		       created_by, created_at, updated_at
		FROM tournaments WHERE id=$1`, id).Scan(
		&t.ID, &t.Name, &t.Description, &t.StartDate, &t.EndDate, &t.TotalWeeks, &t.Status,
		&t.LateRegistrationAllowed, &t.CatchUpPercentage, &t.ParticipantCount,
		&t.CreatedBy, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Tournament{}, domain.ErrTournamentNotFound
	}
	if err != nil {
		return domain.Tournament{}, fmt.Errorf("load tournament: %w", err)
	}
	return t, nil
}

// CreateTournament inserts a tournament, for administration and seeding.
func (s *Store) CreateTournament(ctx context.Context, t domain.Tournament) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO tournaments (id, name, description, start_date, end_date, total_weeks,
		                         status, late_registration_allowed, catch_up_percentage,
		                         participant_count, created_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		t.ID, t.Name, t.Description, t.StartDate, t.EndDate, t.TotalWeeks,
		t.Status, t.LateRegistrationAllowed, t.CatchUpPercentage,
		t.ParticipantCount, t.CreatedBy)
	if err != nil {
		return fmt.Errorf("create tournament: %w", err)
	}
	return nil
}

func (s *Store) DailyContent(ctx context.Context, tournamentID string, from, to time.Time) (*domain.DailyContent, error) {
	var dc domain.DailyContent
	err := s.pool.QueryRow(ctx, `
		SELECT id, tournament_id, week_number, day_number, bible_reference, bible_verse_text,
		       coalesce(youtube_long_video_id, ''), coalesce(youtube_long_video_title, ''),
		       challenge_text, max_video_duration, release_date, created_at
		FROM daily_content
		WHERE tournament_id=$1 AND release_date >= $2 AND release_date < $3
		LIMIT 1`, tournamentID, from, to).Scan(
		&dc.ID, &dc.TournamentID, &dc.WeekNumber, &dc.DayNumber, &dc.BibleReference, &dc.BibleVerseText,
		&dc.YoutubeLongVideoID, &dc.YoutubeLongVideoTitle,
		&dc.ChallengeText, &dc.MaxVideoDuration, &dc.ReleaseDate, &dc.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load daily content: %w", err)
	}
	return &dc, nil
}

func (s *Store) DailyQuestions(ctx context.Context, tournamentID string, from, to time.Time) ([]domain.Question, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, tournament_id, week_number, day_number, question_number, is_extra,
		       question_text, bible_reference, bible_verse_text, options, correct_answer,
		       stars, coalesce(youtube_short_id, ''), release_date, created_at
		FROM questions
		WHERE tournament_id=$1 AND release_date >= $2 AND release_date < $3
		ORDER BY release_date, question_number`, tournamentID, from, to)
	if err != nil {
		return nil, fmt.Errorf("load daily questions: %w", err)
	}
	defer rows.Close()

	var questions []domain.Question
	for rows.Next() {
		var q domain.Question
		var options []byte
		if err := rows.Scan(&q.ID, &q.TournamentID, &q.WeekNumber, &q.DayNumber, &q.QuestionNumber,
			&q.IsExtra, &q.Text, &q.BibleReference, &q.BibleVerseText, &options, &q.CorrectAnswer,
			&q.Stars, &q.YoutubeShortID, &q.ReleaseDate, &q.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		if err := json.Unmarshal(options, &q.Options); err != nil {
			return nil, fmt.Errorf("unmarshal question options: %w", err)
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// CreateQuestion inserts a question after validating its structural invariant.
func (s *Store) CreateQuestion(ctx context.Context, q domain.Question) error {
	if err := q.Validate(); err != nil {
		return err
	}
	options, err := json.Marshal(q.Options)
	if err != nil {
		return fmt.Errorf("marshal question options: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO questions (id, tournament_id, week_number, day_number, question_number,
		                       is_extra, question_text, bible_reference, bible_verse_text,
		                       options, correct_answer, stars, youtube_short_id, release_date)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,nullif($13,''),$14)`,
		q.ID, q.TournamentID, q.WeekNumber, q.DayNumber, q.QuestionNumber,
		q.IsExtra, q.Text, q.BibleReference, q.BibleVerseText,
		options, q.CorrectAnswer, q.StarValue(), q.YoutubeShortID, q.ReleaseDate)
	if err != nil {
		return fmt.Errorf("create question: %w", err)
	}
	return nil
}

// CreateDailyContent inserts a day's content; the unique index on
// (tournament, week, day) enforces the at-most-one invariant.
func (s *Store) CreateDailyContent(ctx context.Context, dc domain.DailyContent) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO daily_content (id, tournament_id, week_number, day_number, bible_reference,
		                           bible_verse_text, youtube_long_video_id, youtube_long_video_title,
		                           challenge_text, max_video_duration, release_date)
		VALUES ($1,$2,$3,$4,$5,$6,nullif($7,''),nullif($8,''),$9,$10,$11)`,
		dc.ID, dc.TournamentID, dc.WeekNumber, dc.DayNumber, dc.BibleReference,
		dc.BibleVerseText, dc.YoutubeLongVideoID, dc.YoutubeLongVideoTitle,
		dc.ChallengeText, dc.MaxVideoDuration, dc.ReleaseDate)
	if err != nil {
		return fmt.Errorf("create daily content: %w", err)
	}
	return nil
}

func (s *Store) CountAnswers(ctx context.Context, userID, tournamentID string, from, to time.Time) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `
		SELECT count(*) FROM answers
		WHERE user_id=$1 AND tournament_id=$2 AND answered_at >= $3 AND answered_at < $4`,
		userID, tournamentID, from, to).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count answers: %w", err)
	}
	return count, nil
}

func (s *Store) DailyAnswers(ctx context.Context, userID, tournamentID string, from, to time.Time) ([]domain.Answer, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, question_id, tournament_id, selected_option, is_correct, stars_earned, answered_at
		FROM answers
		WHERE user_id=$1 AND tournament_id=$2 AND answered_at >= $3 AND answered_at < $4
		ORDER BY answered_at`, userID, tournamentID, from, to)
	if err != nil {
		return nil, fmt.Errorf("load daily answers: %w", err)
	}
	defer rows.Close()

	var answers []domain.Answer
	for rows.Next() {
		var a domain.Answer
		if err := rows.Scan(&a.ID, &a.UserID, &a.QuestionID, &a.TournamentID,
			&a.SelectedOption, &a.IsCorrect, &a.StarsEarned, &a.AnsweredAt); err != nil {
			return nil, fmt.Errorf("scan answer: %w", err)
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}

// SaveAnswer upserts the answer and applies the star delta to the
// participant's running total in the same transaction, so a resubmission
// overwrites the record without double counting.
func (s *Store) SaveAnswer(ctx context.Context, answer domain.Answer) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin save answer: %w", err)
	}
	defer tx.Rollback(ctx)

	previous := 0
	err = tx.QueryRow(ctx, `SELECT stars_earned FROM answers WHERE id=$1 FOR UPDATE`, answer.ID).Scan(&previous)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("load previous answer: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO answers (id, user_id, question_id, tournament_id, selected_option, is_correct, stars_earned, answered_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (id) DO UPDATE SET
			selected_option=EXCLUDED.selected_option,
			is_correct=EXCLUDED.is_correct,
			stars_earned=EXCLUDED.stars_earned,
			answered_at=EXCLUDED.answered_at`,
		answer.ID, answer.UserID, answer.QuestionID, answer.TournamentID,
		answer.SelectedOption, answer.IsCorrect, answer.StarsEarned, answer.AnsweredAt)
	if err != nil {
		return fmt.Errorf("upsert answer: %w", err)
	}

	if delta := answer.StarsEarned - previous; delta != 0 {
		_, err = tx.Exec(ctx, `
			UPDATE participants SET total_stars = total_stars + $1
			WHERE tournament_id=$2 AND user_id=$3`,
			delta, answer.TournamentID, answer.UserID)
		if err != nil {
			return fmt.Errorf("apply star delta: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func (s *Store) Join(ctx context.Context, p domain.Participant) error {
	weekly, err := json.Marshal(p.WeeklyStars)
	if err != nil {
		return fmt.Errorf("marshal weekly stars: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin join: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		INSERT INTO participants (tournament_id, user_id, display_name, joined_at, total_stars,
		                          weekly_stars, rank, is_catch_up, catch_up_stars)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (tournament_id, user_id) DO NOTHING`,
		p.TournamentID, p.UserID, p.DisplayName, p.JoinedAt, p.TotalStars,
		weekly, p.Rank, p.IsCatchUp, p.CatchUpStars)
	if err != nil {
		return fmt.Errorf("insert participant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAlreadyJoined
	}

	_, err = tx.Exec(ctx, `
		UPDATE tournaments SET participant_count = participant_count + 1, updated_at = now()
		WHERE id=$1`, p.TournamentID)
	if err != nil {
		return fmt.Errorf("bump participant count: %w", err)
	}
	return tx.Commit(ctx)
}

func (s *Store) Participant(ctx context.Context, tournamentID, userID string) (domain.Participant, error) {
	var p domain.Participant
	var weekly []byte
	err := s.pool.QueryRow(ctx, `
		SELECT tournament_id, user_id, display_name, joined_at, total_stars, weekly_stars,
		       rank, is_catch_up, catch_up_stars
		FROM participants WHERE tournament_id=$1 AND user_id=$2`, tournamentID, userID).Scan(
		&p.TournamentID, &p.UserID, &p.DisplayName, &p.JoinedAt, &p.TotalStars, &weekly,
		&p.Rank, &p.IsCatchUp, &p.CatchUpStars)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Participant{}, domain.ErrParticipantNotFound
	}
	if err != nil {
		return domain.Participant{}, fmt.Errorf("load participant: %w", err)
	}
	if err := json.Unmarshal(weekly, &p.WeeklyStars); err != nil {
		return domain.Participant{}, fmt.Errorf("unmarshal weekly stars: %w", err)
	}
	return p, nil
}

func (s *Store) Ranking(ctx context.Context, tournamentID string, limit int) ([]domain.LeaderboardEntry, int, error) {
	var total int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM participants WHERE tournament_id=$1`, tournamentID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count participants: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT user_id, display_name, total_stars
		FROM participants
		WHERE tournament_id=$1
		ORDER BY total_stars DESC, joined_at ASC, display_name ASC
		LIMIT $2`, tournamentID, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("load ranking: %w", err)
	}
	defer rows.Close()

	var entries []domain.LeaderboardEntry
	rank := 1
	for rows.Next() {
		e := domain.LeaderboardEntry{Rank: rank}
		if err := rows.Scan(&e.UserID, &e.DisplayName, &e.TotalStars); err != nil {
			return nil, 0, fmt.Errorf("scan ranking entry: %w", err)
		}
		entries = append(entries, e)
		rank++
	}
	return entries, total, rows.Err()
}

func (s *Store) UserRank(ctx context.Context, tournamentID, userID string) (int, int, error) {
	var stars int
	err := s.pool.QueryRow(ctx, `
		SELECT total_stars FROM participants WHERE tournament_id=$1 AND user_id=$2`,
		tournamentID, userID).Scan(&stars)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, 0, domain.ErrParticipantNotFound
	}
	if err != nil {
		return 0, 0, fmt.Errorf("load user stars: %w", err)
	}

	var higher int
	err = s.pool.QueryRow(ctx, `
		SELECT count(*) FROM participants WHERE tournament_id=$1 AND total_stars > $2`,
		tournamentID, stars).Scan(&higher)
	if err != nil {
		return 0, 0, fmt.Errorf("count higher ranked: %w", err)
	}
	return higher + 1, stars, nil
}

func (s *Store) ListActive(ctx context.Context) ([]domain.Tournament, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, description, start_date, end_date, total_weeks, status,
		       late_registration_allowed, catch_up_percentage, participant_count,
		       created_by, created_at, updated_at
		FROM tournaments WHERE status='active'`)
	if err != nil {
		return nil, fmt.Errorf("list active tournaments: %w", err)
	}
	defer rows.Close()

	var active []domain.Tournament
	for rows.Next() {
		var t domain.Tournament
		if err := rows.Scan(&t.ID, &t.Name, &t.Description, &t.StartDate, &t.EndDate, &t.TotalWeeks,
			&t.Status, &t.LateRegistrationAllowed, &t.CatchUpPercentage, &t.ParticipantCount,
			&t.CreatedBy, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan tournament: %w", err)
		}
		active = append(active, t)
	}
	return active, rows.Err()
}

func (s *Store) ActivateDue(ctx context.Context, now time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE tournaments SET status='active', updated_at=$1
		WHERE status='upcoming' AND start_date <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("activate tournaments: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *Store) CompleteEnded(ctx context.Context, now time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE tournaments SET status='completed', updated_at=$1
		WHERE status='active' AND end_date < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("complete tournaments: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// RecomputeRanks reassigns dense ranks and rebuilds the per-week star
// breakdown from the answer facts.
func (s *Store) RecomputeRanks(ctx context.Context, tournamentID string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin recompute: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		UPDATE participants p SET rank = r.rnk
		FROM (
			SELECT user_id, RANK() OVER (ORDER BY total_stars DESC, joined_at ASC) AS rnk
			FROM participants WHERE tournament_id=$1
		) r
		WHERE p.tournament_id=$1 AND p.user_id = r.user_id`, tournamentID)
	if err != nil {
		return fmt.Errorf("assign ranks: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE participants p SET weekly_stars = w.breakdown
		FROM (
			SELECT t.user_id, jsonb_object_agg('week' || t.week_number, t.stars) AS breakdown
			FROM (
				SELECT a.user_id, q.week_number, SUM(a.stars_earned) AS stars
				FROM answers a
				JOIN questions q ON q.id = a.question_id
				WHERE a.tournament_id=$1
				GROUP BY a.user_id, q.week_number
			) t
			GROUP BY t.user_id
		) w
		WHERE p.tournament_id=$1 AND p.user_id = w.user_id`, tournamentID)
	if err != nil {
		return fmt.Errorf("rebuild weekly stars: %w", err)
	}

	return tx.Commit(ctx)
}

func (s *Store) SaveSubmission(ctx context.Context, sub domain.ChallengeSubmission) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO submissions (id, daily_content_id, tournament_id, user_id, user_name,
		                         video_url, status, stars_awarded, submitted_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		sub.ID, sub.DailyContentID, sub.TournamentID, sub.UserID, sub.UserName,
		sub.VideoURL, sub.Status, sub.StarsAwarded, sub.SubmittedAt)
	if err != nil {
		return fmt.Errorf("save submission: %w", err)
	}
	return nil
}

func (s *Store) Submission(ctx context.Context, id string) (domain.ChallengeSubmission, error) {
	sub, err := s.scanSubmission(s.pool.QueryRow(ctx, submissionSelect+` WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ChallengeSubmission{}, domain.ErrSubmissionNotFound
	}
	if err != nil {
		return domain.ChallengeSubmission{}, fmt.Errorf("load submission: %w", err)
	}
	return sub, nil
}

const submissionSelect = `
	SELECT id, daily_content_id, tournament_id, user_id, user_name, video_url, status,
	       stars_awarded, coalesce(reviewed_by, ''), reviewed_at, coalesce(review_comment, ''), submitted_at
	FROM submissions`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (s *Store) scanSubmission(row rowScanner) (domain.ChallengeSubmission, error) {
	var sub domain.ChallengeSubmission
	err := row.Scan(&sub.ID, &sub.DailyContentID, &sub.TournamentID, &sub.UserID, &sub.UserName,
		&sub.VideoURL, &sub.Status, &sub.StarsAwarded, &sub.ReviewedBy, &sub.ReviewedAt,
		&sub.ReviewComment, &sub.SubmittedAt)
	return sub, err
}

func (s *Store) PendingSubmissions(ctx context.Context, tournamentID string) ([]domain.ChallengeSubmission, error) {
	rows, err := s.pool.Query(ctx, submissionSelect+`
		WHERE status='pending' AND ($1 = '' OR tournament_id=$1)
		ORDER BY submitted_at`, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("load pending submissions: %w", err)
	}
	defer rows.Close()
	return s.collectSubmissions(rows)
}

func (s *Store) UserSubmissions(ctx context.Context, userID string) ([]domain.ChallengeSubmission, error) {
	rows, err := s.pool.Query(ctx, submissionSelect+`
		WHERE user_id=$1 ORDER BY submitted_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("load user submissions: %w", err)
	}
	defer rows.Close()
	return s.collectSubmissions(rows)
}

func (s *Store) collectSubmissions(rows pgx.Rows) ([]domain.ChallengeSubmission, error) {
	var subs []domain.ChallengeSubmission
	for rows.Next() {
		sub, err := s.scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

func (s *Store) UserSubmittedBetween(ctx context.Context, tournamentID, userID string, from, to time.Time) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM submissions
			WHERE tournament_id=$1 AND user_id=$2 AND submitted_at >= $3 AND submitted_at < $4
		)`, tournamentID, userID, from, to).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check submission window: %w", err)
	}
	return exists, nil
}

// Review settles a pending submission and, on approval, applies the star
// award to the participant in the same transaction.
func (s *Store) Review(ctx context.Context, id string, approved bool, reviewerID, comment string, stars int, at time.Time) (domain.ChallengeSubmission, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.ChallengeSubmission{}, fmt.Errorf("begin review: %w", err)
	}
	defer tx.Rollback(ctx)

	var current domain.SubmissionStatus
	err = tx.QueryRow(ctx, `SELECT status FROM submissions WHERE id=$1 FOR UPDATE`, id).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ChallengeSubmission{}, domain.ErrSubmissionNotFound
	}
	if err != nil {
		return domain.ChallengeSubmission{}, fmt.Errorf("lock submission: %w", err)
	}
	if current != domain.SubmissionPending {
		return domain.ChallengeSubmission{}, domain.ErrSubmissionReviewed
	}

	status := domain.SubmissionRejected
	awarded := 0
	if approved {
		status = domain.SubmissionApproved
		awarded = stars
	}

	sub, err := s.scanSubmission(tx.QueryRow(ctx, `
		UPDATE submissions
		SET status=$2, stars_awarded=$3, reviewed_by=$4, reviewed_at=$5, review_comment=nullif($6,'')
		WHERE id=$1
		RETURNING id, daily_content_id, tournament_id, user_id, user_name, video_url, status,
		          stars_awarded, coalesce(reviewed_by, ''), reviewed_at, coalesce(review_comment, ''), submitted_at`,
		id, status, awarded, reviewerID, at, comment))
	if err != nil {
		return domain.ChallengeSubmission{}, fmt.Errorf("update submission: %w", err)
	}

	if approved && awarded > 0 {
		_, err = tx.Exec(ctx, `
			UPDATE participants SET total_stars = total_stars + $1
			WHERE tournament_id=$2 AND user_id=$3`,
			awarded, sub.TournamentID, sub.UserID)
		if err != nil {
			return domain.ChallengeSubmission{}, fmt.Errorf("award stars: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.ChallengeSubmission{}, fmt.Errorf("commit review: %w", err)
	}
	return sub, nil
}
