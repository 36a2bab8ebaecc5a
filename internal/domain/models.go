package domain

import "time"

// TournamentStatus is the lifecycle state of a tournament.
type TournamentStatus string

const (
	TournamentUpcoming  TournamentStatus = "upcoming"
	TournamentActive    TournamentStatus = "active"
	TournamentCompleted TournamentStatus = "completed"
)

// Tournament is a multi-week competition with daily content.
type Tournament struct {
	ID                      string           `json:"id"`
	Name                    string           `json:"name"`
	Description             string           `json:"description"`
	StartDate               time.Time        `json:"startDate"`
	EndDate                 time.Time        `json:"endDate"`
	TotalWeeks              int              `json:"totalWeeks"`
	Status                  TournamentStatus `json:"status"`
	LateRegistrationAllowed bool             `json:"lateRegistrationAllowed"`
	CatchUpPercentage       int              `json:"catchUpPercentage"`
	ParticipantCount        int              `json:"participantCount"`
	CreatedBy               string           `json:"createdBy"`
	CreatedAt               time.Time        `json:"createdAt"`
	UpdatedAt               time.Time        `json:"updatedAt"`
}

// DailyContent is one day's verse, challenge prompt and optional long video.
// At most one exists per (tournament, week, day).
type DailyContent struct {
	ID                    string    `json:"id"`
	TournamentID          string    `json:"tournamentId"`
	WeekNumber            int       `json:"weekNumber"`
	DayNumber             int       `json:"dayNumber"`
	BibleReference        string    `json:"bibleReference"`
	BibleVerseText        string    `json:"bibleVerseText"`
	YoutubeLongVideoID    string    `json:"youtubeLongVideoId,omitempty"`
	YoutubeLongVideoTitle string    `json:"youtubeLongVideoTitle,omitempty"`
	ChallengeText         string    `json:"challengeText"`
	MaxVideoDuration      int       `json:"maxVideoDuration"` // seconds
	ReleaseDate           time.Time `json:"releaseDate"`
	CreatedAt             time.Time `json:"createdAt"`
}

// Option is one labeled choice (A-D) of a question.
type Option struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Question is a multiple-choice trivia item tied to a tournament day.
type Question struct {
	ID             string    `json:"id"`
	TournamentID   string    `json:"tournamentId"`
	WeekNumber     int       `json:"weekNumber"`
	DayNumber      int       `json:"dayNumber"`
	QuestionNumber int       `json:"questionNumber"`
	IsExtra        bool      `json:"isExtraQuestion"`
	Text           string    `json:"questionText"`
	BibleReference string    `json:"bibleReference"`
	BibleVerseText string    `json:"bibleVerseText"`
	Options        []Option  `json:"options"`
	CorrectAnswer  string    `json:"correctAnswer"`
	Stars          int       `json:"stars"` // defaults to 1 if zero; 3 for extra questions
	YoutubeShortID string    `json:"youtubeShortId,omitempty"`
	ReleaseDate    time.Time `json:"releaseDate"`
	CreatedAt      time.Time `json:"createdAt"`
}

// HasOption reports whether id is one of the question's option IDs.
func (q Question) HasOption(id string) bool {
	for _, opt := range q.Options {
		if opt.ID == id {
			return true
		}
	}
	return false
}

// StarValue returns the question's star value with the default applied.
func (q Question) StarValue() int {
	if q.Stars <= 0 {
		return 1
	}
	return q.Stars
}

// Validate checks the structural invariant: the correct answer must be
// one of the provided option IDs.
func (q Question) Validate() error {
	if !q.HasOption(q.CorrectAnswer) {
		return ErrCorrectOptionMissing
	}
	return nil
}

// Answer records one user's response to one question. Its identity is
// derived from (user, question) so a repeated submission overwrites the
// previous record instead of duplicating it.
type Answer struct {
	ID             string    `json:"id"`
	UserID         string    `json:"userId"`
	QuestionID     string    `json:"questionId"`
	TournamentID   string    `json:"tournamentId"`
	SelectedOption string    `json:"selectedAnswer"`
	IsCorrect      bool      `json:"isCorrect"`
	StarsEarned    int       `json:"starsEarned"`
	AnsweredAt     time.Time `json:"answeredAt"`
}

// AnswerID derives the deterministic record identity for (user, question).
func AnswerID(userID, questionID string) string {
	return userID + "_" + questionID
}

// SubmissionStatus is the moderation state of a challenge video.
type SubmissionStatus string

const (
	SubmissionPending  SubmissionStatus = "pending"
	SubmissionApproved SubmissionStatus = "approved"
	SubmissionRejected SubmissionStatus = "rejected"
)

// ChallengeSubmission is a player's video entry for a daily challenge.
// Players only ever create it pending; moderators move it terminal.
type ChallengeSubmission struct {
	ID             string           `json:"id"`
	DailyContentID string           `json:"dailyContentId"`
	TournamentID   string           `json:"tournamentId"`
	UserID         string           `json:"userId"`
	UserName       string           `json:"userName"`
	VideoURL       string           `json:"videoUrl"`
	Status         SubmissionStatus `json:"status"`
	StarsAwarded   int              `json:"starsAwarded"`
	ReviewedBy     string           `json:"reviewedBy,omitempty"`
	ReviewedAt     *time.Time       `json:"reviewedAt,omitempty"`
	ReviewComment  string           `json:"reviewComment,omitempty"`
	SubmittedAt    time.Time        `json:"submittedAt"`
}

// Participant is a user's enrollment and accumulated standing in a tournament.
type Participant struct {
	TournamentID string         `json:"tournamentId"`
	UserID       string         `json:"userId"`
	DisplayName  string         `json:"displayName"`
	JoinedAt     time.Time      `json:"joinedAt"`
	TotalStars   int            `json:"totalStars"`
	WeeklyStars  map[string]int `json:"weeklyStars"` // {"week1": 12, ...}
	Rank         int            `json:"rank"`
	IsCatchUp    bool           `json:"isCatchUp"`
	CatchUpStars int            `json:"catchUpStars"`
}

// QuestionResult is one scored question shown on the end-of-day summary.
type QuestionResult struct {
	QuestionNumber int  `json:"questionNumber"`
	IsCorrect      bool `json:"isCorrect"`
	StarsEarned    int  `json:"starsEarned"`
	IsExtra        bool `json:"isExtra"`
}

// AnswerOutcome summarizes a single scored submission.
type AnswerOutcome struct {
	QuestionID    string `json:"questionId"`
	IsCorrect     bool   `json:"isCorrect"`
	CorrectAnswer string `json:"correctAnswer"`
	StarsEarned   int    `json:"starsEarned"`
}

// LeaderboardEntry is one ranked row of a tournament leaderboard.
type LeaderboardEntry struct {
	Rank        int    `json:"rank"`
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	TotalStars  int    `json:"totalStars"`
}

// Leaderboard captures the ordered standings of a tournament, with the
// requesting user's own rank resolved even when outside the listed rows.
type Leaderboard struct {
	TournamentID      string             `json:"tournamentId"`
	Entries           []LeaderboardEntry `json:"entries"`
	UserRank          int                `json:"userRank,omitempty"`
	UserStars         int                `json:"userStars,omitempty"`
	TotalParticipants int                `json:"totalParticipants"`
	UpdatedAt         time.Time          `json:"updatedAt"`
}

// DailyProgress summarizes a user's answered/earned state for one day.
type DailyProgress struct {
	QuestionsAnswered  int  `json:"questionsAnswered"`
	QuestionsTotal     int  `json:"questionsTotal"`
	StarsEarned        int  `json:"starsEarned"`
	MaxStars           int  `json:"maxStars"`
	ChallengeSubmitted bool `json:"challengeSubmitted"`
}
