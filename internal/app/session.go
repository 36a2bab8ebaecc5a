package app

import (
	"fmt"

	"biblia-question/internal/domain"
)

// Phase is one stage of the linear daily-gameplay state machine.
type Phase string

const (
	PhaseLoading        Phase = "loading"
	PhaseBibleVerse     Phase = "bible-verse"
	PhaseQuestion       Phase = "question"
	PhaseDailyChallenge Phase = "daily-challenge"
	PhaseLongVideo      Phase = "long-video"
	PhaseSummary        Phase = "summary"
	PhaseCompleted      Phase = "completed"
)

// SessionState is the serializable state of one user's daily run through
// one tournament. Transitions are pure functions on the value; there is
// no backward transition once a phase is left.
type SessionState struct {
	TournamentID string                  `json:"tournamentId"`
	UserID       string                  `json:"userId"`
	Phase        Phase                   `json:"phase"`
	Content      *domain.DailyContent    `json:"dailyContent,omitempty"`
	Questions    []domain.Question       `json:"questions,omitempty"`
	QuestionIdx  int                     `json:"questionIndex"`
	VideoWatched bool                    `json:"videoWatched"`
	Selected     string                  `json:"selectedOption,omitempty"`
	ShowResult   bool                    `json:"showResult"`
	Results      []domain.QuestionResult `json:"questionResults"`
	Submitted    bool                    `json:"challengeSubmitted"`
}

// CurrentQuestion returns the question at the session's cursor.
func (s SessionState) CurrentQuestion() (domain.Question, bool) {
	if s.QuestionIdx < 0 || s.QuestionIdx >= len(s.Questions) {
		return domain.Question{}, false
	}
	return s.Questions[s.QuestionIdx], true
}

// TotalStars is the sum of stars earned across this session's results.
func (s SessionState) TotalStars() int {
	total := 0
	for _, r := range s.Results {
		total += r.StarsEarned
	}
	return total
}

// Terminal reports whether the session has nothing left to play.
func (s SessionState) Terminal() bool {
	return s.Phase == PhaseSummary || s.Phase == PhaseCompleted
}

// Continue advances the linear phases on an unconditional user click:
// bible-verse moves into the question loop, daily-challenge moves on
// whether or not a video was submitted, long-video ends in the summary.
func (s SessionState) Continue() (SessionState, error) {
	switch s.Phase {
	case PhaseBibleVerse:
		s.Phase = PhaseQuestion
	case PhaseDailyChallenge:
		s.Phase = PhaseLongVideo
	case PhaseLongVideo:
		s.Phase = PhaseSummary
	default:
		return s, fmt.Errorf("%w: continue from %s", domain.ErrInvalidTransition, s.Phase)
	}
	return s, nil
}

// SkipVideo dismisses the optional short-video gate of the current question.
func (s SessionState) SkipVideo() (SessionState, error) {
	if s.Phase != PhaseQuestion {
		return s, fmt.Errorf("%w: skip video from %s", domain.ErrInvalidTransition, s.Phase)
	}
	s.VideoWatched = true
	return s, nil
}

// Select marks an option for the current question. Selection is locked
// once the result is shown so an answered question cannot be changed.
func (s SessionState) Select(optionID string) (SessionState, error) {
	if s.Phase != PhaseQuestion {
		return s, fmt.Errorf("%w: select from %s", domain.ErrInvalidTransition, s.Phase)
	}
	if s.ShowResult {
		return s, fmt.Errorf("%w: question already answered", domain.ErrInvalidTransition)
	}
	question, ok := s.CurrentQuestion()
	if !ok {
		return s, domain.ErrQuestionNotFound
	}
	if !question.HasOption(optionID) {
		return s, domain.ErrOptionNotFound
	}
	s.Selected = optionID
	return s, nil
}

// applyResult appends a scored result and shows it. The scoring itself
// happens in GameService.SubmitAnswer; this is the pure half.
func (s SessionState) applyResult(q domain.Question, outcome domain.AnswerOutcome) SessionState {
	s.Results = append(s.Results, domain.QuestionResult{
		QuestionNumber: q.QuestionNumber,
		IsCorrect:      outcome.IsCorrect,
		StarsEarned:    outcome.StarsEarned,
		IsExtra:        q.IsExtra,
	})
	s.ShowResult = true
	return s
}

// AcknowledgeResult moves past a shown result: to the next question, or
// to the daily challenge after the last one. Per-question sub-state resets.
func (s SessionState) AcknowledgeResult() (SessionState, error) {
	if s.Phase != PhaseQuestion || !s.ShowResult {
		return s, fmt.Errorf("%w: no result to acknowledge in %s", domain.ErrInvalidTransition, s.Phase)
	}
	if s.QuestionIdx+1 < len(s.Questions) {
		s.QuestionIdx++
		s.Selected = ""
		s.ShowResult = false
		s.VideoWatched = false
	} else {
		s.Phase = PhaseDailyChallenge
	}
	return s, nil
}

// MarkChallengeSubmitted records a successful video submission. The phase
// stays daily-challenge until the user continues.
func (s SessionState) MarkChallengeSubmitted() (SessionState, error) {
	if s.Phase != PhaseDailyChallenge {
		return s, fmt.Errorf("%w: challenge submission from %s", domain.ErrInvalidTransition, s.Phase)
	}
	s.Submitted = true
	return s, nil
}

// SessionEvent names a client-triggered pure transition.
type SessionEvent string

const (
	EventContinue    SessionEvent = "continue"
	EventSkipVideo   SessionEvent = "skip-video"
	EventSelect      SessionEvent = "select"
	EventAcknowledge SessionEvent = "acknowledge"
)

// Apply dispatches a named event. OptionID is only meaningful for select.
func (s SessionState) Apply(event SessionEvent, optionID string) (SessionState, error) {
	switch event {
	case EventContinue:
		return s.Continue()
	case EventSkipVideo:
		return s.SkipVideo()
	case EventSelect:
		return s.Select(optionID)
	case EventAcknowledge:
		return s.AcknowledgeResult()
	default:
		return s, fmt.Errorf("%w: unknown event %q", domain.ErrInvalidTransition, event)
	}
}
