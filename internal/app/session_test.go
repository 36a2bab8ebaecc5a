package app_test

import (
	"errors"
	"testing"

	"biblia-question/internal/app"
	"biblia-question/internal/domain"
)

func twoQuestionState() app.SessionState {
	return app.SessionState{
		TournamentID: "t1",
		UserID:       "u1",
		Phase:        app.PhaseBibleVerse,
		Questions: []domain.Question{
			{
				ID:             "q1",
				QuestionNumber: 1,
				Options:        []domain.Option{{ID: "A"}, {ID: "B"}},
				CorrectAnswer:  "A",
			},
			{
				ID:             "q2",
				QuestionNumber: 2,
				IsExtra:        true,
				Stars:          3,
				Options:        []domain.Option{{ID: "A"}, {ID: "B"}},
				CorrectAnswer:  "B",
			},
		},
	}
}

func TestPhasesAdvanceForwardOnly(t *testing.T) {
	state := twoQuestionState()

	state, err := state.Continue()
	if err != nil {
		t.Fatalf("continue from bible-verse: %v", err)
	}
	if state.Phase != app.PhaseQuestion {
		t.Fatalf("expected question phase, got %s", state.Phase)
	}

	// No transition leads back to the bible verse.
	if _, err := state.Continue(); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition from question, got %v", err)
	}
}

func TestSelectValidatesOption(t *testing.T) {
	state := twoQuestionState()
	state.Phase = app.PhaseQuestion

	if _, err := state.Select("Z"); !errors.Is(err, domain.ErrOptionNotFound) {
		t.Fatalf("expected option error, got %v", err)
	}

	state, err := state.Select("A")
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if state.Selected != "A" {
		t.Fatalf("expected selection A, got %q", state.Selected)
	}
}

func TestSelectionLockedAfterResult(t *testing.T) {
	state := twoQuestionState()
	state.Phase = app.PhaseQuestion
	state.Selected = "A"
	state.ShowResult = true

	if _, err := state.Select("B"); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected locked selection, got %v", err)
	}
}

func TestAcknowledgeAdvancesCursorAndResetsSubState(t *testing.T) {
	state := twoQuestionState()
	state.Phase = app.PhaseQuestion
	state.Selected = "A"
	state.VideoWatched = true
	state.ShowResult = true

	state, err := state.AcknowledgeResult()
	if err != nil {
		t.Fatalf("acknowledge: %v", err)
	}
	if state.QuestionIdx != 1 {
		t.Fatalf("expected cursor 1, got %d", state.QuestionIdx)
	}
	if state.Selected != "" || state.ShowResult || state.VideoWatched {
		t.Fatalf("expected per-question sub-state reset, got %+v", state)
	}
}

func TestAcknowledgeAfterLastQuestionEntersChallenge(t *testing.T) {
	state := twoQuestionState()
	state.Phase = app.PhaseQuestion
	state.QuestionIdx = 1
	state.ShowResult = true

	state, err := state.AcknowledgeResult()
	if err != nil {
		t.Fatalf("acknowledge: %v", err)
	}
	if state.Phase != app.PhaseDailyChallenge {
		t.Fatalf("expected daily-challenge, got %s", state.Phase)
	}
}

func TestChallengeContinuesWithoutSubmission(t *testing.T) {
	state := twoQuestionState()
	state.Phase = app.PhaseDailyChallenge

	state, err := state.Continue()
	if err != nil {
		t.Fatalf("continue from challenge: %v", err)
	}
	if state.Phase != app.PhaseLongVideo {
		t.Fatalf("expected long-video, got %s", state.Phase)
	}

	state, err = state.Continue()
	if err != nil {
		t.Fatalf("continue from long-video: %v", err)
	}
	if state.Phase != app.PhaseSummary || !state.Terminal() {
		t.Fatalf("expected terminal summary, got %s", state.Phase)
	}
}

func TestMarkChallengeSubmittedOnlyInChallengePhase(t *testing.T) {
	state := twoQuestionState()

	if _, err := state.MarkChallengeSubmitted(); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}

	state.Phase = app.PhaseDailyChallenge
	state, err := state.MarkChallengeSubmitted()
	if err != nil {
		t.Fatalf("mark submitted: %v", err)
	}
	if !state.Submitted || state.Phase != app.PhaseDailyChallenge {
		t.Fatalf("expected submitted flag set without phase change, got %+v", state)
	}
}

func TestApplyRejectsUnknownEvent(t *testing.T) {
	state := twoQuestionState()
	if _, err := state.Apply("rewind", ""); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
}

func TestTotalStarsSumsResults(t *testing.T) {
	state := twoQuestionState()
	state.Results = []domain.QuestionResult{
		{QuestionNumber: 1, IsCorrect: true, StarsEarned: 1},
		{QuestionNumber: 2, IsCorrect: true, StarsEarned: 3, IsExtra: true},
	}
	if got := state.TotalStars(); got != 4 {
		t.Fatalf("expected 4 stars, got %d", got)
	}
}
