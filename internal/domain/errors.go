package domain

import "errors"

var (
	// ErrTournamentNotFound is returned when a tournament ID resolves to nothing.
	ErrTournamentNotFound = errors.New("tournament not found")
	// ErrTournamentCompleted is returned when a user tries to join a finished tournament.
	ErrTournamentCompleted = errors.New("tournament already completed")
	// ErrAlreadyJoined is returned on a duplicate enrollment attempt.
	ErrAlreadyJoined = errors.New("already joined tournament")
	// ErrRegistrationClosed is returned when joining an active tournament
	// that does not allow late registration.
	ErrRegistrationClosed = errors.New("late registration not allowed")
	// ErrParticipantNotFound is returned when a user acts in a tournament without enrolling.
	ErrParticipantNotFound = errors.New("participant not found in tournament")
	// ErrQuestionNotFound indicates a submitted question ID is invalid.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrOptionNotFound indicates a selected option ID is not one of the question's options.
	ErrOptionNotFound = errors.New("option not found")
	// ErrCorrectOptionMissing indicates question content whose correct answer
	// is not among its own options.
	ErrCorrectOptionMissing = errors.New("correct answer is not one of the question options")
	// ErrSubmissionNotFound indicates an unknown challenge submission ID.
	ErrSubmissionNotFound = errors.New("challenge submission not found")
	// ErrSubmissionReviewed is returned when a moderator reviews a submission twice.
	ErrSubmissionReviewed = errors.New("challenge submission already reviewed")
	// ErrVideoTooLarge rejects challenge uploads over the size limit before any transfer.
	ErrVideoTooLarge = errors.New("video exceeds maximum size of 50 MB")
	// ErrNoSelection is returned when an answer is confirmed without a selected option.
	ErrNoSelection = errors.New("no option selected")
	// ErrInvalidTransition is returned for gameplay events that are illegal in
	// the current phase. Phases only ever move forward.
	ErrInvalidTransition = errors.New("invalid phase transition")
)
