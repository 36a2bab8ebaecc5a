package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"biblia-question/internal/app"
	"biblia-question/internal/domain"
)

// Handler exposes the REST surface: session gameplay, tournament join,
// leaderboard reads and challenge submission/review.
type Handler struct {
	game       *app.GameService
	leaders    *app.LeaderboardService
	challenges *app.ChallengeService
}

func NewHandler(game *app.GameService, leaders *app.LeaderboardService, challenges *app.ChallengeService) *Handler {
	return &Handler{game: game, leaders: leaders, challenges: challenges}
}

// Register attaches all routes to mux, including the websocket feed.
func (h *Handler) Register(mux *http.ServeMux, ws *WSHandler) {
	mux.HandleFunc("/healthz", h.health)
	mux.HandleFunc("/api/session/start", h.startSession)
	mux.HandleFunc("/api/session/event", h.sessionEvent)
	mux.HandleFunc("/api/session/answer", h.sessionAnswer)
	mux.HandleFunc("/api/tournaments", h.listTournaments)
	mux.HandleFunc("/api/tournaments/", h.tournaments)
	mux.HandleFunc("/api/challenges/submit", h.submitChallenge)
	mux.HandleFunc("/api/challenges/review", h.reviewChallenge)
	mux.HandleFunc("/api/challenges/pending", h.pendingChallenges)
	if ws != nil {
		mux.HandleFunc("/ws/leaderboard", ws.ServeLeaderboard)
	}
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type startSessionRequest struct {
	TournamentID string `json:"tournamentId"`
	UserID       string `json:"userId"`
}

func (h *Handler) startSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req startSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.TournamentID == "" || req.UserID == "" {
		http.Error(w, "missing tournamentId or userId", http.StatusBadRequest)
		return
	}
	state := h.game.StartSession(r.Context(), req.TournamentID, req.UserID)
	writeJSON(w, http.StatusOK, state)
}

type sessionEventRequest struct {
	Event    app.SessionEvent `json:"event"`
	OptionID string           `json:"optionId,omitempty"`
	State    app.SessionState `json:"state"`
}

// sessionEvent applies one pure transition to the client-held state and
// returns the next state. Nothing is persisted here.
func (h *Handler) sessionEvent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req sessionEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	next, err := req.State.Apply(req.Event, req.OptionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, next)
}

type sessionAnswerRequest struct {
	State app.SessionState `json:"state"`
}

type sessionAnswerResponse struct {
	State   app.SessionState     `json:"state"`
	Outcome domain.AnswerOutcome `json:"outcome"`
}

func (h *Handler) sessionAnswer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req sessionAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	next, outcome, err := h.game.SubmitAnswer(r.Context(), req.State)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionAnswerResponse{State: next, Outcome: outcome})
}

type joinRequest struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

// listTournaments serves the discovery screen: the tournaments open for play.
func (h *Handler) listTournaments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	tournaments, err := h.game.ActiveTournaments(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if tournaments == nil {
		tournaments = []domain.Tournament{}
	}
	writeJSON(w, http.StatusOK, tournaments)
}

// tournaments routes /api/tournaments/{id} and the per-tournament
// join/leaderboard/progress actions.
func (h *Handler) tournaments(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/tournaments/")
	parts := strings.SplitN(rest, "/", 2)
	if parts[0] == "" {
		http.NotFound(w, r)
		return
	}
	tournamentID := parts[0]

	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		t, err := h.game.Tournament(r.Context(), tournamentID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, t)
		return
	}
	action := parts[1]

	switch action {
	case "join":
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req joinRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if req.UserID == "" {
			http.Error(w, "missing userId", http.StatusBadRequest)
			return
		}
		p, err := h.game.JoinTournament(r.Context(), tournamentID, req.UserID, req.DisplayName)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, p)
	case "leaderboard":
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		lb, err := h.leaders.Leaderboard(r.Context(), tournamentID, r.URL.Query().Get("userId"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, lb)
	case "progress":
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		userID := r.URL.Query().Get("userId")
		if userID == "" {
			http.Error(w, "missing userId", http.StatusBadRequest)
			return
		}
		progress, err := h.game.Progress(r.Context(), tournamentID, userID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, progress)
	default:
		http.NotFound(w, r)
	}
}

// submitChallenge accepts a multipart upload with a "video" file part and
// tournamentId/dailyContentId/userId/userName fields.
func (h *Handler) submitChallenge(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	// Cap the request body before reading it so an oversized upload is cut
	// off mid-transfer instead of buffered in full. A megabyte of slack
	// covers the non-file form fields and multipart framing.
	r.Body = http.MaxBytesReader(w, r.Body, app.MaxVideoBytes+1<<20)
	if err := r.ParseMultipartForm(app.MaxVideoBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, domain.ErrVideoTooLarge)
			return
		}
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("video")
	if err != nil {
		http.Error(w, "missing video file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	req := app.SubmitVideoRequest{
		TournamentID:   r.FormValue("tournamentId"),
		DailyContentID: r.FormValue("dailyContentId"),
		UserID:         r.FormValue("userId"),
		UserName:       r.FormValue("userName"),
		Size:           header.Size,
		ContentType:    header.Header.Get("Content-Type"),
		Body:           file,
	}
	if req.TournamentID == "" || req.UserID == "" {
		http.Error(w, "missing tournamentId or userId", http.StatusBadRequest)
		return
	}

	sub, err := h.challenges.SubmitVideo(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

type reviewRequest struct {
	SubmissionID string `json:"submissionId"`
	Approved     bool   `json:"approved"`
	ReviewerID   string `json:"reviewerId"`
	Comment      string `json:"comment"`
}

func (h *Handler) reviewChallenge(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.SubmissionID == "" || req.ReviewerID == "" {
		http.Error(w, "missing submissionId or reviewerId", http.StatusBadRequest)
		return
	}
	sub, err := h.challenges.Review(r.Context(), req.SubmissionID, req.Approved, req.ReviewerID, req.Comment)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (h *Handler) pendingChallenges(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	subs, err := h.challenges.Pending(r.Context(), r.URL.Query().Get("tournamentId"))
	if err != nil {
		writeError(w, err)
		return
	}
	if subs == nil {
		subs = []domain.ChallengeSubmission{}
	}
	writeJSON(w, http.StatusOK, subs)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrTournamentNotFound),
		errors.Is(err, domain.ErrQuestionNotFound),
		errors.Is(err, domain.ErrSubmissionNotFound),
		errors.Is(err, domain.ErrParticipantNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrAlreadyJoined),
		errors.Is(err, domain.ErrSubmissionReviewed):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrTournamentCompleted),
		errors.Is(err, domain.ErrRegistrationClosed),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrNoSelection),
		errors.Is(err, domain.ErrOptionNotFound):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrVideoTooLarge):
		status = http.StatusRequestEntityTooLarge
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
