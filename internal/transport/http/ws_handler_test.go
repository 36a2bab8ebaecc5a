package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"biblia-question/internal/app"
	"biblia-question/internal/domain"
	"biblia-question/internal/infra/memory"
	"github.com/gorilla/websocket"
)

func TestWebSocketLeaderboardFeed(t *testing.T) {
	store := memory.NewStoreWithClock(testClock)
	store.PutTournament(domain.Tournament{
		ID:                      "t1",
		Status:                  domain.TournamentActive,
		LateRegistrationAllowed: true,
		StartDate:               testDay.AddDate(0, 0, -1),
		EndDate:                 testDay.AddDate(0, 0, 27),
	})
	leaders := app.NewLeaderboardService(store, 100)
	ws := NewWSHandler(leaders)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws/leaderboard", ws.ServeLeaderboard)
	server := httptest.NewServer(mux)
	defer server.Close()

	u := "ws" + server.URL[len("http"):] + "/ws/leaderboard?tournamentId=t1"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// The first frame is the current standings.
	typ, lb := readLeaderboard(conn, t)
	if typ != "leaderboard" || lb.TotalParticipants != 0 {
		t.Fatalf("unexpected initial frame: %s %+v", typ, lb)
	}

	// A star change pushes a fresh snapshot.
	ctx := context.Background()
	if err := store.Join(ctx, domain.Participant{TournamentID: "t1", UserID: "u1", DisplayName: "Alice", JoinedAt: testDay}); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := leaders.Refresh(ctx, "t1"); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	typ, lb = readLeaderboard(conn, t)
	if typ != "leaderboard" || lb.TotalParticipants != 1 {
		t.Fatalf("unexpected update: %s %+v", typ, lb)
	}
	if len(lb.Entries) != 1 || lb.Entries[0].UserID != "u1" {
		t.Fatalf("unexpected entries: %+v", lb.Entries)
	}
}

func TestWebSocketRequiresTournamentID(t *testing.T) {
	leaders := app.NewLeaderboardService(memory.NewStore(), 100)
	ws := NewWSHandler(leaders)

	req := httptest.NewRequest(http.MethodGet, "/ws/leaderboard", nil)
	rec := httptest.NewRecorder()
	ws.ServeLeaderboard(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func readLeaderboard(conn *websocket.Conn, t *testing.T) (string, domain.Leaderboard) {
	t.Helper()
	var msg struct {
		Type    string             `json:"type"`
		Payload domain.Leaderboard `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	return msg.Type, msg.Payload
}
