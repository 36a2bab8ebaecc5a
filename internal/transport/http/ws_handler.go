package http

import (
	"encoding/json"
	"log"
	"net/http"

	"biblia-question/internal/app"
	"github.com/gorilla/websocket"
)

// WSHandler streams live leaderboard updates to connected clients.
type WSHandler struct {
	leaders  *app.LeaderboardService
	upgrader websocket.Upgrader
}

func NewWSHandler(leaders *app.LeaderboardService) *WSHandler {
	return &WSHandler{
		leaders: leaders,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeLeaderboard upgrades the request and pushes leaderboard snapshots
// until the client disconnects. The first frame is the current standings.
func (h *WSHandler) ServeLeaderboard(w http.ResponseWriter, r *http.Request) {
	tournamentID := r.URL.Query().Get("tournamentId")
	if tournamentID == "" {
		http.Error(w, "missing tournamentId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	updates, cancel, err := h.leaders.Subscribe(r.Context(), tournamentID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "leaderboard", Payload: update}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	// Reader loop only watches for disconnect; the feed is one-way.
	for {
		var inbound json.RawMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}
