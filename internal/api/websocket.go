package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

// View names a client can select over the websocket
const (
	ViewStreamers = "streamers"
	ViewStreamer  = "streamer"
	ViewMatch     = "match"
	ViewSummoner  = "summoner"
	ViewChat      = "chat"
	ViewWindow    = "window"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
	wsMaxMessage = 8 * 1024
)

// Selection is one user interaction sent by the client
type Selection struct {
	ID        string    `json:"id,omitempty"`
	View      string    `json:"view"`
	Player    string    `json:"player,omitempty"`
	MatchID   string    `json:"matchId,omitempty"`
	EventType string    `json:"eventType,omitempty"`
	Summoner  string    `json:"summoner,omitempty"`
	Types     []string  `json:"types,omitempty"`
	Start     time.Time `json:"start,omitempty"`
	End       time.Time `json:"end,omitempty"`
}

// Reply carries the recomputed view, or an error with its HTTP-equivalent status
type Reply struct {
	ID     string      `json:"id,omitempty"`
	View   string      `json:"view"`
	Data   interface{} `json:"data,omitempty"`
	Error  string      `json:"error,omitempty"`
	Status int         `json:"status"`
}

// serveWs upgrades the connection and answers each selection in order
func (h *Handler) serveWs(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warnf("[WS] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	conn.SetReadLimit(wsMaxMessage)
	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	done := make(chan struct{})
	defer close(done)
	go h.keepAlive(conn, done)

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warnf("[WS] read error: %v", err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(wsPongWait))

		reply := h.handleSelection(r.Context(), message)
		conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := conn.WriteJSON(reply); err != nil {
			log.Warnf("[WS] write error: %v", err)
			return
		}
	}
}

// keepAlive pings the client so an idle connection outlives wsPongWait.
// WriteControl may run alongside the reply writer.
func (h *Handler) keepAlive(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(h.pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				log.Debugf("[WS] ping failed: %v", err)
				return
			}
		}
	}
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.corsAllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// handleSelection decodes one selection and computes the requested view
func (h *Handler) handleSelection(ctx context.Context, message []byte) Reply {
	var sel Selection
	if err := json.Unmarshal(message, &sel); err != nil {
		return Reply{Error: "invalid selection: " + err.Error(), Status: http.StatusBadRequest}
	}

	data, err := h.compute(ctx, sel)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			log.WithField("view", sel.View).Errorf("[WS] %v", err)
		}
		return Reply{ID: sel.ID, View: sel.View, Error: err.Error(), Status: status}
	}
	return Reply{ID: sel.ID, View: sel.View, Data: data, Status: http.StatusOK}
}

// errBadSelection is returned for selections naming no known view
var errBadSelection = errors.New("bad selection")

func (h *Handler) compute(ctx context.Context, sel Selection) (interface{}, error) {
	switch sel.View {
	case ViewStreamers:
		return h.views.Streamers(ctx)
	case ViewStreamer:
		return h.views.StreamerView(ctx, sel.Player)
	case ViewMatch:
		return h.views.MatchView(ctx, sel.Player, sel.MatchID, sel.EventType)
	case ViewSummoner:
		return h.views.SummonerView(ctx, sel.Player, sel.MatchID, sel.Summoner, sel.Types)
	case ViewChat:
		return h.views.ChatView(ctx, sel.Player, sel.MatchID, sel.Summoner, sel.Types)
	case ViewWindow:
		return h.views.ChatWindow(ctx, sel.Player, sel.MatchID, sel.Start, sel.End)
	default:
		return nil, fmt.Errorf("%w: unknown view %q", errBadSelection, sel.View)
	}
}
