package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	wsWriteWait = 10 * time.Second
	wsPongWait  = 60 * time.Second
	wsPingEvery = (wsPongWait * 9) / 10
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// snapshot is one streamed generation update. Content is always the full
// accumulated text; consumers replace, never append. Seq lets a client drop
// anything older than what it already rendered.
type snapshot struct {
	Seq     int    `json:"seq"`
	Content string `json:"content"`
	Done    bool   `json:"done,omitempty"`
}

// streamHub fans generation snapshots out to websocket subscribers, keyed by
// flow session.
type streamHub struct {
	mu   sync.Mutex
	seq  map[string]int
	subs map[string]map[chan snapshot]struct{}
}

func newStreamHub() *streamHub {
	return &streamHub{
		seq:  make(map[string]int),
		subs: make(map[string]map[chan snapshot]struct{}),
	}
}

func (h *streamHub) subscribe(sid string) (chan snapshot, func()) {
	ch := make(chan snapshot, 32)
	h.mu.Lock()
	if h.subs[sid] == nil {
		h.subs[sid] = make(map[chan snapshot]struct{})
	}
	h.subs[sid][ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		delete(h.subs[sid], ch)
		h.mu.Unlock()
	}
	return ch, cancel
}

// publish sends the latest full text to every subscriber. A slow subscriber's
// backlog is skipped rather than blocking the generation.
func (h *streamHub) publish(sid, content string, done bool) {
	h.mu.Lock()
	h.seq[sid]++
	snap := snapshot{Seq: h.seq[sid], Content: content, Done: done}
	for ch := range h.subs[sid] {
		select {
		case ch <- snap:
		default:
		}
	}
	h.mu.Unlock()
}

// handleGenerationWS streams {seq, content} snapshots for one flow session.
func (s *Server) handleGenerationWS(w http.ResponseWriter, r *http.Request) {
	_, sid, err := s.flow(r)
	if err != nil {
		writeError(w, err)
		return
	}

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	if err := conn.SetReadDeadline(time.Now().Add(wsPongWait)); err != nil {
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	// Drain client frames so pongs are processed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ch, cancel := s.hub.subscribe(sid)
	defer cancel()

	ticker := time.NewTicker(wsPingEvery)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case snap := <-ch:
			if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
				return
			}
			if err := conn.WriteJSON(snap); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
