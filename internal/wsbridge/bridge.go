// Package wsbridge is an optional push-based companion to the long-poll
// GET /watch/{player} contract. A client may instead open GET
// /ws/{player} to receive the serialized board whenever a VersionClock
// bump changes what that player sees, without re-polling.
package wsbridge

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"memory-arena-server/kernel"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Watcher is the subset of *kernel.Kernel the bridge needs.
type Watcher interface {
	Watch(ctx context.Context, player string, timeout time.Duration) kernel.Board
}

// Bridge upgrades a request to a WebSocket connection and, until the
// connection closes, sends a board frame each time the board differs
// from the last frame sent, checking after every version bump or
// FrameTimeout.
type Bridge struct {
	Kernel       Watcher
	FrameTimeout time.Duration // long-poll granularity per frame, not a connection deadline
	Log          *slog.Logger
}

// NewBridge builds a Bridge.
func NewBridge(k Watcher, frameTimeout time.Duration, log *slog.Logger) *Bridge {
	if log == nil {
		log = slog.Default()
	}
	return &Bridge{Kernel: k, FrameTimeout: frameTimeout, Log: log}
}

// ServeWS handles GET /ws/{player}.
func (b *Bridge) ServeWS(w http.ResponseWriter, r *http.Request) {
	player := r.PathValue("player")
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.Log.Warn("websocket upgrade failed", "tag", "wsbridge", "error", err)
		return
	}
	connID := uuid.NewString()
	b.Log.Info("watcher connected", "tag", "wsbridge", "conn_id", connID, "player", player)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go b.drainReads(conn, cancel)

	var lastPayload string
	for {
		board := b.Kernel.Watch(ctx, player, b.FrameTimeout)
		payload := board.String()
		if payload != lastPayload {
			if err := b.writeFrame(conn, payload); err != nil {
				b.Log.Info("watcher disconnected", "tag", "wsbridge", "conn_id", connID, "player", player, "error", err)
				conn.Close()
				return
			}
			lastPayload = payload
		}
		select {
		case <-ctx.Done():
			conn.Close()
			return
		default:
		}
	}
}

// drainReads discards client frames (this protocol is server-push only)
// and cancels ctx once the peer goes away, which is the only way to
// detect a dead connection without the client ever writing anything.
func (b *Bridge) drainReads(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (b *Bridge) writeFrame(conn *websocket.Conn, payload string) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, []byte(payload))
}
