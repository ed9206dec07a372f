// Package httpx is the transport adapter: it translates four
// path-parameter GET endpoints into kernel calls and renders the
// serialized board (or a 409 diagnostic) back to the caller.
package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"memory-arena-server/kernel"
	"memory-arena-server/kernel/kernelerr"
)

// Handler holds the dependencies shared by every route.
type Handler struct {
	Kernel              Kernel
	DefaultWatchTimeout time.Duration
	Log                 *slog.Logger
}

// Kernel is the subset of *kernel.Kernel the transport calls. Declared as
// an interface so handlers can be tested against a fake.
type Kernel interface {
	Flip(ctx context.Context, player string, row, col int) (kernel.Board, error)
	Look(player string) kernel.Board
	Watch(ctx context.Context, player string, timeout time.Duration) kernel.Board
	Map(transform func(string) string)
}

// NewHandler builds a Handler with the given kernel and default watch
// timeout.
func NewHandler(k Kernel, defaultWatchTimeout time.Duration, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{Kernel: k, DefaultWatchTimeout: defaultWatchTimeout, Log: log}
}

// Routes registers the four endpoints on mux. The optional WebSocket
// companion (GET /ws/{player}) is registered separately by the caller
// via wsbridge, since it is a convenience, not part of this contract.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /look/{player}", h.Look)
	mux.HandleFunc("GET /flip/{player}/{coord}", h.Flip)
	mux.HandleFunc("GET /watch/{player}", h.Watch)
	mux.HandleFunc("GET /replace/{player}/{from}/{to}", h.Replace)
}

// requestLog tags the request context's logger with a fresh request id
// so a single flip can be traced through the log even under concurrent
// load.
func (h *Handler) requestLog(r *http.Request) *slog.Logger {
	return h.Log.With("tag", "httpx", "request_id", uuid.NewString(), "path", r.URL.Path)
}

// Look handles GET /look/{player}. Always 200.
func (h *Handler) Look(w http.ResponseWriter, r *http.Request) {
	player := r.PathValue("player")
	board := h.Kernel.Look(player)
	writeBoard(w, board)
}

// Flip handles GET /flip/{player}/{row},{col}.
func (h *Handler) Flip(w http.ResponseWriter, r *http.Request) {
	log := h.requestLog(r)
	player := r.PathValue("player")
	row, col, ok := parseCoord(r.PathValue("coord"))
	if !ok {
		http.Error(w, "cannot flip this card: bad-coord", http.StatusConflict)
		return
	}

	board, err := h.Kernel.Flip(r.Context(), player, row, col)
	if err != nil {
		reason := kernelerr.Reason(err)
		if reason == "" {
			reason = err.Error()
		}
		log.Info("flip rejected", "player", player, "reason", reason)
		http.Error(w, "cannot flip this card: "+reason, http.StatusConflict)
		return
	}
	writeBoard(w, board)
}

// Watch handles GET /watch/{player}. Blocks until version changes or
// timeout, then always returns 200.
func (h *Handler) Watch(w http.ResponseWriter, r *http.Request) {
	player := r.PathValue("player")
	timeout := h.DefaultWatchTimeout
	if raw := r.URL.Query().Get("timeout_ms"); raw != "" {
		if ms, err := strconv.Atoi(raw); err == nil && ms > 0 {
			timeout = time.Duration(ms) * time.Millisecond
		}
	}
	board := h.Kernel.Watch(r.Context(), player, timeout)
	writeBoard(w, board)
}

// Replace handles GET /replace/{player}/{from}/{to}: a bulk map with the
// transform label -> (label == from ? to : label).
func (h *Handler) Replace(w http.ResponseWriter, r *http.Request) {
	player := r.PathValue("player")
	from := r.PathValue("from")
	to := r.PathValue("to")

	h.Kernel.Map(func(label string) string {
		if label == from {
			return to
		}
		return label
	})

	board := h.Kernel.Look(player)
	writeBoard(w, board)
}

func writeBoard(w http.ResponseWriter, board kernel.Board) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(board.String()))
}

// parseCoord splits a "{row},{col}" path segment into its two integers.
func parseCoord(raw string) (row, col int, ok bool) {
	parts := strings.SplitN(raw, ",", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	row, err1 := strconv.Atoi(parts[0])
	col, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return row, col, true
}
