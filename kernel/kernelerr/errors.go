// Package kernelerr holds the sentinel errors the kernel surfaces to its
// callers. Callers compare with errors.Is; the transport layer renders
// the matching short string (see Reason) in its 409 response body.
package kernelerr

import "errors"

var (
	// ErrBadCoord is returned when a (row, col) falls outside the grid.
	ErrBadCoord = errors.New("bad-coord")
	// ErrGone is returned when the targeted card has already been removed.
	ErrGone = errors.New("gone")
	// ErrSelfControlled is returned when a first flip targets a card the
	// caller already controls.
	ErrSelfControlled = errors.New("self-controlled")
	// ErrControlled is returned when a second flip targets a card held by
	// another player.
	ErrControlled = errors.New("controlled")
	// ErrSameCard is returned when the second flip repeats the first coord.
	ErrSameCard = errors.New("same-card")
	// ErrTimeout is returned when a parked first flip exceeds its deadline.
	ErrTimeout = errors.New("timeout")
)

// Reason returns the short diagnostic string for err, or "" if err is not
// one of the sentinels above.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrBadCoord):
		return "bad-coord"
	case errors.Is(err, ErrGone):
		return "gone"
	case errors.Is(err, ErrSelfControlled):
		return "self-controlled"
	case errors.Is(err, ErrControlled):
		return "controlled"
	case errors.Is(err, ErrSameCard):
		return "same-card"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	default:
		return ""
	}
}
