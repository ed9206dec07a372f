// Package kernel implements the concurrency-controlled Memory game core:
// the card-state machine that arbitrates many players racing to flip,
// claim, and match cards, the per-card wait/notify mechanism, the
// versioned change feed that powers long-poll watch, and the bulk
// relabel operation. Everything here is serialized by a single exclusion
// domain; the HTTP/WS transport adapters live outside this package and
// call Flip/Look/Watch/Map directly.
package kernel

import (
	"context"
	"sync"
	"time"

	"memory-arena-server/kernel/kernelerr"
)

// DefaultFlipParkTimeout is the deadline a caller waits on a card
// controlled by another player before Flip fails with ErrTimeout, used
// when New is given a non-positive duration.
const DefaultFlipParkTimeout = 30 * time.Second

// DefaultWatchTimeout is used by Watch when the caller supplies a
// non-positive timeout.
const DefaultWatchTimeout = 60 * time.Second

// Kernel is the serialized state machine coordinating every player
// against one shared grid. A zero Kernel is not usable; construct with
// New.
type Kernel struct {
	mu              sync.Mutex
	grid            *Grid
	players         *PlayerRegistry
	waits           *WaitSet
	version         *VersionClock
	flipParkTimeout time.Duration
}

// New builds a Kernel over a fully-populated initial grid. flipParkTimeout
// bounds how long a Rule 1-D park waits before failing with ErrTimeout; a
// non-positive value falls back to DefaultFlipParkTimeout.
func New(grid *Grid, flipParkTimeout time.Duration) *Kernel {
	if flipParkTimeout <= 0 {
		flipParkTimeout = DefaultFlipParkTimeout
	}
	return &Kernel{
		grid:            grid,
		players:         NewPlayerRegistry(),
		waits:           NewWaitSet(),
		version:         NewVersionClock(),
		flipParkTimeout: flipParkTimeout,
	}
}

// Flip is the two-phase flip operation: the first call after a completed
// (or not-yet-started) move begins a new move and runs Rule 1; a second
// call before the move completes runs Rule 2.
func (k *Kernel) Flip(ctx context.Context, player string, row, col int) (Board, error) {
	coord := Coord{Row: row, Col: col}

	k.mu.Lock()
	if _, err := k.grid.At(coord); err != nil {
		k.mu.Unlock()
		return Board{}, err
	}

	ps := k.players.Get(player)
	var err error
	if ps.Current.Completed || ps.Current.First == nil {
		k.cleanupLocked(ps, player)
		err = k.runRule1(ctx, ps, player, coord)
	} else {
		err = k.runRule2(ps, player, coord)
	}

	board := k.lookLocked(player)
	k.mu.Unlock()
	return board, err
}

// runRule1 implements cases 1-A..1-E. It assumes k.mu is held on entry and
// guarantees k.mu is held on return (parking releases and reacquires it
// internally). A released waiter re-enters at the top of the loop and
// re-evaluates from case 1-A against whatever the card looks like now.
func (k *Kernel) runRule1(ctx context.Context, ps *PlayerState, player string, coord Coord) error {
	for {
		card, _ := k.grid.At(coord) // bounds already validated by caller

		switch {
		case card.Removed: // 1-A
			return kernelerr.ErrGone

		case card.Controller == player: // 1-E
			return kernelerr.ErrSelfControlled

		case !card.FaceUp: // 1-B
			card.FaceUp = true
			card.Controller = player
			ps.Controlled[coord] = struct{}{}
			ps.Current = PlayerMove{First: &coord}
			k.version.Bump()
			return nil

		case card.Controller == "": // 1-C
			card.Controller = player
			ps.Controlled[coord] = struct{}{}
			ps.Current = PlayerMove{First: &coord}
			k.version.Bump()
			return nil

		default: // 1-D: face up, controlled by someone else
			waitCh := k.waits.Chan(coord)
			k.mu.Unlock()

			var err error
			select {
			case <-waitCh:
			case <-time.After(k.flipParkTimeout):
				err = kernelerr.ErrTimeout
			case <-ctx.Done():
				err = ctx.Err()
			}

			k.mu.Lock()
			if err != nil {
				return err
			}
			// loop: re-evaluate from 1-A against the now-current card state
		}
	}
}

// runRule2 implements cases 2-A..2-E, including the same-card failure and
// the relinquish behavior shared by the failing branches. Assumes and
// preserves k.mu held.
func (k *Kernel) runRule2(ps *PlayerState, player string, coord Coord) error {
	first := *ps.Current.First

	if coord == first {
		k.relinquish(ps, first)
		return kernelerr.ErrSameCard
	}

	second, err := k.grid.At(coord)
	if err != nil {
		return err
	}
	firstCard, _ := k.grid.At(first)

	switch {
	case second.Removed: // 2-A
		k.relinquish(ps, first)
		return kernelerr.ErrGone

	case second.FaceUp && second.Controller != "" && second.Controller != player: // 2-B
		k.relinquish(ps, first)
		return kernelerr.ErrControlled

	case !second.FaceUp: // 2-C: reveal, then fall through to match check
		second.FaceUp = true
		fallthrough

	default:
		if second.Label == firstCard.Label { // 2-D match
			second.Controller = player
			ps.Controlled[coord] = struct{}{}
			ps.Current.Second = &coord
			ps.Current.WasMatch = true
			ps.Current.Completed = true
			k.version.Bump()
			return nil
		}

		// 2-E mismatch: both cards stay face-up, both controllers clear.
		firstCard.Controller = ""
		delete(ps.Controlled, first)
		k.waits.Release(first)

		second.Controller = ""
		delete(ps.Controlled, coord)
		k.waits.Release(coord)

		ps.Current.Second = &coord
		ps.Current.WasMatch = false
		ps.Current.Completed = true
		k.version.Bump()
		return nil
	}
}

// relinquish clears control of coord, removes it from the player's
// controlled set, wakes anyone parked on it, and completes the move as a
// failed (non-match) attempt.
func (k *Kernel) relinquish(ps *PlayerState, coord Coord) {
	if card, err := k.grid.At(coord); err == nil {
		card.Controller = ""
	}
	delete(ps.Controlled, coord)
	k.waits.Release(coord)
	ps.Current = PlayerMove{Completed: true, WasMatch: false}
	k.version.Bump()
}

// cleanupLocked runs Rule 3: the deferred resolution of the player's
// previous move, performed at the start of their next one. Assumes k.mu
// held.
func (k *Kernel) cleanupLocked(ps *PlayerState, player string) {
	mv := ps.Current
	if !mv.Completed || mv.First == nil {
		ps.Current = emptyMove()
		return
	}

	first := *mv.First
	changed := false

	if mv.WasMatch && mv.Second != nil {
		second := *mv.Second
		firstCard, ferr := k.grid.At(first)
		secondCard, serr := k.grid.At(second)
		bothStillHeld := ferr == nil && serr == nil &&
			firstCard.Controller == player && secondCard.Controller == player
		if bothStillHeld {
			firstCard.Removed = true
			firstCard.FaceUp = false
			firstCard.Controller = ""
			secondCard.Removed = true
			secondCard.FaceUp = false
			secondCard.Controller = ""
			changed = true
		}
		delete(ps.Controlled, first)
		delete(ps.Controlled, second)
		k.waits.Release(first)
		k.waits.Release(second)
	} else if mv.Second != nil {
		second := *mv.Second
		for _, c := range [2]Coord{first, second} {
			card, err := k.grid.At(c)
			if err != nil {
				continue
			}
			if card.FaceUp && card.Controller == "" {
				card.FaceUp = false
				changed = true
			}
		}
	}

	if changed {
		k.version.Bump()
	}
	ps.Current = emptyMove()
}

// lookLocked builds the serialized board for viewer. Assumes k.mu held.
func (k *Kernel) lookLocked(viewer string) Board {
	views := make([]CardView, len(k.grid.Cards))
	for i := range k.grid.Cards {
		views[i] = cardView(&k.grid.Cards[i], viewer)
	}
	return Board{Rows: k.grid.Rows, Cols: k.grid.Cols, Cards: views}
}

// Look produces the serialized board from the caller's perspective. It
// does not mutate state and only holds the lock for the snapshot read.
func (k *Kernel) Look(player string) Board {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.lookLocked(player)
}

// Watch blocks until the version advances past its value at entry, or
// until timeout elapses, then returns the current board. A non-positive
// timeout is replaced with DefaultWatchTimeout. Expiry is not an error:
// watch always succeeds with whatever the board looks like at the
// deadline.
func (k *Kernel) Watch(ctx context.Context, player string, timeout time.Duration) Board {
	if timeout <= 0 {
		timeout = DefaultWatchTimeout
	}

	k.mu.Lock()
	changed := k.version.Changed()
	k.mu.Unlock()

	select {
	case <-changed:
	case <-time.After(timeout):
	case <-ctx.Done():
	}

	return k.Look(player)
}

// Map applies transform to every non-removed card's label under the
// kernel lock, atomically with respect to all other operations. The
// transform may itself suspend; while it runs, no flip, look, or watch
// snapshot can interleave.
func (k *Kernel) Map(transform func(label string) string) {
	k.mu.Lock()
	defer k.mu.Unlock()

	for i := range k.grid.Cards {
		card := &k.grid.Cards[i]
		if card.Removed {
			continue
		}
		card.Label = transform(card.Label)
	}
	k.version.Bump()
}
