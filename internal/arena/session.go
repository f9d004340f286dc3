// internal/arena/session.go
//
// Session model and lifecycle. A session is one match between exactly two
// players; it moves Forming → AwaitingReady → Active → Finished, or is torn
// down early when a participant disconnects. The difficulty multiplier is
// computed from each player's balance once, at pairing time, and never
// changes for the session's life.

package arena

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// LifecycleState tracks where a session is in its life.
type LifecycleState int

const (
	Forming LifecycleState = iota
	AwaitingReady
	Active
	Finished
)

func (s LifecycleState) String() string {
	switch s {
	case Forming:
		return "forming"
	case AwaitingReady:
		return "awaiting-ready"
	case Active:
		return "active"
	case Finished:
		return "finished"
	}
	return "unknown"
}

// Session is the authoritative state of one in-progress match.
type Session struct {
	ID        string
	Variant   Variant
	Players   [2]Player
	State     LifecycleState
	Ready     map[string]bool // connIDs that signaled ready
	Game      State           // variant state; nil until Active
	CreatedAt time.Time

	// gen stamps pending resolve timers; a callback carrying an older
	// generation finds the session changed underneath it and must no-op.
	gen          uint64
	resolveTimer *time.Timer
}

// newSession pairs two queue entries into a fresh session. Difficulty is
// locked in here from the balances the players queued with.
func newSession(v Variant, a, b Player) *Session {
	a.Difficulty = difficultyMultiplier(a.Points)
	b.Difficulty = difficultyMultiplier(b.Points)
	return &Session{
		ID:        newSessionID(),
		Variant:   v,
		Players:   [2]Player{a, b},
		State:     Forming,
		Ready:     make(map[string]bool),
		CreatedAt: time.Now(),
	}
}

// newSessionID builds a generation-stamped unique id,
// e.g. "game-1721245530123-9f3b2c1a".
func newSessionID() string {
	frag := strings.SplitN(uuid.NewString(), "-", 2)[0]
	return fmt.Sprintf("game-%d-%s", time.Now().UnixMilli(), frag)
}

// playerIndex maps a connection id to its slot (0 or 1), or -1.
func (s *Session) playerIndex(connID string) int {
	for i, p := range s.Players {
		if p.ConnID == connID {
			return i
		}
	}
	return -1
}

// cancelResolve stops any pending reveal timer and advances the generation
// so an already-fired callback is rejected.
func (s *Session) cancelResolve() {
	s.gen++
	if s.resolveTimer != nil {
		s.resolveTimer.Stop()
		s.resolveTimer = nil
	}
}

// difficultyMultiplier is the monotonic step function from point balance to
// the per-session scalar: <10 → 1.0, <50 → 1.2, <100 → 1.5, <200 → 1.8,
// else 2.0.
func difficultyMultiplier(points int) float64 {
	switch {
	case points < 10:
		return 1.0
	case points < 50:
		return 1.2
	case points < 100:
		return 1.5
	case points < 200:
		return 1.8
	}
	return 2.0
}
