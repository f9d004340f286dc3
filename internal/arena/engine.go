// internal/arena/engine.go
//
// Variant enum and the game-engine capability interface.
// A variant is a closed set: adding a game means adding one enum case, one
// Engine implementation, and one entry in the service's engine table —
// nothing else branches on the variant name.

package arena

// Variant identifies one of the supported head-to-head minigames.
type Variant string

const (
	VariantMemory    Variant = "memory"
	VariantClickRace Variant = "clickRace"
)

// ParseVariant maps a wire-level variant name to its enum value.
func ParseVariant(s string) (Variant, bool) {
	switch Variant(s) {
	case VariantMemory:
		return VariantMemory, true
	case VariantClickRace:
		return VariantClickRace, true
	}
	return "", false
}

// Player is one participant of a queue entry or session.
type Player struct {
	ConnID      string  `json:"-"`
	UserID      string  `json:"userId"`
	DisplayName string  `json:"displayName"`
	Points      int     `json:"points"`
	Difficulty  float64 `json:"difficulty"`
}

// State is the variant-specific game state attached to an Active session.
// It is opaque to the session registry; only the matching Engine reads it.
type State any

// Action is a player input routed to an Active session's engine.
type Action struct {
	Kind   string // "flip-card" | "click"
	CardID int    // flip-card only
}

// Outcome is a terminal result reported by an engine.
type Outcome struct {
	WinnerIndex int            // 0 or 1; -1 for a draw
	Summary     map[string]any // variant fields for the game-end payload
}

// Result is what an engine hands back after applying an action. A zero
// Result means the action was rejected: no state change, nothing broadcast.
type Result struct {
	Updates      []any    // game-update payloads to broadcast, in order
	Outcome      *Outcome // non-nil once the match is decided
	ResolveAfter bool     // schedule a delayed Resolve (memory pair reveal)
}

// Engine is the per-variant state machine: session init, action
// validation/application, and win detection.
type Engine interface {
	Variant() Variant
	Init(players []Player) State
	Apply(st State, playerIndex int, act Action) Result
}

// Resolver is implemented by engines that defer part of an action's effect
// (the memory game's simultaneous-reveal pause). The service schedules
// Resolve after ResolveAfter results.
type Resolver interface {
	Resolve(st State) Result
}
