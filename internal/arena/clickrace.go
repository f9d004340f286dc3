// internal/arena/clickrace.go
//
// Click-race game engine: first player to reach the click target wins.
// The target scales with the harder player's difficulty multiplier, so a
// high-balance player racing a newcomer raises the bar for both.

package arena

import "math"

// ClickRaceState is the authoritative state of one click race.
type ClickRaceState struct {
	TargetClicks int     `json:"targetClicks"`
	Clicks       [2]int  `json:"clicks"`
	Finished     [2]bool `json:"finished"`
}

// ClickRaceEngine implements Engine for the clickRace variant.
type ClickRaceEngine struct{}

func NewClickRaceEngine() *ClickRaceEngine { return &ClickRaceEngine{} }

func (e *ClickRaceEngine) Variant() Variant { return VariantClickRace }

// Init derives the target from both players' multipliers:
// floor(50 × max(d0, d1)).
func (e *ClickRaceEngine) Init(players []Player) State {
	return &ClickRaceState{
		TargetClicks: int(math.Floor(50 * math.Max(players[0].Difficulty, players[1].Difficulty))),
	}
}

// Apply handles the only click-race action, "click". Clicks after the
// player's own finish are rejected; actions on the session itself stop once
// the service marks it Finished, so at most one player ever finishes.
func (e *ClickRaceEngine) Apply(st State, playerIndex int, act Action) Result {
	cs, ok := st.(*ClickRaceState)
	if !ok || act.Kind != "click" || cs.Finished[playerIndex] {
		return Result{}
	}

	cs.Clicks[playerIndex]++
	res := Result{Updates: []any{ClickUpdate{
		Action:      "click",
		PlayerIndex: playerIndex,
		Clicks:      cs.Clicks,
	}}}

	if cs.Clicks[playerIndex] >= cs.TargetClicks {
		cs.Finished[playerIndex] = true
		res.Outcome = &Outcome{
			WinnerIndex: playerIndex,
			Summary:     map[string]any{"clicks": cs.Clicks},
		}
	}
	return res
}
