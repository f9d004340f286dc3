// internal/arena/memory.go
//
// Memory (pair-matching) game engine.
// Rules:
//   - 16 cards, two per symbol, shuffled uniformly at init.
//   - Players alternate turns; a turn flips up to two cards.
//   - After the second flip the pair is resolved (the service delays this to
//     model the simultaneous reveal): a match scores and keeps the turn, a
//     mismatch flips both back and passes the turn.
//   - When all cards are matched, the higher score wins; equal scores draw.
//
// Invalid flips (wrong turn, unknown/face-up/matched card, two cards already
// pending) are rejected silently: no state change, no broadcast.

package arena

import "math/rand"

// memorySymbols are the 8 card faces; each appears on exactly two cards.
var memorySymbols = []string{"🎮", "🎯", "🎲", "🎪", "🎨", "🎭", "🎸", "🎺"}

const memoryCardCount = 16

// Card is a single memory card. IDs are assigned pairwise before the shuffle
// and stay stable for the whole session.
type Card struct {
	ID      int    `json:"id"`
	Symbol  string `json:"symbol"`
	Flipped bool   `json:"flipped"`
	Matched bool   `json:"matched"`
}

// MemoryState is the authoritative state of one memory match.
type MemoryState struct {
	Cards         []Card `json:"cards"`
	CurrentPlayer int    `json:"currentPlayer"`
	FaceUp        []int  `json:"flippedCards"` // ids pending resolution, len ≤ 2
	Scores        [2]int `json:"scores"`
}

// MemoryEngine implements Engine (and Resolver) for the memory variant.
type MemoryEngine struct {
	rng *rand.Rand
}

func NewMemoryEngine(rng *rand.Rand) *MemoryEngine {
	return &MemoryEngine{rng: rng}
}

func (e *MemoryEngine) Variant() Variant { return VariantMemory }

// Init builds the 8 symbol pairs and applies a uniform Fisher–Yates shuffle.
func (e *MemoryEngine) Init(players []Player) State {
	cards := make([]Card, 0, memoryCardCount)
	for i, sym := range memorySymbols {
		cards = append(cards,
			Card{ID: i * 2, Symbol: sym},
			Card{ID: i*2 + 1, Symbol: sym},
		)
	}
	e.rng.Shuffle(len(cards), func(i, j int) {
		cards[i], cards[j] = cards[j], cards[i]
	})
	return &MemoryState{Cards: cards}
}

// Apply handles the only memory action, "flip-card".
func (e *MemoryEngine) Apply(st State, playerIndex int, act Action) Result {
	ms, ok := st.(*MemoryState)
	if !ok || act.Kind != "flip-card" {
		return Result{}
	}
	if playerIndex != ms.CurrentPlayer || len(ms.FaceUp) >= 2 {
		return Result{}
	}
	card := ms.card(act.CardID)
	if card == nil || card.Flipped || card.Matched {
		return Result{}
	}

	card.Flipped = true
	ms.FaceUp = append(ms.FaceUp, card.ID)

	res := Result{Updates: []any{CardFlippedUpdate{
		Action:      "card-flipped",
		CardID:      card.ID,
		PlayerIndex: playerIndex,
	}}}
	if len(ms.FaceUp) == 2 {
		res.ResolveAfter = true
	}
	return res
}

// Resolve compares the two pending cards. Called by the service after the
// reveal delay; the acting player is ms.CurrentPlayer (the turn only passes
// here, never during Apply).
func (e *MemoryEngine) Resolve(st State) Result {
	ms, ok := st.(*MemoryState)
	if !ok || len(ms.FaceUp) != 2 {
		return Result{}
	}
	first, second := ms.card(ms.FaceUp[0]), ms.card(ms.FaceUp[1])
	ids := [2]int{first.ID, second.ID}
	ms.FaceUp = nil

	if first.Symbol == second.Symbol {
		first.Matched = true
		second.Matched = true
		ms.Scores[ms.CurrentPlayer]++

		res := Result{Updates: []any{CardsMatchedUpdate{
			Action:      "cards-matched",
			CardIDs:     ids,
			PlayerIndex: ms.CurrentPlayer,
			Scores:      ms.Scores,
		}}}
		if ms.allMatched() {
			res.Outcome = &Outcome{
				WinnerIndex: memoryWinner(ms.Scores),
				Summary:     map[string]any{"scores": ms.Scores},
			}
		}
		return res
	}

	first.Flipped = false
	second.Flipped = false
	ms.CurrentPlayer = 1 - ms.CurrentPlayer
	return Result{Updates: []any{
		CardsFlipBackUpdate{Action: "cards-flip-back", CardIDs: ids},
		TurnChangeUpdate{Action: "turn-change", CurrentPlayer: ms.CurrentPlayer},
	}}
}

// card returns a pointer into Cards by id, or nil if unknown.
func (ms *MemoryState) card(id int) *Card {
	for i := range ms.Cards {
		if ms.Cards[i].ID == id {
			return &ms.Cards[i]
		}
	}
	return nil
}

func (ms *MemoryState) allMatched() bool {
	for i := range ms.Cards {
		if !ms.Cards[i].Matched {
			return false
		}
	}
	return true
}

// memoryWinner picks the higher score; equal scores are a draw (-1).
func memoryWinner(scores [2]int) int {
	switch {
	case scores[0] > scores[1]:
		return 0
	case scores[1] > scores[0]:
		return 1
	}
	return -1
}
