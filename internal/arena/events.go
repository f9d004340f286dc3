// internal/arena/events.go
//
// Wire-level event vocabulary for the realtime layer.
// Every message on the websocket is a JSON envelope {event, data}; the
// constants and payload structs here define both directions:
//   - server → client: room-joined, match-found, game-start, game-update,
//     game-end, opponent-disconnected, error.
//   - client → server: join-queue, leave-queue, ready, action
//     (plus the implicit per-connection disconnect signal).

package arena

// Server → client event names.
const (
	EventRoomJoined           = "room-joined"
	EventMatchFound           = "match-found"
	EventGameStart            = "game-start"
	EventGameUpdate           = "game-update"
	EventGameEnd              = "game-end"
	EventOpponentDisconnected = "opponent-disconnected"
	EventError                = "error"
)

// Client → server event names.
const (
	EventJoinQueue  = "join-queue"
	EventLeaveQueue = "leave-queue"
	EventReady      = "ready"
	EventAction     = "action"
)

// ----------------------- client → server payloads --------------------------

type JoinQueuePayload struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	Variant     string `json:"variant"`
	Points      int    `json:"points"` // advisory; the server re-reads the balance
}

type LeaveQueuePayload struct {
	Variant string `json:"variant"`
}

type ReadyPayload struct {
	SessionID string `json:"sessionId"`
}

type ActionPayload struct {
	SessionID string     `json:"sessionId"`
	Kind      string     `json:"kind"`
	Data      ActionData `json:"data"`
}

type ActionData struct {
	CardID int `json:"cardId"`
}

// ----------------------- server → client payloads --------------------------

type RoomJoinedPayload struct {
	Variant string `json:"variant"`
}

type OpponentInfo struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	Points      int    `json:"points"`
}

type MatchFoundPayload struct {
	SessionID  string       `json:"sessionId"`
	Opponent   OpponentInfo `json:"opponent"`
	Difficulty float64      `json:"difficultyMultiplier"`
}

type GameStartPayload struct {
	Variant string `json:"variant"`
	State   State  `json:"state"`
}

type GameEndPayload struct {
	WinnerUserID *string        `json:"winnerUserId"` // nil on a draw
	LoserUserID  *string        `json:"loserUserId"`  // nil on a draw
	Players      []OpponentInfo `json:"players"`
	Summary      map[string]any `json:"summary"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

// game-update payloads. Each carries an "action" discriminator so clients can
// switch on it without inspecting the rest of the object.

type CardFlippedUpdate struct {
	Action      string `json:"action"` // "card-flipped"
	CardID      int    `json:"cardId"`
	PlayerIndex int    `json:"playerIndex"`
}

type CardsMatchedUpdate struct {
	Action      string `json:"action"` // "cards-matched"
	CardIDs     [2]int `json:"cardIds"`
	PlayerIndex int    `json:"playerIndex"`
	Scores      [2]int `json:"scores"`
}

type CardsFlipBackUpdate struct {
	Action  string `json:"action"` // "cards-flip-back"
	CardIDs [2]int `json:"cardIds"`
}

type TurnChangeUpdate struct {
	Action        string `json:"action"` // "turn-change"
	CurrentPlayer int    `json:"currentPlayer"`
}

type ClickUpdate struct {
	Action      string `json:"action"` // "click"
	PlayerIndex int    `json:"playerIndex"`
	Clicks      [2]int `json:"clicks"`
}
