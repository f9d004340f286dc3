// internal/arena/service.go
//
// The match service: a single-goroutine actor owning all matchmaking queues
// and live sessions. Public methods post typed messages onto one channel;
// Run drains it, so every queue/session mutation is serialized and the
// engines never see interleaved read-modify-writes. The only deliberate
// delay is the memory reveal pause, scheduled as a timer that re-enters the
// loop as a message (stamped with the session generation so a teardown race
// degrades to a no-op).
//
// Collaborators:
//   - Gateway: delivers events to connections (the websocket hub).
//   - Ledger: persists outcomes and point adjustments; called fire-and-forget
//     off the loop, the live state never waits on the database.

package arena

import (
	"context"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultResolveDelay is the memory reveal pause between the second flip and
// its resolution.
const DefaultResolveDelay = time.Second

// Gateway delivers a single event to one connection.
type Gateway interface {
	Send(connID, event string, data any)
}

// Ledger is the persistence collaborator. RecordMatchOutcome transfers
// points atomically and appends a history row; winnerUserID is empty on a
// draw. AdjustPoints applies a signed delta and returns the new balance.
type Ledger interface {
	RecordMatchOutcome(ctx context.Context, player1ID, player2ID, winnerUserID string, variant string) (pointsExchanged int, err error)
	AdjustPoints(ctx context.Context, userID string, delta int) (newBalance int, err error)
}

// ------------------------------ messages -----------------------------------

type message interface{ isMessage() }

type joinQueueMsg struct {
	connID, userID, displayName string
	points                      int
	variant                     string
}

type leaveQueueMsg struct{ connID, variant string }

type readyMsg struct{ connID, sessionID string }

type actionMsg struct {
	connID, sessionID string
	action            Action
}

type disconnectMsg struct{ connID string }

type resolveMsg struct {
	sessionID string
	gen       uint64
}

func (joinQueueMsg) isMessage()  {}
func (leaveQueueMsg) isMessage() {}
func (readyMsg) isMessage()      {}
func (actionMsg) isMessage()     {}
func (disconnectMsg) isMessage() {}
func (resolveMsg) isMessage()    {}

// ------------------------------- service -----------------------------------

// Service pairs waiting players, owns session lifecycle, and routes actions
// to the variant engines.
type Service struct {
	gw     Gateway
	ledger Ledger

	engines  map[Variant]Engine
	pool     *waitingPool
	sessions map[string]*Session

	msgs         chan message
	resolveDelay time.Duration
}

// NewService constructs a Service with the production reveal delay.
func NewService(gw Gateway, ledger Ledger) *Service {
	return NewServiceWithDelay(gw, ledger, DefaultResolveDelay)
}

// NewServiceWithDelay lets callers (mainly tests) control the reveal delay.
func NewServiceWithDelay(gw Gateway, ledger Ledger, resolveDelay time.Duration) *Service {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	engines := map[Variant]Engine{
		VariantMemory:    NewMemoryEngine(rng),
		VariantClickRace: NewClickRaceEngine(),
	}
	return &Service{
		gw:           gw,
		ledger:       ledger,
		engines:      engines,
		pool:         newWaitingPool(),
		sessions:     make(map[string]*Session),
		msgs:         make(chan message),
		resolveDelay: resolveDelay,
	}
}

// Run drains the message channel until ctx is cancelled. It must be the only
// goroutine touching queues and sessions.
func (s *Service) Run(ctx context.Context) {
	log.Info().Msg("match service started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("match service stopped")
			return
		case msg := <-s.msgs:
			s.dispatch(msg)
		}
	}
}

func (s *Service) dispatch(msg message) {
	switch m := msg.(type) {
	case joinQueueMsg:
		s.handleJoinQueue(m)
	case leaveQueueMsg:
		s.handleLeaveQueue(m)
	case readyMsg:
		s.handleReady(m)
	case actionMsg:
		s.handleAction(m)
	case disconnectMsg:
		s.handleDisconnect(m)
	case resolveMsg:
		s.handleResolve(m)
	}
}

// ----------------------------- public API ----------------------------------

// JoinQueue admits a connection to a variant's waiting queue.
func (s *Service) JoinQueue(connID, userID, displayName string, points int, variant string) {
	s.msgs <- joinQueueMsg{connID: connID, userID: userID, displayName: displayName, points: points, variant: variant}
}

// LeaveQueue is an explicit leave; a no-op if the connection is not waiting.
func (s *Service) LeaveQueue(connID, variant string) {
	s.msgs <- leaveQueueMsg{connID: connID, variant: variant}
}

// Ready signals a participant is ready to start its session.
func (s *Service) Ready(connID, sessionID string) {
	s.msgs <- readyMsg{connID: connID, sessionID: sessionID}
}

// Action routes a player input to its session's engine.
func (s *Service) Action(connID, sessionID string, act Action) {
	s.msgs <- actionMsg{connID: connID, sessionID: sessionID, action: act}
}

// Disconnect handles a dropped connection: eviction from queues and
// immediate teardown of any session it participates in.
func (s *Service) Disconnect(connID string) {
	s.msgs <- disconnectMsg{connID: connID}
}

// ------------------------------ handlers -----------------------------------

func (s *Service) handleJoinQueue(m joinQueueMsg) {
	v, ok := ParseVariant(m.variant)
	if !ok {
		s.gw.Send(m.connID, EventError, ErrorPayload{Message: "invalid game type"})
		return
	}
	p := Player{ConnID: m.connID, UserID: m.userID, DisplayName: m.displayName, Points: m.points}
	pair, paired := s.pool.enqueue(v, p)
	s.gw.Send(m.connID, EventRoomJoined, RoomJoinedPayload{Variant: string(v)})
	log.Debug().Str("conn", m.connID).Str("variant", string(v)).Msg("joined queue")
	if paired {
		s.createSession(v, pair)
	}
}

func (s *Service) handleLeaveQueue(m leaveQueueMsg) {
	v, ok := ParseVariant(m.variant)
	if !ok {
		return
	}
	s.pool.dequeue(v, m.connID)
}

// createSession pairs two queue entries: assigns the id and difficulties,
// notifies both players, and awards the room-entry bonus.
func (s *Service) createSession(v Variant, pair [2]Player) {
	sess := newSession(v, pair[0], pair[1])
	sess.State = AwaitingReady
	s.sessions[sess.ID] = sess

	log.Info().
		Str("session", sess.ID).
		Str("variant", string(v)).
		Str("player1", sess.Players[0].UserID).
		Str("player2", sess.Players[1].UserID).
		Msg("match found")

	for i := range sess.Players {
		p, opp := sess.Players[i], sess.Players[1-i]
		s.gw.Send(p.ConnID, EventMatchFound, MatchFoundPayload{
			SessionID:  sess.ID,
			Opponent:   OpponentInfo{UserID: opp.UserID, DisplayName: opp.DisplayName, Points: opp.Points},
			Difficulty: p.Difficulty,
		})
		go s.awardRoomEntry(p.UserID)
	}
}

func (s *Service) handleReady(m readyMsg) {
	sess, ok := s.sessions[m.sessionID]
	if !ok || sess.State != AwaitingReady {
		return // torn down by a disconnect race, or duplicate signal
	}
	if sess.playerIndex(m.connID) < 0 {
		return
	}
	sess.Ready[m.connID] = true
	if len(sess.Ready) < 2 {
		return
	}

	sess.Game = s.engines[sess.Variant].Init(sess.Players[:])
	sess.State = Active
	s.broadcast(sess, EventGameStart, GameStartPayload{Variant: string(sess.Variant), State: sess.Game})
	log.Info().Str("session", sess.ID).Msg("game started")
}

func (s *Service) handleAction(m actionMsg) {
	sess, ok := s.sessions[m.sessionID]
	if !ok || sess.State != Active {
		return // late or duplicate action; silently dropped
	}
	idx := sess.playerIndex(m.connID)
	if idx < 0 {
		return
	}
	s.applyResult(sess, s.engines[sess.Variant].Apply(sess.Game, idx, m.action))
}

func (s *Service) handleResolve(m resolveMsg) {
	sess, ok := s.sessions[m.sessionID]
	if !ok || sess.State != Active || sess.gen != m.gen {
		return // session gone or superseded since the timer was armed
	}
	sess.resolveTimer = nil
	res, ok := s.engines[sess.Variant].(Resolver)
	if !ok {
		return
	}
	s.applyResult(sess, res.Resolve(sess.Game))
}

func (s *Service) handleDisconnect(m disconnectMsg) {
	s.pool.removeEverywhere(m.connID)
	for _, sess := range s.sessions {
		idx := sess.playerIndex(m.connID)
		if idx < 0 {
			continue
		}
		opp := sess.Players[1-idx]
		s.gw.Send(opp.ConnID, EventOpponentDisconnected, struct{}{})
		s.removeSession(sess)
		log.Info().Str("session", sess.ID).Str("conn", m.connID).Msg("session torn down on disconnect")
	}
}

// ------------------------------ internals ----------------------------------

// applyResult broadcasts an engine result and advances the session: terminal
// outcomes finish it, pending reveals arm the resolve timer.
func (s *Service) applyResult(sess *Session, res Result) {
	for _, u := range res.Updates {
		s.broadcast(sess, EventGameUpdate, u)
	}
	if res.Outcome != nil {
		s.finish(sess, res.Outcome)
		return
	}
	if res.ResolveAfter {
		s.scheduleResolve(sess)
	}
}

// scheduleResolve arms the reveal timer. The callback re-enters the loop as
// a message carrying the current generation.
func (s *Service) scheduleResolve(sess *Session) {
	id, gen := sess.ID, sess.gen
	sess.resolveTimer = time.AfterFunc(s.resolveDelay, func() {
		s.msgs <- resolveMsg{sessionID: id, gen: gen}
	})
}

// finish broadcasts the outcome, removes the session, and hands the result
// to the ledger without blocking the loop. The in-memory lifecycle is final
// once the broadcast is out; a failed ledger write is logged, not reconciled.
func (s *Service) finish(sess *Session, o *Outcome) {
	sess.State = Finished

	payload := GameEndPayload{
		Players: []OpponentInfo{
			{UserID: sess.Players[0].UserID, DisplayName: sess.Players[0].DisplayName},
			{UserID: sess.Players[1].UserID, DisplayName: sess.Players[1].DisplayName},
		},
		Summary: o.Summary,
	}
	winnerID := ""
	if o.WinnerIndex >= 0 {
		winner, loser := sess.Players[o.WinnerIndex], sess.Players[1-o.WinnerIndex]
		winnerID = winner.UserID
		payload.WinnerUserID = &winner.UserID
		payload.LoserUserID = &loser.UserID
	}
	s.broadcast(sess, EventGameEnd, payload)
	s.removeSession(sess)

	go s.recordOutcome(sess, winnerID)
}

func (s *Service) recordOutcome(sess *Session, winnerID string) {
	exchanged, err := s.ledger.RecordMatchOutcome(
		context.Background(),
		sess.Players[0].UserID, sess.Players[1].UserID,
		winnerID, string(sess.Variant),
	)
	if err != nil {
		log.Error().Err(err).Str("session", sess.ID).Msg("record match outcome")
		return
	}
	log.Info().Str("session", sess.ID).Int("pointsExchanged", exchanged).Msg("outcome recorded")
}

func (s *Service) awardRoomEntry(userID string) {
	if _, err := s.ledger.AdjustPoints(context.Background(), userID, 1); err != nil {
		log.Warn().Err(err).Str("user", userID).Msg("room entry bonus")
	}
}

func (s *Service) removeSession(sess *Session) {
	sess.cancelResolve()
	delete(s.sessions, sess.ID)
}

// broadcast sends the same event to both participants.
func (s *Service) broadcast(sess *Session, event string, data any) {
	s.gw.Send(sess.Players[0].ConnID, event, data)
	s.gw.Send(sess.Players[1].ConnID, event, data)
}
