package arena

import (
	"context"
	"sync"
	"testing"
	"time"
)

// ------------------------------- fakes --------------------------------------

type sentEvent struct {
	connID string
	event  string
	data   any
}

type fakeGateway struct {
	mu     sync.Mutex
	events []sentEvent
}

func (g *fakeGateway) Send(connID, event string, data any) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.events = append(g.events, sentEvent{connID: connID, event: event, data: data})
}

func (g *fakeGateway) len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.events)
}

func (g *fakeGateway) count(connID, event string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, e := range g.events {
		if e.connID == connID && e.event == event {
			n++
		}
	}
	return n
}

func (g *fakeGateway) last(connID, event string) (any, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i := len(g.events) - 1; i >= 0; i-- {
		if g.events[i].connID == connID && g.events[i].event == event {
			return g.events[i].data, true
		}
	}
	return nil, false
}

type outcomeRec struct {
	player1, player2, winner, variant string
}

type fakeLedger struct {
	mu       sync.Mutex
	outcomes []outcomeRec
	balances map[string]int

	recorded chan outcomeRec
	adjusted chan string
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		balances: make(map[string]int),
		recorded: make(chan outcomeRec, 4),
		adjusted: make(chan string, 8),
	}
}

func (l *fakeLedger) RecordMatchOutcome(ctx context.Context, p1, p2, winner, variant string) (int, error) {
	l.mu.Lock()
	rec := outcomeRec{player1: p1, player2: p2, winner: winner, variant: variant}
	l.outcomes = append(l.outcomes, rec)
	l.mu.Unlock()
	l.recorded <- rec
	return 0, nil
}

func (l *fakeLedger) AdjustPoints(ctx context.Context, userID string, delta int) (int, error) {
	l.mu.Lock()
	l.balances[userID] += delta
	bal := l.balances[userID]
	l.mu.Unlock()
	l.adjusted <- userID
	return bal, nil
}

func waitRecorded(t *testing.T, l *fakeLedger) outcomeRec {
	t.Helper()
	select {
	case rec := <-l.recorded:
		return rec
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the ledger write")
		return outcomeRec{}
	}
}

// ------------------------------ helpers -------------------------------------

func newTestService() (*Service, *fakeGateway, *fakeLedger) {
	gw := &fakeGateway{}
	lg := newFakeLedger()
	// A huge reveal delay keeps real timers from firing; tests drive
	// resolution through handleResolve directly.
	return NewServiceWithDelay(gw, lg, time.Hour), gw, lg
}

// pairUp joins two players to the same variant and returns the session
// created by the pairing.
func pairUp(t *testing.T, svc *Service, variant string, pointsA, pointsB int) *Session {
	t.Helper()
	svc.handleJoinQueue(joinQueueMsg{connID: "c1", userID: "u1", displayName: "alice", points: pointsA, variant: variant})
	svc.handleJoinQueue(joinQueueMsg{connID: "c2", userID: "u2", displayName: "bob", points: pointsB, variant: variant})
	if len(svc.sessions) != 1 {
		t.Fatalf("have %d sessions after pairing, want 1", len(svc.sessions))
	}
	for _, sess := range svc.sessions {
		return sess
	}
	return nil
}

func bothReady(svc *Service, sess *Session) {
	svc.handleReady(readyMsg{connID: "c1", sessionID: sess.ID})
	svc.handleReady(readyMsg{connID: "c2", sessionID: sess.ID})
}

// ------------------------------- tests --------------------------------------

func TestJoinQueueInvalidVariant(t *testing.T) {
	svc, gw, _ := newTestService()
	svc.handleJoinQueue(joinQueueMsg{connID: "c1", userID: "u1", variant: "tetris"})

	if gw.count("c1", EventError) != 1 {
		t.Fatal("invalid variant did not produce an error event")
	}
	if gw.count("c1", EventRoomJoined) != 0 {
		t.Error("invalid variant joined a queue")
	}
	if _, ok := svc.pool.waitingVariant("c1"); ok {
		t.Error("invalid variant left a queue entry behind")
	}
}

func TestPairingNotifiesBothAndAwardsEntryBonus(t *testing.T) {
	svc, gw, lg := newTestService()
	sess := pairUp(t, svc, "clickRace", 5, 150)

	if sess.State != AwaitingReady {
		t.Errorf("session state = %v, want AwaitingReady", sess.State)
	}
	for _, conn := range []string{"c1", "c2"} {
		if gw.count(conn, EventRoomJoined) != 1 {
			t.Errorf("%s: room-joined count != 1", conn)
		}
		if gw.count(conn, EventMatchFound) != 1 {
			t.Errorf("%s: match-found count != 1", conn)
		}
	}

	data, _ := gw.last("c1", EventMatchFound)
	mf := data.(MatchFoundPayload)
	if mf.Opponent.UserID != "u2" || mf.Opponent.Points != 150 {
		t.Errorf("c1 opponent = %+v, want u2/150", mf.Opponent)
	}
	if mf.Difficulty != 1.0 {
		t.Errorf("c1 difficulty = %v, want 1.0", mf.Difficulty)
	}
	data, _ = gw.last("c2", EventMatchFound)
	if mf := data.(MatchFoundPayload); mf.Difficulty != 1.8 {
		t.Errorf("c2 difficulty = %v, want 1.8", mf.Difficulty)
	}

	// Both players get the +1 room-entry bonus (asynchronously).
	for i := 0; i < 2; i++ {
		select {
		case <-lg.adjusted:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for room-entry bonus")
		}
	}
	lg.mu.Lock()
	defer lg.mu.Unlock()
	if lg.balances["u1"] != 1 || lg.balances["u2"] != 1 {
		t.Errorf("bonus balances = %v, want 1 each", lg.balances)
	}
}

func TestFIFOPairingAcrossFourJoins(t *testing.T) {
	svc, _, _ := newTestService()
	for _, conn := range []string{"a", "b", "c", "d"} {
		svc.handleJoinQueue(joinQueueMsg{connID: conn, userID: "user-" + conn, variant: "memory"})
	}
	if len(svc.sessions) != 2 {
		t.Fatalf("have %d sessions, want 2", len(svc.sessions))
	}
	for _, sess := range svc.sessions {
		p := [2]string{sess.Players[0].ConnID, sess.Players[1].ConnID}
		if p != [2]string{"a", "b"} && p != [2]string{"c", "d"} {
			t.Errorf("unexpected pairing %v, want {a,b} and {c,d}", p)
		}
	}
}

func TestReadyHandshakeStartsGame(t *testing.T) {
	svc, gw, _ := newTestService()
	sess := pairUp(t, svc, "memory", 5, 5)

	// A stranger's ready is ignored.
	svc.handleReady(readyMsg{connID: "intruder", sessionID: sess.ID})
	svc.handleReady(readyMsg{connID: "c1", sessionID: sess.ID})
	if sess.State != AwaitingReady || sess.Game != nil {
		t.Fatal("game started before both players were ready")
	}

	svc.handleReady(readyMsg{connID: "c2", sessionID: sess.ID})
	if sess.State != Active {
		t.Fatalf("session state = %v, want Active", sess.State)
	}
	ms, ok := sess.Game.(*MemoryState)
	if !ok || len(ms.Cards) != 16 {
		t.Fatalf("memory state not initialized: %T", sess.Game)
	}
	for _, conn := range []string{"c1", "c2"} {
		if gw.count(conn, EventGameStart) != 1 {
			t.Errorf("%s: game-start count != 1", conn)
		}
	}

	// Duplicate ready after Active changes nothing.
	svc.handleReady(readyMsg{connID: "c1", sessionID: sess.ID})
	if gw.count("c1", EventGameStart) != 1 {
		t.Error("duplicate ready re-broadcast game-start")
	}
}

func TestReadyOnUnknownSessionIsNoOp(t *testing.T) {
	svc, gw, _ := newTestService()
	svc.handleReady(readyMsg{connID: "c1", sessionID: "game-0-dead"})
	if gw.len() != 0 {
		t.Error("stale ready produced events")
	}
}

func TestActionBeforeActiveIsDropped(t *testing.T) {
	svc, gw, _ := newTestService()
	sess := pairUp(t, svc, "clickRace", 5, 5)
	before := gw.len()
	svc.handleAction(actionMsg{connID: "c1", sessionID: sess.ID, action: Action{Kind: "click"}})
	if gw.len() != before {
		t.Error("action on AwaitingReady session produced events")
	}
}

func TestDisconnectTearsDownSession(t *testing.T) {
	svc, gw, lg := newTestService()
	sess := pairUp(t, svc, "memory", 5, 5)
	bothReady(svc, sess)

	svc.handleDisconnect(disconnectMsg{connID: "c1"})

	if gw.count("c2", EventOpponentDisconnected) != 1 {
		t.Fatalf("opponent-disconnected count = %d, want 1", gw.count("c2", EventOpponentDisconnected))
	}
	if len(svc.sessions) != 0 {
		t.Fatal("session not removed on disconnect")
	}
	if gw.count("c1", EventGameEnd)+gw.count("c2", EventGameEnd) != 0 {
		t.Error("disconnect produced a game-end")
	}

	// Everything referencing the dead session degrades to a no-op.
	before := gw.len()
	svc.handleReady(readyMsg{connID: "c2", sessionID: sess.ID})
	svc.handleAction(actionMsg{connID: "c2", sessionID: sess.ID, action: Action{Kind: "flip-card"}})
	svc.handleResolve(resolveMsg{sessionID: sess.ID, gen: 0})
	if gw.len() != before {
		t.Error("stale references produced events")
	}

	// No outcome persisted for an abandoned match.
	select {
	case <-lg.recorded:
		t.Error("disconnect recorded a match outcome")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDisconnectCancelsPendingResolve(t *testing.T) {
	svc, gw, _ := newTestService()
	sess := pairUp(t, svc, "memory", 5, 5)
	bothReady(svc, sess)

	ms := sess.Game.(*MemoryState)
	first, second, _ := pairPositions(ms)
	svc.handleAction(actionMsg{connID: "c1", sessionID: sess.ID, action: Action{Kind: "flip-card", CardID: first}})
	svc.handleAction(actionMsg{connID: "c1", sessionID: sess.ID, action: Action{Kind: "flip-card", CardID: second}})
	staleGen := sess.gen

	svc.handleDisconnect(disconnectMsg{connID: "c2"})

	before := gw.len()
	svc.handleResolve(resolveMsg{sessionID: sess.ID, gen: staleGen})
	if gw.len() != before {
		t.Error("resolve after teardown mutated or broadcast state")
	}
}

func TestMemoryEndToEnd(t *testing.T) {
	svc, gw, lg := newTestService()
	sess := pairUp(t, svc, "memory", 5, 5)
	bothReady(svc, sess)

	ms := sess.Game.(*MemoryState)
	for _, ids := range groupBySymbol(ms) {
		svc.handleAction(actionMsg{connID: "c1", sessionID: sess.ID, action: Action{Kind: "flip-card", CardID: ids[0]}})
		svc.handleAction(actionMsg{connID: "c1", sessionID: sess.ID, action: Action{Kind: "flip-card", CardID: ids[1]}})
		svc.handleResolve(resolveMsg{sessionID: sess.ID, gen: sess.gen})
	}

	if ms.Scores != [2]int{8, 0} {
		t.Errorf("final scores = %v, want [8 0]", ms.Scores)
	}
	for _, conn := range []string{"c1", "c2"} {
		if gw.count(conn, EventGameEnd) != 1 {
			t.Fatalf("%s: game-end count = %d, want 1", conn, gw.count(conn, EventGameEnd))
		}
	}
	data, _ := gw.last("c1", EventGameEnd)
	end := data.(GameEndPayload)
	if end.WinnerUserID == nil || *end.WinnerUserID != "u1" {
		t.Errorf("winner = %v, want u1", end.WinnerUserID)
	}
	if end.LoserUserID == nil || *end.LoserUserID != "u2" {
		t.Errorf("loser = %v, want u2", end.LoserUserID)
	}
	if len(svc.sessions) != 0 {
		t.Error("finished session not removed")
	}

	rec := waitRecorded(t, lg)
	if rec.winner != "u1" || rec.variant != "memory" {
		t.Errorf("recorded outcome = %+v, want winner u1 / memory", rec)
	}
}

func TestClickRaceEndToEnd(t *testing.T) {
	svc, gw, lg := newTestService()
	sess := pairUp(t, svc, "clickRace", 5, 150)
	bothReady(svc, sess)

	cs := sess.Game.(*ClickRaceState)
	if cs.TargetClicks != 90 {
		t.Fatalf("target = %d, want floor(50×1.8) = 90", cs.TargetClicks)
	}

	// 95 clicks: the 5 past the finish must be dropped by the dead session.
	for i := 0; i < 95; i++ {
		svc.handleAction(actionMsg{connID: "c1", sessionID: sess.ID, action: Action{Kind: "click"}})
	}

	if cs.Clicks[0] != 90 {
		t.Errorf("clicks = %d, want 90", cs.Clicks[0])
	}
	for _, conn := range []string{"c1", "c2"} {
		if gw.count(conn, EventGameEnd) != 1 {
			t.Fatalf("%s: game-end count = %d, want exactly 1", conn, gw.count(conn, EventGameEnd))
		}
	}
	if len(svc.sessions) != 0 {
		t.Error("finished session not removed")
	}

	rec := waitRecorded(t, lg)
	if rec.winner != "u1" || rec.variant != "clickRace" {
		t.Errorf("recorded outcome = %+v, want winner u1 / clickRace", rec)
	}
}

func TestRunDispatchesMessages(t *testing.T) {
	svc, gw, _ := newTestService()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go svc.Run(ctx)

	svc.JoinQueue("c1", "u1", "alice", 5, "memory")
	svc.JoinQueue("c2", "u2", "bob", 5, "memory")
	svc.Disconnect("c1")

	// Disconnect is the last serialized message; once its effect is visible
	// the queue joins before it have been processed too.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		svc.msgs <- leaveQueueMsg{connID: "none", variant: "memory"} // fence
		if gw.count("c2", EventOpponentDisconnected) == 1 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("Run loop did not process messages")
}
