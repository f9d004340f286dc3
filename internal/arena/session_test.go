package arena

import (
	"strings"
	"testing"
)

func TestDifficultyMultiplierBoundaries(t *testing.T) {
	tests := []struct {
		points int
		want   float64
	}{
		{0, 1.0},
		{9, 1.0},
		{10, 1.2},
		{49, 1.2},
		{50, 1.5},
		{99, 1.5},
		{100, 1.8},
		{199, 1.8},
		{200, 2.0},
		{5000, 2.0},
	}
	for _, tt := range tests {
		if got := difficultyMultiplier(tt.points); got != tt.want {
			t.Errorf("difficultyMultiplier(%d) = %v, want %v", tt.points, got, tt.want)
		}
	}
}

func TestDifficultyMultiplierMonotonic(t *testing.T) {
	prev := 0.0
	for points := 0; points <= 300; points++ {
		got := difficultyMultiplier(points)
		if got < prev {
			t.Fatalf("difficultyMultiplier not monotonic at %d points: %v < %v", points, got, prev)
		}
		prev = got
	}
}

func TestNewSessionLocksDifficulty(t *testing.T) {
	a := Player{ConnID: "c1", UserID: "u1", Points: 5}
	b := Player{ConnID: "c2", UserID: "u2", Points: 150}
	sess := newSession(VariantClickRace, a, b)

	if sess.Players[0].Difficulty != 1.0 {
		t.Errorf("player 0 difficulty = %v, want 1.0", sess.Players[0].Difficulty)
	}
	if sess.Players[1].Difficulty != 1.8 {
		t.Errorf("player 1 difficulty = %v, want 1.8", sess.Players[1].Difficulty)
	}
	if sess.State != Forming {
		t.Errorf("new session state = %v, want Forming", sess.State)
	}
	if !strings.HasPrefix(sess.ID, "game-") {
		t.Errorf("session id %q missing generation stamp prefix", sess.ID)
	}
}

func TestSessionIDsUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := newSessionID()
		if seen[id] {
			t.Fatalf("duplicate session id %q", id)
		}
		seen[id] = true
	}
}

func TestPlayerIndex(t *testing.T) {
	sess := newSession(VariantMemory, Player{ConnID: "c1"}, Player{ConnID: "c2"})
	if got := sess.playerIndex("c1"); got != 0 {
		t.Errorf("playerIndex(c1) = %d, want 0", got)
	}
	if got := sess.playerIndex("c2"); got != 1 {
		t.Errorf("playerIndex(c2) = %d, want 1", got)
	}
	if got := sess.playerIndex("stranger"); got != -1 {
		t.Errorf("playerIndex(stranger) = %d, want -1", got)
	}
}
