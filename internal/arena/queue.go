// internal/arena/queue.go
//
// Matchmaking waiting lists: one FIFO per variant.
// Membership is exclusive — a connection sits in at most one queue across
// all variants; joining a new queue removes it from every other one first.
// Pairing takes the two oldest entries. All methods run on the service's
// event loop, so enqueue-and-pair is atomic with respect to other joins.

package arena

// waitingPool holds the per-variant FIFO queues of players awaiting an
// opponent.
type waitingPool struct {
	byVariant map[Variant][]Player
}

func newWaitingPool() *waitingPool {
	return &waitingPool{byVariant: make(map[Variant][]Player)}
}

// enqueue appends p to variant v's queue after evicting p from every queue.
// If that makes two waiters, the two oldest entries are spliced out and
// returned as a pair.
func (w *waitingPool) enqueue(v Variant, p Player) (pair [2]Player, paired bool) {
	w.removeEverywhere(p.ConnID)
	q := append(w.byVariant[v], p)
	if len(q) >= 2 {
		pair = [2]Player{q[0], q[1]}
		w.byVariant[v] = q[2:]
		return pair, true
	}
	w.byVariant[v] = q
	return pair, false
}

// dequeue is an explicit leave; a no-op if the connection is not waiting.
func (w *waitingPool) dequeue(v Variant, connID string) {
	w.byVariant[v] = removeConn(w.byVariant[v], connID)
}

// removeEverywhere evicts a connection from all variant queues (used on
// disconnect and before re-enqueueing).
func (w *waitingPool) removeEverywhere(connID string) {
	for v := range w.byVariant {
		w.byVariant[v] = removeConn(w.byVariant[v], connID)
	}
}

// waitingVariant reports which queue, if any, holds the connection.
func (w *waitingPool) waitingVariant(connID string) (Variant, bool) {
	for v, q := range w.byVariant {
		for _, p := range q {
			if p.ConnID == connID {
				return v, true
			}
		}
	}
	return "", false
}

func removeConn(q []Player, connID string) []Player {
	for i, p := range q {
		if p.ConnID == connID {
			return append(q[:i], q[i+1:]...)
		}
	}
	return q
}
