// internal/ledger/ledger.go
//
// Points ledger: the persistence collaborator for the realtime arena and
// the HTTP routes. Responsibilities:
//   - Balance reads and signed adjustments (floored at zero).
//   - Atomic match-outcome recording: read both balances, move the loser's
//     entire stake to the winner, append a history row — one transaction.
//   - Withdrawals: minimum amount and balance checks, transactional debit
//     plus a pending withdrawal row.
//   - Match history queries with usernames joined in.
//
// The arena never waits on these calls; it invokes them fire-and-forget and
// treats failures as log-worthy, not fatal (the announced result stands).

package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// MinWithdrawal is the smallest amount a user may cash out.
const MinWithdrawal = 50

var (
	ErrUnknownUser        = errors.New("unknown user")
	ErrBelowMinWithdrawal = fmt.Errorf("withdrawal minimum is %d points", MinWithdrawal)
	ErrInsufficientPoints = errors.New("insufficient points")
)

// Store wraps the SQL handle with ledger operations.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// GetPoints returns a user's current balance.
func (s *Store) GetPoints(ctx context.Context, userID string) (int, error) {
	var points int
	err := s.db.QueryRowContext(ctx, `SELECT points FROM users WHERE id=?`, userID).Scan(&points)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrUnknownUser
	}
	return points, err
}

// AdjustPoints applies a signed delta to a user's balance, floored at zero,
// and returns the new balance. Used for the room-entry bonus.
func (s *Store) AdjustPoints(ctx context.Context, userID string, delta int) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET points = MAX(0, points + ?) WHERE id=?`, delta, userID)
	if err != nil {
		return 0, fmt.Errorf("adjust points: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return 0, ErrUnknownUser
	}
	return s.GetPoints(ctx, userID)
}

// RecordMatchOutcome settles a finished match in one transaction: the winner
// gains the loser's entire balance (the loser is floored at zero) and a
// history row is appended. winnerUserID == "" records a draw: a history row
// with a NULL winner and no transfer. Returns the points exchanged.
func (s *Store) RecordMatchOutcome(ctx context.Context, player1ID, player2ID, winnerUserID string, variant string) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin outcome tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	exchanged := 0
	var winnerCol any // NULL on a draw

	if winnerUserID != "" {
		loserID := player1ID
		if winnerUserID == player1ID {
			loserID = player2ID
		} else if winnerUserID != player2ID {
			return 0, fmt.Errorf("winner %s is not a participant", winnerUserID)
		}

		if err := tx.QueryRowContext(ctx,
			`SELECT points FROM users WHERE id=?`, loserID).Scan(&exchanged); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return 0, ErrUnknownUser
			}
			return 0, fmt.Errorf("read loser balance: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE users SET points = points + ? WHERE id=?`, exchanged, winnerUserID); err != nil {
			return 0, fmt.Errorf("credit winner: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE users SET points = MAX(0, points - ?) WHERE id=?`, exchanged, loserID); err != nil {
			return 0, fmt.Errorf("debit loser: %w", err)
		}
		winnerCol = winnerUserID
	}

	if _, err := tx.ExecContext(ctx, `
        INSERT INTO game_history (player1_id, player2_id, game_type, winner_id, points_exchanged)
        VALUES (?,?,?,?,?)`,
		player1ID, player2ID, variant, winnerCol, exchanged); err != nil {
		return 0, fmt.Errorf("append history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit outcome: %w", err)
	}
	return exchanged, nil
}

// Withdraw debits a pending cash-out. Enforces the minimum amount and the
// balance check, then deducts and records the withdrawal atomically.
// Returns the new balance.
func (s *Store) Withdraw(ctx context.Context, userID string, amount int) (int, error) {
	if amount < MinWithdrawal {
		return 0, ErrBelowMinWithdrawal
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin withdraw tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var points int
	if err := tx.QueryRowContext(ctx,
		`SELECT points FROM users WHERE id=?`, userID).Scan(&points); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrUnknownUser
		}
		return 0, fmt.Errorf("read balance: %w", err)
	}
	if points < amount {
		return 0, ErrInsufficientPoints
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET points = points - ? WHERE id=?`, amount, userID); err != nil {
		return 0, fmt.Errorf("debit balance: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO withdrawals (user_id, amount, status) VALUES (?,?, 'pending')`, userID, amount); err != nil {
		return 0, fmt.Errorf("record withdrawal: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit withdraw: %w", err)
	}
	return points - amount, nil
}

// HistoryRow is one entry of a user's recent matches.
type HistoryRow struct {
	ID              int64  `json:"id"`
	Player1Name     string `json:"player1Username"`
	Player2Name     string `json:"player2Username"`
	GameType        string `json:"gameType"`
	WinnerName      string `json:"winnerUsername,omitempty"` // empty on a draw
	PointsExchanged int    `json:"pointsExchanged"`
	CreatedAt       string `json:"createdAt"`
}

// History returns the user's most recent matches, newest first.
func (s *Store) History(ctx context.Context, userID string, limit int) ([]HistoryRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT gh.id,
               COALESCE(u1.username, '') AS player1_username,
               COALESCE(u2.username, '') AS player2_username,
               gh.game_type,
               COALESCE(winner.username, '') AS winner_username,
               gh.points_exchanged,
               gh.created_at
        FROM game_history gh
        LEFT JOIN users u1 ON gh.player1_id = u1.id
        LEFT JOIN users u2 ON gh.player2_id = u2.id
        LEFT JOIN users winner ON gh.winner_id = winner.id
        WHERE gh.player1_id = ? OR gh.player2_id = ?
        ORDER BY gh.created_at DESC, gh.id DESC
        LIMIT ?`, userID, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]HistoryRow, 0, limit)
	for rows.Next() {
		var r HistoryRow
		if err := rows.Scan(&r.ID, &r.Player1Name, &r.Player2Name, &r.GameType,
			&r.WinnerName, &r.PointsExchanged, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
