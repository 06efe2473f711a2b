// Package journal persists every money movement the game makes so that
// operators can reconcile settlement receipts against rounds.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/moonshotcommons/cross-guess-game/internal/game"
)

type Kind string

const (
	KindStake Kind = "stake"
	KindPrize Kind = "prize"
)

type Status string

const (
	// StatusCommitted is a stake whose participant was admitted.
	StatusCommitted Status = "committed"
	// StatusOrphaned is a stake that settled but whose participant was
	// refused afterwards.
	StatusOrphaned Status = "orphaned"
	StatusFailed   Status = "failed"
	StatusPaid     Status = "paid"
)

// ParseStatus accepts the empty string as "any status".
func ParseStatus(s string) (Status, bool) {
	switch st := Status(s); st {
	case "", StatusCommitted, StatusOrphaned, StatusFailed, StatusPaid:
		return st, true
	}
	return "", false
}

type Transfer struct {
	ID        int64           `json:"id"`
	Mode      string          `json:"mode"`
	RoundID   string          `json:"roundId"`
	Kind      Kind            `json:"kind"`
	Identity  string          `json:"identity"`
	Amount    decimal.Decimal `json:"amount"`
	TxID      string          `json:"txId"`
	Status    Status          `json:"status"`
	Error     string          `json:"error,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

const (
	defaultLimit = 50
	maxLimit     = 500
	writeTimeout = 5 * time.Second
)

type Journal struct {
	db     *sql.DB
	logger *slog.Logger
}

func New(db *sql.DB, logger *slog.Logger) *Journal {
	return &Journal{db: db, logger: logger}
}

func (j *Journal) Record(ctx context.Context, t Transfer) (int64, error) {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	var id int64
	err := j.db.QueryRowContext(ctx, `
		INSERT INTO transfers (mode, round_id, kind, identity, amount, tx_id, status, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`, t.Mode, t.RoundID, string(t.Kind), t.Identity, t.Amount.String(), t.TxID, string(t.Status), t.Error,
		t.CreatedAt.UTC().Format(time.RFC3339Nano)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("recording %s transfer: %w", t.Kind, err)
	}
	return id, nil
}

// List returns transfers newest first, optionally filtered by status.
func (j *Journal) List(ctx context.Context, status Status, limit int) ([]Transfer, error) {
	limit = clampLimit(limit)
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, mode, round_id, kind, identity, amount, tx_id, status, error, created_at
		FROM transfers
		WHERE ? = '' OR status = ?
		ORDER BY id DESC
		LIMIT ?
	`, string(status), string(status), limit)
	if err != nil {
		return nil, fmt.Errorf("listing transfers: %w", err)
	}
	defer rows.Close()

	out := []Transfer{}
	for rows.Next() {
		var (
			t                        Transfer
			kind, st, amount, create string
		)
		if err := rows.Scan(&t.ID, &t.Mode, &t.RoundID, &kind, &t.Identity, &amount, &t.TxID, &st, &t.Error, &create); err != nil {
			return nil, fmt.Errorf("scanning transfer: %w", err)
		}
		t.Kind, t.Status = Kind(kind), Status(st)
		if t.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("transfer %d amount: %w", t.ID, err)
		}
		if t.CreatedAt, err = time.Parse(time.RFC3339Nano, create); err != nil {
			return nil, fmt.Errorf("transfer %d created_at: %w", t.ID, err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func clampLimit(n int) int {
	switch {
	case n <= 0:
		return defaultLimit
	case n > maxLimit:
		return maxLimit
	}
	return n
}

// Notify journals the money-moving events. Write failures are
// logged; they never reach the game.
func (j *Journal) Notify(e game.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	var err error
	switch e.Type {
	case game.EventPlayerJoined:
		_, err = j.Record(ctx, fromEvent(e, KindStake, StatusCommitted))
	case game.EventTransferOrphaned:
		_, err = j.Record(ctx, fromEvent(e, KindStake, StatusOrphaned))
	case game.EventPrizePaid:
		_, err = j.Record(ctx, fromEvent(e, KindPrize, StatusPaid))
	case game.EventPrizeFailed:
		_, err = j.Record(ctx, fromEvent(e, KindPrize, StatusFailed))
	default:
		return
	}
	if err != nil {
		j.logger.Error("journal write failed", "event", e.Type, "round_id", e.RoundID, "tx_id", e.TxID, "error", err)
	}
}

func fromEvent(e game.Event, kind Kind, status Status) Transfer {
	return Transfer{
		Mode:      e.Mode,
		RoundID:   e.RoundID,
		Kind:      kind,
		Identity:  e.Identity,
		Amount:    e.Amount,
		TxID:      e.TxID,
		Status:    status,
		Error:     e.Error,
		CreatedAt: e.At,
	}
}
