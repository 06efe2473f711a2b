// Package settlement provides game.Executor implementations: a latency-only
// stub for demo play and an HTTP client for an external bridge service.
package settlement

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/moonshotcommons/cross-guess-game/internal/game"
)

// Stub simulates a transfer: it waits Latency and returns a synthetic
// receipt. Nothing leaves the process.
type Stub struct {
	Latency time.Duration
	Clock   clock.Clock
}

func NewStub(latency time.Duration) *Stub {
	return &Stub{Latency: latency, Clock: clock.New()}
}

func (s *Stub) Transfer(ctx context.Context, req game.TransferRequest) (game.TransferReceipt, error) {
	if req.Amount.IsNegative() {
		return game.TransferReceipt{}, fmt.Errorf("stub transfer: %w", game.ErrNegativeStake)
	}

	clk := s.Clock
	if clk == nil {
		clk = clock.New()
	}
	if s.Latency > 0 {
		t := clk.Timer(s.Latency)
		select {
		case <-ctx.Done():
			t.Stop()
			return game.TransferReceipt{}, ctx.Err()
		case <-t.C:
		}
	} else if err := ctx.Err(); err != nil {
		return game.TransferReceipt{}, err
	}

	return game.TransferReceipt{
		TxID:              demoTxID(clk.Now()),
		DestinationAmount: req.Amount,
	}, nil
}

// demoTxID formats ids as demo_tx_<unix millis>_<9 base36 chars>.
func demoTxID(now time.Time) string {
	suffix := strconv.FormatUint(rand.Uint64(), 36)
	for len(suffix) < 9 {
		suffix = "0" + suffix
	}
	return fmt.Sprintf("demo_tx_%d_%s", now.UnixMilli(), suffix[:9])
}
