// Package game implements the single-round guessing game: admission of
// participants under capacity and timing rules, a one-shot round clock,
// winner resolution and prize-pool bookkeeping. Money movement is delegated
// to an injected Executor.
package game

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusWaiting Status = "waiting"
	StatusActive  Status = "active"
	StatusEnded   Status = "ended"
)

type Participant struct {
	Identity     string
	Guess        int
	Stake        decimal.Decimal
	StakeReceipt string
	JoinedAt     time.Time
}

type TransferRequest struct {
	Amount      decimal.Decimal
	SourceChain string
	DestChain   string
	Sender      string
	Receiver    string
}

type TransferReceipt struct {
	TxID string
	// DestinationAmount is what arrived on the destination chain, when the
	// executor knows it.
	DestinationAmount decimal.Decimal
}

// Executor moves value between chains or accounts. Implementations may take
// arbitrarily long and must honour ctx cancellation.
type Executor interface {
	Transfer(ctx context.Context, req TransferRequest) (TransferReceipt, error)
}

// AnswerSource picks the correct answer in [1, max].
type AnswerSource interface {
	Answer(max int) int
}

type randomAnswers struct{}

// RandomAnswers draws uniformly from math/rand. Not cryptographically secure
// and not fairness-audited.
func RandomAnswers() AnswerSource { return randomAnswers{} }

func (randomAnswers) Answer(max int) int { return rand.IntN(max) + 1 }

// FixedAnswer always answers with its own value.
type FixedAnswer int

func (f FixedAnswer) Answer(int) int { return int(f) }
