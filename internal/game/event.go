package game

import (
	"time"

	"github.com/shopspring/decimal"
)

type EventType string

const (
	EventRoundCreated     EventType = "round_created"
	EventPlayerJoined     EventType = "player_joined"
	EventRoundStarted     EventType = "round_started"
	EventRoundEnded       EventType = "round_ended"
	EventPrizePaid        EventType = "prize_paid"
	EventPrizeFailed      EventType = "prize_failed"
	EventTransferOrphaned EventType = "transfer_orphaned"
)

// Event is a round lifecycle notification. Fields not relevant to Type are
// left zero.
type Event struct {
	Type          EventType       `json:"type"`
	Mode          string          `json:"mode"`
	RoundID       string          `json:"roundId"`
	Identity      string          `json:"identity,omitempty"`
	Guess         int             `json:"guess,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	PrizePool     decimal.Decimal `json:"prizePool"`
	TxID          string          `json:"txId,omitempty"`
	Participants  int             `json:"participants"`
	CorrectAnswer int             `json:"correctAnswer,omitempty"`
	EndsAt        *time.Time      `json:"endsAt,omitempty"`
	Error         string          `json:"error,omitempty"`
	At            time.Time       `json:"at"`
}

// Notifier receives lifecycle events. Session delivers events one at a time,
// in emission order, from a single goroutine.
type Notifier interface {
	Notify(Event)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Event)

func (f NotifierFunc) Notify(e Event) { f(e) }

// Notifiers fans an event out to each member in order.
type Notifiers []Notifier

func (ns Notifiers) Notify(e Event) {
	for _, n := range ns {
		if n != nil {
			n.Notify(e)
		}
	}
}
