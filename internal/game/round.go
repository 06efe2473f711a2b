package game

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// Round is the state machine for one round. Status only moves
// Waiting -> Active -> Ended. Joins are accepted while Waiting, and while
// Active until EndsAt. A rejected call never mutates the round.
//
// Round is not safe for concurrent use; Session serializes access.
type Round struct {
	id              string
	maxParticipants int

	status    Status
	createdAt time.Time
	startedAt time.Time
	endsAt    time.Time
	endedAt   time.Time

	participants []Participant
	// pending holds identities whose transfer is in flight. They count
	// against capacity and uniqueness until admitted or released.
	pending map[string]struct{}

	correctAnswer int
	winner        *Participant
	pool          *PrizePool
}

func NewRound(id string, createdAt time.Time, maxParticipants int, carry decimal.Decimal) *Round {
	return &Round{
		id:              id,
		maxParticipants: maxParticipants,
		status:          StatusWaiting,
		createdAt:       createdAt,
		pending:         make(map[string]struct{}),
		pool:            NewPrizePool(carry),
	}
}

func (r *Round) ID() string            { return r.id }
func (r *Round) Status() Status        { return r.status }
func (r *Round) Pool() *PrizePool      { return r.pool }
func (r *Round) ParticipantCount() int { return len(r.participants) }

func (r *Round) accepting(now time.Time) bool {
	switch r.status {
	case StatusWaiting:
		return true
	case StatusActive:
		return now.Before(r.endsAt)
	default:
		return false
	}
}

func (r *Round) joined(identity string) bool {
	return slices.ContainsFunc(r.participants, func(p Participant) bool {
		return p.Identity == identity
	})
}

// check runs the admission rules in order: accepting, capacity, uniqueness.
// held marks a caller that already owns the pending slot for identity.
func (r *Round) check(identity string, now time.Time, held bool) error {
	if !r.accepting(now) {
		return ErrRoundNotAccepting
	}

	occupied := len(r.participants) + len(r.pending)
	if held {
		occupied--
	}
	if occupied >= r.maxParticipants {
		return ErrRoundFull
	}

	if r.joined(identity) {
		return ErrDuplicateParticipant
	}
	if _, inFlight := r.pending[identity]; inFlight && !held {
		return ErrDuplicateParticipant
	}
	return nil
}

// CanAdmit reports whether a new identity would currently pass admission.
func (r *Round) CanAdmit(now time.Time) bool {
	return r.accepting(now) && len(r.participants)+len(r.pending) < r.maxParticipants
}

// Reserve holds a slot for identity while its transfer is in flight.
func (r *Round) Reserve(identity string, now time.Time) error {
	if err := r.check(identity, now, false); err != nil {
		return err
	}
	r.pending[identity] = struct{}{}
	return nil
}

// Release drops a reservation. Releasing an unknown identity is a no-op.
func (r *Round) Release(identity string) {
	delete(r.pending, identity)
}

// Admit appends p, adds its stake to the pool and, for the first
// participant, moves the round to Active with EndsAt = p.JoinedAt + d.
// started reports that transition.
func (r *Round) Admit(p Participant, d time.Duration) (started bool, err error) {
	_, held := r.pending[p.Identity]
	if err := r.check(p.Identity, p.JoinedAt, held); err != nil {
		return false, err
	}
	if err := r.pool.Add(p.Stake); err != nil {
		return false, err
	}

	delete(r.pending, p.Identity)
	r.participants = append(r.participants, p)

	if r.status == StatusWaiting {
		if d < 0 {
			d = 0
		}
		r.status = StatusActive
		r.startedAt = p.JoinedAt
		r.endsAt = p.JoinedAt.Add(d)
		return true, nil
	}
	return false, nil
}

// Resolve ends the round with answer. The winner is the first participant in
// join order whose guess matches. A Waiting round may only be resolved while
// it has no participants (forced expiry).
func (r *Round) Resolve(answer int, now time.Time) error {
	switch r.status {
	case StatusEnded:
		return ErrAlreadyResolved
	case StatusWaiting:
		if len(r.participants) > 0 {
			return ErrRoundNotActive
		}
	}

	r.status = StatusEnded
	r.endedAt = now
	r.correctAnswer = answer
	clear(r.pending)

	var winners []Participant
	for i := range r.participants {
		if r.participants[i].Guess == answer {
			w := r.participants[i]
			r.winner = &w
			winners = append(winners, w)
			break
		}
	}
	r.pool.Settle(winners)
	return nil
}

// Winner returns the winner, if the round ended with one.
func (r *Round) Winner() (Participant, bool) {
	if r.winner == nil {
		return Participant{}, false
	}
	return *r.winner, true
}

// CorrectAnswer returns the answer once the round has ended.
func (r *Round) CorrectAnswer() (int, bool) {
	return r.correctAnswer, r.status == StatusEnded
}

// RoundSnapshot is a copy of a round's state, safe to hand to readers.
type RoundSnapshot struct {
	ID              string
	Status          Status
	CreatedAt       time.Time
	StartedAt       time.Time
	EndsAt          time.Time
	EndedAt         time.Time
	MaxParticipants int
	Participants    []Participant
	Pending         int
	CorrectAnswer   int
	Winner          *Participant
	PrizePool       decimal.Decimal
	Carry           decimal.Decimal
	PerWinner       decimal.Decimal
}

// Ended reports whether the snapshot was taken after resolution.
func (s RoundSnapshot) Ended() bool { return s.Status == StatusEnded }

func (r *Round) Snapshot() RoundSnapshot {
	s := RoundSnapshot{
		ID:              r.id,
		Status:          r.status,
		CreatedAt:       r.createdAt,
		StartedAt:       r.startedAt,
		EndsAt:          r.endsAt,
		EndedAt:         r.endedAt,
		MaxParticipants: r.maxParticipants,
		Participants:    slices.Clone(r.participants),
		Pending:         len(r.pending),
		PrizePool:       r.pool.Total(),
		Carry:           r.pool.Carry(),
	}
	if s.Participants == nil {
		s.Participants = []Participant{}
	}
	if r.status == StatusEnded {
		s.CorrectAnswer = r.correctAnswer
		s.PerWinner = r.pool.PerWinner()
		if r.winner != nil {
			w := *r.winner
			s.Winner = &w
		}
	}
	return s
}
