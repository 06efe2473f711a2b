package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrSessionClosed = errors.New("session closed")

const (
	defaultSettlementTimeout = 2 * time.Minute
	defaultPayoutTimeout     = 2 * time.Minute
	eventBuffer              = 256
)

type Config struct {
	// Mode labels the session ("demo", "real") in round ids, logs and events.
	Mode     string
	Executor Executor
	Clock    clock.Clock
	Answers  AnswerSource
	Notifier Notifier
	Logger   *slog.Logger

	RoundDuration   time.Duration
	Stake           decimal.Decimal
	MaxParticipants int
	GuessMax        int
	// Rollover carries an unwon pool into the next round.
	Rollover bool

	SourceChain string
	DestChain   string
	// House receives stakes and funds payouts. When empty the participant's
	// own identity is used on both ends.
	House string

	SettlementTimeout time.Duration
	PayoutTimeout     time.Duration
}

// Session owns at most one round at a time and serializes every mutation of
// it. A new round is opened lazily by Join when there is none or the current
// one has ended.
type Session struct {
	cfg     Config
	clk     clock.Clock
	exec    Executor
	answers AnswerSource
	notify  Notifier
	logger  *slog.Logger

	mu      sync.Mutex
	round   *Round
	timer   *RoundClock
	closing bool
	payouts sync.WaitGroup

	evMu       sync.Mutex
	evClosed   bool
	events     chan Event
	dispatched chan struct{}
}

func New(cfg Config) (*Session, error) {
	if cfg.Executor == nil {
		return nil, errors.New("game: executor is required")
	}
	if cfg.MaxParticipants < 1 {
		return nil, fmt.Errorf("game: max participants must be at least 1, got %d", cfg.MaxParticipants)
	}
	if cfg.GuessMax < 1 {
		return nil, fmt.Errorf("game: guess range upper bound must be at least 1, got %d", cfg.GuessMax)
	}
	if cfg.Stake.IsNegative() {
		return nil, fmt.Errorf("game: %w", ErrNegativeStake)
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.Answers == nil {
		cfg.Answers = RandomAnswers()
	}
	if cfg.Notifier == nil {
		cfg.Notifier = Notifiers(nil)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.SettlementTimeout <= 0 {
		cfg.SettlementTimeout = defaultSettlementTimeout
	}
	if cfg.PayoutTimeout <= 0 {
		cfg.PayoutTimeout = defaultPayoutTimeout
	}

	s := &Session{
		cfg:        cfg,
		clk:        cfg.Clock,
		exec:       cfg.Executor,
		answers:    cfg.Answers,
		notify:     cfg.Notifier,
		logger:     cfg.Logger.With("mode", cfg.Mode),
		events:     make(chan Event, eventBuffer),
		dispatched: make(chan struct{}),
	}
	go s.dispatch()
	return s, nil
}

func (s *Session) Mode() string           { return s.cfg.Mode }
func (s *Session) GuessMax() int          { return s.cfg.GuessMax }
func (s *Session) Stake() decimal.Decimal { return s.cfg.Stake }

type JoinResult struct {
	RoundID     string
	Participant Participant
	Receipt     TransferReceipt
	// Started is set when this join moved the round to Active.
	Started bool
}

// Join admits identity with guess into the current round. The stake transfer
// runs without holding the session lock; the identity's slot is reserved for
// the duration so concurrent joins cannot oversubscribe the round.
func (s *Session) Join(ctx context.Context, identity string, guess int) (JoinResult, error) {
	if identity == "" {
		return JoinResult{}, &ValidationError{Reason: "identity is required", Err: ErrMissingIdentity}
	}

	if err := s.CheckGuess(guess); err != nil {
		return JoinResult{}, err
	}

	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		return JoinResult{}, ErrSessionClosed
	}
	round := s.ensureRoundLocked(s.clk.Now())
	if err := round.Reserve(identity, s.clk.Now()); err != nil {
		s.mu.Unlock()
		return JoinResult{}, &RejectionError{RoundID: round.ID(), Err: err}
	}
	s.mu.Unlock()

	receiver := s.cfg.House
	if receiver == "" {
		receiver = identity
	}
	tctx, cancel := context.WithTimeout(ctx, s.cfg.SettlementTimeout)
	receipt, err := s.exec.Transfer(tctx, TransferRequest{
		Amount:      s.cfg.Stake,
		SourceChain: s.cfg.SourceChain,
		DestChain:   s.cfg.DestChain,
		Sender:      identity,
		Receiver:    receiver,
	})
	cancel()
	if err != nil {
		s.mu.Lock()
		round.Release(identity)
		s.mu.Unlock()
		s.logger.Warn("stake transfer failed", "round_id", round.ID(), "identity", identity, "error", err)
		return JoinResult{}, &ExecutorError{Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p := Participant{
		Identity:     identity,
		Guess:        guess,
		Stake:        s.cfg.Stake,
		StakeReceipt: receipt.TxID,
		JoinedAt:     s.clk.Now(),
	}
	started, err := round.Admit(p, s.cfg.RoundDuration)
	if err != nil {
		round.Release(identity)
		s.logger.Error("stake transferred but admission failed",
			"round_id", round.ID(),
			"identity", identity,
			"tx_id", receipt.TxID,
			"amount", s.cfg.Stake.String(),
			"error", err,
		)
		s.emit(Event{
			Type:     EventTransferOrphaned,
			RoundID:  round.ID(),
			Identity: identity,
			Guess:    guess,
			Amount:   s.cfg.Stake,
			TxID:     receipt.TxID,
			Error:    err.Error(),
		})
		return JoinResult{}, &InconsistencyError{
			RoundID:  round.ID(),
			Identity: identity,
			Receipt:  receipt,
			Err:      err,
		}
	}

	s.logger.Info("participant admitted",
		"round_id", round.ID(),
		"identity", identity,
		"guess", guess,
		"tx_id", receipt.TxID,
		"participants", round.ParticipantCount(),
		"prize_pool", round.Pool().Total().String(),
	)
	s.emit(Event{
		Type:         EventPlayerJoined,
		RoundID:      round.ID(),
		Identity:     identity,
		Guess:        guess,
		Amount:       s.cfg.Stake,
		PrizePool:    round.Pool().Total(),
		TxID:         receipt.TxID,
		Participants: round.ParticipantCount(),
	})

	if started {
		id := round.ID()
		endsAt := s.timer.Start(s.cfg.RoundDuration, func() { s.expire(id) })
		s.logger.Info("round started", "round_id", id, "ends_at", endsAt, "duration", s.cfg.RoundDuration)
		s.emit(Event{
			Type:         EventRoundStarted,
			RoundID:      id,
			PrizePool:    round.Pool().Total(),
			Participants: round.ParticipantCount(),
			EndsAt:       &endsAt,
		})
	}

	return JoinResult{
		RoundID:     round.ID(),
		Participant: p,
		Receipt:     receipt,
		Started:     started,
	}, nil
}

// CheckGuess rejects a guess outside 1..GuessMax. It touches no session state.
func (s *Session) CheckGuess(guess int) error {
	if guess < 1 || guess > s.cfg.GuessMax {
		return &ValidationError{
			Reason: fmt.Sprintf("guess must be a number between 1 and %d", s.cfg.GuessMax),
			Err:    ErrInvalidGuess,
		}
	}
	return nil
}

// ensureRoundLocked returns the current round, opening a new one when there
// is none or the current one has ended.
func (s *Session) ensureRoundLocked(now time.Time) *Round {
	if s.round != nil && s.round.Status() != StatusEnded {
		return s.round
	}

	carry := decimal.Zero
	if s.round != nil && s.cfg.Rollover {
		carry = s.round.Pool().Unclaimed()
	}
	if s.timer != nil {
		s.timer.Cancel()
	}

	s.round = NewRound(s.newRoundID(), now, s.cfg.MaxParticipants, carry)
	s.timer = NewRoundClock(s.clk)

	s.logger.Info("round created", "round_id", s.round.ID(), "carry", carry.String())
	s.emit(Event{
		Type:      EventRoundCreated,
		RoundID:   s.round.ID(),
		PrizePool: carry,
	})
	return s.round
}

func (s *Session) newRoundID() string {
	id := uuid.Must(uuid.NewV7()).String()
	if s.cfg.Mode == "" {
		return id
	}
	return s.cfg.Mode + "_" + id
}

// expire resolves the round with the given id. It is the clock callback and
// is a no-op for a superseded or already resolved round.
func (s *Session) expire(roundID string) {
	s.mu.Lock()
	r := s.round
	if r == nil || r.ID() != roundID || r.Status() != StatusActive {
		s.mu.Unlock()
		return
	}

	answer := s.answers.Answer(s.cfg.GuessMax)
	if err := r.Resolve(answer, s.clk.Now()); err != nil {
		s.mu.Unlock()
		s.logger.Error("resolving round", "round_id", roundID, "error", err)
		return
	}
	snap := r.Snapshot()

	s.emit(Event{
		Type:          EventRoundEnded,
		RoundID:       roundID,
		PrizePool:     snap.PrizePool,
		Participants:  len(snap.Participants),
		CorrectAnswer: answer,
		Identity:      winnerIdentity(snap),
		Amount:        snap.PerWinner,
	})

	payout := snap.Winner != nil && !s.closing
	if payout {
		s.payouts.Add(1)
	}
	s.mu.Unlock()

	if snap.Winner == nil {
		s.logger.Info("round ended without winner",
			"round_id", roundID,
			"correct_answer", answer,
			"participants", len(snap.Participants),
			"unclaimed", snap.PrizePool.String(),
			"rollover", s.cfg.Rollover,
		)
		return
	}

	s.logger.Info("round ended",
		"round_id", roundID,
		"correct_answer", answer,
		"winner", snap.Winner.Identity,
		"prize", snap.PerWinner.String(),
	)
	if payout {
		go s.payout(snap)
	}
}

func winnerIdentity(snap RoundSnapshot) string {
	if snap.Winner == nil {
		return ""
	}
	return snap.Winner.Identity
}

// payout sends the prize to the winner. Its outcome never touches the ended
// round.
func (s *Session) payout(snap RoundSnapshot) {
	defer s.payouts.Done()

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.PayoutTimeout)
	defer cancel()

	winner := snap.Winner.Identity
	sender := s.cfg.House
	if sender == "" {
		sender = winner
	}
	receipt, err := s.exec.Transfer(ctx, TransferRequest{
		Amount:      snap.PerWinner,
		SourceChain: s.cfg.DestChain,
		DestChain:   s.cfg.DestChain,
		Sender:      sender,
		Receiver:    winner,
	})
	if err != nil {
		s.logger.Error("prize payout failed", "round_id", snap.ID, "winner", winner, "amount", snap.PerWinner.String(), "error", err)
		s.emit(Event{
			Type:     EventPrizeFailed,
			RoundID:  snap.ID,
			Identity: winner,
			Amount:   snap.PerWinner,
			Error:    err.Error(),
		})
		return
	}

	s.logger.Info("prize paid", "round_id", snap.ID, "winner", winner, "amount", snap.PerWinner.String(), "tx_id", receipt.TxID)
	s.emit(Event{
		Type:     EventPrizePaid,
		RoundID:  snap.ID,
		Identity: winner,
		Amount:   snap.PerWinner,
		TxID:     receipt.TxID,
	})
}

// Status returns a snapshot of the current round, if any.
func (s *Session) Status() (RoundSnapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.round == nil {
		return RoundSnapshot{}, false
	}
	return s.round.Snapshot(), true
}

// Result is Status for callers that treat a missing round as an error.
func (s *Session) Result() (RoundSnapshot, error) {
	snap, ok := s.Status()
	if !ok {
		return RoundSnapshot{}, ErrNoRound
	}
	return snap, nil
}

// TimeRemaining returns whole seconds until the current round expires.
func (s *Session) TimeRemaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer == nil {
		return 0
	}
	return s.timer.TimeRemaining(s.clk.Now())
}

// CanJoin reports whether a join issued now would pass the round checks:
// either a fresh round would be opened, or the current one is accepting and
// has spare capacity.
func (s *Session) CanJoin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canJoinLocked()
}

func (s *Session) canJoinLocked() bool {
	if s.closing {
		return false
	}
	if s.round == nil || s.round.Status() == StatusEnded {
		return true
	}
	return s.round.CanAdmit(s.clk.Now())
}

// View is a consistent read of the values a polling client needs.
type View struct {
	Round         *RoundSnapshot
	TimeRemaining int
	CanJoin       bool
}

func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{CanJoin: s.canJoinLocked()}
	if s.round != nil {
		snap := s.round.Snapshot()
		v.Round = &snap
		v.TimeRemaining = s.timer.TimeRemaining(s.clk.Now())
	}
	return v
}

// Close disarms the round clock, waits for in-flight payouts and stops event
// delivery. Joins after Close fail with ErrSessionClosed.
func (s *Session) Close() {
	s.mu.Lock()
	s.closing = true
	if s.timer != nil {
		s.timer.Cancel()
	}
	s.mu.Unlock()

	s.payouts.Wait()

	s.evMu.Lock()
	if !s.evClosed {
		s.evClosed = true
		close(s.events)
	}
	s.evMu.Unlock()
	<-s.dispatched
}

func (s *Session) emit(e Event) {
	e.Mode = s.cfg.Mode
	if e.At.IsZero() {
		e.At = s.clk.Now()
	}

	s.evMu.Lock()
	defer s.evMu.Unlock()
	if s.evClosed {
		return
	}
	// emit runs under s.mu; a stalled notifier must not block the session.
	select {
	case s.events <- e:
	default:
		s.logger.Warn("event dropped, notifiers behind", "event", e.Type, "round_id", e.RoundID)
	}
}

func (s *Session) dispatch() {
	defer close(s.dispatched)
	for e := range s.events {
		s.notify.Notify(e)
	}
}
