package game

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

func join(identity string, guess int, at time.Time) Participant {
	return Participant{
		Identity:     identity,
		Guess:        guess,
		Stake:        dec("1"),
		StakeReceipt: "tx-" + identity,
		JoinedAt:     at,
	}
}

func TestRoundFirstAdmissionStartsRound(t *testing.T) {
	r := NewRound("r1", epoch, 2, decimal.Zero)
	assert.Equal(t, StatusWaiting, r.Status())

	started, err := r.Admit(join("a", 3, epoch.Add(time.Second)), 5*time.Second)
	require.NoError(t, err)
	assert.True(t, started)
	assert.Equal(t, StatusActive, r.Status())

	snap := r.Snapshot()
	assert.Equal(t, epoch.Add(time.Second), snap.StartedAt)
	assert.Equal(t, epoch.Add(6*time.Second), snap.EndsAt)

	started, err = r.Admit(join("b", 3, epoch.Add(2*time.Second)), 5*time.Second)
	require.NoError(t, err)
	assert.False(t, started)
	assert.Equal(t, 2, r.ParticipantCount())
	assert.True(t, dec("2").Equal(r.Pool().Total()))
}

func TestRoundAdmissionRules(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(r *Round)
		join    Participant
		wantErr error
	}{
		{
			name:    "capacity",
			setup:   func(r *Round) { r.Admit(join("a", 1, epoch), time.Minute); r.Admit(join("b", 1, epoch), time.Minute) },
			join:    join("c", 1, epoch),
			wantErr: ErrRoundFull,
		},
		{
			name:    "duplicate identity with a different guess",
			setup:   func(r *Round) { r.Admit(join("a", 1, epoch), time.Minute) },
			join:    join("a", 5, epoch),
			wantErr: ErrDuplicateParticipant,
		},
		{
			name:    "past the deadline",
			setup:   func(r *Round) { r.Admit(join("a", 1, epoch), time.Minute) },
			join:    join("b", 1, epoch.Add(time.Minute)),
			wantErr: ErrRoundNotAccepting,
		},
		{
			name:    "ended round",
			setup:   func(r *Round) { r.Admit(join("a", 1, epoch), time.Minute); r.Resolve(2, epoch) },
			join:    join("b", 1, epoch),
			wantErr: ErrRoundNotAccepting,
		},
		{
			name:    "capacity is checked before uniqueness",
			setup:   func(r *Round) { r.Admit(join("a", 1, epoch), time.Minute); r.Admit(join("b", 1, epoch), time.Minute) },
			join:    join("a", 1, epoch),
			wantErr: ErrRoundFull,
		},
		{
			name:    "negative stake",
			join:    Participant{Identity: "a", Guess: 1, Stake: dec("-1"), JoinedAt: epoch},
			wantErr: ErrNegativeStake,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRound("r1", epoch, 2, decimal.Zero)
			if tt.setup != nil {
				tt.setup(r)
			}
			before := r.Snapshot()

			_, err := r.Admit(tt.join, time.Minute)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, before, r.Snapshot(), "rejection must not mutate the round")
		})
	}
}

func TestRoundReservations(t *testing.T) {
	r := NewRound("r1", epoch, 2, decimal.Zero)

	require.NoError(t, r.Reserve("a", epoch))
	assert.ErrorIs(t, r.Reserve("a", epoch), ErrDuplicateParticipant)
	require.NoError(t, r.Reserve("b", epoch))
	assert.ErrorIs(t, r.Reserve("c", epoch), ErrRoundFull)
	assert.False(t, r.CanAdmit(epoch))

	_, err := r.Admit(join("a", 2, epoch), time.Minute)
	require.NoError(t, err, "a holds its own slot")

	r.Release("b")
	assert.True(t, r.CanAdmit(epoch))
	require.NoError(t, r.Reserve("c", epoch))
	assert.Equal(t, 1, r.Snapshot().Pending)
}

func TestRoundResolve(t *testing.T) {
	tests := []struct {
		name       string
		guesses    map[string]int
		order      []string
		answer     int
		wantWinner string
	}{
		{name: "matching guess wins", order: []string{"A", "B"}, guesses: map[string]int{"A": 2, "B": 4}, answer: 4, wantWinner: "B"},
		{name: "no match", order: []string{"A", "B"}, guesses: map[string]int{"A": 2, "B": 4}, answer: 1},
		{name: "tie goes to first joined", order: []string{"A", "B"}, guesses: map[string]int{"A": 3, "B": 3}, answer: 3, wantWinner: "A"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRound("r1", epoch, 5, decimal.Zero)
			for i, id := range tt.order {
				_, err := r.Admit(join(id, tt.guesses[id], epoch.Add(time.Duration(i)*time.Second)), time.Minute)
				require.NoError(t, err)
			}

			require.NoError(t, r.Resolve(tt.answer, epoch.Add(time.Minute)))
			assert.Equal(t, StatusEnded, r.Status())

			answer, ok := r.CorrectAnswer()
			assert.True(t, ok)
			assert.Equal(t, tt.answer, answer)

			w, ok := r.Winner()
			if tt.wantWinner == "" {
				assert.False(t, ok)
				assert.True(t, r.Pool().Unclaimed().Equal(r.Pool().Total()))
				return
			}
			require.True(t, ok)
			assert.Equal(t, tt.wantWinner, w.Identity)
			assert.True(t, r.Pool().Total().Equal(r.Snapshot().PerWinner))
		})
	}
}

func TestRoundResolveTransitions(t *testing.T) {
	t.Run("waiting with participants cannot skip active", func(t *testing.T) {
		r := NewRound("r1", epoch, 2, decimal.Zero)
		r.participants = append(r.participants, join("a", 1, epoch))
		assert.ErrorIs(t, r.Resolve(1, epoch), ErrRoundNotActive)
		assert.Equal(t, StatusWaiting, r.Status())
	})

	t.Run("empty waiting round can be forced to end", func(t *testing.T) {
		r := NewRound("r1", epoch, 2, decimal.Zero)
		require.NoError(t, r.Resolve(4, epoch))
		assert.Equal(t, StatusEnded, r.Status())
		_, ok := r.Winner()
		assert.False(t, ok)
	})

	t.Run("second resolve is rejected and changes nothing", func(t *testing.T) {
		r := NewRound("r1", epoch, 2, decimal.Zero)
		_, err := r.Admit(join("a", 1, epoch), time.Minute)
		require.NoError(t, err)
		require.NoError(t, r.Resolve(1, epoch))
		before := r.Snapshot()

		assert.ErrorIs(t, r.Resolve(2, epoch), ErrAlreadyResolved)
		assert.Equal(t, before, r.Snapshot())
	})
}

func TestRoundSnapshotIsACopy(t *testing.T) {
	r := NewRound("r1", epoch, 2, decimal.Zero)
	_, err := r.Admit(join("a", 1, epoch), time.Minute)
	require.NoError(t, err)

	snap := r.Snapshot()
	snap.Participants[0].Guess = 5

	assert.Equal(t, 1, r.Snapshot().Participants[0].Guess)
	assert.Zero(t, snap.CorrectAnswer, "answer is absent before the round ends")
	assert.Nil(t, snap.Winner)
}
