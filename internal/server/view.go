package server

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/moonshotcommons/cross-guess-game/internal/game"
)

// ParticipantView is a participant as the frontend sees it. Timestamps are
// unix milliseconds.
type ParticipantView struct {
	Address   string `json:"address"`
	Guess     int    `json:"guess"`
	TxHash    string `json:"txHash"`
	Timestamp int64  `json:"timestamp"`
}

type GameView struct {
	ID              string            `json:"id"`
	Status          game.Status       `json:"status"`
	StartTime       int64             `json:"startTime"`
	EndTime         int64             `json:"endTime"`
	Participants    []ParticipantView `json:"participants"`
	MaxParticipants int               `json:"maxParticipants"`
	CorrectAnswer   *int              `json:"correctAnswer,omitempty"`
	Winner          *ParticipantView  `json:"winner,omitempty"`
	PrizePool       decimal.Decimal   `json:"prizePool"`
	Carry           decimal.Decimal   `json:"carry"`
	Prize           decimal.Decimal   `json:"prize"`
}

func unixMilli(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func participantView(p game.Participant) ParticipantView {
	return ParticipantView{
		Address:   p.Identity,
		Guess:     p.Guess,
		TxHash:    p.StakeReceipt,
		Timestamp: unixMilli(p.JoinedAt),
	}
}

func gameView(s *game.RoundSnapshot) *GameView {
	if s == nil {
		return nil
	}
	v := &GameView{
		ID:              s.ID,
		Status:          s.Status,
		StartTime:       unixMilli(s.StartedAt),
		EndTime:         unixMilli(s.EndsAt),
		Participants:    make([]ParticipantView, 0, len(s.Participants)),
		MaxParticipants: s.MaxParticipants,
		PrizePool:       s.PrizePool,
		Carry:           s.Carry,
		Prize:           s.PerWinner,
	}
	for _, p := range s.Participants {
		v.Participants = append(v.Participants, participantView(p))
	}
	if s.Ended() {
		answer := s.CorrectAnswer
		v.CorrectAnswer = &answer
	}
	if s.Winner != nil {
		w := participantView(*s.Winner)
		v.Winner = &w
	}
	return v
}
