package server

import (
	"net/http"

	"github.com/shopspring/decimal"
)

type StatusResponse struct {
	Success       bool            `json:"success"`
	Mode          string          `json:"mode"`
	Game          *GameView       `json:"game"`
	TimeRemaining int             `json:"timeRemaining"`
	CanJoin       bool            `json:"canJoin"`
	GuessMax      int             `json:"guessMax"`
	Stake         decimal.Decimal `json:"stake"`
}

func handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, statusOf(modeFrom(r)))
	}
}

func statusOf(m *Mode) StatusResponse {
	v := m.Session.View()
	return StatusResponse{
		Success:       true,
		Mode:          m.Name,
		Game:          gameView(v.Round),
		TimeRemaining: v.TimeRemaining,
		CanJoin:       v.CanJoin,
		GuessMax:      m.Session.GuessMax(),
		Stake:         m.Session.Stake(),
	}
}

type ResultResponse struct {
	Success       bool             `json:"success"`
	Game          *GameView        `json:"game"`
	IsEnded       bool             `json:"isEnded"`
	CorrectAnswer *int             `json:"correctAnswer"`
	Winner        *ParticipantView `json:"winner"`
	Participants  int              `json:"participants"`
}

func handleResult() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := modeFrom(r).Session.Result()
		if err != nil {
			writeError(w, http.StatusNotFound, codeNoRound, "No game found")
			return
		}

		g := gameView(&snap)
		writeJSON(w, http.StatusOK, ResultResponse{
			Success:       true,
			Game:          g,
			IsEnded:       snap.Ended(),
			CorrectAnswer: g.CorrectAnswer,
			Winner:        g.Winner,
			Participants:  len(snap.Participants),
		})
	}
}
