package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/moonshotcommons/cross-guess-game/internal/game"
	"github.com/moonshotcommons/cross-guess-game/internal/metrics"
	"github.com/moonshotcommons/cross-guess-game/internal/wallet"
)

type JoinRequest struct {
	Guess *int   `json:"guess"`
	Mode  string `json:"mode,omitempty"`
	// DemoMode is the older boolean form of Mode.
	DemoMode *bool `json:"demoMode,omitempty"`
}

func (req JoinRequest) mode() string {
	if req.Mode != "" {
		return req.Mode
	}
	if req.DemoMode != nil && !*req.DemoMode {
		return ModeReal
	}
	return ""
}

type JoinResponse struct {
	Success       bool   `json:"success"`
	TxHash        string `json:"txHash"`
	GameID        string `json:"gameId"`
	PlayerAddress string `json:"playerAddress"`
	Message       string `json:"message"`
}

const noWalletMessage = "Please configure MAINNET_ETH_PRIVATE_KEY in .env file first"

func handleJoin(logger *slog.Logger, modes *Registry, stats *metrics.Collector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req JoinRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequest, "invalid request body")
			return
		}

		m, err := modes.Get(req.mode())
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidMode, "unknown mode")
			return
		}

		// Checked before a wallet is drawn so a bad guess cannot use up a
		// demo address.
		guessMax := m.Session.GuessMax()
		if req.Guess == nil || m.Session.CheckGuess(*req.Guess) != nil {
			stats.JoinFailed(m.Name, game.KindValidation)
			writeError(w, http.StatusBadRequest, codeInvalidGuess,
				fmt.Sprintf("Guess must be a number between 1 and %d", guessMax))
			return
		}

		address, err := m.Wallet.Address()
		if errors.Is(err, wallet.ErrNoWallet) {
			writeError(w, http.StatusBadRequest, codeNoWallet, noWalletMessage)
			return
		}
		if err != nil {
			logger.Error("resolving wallet", "mode", m.Name, "error", err)
			writeError(w, http.StatusInternalServerError, codeInternal, "internal error")
			return
		}

		// The settlement must not be abandoned when the client hangs up.
		res, err := m.Session.Join(context.WithoutCancel(r.Context()), address, *req.Guess)
		if err != nil {
			stats.JoinFailed(m.Name, game.KindOf(err))
			status, code, msg := joinFailure(err, guessMax)
			if status >= http.StatusInternalServerError {
				logger.Error("join failed", "mode", m.Name, "player", address, "code", code, "error", err)
			}
			writeError(w, status, code, msg)
			return
		}

		writeJSON(w, http.StatusOK, JoinResponse{
			Success:       true,
			TxHash:        res.Receipt.TxID,
			GameID:        res.RoundID,
			PlayerAddress: address,
			Message:       "Successfully joined the game!",
		})
	}
}

// joinFailure maps a Session.Join error to an HTTP status, error code and
// client-facing message.
func joinFailure(err error, guessMax int) (int, string, string) {
	switch game.KindOf(err) {
	case game.KindValidation:
		return http.StatusBadRequest, codeInvalidGuess, fmt.Sprintf("Guess must be a number between 1 and %d", guessMax)
	case game.KindRejection:
		switch {
		case errors.Is(err, game.ErrRoundFull):
			return http.StatusBadRequest, codeRoundFull, "Game is full"
		case errors.Is(err, game.ErrDuplicateParticipant):
			return http.StatusBadRequest, codeDuplicate, "Player already joined this game"
		default:
			return http.StatusBadRequest, codeRoundNotAccepting, "Game is not accepting players"
		}
	case game.KindExecutor:
		return http.StatusBadGateway, codeSettlementFailed, "Cross-chain transfer failed, please retry"
	case game.KindInconsistency:
		return http.StatusInternalServerError, codeTransferOrphaned,
			"Transfer completed but the game closed before you could be added; it has been recorded for reconciliation"
	}
	if errors.Is(err, game.ErrSessionClosed) {
		return http.StatusServiceUnavailable, codeUnavailable, "Game is shutting down"
	}
	return http.StatusInternalServerError, codeInternal, "internal error"
}
