package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/moonshotcommons/cross-guess-game/internal/wallet"
)

type LivenessResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

func handleLiveness() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, LivenessResponse{
			Success:   true,
			Message:   "CrossGuess API is running",
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		})
	}
}

type WalletInfoResponse struct {
	Success   bool    `json:"success"`
	HasWallet bool    `json:"hasWallet"`
	Address   *string `json:"address"`
	Message   string  `json:"message"`
}

// handleWalletInfo reports the real-mode wallet.
func handleWalletInfo(modes *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := WalletInfoResponse{Success: true, Message: "Please configure MAINNET_ETH_PRIVATE_KEY in .env file"}

		m, err := modes.Get(ModeReal)
		if err != nil {
			writeJSON(w, http.StatusOK, resp)
			return
		}

		addr, err := m.Wallet.Address()
		switch {
		case err == nil:
			resp.HasWallet = true
			resp.Address = &addr
			resp.Message = "Private key wallet configured"
		case !errors.Is(err, wallet.ErrNoWallet):
			writeError(w, http.StatusInternalServerError, codeInternal, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
