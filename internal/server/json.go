package server

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is returned for all error responses.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code"`
}

const (
	codeInvalidRequest    = "invalid_request"
	codeInvalidGuess      = "invalid_guess"
	codeInvalidMode       = "invalid_mode"
	codeInvalidStatus     = "invalid_status"
	codeNoWallet          = "no_wallet"
	codeNoRound           = "no_round"
	codeRoundNotAccepting = "round_not_accepting"
	codeRoundFull         = "round_full"
	codeDuplicate         = "duplicate_participant"
	codeSettlementFailed  = "settlement_failed"
	codeTransferOrphaned  = "transfer_orphaned"
	codeUnavailable       = "unavailable"
	codeInternal          = "internal"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func readJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<16)).Decode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg, Code: code})
}
