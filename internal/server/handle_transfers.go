package server

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/moonshotcommons/cross-guess-game/internal/journal"
)

// TransferLog is the read side of the transfer journal.
type TransferLog interface {
	List(ctx context.Context, status journal.Status, limit int) ([]journal.Transfer, error)
}

type TransfersResponse struct {
	Success   bool               `json:"success"`
	Transfers []journal.Transfer `json:"transfers"`
}

func handleTransfers(logger *slog.Logger, log TransferLog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, ok := journal.ParseStatus(r.URL.Query().Get("status"))
		if !ok {
			writeError(w, http.StatusBadRequest, codeInvalidStatus, "status must be one of committed, orphaned, failed, paid")
			return
		}

		transfers, err := log.List(r.Context(), status, queryLimit(r))
		if err != nil {
			logger.Error("listing transfers", "error", err)
			writeError(w, http.StatusInternalServerError, codeInternal, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, TransfersResponse{Success: true, Transfers: transfers})
	}
}

// queryLimit reads ?limit=; zero lets the journal apply its default.
func queryLimit(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil {
		return 0
	}
	return n
}
