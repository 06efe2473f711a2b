package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"
)

type modeQuery struct {
	Mode string `query:"mode" description:"Game mode, demo (default) or real."`
}

type transfersQuery struct {
	Status string `query:"status" enum:"committed,orphaned,failed,paid"`
	Limit  int    `query:"limit" minimum:"1" maximum:"500"`
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "CrossGuess API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Backend API for the cross-chain number guessing game.")

	// GET /healthz
	getHealthz, _ := r.NewOperationContext(http.MethodGet, "/healthz")
	getHealthz.SetSummary("Dependency health")
	getHealthz.SetDescription("Checks the journal database and, when configured, Redis.")
	getHealthz.AddRespStructure(map[string]map[string]string{}, openapi.WithHTTPStatus(http.StatusOK))
	getHealthz.AddRespStructure(map[string]map[string]string{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(getHealthz)

	// GET /api/health
	getHealth, _ := r.NewOperationContext(http.MethodGet, "/api/health")
	getHealth.SetSummary("Liveness")
	getHealth.AddRespStructure(LivenessResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(getHealth)

	// POST /api/join
	postJoin, _ := r.NewOperationContext(http.MethodPost, "/api/join")
	postJoin.SetSummary("Join the current round")
	postJoin.SetDescription("Stakes the entry fee through the mode's settlement executor and records the guess. " +
		"Opens a new round when none is running.")
	postJoin.AddReqStructure(JoinRequest{})
	postJoin.AddRespStructure(JoinResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postJoin.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	postJoin.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadGateway))
	postJoin.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusInternalServerError))
	_ = r.AddOperation(postJoin)

	// GET /api/status
	getStatus, _ := r.NewOperationContext(http.MethodGet, "/api/status")
	getStatus.SetSummary("Current round status")
	getStatus.AddReqStructure(modeQuery{})
	getStatus.AddRespStructure(StatusResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getStatus.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	_ = r.AddOperation(getStatus)

	// GET /api/result
	getResult, _ := r.NewOperationContext(http.MethodGet, "/api/result")
	getResult.SetSummary("Current or last round result")
	getResult.AddReqStructure(modeQuery{})
	getResult.AddRespStructure(ResultResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getResult.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getResult)

	// GET /api/wallet-info
	getWallet, _ := r.NewOperationContext(http.MethodGet, "/api/wallet-info")
	getWallet.SetSummary("Real-mode wallet")
	getWallet.AddRespStructure(WalletInfoResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(getWallet)

	// GET /api/events
	getEvents, _ := r.NewOperationContext(http.MethodGet, "/api/events")
	getEvents.SetSummary("SSE event stream")
	getEvents.SetDescription("Server-Sent Events: a status snapshot, then round lifecycle events.")
	getEvents.AddReqStructure(modeQuery{})
	getEvents.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK),
		openapi.WithContentType("text/event-stream"))
	_ = r.AddOperation(getEvents)

	// GET /ws/events
	getWS, _ := r.NewOperationContext(http.MethodGet, "/ws/events")
	getWS.SetSummary("WebSocket event stream")
	getWS.AddReqStructure(modeQuery{})
	getWS.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusSwitchingProtocols),
		openapi.WithContentType("text/plain"))
	_ = r.AddOperation(getWS)

	// GET /api/transfers
	getTransfers, _ := r.NewOperationContext(http.MethodGet, "/api/transfers")
	getTransfers.SetSummary("Transfer journal")
	getTransfers.SetDescription("Stakes and prize payouts, newest first. Filter orphaned to find transfers needing reconciliation.")
	getTransfers.AddReqStructure(transfersQuery{})
	getTransfers.AddRespStructure(TransfersResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getTransfers.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	_ = r.AddOperation(getTransfers)

	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
