package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/cuemby/drbridge/pkg/storage"
	"github.com/cuemby/drbridge/pkg/types"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// RequestResponse is the JSON form of a stored data request
type RequestResponse struct {
	ID             uint64     `json:"id"`
	State          string     `json:"state"`
	Payload        string     `json:"payload"` // 0x-prefixed hex
	ResolutionHash string     `json:"dr_tx_hash,omitempty"`
	ObservedAt     *time.Time `json:"observed_at,omitempty"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// ListResponse is returned by GET /v1/requests
type ListResponse struct {
	Count    int               `json:"count"`
	Requests []RequestResponse `json:"requests"`
}

// ErrorResponse is the body of every non-2xx answer from /v1
type ErrorResponse struct {
	Error string `json:"error"`
}

func toResponse(req *types.DataRequest) RequestResponse {
	resp := RequestResponse{
		ID:         req.ID,
		State:      string(req.State),
		Payload:    hexutil.Encode(req.Payload),
		ObservedAt: req.ObservedAt,
		UpdatedAt:  req.UpdatedAt,
	}
	if req.ResolutionHash != nil {
		resp.ResolutionHash = req.ResolutionHash.Hex()
	}
	return resp
}

func (s *Server) listRequests(w http.ResponseWriter, r *http.Request) {
	state := types.DrState(r.URL.Query().Get("state"))
	if state != "" && !state.Valid() {
		writeError(w, http.StatusBadRequest, "unknown state "+strconv.Quote(string(state)))
		return
	}

	reqs, err := s.store.ListRequests(state)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list data requests")
		writeError(w, http.StatusInternalServerError, "store unavailable")
		return
	}

	resp := ListResponse{Count: len(reqs), Requests: make([]RequestResponse, 0, len(reqs))}
	for _, req := range reqs {
		resp.Requests = append(resp.Requests, toResponse(req))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) getRequest(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "id must be a non-negative integer")
		return
	}

	req, err := s.store.GetRequest(id)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "data request not found")
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Uint64("request_id", id).Msg("Failed to read data request")
		writeError(w, http.StatusInternalServerError, "store unavailable")
		return
	}

	writeJSON(w, http.StatusOK, toResponse(req))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
