package types

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// DrState is the resolution state of a data request
type DrState string

const (
	// DrStateNew means the WRB has no resolution for the request yet
	DrStateNew DrState = "new"
	// DrStateFinished means the WRB already carries a resolution tx hash
	DrStateFinished DrState = "finished"
)

// Valid reports whether s is a known state
func (s DrState) Valid() bool {
	return s == DrStateNew || s == DrStateFinished
}

// DataRequest is the local copy of one WRB entry
type DataRequest struct {
	ID             uint64       `json:"id"`
	Payload        []byte       `json:"payload"`
	State          DrState      `json:"state"`
	ResolutionHash *common.Hash `json:"resolution_hash,omitempty"`
	ObservedAt     *time.Time   `json:"observed_at,omitempty"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// NewDataRequest builds a request in state New
func NewDataRequest(id uint64, payload []byte) *DataRequest {
	return &DataRequest{
		ID:      id,
		Payload: payload,
		State:   DrStateNew,
	}
}

// FinishedDataRequest builds a request already resolved on the ledger
func FinishedDataRequest(id uint64, payload []byte, hash common.Hash, observedAt time.Time) *DataRequest {
	return &DataRequest{
		ID:             id,
		Payload:        payload,
		State:          DrStateFinished,
		ResolutionHash: &hash,
		ObservedAt:     &observedAt,
	}
}

// IsFinished reports whether the request has a resolution
func (r *DataRequest) IsFinished() bool {
	return r.State == DrStateFinished
}

// Merge returns the record to store when incoming overwrites existing.
// A finished record never goes back to new, the first ObservedAt wins and
// a stored payload is never replaced.
func Merge(existing, incoming *DataRequest) *DataRequest {
	if existing == nil {
		return incoming
	}

	merged := *incoming
	if len(existing.Payload) > 0 {
		merged.Payload = existing.Payload
	}
	if existing.IsFinished() {
		if !incoming.IsFinished() {
			merged.State = DrStateFinished
			merged.ResolutionHash = existing.ResolutionHash
		}
		if existing.ObservedAt != nil {
			merged.ObservedAt = existing.ObservedAt
		}
	}
	return &merged
}
