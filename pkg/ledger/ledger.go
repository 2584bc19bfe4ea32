// Package ledger reads data requests from the Witnet Requests Board contract.
package ledger

import (
	"context"
	"errors"

	"github.com/holiman/uint256"
)

// WRB contract methods
const (
	MethodRequestsCount   = "requestsCount"
	MethodReadDataRequest = "readDataRequest"
	MethodReadDrTxHash    = "readDrTxHash"
)

var (
	// ErrEmptyResult is returned when a call returns no data, usually
	// because the contract address holds no code or the call reverted
	ErrEmptyResult = errors.New("empty contract call result")

	// ErrCountOverflow is returned when requestsCount does not fit uint64
	ErrCountOverflow = errors.New("requests count overflows uint64")
)

// Reader is the read-only view of the WRB the poller depends on.
// All calls are idempotent; any error is a transient read failure.
type Reader interface {
	// RequestsCount returns the number of data requests ever submitted
	RequestsCount(ctx context.Context) (uint64, error)

	// ReadDataRequest returns the serialized data request at id
	ReadDataRequest(ctx context.Context, id uint64) ([]byte, error)

	// ReadResolutionMarker returns the resolution tx hash of id as an
	// integer; zero means the request is unresolved
	ReadResolutionMarker(ctx context.Context, id uint64) (*uint256.Int, error)
}
