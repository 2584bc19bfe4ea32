package storage

import (
	"errors"

	"github.com/cuemby/drbridge/pkg/types"
)

// ErrNotFound is returned when a data request is not stored
var ErrNotFound = errors.New("data request not found")

// Store defines the interface for data request persistence.
// Implementations are called from a single goroutine (the drdb actor),
// but must still be safe for concurrent readers.
type Store interface {
	// Upsert overwrites the record at req.ID, merged with any existing
	// record so that a finished request never reverts to new
	Upsert(req *types.DataRequest) error

	// LastKnownID returns the highest id of the contiguous prefix [0, id]
	// stored so far. ok is false when nothing is stored.
	LastKnownID() (id uint64, ok bool, err error)

	GetRequest(id uint64) (*types.DataRequest, error)

	// ListRequests returns stored requests in ascending id order,
	// filtered by state unless state is empty
	ListRequests(state types.DrState) ([]*types.DataRequest, error)

	// CountByState returns how many requests are stored in each state
	// without loading their payloads
	CountByState() (map[types.DrState]int, error)

	Close() error
}
