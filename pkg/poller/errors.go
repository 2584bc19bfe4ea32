package poller

import (
	"errors"

	"github.com/cuemby/drbridge/pkg/drdb"
)

var (
	// ErrTransientRead wraps any failed ledger query (count, payload or marker)
	ErrTransientRead = errors.New("transient ledger read failure")

	// ErrStoreUnavailable wraps a failed store query
	ErrStoreUnavailable = drdb.ErrStoreUnavailable

	// ErrNodeUnreachable is attached when the node probe reports the
	// ledger node down after a read failure
	ErrNodeUnreachable = errors.New("ethereum node unreachable")
)
