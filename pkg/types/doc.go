/*
Package types defines the data structures shared by the drbridge packages.

The central type is DataRequest: the local copy of one entry of the WRB
(Witnet Requests Board) contract. Every other package reads or writes it:
the poller builds it from ledger reads, the drdb actor and the storage
backends persist it, and the HTTP API serves it.

# Lifecycle

A DataRequest does not exist locally until the poller first fetches it from
the ledger. It is created in one of two states:

	DrStateNew       resolution marker on the ledger is zero
	DrStateFinished  resolution marker is non-zero; ResolutionHash and
	                 ObservedAt are set

The only legal transition is New → Finished. Merge enforces this when a
record is overwritten, so a late or duplicated upsert can never move a
finished request back to new.

# Identity

IDs are assigned by the ledger in strictly increasing, contiguous order
starting at 0. The payload for an ID never changes once observed.

# Usage

	req := types.NewDataRequest(3, payload)

	done := types.FinishedDataRequest(4, payload, common.HexToHash("0xabc"), time.Now())

	stored := types.Merge(existing, done)
*/
package types
