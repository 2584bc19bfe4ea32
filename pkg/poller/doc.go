/*
Package poller relays data requests from the WRB contract into the local
store.

Each cycle reads requestsCount N from the ledger and the store's last known
id L, then walks ids L+1 through N-1 in order. For each id it reads the
payload and the resolution marker (readDrTxHash); a zero marker means the
request is new, anything else means it is finished and the marker is its
resolution hash. The record is handed to the store without waiting.

The first failed ledger read ends the cycle. Nothing at or after the failed
id is written, and the node probe runs once to tell a dead node apart from
a transient error. The next cycle starts from the store's last known id
again, so it retries exactly where the previous one stopped.

Cycles never overlap: the next one is scheduled Period after the previous
one returns.
*/
package poller
