/*
Package events provides an in-memory event broker for bridge notifications.

Publish never blocks: events go into a buffered channel and are fanned out
to every subscriber by a single goroutine. A subscriber that falls behind
misses events instead of slowing the poller down. After Stop, Publish
drops events.

Event types:

	request.discovered   a new data request was found in the WRB
	request.finished     a data request was found already resolved
	cycle.aborted        a reconciliation cycle stopped early
	node.unreachable     the Ethereum node failed its health probe
*/
package events
