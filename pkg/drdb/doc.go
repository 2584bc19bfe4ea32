// Package drdb serializes access to the request store through one
// goroutine. Upserts are queued without blocking the caller and applied in
// order; LastKnownID waits behind every upsert queued before it.
package drdb
