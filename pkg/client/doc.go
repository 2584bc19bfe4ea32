// Package client is the HTTP client the drbridge CLI uses to query a
// running bridge: readiness and the stored data requests.
package client
