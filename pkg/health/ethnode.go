package health

import (
	"context"
	"fmt"
	"math/big"
	"net"
	"net/url"
	"time"
)

// NodeClient is the slice of ethclient.Client the node check needs
type NodeClient interface {
	ChainID(ctx context.Context) (*big.Int, error)
	BlockNumber(ctx context.Context) (uint64, error)
}

// EthNodeChecker tells "node process down" apart from "node up but not
// answering RPC". A reachability check runs first when the endpoint has a
// host: an HTTP GET for http(s) endpoints, a TCP dial for websockets.
type EthNodeChecker struct {
	client NodeClient
	reach  Checker
}

// NewEthNodeChecker builds a checker for the node behind endpoint.
// IPC endpoints skip the reachability step.
func NewEthNodeChecker(endpoint string, client NodeClient) *EthNodeChecker {
	c := &EthNodeChecker{client: client}
	if isHTTPEndpoint(endpoint) {
		// Any answer below 500 means the RPC server is listening; geth
		// replies 200 to an empty GET and some gateways reply 405.
		c.reach = NewHTTPChecker(endpoint).WithStatusRange(200, 499)
	} else if addr := dialAddress(endpoint); addr != "" {
		c.reach = NewTCPChecker(addr)
	}
	return c
}

// Check performs the node health check
func (e *EthNodeChecker) Check(ctx context.Context) Result {
	start := time.Now()
	fail := func(format string, args ...interface{}) Result {
		return Result{
			Healthy:   false,
			Message:   fmt.Sprintf(format, args...),
			CheckedAt: start,
			Duration:  time.Since(start),
		}
	}

	if e.reach != nil {
		if res := e.reach.Check(ctx); !res.Healthy {
			return fail("ethereum node down: %s", res.Message)
		}
	}

	chainID, err := e.client.ChainID(ctx)
	if err != nil {
		return fail("ethereum node not answering eth_chainId: %v", err)
	}
	head, err := e.client.BlockNumber(ctx)
	if err != nil {
		return fail("ethereum node not answering eth_blockNumber: %v", err)
	}

	return Result{
		Healthy:   true,
		Message:   fmt.Sprintf("ethereum node running (chain %s, block %d)", chainID, head),
		CheckedAt: start,
		Duration:  time.Since(start),
	}
}

// Type returns the health check type
func (e *EthNodeChecker) Type() CheckType {
	return CheckTypeEthNode
}

func isHTTPEndpoint(endpoint string) bool {
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

// dialAddress maps an RPC endpoint URL to host:port, or "" for IPC paths
func dialAddress(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return ""
	}
	if u.Port() != "" {
		return u.Host
	}
	switch u.Scheme {
	case "https", "wss":
		return net.JoinHostPort(u.Hostname(), "443")
	default:
		return net.JoinHostPort(u.Hostname(), "80")
	}
}
