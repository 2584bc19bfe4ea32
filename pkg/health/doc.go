/*
Package health checks whether the Ethereum node behind the ledger is alive.

EthNodeChecker first checks that the node answers at all (an HTTP GET for
http(s) endpoints, a TCP dial for websockets), then asks for eth_chainId and
eth_blockNumber. HTTPChecker and TCPChecker can also be used on their own.
Monitor wraps a checker with a timeout and keeps a Status with consecutive
success and failure counts.

The poller runs the check once after a failed ledger read. The result only
labels the failure; it never changes what the next cycle does.
*/
package health
