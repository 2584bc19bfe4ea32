package ledger

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/cuemby/drbridge/pkg/metrics"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// wrbABI covers the read-only subset of the Witnet Requests Board
const wrbABI = `[
	{"type":"function","name":"requestsCount","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"readDataRequest","stateMutability":"view","inputs":[{"name":"_id","type":"uint256"}],"outputs":[{"name":"","type":"bytes"}]},
	{"type":"function","name":"readDrTxHash","stateMutability":"view","inputs":[{"name":"_id","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]}
]`

// WRBABI returns the parsed WRB interface
func WRBABI() (abi.ABI, error) {
	return abi.JSON(strings.NewReader(wrbABI))
}

// WRBReader reads the WRB contract through eth_call
type WRBReader struct {
	caller   ethereum.ContractCaller
	abi      abi.ABI
	contract common.Address
	from     common.Address
	timeout  time.Duration
}

// NewWRBReader creates a reader calling contract as from.
// timeout bounds every single call; zero means 10 seconds.
func NewWRBReader(caller ethereum.ContractCaller, contract, from common.Address, timeout time.Duration) (*WRBReader, error) {
	parsed, err := WRBABI()
	if err != nil {
		return nil, fmt.Errorf("failed to parse WRB ABI: %w", err)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WRBReader{
		caller:   caller,
		abi:      parsed,
		contract: contract,
		from:     from,
		timeout:  timeout,
	}, nil
}

// RequestsCount implements Reader
func (r *WRBReader) RequestsCount(ctx context.Context) (uint64, error) {
	n, err := r.callUint(ctx, MethodRequestsCount)
	if err != nil {
		return 0, err
	}
	if !n.IsUint64() {
		metrics.LedgerReadFailures.WithLabelValues(MethodRequestsCount).Inc()
		return 0, fmt.Errorf("%s: %w: %s", MethodRequestsCount, ErrCountOverflow, n.Dec())
	}
	return n.Uint64(), nil
}

// ReadDataRequest implements Reader
func (r *WRBReader) ReadDataRequest(ctx context.Context, id uint64) ([]byte, error) {
	out, err := r.call(ctx, MethodReadDataRequest, new(big.Int).SetUint64(id))
	if err != nil {
		return nil, err
	}
	payload, ok := out[0].([]byte)
	if !ok {
		return nil, fmt.Errorf("%s(%d): unexpected result type %T", MethodReadDataRequest, id, out[0])
	}
	return payload, nil
}

// ReadResolutionMarker implements Reader
func (r *WRBReader) ReadResolutionMarker(ctx context.Context, id uint64) (*uint256.Int, error) {
	return r.callUint(ctx, MethodReadDrTxHash, new(big.Int).SetUint64(id))
}

func (r *WRBReader) callUint(ctx context.Context, method string, args ...interface{}) (*uint256.Int, error) {
	out, err := r.call(ctx, method, args...)
	if err != nil {
		return nil, err
	}
	b, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%s: unexpected result type %T", method, out[0])
	}
	v, overflow := uint256.FromBig(b)
	if overflow {
		return nil, fmt.Errorf("%s: result overflows uint256", method)
	}
	return v, nil
}

func (r *WRBReader) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.LedgerCallDuration, method)

	out, err := r.doCall(ctx, method, args...)
	if err != nil {
		metrics.LedgerReadFailures.WithLabelValues(method).Inc()
		return nil, err
	}
	return out, nil
}

func (r *WRBReader) doCall(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	data, err := r.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}

	to := r.contract
	raw, err := r.caller.CallContract(ctx, ethereum.CallMsg{
		From: r.from,
		To:   &to,
		Data: data,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("%s call failed: %w", method, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%s: %w", method, ErrEmptyResult)
	}

	out, err := r.abi.Unpack(method, raw)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s: %w", method, err)
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("%s: expected 1 result, got %d", method, len(out))
	}
	return out, nil
}
