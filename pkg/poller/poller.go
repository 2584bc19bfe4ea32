package poller

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/cuemby/drbridge/pkg/events"
	"github.com/cuemby/drbridge/pkg/health"
	"github.com/cuemby/drbridge/pkg/ledger"
	"github.com/cuemby/drbridge/pkg/log"
	"github.com/cuemby/drbridge/pkg/metrics"
	"github.com/cuemby/drbridge/pkg/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
)

// RequestStore is the local store as seen by the poller
type RequestStore interface {
	// LastKnownID returns the highest id recorded so far; ok is false
	// when nothing is recorded yet
	LastKnownID(ctx context.Context) (id uint64, ok bool, err error)

	// Upsert is fire-and-forget
	Upsert(id uint64, req *types.DataRequest)
}

// Outcome classifies a finished cycle
type Outcome string

const (
	OutcomeIdle    Outcome = metrics.OutcomeIdle
	OutcomeSynced  Outcome = metrics.OutcomeSynced
	OutcomeAborted Outcome = metrics.OutcomeAborted
)

// CycleResult describes one reconciliation cycle
type CycleResult struct {
	Outcome  Outcome
	Count    uint64 // requestsCount seen on the ledger
	From     uint64 // first id examined
	Upserted int
	Started  time.Time
	Finished time.Time
	Err      error
}

// Config holds the poller's read-only configuration
type Config struct {
	// Period is the delay between the end of one cycle and the start of the next
	Period time.Duration
}

// Poller copies new WRB data requests into the local store
type Poller struct {
	ledger ledger.Reader
	store  RequestStore
	probe  health.Checker
	events events.Publisher
	period time.Duration
	now    func() time.Time
	logger zerolog.Logger

	mu      sync.Mutex
	started bool
	stopped bool
	cancel  context.CancelFunc
	doneCh  chan struct{}
}

// Option customizes a Poller
type Option func(*Poller)

// WithEvents publishes discovery and diagnosis events to pub
func WithEvents(pub events.Publisher) Option {
	return func(p *Poller) { p.events = pub }
}

// WithClock replaces time.Now for ObservedAt and cycle timestamps
func WithClock(now func() time.Time) Option {
	return func(p *Poller) { p.now = now }
}

// NewPoller creates a poller. probe may be nil.
func NewPoller(reader ledger.Reader, store RequestStore, probe health.Checker, cfg Config, opts ...Option) *Poller {
	p := &Poller{
		ledger: reader,
		store:  store,
		probe:  probe,
		period: cfg.Period,
		now:    time.Now,
		logger: log.WithComponent("poller"),
		doneCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start runs the first cycle immediately, then one cycle every period
// measured from the end of the previous one. Only the first call starts the
// loop, and a stopped poller cannot be restarted.
func (p *Poller) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.stopped {
		return
	}
	p.started = true

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	metrics.RegisterComponent(metrics.ComponentPoller, true, "")
	go p.run(ctx)
}

// Stop stops scheduling cycles and waits for the running one to return
func (p *Poller) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		<-p.doneCh
		return
	}
	p.stopped = true
	cancel := p.cancel
	p.mu.Unlock()

	if cancel == nil {
		close(p.doneCh)
		return
	}
	cancel()
	<-p.doneCh
}

func (p *Poller) run(ctx context.Context) {
	defer close(p.doneCh)

	p.logger.Debug().Dur("period", p.period).Msg("Poller started")

	for {
		p.Poll(ctx)

		// Wait until the cycle finished to schedule the next one.
		// This avoids cycles running in parallel.
		timer := time.NewTimer(p.period)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return
		}
	}
}

// Poll runs one reconciliation cycle. It never panics on ledger or store
// errors; they are reported in the result and the next cycle retries.
func (p *Poller) Poll(ctx context.Context) CycleResult {
	timer := metrics.NewTimer()
	res := CycleResult{Started: p.now()}

	p.cycle(ctx, &res)

	res.Finished = p.now()
	timer.ObserveDuration(metrics.PollCycleDuration)
	metrics.PollCyclesTotal.WithLabelValues(string(res.Outcome)).Inc()

	switch res.Outcome {
	case OutcomeAborted:
		metrics.UpdateComponent(metrics.ComponentPoller, false, res.Err.Error())
		p.logger.Warn().Err(res.Err).
			Uint64("count", res.Count).
			Int("upserted", res.Upserted).
			Msg("Reconciliation cycle aborted")
		p.publish(events.EventCycleAborted, res.Err.Error(), nil)
	case OutcomeSynced:
		metrics.UpdateComponent(metrics.ComponentPoller, true, "")
		p.logger.Info().
			Uint64("from", res.From).
			Uint64("count", res.Count).
			Int("upserted", res.Upserted).
			Msg("Reconciliation cycle synced")
	default:
		metrics.UpdateComponent(metrics.ComponentPoller, true, "")
		p.logger.Debug().Uint64("count", res.Count).Msg("No new data requests in WRB")
	}

	return res
}

func (p *Poller) cycle(ctx context.Context, res *CycleResult) {
	total, err := p.ledger.RequestsCount(ctx)
	if err != nil {
		p.abortOnRead(ctx, res, fmt.Errorf("%w: %s: %v", ErrTransientRead, ledger.MethodRequestsCount, err))
		return
	}
	res.Count = total
	metrics.LedgerRequestsCount.Set(float64(total))
	metrics.UpdateComponent(metrics.ComponentLedger, true, "")

	last, known, err := p.store.LastKnownID(ctx)
	if err != nil {
		res.Outcome = OutcomeAborted
		if !errors.Is(err, ErrStoreUnavailable) {
			err = fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		res.Err = err
		return
	}

	var next uint64
	if known {
		next = last + 1
	}
	res.From = next

	if next >= total {
		res.Outcome = OutcomeIdle
		return
	}

	for i := next; i < total; i++ {
		if ctx.Err() != nil {
			res.Outcome = OutcomeAborted
			res.Err = ctx.Err()
			return
		}

		logger := log.WithRequestID(p.logger, i)
		logger.Debug().Msg("Checking data request in WRB")

		payload, err := p.ledger.ReadDataRequest(ctx, i)
		if err != nil {
			p.abortOnRead(ctx, res, fmt.Errorf("%w: %s(%d): %v", ErrTransientRead, ledger.MethodReadDataRequest, i, err))
			return
		}

		marker, err := p.ledger.ReadResolutionMarker(ctx, i)
		if err != nil {
			p.abortOnRead(ctx, res, fmt.Errorf("%w: %s(%d): %v", ErrTransientRead, ledger.MethodReadDrTxHash, i, err))
			return
		}

		var req *types.DataRequest
		if marker.IsZero() {
			logger.Info().Msg("New data request in WRB")
			req = types.NewDataRequest(i, payload)
			p.publish(events.EventRequestDiscovered, "new data request in WRB", map[string]string{
				"request_id": strconv.FormatUint(i, 10),
			})
		} else {
			hash := common.Hash(marker.Bytes32())
			logger.Debug().Str("dr_tx_hash", hash.Hex()).Msg("Data request already finished")
			req = types.FinishedDataRequest(i, payload, hash, p.now())
			p.publish(events.EventRequestFinished, "data request already finished", map[string]string{
				"request_id": strconv.FormatUint(i, 10),
				"dr_tx_hash": hash.Hex(),
			})
		}

		p.store.Upsert(i, req)
		res.Upserted++
	}

	res.Outcome = OutcomeSynced
}

// abortOnRead ends the cycle after a ledger read failure and runs the node
// probe once. The probe only annotates the error; it never decides retries.
func (p *Poller) abortOnRead(ctx context.Context, res *CycleResult, err error) {
	res.Outcome = OutcomeAborted
	res.Err = err

	if p.probe == nil || ctx.Err() != nil {
		return
	}

	check := p.probe.Check(ctx)
	if check.Healthy {
		metrics.UpdateComponent(metrics.ComponentLedger, true, "")
		p.logger.Debug().Str("probe", check.Message).Msg("Ethereum node reachable, read failure is transient")
		return
	}

	res.Err = fmt.Errorf("%w (%w: %s)", err, ErrNodeUnreachable, check.Message)
	metrics.NodeUnreachableTotal.Inc()
	metrics.UpdateComponent(metrics.ComponentLedger, false, p.describeFailure(check))
	p.logger.Error().Str("probe", check.Message).Msg("Ethereum node unreachable")
	p.publish(events.EventNodeUnreachable, check.Message, nil)
}

// statusReporter is implemented by checkers that remember past results,
// such as health.Monitor
type statusReporter interface {
	Status() health.Status
}

func (p *Poller) describeFailure(check health.Result) string {
	sr, ok := p.probe.(statusReporter)
	if !ok {
		return check.Message
	}
	st := sr.Status()
	if st.LastHealthy.IsZero() {
		return fmt.Sprintf("%s (%d consecutive failures)", check.Message, st.ConsecutiveFailures)
	}
	return fmt.Sprintf("%s (%d consecutive failures, last healthy %s)",
		check.Message, st.ConsecutiveFailures, st.LastHealthy.UTC().Format(time.RFC3339))
}

func (p *Poller) publish(typ events.EventType, msg string, meta map[string]string) {
	if p.events == nil {
		return
	}
	p.events.Publish(&events.Event{
		Type:     typ,
		Message:  msg,
		Metadata: meta,
	})
}
