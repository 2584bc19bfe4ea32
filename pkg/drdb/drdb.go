package drdb

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/cuemby/drbridge/pkg/log"
	"github.com/cuemby/drbridge/pkg/metrics"
	"github.com/cuemby/drbridge/pkg/storage"
	"github.com/cuemby/drbridge/pkg/types"
	"github.com/rs/zerolog"
)

// DefaultMailboxSize is used when New is given a non-positive size
const DefaultMailboxSize = 1024

// ErrStoreUnavailable is returned when the database cannot answer a query
var ErrStoreUnavailable = errors.New("data request store unavailable")

type upsertMsg struct {
	req *types.DataRequest
}

type lastIDMsg struct {
	reply chan lastIDReply
}

type lastIDReply struct {
	id  uint64
	ok  bool
	err error
}

// Database owns a storage.Store and serializes every write and every
// watermark query through one goroutine. Messages are handled in the order
// they were sent, so a LastKnownID query observes all upserts queued before it.
type Database struct {
	store   storage.Store
	mailbox chan interface{}
	logger  zerolog.Logger

	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
}

// New creates a database actor over store
func New(store storage.Store, mailboxSize int) *Database {
	if mailboxSize <= 0 {
		mailboxSize = DefaultMailboxSize
	}
	return &Database{
		store:   store,
		mailbox: make(chan interface{}, mailboxSize),
		logger:  log.WithComponent("drdb"),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
}

// Start begins processing the mailbox
func (d *Database) Start() {
	metrics.RegisterComponent(metrics.ComponentStore, true, "")
	go d.run()
}

// Stop stops accepting messages, applies what is already queued and
// waits for the actor to exit. It does not close the underlying store.
func (d *Database) Stop() {
	d.stopOnce.Do(func() { close(d.stopCh) })
	<-d.doneCh
}

// Upsert queues req for id without waiting. When the mailbox is full the
// upsert is dropped; the poller re-fetches it on a later cycle because the
// watermark never moves past a missing id.
func (d *Database) Upsert(id uint64, req *types.DataRequest) {
	req.ID = id

	select {
	case <-d.stopCh:
		d.logger.Warn().Uint64("request_id", id).Msg("Database stopped, dropping upsert")
		metrics.UpsertsDropped.Inc()
		return
	default:
	}

	select {
	case d.mailbox <- upsertMsg{req: req}:
	default:
		d.logger.Warn().Uint64("request_id", id).Msg("Mailbox full, dropping upsert")
		metrics.UpsertsDropped.Inc()
	}
}

// LastKnownID returns the highest id of the stored contiguous prefix.
// ok is false when nothing is stored yet.
func (d *Database) LastKnownID(ctx context.Context) (uint64, bool, error) {
	msg := lastIDMsg{reply: make(chan lastIDReply, 1)}

	select {
	case <-d.stopCh:
		return 0, false, fmt.Errorf("%w: database stopped", ErrStoreUnavailable)
	default:
	}

	select {
	case d.mailbox <- msg:
	case <-d.stopCh:
		return 0, false, fmt.Errorf("%w: database stopped", ErrStoreUnavailable)
	case <-ctx.Done():
		return 0, false, fmt.Errorf("%w: %v", ErrStoreUnavailable, ctx.Err())
	}

	select {
	case r := <-msg.reply:
		return r.id, r.ok, r.err
	case <-d.doneCh:
		// The final drain may still have answered
		select {
		case r := <-msg.reply:
			return r.id, r.ok, r.err
		default:
			return 0, false, fmt.Errorf("%w: database stopped", ErrStoreUnavailable)
		}
	case <-ctx.Done():
		return 0, false, fmt.Errorf("%w: %v", ErrStoreUnavailable, ctx.Err())
	}
}

// GetRequest reads one request directly from the store
func (d *Database) GetRequest(id uint64) (*types.DataRequest, error) {
	return d.store.GetRequest(id)
}

// ListRequests reads requests directly from the store
func (d *Database) ListRequests(state types.DrState) ([]*types.DataRequest, error) {
	return d.store.ListRequests(state)
}

func (d *Database) run() {
	defer close(d.doneCh)

	for {
		select {
		case msg := <-d.mailbox:
			d.handle(msg)
		case <-d.stopCh:
			d.drain()
			return
		}
	}
}

// drain applies everything still queued at stop time
func (d *Database) drain() {
	for {
		select {
		case msg := <-d.mailbox:
			d.handle(msg)
		default:
			return
		}
	}
}

func (d *Database) handle(msg interface{}) {
	switch m := msg.(type) {
	case upsertMsg:
		d.handleUpsert(m.req)
	case lastIDMsg:
		m.reply <- d.handleLastID()
	}
}

func (d *Database) handleUpsert(req *types.DataRequest) {
	if err := d.store.Upsert(req); err != nil {
		d.logger.Error().Err(err).Uint64("request_id", req.ID).Msg("Failed to upsert data request")
		metrics.StoreErrors.WithLabelValues("upsert").Inc()
		metrics.UpdateComponent(metrics.ComponentStore, false, err.Error())
		return
	}
	metrics.RequestsUpserted.WithLabelValues(string(req.State)).Inc()
	metrics.UpdateComponent(metrics.ComponentStore, true, "")
	d.logger.Trace().Uint64("request_id", req.ID).Str("state", string(req.State)).Msg("Data request stored")
}

func (d *Database) handleLastID() lastIDReply {
	id, ok, err := d.store.LastKnownID()
	if err != nil {
		metrics.StoreErrors.WithLabelValues("last_known_id").Inc()
		metrics.UpdateComponent(metrics.ComponentStore, false, err.Error())
		return lastIDReply{err: fmt.Errorf("%w: %v", ErrStoreUnavailable, err)}
	}
	if ok {
		metrics.LastKnownID.Set(float64(id))
	} else {
		metrics.LastKnownID.Set(-1)
	}
	return lastIDReply{id: id, ok: ok}
}
