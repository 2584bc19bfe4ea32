package metrics

import (
	"sync"
	"time"

	"github.com/cuemby/drbridge/pkg/storage"
	"github.com/cuemby/drbridge/pkg/types"
)

// Collector samples the request store into gauges
type Collector struct {
	store    storage.Store
	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewCollector creates a new metrics collector
func NewCollector(store storage.Store, interval time.Duration) *Collector {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Collector{
		store:    store,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins collecting metrics
func (c *Collector) Start() {
	ticker := time.NewTicker(c.interval)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer ticker.Stop()

		// Collect immediately on start
		c.collect()

		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				return
			}
		}
	}()
}

// Stop stops the collector and waits for the running sample to finish
func (c *Collector) Stop() {
	close(c.stopCh)
	c.wg.Wait()
}

func (c *Collector) collect() {
	c.collectWatermark()
	c.collectRequestStates()
}

func (c *Collector) collectWatermark() {
	id, ok, err := c.store.LastKnownID()
	if err != nil {
		StoreErrors.WithLabelValues("last_known_id").Inc()
		return
	}
	if !ok {
		LastKnownID.Set(-1)
		return
	}
	LastKnownID.Set(float64(id))
}

func (c *Collector) collectRequestStates() {
	counts, err := c.store.CountByState()
	if err != nil {
		StoreErrors.WithLabelValues("count").Inc()
		return
	}

	for _, state := range []types.DrState{types.DrStateNew, types.DrStateFinished} {
		RequestsStored.WithLabelValues(string(state)).Set(float64(counts[state]))
	}
}
