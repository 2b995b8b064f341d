package metrics

import (
	"context"
	"sync"
	"time"

	"github.com/smazurov/videoswitch/internal/events"
	"github.com/smazurov/videoswitch/internal/logging"
)

// watchdogInterval is the sampling window for observed frame rate.
const watchdogInterval = 2 * time.Second

// Watchdog samples a pipeline's processed-frame counter and raises a
// FrameRateWarningEvent when the observed rate falls below target. It only
// signals; recovery is the consumer's decision.
type Watchdog struct {
	metrics *Metrics
	bus     *events.Bus
	logger  logging.Logger
	// keyFn resolves the watched pipeline key. The program slot's key
	// changes across loads and takes, so it is read fresh every sample.
	keyFn func() string

	mu     sync.Mutex
	target float64
	cancel context.CancelFunc

	lastKey    string
	lastCount  uint64
	lastSample time.Time
}

// NewWatchdog creates a watchdog over the pipeline named by keyFn. A zero
// or negative target disables it until SetTarget raises it.
func NewWatchdog(m *Metrics, bus *events.Bus, keyFn func() string, targetFPS float64) *Watchdog {
	return &Watchdog{
		metrics: m,
		bus:     bus,
		logger:  logging.GetLogger("metrics"),
		keyFn:   keyFn,
		target:  targetFPS,
	}
}

// SetTarget updates the target frame rate. Settings hot-reload calls this.
func (w *Watchdog) SetTarget(fps float64) {
	w.mu.Lock()
	w.target = fps
	w.mu.Unlock()
}

// Start begins sampling until ctx is cancelled or Stop is called.
func (w *Watchdog) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	w.mu.Lock()
	w.cancel = cancel
	w.lastKey = ""
	w.lastSample = time.Now()
	w.mu.Unlock()
	go w.run(ctx)
}

// Stop halts sampling.
func (w *Watchdog) Stop() {
	w.mu.Lock()
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
	w.mu.Unlock()
}

func (w *Watchdog) run(ctx context.Context) {
	ticker := time.NewTicker(watchdogInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.sample()
		}
	}
}

func (w *Watchdog) sample() {
	key := w.keyFn()
	now := time.Now()

	w.mu.Lock()
	defer w.mu.Unlock()

	target := w.target
	elapsed := now.Sub(w.lastSample).Seconds()
	sameKey := key != "" && key == w.lastKey

	count := uint64(0)
	if key != "" {
		count = w.metrics.ProcessedCount(key)
	}
	delta := count - w.lastCount
	w.lastKey = key
	w.lastCount = count
	w.lastSample = now

	// Only a full window on one pipeline gives a meaningful rate; skip
	// samples spanning an idle slot or a source swap.
	if !sameKey || target <= 0 || elapsed <= 0 {
		return
	}

	observed := float64(delta) / elapsed
	if observed >= target {
		return
	}

	w.logger.Warn("frame rate below target", "key", key, "observed", observed, "target", target)
	w.metrics.RecordRateWarning(key)
	w.bus.Publish(events.FrameRateWarningEvent{
		Key:       key,
		Observed:  observed,
		Target:    target,
		Timestamp: now.UTC().Format(time.RFC3339),
	})
}
