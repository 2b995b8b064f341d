// Package processor runs keyed frame-processing pipelines: raw frames in,
// effect-applied frames with GPU textures out. Keys are opaque source
// names ("program", "preview_media"); which slot owns a key is not the
// processor's concern.
package processor

import (
	"context"
	"sync"
	"time"

	"github.com/smazurov/videoswitch/internal/effects"
	"github.com/smazurov/videoswitch/internal/logging"
	"github.com/smazurov/videoswitch/internal/media"
)

// inputDepth bounds the per-pipeline submission queue. Overflow drops the
// oldest unprocessed submission so a stalled worker cannot queue frames
// without bound.
const inputDepth = 4

// ProcessedFrame is a pipeline's output: the effect-applied frame with its
// uploaded texture. The receiver becomes the texture's only owner.
type ProcessedFrame struct {
	Key       string
	Frame     media.Frame
	Timestamp time.Time
}

// Recorder receives pipeline instrumentation. Implemented by the metrics
// package; a nil Recorder disables instrumentation.
type Recorder interface {
	FrameSubmitted(key string)
	FrameProcessed(key string)
	FrameDropped(key string)
}

// Processor owns all pipelines. One pipeline per key at any time: creating
// a stream for an existing key replaces it and the previous consumer sees
// its stream terminate.
type Processor struct {
	logger   logging.Logger
	recorder Recorder

	mu        sync.Mutex
	pipelines map[string]*pipeline
}

// New creates a processor. recorder may be nil.
func New(recorder Recorder) *Processor {
	return &Processor{
		logger:    logging.GetLogger("processor"),
		recorder:  recorder,
		pipelines: make(map[string]*pipeline),
	}
}

// CreateFrameStream starts a pipeline for key with the given effect chain
// and returns its output stream. An existing pipeline under the same key is
// torn down first.
func (p *Processor) CreateFrameStream(key string, chain *effects.Chain) <-chan ProcessedFrame {
	p.mu.Lock()
	defer p.mu.Unlock()

	if old, ok := p.pipelines[key]; ok {
		old.stop()
	}

	pl := newPipeline(key, chain, p.recorder, p.logger)
	p.pipelines[key] = pl
	p.logger.Debug("pipeline created", "key", key)
	return pl.out
}

// SubmitFrame hands a raw frame to the pipeline for key. Unknown keys drop
// the frame silently: submissions racing a stream teardown are expected
// during source swaps. Never blocks the caller.
func (p *Processor) SubmitFrame(f media.Frame, key string, ts time.Time) {
	p.mu.Lock()
	pl := p.pipelines[key]
	p.mu.Unlock()
	if pl == nil {
		return
	}
	if p.recorder != nil {
		p.recorder.FrameSubmitted(key)
	}
	pl.submit(submission{frame: f, ts: ts})
}

// SetChain rebinds the effect chain for key. Takes effect on the next
// submitted frame, never retroactively. Unknown keys are a no-op.
func (p *Processor) SetChain(key string, chain *effects.Chain) {
	p.mu.Lock()
	pl := p.pipelines[key]
	p.mu.Unlock()
	if pl != nil {
		pl.setChain(chain)
	}
}

// StopFrameStream tears down the pipeline for key: the output stream is
// closed and per-key texture scratch is released. Unknown keys are a no-op.
func (p *Processor) StopFrameStream(key string) {
	p.mu.Lock()
	pl := p.pipelines[key]
	delete(p.pipelines, key)
	p.mu.Unlock()
	if pl != nil {
		pl.stop()
		p.logger.Debug("pipeline stopped", "key", key)
	}
}

// Keys returns the active pipeline keys.
func (p *Processor) Keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	keys := make([]string, 0, len(p.pipelines))
	for k := range p.pipelines {
		keys = append(keys, k)
	}
	return keys
}

// Close stops every pipeline.
func (p *Processor) Close() {
	p.mu.Lock()
	pipelines := p.pipelines
	p.pipelines = make(map[string]*pipeline)
	p.mu.Unlock()
	for _, pl := range pipelines {
		pl.stop()
	}
}

type submission struct {
	frame media.Frame
	ts    time.Time
}

// pipeline is one keyed worker: consumes submissions in order, applies the
// chain, uploads a texture, and publishes newest-wins.
type pipeline struct {
	key      string
	recorder Recorder
	logger   logging.Logger

	chainMu sync.RWMutex
	chain   *effects.Chain

	in     chan submission
	out    chan ProcessedFrame
	cancel context.CancelFunc
	done   chan struct{}
}

func newPipeline(key string, chain *effects.Chain, recorder Recorder, logger logging.Logger) *pipeline {
	ctx, cancel := context.WithCancel(context.Background())
	pl := &pipeline{
		key:      key,
		recorder: recorder,
		logger:   logger,
		chain:    chain,
		in:       make(chan submission, inputDepth),
		out:      make(chan ProcessedFrame, 1),
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go pl.run(ctx)
	return pl
}

func (pl *pipeline) setChain(chain *effects.Chain) {
	pl.chainMu.Lock()
	pl.chain = chain
	pl.chainMu.Unlock()
}

// submit enqueues without blocking; the oldest queued submission is evicted
// on overflow.
func (pl *pipeline) submit(s submission) {
	for {
		select {
		case pl.in <- s:
			return
		default:
			select {
			case <-pl.in:
				if pl.recorder != nil {
					pl.recorder.FrameDropped(pl.key)
				}
			default:
			}
		}
	}
}

func (pl *pipeline) run(ctx context.Context) {
	defer close(pl.done)
	for {
		select {
		case <-ctx.Done():
			return
		case s := <-pl.in:
			pl.process(s)
		}
	}
}

func (pl *pipeline) process(s submission) {
	pl.chainMu.RLock()
	chain := pl.chain
	pl.chainMu.RUnlock()

	out := s.frame
	if chain != nil {
		out = chain.Apply(out)
	}
	out.Texture = media.NewTexture(out.Width, out.Height)

	pf := ProcessedFrame{Key: pl.key, Frame: out, Timestamp: s.ts}

	// Newest-wins: an unconsumed result is evicted and its texture freed
	// immediately, so a slow consumer never accumulates GPU memory.
	for {
		select {
		case pl.out <- pf:
			if pl.recorder != nil {
				pl.recorder.FrameProcessed(pl.key)
			}
			return
		default:
			select {
			case stale := <-pl.out:
				if stale.Frame.Texture != nil {
					stale.Frame.Texture.Release()
				}
				if pl.recorder != nil {
					pl.recorder.FrameDropped(pl.key)
				}
			default:
			}
		}
	}
}

// stop cancels the worker, waits for it, then drains and closes the output
// releasing any unconsumed texture.
func (pl *pipeline) stop() {
	pl.cancel()
	<-pl.done
	for {
		select {
		case stale := <-pl.out:
			if stale.Frame.Texture != nil {
				stale.Frame.Texture.Release()
			}
		default:
			close(pl.out)
			return
		}
	}
}
