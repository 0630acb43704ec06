package streaming

import (
	"context"
	"time"
)

// AnalysisFunc runs a streaming DDA analysis over a batch of chunks
// and returns its result. Production callers back this with
// pkg/ddaproc against the DDA binary's streaming mode; tests
// substitute a fake.
type AnalysisFunc func(ctx context.Context, batch []DataChunk) (Result, error)

// Processor batches chunks off the buffer by size or interval
// (whichever fires first), runs AnalysisFunc over each batch, and
// pushes the result back into the buffer with drop-oldest
// back-pressure, spec §4.4.
type Processor struct {
	buffer       *TimeWindowBuffer
	analyze      AnalysisFunc
	batchSize    int
	interval     time.Duration
	maxResults   int
	onError      func(error)
	onResults    func(count int)

	pending []DataChunk
}

// NewProcessor creates a Processor. batchSize and interval are the
// two batch triggers; maxResults bounds the result side before
// DropOldestResult kicks in.
func NewProcessor(buf *TimeWindowBuffer, analyze AnalysisFunc, batchSize int, interval time.Duration, maxResults int) *Processor {
	return &Processor{
		buffer:     buf,
		analyze:    analyze,
		batchSize:  batchSize,
		interval:   interval,
		maxResults: maxResults,
	}
}

// OnError sets the callback invoked when a batch analysis fails. The
// processor continues with subsequent batches; one failed batch must
// not stop the pipeline.
func (p *Processor) OnError(fn func(error)) { p.onError = fn }

// OnResults sets the callback invoked after each result is pushed.
func (p *Processor) OnResults(fn func(count int)) { p.onResults = fn }

// Run drives the batch-or-interval loop until ctx is cancelled or feed
// is closed.
func (p *Processor) Run(ctx context.Context, feed <-chan DataChunk) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	flush := func() {
		if len(p.pending) == 0 {
			return
		}
		batch := p.pending
		p.pending = nil
		p.processBatch(ctx, batch)
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return
		case c, ok := <-feed:
			if !ok {
				flush()
				return
			}
			p.pending = append(p.pending, c)
			if len(p.pending) >= p.batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

func (p *Processor) processBatch(ctx context.Context, batch []DataChunk) {
	result, err := p.analyze(ctx, batch)
	if err != nil {
		if p.onError != nil {
			p.onError(err)
		}
		return
	}

	stats := p.buffer.Stats(time.Now())
	if p.maxResults > 0 && stats.StoredResults >= p.maxResults {
		p.buffer.DropOldestResult()
	}
	p.buffer.PushResult(result)
	if p.onResults != nil {
		p.onResults(1)
	}
}
