package streaming

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Controller coordinates a Source and a Processor as cooperative
// tasks around a shared TimeWindowBuffer, spec §4.4. It is the
// generalization of the teacher's Coordinator.Start lifecycle (fail
// fast on init, run subtasks in goroutines, await cancellation, await
// finalization) to the source/processor pair instead of
// gRPC-dispatched worker tracking.
type Controller struct {
	source    Source
	processor *Processor
	buffer    *TimeWindowBuffer

	mu    sync.Mutex
	state State
	paused atomic.Bool

	events chan Event

	cancel  context.CancelFunc
	stopped chan struct{}
}

// NewController creates a Controller wiring source into processor via
// buffer. The buffer must be the one processor was built with.
func NewController(source Source, processor *Processor, buffer *TimeWindowBuffer) *Controller {
	c := &Controller{
		source:    source,
		processor: processor,
		buffer:    buffer,
		state:     StateStopped,
		events:    make(chan Event, 256),
	}
	processor.OnError(func(err error) { c.emit(Event{Kind: EventError, Err: err}) })
	processor.OnResults(func(n int) { c.emit(Event{Kind: EventResultsReady, Count: n}) })
	return c
}

// Events returns the ordered event stream. Subscribers must keep up;
// the channel is large but finite (spec §4.4 delivers events "in
// order of occurrence", not "regardless of consumer speed").
func (c *Controller) Events() <-chan Event { return c.events }

func (c *Controller) emit(evt Event) {
	select {
	case c.events <- evt:
	default:
	}
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
	c.emit(Event{Kind: EventStateChanged, State: s})
}

// State returns the controller's current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Start transitions Stopped->Starting->Running and spawns the
// source-reader and processor tasks.
func (c *Controller) Start(ctx context.Context) {
	c.setState(StateStarting)

	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.stopped = make(chan struct{})
	c.paused.Store(false)

	feed := make(chan DataChunk, 1024)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		c.readSource(runCtx, feed)
	}()
	go func() {
		defer wg.Done()
		c.processor.Run(runCtx, feed)
	}()

	go func() {
		wg.Wait()
		close(c.stopped)
	}()

	c.setState(StateRunning)
}

// readSource pulls chunks from the source into the buffer
// unconditionally, and into the processor's feed channel only while
// not paused — spec §4.4's "processor sleeps, source drains into
// buffer": the source never stalls, only the processor's input does.
func (c *Controller) readSource(ctx context.Context, feed chan<- DataChunk) {
	defer close(feed)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		chunk, err := c.source.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.emit(Event{Kind: EventError, Err: err})
			return
		}

		c.buffer.PushChunk(chunk)
		c.emit(Event{Kind: EventDataReceived, Count: 1})

		if c.paused.Load() {
			continue
		}

		select {
		case feed <- chunk:
		case <-ctx.Done():
			return
		}
	}
}

// Pause stops new chunks from reaching the processor while the source
// keeps draining into the buffer, per spec §4.4.
func (c *Controller) Pause() {
	c.paused.Store(true)
	c.setState(StatePaused)
}

// Resume resumes feeding the processor after Pause.
func (c *Controller) Resume() {
	c.paused.Store(false)
	c.setState(StateRunning)
}

// Stop cancels both subtasks, waits for them to drain in-flight work,
// and transitions to Stopped.
func (c *Controller) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
	if c.stopped != nil {
		<-c.stopped
	}
	_ = c.source.Close()
	c.setState(StateStopped)
}

// GetLatestData returns the n most recent retained chunks.
func (c *Controller) GetLatestData(n int) []DataChunk {
	return c.buffer.GetData(&n)
}

// GetLatestResults returns the n most recent retained results.
func (c *Controller) GetLatestResults(n int) []Result {
	return c.buffer.GetResults(&n)
}

// PublishStats emits a StatsUpdate event with the buffer's current
// occupancy; callers typically drive this from a ticker.
func (c *Controller) PublishStats() {
	c.emit(Event{Kind: EventStatsUpdate, Stats: c.buffer.Stats(time.Now())})
}
