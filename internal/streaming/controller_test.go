package streaming

import (
	"context"
	"testing"
	"time"
)

func collectEvents(t *testing.T, c *Controller, timeout time.Duration) []Event {
	t.Helper()
	var got []Event
	deadline := time.After(timeout)
	for {
		select {
		case evt := <-c.Events():
			got = append(got, evt)
		case <-deadline:
			return got
		}
	}
}

func TestControllerStartRunningReceivesData(t *testing.T) {
	base := time.Now()
	chunks := []DataChunk{mkChunk(base), mkChunk(base.Add(10 * time.Millisecond))}
	src := NewFileReplaySource(chunks, false, false)
	buf := NewTimeWindowBuffer(100, 100)
	proc := NewProcessor(buf, func(ctx context.Context, batch []DataChunk) (Result, error) {
		return Result{WindowStart: base, WindowEnd: base.Add(time.Second)}, nil
	}, 1, 10*time.Millisecond, 100)

	ctrl := NewController(src, proc, buf)
	ctrl.Start(context.Background())

	deadline := time.Now().Add(time.Second)
	for len(ctrl.GetLatestData(10)) < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	ctrl.Stop()

	data := ctrl.GetLatestData(10)
	if len(data) != 2 {
		t.Fatalf("GetLatestData returned %d chunks, want 2", len(data))
	}
	if ctrl.State() != StateStopped {
		t.Fatalf("State() = %s, want stopped", ctrl.State())
	}
}

func TestControllerPauseStopsProcessorNotSource(t *testing.T) {
	base := time.Now()
	chunks := make([]DataChunk, 50)
	for i := range chunks {
		chunks[i] = mkChunk(base.Add(time.Duration(i) * time.Millisecond))
	}
	src := NewFileReplaySource(chunks, false, false)
	buf := NewTimeWindowBuffer(1000, 1000)
	resultCount := 0
	proc := NewProcessor(buf, func(ctx context.Context, batch []DataChunk) (Result, error) {
		resultCount++
		return Result{WindowStart: base, WindowEnd: base.Add(time.Second)}, nil
	}, 1, 5*time.Millisecond, 100)

	ctrl := NewController(src, proc, buf)
	ctrl.Start(context.Background())
	time.Sleep(20 * time.Millisecond)
	ctrl.Pause()
	if ctrl.State() != StatePaused {
		t.Fatalf("State() = %s, want paused", ctrl.State())
	}
	countAtPause := resultCount
	time.Sleep(30 * time.Millisecond)
	ctrl.Stop()

	if resultCount > countAtPause+1 {
		t.Fatalf("processor kept producing results while paused: %d -> %d", countAtPause, resultCount)
	}
}

func TestControllerStopDrainsAndTransitions(t *testing.T) {
	src := NewFileReplaySource(nil, false, false)
	buf := NewTimeWindowBuffer(10, 10)
	proc := NewProcessor(buf, func(ctx context.Context, batch []DataChunk) (Result, error) {
		return Result{}, nil
	}, 10, 10*time.Millisecond, 10)
	ctrl := NewController(src, proc, buf)
	ctrl.Start(context.Background())
	time.Sleep(10 * time.Millisecond)
	ctrl.Stop()
	if ctrl.State() != StateStopped {
		t.Fatalf("State() = %s, want stopped", ctrl.State())
	}
}
