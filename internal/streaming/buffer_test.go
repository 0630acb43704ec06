package streaming

import (
	"testing"
	"time"
)

func mkChunk(t time.Time) DataChunk {
	return DataChunk{Samples: [][]float64{{1, 2, 3}}, Timestamp: t, SampleRateHz: 256}
}

func TestBufferEvictsExpiredChunks(t *testing.T) {
	buf := NewTimeWindowBuffer(1.0, 100)
	base := time.Now()
	buf.PushChunk(mkChunk(base))
	buf.PushChunk(mkChunk(base.Add(2 * time.Second)))

	data := buf.GetData(nil)
	if len(data) != 1 {
		t.Fatalf("len(data) = %d, want 1 (first chunk should have expired)", len(data))
	}
}

func TestBufferGetDataLimitN(t *testing.T) {
	buf := NewTimeWindowBuffer(100, 100)
	base := time.Now()
	for i := 0; i < 5; i++ {
		buf.PushChunk(mkChunk(base.Add(time.Duration(i) * time.Millisecond)))
	}
	n := 2
	data := buf.GetData(&n)
	if len(data) != 2 {
		t.Fatalf("len(data) = %d, want 2", len(data))
	}
}

func TestBufferDecimatesDisplayData(t *testing.T) {
	buf := NewTimeWindowBuffer(1000, 10)
	base := time.Now()
	for i := 0; i < 1000; i++ {
		buf.PushChunk(mkChunk(base.Add(time.Duration(i) * time.Millisecond)))
	}
	display := buf.GetDisplayData()
	if len(display) > 10 {
		t.Fatalf("len(display) = %d, want <= 10", len(display))
	}
}

func TestBufferStatsO1(t *testing.T) {
	buf := NewTimeWindowBuffer(100, 100)
	now := time.Now()
	buf.PushChunk(mkChunk(now.Add(-5 * time.Second)))
	buf.PushChunk(mkChunk(now))
	stats := buf.Stats(now)
	if stats.StoredChunks != 2 {
		t.Fatalf("StoredChunks = %d, want 2", stats.StoredChunks)
	}
	if stats.OldestAge < 4*time.Second {
		t.Fatalf("OldestAge = %v, want >= 4s", stats.OldestAge)
	}
}

func TestDropOldestResultBackpressure(t *testing.T) {
	buf := NewTimeWindowBuffer(1000, 100)
	now := time.Now()
	buf.PushResult(Result{WindowStart: now, WindowEnd: now.Add(time.Second)})
	buf.PushResult(Result{WindowStart: now.Add(time.Second), WindowEnd: now.Add(2 * time.Second)})
	buf.DropOldestResult()
	results := buf.GetResults(nil)
	if len(results) != 1 {
		t.Fatalf("len(results) = %d, want 1 after dropping oldest", len(results))
	}
	if results[0].WindowStart != now.Add(time.Second) {
		t.Fatalf("remaining result is not the newest one")
	}
}
