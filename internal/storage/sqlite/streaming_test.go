package sqlite

import (
	"testing"
	"time"
)

func TestStreamingRepoStartAndStop(t *testing.T) {
	db := openTestDB(t)
	repo := NewStreamingRepo(db)

	start := time.Now()
	if err := repo.Start("session-1", "tcp", "127.0.0.1:9000", start); err != nil {
		t.Fatalf("Start: %v", err)
	}

	active, err := repo.ListActive()
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	if len(active) != 1 || active[0].StoppedAt != nil {
		t.Fatalf("expected 1 active session with nil stop time, got %+v", active)
	}

	stop := start.Add(time.Minute)
	if err := repo.Stop("session-1", stop); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	active, err = repo.ListActive()
	if err != nil {
		t.Fatalf("ListActive after stop: %v", err)
	}
	if len(active) != 0 {
		t.Fatalf("expected 0 active sessions after stop, got %d", len(active))
	}
}

func TestStreamingRepoStopUnknown(t *testing.T) {
	db := openTestDB(t)
	repo := NewStreamingRepo(db)
	if err := repo.Stop("missing", time.Now()); err != ErrStreamingSessionNotFound {
		t.Fatalf("expected ErrStreamingSessionNotFound, got %v", err)
	}
}

func TestStreamingRepoListRecent(t *testing.T) {
	db := openTestDB(t)
	repo := NewStreamingRepo(db)

	base := time.Now()
	if err := repo.Start("session-1", "serial", "/dev/ttyUSB0", base); err != nil {
		t.Fatalf("Start session-1: %v", err)
	}
	if err := repo.Start("session-2", "lsl", "EEGStream", base.Add(time.Second)); err != nil {
		t.Fatalf("Start session-2: %v", err)
	}

	recent, err := repo.ListRecent(1)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(recent) != 1 || recent[0].ID != "session-2" {
		t.Fatalf("expected most recent session-2 first, got %+v", recent)
	}
}
