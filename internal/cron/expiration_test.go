package cron

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeDeactivator struct {
	mu    sync.Mutex
	calls []time.Time
	count int64
	err   error
}

func (d *fakeDeactivator) DeactivateExpired(_ context.Context, now time.Time) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, now)
	return d.count, d.err
}

func (d *fakeDeactivator) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.calls)
}

func TestExpirationSweep(t *testing.T) {
	t.Run("DeactivatesWithCurrentTime", func(t *testing.T) {
		repo := &fakeDeactivator{count: 3}
		job := NewExpirationJob(repo)

		before := time.Now()
		job.run()

		if repo.callCount() != 1 {
			t.Fatalf("Expected 1 sweep, got %d", repo.callCount())
		}
		cutoff := repo.calls[0]
		if cutoff.Before(before) || cutoff.After(time.Now()) {
			t.Errorf("Sweep cutoff %v is not the current time", cutoff)
		}
	})

	t.Run("SurvivesRepositoryFailure", func(t *testing.T) {
		repo := &fakeDeactivator{err: errors.New("database down")}
		job := NewExpirationJob(repo)

		job.run()
		job.run()

		if repo.callCount() != 2 {
			t.Errorf("Expected sweeps to keep running, got %d", repo.callCount())
		}
	})
}

func TestExpirationJobLifecycle(t *testing.T) {
	repo := &fakeDeactivator{}
	job := NewExpirationJob(repo)

	if err := job.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	job.Stop()

	if len(job.cron.Entries()) != 1 {
		t.Errorf("Expected 1 scheduled entry, got %d", len(job.cron.Entries()))
	}
}
