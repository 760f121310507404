package cron

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Deactivator flips the active flag on polls whose expiry has passed.
type Deactivator interface {
	DeactivateExpired(ctx context.Context, now time.Time) (int64, error)
}

// ExpirationJob sweeps expired polls every minute. Errors are logged and the
// schedule keeps running; the job never takes the process down.
type ExpirationJob struct {
	repo Deactivator
	cron *cron.Cron
}

func NewExpirationJob(repo Deactivator) *ExpirationJob {
	return &ExpirationJob{repo: repo, cron: cron.New()}
}

func (j *ExpirationJob) Start() error {
	if _, err := j.cron.AddFunc("* * * * *", j.run); err != nil {
		return err
	}
	j.cron.Start()
	return nil
}

// Stop halts the schedule and waits for an in-flight sweep to finish.
func (j *ExpirationJob) Stop() {
	<-j.cron.Stop().Done()
}

func (j *ExpirationJob) run() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	count, err := j.repo.DeactivateExpired(ctx, time.Now())
	if err != nil {
		slog.Error("Poll expiration sweep failed", "error", err)
		return
	}
	if count > 0 {
		slog.Info("Deactivated expired polls", "count", count)
	}
}
