package store

import (
	"context"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
)

// Janitor evicts terminal job records after a retention window so the
// in-memory table stays bounded over a long-lived process. A zero retention
// disables eviction and records live for the process lifetime.
type Janitor struct {
	store     *Store
	retention time.Duration
	interval  time.Duration
}

func NewJanitor(s *Store, retention, interval time.Duration) *Janitor {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Janitor{store: s, retention: retention, interval: interval}
}

// Run blocks until ctx is cancelled, sweeping at the configured interval.
// Callers start it on its own goroutine.
func (j *Janitor) Run(ctx context.Context) {
	if j.retention <= 0 {
		log.Debug("job retention disabled, janitor not sweeping")
		return
	}

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.sweep()
		}
	}
}

func (j *Janitor) sweep() {
	cutoff := time.Now().Add(-j.retention)
	for _, job := range j.store.List() {
		if !job.Stage.Terminal() || job.UpdatedAt.After(cutoff) {
			continue
		}
		if job.SpoolPath != "" {
			if err := os.Remove(job.SpoolPath); err != nil && !os.IsNotExist(err) {
				log.Warnf("janitor: remove spool file for job %s: %v", job.ID, err)
			}
		}
		j.store.Delete(job.ID)
		log.Infof("janitor: evicted terminal job %s (stage=%s)", job.ID, job.Stage)
	}
}
