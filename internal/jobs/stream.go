package jobs

import (
	"context"
	"time"

	"vidsum/internal/models"
)

// Events returns a live, finite feed of the job's event log, starting from
// offset zero. The log is re-read at the configured poll interval; events
// are delivered in append order with none skipped, and the channel closes
// after the event carrying Done=true (or when ctx is cancelled). A
// momentarily empty log idles until the next poll, it is not an error.
func (s *Service) Events(ctx context.Context, id string) (<-chan models.Event, error) {
	if _, err := s.store.Get(id); err != nil {
		return nil, err
	}

	interval := s.cfg.Pipeline.StreamPollInterval
	if interval <= 0 {
		interval = time.Second
	}

	ch := make(chan models.Event)
	go func() {
		defer close(ch)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		offset := 0
		for {
			events, err := s.store.EventsSince(id, offset)
			if err != nil {
				// The janitor evicted the record mid-stream.
				return
			}
			for _, ev := range events {
				select {
				case ch <- ev:
				case <-ctx.Done():
					return
				}
				offset++
				if ev.Done {
					return
				}
			}

			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}
