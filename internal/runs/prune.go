package runs

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/KaramelBytes/edaloom/internal/logging"
)

// Prune deletes runs created more than olderThan ago: first the directory,
// then the record. It returns the ids removed.
func Prune(ctx context.Context, s *Store, w *Workspace, olderThan time.Duration, log *zap.Logger) ([]string, error) {
	log = logging.OrNop(log)
	ids, err := s.Expired(ctx, time.Now().Add(-olderThan))
	if err != nil {
		return nil, err
	}
	var removed []string
	var errs []error
	for _, id := range ids {
		if err := w.Remove(id); err != nil {
			log.Error("remove run directory", zap.String("run_id", id), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		if err := s.Delete(ctx, id); err != nil && !errors.Is(err, ErrNotFound) {
			errs = append(errs, err)
			continue
		}
		log.Info("pruned run", zap.String("run_id", id))
		removed = append(removed, id)
	}
	return removed, errors.Join(errs...)
}

// StartCleanup prunes on every tick until ctx is done.
func StartCleanup(ctx context.Context, s *Store, w *Workspace, retention, interval time.Duration, log *zap.Logger) {
	log = logging.OrNop(log)
	if retention <= 0 || interval <= 0 {
		log.Info("run cleanup disabled")
		return
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed, err := Prune(ctx, s, w, retention, log); err != nil {
					log.Error("run cleanup", zap.Error(err))
				} else if len(removed) > 0 {
					log.Info("run cleanup finished", zap.Int("removed", len(removed)))
				}
			}
		}
	}()
	log.Info("run cleanup started", zap.Duration("retention", retention), zap.Duration("interval", interval))
}
