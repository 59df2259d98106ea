// Package cleanup removes task working directories after a grace period,
// giving users time to re-request a delivery before the files disappear.
package cleanup

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/mediagrab/mediagrab/internal/logctx"
)

// Scheduler arms a deferred removal per task directory. Timers are
// process-local and best effort: a restart forgets them, leftover
// directories are swept by PurgeExpired on the next start.
type Scheduler struct {
	root  string
	delay time.Duration

	ctx context.Context

	mu      sync.Mutex
	pending map[string]*Scheduled
}

// Scheduled is the handle for one armed removal.
type Scheduled struct {
	timer *time.Timer
	done  chan struct{}
}

// Cancel disarms the removal if it has not fired yet.
func (s *Scheduled) Cancel() bool {
	return s.timer.Stop()
}

// Done closes once the removal attempt ran.
func (s *Scheduled) Done() <-chan struct{} {
	return s.done
}

func NewScheduler(ctx context.Context, root string, delay time.Duration) *Scheduler {
	return &Scheduler{
		root:    root,
		delay:   delay,
		ctx:     ctx,
		pending: make(map[string]*Scheduled),
	}
}

// Schedule arms removal of the task directory after the configured delay.
// Scheduling the same task twice resets the timer.
func (s *Scheduler) Schedule(userID, taskID int64) *Scheduled {
	dir := s.taskDir(userID, taskID)
	logger := logctx.LoggerFromContext(s.ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.pending[dir]; ok {
		prev.timer.Stop()
	}

	sc := &Scheduled{done: make(chan struct{})}
	sc.timer = time.AfterFunc(s.delay, func() {
		defer close(sc.done)

		s.mu.Lock()
		delete(s.pending, dir)
		s.mu.Unlock()

		if err := os.RemoveAll(dir); err != nil {
			logger.Error("failed to remove task directory", "dir", dir, "err", err)

			return
		}

		logger.Debug("removed task directory", "dir", dir)
	})

	s.pending[dir] = sc

	return sc
}

// PurgeExpired removes task directories whose modification time is older
// than the cleanup delay. Meant for startup, to sweep directories whose
// timers died with a previous process.
func (s *Scheduler) PurgeExpired(ctx context.Context) error {
	logger := logctx.LoggerFromContext(ctx)
	cutoff := time.Now().Add(-s.delay)

	userDirs, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}

		return err
	}

	for _, userDir := range userDirs {
		if !userDir.IsDir() {
			continue
		}

		taskDirs, err := os.ReadDir(filepath.Join(s.root, userDir.Name()))
		if err != nil {
			continue
		}

		for _, taskDir := range taskDirs {
			full := filepath.Join(s.root, userDir.Name(), taskDir.Name())

			info, err := taskDir.Info()
			if err != nil || !info.ModTime().Before(cutoff) {
				continue
			}

			if err := os.RemoveAll(full); err != nil {
				logger.Error("failed to remove expired directory", "dir", full, "err", err)

				continue
			}

			logger.Info("removed expired task directory", "dir", full)
		}
	}

	return nil
}

func (s *Scheduler) taskDir(userID, taskID int64) string {
	return filepath.Join(s.root, strconv.FormatInt(userID, 10), strconv.FormatInt(taskID, 10))
}
