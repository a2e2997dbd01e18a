package sync

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/openmined/vaultsync/internal/vault"
)

// ScheduledAction runs once the quiet period for a scheduled file has elapsed.
type ScheduledAction func(ctx context.Context, file *vault.File)

// ChangeScheduler coalesces bursts of change events into one deferred action.
//
// The quiet period is global rather than per file: scheduling any file cancels the
// pending action of whatever file was scheduled before it. Only the most recently
// scheduled file within a quiet window fires.
type ChangeScheduler struct {
	ctx    context.Context
	action ScheduledAction

	mu      sync.Mutex
	timer   *time.Timer
	token   uint64
	stopped bool
	running sync.WaitGroup
}

func NewChangeScheduler(ctx context.Context, action ScheduledAction) *ChangeScheduler {
	return &ChangeScheduler{
		ctx:    ctx,
		action: action,
	}
}

// Schedule supersedes any pending action and arms a new timer for file.
func (s *ChangeScheduler) Schedule(file *vault.File, delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}

	s.token++
	token := s.token
	s.timer = time.AfterFunc(delay, func() {
		s.fire(token, file)
	})
	slog.Debug("sync scheduled", "path", file.Path, "delay", delay, "token", token)
}

func (s *ChangeScheduler) fire(token uint64, file *vault.File) {
	s.mu.Lock()
	if token != s.token || s.stopped {
		s.mu.Unlock()
		slog.Debug("sync schedule superseded", "path", file.Path, "token", token)
		return
	}
	s.timer = nil
	s.running.Add(1)
	s.mu.Unlock()
	defer s.running.Done()

	if s.ctx.Err() != nil {
		return
	}
	s.action(s.ctx, file)
}

// Cancel stops the pending timer without advancing the token.
func (s *ChangeScheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// Stop cancels the pending timer, refuses later schedules and waits for an
// action that already fired to return.
func (s *ChangeScheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()

	s.running.Wait()
}

// Pending reports whether an action is waiting for its quiet period.
func (s *ChangeScheduler) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer != nil
}
