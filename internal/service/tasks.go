package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/tuckerandrew21/MurmurTone/internal/persistence"
	"github.com/tuckerandrew21/MurmurTone/internal/settings"
)

const (
	runStatusRunning   = "running"
	runStatusSucceeded = "succeeded"
	runStatusFailed    = "failed"
	runStatusStopped   = "stopped"
)

// StartTask runs a task to completion. Only one run per kind may be active;
// a second start returns settings.ErrAlreadyRunning.
func (s *Service) StartTask(ctx context.Context, kind settings.TaskKind, args settings.TaskArgs, listener settings.TaskListener) (settings.TaskResult, error) {
	run, ok := s.runners[kind]
	if !ok {
		return nil, fmt.Errorf("unknown task kind %q", kind)
	}
	if listener == nil {
		listener = settings.NopTaskListener{}
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	active := &activeRun{id: uuid.NewString(), cancel: cancel, done: make(chan struct{})}
	defer close(active.done)

	s.activeMu.Lock()
	if _, busy := s.active[kind]; busy {
		s.activeMu.Unlock()

		return nil, settings.ErrAlreadyRunning
	}
	s.active[kind] = active
	s.activeMu.Unlock()
	defer func() {
		s.activeMu.Lock()
		if s.active[kind] == active {
			delete(s.active, kind)
		}
		s.activeMu.Unlock()
	}()

	logger := s.logger.With("task", string(kind), "run_id", active.id)
	started := s.now()
	s.record(persistence.TaskRun{RunID: active.id, Kind: string(kind), Status: runStatusRunning, StartedAt: started})
	logger.Info("task started")

	result, err := run(runCtx, args, listener)

	finished := persistence.TaskRun{RunID: active.id, Kind: string(kind), StartedAt: started, FinishedAt: s.now()}
	switch {
	case err == nil:
		finished.Status = runStatusSucceeded
		logger.Info("task finished")
	case errors.Is(err, context.Canceled) && ctx.Err() == nil:
		finished.Status = runStatusStopped
		finished.Detail = "stopped"
		logger.Info("task stopped")
	default:
		finished.Status = runStatusFailed
		finished.Detail = err.Error()
		logger.Warn("task failed", "error", err)
	}
	s.record(finished)

	return result, err
}

// StopTask cancels the active run of kind and waits for it to wind down.
// Stopping an idle kind is a no-op.
func (s *Service) StopTask(ctx context.Context, kind settings.TaskKind) error {
	s.activeMu.Lock()
	active := s.active[kind]
	s.activeMu.Unlock()
	if active == nil {
		return nil
	}
	active.cancel()

	select {
	case <-active.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Running reports whether a run of kind is active.
func (s *Service) Running(kind settings.TaskKind) bool {
	s.activeMu.Lock()
	defer s.activeMu.Unlock()
	_, ok := s.active[kind]

	return ok
}

// Close cancels every active run.
func (s *Service) Close() {
	s.activeMu.Lock()
	defer s.activeMu.Unlock()
	for _, active := range s.active {
		active.cancel()
	}
}

func (s *Service) record(run persistence.TaskRun) {
	if s.opts.History == nil {
		return
	}
	write := func(ctx context.Context) error {
		return s.opts.History.Upsert(ctx, run)
	}
	if s.opts.Writer != nil {
		s.opts.Writer.Enqueue("task_run:"+run.RunID, write)

		return
	}
	if err := write(context.Background()); err != nil {
		s.logger.Warn("record task run", "run_id", run.RunID, "error", err)
	}
}
