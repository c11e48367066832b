//go:build !windows

package bot

import (
	"syscall"
	"time"

	"go.uber.org/zap"
)

// terminate asks the worker to shut down gracefully with SIGTERM, then
// escalates to SIGKILL if it has not died within the kill timeout. The
// escalation timer runs on its own goroutine: callers of Stop return as
// soon as the signal is sent, never blocking on confirmed death.
//
// Signal failures are warnings, not errors: the worker may already be
// gone, and a dead worker is the outcome we wanted.
func (s *Supervisor) terminate(w *Worker) {
	proc := w.proc
	if proc == nil {
		return
	}

	s.log.Debug("sending SIGTERM", zap.String("worker_id", w.ID), zap.Int("pid", proc.PID()))
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		s.log.Warn("failed to signal worker, may already be gone",
			zap.String("worker_id", w.ID), zap.Error(err))
	}

	timeout := s.cfg.KillTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}

	go func() {
		select {
		case <-w.Done():
			s.log.Debug("worker exited after SIGTERM", zap.String("worker_id", w.ID))
		case <-time.After(timeout):
			s.log.Warn("worker ignored SIGTERM, sending SIGKILL",
				zap.String("worker_id", w.ID), zap.Int("pid", proc.PID()))
			if err := proc.Kill(); err != nil {
				s.log.Warn("failed to kill worker, may already be gone",
					zap.String("worker_id", w.ID), zap.Error(err))
			}
		}
	}()
}
