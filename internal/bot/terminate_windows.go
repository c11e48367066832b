//go:build windows

package bot

import (
	"os/exec"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// terminate force-kills the worker and its whole process tree. The worker
// spawns audio/video helper processes that must not outlive it, and Windows
// has no SIGTERM equivalent the Python runtime honors reliably, so taskkill
// /T /F is the whole strategy here.
//
// Failures are warnings, not errors: the tree may already be gone.
func (s *Supervisor) terminate(w *Worker) {
	proc := w.proc
	if proc == nil {
		return
	}

	pid := proc.PID()
	s.log.Debug("tree-killing worker", zap.String("worker_id", w.ID), zap.Int("pid", pid))

	cmd := exec.Command("taskkill", "/PID", strconv.Itoa(pid), "/T", "/F")
	if out, err := cmd.CombinedOutput(); err != nil {
		s.log.Warn("taskkill failed, worker may already be gone",
			zap.String("worker_id", w.ID),
			zap.Int("pid", pid),
			zap.String("output", strings.TrimSpace(string(out))),
			zap.Error(err),
		)
	}
}
