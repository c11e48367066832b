package bot

import (
	"bufio"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ojin-ai/agents-desktop/backend/internal/infrastructure/config"
	"github.com/ojin-ai/agents-desktop/backend/internal/infrastructure/monitoring"
	"github.com/ojin-ai/agents-desktop/backend/internal/logging"
	"github.com/ojin-ai/agents-desktop/backend/internal/protocol"
	"go.uber.org/zap"
)

// Sink consumes the supervisor's event stream: decoded worker events plus
// the lifecycle pseudo-events (spawn error, synthesized ended) in strict
// arrival order.
type Sink interface {
	Emit(ev protocol.Event)
}

// Supervisor owns the single worker handle for the host process. It is the
// only component allowed to spawn or kill the worker; everything else goes
// through Start/Stop.
type Supervisor struct {
	cfg      config.BotConfig
	log      *logging.Logger
	launcher Launcher
	metrics  *monitoring.Metrics

	// startMu serializes Start calls so re-entrant starts cannot race to
	// spawn two workers.
	startMu sync.Mutex

	sinkMu sync.Mutex
	sink   Sink

	mu          sync.Mutex
	worker      *Worker
	stopGen     uint64        // bumped by Stop; a pending spawn aborts on mismatch
	spawnCancel chan struct{} // closed by Stop to cancel a pending settle delay
}

// NewSupervisor creates a supervisor. Bind a Sink before starting sessions.
func NewSupervisor(cfg config.BotConfig, launcher Launcher, log *logging.Logger) *Supervisor {
	return &Supervisor{
		cfg:      cfg,
		log:      log.Component("supervisor"),
		launcher: launcher,
	}
}

// WithMetrics attaches a metrics collector.
func (s *Supervisor) WithMetrics(m *monitoring.Metrics) *Supervisor {
	s.metrics = m
	return s
}

// SetSink binds the event consumer. Must be called before Start.
func (s *Supervisor) SetSink(sink Sink) {
	s.sinkMu.Lock()
	defer s.sinkMu.Unlock()
	s.sink = sink
}

// Running reports whether a live worker handle exists.
func (s *Supervisor) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.worker != nil && s.worker.Alive()
}

// Start spawns a worker for p. If a worker is already alive it is torn down
// first and the replacement spawn waits out the settle delay, so the old
// process releases audio devices and sockets before the new one grabs them.
// The returned error reflects only whether the spawn request could be
// issued; runtime failures arrive asynchronously as events.
//
// A Stop issued while the settle delay is pending cancels the spawn: no
// worker may start after a stop that logically precedes it.
func (s *Supervisor) Start(p Params) error {
	s.startMu.Lock()
	defer s.startMu.Unlock()

	s.mu.Lock()
	gen := s.stopGen
	var old *Worker
	if w := s.worker; w != nil && w.Alive() {
		old = w
	}
	s.worker = nil
	s.mu.Unlock()

	replaced := old != nil
	if replaced {
		s.log.Info("replacing live worker",
			zap.String("worker_id", old.ID),
			zap.String("persona_id", old.Params.PersonaID),
		)
		old.markUserStopped()
		s.terminate(old)
	}

	if replaced && s.cfg.SettleDelay > 0 {
		cancel := make(chan struct{})
		s.mu.Lock()
		if s.stopGen != gen {
			s.mu.Unlock()
			s.log.Debug("spawn cancelled before settle delay")
			return nil
		}
		s.spawnCancel = cancel
		s.mu.Unlock()

		select {
		case <-time.After(s.cfg.SettleDelay):
		case <-cancel:
			s.log.Debug("spawn cancelled during settle delay")
			return nil
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.spawnCancel = nil
	if s.stopGen != gen {
		s.log.Debug("spawn cancelled, stop arrived during settle delay")
		return nil
	}
	return s.spawnLocked(p)
}

// Stop tears down the current worker, if any. Idempotent: with no live
// worker it is a no-op that still succeeds. The handle reference clears
// immediately; Stop never blocks on OS-level death confirmation, so a
// misbehaving worker cannot wedge a subsequent Start.
func (s *Supervisor) Stop() error {
	s.mu.Lock()
	s.stopGen++
	if s.spawnCancel != nil {
		close(s.spawnCancel)
		s.spawnCancel = nil
	}
	w := s.worker
	s.worker = nil
	s.mu.Unlock()

	if w == nil || !w.Alive() {
		s.log.Debug("stop with no live worker")
		return nil
	}

	s.log.Info("stopping worker", zap.String("worker_id", w.ID))
	w.markUserStopped()
	s.terminate(w)
	return nil
}

// spawnLocked launches the worker process and wires its streams. Caller
// holds s.mu.
func (s *Supervisor) spawnLocked(p Params) error {
	w := newWorker(uuid.NewString(), p)

	spec := LaunchSpec{
		Command: s.cfg.Command,
		Args:    []string{s.cfg.Script, p.PersonaID, p.HumeConfigID, p.Environment},
		Dir:     s.cfg.WorkingDir,
		Env:     append(os.Environ(), "OJIN_PROXY_URL="+s.proxyURL(p.Environment)),
	}

	s.log.Info("spawning worker",
		zap.String("worker_id", w.ID),
		zap.String("persona_id", p.PersonaID),
		zap.String("environment", p.Environment),
	)

	proc, err := s.launcher.Launch(spec)
	if err != nil {
		s.log.Error("failed to spawn worker", zap.Error(err))
		s.emit(protocol.ErrorEvent(fmt.Sprintf("failed to start bot: %v", err)))
		return fmt.Errorf("failed to start bot process: %w", err)
	}

	w.setRunning(proc)
	s.worker = w
	if s.metrics != nil {
		s.metrics.WorkerSpawns.Inc()
	}

	go s.readOutput(w, proc)
	go s.drainStderr(w, proc)
	go s.monitorExit(w, proc)
	return nil
}

// proxyURL selects the realtime endpoint for the environment tag.
func (s *Supervisor) proxyURL(environment string) string {
	if environment == "staging" {
		return s.cfg.StagingURL
	}
	return s.cfg.ProductionURL
}

// readOutput forwards the worker's typed stdout stream. Non-protocol lines
// are logged and never reach the sink as typed events.
func (s *Supervisor) readOutput(w *Worker, proc Process) {
	defer close(w.stdoutDone)
	err := protocol.ReadLines(proc.Stdout(),
		func(ev protocol.Event) {
			if ev.Type == protocol.TypeEnded {
				w.noteEnded()
			}
			if s.metrics != nil {
				s.metrics.RecordEvent(string(ev.Type))
				if ev.Type == protocol.TypeVideoFrame {
					s.metrics.FramesForwarded.Inc()
				}
			}
			s.emit(ev)
		},
		func(line string) {
			s.log.Debug("bot stdout", zap.String("worker_id", w.ID), zap.String("line", line))
			if s.metrics != nil {
				s.metrics.DiagnosticLines.Inc()
			}
		},
	)
	if err != nil {
		s.log.Debug("stdout reader finished", zap.String("worker_id", w.ID), zap.Error(err))
	}
}

// drainStderr logs the worker's diagnostic stream and keeps a bounded tail
// for exit reporting. Runs until the pipe closes.
func (s *Supervisor) drainStderr(w *Worker, proc Process) {
	defer close(w.stderrDone)
	scanner := bufio.NewScanner(proc.Stderr())
	for scanner.Scan() {
		line := scanner.Text()
		w.appendStderr(line)
		s.log.Debug("bot stderr", zap.String("worker_id", w.ID), zap.String("line", line))
	}
}

// monitorExit is the sole waiter on the process. It clears the handle
// reference and synthesizes the terminal event when the worker never
// produced one itself. Exits that follow a user stop are absorbed.
//
// Both pipes must reach EOF before Wait: os/exec closes them on Wait, and a
// trailing line written just before exit must be forwarded, not lost. The
// drain also guarantees the synthesized ended never overtakes worker events
// still in the pipe, and that a worker-reported ended is seen before the
// sawEnded check.
func (s *Supervisor) monitorExit(w *Worker, proc Process) {
	<-w.stdoutDone
	<-w.stderrDone
	code, err := proc.Wait()
	if err != nil {
		s.log.Warn("wait failed", zap.String("worker_id", w.ID), zap.Error(err))
	}
	w.markExited(code)

	s.mu.Lock()
	if s.worker == w {
		s.worker = nil
	}
	s.mu.Unlock()

	if w.wasUserStopped() {
		s.log.Debug("worker exited after stop request",
			zap.String("worker_id", w.ID), zap.Int("code", code))
		if s.metrics != nil {
			s.metrics.WorkerExits.WithLabelValues("stopped").Inc()
		}
		return
	}

	class := "clean"
	if code != 0 {
		class = "abnormal"
		s.log.Warn("worker exited abnormally",
			zap.String("worker_id", w.ID),
			zap.Int("code", code),
			zap.String("stderr_tail", w.StderrTail()),
		)
	} else {
		s.log.Info("worker exited", zap.String("worker_id", w.ID))
	}
	if s.metrics != nil {
		s.metrics.WorkerExits.WithLabelValues(class).Inc()
	}

	if !w.sawEnded() {
		s.emit(protocol.Ended(code))
	}
}

// emit forwards an event to the bound sink, if any.
func (s *Supervisor) emit(ev protocol.Event) {
	s.sinkMu.Lock()
	sink := s.sink
	s.sinkMu.Unlock()
	if sink != nil {
		sink.Emit(ev)
	}
}
