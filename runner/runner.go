// Package runner is pipewatch's concurrent execution engine.
//
// A single long-lived Worker consumes run requests one at a time. Each run
// spawns the host command interpreter with the raw command string, drains
// stdout and stderr concurrently through line-chunking stream readers, and
// batches output into bounded-frequency events via a time-windowed
// aggregator. The UI layer consumes the resulting Event stream: RunStarted,
// then zero or more RunOutput batches, then RunFinished — in that order,
// always.
//
// There is no cancellation: once submitted, a run executes to completion.
// The single-worker discipline is the only throttle on concurrent work.
package runner

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"pipewatch/logger"
)

// requestBuffer bounds the submission queue. The UI's duplicate
// suppression keeps the real depth at one or two outstanding requests.
const requestBuffer = 16

// eventBuffer bounds the outbound event channel. The aggregator already
// caps event frequency, so this only decouples the UI's poll cadence.
const eventBuffer = 64

// Options configures a Worker.
type Options struct {
	// Shell overrides the host command interpreter. Empty selects the
	// platform default (sh -c on POSIX, cmd /C on Windows).
	Shell string

	// TickInterval bounds how often batched output events are emitted.
	// Zero selects the 250ms default.
	TickInterval time.Duration
}

// DefaultTickInterval is the aggregation window used when Options leaves
// TickInterval unset.
const DefaultTickInterval = 250 * time.Millisecond

type request struct {
	runID   string
	command string
}

// Worker executes run requests sequentially, in strict arrival order,
// emitting lifecycle and output events on its Events channel. Requests are
// never executed concurrently with each other.
type Worker struct {
	shell    string
	interval time.Duration

	requests chan request
	events   chan Event
	quit     chan struct{}
	done     chan struct{}
}

// NewWorker creates a Worker. Call Start to begin consuming requests.
func NewWorker(opts Options) *Worker {
	interval := opts.TickInterval
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	return &Worker{
		shell:    opts.Shell,
		interval: interval,
		requests: make(chan request, requestBuffer),
		events:   make(chan Event, eventBuffer),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the worker loop goroutine.
func (w *Worker) Start() {
	go w.loop()
}

// Events returns the channel carrying this worker's lifecycle and output
// events. The channel is never closed while the worker runs.
func (w *Worker) Events() <-chan Event {
	return w.events
}

// Submit enqueues a command for execution and returns its run ID.
// Commands that are empty after trimming are rejected. Submit never
// blocks indefinitely: if the worker has been stopped it reports failure.
func (w *Worker) Submit(command string) (string, bool) {
	if strings.TrimSpace(command) == "" {
		return "", false
	}

	id := uuid.NewString()
	select {
	case w.requests <- request{runID: id, command: command}:
		return id, true
	case <-w.quit:
		return "", false
	}
}

// Stop shuts the worker down and waits for the loop to exit. An in-flight
// process still runs to completion (there is no cancellation), but its
// events are discarded.
func (w *Worker) Stop() {
	close(w.quit)
	<-w.done
}

// loop is the sequential consumer: one run at a time, arrival order.
func (w *Worker) loop() {
	defer close(w.done)

	log := logger.WithComponent("runner")
	log.Debug("worker started")

	for {
		select {
		case <-w.quit:
			log.Debug("worker stopped")
			return
		case req := <-w.requests:
			w.runOne(req)
		}
	}
}

// runOne drives one executor cycle to completion: Started event, execute
// with readers and aggregator wired together, Finished event with the
// Result. The executor only returns after the process has exited, both
// readers have joined, and the aggregator has drained.
func (w *Worker) runOne(req request) {
	log := logger.WithRun(req.runID)
	log.Info("run started", "command", req.command)

	if !w.emit(RunStarted{RunID: req.runID, Command: req.command}) {
		return
	}

	res := execute(req.runID, req.command, w.shell, w.interval, w.emit)

	log.Info("run finished", "exitCode", res.ExitCode)
	w.emit(RunFinished{Result: res})
}

// emit delivers an event to the UI, reporting false once the worker has
// been stopped (consumer no longer interested).
func (w *Worker) emit(ev Event) bool {
	select {
	case w.events <- ev:
		return true
	case <-w.quit:
		return false
	}
}
