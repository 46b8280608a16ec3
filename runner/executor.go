package runner

import (
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"pipewatch/logger"
)

// chunkBuffer is the per-stream chunk channel capacity. The aggregator
// always drains to end-of-stream, so this only smooths bursts.
const chunkBuffer = 64

// shellCommand builds the platform interpreter invocation for a raw
// command string. The string is passed through unmodified and unvalidated
// so it may contain pipes, redirects, and any other shell syntax.
func shellCommand(shell, command string) *exec.Cmd {
	if shell != "" {
		return exec.Command(shell, "-c", command)
	}
	if runtime.GOOS == "windows" {
		return exec.Command("cmd", "/C", command)
	}
	return exec.Command("sh", "-c", command)
}

// execute runs one command to completion, streaming batched output events
// through emit. It always produces exactly one Result: spawn failures
// yield the sentinel exit code with the error text in the Stderr field.
//
// Both pipes are drained concurrently while waiting for exit. OS pipe
// buffers are finite: reading only one stream while the process blocks
// writing to the other would deadlock, so the two readers must run in
// parallel for the full lifetime of the process.
func execute(runID, command, shell string, interval time.Duration, emit func(Event) bool) Result {
	log := logger.WithRun(runID)

	cmd := shellCommand(shell, command)

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return spawnFailure(runID, command, err)
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return spawnFailure(runID, command, err)
	}

	if err := cmd.Start(); err != nil {
		log.Warn("spawn failed", "command", command, "error", err)
		return spawnFailure(runID, command, err)
	}

	log.Debug("process started", "pid", cmd.Process.Pid)

	var stdoutLog, stderrLog streamLog
	stdoutCh := make(chan string, chunkBuffer)
	stderrCh := make(chan string, chunkBuffer)

	var readers sync.WaitGroup
	readers.Add(2)
	go func() {
		defer readers.Done()
		readStream(stdoutPipe, &stdoutLog, stdoutCh)
	}()
	go func() {
		defer readers.Done()
		readStream(stderrPipe, &stderrLog, stderrCh)
	}()

	aggDone := make(chan struct{})
	go func() {
		defer close(aggDone)
		aggregate(runID, stdoutCh, stderrCh, interval, emit)
	}()

	// Pipes must be fully drained before Wait closes them.
	readers.Wait()
	waitErr := cmd.Wait()
	<-aggDone

	exitCode := exitCodeFrom(waitErr)
	log.Debug("process exited", "exitCode", exitCode)

	return Result{
		RunID:    runID,
		Command:  command,
		ExitCode: exitCode,
		Stdout:   stdoutLog.String(),
		Stderr:   stderrLog.String(),
	}
}

// spawnFailure builds the Result for a command that never ran.
func spawnFailure(runID, command string, err error) Result {
	return Result{
		RunID:    runID,
		Command:  command,
		ExitCode: SpawnFailureExitCode,
		Stderr:   fmt.Sprintf("failed to spawn: %v\n", err),
	}
}

// exitCodeFrom resolves a Wait error into a platform exit code, or the
// sentinel when the process was killed by a signal or no code is available.
func exitCodeFrom(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() >= 0 {
		return exitErr.ExitCode()
	}
	return SpawnFailureExitCode
}
