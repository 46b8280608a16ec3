// Package session owns the UI-visible state of the current run: accumulated
// output lines, the debounce state machine that decides when the edited
// input should auto-run, and the history recall cursor. A Session is not
// safe for concurrent use; the control loop is its single owner.
package session

import (
	"fmt"
	"strings"
	"time"

	"pipewatch/runner"
)

// Phase is the debounce state. Running takes precedence over a pending
// edit: the user can keep typing while a run is in flight, and the edit
// becomes eligible once the run finishes.
type Phase int

const (
	// PhaseIdle means no run in flight and no unsubmitted edit.
	PhaseIdle Phase = iota
	// PhasePendingEdit means the input changed and the quiet period is
	// being waited out.
	PhasePendingEdit
	// PhaseRunning means a run is in flight.
	PhaseRunning
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhasePendingEdit:
		return "pending-edit"
	case PhaseRunning:
		return "running"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// DefaultQuietPeriod is how long the input must be stable before an
// auto-run fires.
const DefaultQuietPeriod = 250 * time.Millisecond

// DefaultWindowLines bounds how many lines are retained per stream.
const DefaultWindowLines = 1000

// Session tracks one run at a time. Begin resets it for a new run; Finish
// finalizes it. Between those, AppendOutput accumulates streamed text.
type Session struct {
	quietPeriod time.Duration
	windowLines int

	running       bool
	editedAt      time.Time // zero means no pending edit
	lastSubmitted string
	appendHistory bool

	runID         string
	stdoutLines   []string
	stderrLines   []string
	stdoutPartial string
	stderrPartial string
	sawStdout     bool
	sawStderr     bool
	status        string

	recallCursor int // index into history entries, -1 when not navigating
	recallDraft  string
}

// New creates a Session. Non-positive arguments select the defaults.
func New(quietPeriod time.Duration, windowLines int) *Session {
	if quietPeriod <= 0 {
		quietPeriod = DefaultQuietPeriod
	}
	if windowLines <= 0 {
		windowLines = DefaultWindowLines
	}
	return &Session{
		quietPeriod:  quietPeriod,
		windowLines:  windowLines,
		recallCursor: -1,
	}
}

// Phase reports the current debounce state.
func (s *Session) Phase() Phase {
	switch {
	case s.running:
		return PhaseRunning
	case !s.editedAt.IsZero():
		return PhasePendingEdit
	default:
		return PhaseIdle
	}
}

// Running reports whether a run is in flight.
func (s *Session) Running() bool {
	return s.running
}

// Status is the one-line run status for the UI ("running", "exit 0", ...).
func (s *Session) Status() string {
	return s.status
}

// MarkEdited records that the input changed. Any edit refreshes the quiet
// period and abandons an in-progress history recall.
func (s *Session) MarkEdited(now time.Time) {
	s.editedAt = now
	s.recallCursor = -1
	s.recallDraft = ""
}

// ShouldAutoRun reports whether input qualifies for automatic submission:
// no run in flight, an edit is pending, the quiet period has elapsed, the
// trimmed input is non-empty, and the input differs from the last
// submitted command. String equality governs the duplicate check, so an
// input edited and then reverted is still suppressed.
func (s *Session) ShouldAutoRun(input string, now time.Time) bool {
	if s.running || s.editedAt.IsZero() {
		return false
	}
	if now.Sub(s.editedAt) < s.quietPeriod {
		return false
	}
	if strings.TrimSpace(input) == "" {
		return false
	}
	return input != s.lastSubmitted
}

// PrepareRun commits to submitting input: it clears the pending edit,
// records the command for duplicate suppression, and arms the history
// append for manual submissions only. Blank input is rejected.
func (s *Session) PrepareRun(input string, manual bool) bool {
	if strings.TrimSpace(input) == "" {
		return false
	}
	s.editedAt = time.Time{}
	s.lastSubmitted = input
	s.appendHistory = manual
	s.recallCursor = -1
	s.recallDraft = ""
	return true
}

// Begin resets output state for a new run.
func (s *Session) Begin(runID string) {
	s.runID = runID
	s.stdoutLines = nil
	s.stderrLines = nil
	s.stdoutPartial = ""
	s.stderrPartial = ""
	s.sawStdout = false
	s.sawStderr = false
	s.running = true
	s.status = "running"
}

// AppendOutput folds a streamed chunk into the per-stream line window.
// Chunks from a run other than the current one are dropped.
func (s *Session) AppendOutput(runID string, stream runner.Stream, text string) {
	if runID != s.runID {
		return
	}
	switch stream {
	case runner.StreamStdout:
		s.sawStdout = true
		s.stdoutPartial = s.appendLines(&s.stdoutLines, s.stdoutPartial+text)
		s.stdoutLines = s.trimWindow(s.stdoutLines)
	case runner.StreamStderr:
		s.sawStderr = true
		s.stderrPartial = s.appendLines(&s.stderrLines, s.stderrPartial+text)
		s.stderrLines = s.trimWindow(s.stderrLines)
	}
}

// appendLines splits buf on newlines into lines, returning the trailing
// unterminated remainder. A \r left immediately before a newline is
// stripped.
func (s *Session) appendLines(lines *[]string, buf string) string {
	for {
		idx := strings.IndexByte(buf, '\n')
		if idx < 0 {
			return buf
		}
		line := strings.TrimSuffix(buf[:idx], "\r")
		*lines = append(*lines, line)
		buf = buf[idx+1:]
	}
}

// trimWindow drops oldest lines beyond the retention bound.
func (s *Session) trimWindow(lines []string) []string {
	if len(lines) > s.windowLines {
		return lines[len(lines)-s.windowLines:]
	}
	return lines
}

// Finish finalizes the run: trailing partial lines become real lines, and
// a stream that never delivered a chunk (the process exited inside one
// aggregation window) is backfilled from the Result's full capture. It
// reports whether the completed command should be appended to history.
func (s *Session) Finish(res runner.Result) bool {
	if s.stdoutPartial != "" {
		s.stdoutLines = append(s.stdoutLines, strings.TrimSuffix(s.stdoutPartial, "\r"))
		s.stdoutPartial = ""
	}
	if s.stderrPartial != "" {
		s.stderrLines = append(s.stderrLines, strings.TrimSuffix(s.stderrPartial, "\r"))
		s.stderrPartial = ""
	}

	if !s.sawStdout && res.Stdout != "" {
		s.stdoutLines = splitCapture(res.Stdout)
	}
	if !s.sawStderr && res.Stderr != "" {
		s.stderrLines = splitCapture(res.Stderr)
	}
	s.stdoutLines = s.trimWindow(s.stdoutLines)
	s.stderrLines = s.trimWindow(s.stderrLines)

	if res.ExitCode == runner.SpawnFailureExitCode {
		s.status = "failed"
	} else {
		s.status = fmt.Sprintf("exit %d", res.ExitCode)
	}
	s.running = false

	appendHistory := s.appendHistory
	s.appendHistory = false
	return appendHistory
}

// splitCapture turns a full captured stream into lines, dropping the
// empty tail a trailing newline would otherwise produce.
func splitCapture(capture string) []string {
	capture = strings.TrimSuffix(capture, "\n")
	lines := strings.Split(capture, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}

// StdoutView returns the last n stdout lines, the live partial line
// included as the final element.
func (s *Session) StdoutView(n int) []string {
	return tailView(s.stdoutLines, s.stdoutPartial, n)
}

// StderrView returns the last n stderr lines, partial included.
func (s *Session) StderrView(n int) []string {
	return tailView(s.stderrLines, s.stderrPartial, n)
}

func tailView(lines []string, partial string, n int) []string {
	if n <= 0 {
		return nil
	}
	view := lines
	if partial != "" {
		view = append(append([]string{}, lines...), partial)
	}
	if len(view) > n {
		view = view[len(view)-n:]
	}
	out := make([]string, len(view))
	copy(out, view)
	return out
}

// RecallPrev steps backward through history entries (oldest first in
// entries, so backward means toward index 0). Entering navigation stashes
// the current draft so RecallNext can restore it. Recall counts as an
// edit and resets the duplicate suppression, so recalling the command
// that just ran re-runs it after the quiet period.
func (s *Session) RecallPrev(entries []string, current string, now time.Time) (string, bool) {
	if len(entries) == 0 {
		return "", false
	}
	if s.recallCursor == -1 {
		s.recallDraft = current
		s.recallCursor = len(entries)
	}
	if s.recallCursor == 0 {
		return "", false
	}
	s.recallCursor--
	s.editedAt = now
	s.lastSubmitted = ""
	return entries[s.recallCursor], true
}

// RecallNext steps forward; stepping past the newest entry leaves
// navigation and restores the stashed draft. Like RecallPrev, it counts
// as an edit and resets the duplicate suppression.
func (s *Session) RecallNext(entries []string, now time.Time) (string, bool) {
	if s.recallCursor == -1 {
		return "", false
	}
	s.recallCursor++
	s.editedAt = now
	s.lastSubmitted = ""
	if s.recallCursor >= len(entries) {
		s.recallCursor = -1
		draft := s.recallDraft
		s.recallDraft = ""
		return draft, true
	}
	return entries[s.recallCursor], true
}
