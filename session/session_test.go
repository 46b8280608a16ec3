package session

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"pipewatch/runner"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestShouldAutoRun(t *testing.T) {
	quiet := 250 * time.Millisecond

	tests := []struct {
		name  string
		setup func(s *Session)
		input string
		now   time.Time
		want  bool
	}{
		{
			name:  "no edit pending",
			setup: func(s *Session) {},
			input: "ls",
			now:   t0.Add(time.Second),
			want:  false,
		},
		{
			name: "quiet period not elapsed",
			setup: func(s *Session) {
				s.MarkEdited(t0)
			},
			input: "ls",
			now:   t0.Add(100 * time.Millisecond),
			want:  false,
		},
		{
			name: "quiet period elapsed",
			setup: func(s *Session) {
				s.MarkEdited(t0)
			},
			input: "ls",
			now:   t0.Add(quiet),
			want:  true,
		},
		{
			name: "blank input",
			setup: func(s *Session) {
				s.MarkEdited(t0)
			},
			input: "   ",
			now:   t0.Add(time.Second),
			want:  false,
		},
		{
			name: "run in flight",
			setup: func(s *Session) {
				s.MarkEdited(t0)
				s.Begin("run-1")
			},
			input: "ls",
			now:   t0.Add(time.Second),
			want:  false,
		},
		{
			name: "unchanged since last submission",
			setup: func(s *Session) {
				s.PrepareRun("ls", false)
				s.MarkEdited(t0)
			},
			input: "ls",
			now:   t0.Add(time.Second),
			want:  false,
		},
		{
			name: "changed since last submission",
			setup: func(s *Session) {
				s.PrepareRun("ls", false)
				s.MarkEdited(t0)
			},
			input: "ls -la",
			now:   t0.Add(time.Second),
			want:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(quiet, 100)
			tt.setup(s)
			if got := s.ShouldAutoRun(tt.input, tt.now); got != tt.want {
				t.Errorf("ShouldAutoRun(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestShouldAutoRun_ChangedThenReverted(t *testing.T) {
	s := New(250*time.Millisecond, 100)

	s.PrepareRun("ls", false)
	// Edit away and back; string equality governs, not edit count.
	s.MarkEdited(t0)
	s.MarkEdited(t0.Add(50 * time.Millisecond))

	if s.ShouldAutoRun("ls", t0.Add(time.Second)) {
		t.Error("Reverted input should be suppressed as unchanged")
	}
	if !s.ShouldAutoRun("ls x", t0.Add(time.Second)) {
		t.Error("Different input should qualify")
	}
}

func TestPhase(t *testing.T) {
	s := New(0, 0)

	if got := s.Phase(); got != PhaseIdle {
		t.Errorf("Phase = %v, want idle", got)
	}

	s.MarkEdited(t0)
	if got := s.Phase(); got != PhasePendingEdit {
		t.Errorf("Phase = %v, want pending-edit", got)
	}

	s.PrepareRun("ls", false)
	s.Begin("run-1")
	if got := s.Phase(); got != PhaseRunning {
		t.Errorf("Phase = %v, want running", got)
	}

	// An edit during a run waits behind the run
	s.MarkEdited(t0.Add(time.Second))
	if got := s.Phase(); got != PhaseRunning {
		t.Errorf("Phase during run with pending edit = %v, want running", got)
	}

	s.Finish(runner.Result{RunID: "run-1", ExitCode: 0})
	if got := s.Phase(); got != PhasePendingEdit {
		t.Errorf("Phase after finish = %v, want pending-edit", got)
	}
}

func TestPrepareRun(t *testing.T) {
	s := New(0, 0)

	for _, blank := range []string{"", "  ", "\t"} {
		if s.PrepareRun(blank, true) {
			t.Errorf("PrepareRun(%q) accepted, want rejection", blank)
		}
	}

	s.MarkEdited(t0)
	if !s.PrepareRun("echo hi", false) {
		t.Fatal("PrepareRun rejected a valid command")
	}
	if s.Phase() != PhaseIdle {
		t.Error("PrepareRun should clear the pending edit")
	}
}

func TestAppendOutput_SplitsChunksIntoLines(t *testing.T) {
	s := New(0, 0)
	s.Begin("run-1")

	// Partial lines carry across chunk boundaries
	s.AppendOutput("run-1", runner.StreamStdout, "hel")
	s.AppendOutput("run-1", runner.StreamStdout, "lo\nwor")
	s.AppendOutput("run-1", runner.StreamStdout, "ld\ntail")

	got := s.StdoutView(10)
	want := []string{"hello", "world", "tail"}
	if len(got) != len(want) {
		t.Fatalf("StdoutView = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("StdoutView[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestAppendOutput_StripsCRBeforeNewline(t *testing.T) {
	s := New(0, 0)
	s.Begin("run-1")

	s.AppendOutput("run-1", runner.StreamStdout, "dos line\r\n")

	got := s.StdoutView(10)
	if len(got) != 1 || got[0] != "dos line" {
		t.Errorf("StdoutView = %q, want [\"dos line\"]", got)
	}
}

func TestAppendOutput_DropsStaleRun(t *testing.T) {
	s := New(0, 0)
	s.Begin("run-2")

	s.AppendOutput("run-1", runner.StreamStdout, "stale\n")
	s.AppendOutput("run-2", runner.StreamStdout, "fresh\n")

	got := s.StdoutView(10)
	if len(got) != 1 || got[0] != "fresh" {
		t.Errorf("StdoutView = %q, want [\"fresh\"]", got)
	}
}

func TestAppendOutput_BoundsWindow(t *testing.T) {
	s := New(0, 3)
	s.Begin("run-1")

	for i := 0; i < 10; i++ {
		s.AppendOutput("run-1", runner.StreamStdout, fmt.Sprintf("line%d\n", i))
	}

	got := s.StdoutView(100)
	want := []string{"line7", "line8", "line9"}
	if len(got) != len(want) {
		t.Fatalf("StdoutView = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("StdoutView[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestFinish_FlushesPartials(t *testing.T) {
	s := New(0, 0)
	s.Begin("run-1")
	s.AppendOutput("run-1", runner.StreamStdout, "no newline")
	s.AppendOutput("run-1", runner.StreamStderr, "warn")

	s.Finish(runner.Result{RunID: "run-1", ExitCode: 0})

	if got := s.StdoutView(10); len(got) != 1 || got[0] != "no newline" {
		t.Errorf("StdoutView = %q", got)
	}
	if got := s.StderrView(10); len(got) != 1 || got[0] != "warn" {
		t.Errorf("StderrView = %q", got)
	}
	if s.Status() != "exit 0" {
		t.Errorf("Status = %q, want \"exit 0\"", s.Status())
	}
	if s.Running() {
		t.Error("Running = true after Finish")
	}
}

func TestFinish_BackfillsFromCaptures(t *testing.T) {
	// A fast process can exit inside one aggregation window, before any
	// chunk event reaches the UI. The Result captures fill the gap.
	s := New(0, 0)
	s.Begin("run-1")

	s.Finish(runner.Result{
		RunID:    "run-1",
		ExitCode: 0,
		Stdout:   "a\nb\n",
		Stderr:   "oops\n",
	})

	if got := s.StdoutView(10); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("StdoutView = %q, want [a b]", got)
	}
	if got := s.StderrView(10); len(got) != 1 || got[0] != "oops" {
		t.Errorf("StderrView = %q, want [oops]", got)
	}
}

func TestFinish_ChunksWinOverCaptures(t *testing.T) {
	s := New(0, 0)
	s.Begin("run-1")
	s.AppendOutput("run-1", runner.StreamStdout, "streamed\n")

	s.Finish(runner.Result{RunID: "run-1", ExitCode: 0, Stdout: "streamed\n"})

	if got := s.StdoutView(10); len(got) != 1 || got[0] != "streamed" {
		t.Errorf("StdoutView = %q, want [streamed] without duplication", got)
	}
}

func TestFinish_HistoryFlagManualOnly(t *testing.T) {
	s := New(0, 0)

	s.PrepareRun("echo hi", false)
	s.Begin("run-1")
	if s.Finish(runner.Result{RunID: "run-1"}) {
		t.Error("Auto run should not request a history append")
	}

	s.PrepareRun("echo hi", true)
	s.Begin("run-2")
	if !s.Finish(runner.Result{RunID: "run-2"}) {
		t.Error("Manual run should request a history append")
	}

	// The flag is consumed, not sticky
	s.PrepareRun("echo again", false)
	s.Begin("run-3")
	if s.Finish(runner.Result{RunID: "run-3"}) {
		t.Error("History flag leaked into the next run")
	}
}

func TestFinish_SpawnFailureStatus(t *testing.T) {
	s := New(0, 0)
	s.Begin("run-1")

	s.Finish(runner.Result{
		RunID:    "run-1",
		ExitCode: runner.SpawnFailureExitCode,
		Stderr:   "failed to spawn: no such file\n",
	})

	if s.Status() != "failed" {
		t.Errorf("Status = %q, want \"failed\"", s.Status())
	}
	if got := s.StderrView(10); len(got) != 1 || !strings.HasPrefix(got[0], "failed to spawn") {
		t.Errorf("StderrView = %q", got)
	}
}

func TestViews_TailIncludesPartial(t *testing.T) {
	s := New(0, 0)
	s.Begin("run-1")
	s.AppendOutput("run-1", runner.StreamStdout, "a\nb\nc\npart")

	got := s.StdoutView(2)
	if len(got) != 2 || got[0] != "c" || got[1] != "part" {
		t.Errorf("StdoutView(2) = %q, want [c part]", got)
	}

	if got := s.StdoutView(0); len(got) != 0 {
		t.Errorf("StdoutView(0) = %q, want empty", got)
	}
}

func TestRecall(t *testing.T) {
	s := New(0, 0)
	entries := []string{"ls", "pwd", "date"}

	// Backward from the draft: newest first
	got, ok := s.RecallPrev(entries, "draft in progress", t0)
	if !ok || got != "date" {
		t.Fatalf("RecallPrev = %q, %v, want \"date\"", got, ok)
	}
	got, _ = s.RecallPrev(entries, got, t0)
	if got != "pwd" {
		t.Errorf("RecallPrev = %q, want \"pwd\"", got)
	}
	got, _ = s.RecallPrev(entries, got, t0)
	if got != "ls" {
		t.Errorf("RecallPrev = %q, want \"ls\"", got)
	}

	// Pinned at the oldest entry
	if _, ok := s.RecallPrev(entries, got, t0); ok {
		t.Error("RecallPrev past the oldest entry should report false")
	}

	// Forward again, ending back at the stashed draft
	got, _ = s.RecallNext(entries, t0)
	if got != "pwd" {
		t.Errorf("RecallNext = %q, want \"pwd\"", got)
	}
	got, _ = s.RecallNext(entries, t0)
	if got != "date" {
		t.Errorf("RecallNext = %q, want \"date\"", got)
	}
	got, ok = s.RecallNext(entries, t0)
	if !ok || got != "draft in progress" {
		t.Errorf("RecallNext = %q, %v, want the stashed draft", got, ok)
	}

	// Not navigating anymore
	if _, ok := s.RecallNext(entries, t0); ok {
		t.Error("RecallNext while idle should report false")
	}
}

func TestRecall_EditAbandonsNavigation(t *testing.T) {
	s := New(0, 0)
	entries := []string{"ls", "pwd"}

	s.RecallPrev(entries, "draft", t0)
	s.MarkEdited(t0.Add(time.Millisecond))

	// Navigation restarts from the end after an edit
	got, ok := s.RecallPrev(entries, "pwd edited", t0.Add(time.Second))
	if !ok || got != "pwd" {
		t.Errorf("RecallPrev after edit = %q, %v, want \"pwd\"", got, ok)
	}
}

func TestRecall_CountsAsEdit(t *testing.T) {
	s := New(250*time.Millisecond, 0)
	entries := []string{"echo hi"}

	got, _ := s.RecallPrev(entries, "", t0)
	if s.Phase() != PhasePendingEdit {
		t.Errorf("Phase after recall = %v, want pending-edit", s.Phase())
	}
	if !s.ShouldAutoRun(got, t0.Add(time.Second)) {
		t.Error("Recalled command should qualify for auto-run after the quiet period")
	}
}

func TestRecall_ResetsDuplicateSuppression(t *testing.T) {
	s := New(250*time.Millisecond, 0)
	entries := []string{"echo hi"}

	// The command just ran; unchanged input is suppressed
	s.PrepareRun("echo hi", true)
	if s.ShouldAutoRun("echo hi", t0.Add(time.Second)) {
		t.Fatal("Unedited input should be suppressed")
	}

	// Recalling that same command must re-arm it
	got, ok := s.RecallPrev(entries, "", t0)
	if !ok || got != "echo hi" {
		t.Fatalf("RecallPrev = %q, %v, want \"echo hi\"", got, ok)
	}
	if !s.ShouldAutoRun(got, t0.Add(time.Second)) {
		t.Error("Recalled command should auto-run after the quiet period even when it equals the last run")
	}
}

func TestRecallNext_ResetsDuplicateSuppression(t *testing.T) {
	s := New(250*time.Millisecond, 0)
	entries := []string{"ls", "echo hi"}

	s.PrepareRun("echo hi", true)
	s.RecallPrev(entries, "", t0)
	s.RecallPrev(entries, "", t0)

	got, ok := s.RecallNext(entries, t0)
	if !ok || got != "echo hi" {
		t.Fatalf("RecallNext = %q, %v, want \"echo hi\"", got, ok)
	}
	if !s.ShouldAutoRun(got, t0.Add(time.Second)) {
		t.Error("Forward recall should also reset the duplicate suppression")
	}
}

func TestRecall_EmptyHistory(t *testing.T) {
	s := New(0, 0)
	if _, ok := s.RecallPrev(nil, "draft", t0); ok {
		t.Error("RecallPrev with no history should report false")
	}
}
