package runner

import (
	"strings"
	"time"
)

// aggregate merges chunks from the two stream reader channels into batched
// UI events: at most one stdout and one stderr event per tick. Chunk
// arrival only buffers; the timer triggers delivery. A closed channel is
// marked and the loop continues so pending text still goes out on the next
// tick. The aggregator terminates once both streams are closed and both
// accumulators are empty, with one final unconditional flush covering a
// last chunk that raced the final tick.
//
// emit reports whether the receiver is still interested; when it returns
// false the aggregator stops emitting and drains the readers so they can
// finish, then returns.
func aggregate(runID string, stdoutCh, stderrCh <-chan string, interval time.Duration, emit func(Event) bool) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var pendingOut, pendingErr strings.Builder

	for {
		select {
		case chunk, ok := <-stdoutCh:
			if !ok {
				stdoutCh = nil
				if stderrCh == nil && pendingOut.Len() == 0 && pendingErr.Len() == 0 {
					return
				}
				continue
			}
			pendingOut.WriteString(chunk)
			continue
		case chunk, ok := <-stderrCh:
			if !ok {
				stderrCh = nil
				if stdoutCh == nil && pendingOut.Len() == 0 && pendingErr.Len() == 0 {
					return
				}
				continue
			}
			pendingErr.WriteString(chunk)
			continue
		case <-ticker.C:
		}

		if !flushPending(runID, StreamStdout, &pendingOut, emit) ||
			!flushPending(runID, StreamStderr, &pendingErr, emit) {
			// Receiver gone — keep the readers from blocking on a full
			// channel, then exit quietly.
			discard(stdoutCh)
			discard(stderrCh)
			return
		}

		if stdoutCh == nil && stderrCh == nil {
			break
		}
	}

	// Covers a chunk that arrived after the last tick already flushed.
	flushPending(runID, StreamStdout, &pendingOut, emit)
	flushPending(runID, StreamStderr, &pendingErr, emit)
}

// flushPending emits one event for the accumulator if it holds any text,
// then clears it. Returns false if the receiver is gone.
func flushPending(runID string, stream Stream, pending *strings.Builder, emit func(Event) bool) bool {
	if pending.Len() == 0 {
		return true
	}
	text := pending.String()
	pending.Reset()
	return emit(RunOutput{RunID: runID, Stream: stream, Text: text})
}

// discard consumes a channel to end-of-stream so the producing reader can
// exit. A nil channel (already closed) is a no-op.
func discard(ch <-chan string) {
	if ch == nil {
		return
	}
	for range ch {
	}
}
