package runner

import (
	"bufio"
	"io"
	"strings"
	"sync"
)

// streamLog accumulates the full-session output of one stream.
// It is the only state shared between goroutines; everything else is
// handed off by message passing.
type streamLog struct {
	mu  sync.Mutex
	buf strings.Builder
}

// Append adds a chunk to the log.
func (l *streamLog) Append(chunk string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buf.WriteString(chunk)
}

// String returns the accumulated content.
func (l *streamLog) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.buf.String()
}

// readStream consumes one pipe until end-of-stream, chunking on newline
// boundaries. Each chunk is appended to the full-session log and forwarded
// on ch. A CRLF line ending is normalized to a bare LF; content after the
// final newline is flushed as a last chunk. Read errors are treated as
// end-of-stream — a truncated stream is preferable to a crashed session.
// The channel is closed on return; the caller owns joining the goroutine.
func readStream(r io.Reader, log *streamLog, ch chan<- string) {
	defer close(ch)

	reader := bufio.NewReader(r)
	for {
		chunk, err := reader.ReadString('\n')
		if chunk != "" {
			if strings.HasSuffix(chunk, "\r\n") {
				chunk = chunk[:len(chunk)-2] + "\n"
			}
			log.Append(chunk)
			ch <- chunk
		}
		if err != nil {
			return
		}
	}
}
