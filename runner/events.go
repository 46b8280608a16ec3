package runner

// Stream identifies which output stream a chunk came from.
// Using a typed enum instead of raw strings provides compile-time safety
// at the worker/UI boundary.
type Stream int

const (
	// StreamStdout is the child process's standard output.
	StreamStdout Stream = iota

	// StreamStderr is the child process's standard error.
	StreamStderr
)

// String returns a human-readable name for the stream.
func (s Stream) String() string {
	switch s {
	case StreamStdout:
		return "stdout"
	case StreamStderr:
		return "stderr"
	default:
		return "unknown"
	}
}

// SpawnFailureExitCode is the sentinel exit code used when the process
// could not be spawned or no real exit code is available (killed by a
// signal, interpreter missing, etc.).
const SpawnFailureExitCode = -1

// Result is the terminal outcome of one executed command.
// Exactly one Result is produced per run, at process termination or
// spawn failure.
type Result struct {
	RunID    string
	Command  string
	ExitCode int
	Stdout   string
	Stderr   string
}

// Event is the tagged message type at the worker/UI boundary.
// The variants are RunStarted, RunOutput, and RunFinished; the sealed
// marker method keeps the set closed so consumers can switch exhaustively.
type Event interface {
	isEvent()
}

// RunStarted announces that a run has begun executing.
// It always precedes all of the run's RunOutput events.
type RunStarted struct {
	RunID   string
	Command string
}

// RunOutput carries a batch of output text from one stream.
// Text is line-bounded but may end mid-line if the aggregation timer
// fired before a newline arrived.
type RunOutput struct {
	RunID  string
	Stream Stream
	Text   string
}

// RunFinished carries the final Result of a run.
// It always follows all of the run's RunOutput events.
type RunFinished struct {
	Result Result
}

func (RunStarted) isEvent()  {}
func (RunOutput) isEvent()   {}
func (RunFinished) isEvent() {}
