package submission

import (
	"github.com/alkime/drumtone/internal/clip"
	"github.com/alkime/drumtone/internal/prediction"
)

// Kind tags the submission state variant.
type Kind int

const (
	Idle Kind = iota
	Pending
	Succeeded
	Failed
)

func (k Kind) String() string {
	switch k {
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "invalid"
	}
}

// ErrorInfo is the user-facing failure of a submission.
type ErrorInfo struct {
	Message string
	Err     error
}

// State is a full snapshot of the controller. Only the accessor matching Kind
// carries data: a Pending state never holds a result.
type State struct {
	kind   Kind
	file   clip.File
	result prediction.Result
	failed ErrorInfo
	seq    uint64
}

func (s State) Kind() Kind { return s.kind }

// File is the clip the state refers to. Zero when Idle.
func (s State) File() clip.File { return s.file }

// Seq identifies the submission that produced the state.
func (s State) Seq() uint64 { return s.seq }

// Result returns the prediction when Succeeded.
func (s State) Result() (prediction.Result, bool) {
	return s.result, s.kind == Succeeded
}

// Error returns the failure when Failed.
func (s State) Error() (ErrorInfo, bool) {
	return s.failed, s.kind == Failed
}

// IsPending reports whether a request is in flight.
func (s State) IsPending() bool { return s.kind == Pending }

func idle(seq uint64) State {
	return State{kind: Idle, seq: seq}
}

func pending(seq uint64, file clip.File) State {
	return State{kind: Pending, file: file, seq: seq}
}

func succeeded(seq uint64, file clip.File, r prediction.Result) State {
	return State{kind: Succeeded, file: file, result: r, seq: seq}
}

func failed(seq uint64, file clip.File, info ErrorInfo) State {
	return State{kind: Failed, file: file, failed: info, seq: seq}
}
