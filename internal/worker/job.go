package worker

import (
	"context"
	"errors"
	"time"

	"github.com/voxlabs/interviewd/internal/types"
)

var errEmptyResponse = errors.New("model returned an empty response")

// JobKind tags the work unit. Only one kind exists today; the tag keeps the
// queue protocol closed.
type JobKind string

const JobRespond JobKind = "respond"

// Job is the read-only snapshot handed to a worker. It carries copies of
// session fields, never a live session reference, so workers share no
// mutable state with the gateway.
type Job struct {
	SessionID       string
	Kind            JobKind
	Turn            int // session turnIndex at submission; stale-result marker
	Audio           []byte
	Position        string
	Difficulty      float64
	InterviewerType string
	History         []types.Utterance
	SubmittedAt     time.Time
}

type Status string

const (
	StatusProgress Status = "progress"
	StatusSuccess  Status = "success"
	StatusError    Status = "error"
)

// Result is what a worker posts back. Turn echoes the job marker so the
// drain can discard anything that arrives after the watchdog already
// recovered the session.
type Result struct {
	SessionID  string
	Turn       int
	Status     Status
	Stage      string // set on progress results
	Transcript string
	Response   string
	AudioRef   string
	Err        string
	ProducedAt time.Time
}

func errorResult(job Job, msg string) Result {
	return Result{
		SessionID:  job.SessionID,
		Turn:       job.Turn,
		Status:     StatusError,
		Err:        msg,
		ProducedAt: time.Now(),
	}
}

// Collaborator contracts. The ML side is a black box behind these three
// functions; implementations live under pkg/speech and pkg/assistant.

type Transcriber interface {
	Transcribe(ctx context.Context, wav []byte) (string, error)
}

type Replier interface {
	Reply(ctx context.Context, prompt string) (string, error)
}

type Synthesizer interface {
	// Synthesize renders text to audio and returns a reference (URL or
	// path) to the artifact, never the raw bytes.
	Synthesize(ctx context.Context, sessionID string, turn int, text string) (string, error)
}
