package assistant

import "context"

// Replier produces the interviewer's next line from a fully formatted
// prompt. Providers under providers/ implement it against real model
// backends; the inference pipeline consumes it as a black box.
type Replier interface {
	Reply(ctx context.Context, prompt string) (string, error)
}
