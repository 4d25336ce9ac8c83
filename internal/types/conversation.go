package types

import "time"

// Speaker identifies who produced an utterance. The set is fixed.
type Speaker string

const (
	SpeakerCandidate   Speaker = "candidate"
	SpeakerInterviewer Speaker = "interviewer"
)

// Utterance is one line of the conversation. History is append-only and
// never mutated in place.
type Utterance struct {
	Speaker   Speaker   `json:"speaker"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}
