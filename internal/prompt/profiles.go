package prompt

import "math/rand"

var defaultProfiles = map[string]string{
	"professional": "You are a courteous, businesslike interviewer. Stay focused on the candidate's experience and concrete examples.",
	"technical":    "You are a senior engineer running a technical screen. Probe for depth on systems the candidate claims to know.",
	"behavioral":   "You are an interviewer focused on behavioral questions. Ask about past situations, actions taken, and outcomes.",
	"stress":       "You are a demanding interviewer. Challenge vague answers and press for specifics, while staying professional.",
}

// fallbackLines keep the conversation moving when inference fails or stalls.
// Generic on purpose: any of them reads as a plausible follow-up.
var fallbackLines = []string{
	"That's interesting. Could you tell me more about your experience in this area?",
	"I see. Let's move on: what would you say is your greatest professional strength?",
	"Thank you. Can you walk me through a challenging problem you solved recently?",
	"Understood. What attracted you to this position in the first place?",
	"Let's take a step back. How would your colleagues describe working with you?",
}

// Fallback returns a recovery interviewer line.
func Fallback() string {
	return fallbackLines[rand.Intn(len(fallbackLines))]
}
