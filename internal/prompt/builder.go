package prompt

import (
	"fmt"
	"strings"

	"github.com/voxlabs/interviewd/internal/types"
)

// Builder assembles interviewer prompts from the session configuration and
// the trimmed conversation history.
type Builder struct {
	profiles map[string]string
	maxTurns int
}

func NewBuilder(profiles map[string]string, maxTurns int) *Builder {
	if maxTurns <= 0 {
		maxTurns = 10
	}
	merged := make(map[string]string, len(defaultProfiles)+len(profiles))
	for k, v := range defaultProfiles {
		merged[k] = v
	}
	for k, v := range profiles {
		merged[k] = v
	}
	return &Builder{profiles: merged, maxTurns: maxTurns}
}

// Profile resolves an interviewer type to its personality prompt, falling
// back to a neutral interviewer for unknown types.
func (b *Builder) Profile(interviewerType string) string {
	if p, ok := b.profiles[interviewerType]; ok {
		return p
	}
	return "You are an interviewer conducting a job interview."
}

// Build formats the full generation prompt. Difficulty above 0.7 pushes for
// harder follow-ups, below 0.4 keeps the tone supportive.
func (b *Builder) Build(input string, history []types.Utterance, interviewerType, position string, difficulty float64) string {
	var modifier string
	if difficulty > 0.7 {
		modifier = "\nAsk challenging follow-up questions and dig deeper into responses."
	} else if difficulty < 0.4 {
		modifier = "\nBe supportive and helpful, providing guidance if the candidate struggles."
	}

	return fmt.Sprintf(`SYSTEM: You are a professional job interviewer named Alex. Follow these rules strictly:
1. Only respond as the interviewer Alex
2. Keep responses to 1-2 sentences maximum
3. Ask only ONE question at a time
4. NEVER answer your own questions
5. NEVER role-play as the candidate

%s

You're interviewing someone for a %s position.%s

Previous conversation:
%s
Candidate: %s

Interviewer Alex: `, b.Profile(interviewerType), position, modifier, FormatHistory(history, b.maxTurns), input)
}

// FormatHistory renders the most recent maxTurns exchanges as labeled lines.
func FormatHistory(history []types.Utterance, maxTurns int) string {
	n := maxTurns * 2
	if len(history) > n {
		history = history[len(history)-n:]
	}
	var sb strings.Builder
	for _, u := range history {
		label := "Interviewer"
		if u.Speaker == types.SpeakerCandidate {
			label = "Candidate"
		}
		sb.WriteString(label)
		sb.WriteString(": ")
		sb.WriteString(u.Text)
		sb.WriteString("\n")
	}
	return sb.String()
}

var roleLabels = []string{
	"[s]", "[END]", "[INST]", "[/INST]", "ASSISTANT:", "SYSTEM:",
	"Interviewer Alex:", "Interviewer:", "Alex:", "Candidate:",
}

// Clean strips control tokens and role labels from model output and, when
// the model rambles past its own line, keeps only the interviewer part.
func Clean(text string) string {
	if idx := strings.Index(text, "\nCandidate:"); idx >= 0 {
		text = text[:idx]
	}
	for _, label := range roleLabels {
		text = strings.ReplaceAll(text, label, "")
	}
	text = strings.TrimSpace(text)

	// A numbered question list collapses to the intro plus the first entry.
	if strings.Contains(text, "\n1.") && strings.Contains(text, "\n2.") {
		intro, rest, _ := strings.Cut(text, "\n1.")
		question, _, _ := strings.Cut(rest, "\n2.")
		text = strings.TrimSpace(strings.TrimSpace(intro) + " " + strings.TrimSpace(question))
	}

	return strings.Trim(text, `" `)
}
