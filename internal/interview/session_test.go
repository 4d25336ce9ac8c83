package interview

import (
	"testing"
	"time"

	"github.com/voxlabs/interviewd/internal/types"
)

func TestConfigureIgnoresZeroValues(t *testing.T) {
	s := newSession(types.SessionConfig{
		Position:        "Backend Engineer",
		Difficulty:      0.6,
		InterviewerType: "technical",
	}, "conn-1")

	s.Configure(types.SessionConfig{Position: "SRE"})

	view := s.Snapshot()
	if view.Position != "SRE" {
		t.Errorf("expected position SRE, got %s", view.Position)
	}
	if view.Difficulty != 0.6 {
		t.Errorf("difficulty should be unchanged, got %f", view.Difficulty)
	}
	if view.InterviewerType != "technical" {
		t.Errorf("interviewer type should be unchanged, got %s", view.InterviewerType)
	}
}

func TestAppendUtteranceDedupes(t *testing.T) {
	s := newSession(types.SessionConfig{}, "")

	if !s.AppendUtterance(types.SpeakerCandidate, "hello") {
		t.Error("first append should succeed")
	}
	if s.AppendUtterance(types.SpeakerCandidate, "hello") {
		t.Error("identical repeat should be rejected")
	}
	if !s.AppendUtterance(types.SpeakerInterviewer, "hello") {
		t.Error("same text from the other speaker should be accepted")
	}
	// candidate "hello" is now two entries back, still within the window
	if s.AppendUtterance(types.SpeakerCandidate, "hello") {
		t.Error("repeat within the dedupe window should be rejected")
	}

	if got := len(s.History()); got != 2 {
		t.Errorf("expected 2 history entries, got %d", got)
	}
}

func TestRecentHistoryTrims(t *testing.T) {
	s := newSession(types.SessionConfig{}, "")
	for i := 0; i < 6; i++ {
		s.AppendUtterance(types.SpeakerCandidate, "answer "+string(rune('a'+i)))
		s.AppendUtterance(types.SpeakerInterviewer, "question "+string(rune('a'+i)))
	}

	recent := s.RecentHistory(2)
	if len(recent) != 4 {
		t.Fatalf("expected 4 utterances for 2 turns, got %d", len(recent))
	}
	if recent[len(recent)-1].Text != "question f" {
		t.Errorf("expected newest entry last, got %q", recent[len(recent)-1].Text)
	}
}

func TestResetClearsEverything(t *testing.T) {
	s := newSession(types.SessionConfig{Position: "QA"}, "conn-1")
	s.AppendUtterance(types.SpeakerCandidate, "hi")
	s.AppendAudio([]byte{1, 2, 3})
	s.incrementTurn()
	s.setState(StateWaiting)

	s.reset()

	view := s.Snapshot()
	if view.State != StateIdle {
		t.Errorf("expected idle after reset, got %s", view.State)
	}
	if view.TurnIndex != 0 {
		t.Errorf("expected turn 0 after reset, got %d", view.TurnIndex)
	}
	if view.MessageCount != 0 {
		t.Errorf("expected empty history after reset, got %d entries", view.MessageCount)
	}
	if s.AudioLen() != 0 {
		t.Errorf("expected empty audio buffer after reset, got %d bytes", s.AudioLen())
	}
	if view.Position != "QA" {
		t.Errorf("reset should keep the configuration, got position %q", view.Position)
	}
}

func TestExpired(t *testing.T) {
	s := newSession(types.SessionConfig{}, "conn-1")
	if s.expired(0) {
		t.Error("active session must never expire")
	}
	s.markInactive()
	if s.expired(time.Hour) {
		t.Error("recently inactive session should not expire yet")
	}
	time.Sleep(2 * time.Millisecond)
	if !s.expired(time.Millisecond) {
		t.Error("inactive session past the timeout should expire")
	}
}
