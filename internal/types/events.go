package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventKind enumerates the wire protocol. The set is closed: anything a
// client sends outside ClientEvents is rejected at the boundary, before any
// handler runs.
type EventKind string

const (
	// client -> server
	EventJoinSession      EventKind = "join_session"
	EventConfigureSession EventKind = "configure_session"
	EventStartSpeaking    EventKind = "start_speaking"
	EventAudioData        EventKind = "audio_data"
	EventStopSpeaking     EventKind = "stop_speaking"
	EventResetSession     EventKind = "reset_session"
	EventGetState         EventKind = "get_state"

	// server -> client
	EventSessionCreated    EventKind = "session_created"
	EventSessionConfigured EventKind = "session_configured"
	EventSessionReset      EventKind = "session_reset"
	EventStateUpdate       EventKind = "state_update"
	EventListeningStarted  EventKind = "listening_started"
	EventAudioReceived     EventKind = "audio_received"
	EventProcessingStarted EventKind = "processing_started"
	EventResponseReady     EventKind = "response_ready"
	EventReadyForNext      EventKind = "ready_for_next_input"
	EventError             EventKind = "error"
)

// SessionConfig is the client-tunable part of a session.
type SessionConfig struct {
	Position        string  `json:"position,omitempty"`
	Difficulty      float64 `json:"difficulty,omitempty"`
	InterviewerType string  `json:"interviewer_type,omitempty"`
}

// ClientEvent is the inbound envelope. Data is decoded once, per kind,
// by Payload.
type ClientEvent struct {
	Kind EventKind       `json:"event"`
	Data json.RawMessage `json:"data,omitempty"`
}

type JoinSessionData struct {
	SessionID string `json:"session_id"`
}

type ConfigureSessionData struct {
	SessionID string        `json:"session_id"`
	Config    SessionConfig `json:"config"`
}

type StartSpeakingData struct {
	SessionID string `json:"session_id"`
}

type AudioChunkData struct {
	SessionID string `json:"session_id"`
	Audio     string `json:"audio"` // base64-encoded PCM
}

type StopSpeakingData struct {
	SessionID string `json:"session_id"`
}

type ResetSessionData struct {
	SessionID string `json:"session_id"`
}

type GetStateData struct {
	SessionID string `json:"session_id"`
}

// Payload decodes the envelope's data into the fixed struct for its kind.
// Unknown kinds are an error; handlers never see an undecoded map.
func (e ClientEvent) Payload() (any, error) {
	decode := func(v any) (any, error) {
		if len(e.Data) == 0 {
			return nil, fmt.Errorf("event %s: missing data", e.Kind)
		}
		if err := json.Unmarshal(e.Data, v); err != nil {
			return nil, fmt.Errorf("event %s: %w", e.Kind, err)
		}
		return v, nil
	}

	switch e.Kind {
	case EventJoinSession:
		return decode(&JoinSessionData{})
	case EventConfigureSession:
		return decode(&ConfigureSessionData{})
	case EventStartSpeaking:
		return decode(&StartSpeakingData{})
	case EventAudioData:
		return decode(&AudioChunkData{})
	case EventStopSpeaking:
		return decode(&StopSpeakingData{})
	case EventResetSession:
		return decode(&ResetSessionData{})
	case EventGetState:
		return decode(&GetStateData{})
	default:
		return nil, fmt.Errorf("unknown event kind: %s", e.Kind)
	}
}

// ServerEvent is the outbound envelope pushed through the emission queue.
type ServerEvent struct {
	Kind      EventKind `json:"event"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewServerEvent(kind EventKind, data any) ServerEvent {
	return ServerEvent{Kind: kind, Data: data, Timestamp: time.Now()}
}

type SessionCreatedData struct {
	SessionID string `json:"session_id"`
}

type SessionConfiguredData struct {
	SessionID string `json:"session_id"`
}

type SessionResetData struct {
	SessionID string `json:"session_id"`
}

type StateUpdateData struct {
	SessionID     string `json:"session_id"`
	State         string `json:"state"`
	Turn          int    `json:"turn"`
	PreviousState string `json:"previous_state,omitempty"`
}

type ListeningStartedData struct {
	SessionID string `json:"session_id"`
}

type AudioReceivedData struct {
	SessionID string `json:"session_id"`
}

type ProcessingStartedData struct {
	SessionID string `json:"session_id"`
}

type ResponseReadyData struct {
	SessionID  string `json:"session_id"`
	Text       string `json:"text"`
	AudioURL   string `json:"audio_url,omitempty"`
	IsRecovery bool   `json:"is_recovery,omitempty"`
}

type ReadyForNextData struct {
	SessionID string `json:"session_id"`
	State     string `json:"state"`
	Turn      int    `json:"turn"`
}

type ErrorData struct {
	Message string `json:"message"`
}
