package websocket

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/voxlabs/interviewd/internal/config"
	"github.com/voxlabs/interviewd/internal/interview"
	"github.com/voxlabs/interviewd/internal/types"
	"github.com/voxlabs/interviewd/internal/worker"
	"github.com/voxlabs/interviewd/pkg/Logger"
	"github.com/voxlabs/interviewd/pkg/audiobuf"
)

// JobSubmitter is the slice of the worker pool the gateway needs.
type JobSubmitter interface {
	Submit(job worker.Job) error
}

// Handler owns the real-time channel: it upgrades connections, runs one
// read loop per client, validates every inbound event against session
// state, and hands inference work to the pool. It never writes to a
// connection itself; all output goes through the Emitter.
type Handler struct {
	logger   *Logger.Logger
	cfg      *config.Settings
	registry *interview.Registry
	service  *interview.Service
	emitter  *Emitter
	pool     JobSubmitter
	upgrader websocket.Upgrader
}

func NewHandler(
	logger *Logger.Logger,
	cfg *config.Settings,
	registry *interview.Registry,
	service *interview.Service,
	emitter *Emitter,
	pool JobSubmitter,
) *Handler {
	return &Handler{
		logger:   logger,
		cfg:      cfg,
		registry: registry,
		service:  service,
		emitter:  emitter,
		pool:     pool,
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}
}

func (h *Handler) RegisterRoutes(router gin.IRouter) {
	router.GET("/ws", h.HandleWebSocket)
}

// HandleWebSocket runs for the lifetime of one client connection.
func (h *Handler) HandleWebSocket(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Errorf("websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	connID := uuid.NewString()
	h.emitter.Register(connID, conn)
	defer h.emitter.Unregister(connID)

	// Every connection starts with a fresh session, like the original
	// connect flow; join_session rebinds to an existing one.
	sess := h.registry.Create(types.SessionConfig{
		Position:        h.cfg.Interview.DefaultPosition,
		Difficulty:      h.cfg.Interview.DefaultDifficulty,
		InterviewerType: h.cfg.Interview.DefaultInterviewer,
	}, connID)

	h.emit(connID, types.EventSessionCreated, types.SessionCreatedData{SessionID: sess.ID})
	h.logger.Infof("client connected: conn %s, session %s", connID, sess.ID)

	defer h.disconnect(connID)

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				h.logger.Errorf("read error on conn %s: %v", connID, err)
			} else {
				h.logger.Infof("conn %s closed", connID)
			}
			return
		}
		if msgType != websocket.TextMessage {
			// the protocol is JSON text frames; anything else is dropped
			h.logger.Debugf("ignoring non-text frame on conn %s", connID)
			continue
		}
		h.handleMessage(connID, data)
	}
}

func (h *Handler) disconnect(connID string) {
	if sess, err := h.registry.GetByConnection(connID); err == nil {
		h.registry.MarkInactive(sess.ID)
		h.logger.Infof("session %s marked inactive", sess.ID)
	}
	h.registry.UnbindConnection(connID)
}

// handleMessage decodes the envelope once and dispatches on kind. A failure
// in one event never takes the connection down.
func (h *Handler) handleMessage(connID string, data []byte) {
	var evt types.ClientEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		h.emitError(connID, "invalid message format")
		return
	}

	payload, err := evt.Payload()
	if err != nil {
		h.logger.Warnf("bad %s payload on conn %s: %v", evt.Kind, connID, err)
		h.emitError(connID, fmt.Sprintf("invalid %s payload", evt.Kind))
		return
	}

	switch p := payload.(type) {
	case *types.JoinSessionData:
		h.handleJoin(connID, p)
	case *types.ConfigureSessionData:
		h.handleConfigure(connID, p)
	case *types.StartSpeakingData:
		h.handleStartSpeaking(connID, p)
	case *types.AudioChunkData:
		h.handleAudioChunk(connID, p)
	case *types.StopSpeakingData:
		h.handleStopSpeaking(connID, p)
	case *types.ResetSessionData:
		h.handleReset(connID, p)
	case *types.GetStateData:
		h.handleGetState(connID, p)
	}
}

func (h *Handler) handleJoin(connID string, d *types.JoinSessionData) {
	sess, ok := h.lookup(connID, d.SessionID)
	if !ok {
		return
	}
	if err := h.registry.BindConnection(sess.ID, connID); err != nil {
		h.emitError(connID, "session not found")
		return
	}
	h.logger.Infof("conn %s joined session %s", connID, sess.ID)
	view := sess.Snapshot()
	h.emit(connID, types.EventStateUpdate, types.StateUpdateData{
		SessionID: view.ID,
		State:     string(view.State),
		Turn:      view.TurnIndex,
	})
}

func (h *Handler) handleConfigure(connID string, d *types.ConfigureSessionData) {
	sess, ok := h.lookup(connID, d.SessionID)
	if !ok {
		return
	}
	sess.Configure(d.Config)
	h.logger.Infof("session %s configured: %+v", sess.ID, d.Config)
	h.emit(connID, types.EventSessionConfigured, types.SessionConfiguredData{SessionID: sess.ID})
}

func (h *Handler) handleStartSpeaking(connID string, d *types.StartSpeakingData) {
	sess, ok := h.lookup(connID, d.SessionID)
	if !ok {
		return
	}
	state := sess.State()
	if !interview.Can(state, interview.TransitionStartSpeaking) {
		h.emitError(connID, fmt.Sprintf("cannot start speaking in %s state", state))
		return
	}

	prev, err := h.registry.Transition(sess.ID, interview.StateListening)
	if err != nil {
		h.emitError(connID, "session not found")
		return
	}
	sess.ClearAudio()

	h.emitStateUpdate(connID, sess, prev)
	h.emit(connID, types.EventListeningStarted, types.ListeningStartedData{SessionID: sess.ID})
}

func (h *Handler) handleAudioChunk(connID string, d *types.AudioChunkData) {
	sess, err := h.registry.Get(d.SessionID)
	if err != nil || sess.State() != interview.StateListening {
		// chunks outside a listening phase carry no information; drop
		return
	}

	chunk, err := base64.StdEncoding.DecodeString(d.Audio)
	if err != nil {
		// malformed fragment; self-correcting at the WAV boundary, so a
		// log is enough
		h.logger.Debugf("dropping malformed audio chunk for session %s: %v", sess.ID, err)
		return
	}

	if err := sess.AppendAudio(chunk); err != nil {
		if errors.Is(err, audiobuf.ErrFull) {
			h.logger.Warnf("audio buffer full for session %s, chunk dropped", sess.ID)
			return
		}
		h.logger.Errorf("audio append failed for session %s: %v", sess.ID, err)
		return
	}

	h.emit(connID, types.EventAudioReceived, types.AudioReceivedData{SessionID: sess.ID})
}

func (h *Handler) handleStopSpeaking(connID string, d *types.StopSpeakingData) {
	sess, ok := h.lookup(connID, d.SessionID)
	if !ok {
		return
	}
	state := sess.State()
	if !interview.Can(state, interview.TransitionStopSpeaking) {
		// also refuses a second stop while a job is already outstanding
		h.emitError(connID, fmt.Sprintf("cannot stop speaking in %s state", state))
		return
	}

	audio := sess.SnapshotAudio()
	view := sess.Snapshot()

	prev, err := h.registry.Transition(sess.ID, interview.StateProcessing)
	if err != nil {
		h.emitError(connID, "session not found")
		return
	}
	h.emitStateUpdate(connID, sess, prev)
	h.emit(connID, types.EventProcessingStarted, types.ProcessingStartedData{SessionID: sess.ID})

	job := worker.Job{
		SessionID:       sess.ID,
		Kind:            worker.JobRespond,
		Turn:            view.TurnIndex,
		Audio:           audio,
		Position:        view.Position,
		Difficulty:      view.Difficulty,
		InterviewerType: view.InterviewerType,
		History:         sess.RecentHistory(h.cfg.Interview.MaxHistoryTurns),
		SubmittedAt:     time.Now(),
	}

	if err := h.pool.Submit(job); err != nil {
		h.logger.Errorf("job submit failed for session %s: %v", sess.ID, err)
		// do not leave the client parked in processing
		prev, _ := h.registry.Transition(sess.ID, interview.StateWaiting)
		h.emitError(connID, "server busy, please try again")
		h.emitStateUpdate(connID, sess, prev)
	}
}

func (h *Handler) handleReset(connID string, d *types.ResetSessionData) {
	sess, ok := h.lookup(connID, d.SessionID)
	if !ok {
		return
	}
	if err := h.registry.Reset(sess.ID); err != nil {
		h.emitError(connID, "session not found")
		return
	}
	h.emit(connID, types.EventSessionReset, types.SessionResetData{SessionID: sess.ID})
	h.emit(connID, types.EventStateUpdate, types.StateUpdateData{
		SessionID: sess.ID,
		State:     string(interview.StateIdle),
		Turn:      0,
	})
}

func (h *Handler) handleGetState(connID string, d *types.GetStateData) {
	sess, ok := h.lookup(connID, d.SessionID)
	if !ok {
		return
	}
	view := sess.Snapshot()
	h.emit(connID, types.EventStateUpdate, types.StateUpdateData{
		SessionID: view.ID,
		State:     string(view.State),
		Turn:      view.TurnIndex,
	})
}

// lookup resolves a session id from an event payload, reporting the uniform
// not-found error to the client.
func (h *Handler) lookup(connID, sessionID string) (*interview.Session, bool) {
	if sessionID == "" {
		h.emitError(connID, "session ID required")
		return nil, false
	}
	sess, err := h.registry.Get(sessionID)
	if err != nil {
		h.emitError(connID, "session not found")
		return nil, false
	}
	return sess, true
}

func (h *Handler) emit(connID string, kind types.EventKind, data any) {
	h.emitter.Emit(connID, types.NewServerEvent(kind, data))
}

func (h *Handler) emitError(connID, msg string) {
	h.emit(connID, types.EventError, types.ErrorData{Message: msg})
}

func (h *Handler) emitStateUpdate(connID string, sess *interview.Session, prev interview.State) {
	view := sess.Snapshot()
	h.emit(connID, types.EventStateUpdate, types.StateUpdateData{
		SessionID:     view.ID,
		State:         string(view.State),
		Turn:          view.TurnIndex,
		PreviousState: string(prev),
	})
}
