package websocket

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/voxlabs/interviewd/internal/config"
	"github.com/voxlabs/interviewd/internal/interview"
	"github.com/voxlabs/interviewd/internal/types"
	"github.com/voxlabs/interviewd/internal/worker"
	"github.com/voxlabs/interviewd/pkg/Logger"
)

type capturingPool struct {
	mu   sync.Mutex
	jobs []worker.Job
	err  error
}

func (p *capturingPool) Submit(job worker.Job) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.jobs = append(p.jobs, job)
	return nil
}

func (p *capturingPool) submitted() []worker.Job {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]worker.Job, len(p.jobs))
	copy(out, p.jobs)
	return out
}

type gatewayFixture struct {
	registry *interview.Registry
	pool     *capturingPool
	client   *websocket.Conn
	cancel   context.CancelFunc
	srv      *httptest.Server
}

func newGatewayFixture(t *testing.T) *gatewayFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := Logger.NewNop()
	cfg := config.Default()
	registry := interview.NewRegistry(logger)
	emitter := NewEmitter(cfg.Workers.EmitQueueSize, logger)
	service := interview.NewService(registry, emitter, logger)
	pool := &capturingPool{}

	handler := NewHandler(logger, cfg, registry, service, emitter, pool)

	ctx, cancel := context.WithCancel(context.Background())
	go emitter.Run(ctx)

	router := gin.New()
	handler.RegisterRoutes(router)
	srv := httptest.NewServer(router)

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	if err != nil {
		cancel()
		srv.Close()
		t.Fatalf("dial failed: %v", err)
	}

	f := &gatewayFixture{registry: registry, pool: pool, client: client, cancel: cancel, srv: srv}
	t.Cleanup(func() {
		client.Close()
		cancel()
		srv.Close()
	})
	return f
}

type wireEvent struct {
	Event types.EventKind `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func (f *gatewayFixture) read(t *testing.T) wireEvent {
	t.Helper()
	f.client.SetReadDeadline(time.Now().Add(2 * time.Second))
	var evt wireEvent
	if err := f.client.ReadJSON(&evt); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	return evt
}

func (f *gatewayFixture) expect(t *testing.T, kind types.EventKind) wireEvent {
	t.Helper()
	evt := f.read(t)
	if evt.Event != kind {
		t.Fatalf("expected %s, got %s (%s)", kind, evt.Event, evt.Data)
	}
	return evt
}

func (f *gatewayFixture) send(t *testing.T, kind types.EventKind, data any) {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if err := f.client.WriteJSON(types.ClientEvent{Kind: kind, Data: raw}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
}

func (f *gatewayFixture) sessionID(t *testing.T) string {
	t.Helper()
	evt := f.expect(t, types.EventSessionCreated)
	var created types.SessionCreatedData
	if err := json.Unmarshal(evt.Data, &created); err != nil {
		t.Fatalf("bad session_created payload: %v", err)
	}
	if created.SessionID == "" {
		t.Fatal("session_created carries no id")
	}
	return created.SessionID
}

func TestGatewaySpeakingCycle(t *testing.T) {
	f := newGatewayFixture(t)
	id := f.sessionID(t)

	f.send(t, types.EventStartSpeaking, types.StartSpeakingData{SessionID: id})
	update := f.expect(t, types.EventStateUpdate)
	var su types.StateUpdateData
	json.Unmarshal(update.Data, &su)
	if su.State != string(interview.StateListening) || su.PreviousState != string(interview.StateIdle) {
		t.Errorf("expected idle->listening, got %s->%s", su.PreviousState, su.State)
	}
	f.expect(t, types.EventListeningStarted)

	chunks := [][]byte{{1, 2, 3}, {4, 5, 6}}
	for _, chunk := range chunks {
		f.send(t, types.EventAudioData, types.AudioChunkData{
			SessionID: id,
			Audio:     base64.StdEncoding.EncodeToString(chunk),
		})
		f.expect(t, types.EventAudioReceived)
	}
	pcm := append(append([]byte{}, chunks[0]...), chunks[1]...)

	f.send(t, types.EventStopSpeaking, types.StopSpeakingData{SessionID: id})
	update = f.expect(t, types.EventStateUpdate)
	json.Unmarshal(update.Data, &su)
	if su.State != string(interview.StateProcessing) {
		t.Errorf("expected processing, got %s", su.State)
	}
	f.expect(t, types.EventProcessingStarted)

	// processing_started is emitted before the job is enqueued, so give the
	// read loop a moment to finish the submit
	var jobs []worker.Job
	deadline := time.Now().Add(2 * time.Second)
	for {
		jobs = f.pool.submitted()
		if len(jobs) > 0 || time.Now().After(deadline) {
			break
		}
		time.Sleep(time.Millisecond)
	}
	if len(jobs) != 1 {
		t.Fatalf("expected 1 submitted job, got %d", len(jobs))
	}
	job := jobs[0]
	if job.SessionID != id || job.Turn != 0 {
		t.Errorf("job carries session %s turn %d", job.SessionID, job.Turn)
	}
	if !bytes.Equal(job.Audio, pcm) {
		t.Errorf("job audio mismatch: %v", job.Audio)
	}

	// a second stop while the job is in flight must be refused
	f.send(t, types.EventStopSpeaking, types.StopSpeakingData{SessionID: id})
	f.expect(t, types.EventError)
	if len(f.pool.submitted()) != 1 {
		t.Error("duplicate stop must not submit a second job")
	}
}

func TestGatewayRejectsSpeakingInWrongState(t *testing.T) {
	f := newGatewayFixture(t)
	id := f.sessionID(t)

	f.send(t, types.EventStopSpeaking, types.StopSpeakingData{SessionID: id})
	evt := f.expect(t, types.EventError)
	var ed types.ErrorData
	json.Unmarshal(evt.Data, &ed)
	if !strings.Contains(ed.Message, "idle") {
		t.Errorf("error should name the current state, got %q", ed.Message)
	}
	if len(f.pool.submitted()) != 0 {
		t.Error("invalid stop must not submit a job")
	}
}

func TestGatewayDropsAudioOutsideListening(t *testing.T) {
	f := newGatewayFixture(t)
	id := f.sessionID(t)

	f.send(t, types.EventAudioData, types.AudioChunkData{
		SessionID: id,
		Audio:     base64.StdEncoding.EncodeToString([]byte{1, 2}),
	})
	// no ack for a dropped chunk; get_state proves the connection is alive
	f.send(t, types.EventGetState, types.GetStateData{SessionID: id})
	evt := f.expect(t, types.EventStateUpdate)
	var su types.StateUpdateData
	json.Unmarshal(evt.Data, &su)
	if su.State != string(interview.StateIdle) {
		t.Errorf("expected idle, got %s", su.State)
	}

	sess, err := f.registry.Get(id)
	if err != nil {
		t.Fatalf("session lookup failed: %v", err)
	}
	if sess.AudioLen() != 0 {
		t.Errorf("audio outside listening must be dropped, buffered %d bytes", sess.AudioLen())
	}
}

func TestGatewayConfigure(t *testing.T) {
	f := newGatewayFixture(t)
	id := f.sessionID(t)

	f.send(t, types.EventConfigureSession, types.ConfigureSessionData{
		SessionID: id,
		Config:    types.SessionConfig{Position: "SRE", Difficulty: 0.9, InterviewerType: "stress"},
	})
	f.expect(t, types.EventSessionConfigured)

	sess, _ := f.registry.Get(id)
	view := sess.Snapshot()
	if view.Position != "SRE" || view.Difficulty != 0.9 || view.InterviewerType != "stress" {
		t.Errorf("configuration not applied: %+v", view)
	}
}

func TestGatewayReset(t *testing.T) {
	f := newGatewayFixture(t)
	id := f.sessionID(t)

	f.send(t, types.EventStartSpeaking, types.StartSpeakingData{SessionID: id})
	f.expect(t, types.EventStateUpdate)
	f.expect(t, types.EventListeningStarted)

	f.send(t, types.EventResetSession, types.ResetSessionData{SessionID: id})
	f.expect(t, types.EventSessionReset)
	evt := f.expect(t, types.EventStateUpdate)
	var su types.StateUpdateData
	json.Unmarshal(evt.Data, &su)
	if su.State != string(interview.StateIdle) || su.Turn != 0 {
		t.Errorf("reset should report idle turn 0, got %s turn %d", su.State, su.Turn)
	}
}

func TestGatewaySubmitFailureReturnsToWaiting(t *testing.T) {
	f := newGatewayFixture(t)
	id := f.sessionID(t)
	f.pool.err = worker.ErrQueueFull

	f.send(t, types.EventStartSpeaking, types.StartSpeakingData{SessionID: id})
	f.expect(t, types.EventStateUpdate)
	f.expect(t, types.EventListeningStarted)

	f.send(t, types.EventStopSpeaking, types.StopSpeakingData{SessionID: id})
	f.expect(t, types.EventStateUpdate)       // -> processing
	f.expect(t, types.EventProcessingStarted)
	f.expect(t, types.EventError)             // server busy
	evt := f.expect(t, types.EventStateUpdate) // -> waiting
	var su types.StateUpdateData
	json.Unmarshal(evt.Data, &su)
	if su.State != string(interview.StateWaiting) {
		t.Errorf("failed submit should park the session in waiting, got %s", su.State)
	}
}

func TestGatewayUnknownSession(t *testing.T) {
	f := newGatewayFixture(t)
	f.sessionID(t)

	f.send(t, types.EventStartSpeaking, types.StartSpeakingData{SessionID: "missing"})
	evt := f.expect(t, types.EventError)
	var ed types.ErrorData
	json.Unmarshal(evt.Data, &ed)
	if ed.Message != "session not found" {
		t.Errorf("expected uniform not-found error, got %q", ed.Message)
	}
}

func TestGatewayMalformedMessage(t *testing.T) {
	f := newGatewayFixture(t)
	f.sessionID(t)

	if err := f.client.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	f.expect(t, types.EventError)

	// the connection must survive the bad frame
	f.send(t, types.EventGetState, types.GetStateData{SessionID: "missing"})
	f.expect(t, types.EventError)
}

func TestGatewayJoinRebindsConnection(t *testing.T) {
	f := newGatewayFixture(t)
	f.sessionID(t) // session auto-created for this connection

	// a second client joins the first session
	other := interviewSessionID(t, f)
	f.send(t, types.EventJoinSession, types.JoinSessionData{SessionID: other})
	evt := f.expect(t, types.EventStateUpdate)
	var su types.StateUpdateData
	json.Unmarshal(evt.Data, &su)
	if su.SessionID != other {
		t.Errorf("join should report the joined session, got %s", su.SessionID)
	}
}

// interviewSessionID creates a detached session directly in the registry.
func interviewSessionID(t *testing.T, f *gatewayFixture) string {
	t.Helper()
	sess := f.registry.Create(types.SessionConfig{Position: fmt.Sprintf("pos-%d", time.Now().UnixNano())}, "")
	return sess.ID
}
