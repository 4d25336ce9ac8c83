package interview

import (
	"context"

	"github.com/voxlabs/interviewd/internal/prompt"
	"github.com/voxlabs/interviewd/internal/types"
	"github.com/voxlabs/interviewd/internal/worker"
	"github.com/voxlabs/interviewd/pkg/Logger"
)

// Notifier is how anything outside the gateway's writer reaches a client.
// Implementations must be safe for concurrent producers; the websocket
// emitter queues the event for its single drain goroutine.
type Notifier interface {
	Emit(connID string, evt types.ServerEvent)
}

// Service applies worker Results and recovery actions to sessions. It is
// the only consumer of the result queue and the single place the
// success/error/stall paths converge.
type Service struct {
	registry *Registry
	notifier Notifier
	logger   *Logger.Logger
}

func NewService(registry *Registry, notifier Notifier, logger *Logger.Logger) *Service {
	return &Service{registry: registry, notifier: notifier, logger: logger}
}

func (s *Service) Registry() *Registry {
	return s.registry
}

// RunDrain consumes Results until the channel closes or ctx is cancelled.
// Runs as a single goroutine so Results for the same session are applied
// in order.
func (s *Service) RunDrain(ctx context.Context, results <-chan worker.Result) {
	for {
		select {
		case <-ctx.Done():
			return
		case res, ok := <-results:
			if !ok {
				return
			}
			s.applyResult(res)
		}
	}
}

func (s *Service) applyResult(res worker.Result) {
	sess, err := s.registry.Get(res.SessionID)
	if err != nil {
		s.logger.Warnf("result for unknown session %s dropped", res.SessionID)
		return
	}

	if res.Status == worker.StatusProgress {
		s.logger.Debugf("session %s job progress: %s", res.SessionID, res.Stage)
		return
	}

	// A result is only applicable while the session still waits on this
	// exact job. After watchdog recovery the turn has advanced and the
	// state left processing, so the late result fails both checks.
	if sess.State() != StateProcessing || sess.TurnIndex() != res.Turn {
		s.logger.Infof("stale result for session %s (turn %d, current %d, state %s) dropped",
			res.SessionID, res.Turn, sess.TurnIndex(), sess.State())
		return
	}

	switch res.Status {
	case worker.StatusSuccess:
		s.applySuccess(sess, res)
	case worker.StatusError:
		s.logger.Warnf("session %s job failed: %s", res.SessionID, res.Err)
		s.Emit(sess, types.EventError, types.ErrorData{Message: res.Err})
		s.recover(sess, true)
	}
}

func (s *Service) applySuccess(sess *Session, res worker.Result) {
	if !sess.AppendUtterance(types.SpeakerCandidate, res.Transcript) {
		s.logger.Warnf("duplicate candidate entry for session %s skipped", sess.ID)
	}
	if !sess.AppendUtterance(types.SpeakerInterviewer, res.Response) {
		s.logger.Warnf("duplicate interviewer entry for session %s skipped", sess.ID)
	}

	prev, err := s.registry.Transition(sess.ID, StateResponding)
	if err != nil {
		return
	}
	s.emitStateUpdate(sess, prev)

	s.Emit(sess, types.EventResponseReady, types.ResponseReadyData{
		SessionID: sess.ID,
		Text:      res.Response,
		AudioURL:  res.AudioRef,
	})

	// Delivery is the client's business; the server moves straight on to
	// waiting and lets state_update reconcile (last write wins).
	turn, _ := s.registry.IncrementTurn(sess.ID)
	prev, _ = s.registry.Transition(sess.ID, StateWaiting)
	s.emitStateUpdate(sess, prev)
	s.Emit(sess, types.EventReadyForNext, types.ReadyForNextData{
		SessionID: sess.ID,
		State:     string(StateWaiting),
		Turn:      turn,
	})
}

// RecoverStalled is the watchdog entry point: same repair as a worker
// error Result.
func (s *Service) RecoverStalled(sessionID string) {
	sess, err := s.registry.Get(sessionID)
	if err != nil {
		return
	}
	if sess.State() != StateProcessing {
		return
	}
	s.logger.Warnf("session %s stalled in processing, forcing recovery", sessionID)
	s.recover(sess, true)
}

// recover appends a fallback interviewer line, forces the session to
// waiting, counts the turn, and emits the full notification sequence so the
// client is never left hanging in processing.
func (s *Service) recover(sess *Session, isRecovery bool) {
	fallback := prompt.Fallback()
	sess.AppendUtterance(types.SpeakerInterviewer, fallback)

	prev, err := s.registry.Transition(sess.ID, StateWaiting)
	if err != nil {
		return
	}
	turn, _ := s.registry.IncrementTurn(sess.ID)

	s.Emit(sess, types.EventResponseReady, types.ResponseReadyData{
		SessionID:  sess.ID,
		Text:       fallback,
		IsRecovery: isRecovery,
	})
	s.emitStateUpdate(sess, prev)
	s.Emit(sess, types.EventReadyForNext, types.ReadyForNextData{
		SessionID: sess.ID,
		State:     string(StateWaiting),
		Turn:      turn,
	})
}

// BroadcastState re-sends the current state to the session's client, the
// watchdog's per-tick resynchronization net.
func (s *Service) BroadcastState(sess *Session) {
	view := sess.Snapshot()
	s.Emit(sess, types.EventStateUpdate, types.StateUpdateData{
		SessionID: view.ID,
		State:     string(view.State),
		Turn:      view.TurnIndex,
	})
}

// Emit routes an event to the session's bound connection, if any.
func (s *Service) Emit(sess *Session, kind types.EventKind, data any) {
	connID := sess.ConnID()
	if connID == "" {
		return
	}
	s.notifier.Emit(connID, types.NewServerEvent(kind, data))
}

func (s *Service) emitStateUpdate(sess *Session, prev State) {
	view := sess.Snapshot()
	s.Emit(sess, types.EventStateUpdate, types.StateUpdateData{
		SessionID:     view.ID,
		State:         string(view.State),
		Turn:          view.TurnIndex,
		PreviousState: string(prev),
	})
}
