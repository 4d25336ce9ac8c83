package websocket

import (
	"context"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/voxlabs/interviewd/internal/types"
	"github.com/voxlabs/interviewd/pkg/Logger"
)

type envelope struct {
	connID string
	evt    types.ServerEvent
}

// Emitter is the outbound emission queue: a bounded multi-producer/
// single-consumer channel whose drain goroutine is the only code that ever
// writes to a connection. Workers, the watchdog, and the read-loop handlers
// all produce into it; none of them touch a *websocket.Conn.
type Emitter struct {
	logger *Logger.Logger
	queue  chan envelope

	mu    sync.RWMutex
	conns map[string]*websocket.Conn
}

func NewEmitter(queueSize int, logger *Logger.Logger) *Emitter {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Emitter{
		logger: logger,
		queue:  make(chan envelope, queueSize),
		conns:  make(map[string]*websocket.Conn),
	}
}

func (e *Emitter) Register(connID string, conn *websocket.Conn) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.conns[connID] = conn
}

func (e *Emitter) Unregister(connID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.conns, connID)
}

// Emit queues an event for delivery. Never blocks a producer: when the
// queue is full the event is dropped with a log line, and the watchdog's
// periodic state rebroadcast resynchronizes the client.
func (e *Emitter) Emit(connID string, evt types.ServerEvent) {
	select {
	case e.queue <- envelope{connID: connID, evt: evt}:
	default:
		e.logger.Warnf("emission queue full, dropping %s for conn %s", evt.Kind, connID)
	}
}

// Run drains the queue until ctx is cancelled. Must be the only goroutine
// calling this; connection writes are serialized through it.
func (e *Emitter) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case env := <-e.queue:
			e.write(env)
		}
	}
}

func (e *Emitter) write(env envelope) {
	e.mu.RLock()
	conn, ok := e.conns[env.connID]
	e.mu.RUnlock()
	if !ok {
		// client went away between enqueue and drain
		e.logger.Debugf("dropping %s for gone conn %s", env.evt.Kind, env.connID)
		return
	}
	if err := conn.WriteJSON(env.evt); err != nil {
		e.logger.Warnf("write %s to conn %s failed: %v", env.evt.Kind, env.connID, err)
	}
}

// Pending reports the queue backlog. Exposed for the stats endpoint.
func (e *Emitter) Pending() int {
	return len(e.queue)
}
