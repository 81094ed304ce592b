// Package stream fans encoded simulation frames out to websocket viewers.
package stream

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const writeTimeout = 5 * time.Second

type client struct {
	id     uuid.UUID
	frames chan []byte
}

// Hub is an http.Handler that upgrades requests to websockets and sends
// every published frame to each connected client as a binary message. A
// client that falls behind loses frames instead of slowing the publisher.
type Hub struct {
	logger *zap.Logger
	buffer int

	mu      sync.Mutex
	clients map[uuid.UUID]*client
	closed  chan struct{}
	once    sync.Once

	dropped atomic.Uint64
}

// NewHub creates a hub queueing up to buffer frames per client.
func NewHub(logger *zap.Logger, buffer int) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		logger:  logger,
		buffer:  max(buffer, 1),
		clients: make(map[uuid.UUID]*client),
		closed:  make(chan struct{}),
	}
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.logger.Warn("failed to accept", zap.Error(err))
		return
	}
	defer conn.CloseNow()

	c := &client{id: uuid.New(), frames: make(chan []byte, h.buffer)}
	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()
	defer h.remove(c.id)

	logger := h.logger.With(zap.Stringer("client", c.id))
	logger.Debug("client connected", zap.String("remote", r.RemoteAddr))

	// Viewers only listen; CloseRead handles control frames and cancels ctx
	// once the peer goes away.
	ctx := conn.CloseRead(r.Context())

	err = h.writeLoop(ctx, conn, c)
	switch {
	case err == nil:
		conn.Close(websocket.StatusGoingAway, "hub closed")
	case errors.Is(err, context.Canceled), websocket.CloseStatus(err) != -1:
		logger.Debug("client disconnected")
	default:
		logger.Warn("write failed", zap.Error(err))
	}
}

func (h *Hub) writeLoop(ctx context.Context, conn *websocket.Conn, c *client) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-h.closed:
			return nil
		case frame := <-c.frames:
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := conn.Write(wctx, websocket.MessageBinary, frame)
			cancel()
			if err != nil {
				return err
			}
		}
	}
}

func (h *Hub) remove(id uuid.UUID) {
	h.mu.Lock()
	delete(h.clients, id)
	h.mu.Unlock()
}

// Publish queues frame for every client. frame must not be modified
// afterwards.
func (h *Hub) Publish(frame []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range h.clients {
		select {
		case c.frames <- frame:
		default:
			h.dropped.Add(1)
		}
	}
}

func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Dropped is the number of frames discarded for slow clients.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}

// Close disconnects every client. Later connections are closed right away.
func (h *Hub) Close() {
	h.once.Do(func() { close(h.closed) })
}
