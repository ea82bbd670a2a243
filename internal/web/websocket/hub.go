// Package websocket pushes live weekly study activity (new responses,
// reaction counts, publications) to connected PWA clients.
package websocket

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/faithdive/faithdive/internal/store"
)

type roomMessage struct {
	room string
	data []byte
}

// Hub tracks clients by room and fans events out to them
type Hub struct {
	rooms map[string]map[*Client]struct{}
	mu    sync.RWMutex

	register   chan *Client
	unregister chan *Client
	broadcast  chan roomMessage

	logger *zap.Logger

	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	runOnce sync.Once
}

// NewHub creates a hub; call Run to start it
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		rooms:      make(map[string]map[*Client]struct{}),
		register:   make(chan *Client, 64),
		unregister: make(chan *Client, 64),
		broadcast:  make(chan roomMessage, 256),
		logger:     logger.Named("live"),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

// Run is the hub event loop. It returns after Shutdown.
func (h *Hub) Run() {
	h.runOnce.Do(func() {
		defer close(h.done)
		for {
			select {
			case <-h.ctx.Done():
				h.disconnectAll()
				return

			case c := <-h.register:
				h.mu.Lock()
				if h.rooms[c.room] == nil {
					h.rooms[c.room] = make(map[*Client]struct{})
				}
				h.rooms[c.room][c] = struct{}{}
				h.mu.Unlock()
				h.logger.Debug("client joined", zap.String("client_id", c.ID), zap.String("room", c.room))

			case c := <-h.unregister:
				h.remove(c)

			case msg := <-h.broadcast:
				h.fanOut(msg)
			}
		}
	})
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients, ok := h.rooms[c.room]
	if !ok {
		return
	}
	if _, ok := clients[c]; !ok {
		return
	}
	delete(clients, c)
	if len(clients) == 0 {
		delete(h.rooms, c.room)
	}
	close(c.send)
	h.logger.Debug("client left", zap.String("client_id", c.ID), zap.String("room", c.room))
}

func (h *Hub) fanOut(msg roomMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[msg.room] {
		select {
		case c.send <- msg.data:
		default:
			h.logger.Warn("dropping event for slow client", zap.String("client_id", c.ID), zap.String("room", msg.room))
		}
	}
}

func (h *Hub) disconnectAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for room, clients := range h.rooms {
		for c := range clients {
			close(c.send)
			n++
		}
		delete(h.rooms, room)
	}
	h.logger.Info("live feed stopped", zap.Int("clients", n))
}

// Publish queues e for every client in room. Events are dropped, not
// blocked on, when the hub is saturated or stopped.
func (h *Hub) Publish(room string, e Event) {
	data, err := encodeEvent(e)
	if err != nil {
		h.logger.Error("encode event", zap.Error(err))
		return
	}
	select {
	case h.broadcast <- roomMessage{room: room, data: data}:
	case <-h.ctx.Done():
	default:
		h.logger.Warn("broadcast queue full, event dropped", zap.String("type", e.Type), zap.String("room", room))
	}
}

// RoomSize returns the number of clients in room
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// Shutdown stops the loop and disconnects every client
func (h *Hub) Shutdown(ctx context.Context) error {
	h.cancel()
	select {
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// StudyPublished announces a newly published study to study list subscribers
func (h *Hub) StudyPublished(s *store.WeeklyStudy) {
	h.Publish(AllStudies, Event{Type: EventStudyPublished, StudyID: s.ID, Data: s})
}

// ResponseCreated pushes a new response to the study's feed
func (h *Hub) ResponseCreated(r *store.StudyResponse) {
	h.Publish(StudyRoom(r.StudyID), Event{Type: EventResponseCreated, StudyID: r.StudyID, Data: r})
}

// ReactionChanged pushes updated reaction counts to the study's feed
func (h *Hub) ReactionChanged(studyID int64, result *store.ReactionResult) {
	h.Publish(StudyRoom(studyID), Event{Type: EventReactionChanged, StudyID: studyID, Data: result})
}

// ResponseHidden tells the study's feed to drop a moderated response
func (h *Hub) ResponseHidden(r *store.StudyResponse) {
	h.Publish(StudyRoom(r.StudyID), Event{
		Type:    EventResponseHidden,
		StudyID: r.StudyID,
		Data:    map[string]int64{"response_id": r.ID},
	})
}
