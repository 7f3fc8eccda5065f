package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/your-org/vsconsole/internal/models"
	"github.com/your-org/vsconsole/internal/observability"
	"github.com/your-org/vsconsole/internal/poller"
	"github.com/your-org/vsconsole/pkg/dto"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
}

// Client represents a connected WebSocket client.
type Client struct {
	conn  *websocket.Conn
	send  chan []byte
	jobID string // optional filter
}

type direct struct {
	client *Client
	data   []byte
}

// Hub maintains active WebSocket clients. Broadcast events go to every
// client; a client subscribed to a job also gets that job's status updates
// from a poller that lives as long as its socket.
type Hub struct {
	poller *poller.Poller

	clients    map[*Client]bool
	broadcast  chan []byte
	direct     chan direct
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
}

func NewHub(p *poller.Poller) *Hub {
	return &Hub{
		poller:     p,
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		direct:     make(chan direct, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run starts the hub event loop until ctx is done. Call this in a goroutine.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
				observability.WSConnections.Dec()
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			observability.WSConnections.Inc()
			slog.Debug("ws client connected", "job_id", client.jobID)

		case client := <-h.unregister:
			h.drop(client)
			slog.Debug("ws client disconnected")

		case msg := <-h.direct:
			h.mu.RLock()
			_, ok := h.clients[msg.client]
			h.mu.RUnlock()
			if ok {
				h.deliver(msg.client, msg.data)
			}

		case message := <-h.broadcast:
			h.mu.RLock()
			targets := make([]*Client, 0, len(h.clients))
			for client := range h.clients {
				targets = append(targets, client)
			}
			h.mu.RUnlock()
			for _, client := range targets {
				h.deliver(client, message)
			}
		}
	}
}

// deliver queues a message; a client whose buffer is full is disconnected.
func (h *Hub) deliver(client *Client, data []byte) {
	select {
	case client.send <- data:
	default:
		h.drop(client)
	}
}

func (h *Hub) drop(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
		observability.WSConnections.Dec()
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// BroadcastEvent sends a console event to all connected clients. Events
// sent after the hub stopped are dropped.
func (h *Hub) BroadcastEvent(event dto.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		slog.Error("marshal ws event", "error", err)
		return
	}
	select {
	case h.broadcast <- data:
	case <-h.done:
	}
}

// HandleEvent is the queue handler feeding the hub.
func (h *Hub) HandleEvent(_ context.Context, event dto.Event) error {
	h.BroadcastEvent(event)
	return nil
}

// HandleWS handles WebSocket upgrade requests. With ?job_id= the socket
// also receives job_update events until the job is terminal.
func (h *Hub) HandleWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Error("ws upgrade failed", "error", err)
		return
	}

	client := &Client{
		conn:  conn,
		send:  make(chan []byte, 64),
		jobID: c.Query("job_id"),
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	go client.writePump()
	go client.readPump(h, cancel)
	if client.jobID != "" && h.poller != nil {
		go h.follow(ctx, client)
	}
}

// follow polls the client's job for as long as the socket is open.
func (h *Hub) follow(ctx context.Context, client *Client) {
	_, err := h.poller.Poll(ctx, client.jobID, func(job models.Job) {
		evt := dto.NewEvent(dto.EventJobUpdate)
		evt.JobID = job.JobID
		evt.Job = &job
		h.sendTo(ctx, client, evt)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		evt := dto.NewEvent(dto.EventJobError)
		evt.JobID = client.jobID
		evt.Error = err.Error()
		h.sendTo(ctx, client, evt)
	}
}

func (h *Hub) sendTo(ctx context.Context, client *Client, evt dto.Event) {
	data, err := json.Marshal(evt)
	if err != nil {
		slog.Error("marshal ws event", "error", err)
		return
	}
	select {
	case h.direct <- direct{client: client, data: data}:
	case <-ctx.Done():
	case <-h.done:
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

func (c *Client) readPump(h *Hub, cancel context.CancelFunc) {
	defer func() {
		cancel()
		select {
		case h.unregister <- c:
		case <-h.done:
		}
		c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
		// Incoming messages are ignored; the loop only detects disconnection.
	}
}
