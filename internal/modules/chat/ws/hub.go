package ws

import (
	"context"
	"log"
)

type roomFrame struct {
	room    string
	payload []byte
}

type directFrame struct {
	client  *Client
	payload []byte
}

// Hub tracks which clients are connected to which room and fans frames out to them.
// All client bookkeeping happens on the Run goroutine.
type Hub struct {
	// Registered clients per room.
	rooms map[string]map[*Client]bool

	// Frames for every client in a room.
	broadcast chan roomFrame

	// Frames for a single client.
	direct chan directFrame

	register   chan *Client
	unregister chan *Client

	count chan countRequest
	done  chan struct{}
}

type countRequest struct {
	room  string
	reply chan int
}

func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		broadcast:  make(chan roomFrame),
		direct:     make(chan directFrame),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		count:      make(chan countRequest),
		done:       make(chan struct{}),
	}
}

// Run serves hub requests until ctx is cancelled, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			for _, clients := range h.rooms {
				for client := range clients {
					close(client.send)
				}
			}
			h.rooms = nil
			return
		case client := <-h.register:
			clients, ok := h.rooms[client.room]
			if !ok {
				clients = make(map[*Client]bool)
				h.rooms[client.room] = clients
			}
			clients[client] = true
			if client.greeting != nil {
				h.deliver(client, client.greeting)
			}
		case client := <-h.unregister:
			h.remove(client)
		case f := <-h.broadcast:
			for client := range h.rooms[f.room] {
				h.deliver(client, f.payload)
			}
		case f := <-h.direct:
			if h.rooms[f.client.room][f.client] {
				h.deliver(f.client, f.payload)
			}
		case req := <-h.count:
			req.reply <- len(h.rooms[req.room])
		}
	}
}

// deliver drops the client when its buffer is full.
func (h *Hub) deliver(client *Client, payload []byte) {
	select {
	case client.send <- payload:
	default:
		log.Printf("[chat] dropping slow client %s in room %s", client.userID, client.room)
		h.remove(client)
	}
}

func (h *Hub) remove(client *Client) {
	clients, ok := h.rooms[client.room]
	if !ok || !clients[client] {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.rooms, client.room)
	}
}

func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Broadcast queues payload for every client currently in room.
func (h *Hub) Broadcast(room string, payload []byte) {
	select {
	case h.broadcast <- roomFrame{room: room, payload: payload}:
	case <-h.done:
	}
}

func (h *Hub) Reply(client *Client, payload []byte) {
	select {
	case h.direct <- directFrame{client: client, payload: payload}:
	case <-h.done:
	}
}

// ClientCount reports how many clients are connected to room.
func (h *Hub) ClientCount(room string) int {
	reply := make(chan int, 1)
	select {
	case h.count <- countRequest{room: room, reply: reply}:
		return <-reply
	case <-h.done:
		return 0
	}
}
