package websocket

import (
	"context"

	"github.com/isdelr/diary-be/internal/metrics"
	"github.com/isdelr/diary-be/internal/models"
	"github.com/rs/zerolog/log"
)

type ownerMessage struct {
	ownerID string
	data    []byte
}

type clientMessage struct {
	client *Client
	data   []byte
}

// Hub maintains the set of active clients and fans entry events out to the
// clients of the entry's owner. A client only ever receives events for the
// user it authenticated as.
type Hub struct {
	// Registered clients.
	clients map[*Client]bool

	// A map of owner ids to the set of clients streaming that owner's entries.
	subscriptions map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	publish    chan ownerMessage
	direct     chan clientMessage
	count      chan chan int
	done       chan struct{}

	metrics *metrics.Metrics
}

// NewHub creates a new Hub. m may be nil.
func NewHub(m *metrics.Metrics) *Hub {
	return &Hub{
		clients:       make(map[*Client]bool),
		subscriptions: make(map[string]map[*Client]bool),
		register:      make(chan *Client),
		unregister:    make(chan *Client),
		publish:       make(chan ownerMessage, 64),
		direct:        make(chan clientMessage, 16),
		count:         make(chan chan int),
		done:          make(chan struct{}),
		metrics:       m,
	}
}

// Run processes hub events until ctx is cancelled, then disconnects every
// client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				h.drop(client)
			}
			log.Info().Msg("Entry stream hub stopped")
			return
		case client := <-h.register:
			h.clients[client] = true
			h.addSubscription(client, client.OwnerID)
			h.metrics.SetStreamClients(len(h.clients))
			log.Info().Int("total_clients", len(h.clients)).Msg("Client connected")
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				h.drop(client)
				log.Info().Int("total_clients", len(h.clients)).Msg("Client disconnected")
			}
		case msg := <-h.publish:
			for client := range h.subscriptions[msg.ownerID] {
				select {
				case client.Send <- msg.data:
				default:
					log.Warn().Str("user_id", client.OwnerID).Msg("Dropping slow stream client")
					h.drop(client)
				}
			}
		case msg := <-h.direct:
			if _, ok := h.clients[msg.client]; ok {
				select {
				case msg.client.Send <- msg.data:
				default:
				}
			}
		case reply := <-h.count:
			reply <- len(h.clients)
		}
	}
}

// Register adds client. It is a no-op once the hub has stopped.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		close(client.Send)
	}
}

// Unregister removes client and closes its send channel.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Publish queues entry for delivery to its owner's clients. It satisfies
// services.EntryPublisher.
func (h *Hub) Publish(ownerID string, entry models.DiaryEntry) {
	data := NewEntryCreatedMessage(entry)
	if data == nil {
		return
	}
	select {
	case h.publish <- ownerMessage{ownerID: ownerID, data: data}:
	case <-h.done:
	}
}

// Reply queues data for a single client. Replies to clients that are no
// longer registered, or whose buffer is full, are dropped.
func (h *Hub) Reply(client *Client, data []byte) {
	select {
	case h.direct <- clientMessage{client: client, data: data}:
	case <-h.done:
	}
}

// Clients returns the number of connected clients, or 0 once stopped.
func (h *Hub) Clients() int {
	reply := make(chan int, 1)
	select {
	case h.count <- reply:
		return <-reply
	case <-h.done:
		return 0
	}
}

func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	close(client.Send)
	h.removeSubscription(client)
	h.metrics.SetStreamClients(len(h.clients))
}

func (h *Hub) addSubscription(client *Client, ownerID string) {
	if h.subscriptions[ownerID] == nil {
		h.subscriptions[ownerID] = make(map[*Client]bool)
	}
	h.subscriptions[ownerID][client] = true
}

func (h *Hub) removeSubscription(client *Client) {
	subs, ok := h.subscriptions[client.OwnerID]
	if !ok {
		return
	}
	delete(subs, client)
	if len(subs) == 0 {
		delete(h.subscriptions, client.OwnerID)
	}
}
