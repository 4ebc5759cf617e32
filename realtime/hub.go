package realtime

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/camden-git/echobackend/models"
)

const EventEntryStatus = "entry_status"

// Event represents a message sent to websocket clients
type Event struct {
	Type         string `json:"type"`
	EntryID      string `json:"entry_id"`
	Status       string `json:"status"`
	MoodScore    *int   `json:"mood_score,omitempty"`
	PrimaryTag   string `json:"primary_mood_tag,omitempty"`
	ErrorMessage string `json:"error,omitempty"`
	Timestamp    int64  `json:"timestamp"`
}

type Client struct {
	userID string
	conn   *websocket.Conn
	send   chan []byte
}

type message struct {
	userID  string
	payload []byte
}

// Hub fans entry events out to the websocket clients of the entry's owner
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan message
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan message, 256),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
		case client := <-h.unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()
		case msg := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				if client.userID != msg.userID {
					continue
				}
				select {
				case client.send <- msg.payload:
				default:
					// slow consumer
					h.remove(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// remove must be called with mu held
func (h *Hub) remove(client *Client) {
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
}

// ClientCount returns the number of connected clients for userID
func (h *Hub) ClientCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for client := range h.clients {
		if client.userID == userID {
			n++
		}
	}
	return n
}

// Publish queues event for every client of userID. Events are dropped when the hub is backed up.
func (h *Hub) Publish(userID string, event Event) {
	encoded, err := json.Marshal(event)
	if err != nil {
		log.WithError(err).Error("realtime: failed to marshal event")
		return
	}
	select {
	case h.broadcast <- message{userID: userID, payload: encoded}:
	default:
		log.WithField("entry_id", event.EntryID).Warn("realtime: dropping event, broadcast channel full")
	}
}

// NotifyEntry publishes the entry's current status to its owner
func (h *Hub) NotifyEntry(entry *models.MoodEntry) {
	if entry == nil {
		return
	}
	event := Event{
		Type:      EventEntryStatus,
		EntryID:   entry.ID,
		Status:    entry.Status,
		MoodScore: entry.MoodScore,
		Timestamp: time.Now().Unix(),
	}
	if entry.PrimaryMoodTag != nil {
		event.PrimaryTag = *entry.PrimaryMoodTag
	}
	if entry.ErrorMessage != nil {
		event.ErrorMessage = *entry.ErrorMessage
	}
	h.Publish(entry.UserID, event)
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWS upgrades the connection and registers a client for userID
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, userID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("realtime: websocket upgrade error")
		return
	}
	client := &Client{userID: userID, conn: conn, send: make(chan []byte, 256)}
	h.register <- client

	// writer
	go func() {
		for msg := range client.send {
			if err := client.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				break
			}
		}
		client.conn.Close()
	}()

	// reader (just consume pings/close)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.unregister <- client
}
