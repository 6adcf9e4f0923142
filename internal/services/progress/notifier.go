package progress

import (
	"encoding/json"
	"log"
	"sync"
)

// Event is a single progress notification payload. Events are maps so any
// transport (Wails runtime events, websockets) can serialize them directly.
type Event map[string]interface{}

// Type returns the event's type field, or "" when absent
func (e Event) Type() string {
	t, _ := e["type"].(string)
	return t
}

// Conn is one connected frontend client. Send must be safe for concurrent use.
type Conn interface {
	ID() string
	Send(ev Event) error
	Close() error
}

type subscriber struct {
	conn  Conn
	jobID string // "" means not subscribed to any job yet
}

// Notifier fans translation progress events out to registered clients.
// Delivery is asynchronous and best-effort: a failing client is dropped,
// never blocking job execution.
type Notifier struct {
	mu    sync.RWMutex
	conns map[string]*subscriber
}

func NewNotifier() *Notifier {
	return &Notifier{
		conns: make(map[string]*subscriber),
	}
}

// Register adds a client and sends it the connected greeting
func (n *Notifier) Register(conn Conn) {
	n.mu.Lock()
	n.conns[conn.ID()] = &subscriber{conn: conn}
	n.mu.Unlock()

	log.Printf("Progress client connected: %s", conn.ID())
	go n.deliver([]Conn{conn}, NewConnectedEvent())
}

// Unregister removes a client and closes its connection
func (n *Notifier) Unregister(connID string) {
	n.mu.Lock()
	sub, ok := n.conns[connID]
	if ok {
		delete(n.conns, connID)
	}
	n.mu.Unlock()

	if ok {
		_ = sub.conn.Close()
		log.Printf("Progress client disconnected: %s", connID)
	}
}

// Subscribe tags a client with a job ID so it receives that job's events.
// Unknown clients are ignored.
func (n *Notifier) Subscribe(connID, jobID string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	sub, ok := n.conns[connID]
	if !ok {
		log.Printf("Subscribe from unknown client %s ignored", connID)
		return
	}
	sub.jobID = jobID
}

// HandleMessage processes an inbound client message. Supported types are
// "subscribe" (with jobId) and "ping"; anything else is logged and ignored.
func (n *Notifier) HandleMessage(connID string, raw []byte) {
	var msg struct {
		Type  string `json:"type"`
		JobID string `json:"jobId"`
	}
	if err := json.Unmarshal(raw, &msg); err != nil {
		log.Printf("Malformed progress message from %s: %v", connID, err)
		return
	}

	switch msg.Type {
	case "subscribe":
		n.Subscribe(connID, msg.JobID)
	case "ping":
		n.mu.RLock()
		sub, ok := n.conns[connID]
		n.mu.RUnlock()
		if ok {
			go n.deliver([]Conn{sub.conn}, Event{
				"type":      "pong",
				"timestamp": isoNow(),
			})
		}
	default:
		log.Printf("Unknown progress message type %q from %s", msg.Type, connID)
	}
}

// Publish sends an event to every client subscribed to the given job
func (n *Notifier) Publish(jobID string, ev Event) {
	n.mu.RLock()
	var targets []Conn
	for _, sub := range n.conns {
		if sub.jobID == jobID {
			targets = append(targets, sub.conn)
		}
	}
	n.mu.RUnlock()

	if len(targets) > 0 {
		go n.deliver(targets, ev)
	}
}

// Broadcast sends an event to every connected client regardless of subscription
func (n *Notifier) Broadcast(ev Event) {
	n.mu.RLock()
	targets := make([]Conn, 0, len(n.conns))
	for _, sub := range n.conns {
		targets = append(targets, sub.conn)
	}
	n.mu.RUnlock()

	if len(targets) > 0 {
		go n.deliver(targets, ev)
	}
}

// ClientCount returns the number of registered clients
func (n *Notifier) ClientCount() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.conns)
}

func (n *Notifier) deliver(targets []Conn, ev Event) {
	for _, conn := range targets {
		if err := conn.Send(ev); err != nil {
			log.Printf("Dropping progress client %s: %v", conn.ID(), err)
			n.Unregister(conn.ID())
		}
	}
}
