package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/FranMor97/Book-Server/internal/auth"
	"github.com/google/uuid"
)

// Conn is the part of *websocket.Conn the hub writes to.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	Close() error
}

type State int

const (
	StatePending State = iota
	StateAuthenticated
	StateClosed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "closed"
	}
}

// Client is one socket. A client starts pending and becomes authenticated
// at most once; a closed client never reopens.
type Client struct {
	ID   string
	conn Conn

	writeMu sync.Mutex

	mu       sync.RWMutex
	state    State
	identity auth.Identity

	closeOnce sync.Once
	done      chan struct{}
}

func NewClient(conn Conn) *Client {
	return &Client{
		ID:    uuid.NewString(),
		conn:  conn,
		state: StatePending,
		done:  make(chan struct{}),
	}
}

func (c *Client) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Client) IsAuthenticated() bool {
	return c.State() == StateAuthenticated
}

// UserID is zero until the client authenticates.
func (c *Client) UserID() uint {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.identity.UserID
}

// authenticate moves a pending client to authenticated. It reports false if
// the client was not pending.
func (c *Client) authenticate(identity auth.Identity) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StatePending {
		return false
	}
	c.state = StateAuthenticated
	c.identity = identity
	return true
}

// Send writes a single envelope to this client.
func (c *Client) Send(event string, payload interface{}) error {
	data, err := encodeEnvelope(event, payload)
	if err != nil {
		return err
	}
	return c.write(data)
}

func (c *Client) write(data []byte) error {
	if c.State() == StateClosed {
		return errClientClosed
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(textMessage, data)
}

func (c *Client) ping(timeout time.Duration) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteControl(pingMessage, []byte{}, time.Now().Add(timeout))
}

// Close is idempotent. Closing the socket also ends the read loop.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.state = StateClosed
		c.mu.Unlock()
		close(c.done)
		c.conn.Close()
	})
}

func (c *Client) Done() <-chan struct{} {
	return c.done
}

func encodeEnvelope(event string, payload interface{}) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(SerializedMessage{Type: event, Payload: raw})
}
