package client

import (
	"encoding/json"
	"log"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"autoinput/internal/protocol"
)

// WSClient keeps a WebSocket connection to the service and reconnects when it drops
type WSClient struct {
	addr  string
	token string
	send  chan protocol.Message
	done  chan struct{}

	// Callbacks
	OnActionStopped func(protocol.ActionStoppedPayload)
	OnStatus        func(protocol.StatusPayload)
	OnError         func(protocol.ErrorPayload)
	OnConnect       func()

	// ReconnectDelay is the pause between connection attempts
	ReconnectDelay time.Duration

	mu          sync.Mutex
	isConnected bool
	closeOnce   sync.Once
}

// NewWSClient creates a new WebSocket client
func NewWSClient(addr, token string) *WSClient {
	return &WSClient{
		addr:           addr,
		token:          token,
		send:           make(chan protocol.Message, 100),
		done:           make(chan struct{}),
		ReconnectDelay: 5 * time.Second,
	}
}

// Start begins the client loop (connect & process)
func (c *WSClient) Start() {
	go c.loop()
}

func (c *WSClient) loop() {
	for {
		c.connect()

		// If connect returns, it means we disconnected. Wait a bit and retry.
		select {
		case <-c.done:
			return
		case <-time.After(c.ReconnectDelay):
			log.Println("WS Client: Attempting reconnection...")
		}
	}
}

func (c *WSClient) connect() {
	u := url.URL{Scheme: "ws", Host: c.addr, Path: "/ws"}
	header := http.Header{}
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), header)
	if err != nil {
		log.Printf("WS Client: Connection to %s failed: %v", u.String(), err)
		return
	}
	defer conn.Close()

	c.mu.Lock()
	c.isConnected = true
	c.mu.Unlock()
	log.Printf("WS Client: Connected to %s", u.String())

	if c.OnConnect != nil {
		c.OnConnect()
	}

	connDone := make(chan struct{})
	go func() {
		defer close(connDone)
		c.writePump(conn)
	}()

	c.readPump(conn)

	c.mu.Lock()
	c.isConnected = false
	c.mu.Unlock()

	// Unblock the write pump if it is still waiting
	conn.Close()
	<-connDone
}

func (c *WSClient) readPump(conn *websocket.Conn) {
	conn.SetReadLimit(4096)
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPingHandler(func(data string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(10*time.Second))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
			default:
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Printf("WS Client: Read error: %v", err)
				}
			}
			return
		}

		var msg protocol.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("WS Client: Invalid message: %v", err)
			continue
		}
		c.handleMessage(msg)
	}
}

func (c *WSClient) writePump(conn *websocket.Conn) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg := <-c.send:
			data, err := json.Marshal(msg)
			if err != nil {
				log.Printf("WS Client: Marshal error: %v", err)
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Printf("WS Client: Write error: %v", err)
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			conn.Close()
			return
		}
	}
}

func (c *WSClient) handleMessage(msg protocol.Message) {
	switch msg.Type {
	case protocol.TypeActionStopped:
		var p protocol.ActionStoppedPayload
		if err := msg.Decode(&p); err != nil {
			log.Printf("WS Client: %v", err)
			return
		}
		if c.OnActionStopped != nil {
			c.OnActionStopped(p)
		}

	case protocol.TypeStatus:
		var p protocol.StatusPayload
		if err := msg.Decode(&p); err != nil {
			log.Printf("WS Client: %v", err)
			return
		}
		if c.OnStatus != nil {
			c.OnStatus(p)
		}

	case protocol.TypeError:
		var p protocol.ErrorPayload
		if err := msg.Decode(&p); err != nil {
			log.Printf("WS Client: %v", err)
			return
		}
		if c.OnError != nil {
			c.OnError(p)
		} else {
			log.Printf("WS Client: %s failed: %s", p.Request, p.Message)
		}
	}
}

func (c *WSClient) queue(t protocol.MessageType, payload interface{}) {
	msg, err := protocol.NewMessage(t, payload)
	if err != nil {
		log.Printf("WS Client: %v", err)
		return
	}
	select {
	case c.send <- msg:
	case <-c.done:
	}
}

// SendToggle asks the service to toggle a setup
func (c *WSClient) SendToggle(setup string) {
	c.queue(protocol.TypeToggle, protocol.SetupPayload{Setup: setup})
}

// SendDrag updates the drag vector of the running hold
func (c *WSClient) SendDrag(dx, dy float64) {
	c.queue(protocol.TypeDrag, protocol.DragPayload{DX: dx, DY: dy})
}

// RequestStatus asks the service for a status message
func (c *WSClient) RequestStatus() {
	c.queue(protocol.TypeStatus, nil)
}

// IsConnected returns true if the client is connected
func (c *WSClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isConnected
}

// Close stops the client
func (c *WSClient) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}
