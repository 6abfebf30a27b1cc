package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"taverna/internal/auth"
	"taverna/internal/chat"
	"taverna/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// WebSocket upgrader configuration
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Frame types sent to chat clients
const (
	frameHistory = "history"
	frameMessage = "message"
	frameError   = "error"
)

// chatFrame is one server-to-client websocket message
type chatFrame struct {
	Type     string               `json:"type"`
	Message  *models.ChatMessage  `json:"message,omitempty"`
	Messages []models.ChatMessage `json:"messages,omitempty"`
	Error    string               `json:"error,omitempty"`
}

// WSConnection maintains the chat websocket of one guest
type WSConnection struct {
	conn   *websocket.Conn
	send   chan []byte
	mu     sync.Mutex
	closed bool
	guest  string
	server *SiteAPI
	ctx    context.Context
	cancel context.CancelFunc
}

// handleChatSocket upgrades the request and streams the conversation. A
// sent message produces the user frame, a loading placeholder frame and,
// once the assistant answers, a frame with the same id.
func (s *SiteAPI) handleChatSocket(c *gin.Context) {
	guest := auth.GuestID(c)
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Failed to upgrade connection: %v", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	wsConn := &WSConnection{
		conn:   conn,
		send:   make(chan []byte, 64),
		guest:  guest,
		server: s,
		ctx:    ctx,
		cancel: cancel,
	}
	wsConn.sendFrame(chatFrame{Type: frameHistory, Messages: wsConn.conversation().Messages()})

	go wsConn.writePump()
	go wsConn.readPump()
}

// readPump pumps messages from the WebSocket connection to the handler
func (c *WSConnection) readPump() {
	defer func() {
		c.cancel()
		c.mu.Lock()
		c.closed = true
		close(c.send)
		c.mu.Unlock()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(64 * 1024)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}
		c.handleMessage(message)
	}
}

// writePump pumps messages from the server to the WebSocket connection
func (c *WSConnection) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// conversation looks the guest's conversation up on every use so a long
// lived socket keeps it from going idle
func (c *WSConnection) conversation() *chat.Conversation {
	return c.server.chats.For(c.ctx, c.guest)
}

// handleMessage processes incoming messages
func (c *WSConnection) handleMessage(message []byte) {
	var req chatRequest
	if err := json.Unmarshal(message, &req); err != nil {
		c.sendError("Invalid message format")
		return
	}
	conv := c.conversation()

	switch req.Type {
	case "clear":
		conv.Clear(c.ctx)
		c.sendFrame(chatFrame{Type: frameHistory, Messages: conv.Messages()})
	case "", "message":
		user, placeholder, err := conv.Begin(c.ctx, req.Text)
		if err != nil {
			c.sendError(err.Error())
			return
		}
		c.sendFrame(chatFrame{Type: frameMessage, Message: &user})
		c.sendFrame(chatFrame{Type: frameMessage, Message: &placeholder})

		go func() {
			reply, err := conv.Resolve(context.WithoutCancel(c.ctx), placeholder.ID)
			if err != nil {
				c.sendError(err.Error())
				return
			}
			c.server.metrics.RecordItemCards(len(reply.ItemCards))
			c.sendFrame(chatFrame{Type: frameMessage, Message: &reply})
		}()
	default:
		c.sendError("Unknown message type: " + req.Type)
	}
}

func (c *WSConnection) sendFrame(frame chatFrame) {
	data, err := json.Marshal(frame)
	if err != nil {
		log.Printf("Error marshaling frame: %v", err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- data:
	default:
		log.Println("WebSocket buffer full, dropping message")
	}
}

// sendError sends an error message to the client
func (c *WSConnection) sendError(message string) {
	c.sendFrame(chatFrame{Type: frameError, Error: message})
}
