package eventconsumers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	pubsub "github.com/jiaming2012/ward-market/src/eventpubsub"
	"github.com/jiaming2012/ward-market/src/simulation-api/models"
)

const (
	clientBuffer = 64
	writeTimeout = 10 * time.Second
	pongTimeout  = 60 * time.Second
	pingInterval = 30 * time.Second
)

type hubClient struct {
	conn *websocket.Conn
	send chan *models.WorldEvent
}

// WebsocketHub streams world events to connected websocket clients as JSON.
// A client that falls behind by more than its buffer is disconnected.
type WebsocketHub struct {
	mu       sync.Mutex
	clients  map[*hubClient]struct{}
	upgrader websocket.Upgrader
	closed   bool
}

func NewWebsocketHub() *WebsocketHub {
	return &WebsocketHub{
		clients: make(map[*hubClient]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

func (h *WebsocketHub) Start(ctx context.Context, bus *pubsub.Bus) error {
	if err := bus.SubscribeAll(h.Broadcast); err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		log.Info("stopping WebsocketHub consumer")
		h.Close()
	}()

	log.Info("started WebsocketHub consumer")
	return nil
}

func (h *WebsocketHub) Broadcast(ev *models.WorldEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		select {
		case c.send <- ev:
		default:
			log.Warn("WebsocketHub: client too slow, disconnecting")
			h.remove(c)
		}
	}
}

func (h *WebsocketHub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *WebsocketHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for c := range h.clients {
		h.remove(c)
	}
}

// ServeHTTP upgrades the request and keeps the connection until the peer
// goes away or the hub closes.
func (h *WebsocketHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Errorf("WebsocketHub: upgrade failed: %v", err)
		return
	}

	c := &hubClient{conn: conn, send: make(chan *models.WorldEvent, clientBuffer)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	go h.writePump(c)
	h.readPump(c)
}

// remove must be called with h.mu held.
func (h *WebsocketHub) remove(c *hubClient) {
	if _, found := h.clients[c]; !found {
		return
	}

	delete(h.clients, c)
	close(c.send)
}

func (h *WebsocketHub) readPump(c *hubClient) {
	defer func() {
		h.mu.Lock()
		h.remove(c)
		h.mu.Unlock()
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Errorf("WebsocketHub: ReadMessage(): %v", err)
			}
			return
		}
	}
}

func (h *WebsocketHub) writePump(c *hubClient) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case ev, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(ev); err != nil {
				log.Errorf("WebsocketHub: WriteJSON(): %v", err)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
