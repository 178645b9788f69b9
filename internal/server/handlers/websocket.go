// internal/server/handlers/websocket.go

package handlers

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"github.com/cb671/streetsafe-server/internal/logger"
)

// WebSocketConfig contains configuration for WebSocket connections
type WebSocketConfig struct {
	// Time allowed to write a message to the peer
	WriteWait time.Duration

	// Time allowed to read the next pong message from the peer
	PongWait time.Duration

	// Send pings to peer with this period
	PingPeriod time.Duration

	// Maximum message size allowed from peer
	MaxMessageSize int64

	// Number of queued events per client before events are dropped
	SendBuffer int
}

// DefaultWebSocketConfig returns the default WebSocket configuration
func DefaultWebSocketConfig() WebSocketConfig {
	return WebSocketConfig{
		WriteWait:      10 * time.Second,
		PongWait:       60 * time.Second,
		PingPeriod:     (60 * time.Second * 9) / 10,
		MaxMessageSize: 4 * 1024,
		SendBuffer:     64,
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// feedClient is one connected map feature subscriber
type feedClient struct {
	conn   *websocket.Conn
	send   chan []byte
	done   chan struct{}
	once   sync.Once
	sub    *nats.Subscription
	config WebSocketConfig
	log    logrus.FieldLogger
}

// MapFeaturesWebSocketHandler streams events published on subject to
// WebSocket clients. Without a NATS connection the feed is unavailable.
func MapFeaturesWebSocketHandler(natsConn *nats.Conn, subject string, config WebSocketConfig) http.HandlerFunc {
	if config.PingPeriod <= 0 || config.PongWait <= 0 {
		config = DefaultWebSocketConfig()
	}
	if config.SendBuffer <= 0 {
		config.SendBuffer = 1
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if natsConn == nil {
			respondWithError(w, http.StatusServiceUnavailable, "Live feed unavailable", nil)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.L().WithError(err).Warn("websocket_upgrade_failed")
			return
		}

		client := &feedClient{
			conn:   conn,
			send:   make(chan []byte, config.SendBuffer),
			done:   make(chan struct{}),
			config: config,
			log:    logger.L().WithField("remote", r.RemoteAddr),
		}

		client.sub, err = natsConn.Subscribe(subject, client.deliver)
		if err != nil {
			client.log.WithError(err).Error("feed_subscribe_failed")
			conn.Close()
			return
		}

		welcome, _ := json.Marshal(map[string]interface{}{
			"type":    "welcome",
			"subject": subject,
			"time":    time.Now().UTC(),
		})
		client.deliver(&nats.Msg{Data: welcome})

		client.log.Info("feed_client_connected")

		go client.writePump()
		go client.readPump()
	}
}

// deliver queues an event, dropping it when the client is slow or gone
func (c *feedClient) deliver(msg *nats.Msg) {
	select {
	case <-c.done:
	case c.send <- msg.Data:
	default:
		c.log.Debug("feed_event_dropped")
	}
}

// readPump drains control frames until the peer goes away
func (c *feedClient) readPump() {
	defer c.close()

	c.conn.SetReadLimit(c.config.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.WithError(err).Warn("feed_read_failed")
			}
			return
		}
	}
}

// writePump forwards queued events and keeps the connection alive
func (c *feedClient) writePump() {
	ticker := time.NewTicker(c.config.PingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case <-c.done:
			return

		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// close releases the subscription and connection once
func (c *feedClient) close() {
	c.once.Do(func() {
		close(c.done)
		if c.sub != nil {
			c.sub.Unsubscribe()
		}
		c.conn.Close()
		c.log.Info("feed_client_disconnected")
	})
}
