package network

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 4096
)

// Client представляет подключенного наблюдателя одной игры
type Client struct {
	id        string
	gameID    string
	conn      *websocket.Conn
	send      chan []byte
	frameType int
	closeOnce sync.Once
}

// ID возвращает идентификатор соединения
func (c *Client) ID() string { return c.id }

// GameID возвращает игру, на которую подписан клиент
func (c *Client) GameID() string { return c.gameID }

// enqueue кладет кадр в очередь отправки. При переполненной очереди кадр теряется.
// Вызывается только под блокировкой хаба, поэтому не пересекается с close.
func (c *Client) enqueue(frame []byte) bool {
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() { close(c.send) })
}

// readPump читает входящие кадры только ради ping/pong и обнаружения закрытия
func (h *Hub) readPump(c *Client) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Debug("Клиент %s: ошибка чтения: %v", c.id, err)
			}
			return
		}
	}
}

// writePump отправляет кадры из очереди и периодический ping
func (h *Hub) writePump(c *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(c.frameType, frame); err != nil {
				return
			}
			h.metrics.sent()

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
