package network

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"sync"

	"github.com/annel0/army-battle/internal/eventbus"
	"github.com/annel0/army-battle/internal/logging"
	"github.com/annel0/army-battle/internal/protocol"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var (
	// ErrHubStopped возвращается при запуске остановленного хаба
	ErrHubStopped = errors.New("hub stopped")
	// ErrGameGone - игра завершилась между проверкой и регистрацией клиента
	ErrGameGone = errors.New("game is gone")
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// GameLookup сообщает, существует ли игра. Используется для отказа в подписке на неизвестные игры.
type GameLookup func(gameID string) bool

// HubOptions настройки хаба
type HubOptions struct {
	SendBuffer int
	Lookup     GameLookup
	Metrics    *Metrics
}

// Hub раздает события игр подписанным WebSocket-клиентам.
// Клиенты группируются по комнатам: одна комната на игру.
type Hub struct {
	bus        eventbus.EventBus
	serializer *protocol.Serializer
	opts       HubOptions
	metrics    *Metrics
	logger     *logging.Logger

	mu      sync.RWMutex
	rooms   map[string]map[string]*Client
	sub     eventbus.Subscription
	stopped bool
}

// NewHub создает хаб. Start подписывает его на шину.
func NewHub(bus eventbus.EventBus, serializer *protocol.Serializer, opts HubOptions) *Hub {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 64
	}
	if serializer == nil {
		serializer = protocol.NewSerializer(false)
	}
	return &Hub{
		bus:        bus,
		serializer: serializer,
		opts:       opts,
		metrics:    opts.Metrics,
		logger:     logging.GetNetworkLogger(),
		rooms:      make(map[string]map[string]*Client),
	}
}

// Start подписывает хаб на события игр
func (h *Hub) Start(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped {
		return ErrHubStopped
	}
	if h.sub != nil {
		return nil
	}

	filter := eventbus.Filter{Types: []string{
		protocol.EventGameUpdate,
		protocol.EventGameStarted,
		protocol.EventGameStopped,
	}}
	sub, err := h.bus.Subscribe(ctx, filter, h.onEvent)
	if err != nil {
		return err
	}
	h.sub = sub
	h.logger.Info("WebSocket-хаб подписан на события игр")
	return nil
}

// Stop отписывается от шины и закрывает все соединения
func (h *Hub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped {
		return
	}
	h.stopped = true
	if h.sub != nil {
		h.sub.Unsubscribe()
	}
	for gameID, room := range h.rooms {
		for _, c := range room {
			c.close()
			h.metrics.disconnected()
		}
		delete(h.rooms, gameID)
	}
	h.logger.Info("WebSocket-хаб остановлен")
}

// ServeHTTP принимает подключение вида /ws?game=<id>
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	gameID := r.URL.Query().Get("game")
	if gameID == "" {
		http.Error(w, "game query parameter is required", http.StatusBadRequest)
		return
	}
	if h.opts.Lookup != nil && !h.opts.Lookup(gameID) {
		http.Error(w, "game not found", http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Ошибка апгрейда соединения %s: %v", r.RemoteAddr, err)
		return
	}

	frameType := websocket.TextMessage
	if h.serializer.Compressed() {
		frameType = websocket.BinaryMessage
	}
	c := &Client{
		id:        uuid.NewString(),
		gameID:    gameID,
		conn:      conn,
		send:      make(chan []byte, h.opts.SendBuffer),
		frameType: frameType,
	}

	welcome, err := h.serializer.Encode(protocol.NewMessage(protocol.MsgWelcome, gameID, nil))
	if err != nil {
		h.logger.Error("Не удалось закодировать приветствие: %v", err)
		conn.Close()
		return
	}
	c.send <- welcome

	if err := h.register(c); err != nil {
		closeMsg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
		if errors.Is(err, ErrGameGone) {
			closeMsg = websocket.FormatCloseMessage(websocket.CloseNormalClosure, "game stopped")
		}
		conn.WriteMessage(websocket.CloseMessage, closeMsg)
		conn.Close()
		return
	}

	go h.writePump(c)
	go h.readPump(c)
}

// Clients возвращает число клиентов, подписанных на игру
func (h *Hub) Clients(gameID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[gameID])
}

// Games возвращает отсортированный список игр с подписчиками
func (h *Hub) Games() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, 0, len(h.rooms))
	for id := range h.rooms {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// register добавляет клиента в комнату. Игра проверяется повторно под h.mu:
// closeRoom держит ту же блокировку, поэтому клиент не попадет в комнату,
// которую уже закрыл game.stopped.
func (h *Hub) register(c *Client) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped {
		return ErrHubStopped
	}
	if h.opts.Lookup != nil && !h.opts.Lookup(c.gameID) {
		return ErrGameGone
	}
	room, ok := h.rooms[c.gameID]
	if !ok {
		room = make(map[string]*Client)
		h.rooms[c.gameID] = room
	}
	room[c.id] = c
	h.metrics.connected()
	h.logger.Debug("Клиент %s подписан на игру %s", c.id, c.gameID)
	return nil
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[c.gameID]
	if !ok {
		return
	}
	if _, ok := room[c.id]; !ok {
		return
	}
	delete(room, c.id)
	if len(room) == 0 {
		delete(h.rooms, c.gameID)
	}
	c.close()
	h.metrics.disconnected()
	h.logger.Debug("Клиент %s отключен от игры %s", c.id, c.gameID)
}

// onEvent переводит событие шины в сообщение и рассылает его комнате игры.
// После game.stopped комната закрывается.
func (h *Hub) onEvent(_ context.Context, ev *eventbus.Envelope) {
	msgType, ok := protocol.MessageTypeForEvent(ev.EventType)
	if !ok {
		return
	}
	gameID := ev.Metadata["game_id"]
	if gameID == "" {
		return
	}

	frame, err := h.serializer.Encode(protocol.NewMessage(msgType, gameID, ev.Payload))
	if err != nil {
		h.logger.Warn("Не удалось закодировать %s для игры %s: %v", ev.EventType, gameID, err)
		return
	}

	if msgType == protocol.MsgGameStop {
		h.closeRoom(gameID, frame)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.rooms[gameID] {
		if !c.enqueue(frame) {
			h.metrics.drop()
		}
	}
}

func (h *Hub) closeRoom(gameID string, last []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room := h.rooms[gameID]
	for _, c := range room {
		if !c.enqueue(last) {
			h.metrics.drop()
		}
		c.close()
		h.metrics.disconnected()
	}
	delete(h.rooms, gameID)
}
