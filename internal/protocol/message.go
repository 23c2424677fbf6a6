package protocol

import (
	"encoding/json"
	"time"
)

// Типы событий шины и сообщений клиенту
const (
	EventGameUpdate  = "game.update"
	EventGameStarted = "game.started"
	EventGameStopped = "game.stopped"
)

// MessageType определяет тип сообщения, отправляемого клиенту WebSocket
type MessageType string

const (
	MsgWelcome    MessageType = "welcome"
	MsgGameUpdate MessageType = EventGameUpdate
	MsgGameStart  MessageType = EventGameStarted
	MsgGameStop   MessageType = EventGameStopped
	MsgError      MessageType = "error"
)

// Message - кадр протокола клиента. Data содержит JSON полезной нагрузки события.
type Message struct {
	Type      MessageType     `json:"type"`
	GameID    string          `json:"gameId,omitempty"`
	Timestamp int64           `json:"ts"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMessage создает сообщение с текущим временем в миллисекундах
func NewMessage(msgType MessageType, gameID string, data []byte) *Message {
	return &Message{
		Type:      msgType,
		GameID:    gameID,
		Timestamp: time.Now().UnixMilli(),
		Data:      data,
	}
}

// MessageTypeForEvent сопоставляет тип события шины типу сообщения клиенту
func MessageTypeForEvent(eventType string) (MessageType, bool) {
	switch eventType {
	case EventGameUpdate:
		return MsgGameUpdate, true
	case EventGameStarted:
		return MsgGameStart, true
	case EventGameStopped:
		return MsgGameStop, true
	default:
		return "", false
	}
}
