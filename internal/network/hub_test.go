package network

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/annel0/army-battle/internal/eventbus"
	"github.com/annel0/army-battle/internal/protocol"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T, compress bool, lookup GameLookup) (*Hub, eventbus.EventBus, *httptest.Server) {
	t.Helper()
	bus := eventbus.NewMemoryBus(64)
	hub := NewHub(bus, protocol.NewSerializer(compress), HubOptions{Lookup: lookup})
	require.NoError(t, hub.Start(context.Background()))

	srv := httptest.NewServer(hub)
	t.Cleanup(func() {
		hub.Stop()
		srv.Close()
		bus.Close()
	})
	return hub, bus, srv
}

func dial(t *testing.T, srv *httptest.Server, gameID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?game=" + gameID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn, s *protocol.Serializer) protocol.Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg protocol.Message
	require.NoError(t, s.Decode(data, &msg))
	return msg
}

func publish(t *testing.T, bus eventbus.EventBus, eventType, gameID, payload string) {
	t.Helper()
	env := eventbus.NewEnvelope("test", eventType, []byte(payload), map[string]string{"game_id": gameID})
	require.NoError(t, bus.Publish(context.Background(), env))
}

func TestHub_RoutesEventsByGame(t *testing.T) {
	hub, bus, srv := startHub(t, false, nil)
	s := protocol.NewSerializer(false)

	conn := dial(t, srv, "g1")
	welcome := readMessage(t, conn, s)
	assert.Equal(t, protocol.MsgWelcome, welcome.Type)
	assert.Equal(t, "g1", welcome.GameID)
	assert.Equal(t, 1, hub.Clients("g1"))

	publish(t, bus, protocol.EventGameUpdate, "g2", `{"loopCount":1}`)
	publish(t, bus, protocol.EventGameUpdate, "g1", `{"loopCount":2}`)

	msg := readMessage(t, conn, s)
	assert.Equal(t, protocol.MsgGameUpdate, msg.Type)
	assert.Equal(t, "g1", msg.GameID, "Событие чужой игры не должно доходить до клиента")
	assert.JSONEq(t, `{"loopCount":2}`, string(msg.Data))
}

func TestHub_CompressedFramesAreBinary(t *testing.T) {
	_, bus, srv := startHub(t, true, nil)
	s := protocol.NewSerializer(true)

	conn := dial(t, srv, "g1")
	readMessage(t, conn, s)

	publish(t, bus, protocol.EventGameUpdate, "g1", `{"loopCount":7}`)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	frameType, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.BinaryMessage, frameType)

	var msg protocol.Message
	require.NoError(t, s.Decode(data, &msg))
	assert.JSONEq(t, `{"loopCount":7}`, string(msg.Data))
}

func TestHub_StopEventClosesRoom(t *testing.T) {
	hub, bus, srv := startHub(t, false, nil)
	s := protocol.NewSerializer(false)

	conn := dial(t, srv, "g1")
	readMessage(t, conn, s)

	publish(t, bus, protocol.EventGameStopped, "g1", `{"id":"g1"}`)

	msg := readMessage(t, conn, s)
	assert.Equal(t, protocol.MsgGameStop, msg.Type)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "Ожидалось нормальное закрытие, получено %v", err)
	assert.Equal(t, 0, hub.Clients("g1"))
}

func TestHub_RejectsBadRequests(t *testing.T) {
	_, _, srv := startHub(t, false, func(id string) bool { return id == "known" })

	resp, err := http.Get(srv.URL + "/ws")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?game=unknown"
	_, resp, err = websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHub_GameStoppedBeforeRegister(t *testing.T) {
	// Первая проверка видит игру, к моменту регистрации она уже остановлена
	var calls atomic.Int32
	hub, _, srv := startHub(t, false, func(string) bool { return calls.Add(1) == 1 })

	conn := dial(t, srv, "g1")
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "Ожидалось закрытие соединения, получено %v", err)
	assert.Equal(t, 0, hub.Clients("g1"))
	assert.Empty(t, hub.Games(), "Комната остановленной игры не должна появляться")
	assert.Equal(t, int32(2), calls.Load())
}
