package protocol

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializer_PlainAndGzip(t *testing.T) {
	data := json.RawMessage(`{"armies":[{"id":"a1"}],"loopCount":3}`)
	msg := NewMessage(MsgGameUpdate, "g1", data)

	for _, compress := range []bool{false, true} {
		s := NewSerializer(compress)
		encoded, err := s.Encode(msg)
		require.NoError(t, err)
		assert.Equal(t, compress, bytes.HasPrefix(encoded, gzipMagic))

		var got Message
		require.NoError(t, NewSerializer(false).Decode(encoded, &got), "Decode читает оба формата")
		assert.Equal(t, MsgGameUpdate, got.Type)
		assert.Equal(t, "g1", got.GameID)
		assert.JSONEq(t, string(data), string(got.Data))
	}
}

func TestSerializer_CompressesRepetitivePayload(t *testing.T) {
	payload := bytes.Repeat([]byte(`{"color":"#ffffff","speed":0.9},`), 200)
	packed, err := Gzip(payload, 1)
	require.NoError(t, err)
	assert.Less(t, len(packed), len(payload)/4)

	unpacked, err := Gunzip(packed)
	require.NoError(t, err)
	assert.Equal(t, payload, unpacked)
}

func TestSerializer_DecodeErrors(t *testing.T) {
	var m Message
	assert.Error(t, NewSerializer(false).Decode([]byte("{"), &m))
	assert.Error(t, NewSerializer(false).Decode([]byte{0x1f, 0x8b, 0x00}, &m))
}

func TestMessageTypeForEvent(t *testing.T) {
	mt, ok := MessageTypeForEvent(EventGameUpdate)
	assert.True(t, ok)
	assert.Equal(t, MsgGameUpdate, mt)

	_, ok = MessageTypeForEvent("chat")
	assert.False(t, ok)
}
