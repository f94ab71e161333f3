package transport

import (
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebSocketBroadcast(t *testing.T) {
	wst, err := NewWebSocketTransport("127.0.0.1:0")
	require.NoError(t, err)
	defer wst.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+wst.Addr()+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return wst.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	want := Reading{Session: "s", Sequence: 7, BPM: 72, RR: 12, Score: 36, Tier: "high", Timestamp: time.Unix(10, 0).UTC()}
	require.NoError(t, wst.Send(want))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var got Reading
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, want, got)
}

func TestWebSocketClose(t *testing.T) {
	wst, err := NewWebSocketTransport("127.0.0.1:0")
	require.NoError(t, err)

	require.NoError(t, wst.Close())
	require.NoError(t, wst.Close())
	assert.Error(t, wst.Send(Reading{}))
}

func TestWebSocketListenError(t *testing.T) {
	first, err := NewWebSocketTransport("127.0.0.1:0")
	require.NoError(t, err)
	defer first.Close()

	_, err = NewWebSocketTransport(first.Addr())
	assert.Error(t, err)
}
