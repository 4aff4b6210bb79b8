package notify

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMulti(t *testing.T) {
	var got []string
	rec := Func(func(_ context.Context, id string) { got = append(got, id) })

	Multi{rec, nil, Noop{}, rec}.ProgressChanged(context.Background(), "p1")
	assert.Equal(t, []string{"p1", "p1"}, got)
}

func TestHubDeliversToRoomOnly(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub()
	go hub.Run(ctx)

	a := &Client{id: "a", hub: hub, send: make(chan []byte, 1)}
	b := &Client{id: "b", hub: hub, send: make(chan []byte, 1)}
	hub.register <- a
	hub.register <- b
	hub.JoinRoom(a, "p1")
	hub.JoinRoom(b, "p2")

	hub.ProgressChanged(ctx, "p1")

	select {
	case data := <-a.send:
		var msg Message
		require.NoError(t, json.Unmarshal(data, &msg))
		assert.Equal(t, MessageTypeProgress, msg.Type)
		assert.Equal(t, "p1", msg.Room)
		assert.Equal(t, "p1", msg.Data["id"])
	case <-time.After(time.Second):
		t.Fatal("no message delivered")
	}

	select {
	case <-b.send:
		t.Fatal("client in another room received the event")
	case <-time.After(50 * time.Millisecond):
	}

	hub.LeaveRoom(a, "p1")
	assert.Equal(t, 0, hub.RoomSize("p1"))
}

func TestWebsocketJoinAndReceive(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub()
	go hub.Run(ctx)

	r := gin.New()
	r.GET("/ws", NewHandler(ctx, hub).HandleConnection)
	srv := httptest.NewServer(r)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(Message{Type: MessageTypeJoin, Room: "p9"}))
	require.Eventually(t, func() bool { return hub.RoomSize("p9") == 1 }, time.Second, 5*time.Millisecond)

	hub.ProgressChanged(ctx, "p9")

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, MessageTypeProgress, msg.Type)
	assert.Equal(t, "p9", msg.Room)
}
