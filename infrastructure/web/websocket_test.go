package web

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"chat-api/events"
)

func dialWS(t *testing.T, backend *testBackend) *websocket.Conn {
	t.Helper()
	req := require.New(t)

	url := "ws" + strings.TrimPrefix(backend.server.URL, "http") + "/graphql"
	dialer := websocket.Dialer{Subprotocols: []string{wsSubprotocol}}
	conn, _, err := dialer.Dial(url, nil)
	req.NoError(err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func initConnection(t *testing.T, conn *websocket.Conn, token string) {
	t.Helper()
	req := require.New(t)

	payload, _ := json.Marshal(map[string]string{"accessToken": token})
	req.NoError(conn.WriteJSON(wsMessage{Type: msgConnectionInit, Payload: payload}))

	var ack wsMessage
	req.NoError(conn.ReadJSON(&ack))
	req.Equal(msgConnectionAck, ack.Type)
}

func subscribeMessageAdded(t *testing.T, conn *websocket.Conn, id string) {
	t.Helper()
	req := require.New(t)

	payload, _ := json.Marshal(map[string]string{
		"query": `subscription { messageAdded { from text } }`,
	})
	req.NoError(conn.WriteJSON(wsMessage{ID: id, Type: msgSubscribe, Payload: payload}))
}

func waitForSubscribers(t *testing.T, bus *events.Bus, want int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return bus.SubscriberCount(events.TopicMessageAdded) == want
	}, 2*time.Second, 10*time.Millisecond)
}

func Test_WS_Connection_Rejects_Invalid_Token(t *testing.T) {
	req := require.New(t)
	backend := newTestBackend(t)
	conn := dialWS(t, backend)

	payload, _ := json.Marshal(map[string]string{"accessToken": "garbage"})
	req.NoError(conn.WriteJSON(wsMessage{Type: msgConnectionInit, Payload: payload}))

	var msg wsMessage
	err := conn.ReadJSON(&msg)
	req.Error(err)
	req.True(websocket.IsCloseError(err, closeForbidden))
}

func Test_WS_Subscriber_Receives_Published_Message(t *testing.T) {
	req := require.New(t)
	backend := newTestBackend(t)

	bobToken := backend.login(t, "bob", "pw2")
	conn := dialWS(t, backend)
	initConnection(t, conn, bobToken)
	subscribeMessageAdded(t, conn, "1")
	waitForSubscribers(t, backend.bus, 1)

	aliceToken := backend.login(t, "alice", "pw1")
	_, result := backend.graphql(t, aliceToken,
		`mutation { addMessage(input: {text: "hello"}) { id } }`)
	req.Nil(result["errors"])

	req.NoError(conn.SetReadDeadline(time.Now().Add(2 * time.Second)))
	var next wsMessage
	req.NoError(conn.ReadJSON(&next))
	req.Equal(msgNext, next.Type)
	req.Equal("1", next.ID)

	var body struct {
		Data struct {
			MessageAdded struct {
				From string `json:"from"`
				Text string `json:"text"`
			} `json:"messageAdded"`
		} `json:"data"`
	}
	req.NoError(json.Unmarshal(next.Payload, &body))
	req.Equal("alice", body.Data.MessageAdded.From)
	req.Equal("hello", body.Data.MessageAdded.Text)
}

func Test_WS_Anonymous_Subscription_Gets_Error(t *testing.T) {
	req := require.New(t)
	backend := newTestBackend(t)

	conn := dialWS(t, backend)
	initConnection(t, conn, "")
	subscribeMessageAdded(t, conn, "1")

	req.NoError(conn.SetReadDeadline(time.Now().Add(2 * time.Second)))
	var msg wsMessage
	req.NoError(conn.ReadJSON(&msg))
	req.Equal(msgError, msg.Type)
}

func Test_WS_No_Replay_For_Late_Subscriber(t *testing.T) {
	req := require.New(t)
	backend := newTestBackend(t)

	aliceToken := backend.login(t, "alice", "pw1")
	_, result := backend.graphql(t, aliceToken,
		`mutation { addMessage(input: {text: "early"}) { id } }`)
	req.Nil(result["errors"])

	bobToken := backend.login(t, "bob", "pw2")
	conn := dialWS(t, backend)
	initConnection(t, conn, bobToken)
	subscribeMessageAdded(t, conn, "1")
	waitForSubscribers(t, backend.bus, 1)

	req.NoError(conn.SetReadDeadline(time.Now().Add(300 * time.Millisecond)))
	var msg wsMessage
	req.Error(conn.ReadJSON(&msg))
}

func Test_WS_Disconnect_Removes_Registration(t *testing.T) {
	req := require.New(t)
	backend := newTestBackend(t)

	bobToken := backend.login(t, "bob", "pw2")
	conn := dialWS(t, backend)
	initConnection(t, conn, bobToken)
	subscribeMessageAdded(t, conn, "1")
	waitForSubscribers(t, backend.bus, 1)

	req.NoError(conn.Close())
	waitForSubscribers(t, backend.bus, 0)

	// Publishing after the disconnect neither errors nor blocks.
	aliceToken := backend.login(t, "alice", "pw1")
	_, result := backend.graphql(t, aliceToken,
		`mutation { addMessage(input: {text: "after disconnect"}) { id } }`)
	req.Nil(result["errors"])
}

func Test_WS_Complete_Stops_Operation(t *testing.T) {
	req := require.New(t)
	backend := newTestBackend(t)

	bobToken := backend.login(t, "bob", "pw2")
	conn := dialWS(t, backend)
	initConnection(t, conn, bobToken)
	subscribeMessageAdded(t, conn, "1")
	waitForSubscribers(t, backend.bus, 1)

	req.NoError(conn.WriteJSON(wsMessage{ID: "1", Type: msgComplete}))
	waitForSubscribers(t, backend.bus, 0)
}

func Test_WS_Ping_Answered_With_Pong(t *testing.T) {
	req := require.New(t)
	backend := newTestBackend(t)

	bobToken := backend.login(t, "bob", "pw2")
	conn := dialWS(t, backend)
	initConnection(t, conn, bobToken)

	req.NoError(conn.WriteJSON(wsMessage{Type: msgPing}))
	req.NoError(conn.SetReadDeadline(time.Now().Add(2 * time.Second)))

	var msg wsMessage
	req.NoError(conn.ReadJSON(&msg))
	req.Equal(msgPong, msg.Type)
}
