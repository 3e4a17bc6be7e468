package web

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/graphql-go/graphql"

	"chat-api/auth"
)

// The subprotocol spoken by the graphql-ws client family.
const wsSubprotocol = "graphql-transport-ws"

// Message types of the graphql-transport-ws protocol.
const (
	msgConnectionInit = "connection_init"
	msgConnectionAck  = "connection_ack"
	msgPing           = "ping"
	msgPong           = "pong"
	msgSubscribe      = "subscribe"
	msgNext           = "next"
	msgError          = "error"
	msgComplete       = "complete"
)

// Close codes defined by the protocol.
const (
	closeBadRequest       = 4400
	closeForbidden        = 4403
	closeInitTimeout      = 4408
	closeDuplicateIDInUse = 4409
)

const connectionInitTimeout = 10 * time.Second

type wsMessage struct {
	ID      string          `json:"id,omitempty"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	Subprotocols:    []string{wsSubprotocol},
	// The HTTP surface is permissive-CORS; the WS endpoint matches it.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsConn is one WebSocket connection and its active operations. Writes are
// serialized through a mutex because subscription goroutines and the read
// loop share the connection.
type wsConn struct {
	server   *Server
	conn     *websocket.Conn
	identity auth.Identity

	writeMu sync.Mutex
	opMu    sync.Mutex
	ops     map[string]context.CancelFunc
}

// handleWebSocket upgrades GET /graphql and drives the subscription
// protocol for the lifetime of the connection.
func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		return
	}

	wc := &wsConn{
		server: s,
		conn:   conn,
		ops:    make(map[string]context.CancelFunc),
	}
	wc.serve(c.Request.Context())
}

func (wc *wsConn) serve(baseCtx context.Context) {
	defer wc.conn.Close()

	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()

	if !wc.awaitConnectionInit() {
		return
	}

	for {
		var msg wsMessage
		if err := wc.conn.ReadJSON(&msg); err != nil {
			// Connection gone: cancel declared above tears down every
			// operation, which deregisters each bus subscriber.
			return
		}

		switch msg.Type {
		case msgPing:
			wc.write(wsMessage{Type: msgPong})
		case msgPong:
			// Keepalive answer, nothing to do.
		case msgSubscribe:
			wc.handleSubscribe(ctx, msg)
		case msgComplete:
			wc.completeOperation(msg.ID)
		default:
			wc.close(closeBadRequest, "unexpected message type "+msg.Type)
			return
		}
	}
}

// awaitConnectionInit performs the connection handshake: the first frame
// must be connection_init, and a token carried in its payload must verify.
// Verification failure rejects the connection; no partial context is
// established.
func (wc *wsConn) awaitConnectionInit() bool {
	_ = wc.conn.SetReadDeadline(time.Now().Add(connectionInitTimeout))
	defer func() { _ = wc.conn.SetReadDeadline(time.Time{}) }()

	var msg wsMessage
	if err := wc.conn.ReadJSON(&msg); err != nil {
		wc.close(closeInitTimeout, "connection initialisation timeout")
		return false
	}
	if msg.Type != msgConnectionInit {
		wc.close(closeBadRequest, "expected connection_init")
		return false
	}

	var params map[string]any
	if len(msg.Payload) > 0 {
		if err := json.Unmarshal(msg.Payload, &params); err != nil {
			wc.close(closeBadRequest, "malformed connection_init payload")
			return false
		}
	}

	identity, err := wc.server.tokens.FromConnectionParams(params)
	if err != nil {
		wc.server.log.Debug("websocket connection rejected", "error", err)
		wc.close(closeForbidden, "forbidden")
		return false
	}

	wc.identity = identity
	return wc.write(wsMessage{Type: msgConnectionAck})
}

// handleSubscribe starts one GraphQL operation and streams its results as
// "next" frames until the source terminates or the client completes it.
func (wc *wsConn) handleSubscribe(ctx context.Context, msg wsMessage) {
	if msg.ID == "" {
		wc.close(closeBadRequest, "subscribe without id")
		return
	}

	var req graphqlRequest
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		wc.close(closeBadRequest, "malformed subscribe payload")
		return
	}

	opCtx, opCancel := context.WithCancel(auth.WithIdentity(ctx, wc.identity))

	wc.opMu.Lock()
	if _, exists := wc.ops[msg.ID]; exists {
		wc.opMu.Unlock()
		opCancel()
		wc.close(closeDuplicateIDInUse, "subscriber already exists: "+msg.ID)
		return
	}
	wc.ops[msg.ID] = opCancel
	wc.opMu.Unlock()

	results := graphql.Subscribe(graphql.Params{
		Schema:         wc.server.schema,
		RequestString:  req.Query,
		OperationName:  req.OperationName,
		VariableValues: req.Variables,
		Context:        opCtx,
	})

	wc.server.metrics.ActiveSubscribers.Inc()
	go func() {
		defer wc.server.metrics.ActiveSubscribers.Dec()
		defer wc.completeOperation(msg.ID)

		for result := range results {
			if len(result.Errors) > 0 {
				payload, _ := json.Marshal(result.Errors)
				wc.write(wsMessage{ID: msg.ID, Type: msgError, Payload: payload})
				return
			}
			payload, _ := json.Marshal(result)
			if !wc.write(wsMessage{ID: msg.ID, Type: msgNext, Payload: payload}) {
				return
			}
		}
		wc.write(wsMessage{ID: msg.ID, Type: msgComplete})
	}()
}

// completeOperation cancels an active operation, which removes its bus
// registration. Idempotent: unknown ids are ignored.
func (wc *wsConn) completeOperation(id string) {
	wc.opMu.Lock()
	cancel, ok := wc.ops[id]
	if ok {
		delete(wc.ops, id)
	}
	wc.opMu.Unlock()
	if ok {
		cancel()
	}
}

func (wc *wsConn) write(msg wsMessage) bool {
	wc.writeMu.Lock()
	defer wc.writeMu.Unlock()
	return wc.conn.WriteJSON(msg) == nil
}

func (wc *wsConn) close(code int, reason string) {
	wc.writeMu.Lock()
	_ = wc.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason),
		time.Now().Add(time.Second),
	)
	wc.writeMu.Unlock()
	_ = wc.conn.Close()
}
