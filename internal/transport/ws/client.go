package ws

import (
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"imposter-rounds/internal/app"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Default maximum message size allowed from peer
	defaultMaxMessageSize = 4096

	// Size of the send channel buffer
	sendBufferSize = 256
)

// ClientOptions limits what a single connection may send
type ClientOptions struct {
	MessageRate    float64 // inbound messages per second
	MessageBurst   int
	MaxMessageSize int64
}

// Client represents a WebSocket client connection
type Client struct {
	conn     *websocket.Conn
	session  *app.GameSession
	playerID string
	send     chan []byte
	done     chan struct{}
	limiter  *rate.Limiter
	maxSize  int64
	logger   *slog.Logger
	mu       sync.Mutex
	closed   bool
}

// NewClient creates a new WebSocket client
func NewClient(conn *websocket.Conn, session *app.GameSession, playerID string, opts ClientOptions, logger *slog.Logger) *Client {
	if opts.MessageRate <= 0 {
		opts.MessageRate = 5
	}
	if opts.MessageBurst <= 0 {
		opts.MessageBurst = 10
	}
	if opts.MaxMessageSize <= 0 {
		opts.MaxMessageSize = defaultMaxMessageSize
	}

	return &Client{
		conn:     conn,
		session:  session,
		playerID: playerID,
		send:     make(chan []byte, sendBufferSize),
		done:     make(chan struct{}),
		limiter:  rate.NewLimiter(rate.Limit(opts.MessageRate), opts.MessageBurst),
		maxSize:  opts.MaxMessageSize,
		logger:   logger.With("playerId", playerID),
	}
}

// GetPlayerID returns the player ID for this client
func (c *Client) GetPlayerID() string {
	return c.playerID
}

// Send implements app.ClientConnection interface
func (c *Client) Send(message interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	select {
	case c.send <- data:
		return nil
	default:
		// Buffer full, message dropped
		c.logger.Warn("send buffer full, message dropped")
		return nil
	}
}

// Close implements app.ClientConnection interface
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	c.closed = true
	close(c.done)
	return c.conn.Close()
}

// Run starts the client's read and write pumps
func (c *Client) Run() {
	go c.writePump()
	c.readPump()
}

// readPump pumps messages from the WebSocket connection
func (c *Client) readPump() {
	defer func() {
		c.session.ClientDropped(c.playerID, c)
		c.Close()
	}()

	c.conn.SetReadLimit(c.maxSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Debug("websocket read error", "error", err)
			}
			break
		}

		if !c.limiter.Allow() {
			c.sendError(ErrCodeRateLimited, "Too many messages")
			continue
		}

		c.handleMessage(message)
	}
}

// writePump pumps messages from the send channel to the WebSocket connection.
// Each queued message is written as its own frame so clients can parse
// frames as single JSON documents.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			return
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// errPayload marks a message whose payload could not be used
type errPayload struct{ reason string }

func (e errPayload) Error() string { return e.reason }

// action handles one inbound message type for the sending player
type action func(c *Client, raw json.RawMessage) error

var actions = map[MessageType]action{
	MsgJoinLobby:   (*Client).joinLobby,
	MsgCastVote:    (*Client).castVote,
	MsgSubmitGuess: (*Client).submitGuess,

	MsgLeaveGame: func(c *Client, _ json.RawMessage) error {
		return c.session.LeavePlayer(c.playerID)
	},
	MsgStartGame: func(c *Client, _ json.RawMessage) error {
		return c.session.StartGame(c.playerID)
	},
	MsgAdvancePhase: func(c *Client, _ json.RawMessage) error {
		return c.session.AdvancePhase(c.playerID)
	},
	MsgRequestNewRound: func(c *Client, _ json.RawMessage) error {
		return c.session.StartNewRound(c.playerID)
	},
	MsgEndRound: func(c *Client, _ json.RawMessage) error {
		return c.session.EndRound(c.playerID)
	},
	MsgPing: func(c *Client, _ json.RawMessage) error {
		c.sendPong()
		return nil
	},
}

// handleMessage decodes an inbound frame and dispatches it
func (c *Client) handleMessage(data []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError(ErrCodeInvalidMessage, "Invalid message format")
		return
	}

	handle, ok := actions[msg.Type]
	if !ok {
		c.sendError(ErrCodeInvalidMessage, "Unknown message type")
		return
	}

	c.reply(handle(c, msg.Payload))
}

func decodePayload(raw json.RawMessage, v interface{}) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return errPayload{"Invalid payload"}
	}
	return nil
}

func (c *Client) joinLobby(raw json.RawMessage) error {
	var payload JoinLobbyPayload
	if err := decodePayload(raw, &payload); err != nil {
		return err
	}

	nickname := strings.TrimSpace(payload.Nickname)
	if nickname == "" {
		return errPayload{"Nickname is required"}
	}

	if _, err := c.session.AddPlayer(c.playerID, nickname); err != nil {
		return err
	}

	c.sendConnected()
	return nil
}

func (c *Client) castVote(raw json.RawMessage) error {
	var payload CastVotePayload
	if err := decodePayload(raw, &payload); err != nil {
		return err
	}
	if payload.TargetPlayerID == "" {
		return errPayload{"Target player ID is required"}
	}

	return c.session.CastVote(c.playerID, payload.TargetPlayerID)
}

// submitGuess forwards an imposter's guess. The outcome arrives as a private
// guess_result event.
func (c *Client) submitGuess(raw json.RawMessage) error {
	var payload SubmitGuessPayload
	if err := decodePayload(raw, &payload); err != nil {
		return err
	}

	_, err := c.session.SubmitGuess(c.playerID, payload.Text)
	return err
}

// reply reports a failed action back to the sender
func (c *Client) reply(err error) {
	if err == nil {
		return
	}

	var bad errPayload
	if errors.As(err, &bad) {
		c.sendError(ErrCodeInvalidMessage, bad.reason)
		return
	}

	code := ErrorCode(err)
	if code == ErrCodeInternalError {
		c.logger.Error("action failed", "error", err)
	} else {
		c.logger.Debug("action rejected", "code", code, "error", err)
	}
	c.sendError(code, err.Error())
}

// sendConnected sends the connected message to the client
func (c *Client) sendConnected() {
	payload := &ConnectedPayload{
		PlayerID:  c.playerID,
		GameID:    c.session.GetRoomCode(),
		GameState: c.session.GetGameState(c.playerID),
	}

	msg := NewServerMessage(MsgConnected, payload)
	c.Send(msg)
}

// sendError sends an error message to the client
func (c *Client) sendError(code, message string) {
	payload := &ErrorPayload{
		Code:    code,
		Message: message,
	}

	msg := NewServerMessage(MsgError, payload)
	c.Send(msg)
}

// sendPong sends a pong message in response to ping
func (c *Client) sendPong() {
	msg := NewServerMessage(MsgPong, nil)
	c.Send(msg)
}
