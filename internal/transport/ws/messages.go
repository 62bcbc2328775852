package ws

import (
	"encoding/json"
	"errors"
	"time"

	"imposter-rounds/internal/domain"
)

// MessageType represents the type of WebSocket message
type MessageType string

// Client → Server message types
const (
	MsgJoinLobby       MessageType = "join_lobby"
	MsgLeaveGame       MessageType = "leave_game"
	MsgStartGame       MessageType = "start_game"
	MsgAdvancePhase    MessageType = "advance_phase"
	MsgCastVote        MessageType = "cast_vote"
	MsgSubmitGuess     MessageType = "submit_guess"
	MsgRequestNewRound MessageType = "request_new_round"
	MsgEndRound        MessageType = "end_round"
	MsgPing            MessageType = "ping"
)

// Server → Client message types. Game events are sent as domain.GameEvent
// and carry their own type names.
const (
	MsgConnected MessageType = "connected"
	MsgError     MessageType = "error"
	MsgPong      MessageType = "pong"
)

// ClientMessage represents a message from client to server
type ClientMessage struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ServerMessage represents a message from server to client
type ServerMessage struct {
	Type      MessageType `json:"type"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp string      `json:"timestamp"`
}

// NewServerMessage creates a new server message with current timestamp
func NewServerMessage(msgType MessageType, payload interface{}) *ServerMessage {
	return &ServerMessage{
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// Client message payloads

// JoinLobbyPayload is the payload for join_lobby message
type JoinLobbyPayload struct {
	Nickname string `json:"nickname"`
}

// CastVotePayload is the payload for cast_vote message
type CastVotePayload struct {
	TargetPlayerID string `json:"targetPlayerId"`
}

// SubmitGuessPayload is the payload for submit_guess message
type SubmitGuessPayload struct {
	Text string `json:"text"`
}

// Server message payloads

// ConnectedPayload is the payload for connected message
type ConnectedPayload struct {
	PlayerID  string                 `json:"playerId"`
	GameID    string                 `json:"gameId"`
	GameState map[string]interface{} `json:"gameState"`
}

// ErrorPayload is the payload for error message
type ErrorPayload = domain.ErrorPayload

// Error codes
const (
	ErrCodeInvalidMessage    = "INVALID_MESSAGE"
	ErrCodeGameNotFound      = "GAME_NOT_FOUND"
	ErrCodeGameFull          = "GAME_FULL"
	ErrCodeGameOver          = "GAME_OVER"
	ErrCodeInvalidAction     = "INVALID_ACTION"
	ErrCodeInvalidPhase      = "INVALID_PHASE"
	ErrCodeNotHost           = "NOT_HOST"
	ErrCodeNotEnoughPlayers  = "NOT_ENOUGH_PLAYERS"
	ErrCodeCannotVoteSelf    = "CANNOT_VOTE_SELF"
	ErrCodeVoterEliminated   = "VOTER_ELIMINATED"
	ErrCodeTargetEliminated  = "TARGET_ELIMINATED"
	ErrCodeInvalidTarget     = "INVALID_TARGET"
	ErrCodeNotImposter       = "NOT_IMPOSTER"
	ErrCodeGuesserEliminated = "GUESSER_ELIMINATED"
	ErrCodeEmptyGuess        = "EMPTY_GUESS"
	ErrCodeRateLimited       = "RATE_LIMITED"
	ErrCodeInternalError     = "INTERNAL_ERROR"
)

// errorCodes maps domain errors to wire codes, most specific first
var errorCodes = []struct {
	err  error
	code string
}{
	{domain.ErrGameNotFound, ErrCodeGameNotFound},
	{domain.ErrGameFull, ErrCodeGameFull},
	{domain.ErrGameOver, ErrCodeGameOver},
	{domain.ErrGameAlreadyStarted, ErrCodeInvalidAction},
	{domain.ErrNotEnoughPlayers, ErrCodeNotEnoughPlayers},
	{domain.ErrNotHost, ErrCodeNotHost},
	{domain.ErrCannotVoteSelf, ErrCodeCannotVoteSelf},
	{domain.ErrVoterEliminated, ErrCodeVoterEliminated},
	{domain.ErrTargetEliminated, ErrCodeTargetEliminated},
	{domain.ErrInvalidTargetID, ErrCodeInvalidTarget},
	{domain.ErrNotImposter, ErrCodeNotImposter},
	{domain.ErrGuesserEliminated, ErrCodeGuesserEliminated},
	{domain.ErrEmptyGuess, ErrCodeEmptyGuess},
	{domain.ErrInvalidPhase, ErrCodeInvalidPhase},
	{domain.ErrInvalidAction, ErrCodeInvalidAction},
}

// ErrorCode returns the wire code for an error returned by the session
func ErrorCode(err error) string {
	for _, c := range errorCodes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return ErrCodeInternalError
}
