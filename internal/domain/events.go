package domain

import "time"

// EventType represents the type of game event
type EventType string

const (
	EventPlayerJoined       EventType = "player_joined"
	EventPlayerLeft         EventType = "player_left"
	EventPlayerDisconnected EventType = "player_disconnected"
	EventPlayerReconnected  EventType = "player_reconnected"
	EventPlayerWithdrawn    EventType = "player_withdrawn"
	EventRoundRestart       EventType = "round_restart"
	EventRoleAssigned       EventType = "role_assigned"
	EventDiscussionStarted  EventType = "discussion_started"
	EventVotingStarted      EventType = "voting_started"
	EventVoteUpdate         EventType = "vote_update"
	EventConsensusWarning   EventType = "consensus_warning"
	EventConsensusCountdown EventType = "consensus_countdown"
	EventConsensusCancelled EventType = "consensus_cancelled"
	EventRevealStart        EventType = "reveal_start"
	EventRevealResult       EventType = "reveal_result"
	EventVotingResumed      EventType = "voting_resumed"
	EventWordRevealed       EventType = "word_revealed"
	EventGuessResult        EventType = "guess_result"
	EventRoundEnd           EventType = "round_end"
	EventScoresUpdated      EventType = "scores_updated"
	EventGameOver           EventType = "game_over"
)

// GameEvent represents an event that occurred in the game
type GameEvent struct {
	Type      EventType   `json:"type"`
	GameID    string      `json:"gameId"`
	PlayerID  string      `json:"playerId,omitempty"` // If event is player-specific
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewEvent creates a new game event
func NewEvent(eventType EventType, gameID string, payload interface{}) *GameEvent {
	return &GameEvent{
		Type:      eventType,
		GameID:    gameID,
		Payload:   payload,
		Timestamp: time.Now(),
	}
}

// NewPlayerEvent creates a new player-specific game event
func NewPlayerEvent(eventType EventType, gameID, playerID string, payload interface{}) *GameEvent {
	return &GameEvent{
		Type:      eventType,
		GameID:    gameID,
		PlayerID:  playerID,
		Payload:   payload,
		Timestamp: time.Now(),
	}
}

// Payload types for different events

// LobbyUpdatePayload is sent when lobby membership or connectivity changes
type LobbyUpdatePayload struct {
	Players  []PlayerInfo `json:"players"`
	HostID   string       `json:"hostId"`
	CanStart bool         `json:"canStart"`
}

// RoleAssignedPayload is sent to each player with their role. Imposters and
// innocents receive different immutable values; Word is empty for imposters.
type RoleAssignedPayload struct {
	RoundNumber   int    `json:"roundNumber"`
	IsImposter    bool   `json:"isImposter"`
	Word          string `json:"word,omitempty"`
	ImposterCount int    `json:"imposterCount"`
	TotalPlayers  int    `json:"totalPlayers"`
}

// DiscussionStartedPayload is sent when discussion opens
type DiscussionStartedPayload struct {
	RoundNumber     int          `json:"roundNumber"`
	Players         []PlayerInfo `json:"players"`
	DurationSeconds int          `json:"durationSeconds,omitempty"`
}

// VotingPayload is sent when voting starts or resumes after a reveal
type VotingPayload struct {
	Players []PlayerInfo      `json:"players"`
	Votes   map[string]string `json:"votes"`
	Counts  map[string]int    `json:"counts"`
}

// VoteUpdatePayload is sent after every ledger change
type VoteUpdatePayload struct {
	Votes       map[string]string `json:"votes"`
	Counts      map[string]int    `json:"counts"`
	VotedCount  int               `json:"votedCount"`
	ActiveCount int               `json:"activeCount"`
}

// ConsensusWarningPayload is sent when a strict majority arms the countdown
type ConsensusWarningPayload struct {
	TargetID         string `json:"targetId"`
	CountdownSeconds int    `json:"countdownSeconds"`
}

// ConsensusCancelledPayload is sent when an armed countdown is withdrawn
type ConsensusCancelledPayload struct {
	TargetID string `json:"targetId"`
}

// RevealStartPayload is sent when the countdown completes
type RevealStartPayload struct {
	TargetID string `json:"targetId"`
}

// RevealResultPayload discloses whether the eliminated player was an imposter
type RevealResultPayload struct {
	TargetID           string `json:"targetId"`
	Nickname           string `json:"nickname"`
	WasImposter        bool   `json:"wasImposter"`
	RemainingImposters int    `json:"remainingImposters"`
}

// WordRevealedPayload is sent privately to a newly eliminated player
type WordRevealedPayload struct {
	Word string `json:"word"`
}

// GuessResultPayload is sent privately to the guessing imposter
type GuessResultPayload struct {
	Correct bool `json:"correct"`
}

// PlayerWithdrawnPayload is sent when the session withdraws a player mid-round
type PlayerWithdrawnPayload struct {
	PlayerID string `json:"playerId"`
}

// RoundEndPayload is sent when a round ends
type RoundEndPayload struct {
	RoundNumber   int            `json:"roundNumber"`
	Winner        Team           `json:"winner"`
	Reason        WinReason      `json:"reason"`
	Word          string         `json:"word"`
	ImposterIDs   []string       `json:"imposterIds"`
	ImposterNames []string       `json:"imposterNames"`
	ScoreDelta    map[string]int `json:"scoreDelta"`
}

// ScoresUpdatedPayload carries cumulative standings after a round
type ScoresUpdatedPayload struct {
	Scores       map[string]int `json:"scores"`
	TeamWins     map[Team]int   `json:"teamWins"`
	RoundsPlayed int            `json:"roundsPlayed"`
}

// GameOverPayload is sent when the session ends
type GameOverPayload struct {
	Scores    map[string]int `json:"scores"`
	WinnerIDs []string       `json:"winnerIds"`
}

// ErrorPayload is sent when an error occurs
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
