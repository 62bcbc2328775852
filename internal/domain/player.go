package domain

import "time"

// ConnectionStatus represents a player's connection state
type ConnectionStatus string

const (
	StatusConnected    ConnectionStatus = "CONNECTED"
	StatusDisconnected ConnectionStatus = "DISCONNECTED"
)

// Player represents a player in the game
type Player struct {
	ID         string           `json:"id"`
	Nickname   string           `json:"nickname"`
	Role       Role             `json:"role,omitempty"`
	Eliminated bool             `json:"eliminated"`
	Status     ConnectionStatus `json:"status"`
	JoinedAt   time.Time        `json:"joinedAt"`
}

// NewPlayer creates a new player with the given ID and nickname
func NewPlayer(id, nickname string) *Player {
	return &Player{
		ID:       id,
		Nickname: nickname,
		Status:   StatusConnected,
		JoinedAt: time.Now(),
	}
}

// ResetForNewRound resets the player's state for a new round
func (p *Player) ResetForNewRound() {
	p.Role = ""
	p.Eliminated = false
}

// IsActive reports whether the player still takes part in the current round.
// Disconnected players stay active until the session withdraws them.
func (p *Player) IsActive() bool {
	return !p.Eliminated
}

// IsConnected returns true if the player is currently connected
func (p *Player) IsConnected() bool {
	return p.Status == StatusConnected
}

// PlayerInfo is a safe view of player data (hides role from other players)
type PlayerInfo struct {
	ID         string           `json:"id"`
	Nickname   string           `json:"nickname"`
	Eliminated bool             `json:"eliminated"`
	Status     ConnectionStatus `json:"status"`
}

// ToInfo converts a Player to PlayerInfo (without role)
func (p *Player) ToInfo() PlayerInfo {
	return PlayerInfo{
		ID:         p.ID,
		Nickname:   p.Nickname,
		Eliminated: p.Eliminated,
		Status:     p.Status,
	}
}
