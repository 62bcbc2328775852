package domain

import (
	"sort"
	"time"
)

// GameSettings holds configurable game parameters
type GameSettings struct {
	MinPlayers             int           `json:"minPlayers"`
	MaxPlayers             int           `json:"maxPlayers"`
	ImposterCount          int           `json:"imposterCount"` // 0 picks by player count
	DiscussionDuration     time.Duration `json:"discussionDuration"`
	ConsensusDelay         time.Duration `json:"consensusDelay"`
	MinActivePlayers       int           `json:"minActivePlayers"`
	MaxRounds              int           `json:"maxRounds"`
	TargetScore            int           `json:"targetScore"`
	ReconnectGracePeriod   time.Duration `json:"reconnectGracePeriod"`
	WithdrawDisconnected   bool          `json:"withdrawDisconnected"`
	CountEliminatedVotes   bool          `json:"countEliminatedVotes"`
	RevealWordToEliminated bool          `json:"revealWordToEliminated"`
}

// DefaultGameSettings returns the default game settings
func DefaultGameSettings() GameSettings {
	return GameSettings{
		MinPlayers:             4,
		MaxPlayers:             12,
		ImposterCount:          0,
		DiscussionDuration:     0,
		ConsensusDelay:         5 * time.Second,
		MinActivePlayers:       3,
		MaxRounds:              0,
		TargetScore:            0,
		ReconnectGracePeriod:   2 * time.Minute,
		WithdrawDisconnected:   true,
		CountEliminatedVotes:   true,
		RevealWordToEliminated: true,
	}
}

// VotePolicy derives the tally policy from the settings
func (s GameSettings) VotePolicy() VotePolicy {
	return VotePolicy{CountEliminatedVoters: s.CountEliminatedVotes}
}

// Game represents a game room: its players, standings and round history.
// The live round itself is owned by the round orchestrator.
type Game struct {
	ID           string         `json:"id"`
	HostID       string         `json:"hostId"`
	Players      *Registry      `json:"-"`
	RoundHistory []*RoundResult `json:"roundHistory"`
	Scores       map[string]int `json:"scores"`
	TeamWins     map[Team]int   `json:"teamWins"`
	UsedWords    []string       `json:"-"`
	Phase        Phase          `json:"phase"`
	Settings     GameSettings   `json:"settings"`
	CreatedAt    time.Time      `json:"createdAt"`
}

// NewGame creates a new game with the given ID
func NewGame(id string, settings GameSettings) *Game {
	return &Game{
		ID:           id,
		Players:      NewRegistry(),
		RoundHistory: make([]*RoundResult, 0),
		Scores:       make(map[string]int),
		TeamWins:     make(map[Team]int),
		Phase:        PhaseLobby,
		Settings:     settings,
		CreatedAt:    time.Now(),
	}
}

// AddPlayer adds a player to the game
func (g *Game) AddPlayer(playerID, nickname string) (Player, error) {
	if g.Phase != PhaseLobby {
		return Player{}, ErrGameAlreadyStarted
	}

	if g.Players.Len() >= g.Settings.MaxPlayers {
		return Player{}, ErrGameFull
	}

	player := g.Players.Add(playerID, nickname)
	if _, ok := g.Scores[playerID]; !ok {
		g.Scores[playerID] = 0
	}

	// First player becomes the host
	if g.HostID == "" {
		g.HostID = playerID
	}

	return player, nil
}

// RemovePlayer removes a player from the game. Once play has started
// players are withdrawn from rounds instead of deleted.
func (g *Game) RemovePlayer(playerID string) error {
	if g.Phase != PhaseLobby {
		return ErrGameAlreadyStarted
	}

	if err := g.Players.Remove(playerID); err != nil {
		return err
	}
	delete(g.Scores, playerID)

	// If host left, assign new host
	if g.HostID == playerID {
		g.HostID, _ = g.Players.First()
	}

	return nil
}

// GetPlayer returns a player by ID
func (g *Game) GetPlayer(playerID string) (Player, error) {
	player, ok := g.Players.Get(playerID)
	if !ok {
		return Player{}, ErrPlayerNotFound
	}
	return player, nil
}

// IsHost checks if the given player is the host
func (g *Game) IsHost(playerID string) bool {
	return g.HostID == playerID
}

// CanStart checks if a new round can be started
func (g *Game) CanStart() bool {
	return (g.Phase == PhaseLobby || g.Phase == PhaseRoundEnd) && g.Players.Len() >= g.Settings.MinPlayers
}

// BeginRound resets players and returns the number of the round to deal
func (g *Game) BeginRound() (int, error) {
	if g.Phase == PhaseGameOver {
		return 0, ErrGameOver
	}
	if g.Phase != PhaseLobby && g.Phase != PhaseRoundEnd {
		return 0, ErrInvalidPhase
	}
	if g.Players.Len() < g.Settings.MinPlayers {
		return 0, ErrNotEnoughPlayers
	}

	g.Players.ResetForNewRound()
	g.Phase = PhaseRoleAssignment

	return len(g.RoundHistory) + 1, nil
}

// RecordResult folds a finished round into the standings. It reports
// whether the game is now over.
func (g *Game) RecordResult(result *RoundResult) bool {
	g.RoundHistory = append(g.RoundHistory, result)
	g.UsedWords = append(g.UsedWords, result.SecretWord)

	for id, delta := range result.ScoreDelta {
		g.Scores[id] += delta
	}
	if result.Winner != TeamNone {
		g.TeamWins[result.Winner]++
	}

	g.Phase = PhaseRoundEnd
	if g.IsOver() {
		g.Phase = PhaseGameOver
		return true
	}
	return false
}

// IsOver checks the game-ending conditions
func (g *Game) IsOver() bool {
	if g.Settings.MaxRounds > 0 && len(g.RoundHistory) >= g.Settings.MaxRounds {
		return true
	}
	if g.Settings.TargetScore > 0 {
		for _, score := range g.Scores {
			if score >= g.Settings.TargetScore {
				return true
			}
		}
	}
	return false
}

// Leaders returns the IDs holding the highest cumulative score, sorted
func (g *Game) Leaders() []string {
	best := 0
	leaders := make([]string, 0)
	for id, score := range g.Scores {
		switch {
		case len(leaders) == 0 || score > best:
			best = score
			leaders = []string{id}
		case score == best:
			leaders = append(leaders, id)
		}
	}
	sort.Strings(leaders)
	return leaders
}

// ScoresCopy returns a copy of the cumulative scores
func (g *Game) ScoresCopy() map[string]int {
	out := make(map[string]int, len(g.Scores))
	for id, score := range g.Scores {
		out[id] = score
	}
	return out
}

// TeamWinsCopy returns a copy of the per-team win counts
func (g *Game) TeamWinsCopy() map[Team]int {
	out := make(map[Team]int, len(g.TeamWins))
	for team, wins := range g.TeamWins {
		out[team] = wins
	}
	return out
}

// GetLobbyState returns the current lobby state for broadcasting
func (g *Game) GetLobbyState() *LobbyUpdatePayload {
	return &LobbyUpdatePayload{
		Players:  g.Players.Infos(),
		HostID:   g.HostID,
		CanStart: g.CanStart(),
	}
}
