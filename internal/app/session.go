package app

import (
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"imposter-rounds/internal/consensus"
	"imposter-rounds/internal/domain"
)

// ClientConnection represents a connected client
type ClientConnection interface {
	Send(message interface{}) error
	GetPlayerID() string
	Close() error
}

// SessionOptions configures a GameSession
type SessionOptions struct {
	Words       *WordBank
	Clock       consensus.Clock
	Rand        *rand.Rand
	Logger      *slog.Logger
	EventBuffer int
}

// GameSession sequences rounds for one game: it deals each round, hands it to
// a RoundOrchestrator, folds the result into the standings and decides when
// the game is over. It also fans events out to connected clients.
type GameSession struct {
	game      *domain.Game
	mu        sync.RWMutex
	clients   map[string]ClientConnection // playerID -> client
	clientsMu sync.RWMutex
	logger    *slog.Logger

	words *WordBank
	clock consensus.Clock
	rng   *rand.Rand

	round           *RoundOrchestrator
	discussionTimer consensus.Stopper
	graceTimers     map[string]consensus.Stopper

	// Event channel for broadcasting
	events    chan *domain.GameEvent
	done      chan struct{}
	closeOnce sync.Once
}

// NewGameSession creates a new game session
func NewGameSession(game *domain.Game, opts SessionOptions) *GameSession {
	if opts.Words == nil {
		opts.Words = DefaultWordBank()
	}
	if opts.Clock == nil {
		opts.Clock = consensus.SystemClock()
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = 256
	}

	session := &GameSession{
		game:        game,
		clients:     make(map[string]ClientConnection),
		logger:      opts.Logger.With("gameId", game.ID),
		words:       opts.Words,
		clock:       opts.Clock,
		rng:         opts.Rand,
		graceTimers: make(map[string]consensus.Stopper),
		events:      make(chan *domain.GameEvent, opts.EventBuffer),
		done:        make(chan struct{}),
	}

	// Start event broadcaster
	go session.eventLoop()

	return session
}

// GetRoomCode returns the room code
func (s *GameSession) GetRoomCode() string {
	return s.game.ID
}

// GetCreatedAt returns when the game was created
func (s *GameSession) GetCreatedAt() time.Time {
	return s.game.CreatedAt
}

// GetPlayerCount returns the number of players
func (s *GameSession) GetPlayerCount() int {
	return s.game.Players.Len()
}

// GetConnectedCount returns the number of connected players
func (s *GameSession) GetConnectedCount() int {
	return s.game.Players.ConnectedCount()
}

// GetPhase returns the current phase, descending into the live round
func (s *GameSession) GetPhase() domain.Phase {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.game.Phase == domain.PhaseRoleAssignment && s.round != nil {
		return s.round.Phase()
	}
	return s.game.Phase
}

// GetPlayer returns a player by ID
func (s *GameSession) GetPlayer(playerID string) (domain.Player, error) {
	return s.game.GetPlayer(playerID)
}

// CanJoin checks if a new player can join the game
func (s *GameSession) CanJoin() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.game.Phase == domain.PhaseLobby && s.game.Players.Len() < s.game.Settings.MaxPlayers
}

// Round returns the live or most recent round orchestrator
func (s *GameSession) Round() *RoundOrchestrator {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.round
}

// Scores returns the cumulative scores
func (s *GameSession) Scores() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.game.ScoresCopy()
}

// History returns the results of completed rounds in order
func (s *GameSession) History() []*domain.RoundResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.RoundResult, len(s.game.RoundHistory))
	copy(out, s.game.RoundHistory)
	return out
}

// Standings returns the cumulative scores payload
func (s *GameSession) Standings() *domain.ScoresUpdatedPayload {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.standingsLocked()
}

// RegisterClient registers a client connection for a player
func (s *GameSession) RegisterClient(playerID string, client ClientConnection) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	s.clients[playerID] = client
}

// GetClient returns the client for a player
func (s *GameSession) GetClient(playerID string) (ClientConnection, bool) {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	client, ok := s.clients[playerID]
	return client, ok
}

// AddPlayer adds a player to the game
func (s *GameSession) AddPlayer(playerID, nickname string) (domain.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	player, err := s.game.AddPlayer(playerID, nickname)
	if err != nil {
		return domain.Player{}, err
	}

	s.queueEvent(domain.NewEvent(domain.EventPlayerJoined, s.game.ID, s.game.GetLobbyState()))

	return player, nil
}

// LeavePlayer removes a player in the lobby, or withdraws them from the
// live round once play has started
func (s *GameSession) LeavePlayer(playerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.game.Phase == domain.PhaseLobby {
		if err := s.game.RemovePlayer(playerID); err != nil {
			return err
		}
		s.queueEvent(domain.NewEvent(domain.EventPlayerLeft, s.game.ID, s.game.GetLobbyState()))
		return nil
	}

	if err := s.game.Players.SetStatus(playerID, domain.StatusDisconnected); err != nil {
		return err
	}
	s.stopGraceTimer(playerID)
	s.queueEvent(domain.NewEvent(domain.EventPlayerLeft, s.game.ID, s.game.GetLobbyState()))

	if s.roundLive() {
		return s.round.Withdraw(playerID)
	}
	return nil
}

// ClientDropped handles a closed connection. The player is marked
// disconnected only while client is still their registered connection; a
// socket already replaced by a reconnect leaves the player alone. During a
// round a disconnected player stays active, and is withdrawn if they have not
// reconnected when the grace period ends.
func (s *GameSession) ClientDropped(playerID string, client ClientConnection) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clientsMu.Lock()
	current, ok := s.clients[playerID]
	if ok && current == client {
		delete(s.clients, playerID)
	}
	s.clientsMu.Unlock()

	if !ok || current != client {
		s.logger.Debug("ignoring drop of replaced connection", "playerID", playerID)
		return
	}
	s.disconnectLocked(playerID)
}

// disconnectLocked marks a player disconnected. Caller must hold s.mu.
func (s *GameSession) disconnectLocked(playerID string) {
	if err := s.game.Players.SetStatus(playerID, domain.StatusDisconnected); err != nil {
		return
	}
	s.queueEvent(domain.NewEvent(domain.EventPlayerDisconnected, s.game.ID, s.game.GetLobbyState()))

	if !s.roundLive() || !s.game.Settings.WithdrawDisconnected {
		return
	}

	s.stopGraceTimer(playerID)
	round := s.round
	s.graceTimers[playerID] = s.clock.AfterFunc(s.game.Settings.ReconnectGracePeriod, func() {
		s.withdrawIfAbsent(playerID, round)
	})
}

// ReconnectPlayer marks a player as reconnected
func (s *GameSession) ReconnectPlayer(playerID string) (domain.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.game.Players.SetStatus(playerID, domain.StatusConnected); err != nil {
		return domain.Player{}, err
	}
	s.stopGraceTimer(playerID)

	player, _ := s.game.GetPlayer(playerID)
	s.queueEvent(domain.NewEvent(domain.EventPlayerReconnected, s.game.ID, s.game.GetLobbyState()))

	return player, nil
}

// StartGame starts the first round (host only)
func (s *GameSession) StartGame(playerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.game.IsHost(playerID) {
		return domain.ErrNotHost
	}
	if s.game.Phase != domain.PhaseLobby {
		return domain.ErrGameAlreadyStarted
	}

	return s.startRoundLocked()
}

// StartNewRound starts the next round after a round has ended (host only)
func (s *GameSession) StartNewRound(playerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.game.IsHost(playerID) {
		return domain.ErrNotHost
	}
	if s.game.Phase == domain.PhaseGameOver {
		return domain.ErrGameOver
	}
	if s.game.Phase != domain.PhaseRoundEnd {
		return domain.ErrInvalidPhase
	}

	return s.startRoundLocked()
}

// AdvancePhase moves the live round from discussion to voting (host only)
func (s *GameSession) AdvancePhase(playerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.game.IsHost(playerID) {
		return domain.ErrNotHost
	}
	if !s.roundLive() {
		return domain.ErrInvalidPhase
	}

	s.stopDiscussionTimer()
	return s.round.StartVoting()
}

// EndRound aborts the live round without a winner (host only)
func (s *GameSession) EndRound(playerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.game.IsHost(playerID) {
		return domain.ErrNotHost
	}
	if !s.roundLive() {
		return domain.ErrInvalidPhase
	}

	s.round.Abort()
	return nil
}

// CastVote casts or changes a vote in the live round
func (s *GameSession) CastVote(voterID, targetID string) error {
	round := s.liveRound()
	if round == nil {
		return domain.ErrInvalidPhase
	}
	return round.CastVote(voterID, targetID)
}

// SubmitGuess submits an imposter's guess at the secret word
func (s *GameSession) SubmitGuess(playerID, text string) (bool, error) {
	round := s.liveRound()
	if round == nil {
		return false, domain.ErrInvalidPhase
	}
	return round.SubmitGuess(playerID, text)
}

// GetGameState returns the current game state for a (re)connecting player
func (s *GameSession) GetGameState(playerID string) map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state := map[string]interface{}{
		"phase":    s.game.Phase,
		"players":  s.game.Players.Infos(),
		"hostId":   s.game.HostID,
		"canStart": s.game.CanStart(),
		"scores":   s.standingsLocked(),
	}

	if s.round != nil {
		view := s.round.View(playerID)
		state["round"] = view
		if s.game.Phase == domain.PhaseRoleAssignment {
			state["phase"] = view.Phase
		}
	}

	return state
}

// Notify implements Notifier for the round orchestrator
func (s *GameSession) Notify(event *domain.GameEvent) {
	s.queueEvent(event)
}

// startRoundLocked deals a new round. Caller must hold s.mu.
func (s *GameSession) startRoundLocked() error {
	previous := s.game.Phase
	number, err := s.game.BeginRound()
	if err != nil {
		return err
	}

	ids := s.game.Players.IDs()
	count := domain.ImposterCountFor(len(ids), s.game.Settings.ImposterCount)
	imposters := domain.SelectImposters(ids, count, s.rng)
	word := s.words.Pick(s.rng, s.game.UsedWords)

	round, err := domain.NewRound(number, word, imposters, len(ids))
	if err != nil {
		s.game.Phase = previous
		return err
	}

	orchestrator := NewRoundOrchestrator(RoundConfig{
		GameID:   s.game.ID,
		Round:    round,
		Players:  s.game.Players,
		Settings: s.game.Settings,
		Clock:    s.clock,
		Notifier: s,
		Logger:   s.logger,
	})
	s.round = orchestrator

	s.logger.Info("round starting", "round", number, "players", len(ids), "imposters", count)
	s.queueEvent(domain.NewEvent(domain.EventRoundRestart, s.game.ID, nil))

	if err := orchestrator.Begin(); err != nil {
		return err
	}

	if d := s.game.Settings.DiscussionDuration; d > 0 {
		s.discussionTimer = s.clock.AfterFunc(d, func() {
			s.autoAdvance(orchestrator)
		})
	}

	go s.awaitRound(orchestrator)

	return nil
}

// autoAdvance opens voting when the discussion timer expires
func (s *GameSession) autoAdvance(round *RoundOrchestrator) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.round != round {
		return
	}
	s.discussionTimer = nil

	if err := round.StartVoting(); err != nil {
		s.logger.Debug("discussion timer ignored", "error", err)
	}
}

// withdrawIfAbsent withdraws a player whose grace period ran out
func (s *GameSession) withdrawIfAbsent(playerID string, round *RoundOrchestrator) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.graceTimers, playerID)
	if s.round != round {
		return
	}

	player, err := s.game.GetPlayer(playerID)
	if err != nil || player.IsConnected() {
		return
	}

	if err := round.Withdraw(playerID); err != nil {
		s.logger.Warn("failed to withdraw player", "playerId", playerID, "error", err)
	}
}

// awaitRound folds a finished round into the standings
func (s *GameSession) awaitRound(round *RoundOrchestrator) {
	select {
	case <-round.Done():
	case <-s.done:
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.round != round {
		return
	}

	s.stopDiscussionTimer()
	for id := range s.graceTimers {
		s.stopGraceTimer(id)
	}

	over := s.game.RecordResult(round.Result())
	s.queueEvent(domain.NewEvent(domain.EventScoresUpdated, s.game.ID, s.standingsLocked()))

	if over {
		s.logger.Info("game over", "rounds", len(s.game.RoundHistory))
		s.queueEvent(domain.NewEvent(domain.EventGameOver, s.game.ID, &domain.GameOverPayload{
			Scores:    s.game.ScoresCopy(),
			WinnerIDs: s.game.Leaders(),
		}))
	}
}

func (s *GameSession) liveRound() *RoundOrchestrator {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.roundLive() {
		return nil
	}
	return s.round
}

// roundLive reports whether a round is being played. Caller must hold s.mu.
func (s *GameSession) roundLive() bool {
	return s.round != nil && s.game.Phase == domain.PhaseRoleAssignment
}

func (s *GameSession) standingsLocked() *domain.ScoresUpdatedPayload {
	return &domain.ScoresUpdatedPayload{
		Scores:       s.game.ScoresCopy(),
		TeamWins:     s.game.TeamWinsCopy(),
		RoundsPlayed: len(s.game.RoundHistory),
	}
}

func (s *GameSession) stopDiscussionTimer() {
	if s.discussionTimer != nil {
		s.discussionTimer.Stop()
		s.discussionTimer = nil
	}
}

func (s *GameSession) stopGraceTimer(playerID string) {
	if t, ok := s.graceTimers[playerID]; ok {
		t.Stop()
		delete(s.graceTimers, playerID)
	}
}

// queueEvent adds an event to the broadcast queue
func (s *GameSession) queueEvent(event *domain.GameEvent) {
	select {
	case s.events <- event:
	default:
		s.logger.Warn("event queue full, dropping event", "type", event.Type)
	}
}

// eventLoop processes events and broadcasts to clients
func (s *GameSession) eventLoop() {
	for {
		select {
		case <-s.done:
			return
		case event := <-s.events:
			s.broadcastEvent(event)
		}
	}
}

// broadcastEvent sends an event to appropriate clients
func (s *GameSession) broadcastEvent(event *domain.GameEvent) {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()

	// If player-specific, send only to that player
	if event.PlayerID != "" {
		if client, ok := s.clients[event.PlayerID]; ok {
			if err := client.Send(event); err != nil {
				s.logger.Debug("failed to send to client", "playerID", event.PlayerID, "error", err)
			}
		}
		return
	}

	// Broadcast to all clients
	for playerID, client := range s.clients {
		if err := client.Send(event); err != nil {
			s.logger.Debug("failed to send to client", "playerID", playerID, "error", err)
		}
	}
}

// Close shuts down the session
func (s *GameSession) Close() {
	closed := true
	s.closeOnce.Do(func() {
		close(s.done)
		closed = false
	})
	if closed {
		return
	}

	s.mu.Lock()
	s.stopDiscussionTimer()
	for id := range s.graceTimers {
		s.stopGraceTimer(id)
	}
	if s.roundLive() {
		s.round.Abort()
	}
	s.mu.Unlock()

	// Close all client connections
	s.clientsMu.Lock()
	for _, client := range s.clients {
		client.Close()
	}
	s.clients = make(map[string]ClientConnection)
	s.clientsMu.Unlock()
}
