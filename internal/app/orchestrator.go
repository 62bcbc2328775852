package app

import (
	"log/slog"
	"time"

	"github.com/sasha-s/go-deadlock"

	"imposter-rounds/internal/consensus"
	"imposter-rounds/internal/domain"
)

// Notifier receives outbound events. Notify must not block and must not call
// back into the orchestrator.
type Notifier interface {
	Notify(event *domain.GameEvent)
}

// RoundConfig wires a RoundOrchestrator
type RoundConfig struct {
	GameID   string
	Round    *domain.Round
	Players  *domain.Registry
	Settings domain.GameSettings
	Clock    consensus.Clock
	Notifier Notifier
	Logger   *slog.Logger
}

// RoundOrchestrator is the state machine of a single round. It is the only
// writer of the round state and of the registry's eliminated flags; every
// inbound event and timer fire runs inside its critical section.
type RoundOrchestrator struct {
	mu deadlock.Mutex

	gameID   string
	round    *domain.Round
	players  *domain.Registry
	settings domain.GameSettings
	policy   domain.VotePolicy
	clock    consensus.Clock
	timer    *consensus.Timer
	notifier Notifier
	logger   *slog.Logger

	result *domain.RoundResult
	done   chan struct{}
}

// NewRoundOrchestrator creates an orchestrator for a round in role assignment
func NewRoundOrchestrator(cfg RoundConfig) *RoundOrchestrator {
	clock := cfg.Clock
	if clock == nil {
		clock = consensus.SystemClock()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &RoundOrchestrator{
		gameID:   cfg.GameID,
		round:    cfg.Round,
		players:  cfg.Players,
		settings: cfg.Settings,
		policy:   cfg.Settings.VotePolicy(),
		clock:    clock,
		timer:    consensus.NewTimer(clock),
		notifier: cfg.Notifier,
		logger:   logger.With("gameId", cfg.GameID, "round", cfg.Round.Number),
		done:     make(chan struct{}),
	}
}

// Begin deals roles and opens discussion. Imposters and innocents get two
// distinct payloads; the secret word is never put in the imposter one.
func (o *RoundOrchestrator) Begin() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.round.Phase != domain.PhaseRoleAssignment {
		return domain.ErrInvalidTransition
	}

	o.players.AssignRoles(o.round.ImposterIDs)

	total := o.players.Len()
	imposterView := &domain.RoleAssignedPayload{
		RoundNumber:   o.round.Number,
		IsImposter:    true,
		ImposterCount: len(o.round.ImposterIDs),
		TotalPlayers:  total,
	}
	innocentView := &domain.RoleAssignedPayload{
		RoundNumber:   o.round.Number,
		IsImposter:    false,
		Word:          o.round.SecretWord,
		ImposterCount: len(o.round.ImposterIDs),
		TotalPlayers:  total,
	}

	for _, id := range o.players.IDs() {
		payload := innocentView
		if o.round.IsImposter(id) {
			payload = imposterView
		}
		o.notify(domain.NewPlayerEvent(domain.EventRoleAssigned, o.gameID, id, payload))
	}

	o.transition(domain.PhaseDiscussion)
	o.notify(domain.NewEvent(domain.EventDiscussionStarted, o.gameID, &domain.DiscussionStartedPayload{
		RoundNumber:     o.round.Number,
		Players:         o.players.Infos(),
		DurationSeconds: int(o.settings.DiscussionDuration / time.Second),
	}))

	return nil
}

// StartVoting moves discussion to voting with an empty ledger
func (o *RoundOrchestrator) StartVoting() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.round.Phase != domain.PhaseDiscussion {
		return domain.ErrInvalidPhase
	}

	o.round.ResetVotes()
	o.transition(domain.PhaseVoting)
	o.notify(domain.NewEvent(domain.EventVotingStarted, o.gameID, o.votingPayload()))

	return nil
}

// CastVote records or changes a vote, then re-tallies and arms, retargets or
// cancels the consensus countdown in the same critical section.
func (o *RoundOrchestrator) CastVote(voterID, targetID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.round.Phase.AcceptsVotes() {
		return domain.ErrInvalidPhase
	}

	voter, ok := o.players.Get(voterID)
	if !ok {
		return domain.ErrPlayerNotFound
	}
	if voter.Eliminated {
		return domain.ErrVoterEliminated
	}
	if voterID == targetID {
		return domain.ErrCannotVoteSelf
	}

	target, ok := o.players.Get(targetID)
	if !ok {
		return domain.ErrInvalidTargetID
	}
	if target.Eliminated {
		return domain.ErrTargetEliminated
	}

	if !o.round.SetVote(voterID, targetID) {
		return nil
	}

	o.evaluate()
	return nil
}

// SubmitGuess checks an imposter's guess at the secret word. A correct guess
// ends the round for the imposters and cancels any pending elimination; a
// wrong one is reported to the guesser only.
func (o *RoundOrchestrator) SubmitGuess(playerID, text string) (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.round.Phase.AcceptsGuesses() {
		return false, domain.ErrInvalidPhase
	}

	player, ok := o.players.Get(playerID)
	if !ok {
		return false, domain.ErrPlayerNotFound
	}
	if !o.round.IsImposter(playerID) {
		return false, domain.ErrNotImposter
	}
	if player.Eliminated {
		return false, domain.ErrGuesserEliminated
	}
	if domain.NormalizeWord(text) == "" {
		return false, domain.ErrEmptyGuess
	}

	correct := o.round.GuessMatches(text)
	o.notify(domain.NewPlayerEvent(domain.EventGuessResult, o.gameID, playerID, &domain.GuessResultPayload{
		Correct: correct,
	}))
	if !correct {
		o.logger.Debug("incorrect guess", "playerId", playerID)
		return false, nil
	}

	o.finish(domain.ReasonWordGuessed, playerID)
	return true, nil
}

// Withdraw removes a player from the rest of the round at the session's
// request, for example after a disconnect outlived its grace period.
func (o *RoundOrchestrator) Withdraw(playerID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.round.Phase.InRound() {
		return nil
	}
	if _, ok := o.players.Get(playerID); !ok {
		return domain.ErrPlayerNotFound
	}
	if !o.players.Eliminate(playerID) {
		return nil
	}

	o.logger.Info("player withdrawn", "playerId", playerID)
	o.notify(domain.NewEvent(domain.EventPlayerWithdrawn, o.gameID, &domain.PlayerWithdrawnPayload{
		PlayerID: playerID,
	}))

	roster := o.players.Roster()
	if o.round.IsImposter(playerID) && o.round.RemainingImposters(roster) == 0 {
		o.finish(domain.ReasonImposterForfeit, "")
		return nil
	}
	if o.belowThreshold(roster) {
		o.finish(domain.ReasonImpostersSurvived, "")
		return nil
	}
	if o.round.Phase.AcceptsVotes() {
		o.evaluate()
	}
	return nil
}

// Abort ends a live round without a winner
func (o *RoundOrchestrator) Abort() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.round.Phase.InRound() {
		o.finish(domain.ReasonAborted, "")
	}
}

// Phase returns the current round phase
func (o *RoundOrchestrator) Phase() domain.Phase {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.round.Phase
}

// Number returns the round number
func (o *RoundOrchestrator) Number() int {
	return o.round.Number
}

// Done is closed when the round reaches RoundEnd
func (o *RoundOrchestrator) Done() <-chan struct{} {
	return o.done
}

// Result returns the outcome once the round has ended, or nil
func (o *RoundOrchestrator) Result() *domain.RoundResult {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.result
}

// Tally returns the current vote counts
func (o *RoundOrchestrator) Tally() domain.Tally {
	o.mu.Lock()
	defer o.mu.Unlock()
	return domain.CountVotes(o.round.Votes, o.players.Roster(), o.policy)
}

// Consensus returns a copy of the armed consensus, if any
func (o *RoundOrchestrator) Consensus() (domain.Consensus, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.round.Consensus == nil {
		return domain.Consensus{}, false
	}
	return *o.round.Consensus, true
}

// RoundView is one player's picture of the round, used to resync clients
type RoundView struct {
	RoundNumber      int                 `json:"roundNumber"`
	Phase            domain.Phase        `json:"phase"`
	IsImposter       bool                `json:"isImposter"`
	Word             string              `json:"word,omitempty"`
	ImposterCount    int                 `json:"imposterCount"`
	Players          []domain.PlayerInfo `json:"players"`
	Votes            map[string]string   `json:"votes"`
	Counts           map[string]int      `json:"counts"`
	ConsensusTarget  string              `json:"consensusTarget,omitempty"`
	ConsensusSeconds int                 `json:"consensusSeconds,omitempty"`
	Result           *domain.RoundResult `json:"result,omitempty"`
}

// View builds the round as seen by one player
func (o *RoundOrchestrator) View(playerID string) *RoundView {
	o.mu.Lock()
	defer o.mu.Unlock()

	tally := domain.CountVotes(o.round.Votes, o.players.Roster(), o.policy)
	view := &RoundView{
		RoundNumber:   o.round.Number,
		Phase:         o.round.Phase,
		IsImposter:    o.round.IsImposter(playerID),
		ImposterCount: len(o.round.ImposterIDs),
		Players:       o.players.Infos(),
		Votes:         o.round.VotesCopy(),
		Counts:        tally.Counts,
		Result:        o.result,
	}

	player, _ := o.players.Get(playerID)
	revealed := o.settings.RevealWordToEliminated && player.Eliminated
	if !view.IsImposter || o.round.Phase == domain.PhaseRoundEnd || revealed {
		view.Word = o.round.SecretWord
	}

	if c := o.round.Consensus; c != nil {
		view.ConsensusTarget = c.TargetID
		view.ConsensusSeconds = ceilSeconds(o.timer.Remaining())
	}

	return view
}

// evaluate recomputes the tally and reconciles the consensus countdown.
// Caller must hold o.mu.
func (o *RoundOrchestrator) evaluate() {
	roster := o.players.Roster()
	tally := domain.CountVotes(o.round.Votes, roster, o.policy)
	if tally.Unknown > 0 {
		o.logger.Debug("ignoring ledger entries", "error", domain.ErrInconsistentState, "count", tally.Unknown)
	}

	o.notify(domain.NewEvent(domain.EventVoteUpdate, o.gameID, &domain.VoteUpdatePayload{
		Votes:       o.round.VotesCopy(),
		Counts:      tally.Counts,
		VotedCount:  tally.Counted,
		ActiveCount: tally.ActiveCount,
	}))

	leader, hasMajority := tally.Majority()
	pending := o.round.Consensus

	switch {
	case hasMajority && pending == nil:
		o.armConsensus(leader)
	case hasMajority && pending.TargetID != leader:
		o.cancelConsensus()
		o.armConsensus(leader)
	case !hasMajority && pending != nil:
		o.cancelConsensus()
		o.transition(domain.PhaseVoting)
	}
}

// armConsensus starts the countdown for target. Caller must hold o.mu.
func (o *RoundOrchestrator) armConsensus(target string) {
	gen, deadline := o.timer.Arm(o.settings.ConsensusDelay, o.onConsensusFire, o.onConsensusTick)
	o.round.Consensus = &domain.Consensus{
		TargetID:   target,
		Deadline:   deadline,
		Generation: gen,
	}

	if o.round.Phase == domain.PhaseVoting {
		o.transition(domain.PhaseConsensusPending)
	}

	o.logger.Debug("consensus armed", "target", target, "generation", gen)
	o.notify(domain.NewEvent(domain.EventConsensusWarning, o.gameID, &domain.ConsensusWarningPayload{
		TargetID:         target,
		CountdownSeconds: ceilSeconds(o.settings.ConsensusDelay),
	}))
}

// cancelConsensus disarms the countdown. Caller must hold o.mu.
func (o *RoundOrchestrator) cancelConsensus() {
	o.timer.Cancel()
	target := o.round.Consensus.TargetID
	o.round.Consensus = nil

	o.logger.Debug("consensus cancelled", "target", target)
	o.notify(domain.NewEvent(domain.EventConsensusCancelled, o.gameID, &domain.ConsensusCancelledPayload{
		TargetID: target,
	}))
}

func (o *RoundOrchestrator) onConsensusTick(gen uint64, remaining int) {
	o.mu.Lock()
	defer o.mu.Unlock()

	c := o.round.Consensus
	if c == nil || c.Generation != gen {
		return
	}
	o.notify(domain.NewEvent(domain.EventConsensusCountdown, o.gameID, &domain.ConsensusWarningPayload{
		TargetID:         c.TargetID,
		CountdownSeconds: remaining,
	}))
}

func (o *RoundOrchestrator) onConsensusFire(gen uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()

	c := o.round.Consensus
	if c == nil || c.Generation != gen || o.round.Phase != domain.PhaseConsensusPending {
		var live uint64
		if c != nil {
			live = c.Generation
		}
		o.logger.Debug("ignoring consensus fire", "error", domain.ErrStaleTimer, "generation", gen, "live", live)
		return
	}

	o.reveal(c.TargetID)
}

// reveal eliminates target and decides whether the round continues.
// Caller must hold o.mu.
func (o *RoundOrchestrator) reveal(targetID string) {
	o.round.Consensus = nil
	o.transition(domain.PhaseReveal)
	o.notify(domain.NewEvent(domain.EventRevealStart, o.gameID, &domain.RevealStartPayload{
		TargetID: targetID,
	}))

	before := o.players.Roster()
	voters := make([]string, 0)
	for _, voter := range o.round.VotersFor(targetID) {
		active, known := before[voter]
		if known && (active || o.policy.CountEliminatedVoters) {
			voters = append(voters, voter)
		}
	}

	wasImposter := o.round.IsImposter(targetID)
	o.players.Eliminate(targetID)
	o.round.Eliminations = append(o.round.Eliminations, domain.Elimination{
		PlayerID:    targetID,
		WasImposter: wasImposter,
		Voters:      voters,
		At:          o.clock.Now(),
	})
	if wasImposter {
		for _, voter := range voters {
			o.round.VoteCredits[voter] += domain.PointsImposterVoteCredit
		}
	}

	roster := o.players.Roster()
	remaining := o.round.RemainingImposters(roster)
	target, _ := o.players.Get(targetID)

	o.logger.Info("player eliminated", "playerId", targetID, "wasImposter", wasImposter, "remainingImposters", remaining)
	o.notify(domain.NewEvent(domain.EventRevealResult, o.gameID, &domain.RevealResultPayload{
		TargetID:           targetID,
		Nickname:           target.Nickname,
		WasImposter:        wasImposter,
		RemainingImposters: remaining,
	}))
	if o.settings.RevealWordToEliminated {
		o.notify(domain.NewPlayerEvent(domain.EventWordRevealed, o.gameID, targetID, &domain.WordRevealedPayload{
			Word: o.round.SecretWord,
		}))
	}

	switch {
	case remaining == 0:
		o.finish(domain.ReasonImpostersFound, "")
	case o.belowThreshold(roster):
		o.finish(domain.ReasonImpostersSurvived, "")
	default:
		o.round.ResetVotes()
		o.transition(domain.PhaseVoting)
		o.notify(domain.NewEvent(domain.EventVotingResumed, o.gameID, o.votingPayload()))
	}
}

// belowThreshold reports whether too few players remain for another vote
func (o *RoundOrchestrator) belowThreshold(roster domain.Roster) bool {
	active := roster.ActiveCount()
	innocents := active - o.round.RemainingImposters(roster)
	return active < o.settings.MinActivePlayers || innocents == 0
}

// finish ends the round. Caller must hold o.mu.
func (o *RoundOrchestrator) finish(reason domain.WinReason, guesserID string) {
	o.timer.Cancel()
	o.round.Consensus = nil
	o.transition(domain.PhaseRoundEnd)
	o.round.EndedAt = o.clock.Now()

	roster := o.players.Roster()
	eliminated := make([]string, 0, len(o.round.Eliminations))
	for _, e := range o.round.Eliminations {
		eliminated = append(eliminated, e.PlayerID)
	}

	o.result = &domain.RoundResult{
		RoundNumber: o.round.Number,
		Winner:      reason.Winner(),
		Reason:      reason,
		SecretWord:  o.round.SecretWord,
		ImposterIDs: o.round.Imposters(),
		GuesserID:   guesserID,
		Eliminated:  eliminated,
		ScoreDelta:  domain.ScoreRound(o.round, roster, reason, guesserID),
		EndedAt:     o.round.EndedAt,
	}

	names := make([]string, 0, len(o.result.ImposterIDs))
	for _, id := range o.result.ImposterIDs {
		if p, ok := o.players.Get(id); ok {
			names = append(names, p.Nickname)
		}
	}

	o.logger.Info("round ended", "winner", o.result.Winner, "reason", reason)
	o.notify(domain.NewEvent(domain.EventRoundEnd, o.gameID, &domain.RoundEndPayload{
		RoundNumber:   o.round.Number,
		Winner:        o.result.Winner,
		Reason:        reason,
		Word:          o.round.SecretWord,
		ImposterIDs:   o.result.ImposterIDs,
		ImposterNames: names,
		ScoreDelta:    o.result.ScoreDelta,
	}))

	close(o.done)
}

func (o *RoundOrchestrator) votingPayload() *domain.VotingPayload {
	tally := domain.CountVotes(o.round.Votes, o.players.Roster(), o.policy)
	return &domain.VotingPayload{
		Players: o.players.Infos(),
		Votes:   o.round.VotesCopy(),
		Counts:  tally.Counts,
	}
}

func (o *RoundOrchestrator) transition(target domain.Phase) {
	from := o.round.Phase
	if err := o.round.Transition(target); err != nil {
		o.logger.Error("rejected phase transition", "from", from, "to", target, "error", err)
		return
	}
	o.logger.Info("round phase changed", "from", from, "to", target)
}

func (o *RoundOrchestrator) notify(event *domain.GameEvent) {
	if o.notifier != nil {
		o.notifier.Notify(event)
	}
}

func ceilSeconds(d time.Duration) int {
	return int((d + time.Second - 1) / time.Second)
}
