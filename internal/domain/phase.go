package domain

// Phase represents the current phase of a game or round
type Phase string

const (
	PhaseLobby            Phase = "LOBBY"             // Waiting for players to join
	PhaseRoleAssignment   Phase = "ROLE_ASSIGNMENT"   // Word and imposters being dealt
	PhaseDiscussion       Phase = "DISCUSSION"        // Free talk, imposters may guess
	PhaseVoting           Phase = "VOTING"            // Votes open, no majority
	PhaseConsensusPending Phase = "CONSENSUS_PENDING" // Strict majority, countdown running
	PhaseReveal           Phase = "REVEAL"            // Disclosing the eliminated player
	PhaseRoundEnd         Phase = "ROUND_END"         // Winner and score deltas known
	PhaseGameOver         Phase = "GAME_OVER"         // Session finished
)

// String returns the string representation of the phase
func (p Phase) String() string {
	return string(p)
}

// AcceptsVotes reports whether votes may be cast or changed in this phase
func (p Phase) AcceptsVotes() bool {
	return p == PhaseVoting || p == PhaseConsensusPending
}

// AcceptsGuesses reports whether imposters may submit a word guess in this phase
func (p Phase) AcceptsGuesses() bool {
	return p == PhaseDiscussion || p == PhaseVoting || p == PhaseConsensusPending
}

// InRound reports whether the phase belongs to a live round
func (p Phase) InRound() bool {
	switch p {
	case PhaseRoleAssignment, PhaseDiscussion, PhaseVoting, PhaseConsensusPending, PhaseReveal:
		return true
	}
	return false
}

var validTransitions = map[Phase][]Phase{
	PhaseLobby:            {PhaseRoleAssignment},
	PhaseRoleAssignment:   {PhaseDiscussion, PhaseRoundEnd},
	PhaseDiscussion:       {PhaseVoting, PhaseRoundEnd},
	PhaseVoting:           {PhaseConsensusPending, PhaseRoundEnd},
	PhaseConsensusPending: {PhaseVoting, PhaseReveal, PhaseRoundEnd},
	PhaseReveal:           {PhaseVoting, PhaseRoundEnd},
	PhaseRoundEnd:         {PhaseRoleAssignment, PhaseGameOver},
}

// CanTransitionTo checks if a transition from current phase to target phase is valid
func (p Phase) CanTransitionTo(target Phase) bool {
	allowed, ok := validTransitions[p]
	if !ok {
		return false
	}

	for _, phase := range allowed {
		if phase == target {
			return true
		}
	}
	return false
}
