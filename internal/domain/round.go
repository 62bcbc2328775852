package domain

import (
	"math/rand"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Consensus is an armed strict-majority countdown
type Consensus struct {
	TargetID   string    `json:"targetId"`
	Deadline   time.Time `json:"deadline"`
	Generation uint64    `json:"generation"`
}

// Elimination records a player removed by consensus
type Elimination struct {
	PlayerID    string    `json:"playerId"`
	WasImposter bool      `json:"wasImposter"`
	Voters      []string  `json:"voters"`
	At          time.Time `json:"at"`
}

// Round represents a single round of the game
type Round struct {
	Number       int               `json:"number"`
	Phase        Phase             `json:"phase"`
	SecretWord   string            `json:"-"`
	ImposterIDs  map[string]bool   `json:"-"`
	Votes        map[string]string `json:"votes"` // voter -> target
	Consensus    *Consensus        `json:"consensus,omitempty"`
	Eliminations []Elimination     `json:"eliminations"`
	VoteCredits  map[string]int    `json:"-"` // voters credited for eliminating an imposter
	StartedAt    time.Time         `json:"startedAt"`
	EndedAt      time.Time         `json:"endedAt,omitempty"`
}

// NewRound creates a round in the role assignment phase
func NewRound(number int, secretWord string, imposterIDs []string, playerCount int) (*Round, error) {
	secretWord = strings.TrimSpace(secretWord)
	if secretWord == "" {
		return nil, ErrEmptyWord
	}

	imposters := make(map[string]bool, len(imposterIDs))
	for _, id := range imposterIDs {
		imposters[id] = true
	}
	if len(imposters) < 1 || len(imposters) >= playerCount {
		return nil, ErrInvalidImposters
	}

	return &Round{
		Number:      number,
		Phase:       PhaseRoleAssignment,
		SecretWord:  secretWord,
		ImposterIDs: imposters,
		Votes:       make(map[string]string),
		VoteCredits: make(map[string]int),
		StartedAt:   time.Now(),
	}, nil
}

// Transition moves the round to the target phase if the edge is allowed
func (r *Round) Transition(target Phase) error {
	if !r.Phase.CanTransitionTo(target) {
		return ErrInvalidTransition
	}
	r.Phase = target
	return nil
}

// IsImposter checks if the given player is an imposter this round
func (r *Round) IsImposter(playerID string) bool {
	return r.ImposterIDs[playerID]
}

// Imposters returns the imposter IDs in sorted order
func (r *Round) Imposters() []string {
	ids := make([]string, 0, len(r.ImposterIDs))
	for id := range r.ImposterIDs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// RemainingImposters counts imposters still active in the roster
func (r *Round) RemainingImposters(roster Roster) int {
	count := 0
	for id := range r.ImposterIDs {
		if roster[id] {
			count++
		}
	}
	return count
}

// SetVote records or overwrites a voter's target. It reports whether the
// ledger changed.
func (r *Round) SetVote(voterID, targetID string) bool {
	if r.Votes[voterID] == targetID {
		return false
	}
	r.Votes[voterID] = targetID
	return true
}

// ResetVotes clears the vote ledger and any armed consensus
func (r *Round) ResetVotes() {
	r.Votes = make(map[string]string)
	r.Consensus = nil
}

// VotersFor returns the voters currently targeting the given player, sorted
func (r *Round) VotersFor(targetID string) []string {
	voters := make([]string, 0)
	for voter, target := range r.Votes {
		if target == targetID {
			voters = append(voters, voter)
		}
	}
	sort.Strings(voters)
	return voters
}

// VotesCopy returns a copy of the vote ledger safe to hand to broadcasters
func (r *Round) VotesCopy() map[string]string {
	out := make(map[string]string, len(r.Votes))
	for k, v := range r.Votes {
		out[k] = v
	}
	return out
}

// GuessMatches compares a guess to the secret word ignoring case and whitespace
func (r *Round) GuessMatches(guess string) bool {
	g := NormalizeWord(guess)
	return g != "" && g == NormalizeWord(r.SecretWord)
}

// NormalizeWord folds case, applies NFKC and collapses whitespace runs
func NormalizeWord(s string) string {
	s = norm.NFKC.String(s)
	s = cases.Fold().String(s)
	return strings.Join(strings.Fields(s), " ")
}

// ImposterCountFor returns how many imposters to deal for a player count.
// A configured count of zero selects one imposter below seven players and
// two otherwise. The result is always at least one and below playerCount.
func ImposterCountFor(playerCount, configured int) int {
	count := configured
	if count <= 0 {
		count = 1
		if playerCount >= 7 {
			count = 2
		}
	}
	if count >= playerCount {
		count = playerCount - 1
	}
	if count < 1 {
		count = 1
	}
	return count
}

// SelectImposters picks count distinct players at random
func SelectImposters(playerIDs []string, count int, rng *rand.Rand) []string {
	pool := make([]string, len(playerIDs))
	copy(pool, playerIDs)
	rng.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})
	if count > len(pool) {
		count = len(pool)
	}
	return pool[:count]
}
