package domain

// VotePolicy controls how stale ledger entries are weighed
type VotePolicy struct {
	// CountEliminatedVoters keeps a vote counted after its voter is
	// eliminated, until the ledger is next reset.
	CountEliminatedVoters bool
}

// DefaultVotePolicy keeps eliminated voters' votes until the next reset
func DefaultVotePolicy() VotePolicy {
	return VotePolicy{CountEliminatedVoters: true}
}

// Tally is the per-candidate vote count derived from a ledger. It is never
// stored; recompute it after every ledger change.
type Tally struct {
	Counts      map[string]int `json:"counts"`
	ActiveCount int            `json:"activeCount"`
	Counted     int            `json:"votedCount"`

	// Unknown counts entries naming a player missing from the roster.
	Unknown int `json:"-"`
	// Ignored counts entries from or to inactive players.
	Ignored int `json:"-"`
}

// CountVotes tallies votes restricted to currently active candidates
func CountVotes(votes map[string]string, roster Roster, policy VotePolicy) Tally {
	t := Tally{
		Counts:      make(map[string]int),
		ActiveCount: roster.ActiveCount(),
	}

	for voter, target := range votes {
		voterActive, voterKnown := roster[voter]
		targetActive, targetKnown := roster[target]

		switch {
		case !voterKnown || !targetKnown:
			t.Unknown++
		case !targetActive:
			t.Ignored++
		case !voterActive && !policy.CountEliminatedVoters:
			t.Ignored++
		default:
			t.Counts[target]++
			t.Counted++
		}
	}

	return t
}

// StrictMajority reports whether count is more than half of active
func StrictMajority(count, active int) bool {
	return active > 0 && count*2 > active
}

// Majority returns the candidate holding a strict majority of active players.
// Votes kept from eliminated voters can push two candidates past half of a
// shrunken active set, so the leader must also hold the unique top count.
// Ties and pluralities never qualify.
func (t Tally) Majority() (string, bool) {
	leader, best, tied := "", 0, false
	for candidate, count := range t.Counts {
		switch {
		case count > best:
			leader, best, tied = candidate, count, false
		case count == best:
			tied = true
		}
	}
	if leader == "" || tied || !StrictMajority(best, t.ActiveCount) {
		return "", false
	}
	return leader, true
}

// CountFor returns the votes for a candidate
func (t Tally) CountFor(candidate string) int {
	return t.Counts[candidate]
}
