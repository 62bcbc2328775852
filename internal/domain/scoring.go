package domain

import "time"

// WinReason explains how a round ended
type WinReason string

const (
	ReasonImpostersFound    WinReason = "imposters_found"
	ReasonWordGuessed       WinReason = "word_guessed"
	ReasonImpostersSurvived WinReason = "imposters_survived"
	ReasonImposterForfeit   WinReason = "imposter_forfeit"
	ReasonAborted           WinReason = "aborted"
)

// Winner returns the team a reason awards the round to
func (r WinReason) Winner() Team {
	switch r {
	case ReasonImpostersFound, ReasonImposterForfeit:
		return TeamInnocents
	case ReasonWordGuessed, ReasonImpostersSurvived:
		return TeamImposters
	}
	return TeamNone
}

// Points
const (
	PointsInnocentWin        = 2
	PointsSurvivorBonus      = 1
	PointsGuesser            = 3
	PointsGuessTeammate      = 1
	PointsImposterSurvived   = 2
	PointsForfeitWin         = 1
	PointsImposterVoteCredit = 1
)

// RoundResult is the outcome of a finished round
type RoundResult struct {
	RoundNumber int            `json:"roundNumber"`
	Winner      Team           `json:"winner"`
	Reason      WinReason      `json:"reason"`
	SecretWord  string         `json:"word"`
	ImposterIDs []string       `json:"imposterIds"`
	GuesserID   string         `json:"guesserId,omitempty"`
	Eliminated  []string       `json:"eliminated"`
	ScoreDelta  map[string]int `json:"scoreDelta"`
	EndedAt     time.Time      `json:"endedAt"`
}

// ScoreRound computes the per-player delta for a finished round. roster is
// the active set at the moment the round ended.
func ScoreRound(r *Round, roster Roster, reason WinReason, guesserID string) map[string]int {
	delta := make(map[string]int, len(roster))
	for id := range roster {
		delta[id] = 0
	}
	if reason == ReasonAborted {
		return delta
	}

	for voter, credit := range r.VoteCredits {
		if _, ok := roster[voter]; ok {
			delta[voter] += credit
		}
	}

	for id, active := range roster {
		imposter := r.IsImposter(id)
		switch reason {
		case ReasonImpostersFound:
			if !imposter {
				delta[id] += PointsInnocentWin
				if active {
					delta[id] += PointsSurvivorBonus
				}
			}
		case ReasonWordGuessed:
			if id == guesserID {
				delta[id] += PointsGuesser
			} else if imposter {
				delta[id] += PointsGuessTeammate
			}
		case ReasonImpostersSurvived:
			if imposter && active {
				delta[id] += PointsImposterSurvived
			}
		case ReasonImposterForfeit:
			if !imposter && active {
				delta[id] += PointsForfeitWin
			}
		}
	}

	return delta
}
