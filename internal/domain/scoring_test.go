package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scoringRound(t *testing.T, imposters ...string) *Round {
	t.Helper()
	r, err := NewRound(1, "pizza", imposters, 5)
	require.NoError(t, err)
	return r
}

func TestWinReasonWinner(t *testing.T) {
	assert.Equal(t, TeamInnocents, ReasonImpostersFound.Winner())
	assert.Equal(t, TeamInnocents, ReasonImposterForfeit.Winner())
	assert.Equal(t, TeamImposters, ReasonWordGuessed.Winner())
	assert.Equal(t, TeamImposters, ReasonImpostersSurvived.Winner())
	assert.Equal(t, TeamNone, ReasonAborted.Winner())
}

func TestScoreRound(t *testing.T) {
	t.Run("imposters found", func(t *testing.T) {
		r := scoringRound(t, "i1")
		roster := Roster{"i1": false, "a": true, "b": true, "c": false, "d": true}

		delta := ScoreRound(r, roster, ReasonImpostersFound, "")

		assert.Equal(t, map[string]int{"i1": 0, "a": 3, "b": 3, "c": 2, "d": 3}, delta)
	})

	t.Run("word guessed", func(t *testing.T) {
		r := scoringRound(t, "i1", "i2")
		roster := Roster{"i1": true, "i2": false, "a": true, "b": true, "c": true}

		delta := ScoreRound(r, roster, ReasonWordGuessed, "i1")

		assert.Equal(t, map[string]int{"i1": 3, "i2": 1, "a": 0, "b": 0, "c": 0}, delta)
	})

	t.Run("imposters survived", func(t *testing.T) {
		r := scoringRound(t, "i1", "i2")
		roster := Roster{"i1": true, "i2": false, "a": true, "b": false, "c": false}

		delta := ScoreRound(r, roster, ReasonImpostersSurvived, "")

		assert.Equal(t, map[string]int{"i1": 2, "i2": 0, "a": 0, "b": 0, "c": 0}, delta)
	})

	t.Run("imposter forfeit", func(t *testing.T) {
		r := scoringRound(t, "i1")
		roster := Roster{"i1": false, "a": true, "b": false, "c": true, "d": true}

		delta := ScoreRound(r, roster, ReasonImposterForfeit, "")

		assert.Equal(t, map[string]int{"i1": 0, "a": 1, "b": 0, "c": 1, "d": 1}, delta)
	})

	t.Run("vote credits are kept whatever the outcome", func(t *testing.T) {
		r := scoringRound(t, "i1", "i2")
		r.VoteCredits["a"] = 1
		r.VoteCredits["b"] = 1
		r.VoteCredits["gone"] = 1
		roster := Roster{"i1": false, "i2": true, "a": true, "b": true, "c": true}

		delta := ScoreRound(r, roster, ReasonWordGuessed, "i2")

		assert.Equal(t, 1, delta["a"])
		assert.Equal(t, 1, delta["b"])
		assert.Equal(t, 3, delta["i2"])
		assert.NotContains(t, delta, "gone")
	})

	t.Run("aborted scores nothing", func(t *testing.T) {
		r := scoringRound(t, "i1")
		r.VoteCredits["a"] = 1
		roster := Roster{"i1": true, "a": true, "b": true, "c": true, "d": true}

		delta := ScoreRound(r, roster, ReasonAborted, "")

		for id, points := range delta {
			assert.Zero(t, points, id)
		}
		assert.Len(t, delta, 5)
	})
}
