package domain

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGame(t *testing.T, players int, settings GameSettings) *Game {
	t.Helper()
	g := NewGame("ROOM01", settings)
	for i := 1; i <= players; i++ {
		_, err := g.AddPlayer(fmt.Sprintf("p%d", i), fmt.Sprintf("Player %d", i))
		require.NoError(t, err)
	}
	return g
}

func TestGameLobby(t *testing.T) {
	t.Run("first player hosts", func(t *testing.T) {
		g := newTestGame(t, 2, DefaultGameSettings())
		assert.Equal(t, "p1", g.HostID)
		assert.True(t, g.IsHost("p1"))
		assert.False(t, g.IsHost("p2"))
	})

	t.Run("host passes on when the host leaves", func(t *testing.T) {
		g := newTestGame(t, 3, DefaultGameSettings())
		require.NoError(t, g.RemovePlayer("p1"))
		assert.Equal(t, "p2", g.HostID)
		assert.NotContains(t, g.Scores, "p1")
	})

	t.Run("rejects players beyond capacity", func(t *testing.T) {
		settings := DefaultGameSettings()
		settings.MaxPlayers = 4
		g := newTestGame(t, 4, settings)

		_, err := g.AddPlayer("p5", "Late")
		assert.ErrorIs(t, err, ErrGameFull)
	})

	t.Run("can start with enough players", func(t *testing.T) {
		assert.False(t, newTestGame(t, 3, DefaultGameSettings()).CanStart())
		assert.True(t, newTestGame(t, 4, DefaultGameSettings()).CanStart())
	})
}

func TestGameRounds(t *testing.T) {
	t.Run("begin round requires players", func(t *testing.T) {
		g := newTestGame(t, 3, DefaultGameSettings())
		_, err := g.BeginRound()
		assert.ErrorIs(t, err, ErrNotEnoughPlayers)
		assert.Equal(t, PhaseLobby, g.Phase)
	})

	t.Run("joining and leaving are closed once play starts", func(t *testing.T) {
		g := newTestGame(t, 4, DefaultGameSettings())
		n, err := g.BeginRound()
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		assert.Equal(t, PhaseRoleAssignment, g.Phase)

		_, err = g.AddPlayer("p9", "Late")
		assert.ErrorIs(t, err, ErrGameAlreadyStarted)
		assert.ErrorIs(t, g.RemovePlayer("p2"), ErrGameAlreadyStarted)

		_, err = g.BeginRound()
		assert.ErrorIs(t, err, ErrInvalidPhase)
	})

	t.Run("record result folds scores and team wins", func(t *testing.T) {
		g := newTestGame(t, 4, DefaultGameSettings())
		_, err := g.BeginRound()
		require.NoError(t, err)

		over := g.RecordResult(&RoundResult{
			RoundNumber: 1,
			Winner:      TeamInnocents,
			Reason:      ReasonImpostersFound,
			SecretWord:  "pizza",
			ScoreDelta:  map[string]int{"p1": 0, "p2": 3, "p3": 3, "p4": 2},
		})

		assert.False(t, over)
		assert.Equal(t, PhaseRoundEnd, g.Phase)
		assert.Equal(t, 3, g.Scores["p2"])
		assert.Equal(t, 1, g.TeamWins[TeamInnocents])
		assert.Equal(t, []string{"pizza"}, g.UsedWords)
		assert.Equal(t, []string{"p2", "p3"}, g.Leaders())

		n, err := g.BeginRound()
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})

	t.Run("max rounds ends the game", func(t *testing.T) {
		settings := DefaultGameSettings()
		settings.MaxRounds = 1
		g := newTestGame(t, 4, settings)
		_, err := g.BeginRound()
		require.NoError(t, err)

		over := g.RecordResult(&RoundResult{Reason: ReasonAborted, ScoreDelta: map[string]int{}})

		assert.True(t, over)
		assert.Equal(t, PhaseGameOver, g.Phase)
		assert.Empty(t, g.TeamWins)

		_, err = g.BeginRound()
		assert.ErrorIs(t, err, ErrGameOver)
	})

	t.Run("target score ends the game", func(t *testing.T) {
		settings := DefaultGameSettings()
		settings.TargetScore = 3
		g := newTestGame(t, 4, settings)
		_, err := g.BeginRound()
		require.NoError(t, err)

		over := g.RecordResult(&RoundResult{
			Winner:     TeamImposters,
			Reason:     ReasonWordGuessed,
			ScoreDelta: map[string]int{"p4": 3},
		})

		assert.True(t, over)
		assert.Equal(t, []string{"p4"}, g.Leaders())
	})
}

func TestPhaseTransitions(t *testing.T) {
	tests := []struct {
		from, to Phase
		want     bool
	}{
		{PhaseLobby, PhaseRoleAssignment, true},
		{PhaseRoleAssignment, PhaseDiscussion, true},
		{PhaseDiscussion, PhaseVoting, true},
		{PhaseDiscussion, PhaseRoundEnd, true},
		{PhaseVoting, PhaseConsensusPending, true},
		{PhaseVoting, PhaseReveal, false},
		{PhaseConsensusPending, PhaseVoting, true},
		{PhaseConsensusPending, PhaseReveal, true},
		{PhaseReveal, PhaseVoting, true},
		{PhaseReveal, PhaseRoundEnd, true},
		{PhaseRoundEnd, PhaseRoleAssignment, true},
		{PhaseRoundEnd, PhaseVoting, false},
		{PhaseGameOver, PhaseLobby, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s->%s", tt.from, tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}

	assert.True(t, PhaseConsensusPending.AcceptsVotes())
	assert.False(t, PhaseReveal.AcceptsVotes())
	assert.True(t, PhaseDiscussion.AcceptsGuesses())
	assert.False(t, PhaseReveal.AcceptsGuesses())
	assert.False(t, PhaseRoundEnd.InRound())
}
