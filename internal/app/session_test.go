package app

import (
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imposter-rounds/internal/domain"
	"imposter-rounds/internal/testhelpers"
)

type fakeClient struct {
	id     string
	mu     sync.Mutex
	events []*domain.GameEvent
	closed bool
}

func (c *fakeClient) Send(message interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if event, ok := message.(*domain.GameEvent); ok {
		c.events = append(c.events, event)
	}
	return nil
}

func (c *fakeClient) GetPlayerID() string { return c.id }

func (c *fakeClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeClient) received(t domain.EventType) []*domain.GameEvent {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []*domain.GameEvent
	for _, e := range c.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func (c *fakeClient) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

type sessionFixture struct {
	session *GameSession
	clock   *testhelpers.ManualClock
	clients map[string]*fakeClient
	ids     []string
}

func newSessionFixture(t *testing.T, n int, tweak func(*domain.GameSettings)) *sessionFixture {
	t.Helper()

	settings := domain.DefaultGameSettings()
	settings.ImposterCount = 1
	if tweak != nil {
		tweak(&settings)
	}

	clock := testhelpers.NewManualClock()
	session := NewGameSession(domain.NewGame("ROOM01", settings), SessionOptions{
		Clock:  clock,
		Rand:   rand.New(rand.NewSource(1)),
		Logger: discardLogger(),
	})
	t.Cleanup(session.Close)

	f := &sessionFixture{session: session, clock: clock, clients: make(map[string]*fakeClient)}
	for i := 1; i <= n; i++ {
		id := fmt.Sprintf("p%d", i)
		_, err := session.AddPlayer(id, "Player "+id)
		require.NoError(t, err)

		client := &fakeClient{id: id}
		session.RegisterClient(id, client)
		f.clients[id] = client
		f.ids = append(f.ids, id)
	}
	return f
}

// imposter returns the single imposter of the live round
func (f *sessionFixture) imposter(t *testing.T) string {
	t.Helper()
	round := f.session.Round()
	require.NotNil(t, round)

	for _, id := range f.ids {
		if round.View(id).IsImposter {
			return id
		}
	}
	t.Fatal("round has no imposter")
	return ""
}

func (f *sessionFixture) innocents(t *testing.T) []string {
	t.Helper()
	imposter := f.imposter(t)

	var out []string
	for _, id := range f.ids {
		if id != imposter {
			out = append(out, id)
		}
	}
	return out
}

func (f *sessionFixture) waitRounds(t *testing.T, n int) {
	t.Helper()
	assert.Eventually(t, func() bool {
		return len(f.session.History()) == n
	}, time.Second, 5*time.Millisecond)
}

func TestSessionHostControls(t *testing.T) {
	f := newSessionFixture(t, 4, nil)
	s := f.session

	assert.ErrorIs(t, s.StartGame("p2"), domain.ErrNotHost)
	assert.ErrorIs(t, s.AdvancePhase("p1"), domain.ErrInvalidPhase)
	assert.ErrorIs(t, s.StartNewRound("p1"), domain.ErrInvalidPhase)
	assert.ErrorIs(t, s.CastVote("p1", "p2"), domain.ErrInvalidPhase)

	require.NoError(t, s.StartGame("p1"))
	assert.Equal(t, domain.PhaseDiscussion, s.GetPhase())
	assert.False(t, s.CanJoin())

	assert.ErrorIs(t, s.StartGame("p1"), domain.ErrGameAlreadyStarted)
	assert.ErrorIs(t, s.AdvancePhase("p2"), domain.ErrNotHost)
	assert.ErrorIs(t, s.EndRound("p2"), domain.ErrNotHost)
	assert.ErrorIs(t, s.StartNewRound("p1"), domain.ErrInvalidPhase)

	require.NoError(t, s.AdvancePhase("p1"))
	assert.Equal(t, domain.PhaseVoting, s.GetPhase())
	assert.ErrorIs(t, s.AdvancePhase("p1"), domain.ErrInvalidPhase)
}

func TestSessionStartNeedsPlayers(t *testing.T) {
	f := newSessionFixture(t, 3, nil)

	assert.ErrorIs(t, f.session.StartGame("p1"), domain.ErrNotEnoughPlayers)
	assert.Equal(t, domain.PhaseLobby, f.session.GetPhase())
	assert.Nil(t, f.session.Round())
}

func TestSessionDealsRolesPrivately(t *testing.T) {
	f := newSessionFixture(t, 4, nil)
	require.NoError(t, f.session.StartGame("p1"))
	imposter := f.imposter(t)

	for _, id := range f.ids {
		client := f.clients[id]
		assert.Eventually(t, func() bool {
			return len(client.received(domain.EventRoleAssigned)) == 1
		}, time.Second, 5*time.Millisecond, id)

		event := client.received(domain.EventRoleAssigned)[0]
		assert.Equal(t, id, event.PlayerID)

		payload, ok := event.Payload.(*domain.RoleAssignedPayload)
		require.True(t, ok)
		assert.Equal(t, id == imposter, payload.IsImposter)
		if id == imposter {
			assert.Empty(t, payload.Word)
		} else {
			assert.NotEmpty(t, payload.Word)
		}
	}

	state := f.session.GetGameState(imposter)
	view, ok := state["round"].(*RoundView)
	require.True(t, ok)
	assert.Empty(t, view.Word)
	assert.Equal(t, domain.PhaseDiscussion, state["phase"])
}

func TestSessionFoldsRoundIntoStandings(t *testing.T) {
	f := newSessionFixture(t, 4, nil)
	s := f.session
	require.NoError(t, s.StartGame("p1"))
	require.NoError(t, s.AdvancePhase("p1"))

	imposter := f.imposter(t)
	innocents := f.innocents(t)
	firstWord := s.Round().View(innocents[0]).Word

	for _, id := range innocents {
		require.NoError(t, s.CastVote(id, imposter))
	}
	assert.Equal(t, domain.PhaseConsensusPending, s.GetPhase())

	f.clock.Advance(5 * time.Second)
	f.waitRounds(t, 1)

	assert.Equal(t, domain.PhaseRoundEnd, s.GetPhase())
	result := s.History()[0]
	assert.Equal(t, domain.ReasonImpostersFound, result.Reason)

	scores := s.Scores()
	assert.Zero(t, scores[imposter])
	for _, id := range innocents {
		assert.Equal(t, 4, scores[id], id)
	}

	standings := s.Standings()
	assert.Equal(t, 1, standings.RoundsPlayed)
	assert.Equal(t, 1, standings.TeamWins[domain.TeamInnocents])

	for _, client := range f.clients {
		client := client
		assert.Eventually(t, func() bool {
			return len(client.received(domain.EventScoresUpdated)) == 1
		}, time.Second, 5*time.Millisecond)
	}

	assert.ErrorIs(t, s.StartNewRound("p2"), domain.ErrNotHost)
	require.NoError(t, s.StartNewRound("p1"))
	assert.Equal(t, 2, s.Round().Number())
	assert.Equal(t, domain.PhaseDiscussion, s.GetPhase())

	secondWord := s.Round().View(f.innocents(t)[0]).Word
	assert.NotEqual(t, firstWord, secondWord)

	for _, id := range f.ids {
		p, err := s.GetPlayer(id)
		require.NoError(t, err)
		assert.False(t, p.Eliminated, id)
	}
}

func TestSessionGameOver(t *testing.T) {
	f := newSessionFixture(t, 4, func(s *domain.GameSettings) {
		s.MaxRounds = 1
	})
	s := f.session
	require.NoError(t, s.StartGame("p1"))

	require.NoError(t, s.EndRound("p1"))
	f.waitRounds(t, 1)

	assert.Equal(t, domain.ReasonAborted, s.History()[0].Reason)
	assert.Equal(t, domain.PhaseGameOver, s.GetPhase())
	assert.ErrorIs(t, s.StartNewRound("p1"), domain.ErrGameOver)

	host := f.clients["p1"]
	assert.Eventually(t, func() bool {
		return len(host.received(domain.EventGameOver)) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestSessionDiscussionTimer(t *testing.T) {
	t.Run("opens voting when it expires", func(t *testing.T) {
		f := newSessionFixture(t, 4, func(s *domain.GameSettings) {
			s.DiscussionDuration = time.Minute
		})
		require.NoError(t, f.session.StartGame("p1"))

		f.clock.Advance(59 * time.Second)
		assert.Equal(t, domain.PhaseDiscussion, f.session.GetPhase())

		f.clock.Advance(time.Second)
		assert.Equal(t, domain.PhaseVoting, f.session.GetPhase())
	})

	t.Run("is cancelled by the host", func(t *testing.T) {
		f := newSessionFixture(t, 4, func(s *domain.GameSettings) {
			s.DiscussionDuration = time.Minute
		})
		require.NoError(t, f.session.StartGame("p1"))
		assert.Equal(t, 1, f.clock.Pending())

		require.NoError(t, f.session.AdvancePhase("p1"))
		assert.Zero(t, f.clock.Pending())
	})
}

func TestSessionDisconnectGrace(t *testing.T) {
	grace := func(s *domain.GameSettings) {
		s.ReconnectGracePeriod = 30 * time.Second
	}

	t.Run("withdraws after the grace period", func(t *testing.T) {
		f := newSessionFixture(t, 5, grace)
		require.NoError(t, f.session.StartGame("p1"))
		absent := f.innocents(t)[0]

		f.session.ClientDropped(absent, f.clients[absent])
		p, _ := f.session.GetPlayer(absent)
		assert.False(t, p.Eliminated, "still active while within grace")

		f.clock.Advance(30 * time.Second)

		p, _ = f.session.GetPlayer(absent)
		assert.True(t, p.Eliminated)
		assert.Equal(t, 4, f.session.Round().Tally().ActiveCount)
	})

	t.Run("reconnecting keeps the player in", func(t *testing.T) {
		f := newSessionFixture(t, 5, grace)
		require.NoError(t, f.session.StartGame("p1"))
		absent := f.innocents(t)[0]

		f.session.ClientDropped(absent, f.clients[absent])
		f.clock.Advance(10 * time.Second)
		_, err := f.session.ReconnectPlayer(absent)
		require.NoError(t, err)
		f.clock.Advance(time.Minute)

		p, _ := f.session.GetPlayer(absent)
		assert.False(t, p.Eliminated)
		assert.True(t, p.IsConnected())
		assert.Zero(t, f.clock.Pending())
	})

	t.Run("an absent imposter forfeits", func(t *testing.T) {
		f := newSessionFixture(t, 5, grace)
		require.NoError(t, f.session.StartGame("p1"))

		imposter := f.imposter(t)
		f.session.ClientDropped(imposter, f.clients[imposter])
		f.clock.Advance(30 * time.Second)
		f.waitRounds(t, 1)

		assert.Equal(t, domain.ReasonImposterForfeit, f.session.History()[0].Reason)
	})

	t.Run("dropping the live socket starts the grace period", func(t *testing.T) {
		f := newSessionFixture(t, 5, grace)
		require.NoError(t, f.session.StartGame("p1"))
		absent := f.innocents(t)[0]

		f.session.ClientDropped(absent, f.clients[absent])

		_, ok := f.session.GetClient(absent)
		assert.False(t, ok)
		p, _ := f.session.GetPlayer(absent)
		assert.False(t, p.IsConnected())
		assert.Equal(t, 1, f.clock.Pending())

		f.clock.Advance(30 * time.Second)
		p, _ = f.session.GetPlayer(absent)
		assert.True(t, p.Eliminated)
	})

	t.Run("a replaced socket closing late keeps the player in", func(t *testing.T) {
		f := newSessionFixture(t, 5, grace)
		require.NoError(t, f.session.StartGame("p1"))
		player := f.innocents(t)[0]
		old := f.clients[player]

		// The new socket registers before the old read loop notices it is gone
		replacement := &fakeClient{id: player}
		f.session.RegisterClient(player, replacement)
		_, err := f.session.ReconnectPlayer(player)
		require.NoError(t, err)
		f.session.ClientDropped(player, old)

		got, ok := f.session.GetClient(player)
		require.True(t, ok)
		assert.Same(t, replacement, got)
		assert.Zero(t, f.clock.Pending())

		f.clock.Advance(time.Minute)
		p, _ := f.session.GetPlayer(player)
		assert.False(t, p.Eliminated)
		assert.True(t, p.IsConnected())
	})

	t.Run("disabled", func(t *testing.T) {
		f := newSessionFixture(t, 5, func(s *domain.GameSettings) {
			grace(s)
			s.WithdrawDisconnected = false
		})
		require.NoError(t, f.session.StartGame("p1"))
		absent := f.innocents(t)[0]

		f.session.ClientDropped(absent, f.clients[absent])
		assert.Zero(t, f.clock.Pending())
	})
}

func TestSessionLeavePlayer(t *testing.T) {
	t.Run("in the lobby", func(t *testing.T) {
		f := newSessionFixture(t, 4, nil)
		require.NoError(t, f.session.LeavePlayer("p1"))

		assert.Equal(t, 3, f.session.GetPlayerCount())
		state := f.session.GetGameState("p2")
		assert.Equal(t, "p2", state["hostId"])
		assert.ErrorIs(t, f.session.LeavePlayer("p1"), domain.ErrPlayerNotFound)
	})

	t.Run("mid round", func(t *testing.T) {
		f := newSessionFixture(t, 5, nil)
		require.NoError(t, f.session.StartGame("p1"))
		leaver := f.innocents(t)[0]

		require.NoError(t, f.session.LeavePlayer(leaver))

		p, err := f.session.GetPlayer(leaver)
		require.NoError(t, err)
		assert.True(t, p.Eliminated)
		assert.Equal(t, 5, f.session.GetPlayerCount())
	})
}

func TestSessionClose(t *testing.T) {
	f := newSessionFixture(t, 4, nil)
	require.NoError(t, f.session.StartGame("p1"))
	round := f.session.Round()

	f.session.Close()
	f.session.Close()

	assert.Equal(t, domain.PhaseRoundEnd, round.Phase())
	for id, client := range f.clients {
		assert.True(t, client.isClosed(), id)
	}
}

func TestSessionCloseConcurrent(t *testing.T) {
	f := newSessionFixture(t, 4, nil)
	require.NoError(t, f.session.StartGame("p1"))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.session.Close()
		}()
	}
	wg.Wait()

	assert.Zero(t, f.clock.Pending())
	for id, client := range f.clients {
		assert.True(t, client.isClosed(), id)
	}
}
