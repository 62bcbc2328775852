package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	t.Run("keeps join order and ignores duplicate adds", func(t *testing.T) {
		r := NewRegistry()
		r.Add("b", "Bob")
		r.Add("a", "Alice")
		again := r.Add("b", "Other Name")

		assert.Equal(t, "Bob", again.Nickname)
		assert.Equal(t, []string{"b", "a"}, r.IDs())
		assert.Equal(t, 2, r.Len())

		first, ok := r.First()
		require.True(t, ok)
		assert.Equal(t, "b", first)
	})

	t.Run("remove", func(t *testing.T) {
		r := NewRegistry()
		r.Add("a", "Alice")
		r.Add("b", "Bob")

		require.NoError(t, r.Remove("a"))
		assert.ErrorIs(t, r.Remove("a"), ErrPlayerNotFound)
		assert.Equal(t, []string{"b"}, r.IDs())
	})

	t.Run("get returns a copy", func(t *testing.T) {
		r := NewRegistry()
		r.Add("a", "Alice")

		p, ok := r.Get("a")
		require.True(t, ok)
		p.Eliminated = true

		again, _ := r.Get("a")
		assert.False(t, again.Eliminated)

		_, ok = r.Get("missing")
		assert.False(t, ok)
	})

	t.Run("eliminate and roster", func(t *testing.T) {
		r := NewRegistry()
		r.Add("a", "Alice")
		r.Add("b", "Bob")
		r.Add("c", "Carol")

		assert.True(t, r.Eliminate("b"))
		assert.False(t, r.Eliminate("b"), "already eliminated")
		assert.False(t, r.Eliminate("zed"))

		assert.Equal(t, Roster{"a": true, "b": false, "c": true}, r.Roster())
		assert.Equal(t, 2, r.Roster().ActiveCount())

		r.ResetForNewRound()
		assert.Equal(t, 3, r.Roster().ActiveCount())
	})

	t.Run("disconnected players stay active", func(t *testing.T) {
		r := NewRegistry()
		r.Add("a", "Alice")
		r.Add("b", "Bob")

		require.NoError(t, r.SetStatus("a", StatusDisconnected))
		assert.ErrorIs(t, r.SetStatus("zed", StatusDisconnected), ErrPlayerNotFound)

		assert.Equal(t, 1, r.ConnectedCount())
		assert.Equal(t, 2, r.Roster().ActiveCount())
	})

	t.Run("assign roles", func(t *testing.T) {
		r := NewRegistry()
		r.Add("a", "Alice")
		r.Add("b", "Bob")

		r.AssignRoles(map[string]bool{"b": true})

		a, _ := r.Get("a")
		b, _ := r.Get("b")
		assert.Equal(t, RoleInnocent, a.Role)
		assert.Equal(t, RoleImposter, b.Role)
		assert.True(t, b.Role.IsImposter())
	})

	t.Run("infos hide roles", func(t *testing.T) {
		r := NewRegistry()
		r.Add("a", "Alice")
		r.AssignRoles(map[string]bool{"a": true})

		infos := r.Infos()
		require.Len(t, infos, 1)
		assert.Equal(t, PlayerInfo{ID: "a", Nickname: "Alice", Status: StatusConnected}, infos[0])
	})
}
