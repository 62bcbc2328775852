package domain

import "sync"

// Roster maps every registered player to whether they are active in the round.
// It is a point-in-time snapshot; callers must not cache it across events.
type Roster map[string]bool

// ActiveCount returns the number of active players in the roster
func (r Roster) ActiveCount() int {
	count := 0
	for _, active := range r {
		if active {
			count++
		}
	}
	return count
}

// Registry tracks the participants of a session in join order.
// Players are only deleted while the session is in the lobby; during a
// round they are marked disconnected or eliminated instead.
type Registry struct {
	mu      sync.RWMutex
	players map[string]*Player
	order   []string
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		players: make(map[string]*Player),
	}
}

// Add registers a new player. Re-adding a known ID is a no-op returning the
// existing record.
func (r *Registry) Add(id, nickname string) Player {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.players[id]; ok {
		return *p
	}

	p := NewPlayer(id, nickname)
	r.players[id] = p
	r.order = append(r.order, id)
	return *p
}

// Remove deletes a player from the registry
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.players[id]; !ok {
		return ErrPlayerNotFound
	}

	delete(r.players, id)
	for i, pid := range r.order {
		if pid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// Get returns a copy of the player with the given ID
func (r *Registry) Get(id string) (Player, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.players[id]
	if !ok {
		return Player{}, false
	}
	return *p, true
}

// Len returns the number of registered players
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.players)
}

// IDs returns all player IDs in join order
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, len(r.order))
	copy(ids, r.order)
	return ids
}

// First returns the earliest-joined player ID still registered
func (r *Registry) First() (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.order) == 0 {
		return "", false
	}
	return r.order[0], true
}

// Infos returns the public view of all players in join order
func (r *Registry) Infos() []PlayerInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]PlayerInfo, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.players[id].ToInfo())
	}
	return out
}

// Roster returns the current active set, recomputed on every call
func (r *Registry) Roster() Roster {
	r.mu.RLock()
	defer r.mu.RUnlock()

	roster := make(Roster, len(r.players))
	for id, p := range r.players {
		roster[id] = p.IsActive()
	}
	return roster
}

// ConnectedCount returns the number of connected players
func (r *Registry) ConnectedCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, p := range r.players {
		if p.IsConnected() {
			count++
		}
	}
	return count
}

// ResetForNewRound clears roles and elimination for every player
func (r *Registry) ResetForNewRound() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range r.players {
		p.ResetForNewRound()
	}
}

// AssignRoles marks the given IDs as imposters and everyone else as innocent
func (r *Registry) AssignRoles(imposters map[string]bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, p := range r.players {
		if imposters[id] {
			p.Role = RoleImposter
		} else {
			p.Role = RoleInnocent
		}
	}
}

// Eliminate flips the player's eliminated flag. It reports false if the
// player is unknown or was already eliminated.
func (r *Registry) Eliminate(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.players[id]
	if !ok || p.Eliminated {
		return false
	}
	p.Eliminated = true
	return true
}

// SetStatus updates a player's connection status
func (r *Registry) SetStatus(id string, status ConnectionStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.players[id]
	if !ok {
		return ErrPlayerNotFound
	}
	p.Status = status
	return nil
}
