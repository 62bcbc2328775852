package domain

import (
	"errors"
	"fmt"
)

// Error taxonomy roots
var (
	// ErrInvalidAction is wrapped by every rejected player action. The
	// rejection is reported to the acting player only.
	ErrInvalidAction = errors.New("invalid action")

	// ErrStaleTimer marks a consensus fire whose generation is no longer live.
	ErrStaleTimer = errors.New("stale consensus timer")

	// ErrInconsistentState marks ledger entries that reference players the
	// registry does not know. They are given zero weight.
	ErrInconsistentState = errors.New("inconsistent round state")
)

// Domain errors
var (
	ErrGameNotFound       = errors.New("game not found")
	ErrGameFull           = errors.New("game is full")
	ErrGameAlreadyStarted = errors.New("game already started")
	ErrGameOver           = errors.New("game is over")
	ErrNotEnoughPlayers   = errors.New("not enough players to start")
	ErrInvalidTransition  = errors.New("invalid phase transition")
	ErrEmptyWord          = errors.New("word cannot be empty")
	ErrInvalidImposters   = errors.New("imposter set must be non-empty and smaller than the player count")

	ErrInvalidPhase      = fmt.Errorf("%w: not allowed in current phase", ErrInvalidAction)
	ErrPlayerNotFound    = fmt.Errorf("%w: player not found", ErrInvalidAction)
	ErrNotHost           = fmt.Errorf("%w: only host can perform this action", ErrInvalidAction)
	ErrVoterEliminated   = fmt.Errorf("%w: eliminated players cannot vote", ErrInvalidAction)
	ErrTargetEliminated  = fmt.Errorf("%w: target is eliminated", ErrInvalidAction)
	ErrInvalidTargetID   = fmt.Errorf("%w: invalid vote target", ErrInvalidAction)
	ErrCannotVoteSelf    = fmt.Errorf("%w: cannot vote for yourself", ErrInvalidAction)
	ErrNotImposter       = fmt.Errorf("%w: only imposters can guess the word", ErrInvalidAction)
	ErrGuesserEliminated = fmt.Errorf("%w: eliminated imposters cannot guess", ErrInvalidAction)
	ErrEmptyGuess        = fmt.Errorf("%w: guess cannot be empty", ErrInvalidAction)
)
