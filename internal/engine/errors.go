package engine

import (
	"errors"
	"fmt"
)

// Error taxonomy. Handlers map these with errors.Is.
var (
	ErrValidation    = errors.New("invalid request")
	ErrNotFound      = errors.New("not found")
	ErrStateConflict = errors.New("state conflict")
	ErrOracleFailure = errors.New("narrative oracle failed")
	ErrPersistence   = errors.New("persistence failure")
)

// State conflicts. Each wraps ErrStateConflict.
var (
	ErrGameOver        = fmt.Errorf("%w: the game is over", ErrStateConflict)
	ErrNotYourTurn     = fmt.Errorf("%w: not your turn", ErrStateConflict)
	ErrPlayerTurn      = fmt.Errorf("%w: waiting for the player to act", ErrStateConflict)
	ErrNoCombat        = fmt.Errorf("%w: no combat in progress", ErrStateConflict)
	ErrVersionConflict = fmt.Errorf("%w: session was modified by another request", ErrStateConflict)
)
