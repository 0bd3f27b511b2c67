// rules/rules.go
package rules

import (
	"errors"
	"sync"
)

// ErrMoveRejected is returned by ValidateAndApply when the engine refuses
// a move. It is never forwarded to the remote side; the game layer
// collapses it to a silent drop.
var ErrMoveRejected = errors.New("move rejected by rules engine")

// Position is an opaque board encoding (FEN for standard chess). The game
// layer never inspects it; only the engine produces and consumes it.
type Position string

// Move is a candidate move as submitted over the wire.
type Move struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Promotion string `json:"promotion,omitempty"`
}

// Oracle is the contract with the rules engine. The engine itself lives
// outside this repository; the server is handed an implementation at
// startup.
type Oracle interface {
	// InitialPosition returns the starting position for a fresh game.
	InitialPosition() Position

	// ValidateAndApply checks mv against pos and returns the resulting
	// position, or ErrMoveRejected (possibly wrapped) when the move is
	// illegal or the game is already over.
	ValidateAndApply(pos Position, mv Move) (Position, error)

	// LegalMoves enumerates every legal move from pos.
	LegalMoves(pos Position) []Move

	// IsTerminal reports whether pos is checkmate, stalemate or a draw.
	// Consumed by the presentation/AI layer only; the game layer relies on
	// ValidateAndApply refusing moves against a finished game.
	IsTerminal(pos Position) bool
}

// Picker selects one move out of the engine's legal candidates. Stateless;
// called by the presentation layer when a seat is played by the machine.
type Picker interface {
	Pick(pos Position, candidates []Move) (Move, bool)
}

var (
	enginesMu sync.RWMutex
	engines   = make(map[string]Oracle)
)

// Register makes an engine available under the given name, the same way
// database/sql drivers register themselves. Engine adapter packages call
// it from init; the binary picks one by name from config.
func Register(name string, oracle Oracle) {
	enginesMu.Lock()
	defer enginesMu.Unlock()
	if oracle == nil {
		panic("rules: Register oracle is nil")
	}
	if _, dup := engines[name]; dup {
		panic("rules: Register called twice for engine " + name)
	}
	engines[name] = oracle
}

// Engine returns the registered engine by name.
func Engine(name string) (Oracle, bool) {
	enginesMu.RLock()
	defer enginesMu.RUnlock()
	oracle, exists := engines[name]
	return oracle, exists
}
