// broadcast/broadcast.go
package broadcast

import (
	"errors"

	"github.com/anshtutorial/chess-game/game"
	"github.com/anshtutorial/chess-game/session"
)

var (
	ErrGameNotFound    = errors.New("game not found")
	ErrSessionNotFound = errors.New("session not found")
)

// GameResolver is the slice of the registry the broadcaster needs.
type GameResolver interface {
	GameByID(gameID string) (*game.Game, bool)
}

// GameBroadcaster resolves a game's member ids through the session
// manager and writes to each connection. Sends are fire-and-forget: a
// failed write skips that member and delivery continues.
type GameBroadcaster struct {
	resolver       GameResolver
	sessionManager *session.Manager
}

func NewGameBroadcaster(sessionManager *session.Manager) *GameBroadcaster {
	return &GameBroadcaster{
		sessionManager: sessionManager,
	}
}

// SetResolver wires the registry in after construction; the registry and
// the broadcaster reference each other.
func (b *GameBroadcaster) SetResolver(resolver GameResolver) {
	b.resolver = resolver
}

func (b *GameBroadcaster) BroadcastToGame(gameID string, msgID uint16, data []byte) error {
	g, exists := b.resolver.GameByID(gameID)
	if !exists {
		return ErrGameNotFound
	}

	for _, id := range g.MemberIDs() {
		s, ok := b.sessionManager.Get(id)
		if !ok {
			continue
		}
		if err := s.Send(msgID, data); err != nil {
			continue
		}
	}
	return nil
}

func (b *GameBroadcaster) SendToSession(sessionID string, msgID uint16, data []byte) error {
	s, ok := b.sessionManager.Get(sessionID)
	if !ok {
		return ErrSessionNotFound
	}
	return s.Send(msgID, data)
}
