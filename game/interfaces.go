package game

import (
	"github.com/anshtutorial/chess-game/models"
)

// Broadcaster delivers outbound messages. Declared here to break the
// import cycle between game and broadcast.
type Broadcaster interface {
	BroadcastToGame(gameID string, msgID uint16, data []byte) error
	SendToSession(sessionID string, msgID uint16, data []byte) error
}

// Archiver receives the record of a reaped game. Optional; a nil archiver
// means finished games are simply discarded.
type Archiver interface {
	ArchiveGame(record *models.GameRecord) error
}
