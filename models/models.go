// models/models.go
package models

import (
	"time"

	"github.com/anshtutorial/chess-game/rules"
)

// GameRecord is the archived form of a finished (reaped) game: the
// accepted-move history and where it ended up. Append-only; nothing is
// ever restored from it into a live session.
type GameRecord struct {
	GameID        string       `json:"game_id"`
	Moves         []rules.Move `json:"moves"`
	FinalPosition string       `json:"final_position"`
	MoveCount     int          `json:"move_count"`
	StartedAt     time.Time    `json:"started_at"`
	EndedAt       time.Time    `json:"ended_at"`
}

// GameSummary is the admin-surface snapshot of a live game.
type GameSummary struct {
	GameID    string    `json:"game_id"`
	Status    string    `json:"status"`
	Turn      string    `json:"turn"`
	MoveCount int       `json:"move_count"`
	Observers int       `json:"observers"`
	CreatedAt time.Time `json:"created_at"`
}
