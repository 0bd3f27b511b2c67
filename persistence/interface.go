// persistence/interface.go
package persistence

import (
	"fmt"

	"github.com/anshtutorial/chess-game/models"
)

// Database 归档数据库接口
// Append-only store for finished-game records. Both the plain
// database/sql backend and the gorm backend satisfy it; config picks one.
type Database interface {
	SaveGameRecord(record *models.GameRecord) error
	LoadGameRecord(gameID string) (*models.GameRecord, error)
	RecentGameRecords(limit int) ([]*models.GameRecord, error)
	Close() error
}

// 错误定义
var (
	ErrRecordNotFound = fmt.Errorf("record not found")
)
