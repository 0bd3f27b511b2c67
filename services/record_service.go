// services/record_service.go
package services

import (
	"github.com/anshtutorial/chess-game/logger"
	"github.com/anshtutorial/chess-game/models"
	"github.com/anshtutorial/chess-game/persistence"
)

// RecordService archives reaped games and serves the archive to the
// admin surface. It satisfies game.Archiver.
type RecordService struct {
	db persistence.Database
}

func NewRecordService(db persistence.Database) *RecordService {
	return &RecordService{db: db}
}

// ArchiveGame writes one finished game. Best effort: a failed write is
// logged and swallowed so reaping never stalls on the database.
func (s *RecordService) ArchiveGame(record *models.GameRecord) error {
	if err := s.db.SaveGameRecord(record); err != nil {
		logger.Log.Errorf("Failed to archive game %s: %v", record.GameID, err)
		return err
	}
	logger.Log.Infof("Archived game %s (%d moves)", record.GameID, record.MoveCount)
	return nil
}

func (s *RecordService) GetRecord(gameID string) (*models.GameRecord, error) {
	return s.db.LoadGameRecord(gameID)
}

func (s *RecordService) RecentRecords(limit int) ([]*models.GameRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.db.RecentGameRecords(limit)
}
