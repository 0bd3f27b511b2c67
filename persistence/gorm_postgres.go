// persistence/gorm_postgres.go
package persistence

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/anshtutorial/chess-game/models"
)

// GormPostgreSQL 使用GORM的PostgreSQL实现
type GormPostgreSQL struct {
	db *gorm.DB
}

// NewGormPostgreSQL 创建GORM PostgreSQL数据库连接
func NewGormPostgreSQL(host string, port int, user, password, dbname string) (*GormPostgreSQL, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	// 配置GORM日志
	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold: time.Second,
			LogLevel:      logger.Silent,
			Colorful:      false,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// 设置连接池
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	// 自动迁移表结构
	if err := db.AutoMigrate(&models.GormGameRecord{}); err != nil {
		return nil, err
	}

	return &GormPostgreSQL{db: db}, nil
}

func (g *GormPostgreSQL) SaveGameRecord(record *models.GameRecord) error {
	movesJSON, err := json.Marshal(record.Moves)
	if err != nil {
		return err
	}

	row := &models.GormGameRecord{
		GameID:        record.GameID,
		Moves:         string(movesJSON),
		FinalPosition: record.FinalPosition,
		MoveCount:     record.MoveCount,
		Duration:      int(record.EndedAt.Sub(record.StartedAt) / time.Second),
	}

	// 使用事务确保数据一致性
	return g.db.Transaction(func(tx *gorm.DB) error {
		var existing models.GormGameRecord
		err := tx.Where("game_id = ?", record.GameID).First(&existing).Error
		if err == nil {
			return nil // already archived
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		return tx.Create(row).Error
	})
}

func (g *GormPostgreSQL) LoadGameRecord(gameID string) (*models.GameRecord, error) {
	var row models.GormGameRecord
	if err := g.db.Where("game_id = ?", gameID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return rowToRecord(&row)
}

func (g *GormPostgreSQL) RecentGameRecords(limit int) ([]*models.GameRecord, error) {
	var rows []models.GormGameRecord
	if err := g.db.Order("created_at desc").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}

	records := make([]*models.GameRecord, 0, len(rows))
	for i := range rows {
		record, err := rowToRecord(&rows[i])
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

// Close 关闭数据库连接
func (g *GormPostgreSQL) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func rowToRecord(row *models.GormGameRecord) (*models.GameRecord, error) {
	record := &models.GameRecord{
		GameID:        row.GameID,
		FinalPosition: row.FinalPosition,
		MoveCount:     row.MoveCount,
		StartedAt:     row.CreatedAt,
		EndedAt:       row.CreatedAt.Add(time.Duration(row.Duration) * time.Second),
	}
	if err := json.Unmarshal([]byte(row.Moves), &record.Moves); err != nil {
		return nil, err
	}
	return record, nil
}
