// models/gorm_models.go
package models

import (
	"gorm.io/gorm"
)

// GormGameRecord 游戏记录模型
type GormGameRecord struct {
	gorm.Model
	GameID        string `gorm:"uniqueIndex;not null"`
	Moves         string `gorm:"type:jsonb;not null"` // marshalled []rules.Move
	FinalPosition string `gorm:"not null"`
	MoveCount     int    `gorm:"default:0"`
	Duration      int    `gorm:"default:0"` // seconds
}
