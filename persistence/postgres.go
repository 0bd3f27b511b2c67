// persistence/postgres.go
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	// PostgreSQL 驱动
	_ "github.com/lib/pq"

	"github.com/anshtutorial/chess-game/models"
	"github.com/anshtutorial/chess-game/rules"
)

// PostgreSQL is the plain database/sql backend.
type PostgreSQL struct {
	db *sql.DB
}

func NewPostgreSQL(host string, port int, user, password, dbname string) (*PostgreSQL, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := initTables(db); err != nil {
		return nil, err
	}

	return &PostgreSQL{db: db}, nil
}

// initTables 初始化数据库表结构
func initTables(db *sql.DB) error {
	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS game_records (
            id SERIAL PRIMARY KEY,
            game_id TEXT UNIQUE NOT NULL,
            moves JSONB NOT NULL,
            final_position TEXT NOT NULL,
            move_count INT NOT NULL DEFAULT 0,
            started_at TIMESTAMP NOT NULL,
            ended_at TIMESTAMP NOT NULL,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        );
        CREATE INDEX IF NOT EXISTS idx_game_records_game_id ON game_records(game_id);
        CREATE INDEX IF NOT EXISTS idx_game_records_created_at ON game_records(created_at);
    `)

	return err
}

func (p *PostgreSQL) SaveGameRecord(record *models.GameRecord) error {
	movesJSON, err := json.Marshal(record.Moves)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	query := `
        INSERT INTO game_records (game_id, moves, final_position, move_count, started_at, ended_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (game_id) DO NOTHING
    `

	_, err = p.db.ExecContext(ctx, query,
		record.GameID,
		movesJSON,
		record.FinalPosition,
		record.MoveCount,
		record.StartedAt,
		record.EndedAt)

	return err
}

func (p *PostgreSQL) LoadGameRecord(gameID string) (*models.GameRecord, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	query := `
        SELECT game_id, moves, final_position, move_count, started_at, ended_at
        FROM game_records WHERE game_id = $1
    `

	record := &models.GameRecord{}
	var movesJSON []byte
	err := p.db.QueryRowContext(ctx, query, gameID).Scan(
		&record.GameID,
		&movesJSON,
		&record.FinalPosition,
		&record.MoveCount,
		&record.StartedAt,
		&record.EndedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}

	if err := json.Unmarshal(movesJSON, &record.Moves); err != nil {
		return nil, err
	}
	return record, nil
}

func (p *PostgreSQL) RecentGameRecords(limit int) ([]*models.GameRecord, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	query := `
        SELECT game_id, moves, final_position, move_count, started_at, ended_at
        FROM game_records ORDER BY ended_at DESC LIMIT $1
    `

	rows, err := p.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*models.GameRecord
	for rows.Next() {
		record := &models.GameRecord{}
		var movesJSON []byte
		if err := rows.Scan(
			&record.GameID,
			&movesJSON,
			&record.FinalPosition,
			&record.MoveCount,
			&record.StartedAt,
			&record.EndedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(movesJSON, &record.Moves); err != nil {
			record.Moves = []rules.Move{}
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// Close 关闭数据库连接
func (p *PostgreSQL) Close() error {
	return p.db.Close()
}
