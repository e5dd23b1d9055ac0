// Package leaderboard persists final game scores.
package leaderboard

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Record is one finished result for one player.
type Record struct {
	ID        uint `gorm:"primarykey"`
	Name      string
	Score     int
	CreatedAt time.Time
}

// Store is what the rest of the server needs from a leaderboard.
type Store interface {
	Add(ctx context.Context, name string, score int) error
	Top(ctx context.Context, n int) ([]Record, error)
}

// DB is the postgres-backed store.
type DB struct {
	db *gorm.DB
}

// Open connects to postgres and migrates the records table.
func Open(dsn string) (*DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open leaderboard db: %w", err)
	}
	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, fmt.Errorf("migrate leaderboard: %w", err)
	}
	return &DB{db: db}, nil
}

func (d *DB) Add(ctx context.Context, name string, score int) error {
	rec := Record{Name: name, Score: score}
	return d.db.WithContext(ctx).Create(&rec).Error
}

func (d *DB) Top(ctx context.Context, n int) ([]Record, error) {
	var recs []Record
	err := d.db.WithContext(ctx).Order("score DESC, created_at ASC").Limit(n).Find(&recs).Error
	return recs, err
}
