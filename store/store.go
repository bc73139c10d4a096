// Package store wraps the forex_news table behind the three operations
// the ingestion loop needs: cursor lookup, duplicate check and bulk
// insert, plus a latest-N read for the ops API.
package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/codewith-lab/forexfeed/models"
)

type Store struct {
	db *gorm.DB
}

// Open connects to Postgres and bootstraps the forex_news table.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("setting up database: %w", err)
	}
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetMaxOpenConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return NewWithDB(db)
}

// NewWithDB wraps an existing gorm connection. Tests use this with an
// in-memory sqlite database.
func NewWithDB(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&models.NewsRecord{}); err != nil {
		return nil, fmt.Errorf("migrating forex_news: %w", err)
	}
	return &Store{db: db}, nil
}

// LastNewsID returns the highest stored article id.
// gorm.ErrRecordNotFound signals an empty table.
func (s *Store) LastNewsID(ctx context.Context) (int64, error) {
	var rec models.NewsRecord
	err := s.db.WithContext(ctx).
		Select("id").
		Order("id DESC").
		Limit(1).
		Take(&rec).Error
	if err != nil {
		return 0, err
	}
	return rec.ID, nil
}

// ExistingIDs reports which of the given article ids are already stored,
// as a single set-membership query.
func (s *Store) ExistingIDs(ctx context.Context, ids []int64) (map[int64]struct{}, error) {
	existing := make(map[int64]struct{}, len(ids))
	if len(ids) == 0 {
		return existing, nil
	}

	var found []int64
	err := s.db.WithContext(ctx).
		Model(&models.NewsRecord{}).
		Where("id IN ?", ids).
		Pluck("id", &found).Error
	if err != nil {
		return nil, err
	}

	for _, id := range found {
		existing[id] = struct{}{}
	}
	return existing, nil
}

// InsertBatch writes the records in one bulk insert. Ids that already
// exist are skipped via ON CONFLICT DO NOTHING, so re-deriving a batch
// after a partial commit cannot fail on uniqueness.
func (s *Store) InsertBatch(ctx context.Context, records []models.NewsRecord) error {
	if len(records) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&records).Error
}

// Latest returns up to limit records, newest first by publish time.
func (s *Store) Latest(ctx context.Context, limit int) ([]models.NewsRecord, error) {
	records := make([]models.NewsRecord, 0, limit)
	err := s.db.WithContext(ctx).
		Order("datetime DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}
