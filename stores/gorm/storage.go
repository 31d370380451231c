// Package gorm provides a database-backed storage backend for authclient
// using GORM, for applications that already carry a relational database and
// want the session persisted next to the rest of their state.
package gorm

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// EntryModel is the GORM model for stored values, one row per key.
type EntryModel struct {
	Key   string `gorm:"primaryKey;size:128"`
	Value string `gorm:"type:text"`
}

// TableName sets the table name for EntryModel.
func (EntryModel) TableName() string {
	return "authclient_entries"
}

// AutoMigrate runs the database migration for the storage table.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&EntryModel{})
}

// Storage stores values in a single key-value table. Writes go straight
// through; Flush is a no-op.
type Storage struct {
	db *gorm.DB
}

// NewStorage creates a GORM-backed storage on an existing database handle.
// Call AutoMigrate first to create the table.
func NewStorage(db *gorm.DB) *Storage {
	return &Storage{db: db}
}

// Get returns the value stored under key, or ok=false when absent.
func (s *Storage) Get(ctx context.Context, key string) (string, bool, error) {
	var model EntryModel
	err := s.db.WithContext(ctx).First(&model, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return model.Value, true, nil
}

// Set stores value under key, replacing any previous value.
func (s *Storage) Set(ctx context.Context, key, value string) error {
	return s.db.WithContext(ctx).Save(&EntryModel{Key: key, Value: value}).Error
}

// Remove deletes key. Removing an absent key is not an error.
func (s *Storage) Remove(ctx context.Context, key string) error {
	return s.db.WithContext(ctx).Delete(&EntryModel{}, "key = ?", key).Error
}

// Flush is a no-op; writes go straight through.
func (s *Storage) Flush(ctx context.Context) error {
	return nil
}
