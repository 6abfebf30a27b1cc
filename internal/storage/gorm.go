package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jinzhu/gorm"
)

// Entry is one persisted key-value pair
type Entry struct {
	Key       string `gorm:"column:entry_key;primary_key;size:255"`
	Value     string `gorm:"type:text"`
	UpdatedAt time.Time
}

// TableName sets the table name for Entry
func (Entry) TableName() string {
	return "storage_entries"
}

// GormStore persists values in a single table through gorm
type GormStore struct {
	db *gorm.DB
}

// NewGormStore migrates the entry table and returns a store backed by db
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&Entry{}).Error; err != nil {
		return nil, fmt.Errorf("migrate storage entries: %w", err)
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var entry Entry
	err := s.db.Where("entry_key = ?", key).First(&entry).Error
	if gorm.IsRecordNotFoundError(err) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get %s: %w", key, err)
	}
	return entry.Value, nil
}

func (s *GormStore) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	entry := Entry{Key: key, Value: value, UpdatedAt: time.Now()}
	if err := s.db.Save(&entry).Error; err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (s *GormStore) Remove(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.db.Where("entry_key = ?", key).Delete(&Entry{}).Error; err != nil {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}
