package redact

import (
	"context"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type mappingRow struct {
	SessionKey string `gorm:"primaryKey;size:256"`
	Token      string `gorm:"primaryKey;size:32"`
	Value      string
	CreatedAt  time.Time
}

func (mappingRow) TableName() string { return "token_mappings" }

// SQLiteStore is a durable MappingStore backed by SQLite via gorm, so
// tokens minted in one process restore correctly in another sharing the
// same file.
type SQLiteStore struct {
	db *gorm.DB
}

// NewSQLiteStore opens (or creates) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open mapping store: %w", err)
	}
	return NewSQLiteStoreFromDB(db)
}

// NewSQLiteStoreFromDB wraps an existing gorm handle.
func NewSQLiteStoreFromDB(db *gorm.DB) (*SQLiteStore, error) {
	if err := db.AutoMigrate(&mappingRow{}); err != nil {
		return nil, fmt.Errorf("migrate mapping store: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Put implements MappingStore.
func (s *SQLiteStore) Put(ctx context.Context, sessionKey, token, value string) error {
	row := mappingRow{SessionKey: sessionKey, Token: token, Value: value, CreatedAt: time.Now().UTC()}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
		return fmt.Errorf("put token mapping: %w", err)
	}
	return nil
}

// Get implements MappingStore.
func (s *SQLiteStore) Get(ctx context.Context, sessionKey, token string) (string, bool, error) {
	var row mappingRow
	err := s.db.WithContext(ctx).
		Where("session_key = ? AND token = ?", sessionKey, token).
		First(&row).Error
	if err == gorm.ErrRecordNotFound {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get token mapping: %w", err)
	}
	return row.Value, true, nil
}
