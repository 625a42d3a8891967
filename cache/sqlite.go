package cache

import (
	"context"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hupe1980/agentpipe/core"
)

type cacheRow struct {
	Key       string `gorm:"primaryKey;size:64"`
	Text      string
	UpdatedAt time.Time
}

func (cacheRow) TableName() string { return "response_cache" }

// SQLiteStore is a durable Store backed by SQLite via gorm, so cache hits
// survive restarts and are shared across processes using the same file.
type SQLiteStore struct {
	db *gorm.DB
}

// NewSQLiteStore opens (or creates) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, core.NewCacheError("open", "", err)
	}
	return NewSQLiteStoreFromDB(db)
}

// NewSQLiteStoreFromDB wraps an existing gorm handle, typically the one the
// session store opened.
func NewSQLiteStoreFromDB(db *gorm.DB) (*SQLiteStore, error) {
	if err := db.AutoMigrate(&cacheRow{}); err != nil {
		return nil, core.NewCacheError("migrate", "", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, key string) (string, bool, error) {
	var row cacheRow
	err := s.db.WithContext(ctx).Where("key = ?", key).First(&row).Error
	if err == gorm.ErrRecordNotFound {
		return "", false, nil
	}
	if err != nil {
		return "", false, core.NewCacheError("get", key, err)
	}
	return row.Text, true, nil
}

// Put implements Store.
func (s *SQLiteStore) Put(ctx context.Context, key, text string) error {
	row := cacheRow{Key: key, Text: text, UpdatedAt: time.Now().UTC()}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error; err != nil {
		return core.NewCacheError("put", key, err)
	}
	return nil
}
