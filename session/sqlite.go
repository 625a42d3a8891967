package session

import (
	"context"
	"encoding/json"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hupe1980/agentpipe/core"
)

// sessionRow is the persisted session snapshot: identity plus the folded
// state serialized as JSON. Timestamps are normalized to UTC at this
// serialization boundary; the store never substitutes a clock abstraction.
type sessionRow struct {
	AppName   string `gorm:"primaryKey;size:128"`
	UserID    string `gorm:"primaryKey;size:128"`
	SessionID string `gorm:"primaryKey;size:128"`
	State     []byte
	Created   time.Time
	Updated   time.Time
}

func (sessionRow) TableName() string { return "sessions" }

// eventRow is one persisted event. Seq is a monotonically increasing
// per-table sequence preserving log order on reload.
type eventRow struct {
	Seq          int64  `gorm:"primaryKey;autoIncrement"`
	EventID      string `gorm:"uniqueIndex;size:64"`
	AppName      string `gorm:"index:idx_events_session;size:128"`
	UserID       string `gorm:"index:idx_events_session;size:128"`
	SessionID    string `gorm:"index:idx_events_session;size:128"`
	InvocationID string `gorm:"size:64"`
	Author       string `gorm:"size:128"`
	Timestamp    time.Time
	Content      []byte
	StateDelta   []byte
}

func (eventRow) TableName() string { return "events" }

// SQLiteStore is a durable SessionStore backed by SQLite via gorm: one row
// per event, one folded state snapshot per session. Same-session appends
// are serialized by the write transaction.
type SQLiteStore struct {
	db *gorm.DB
}

// NewSQLiteStore opens (or creates) the database at path and migrates the
// session and event tables.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, core.NewPersistenceError("open", err)
	}
	return NewSQLiteStoreFromDB(db)
}

// NewSQLiteStoreFromDB wraps an existing gorm handle (shared databases).
func NewSQLiteStoreFromDB(db *gorm.DB) (*SQLiteStore, error) {
	if err := db.AutoMigrate(&sessionRow{}, &eventRow{}); err != nil {
		return nil, core.NewPersistenceError("migrate", err)
	}
	return &SQLiteStore{db: db}, nil
}

// DB exposes the underlying gorm handle so the cache and token-mapping
// stores can share one database file.
func (s *SQLiteStore) DB() *gorm.DB { return s.db }

// Create inserts (or resets) a session row.
func (s *SQLiteStore) Create(ctx context.Context, appName, userID, sessionID string) (*core.Session, error) {
	sess := core.NewSession(appName, userID, sessionID)
	row, err := toSessionRow(sess)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(row).Error; err != nil {
		return nil, core.NewPersistenceError("create session", err)
	}
	return sess, nil
}

// Get loads a session with its full event log, creating it lazily.
func (s *SQLiteStore) Get(ctx context.Context, appName, userID, sessionID string) (*core.Session, error) {
	var row sessionRow
	err := s.db.WithContext(ctx).
		Where("app_name = ? AND user_id = ? AND session_id = ?", appName, userID, sessionID).
		First(&row).Error
	if err == gorm.ErrRecordNotFound {
		return s.Create(ctx, appName, userID, sessionID)
	}
	if err != nil {
		return nil, core.NewPersistenceError("get session", err)
	}

	sess, err := fromSessionRow(row)
	if err != nil {
		return nil, err
	}

	var rows []eventRow
	if err := s.db.WithContext(ctx).
		Where("app_name = ? AND user_id = ? AND session_id = ?", appName, userID, sessionID).
		Order("seq asc").
		Find(&rows).Error; err != nil {
		return nil, core.NewPersistenceError("list events", err)
	}
	for _, er := range rows {
		ev, err := fromEventRow(er)
		if err != nil {
			return nil, err
		}
		sess.Events = append(sess.Events, ev)
	}
	return sess, nil
}

// List returns all sessions of (app, user) without their event logs.
func (s *SQLiteStore) List(ctx context.Context, appName, userID string) ([]*core.Session, error) {
	var rows []sessionRow
	if err := s.db.WithContext(ctx).
		Where("app_name = ? AND user_id = ?", appName, userID).
		Find(&rows).Error; err != nil {
		return nil, core.NewPersistenceError("list sessions", err)
	}
	out := make([]*core.Session, 0, len(rows))
	for _, row := range rows {
		sess, err := fromSessionRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, nil
}

// AppendEvent writes the event row and the updated state snapshot in one
// transaction, so the log append and the delta fold are atomic. The live
// session is mirrored on success.
func (s *SQLiteStore) AppendEvent(ctx context.Context, sess *core.Session, ev core.Event) (core.Event, error) {
	ev.Timestamp = ev.Timestamp.UTC()

	er, err := toEventRow(sess, ev)
	if err != nil {
		return core.Event{}, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(er).Error; err != nil {
			return err
		}

		var row sessionRow
		findErr := tx.Where("app_name = ? AND user_id = ? AND session_id = ?", sess.AppName, sess.UserID, sess.ID).
			First(&row).Error
		state := map[string]any{}
		if findErr == nil && len(row.State) > 0 {
			if err := json.Unmarshal(row.State, &state); err != nil {
				return err
			}
		} else if findErr != nil && findErr != gorm.ErrRecordNotFound {
			return findErr
		}

		if len(ev.Actions.StateDelta) > 0 {
			core.FoldDelta(state, ev.Actions.StateDelta)
		}
		stateJSON, err := json.Marshal(state)
		if err != nil {
			return err
		}

		updated := sessionRow{
			AppName:   sess.AppName,
			UserID:    sess.UserID,
			SessionID: sess.ID,
			State:     stateJSON,
			Created:   sess.Created.UTC(),
			Updated:   ev.Timestamp,
		}
		if findErr == nil {
			updated.Created = row.Created
		}
		return tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&updated).Error
	})
	if err != nil {
		return core.Event{}, core.NewPersistenceError("append event", err)
	}

	sess.AddEvent(ev)
	return ev, nil
}

func toSessionRow(sess *core.Session) (*sessionRow, error) {
	stateJSON, err := json.Marshal(core.FilterTempState(sess.StateSnapshot()))
	if err != nil {
		return nil, core.NewPersistenceError("encode state", err)
	}
	return &sessionRow{
		AppName:   sess.AppName,
		UserID:    sess.UserID,
		SessionID: sess.ID,
		State:     stateJSON,
		Created:   sess.Created.UTC(),
		Updated:   sess.Updated.UTC(),
	}, nil
}

func fromSessionRow(row sessionRow) (*core.Session, error) {
	sess := core.NewSession(row.AppName, row.UserID, row.SessionID)
	if len(row.State) > 0 {
		if err := json.Unmarshal(row.State, &sess.State); err != nil {
			return nil, core.NewPersistenceError("decode state", err)
		}
	}
	sess.Created = row.Created.UTC()
	sess.Updated = row.Updated.UTC()
	return sess, nil
}

func toEventRow(sess *core.Session, ev core.Event) (*eventRow, error) {
	var content []byte
	if ev.Content != nil {
		var err error
		content, err = json.Marshal(ev.Content)
		if err != nil {
			return nil, core.NewPersistenceError("encode content", err)
		}
	}
	var delta []byte
	if len(ev.Actions.StateDelta) > 0 {
		var err error
		delta, err = json.Marshal(ev.Actions.StateDelta)
		if err != nil {
			return nil, core.NewPersistenceError("encode delta", err)
		}
	}
	return &eventRow{
		EventID:      ev.ID,
		AppName:      sess.AppName,
		UserID:       sess.UserID,
		SessionID:    sess.ID,
		InvocationID: ev.InvocationID,
		Author:       ev.Author,
		Timestamp:    ev.Timestamp.UTC(),
		Content:      content,
		StateDelta:   delta,
	}, nil
}

func fromEventRow(row eventRow) (core.Event, error) {
	ev := core.Event{
		ID:           row.EventID,
		InvocationID: row.InvocationID,
		Author:       row.Author,
		Timestamp:    row.Timestamp.UTC(),
	}
	if len(row.Content) > 0 {
		var c core.Content
		if err := json.Unmarshal(row.Content, &c); err != nil {
			return core.Event{}, core.NewPersistenceError("decode content", err)
		}
		ev.Content = &c
	}
	if len(row.StateDelta) > 0 {
		if err := json.Unmarshal(row.StateDelta, &ev.Actions.StateDelta); err != nil {
			return core.Event{}, core.NewPersistenceError("decode delta", err)
		}
	}
	return ev, nil
}
