// Package store keeps the application documents (server list, rules, DNS
// modes, subscriptions) as whole JSON values in SQLite.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"dray/internal/db"
	"dray/internal/model"

	"github.com/muhammadmuzzammil1998/jsonc"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrUnknownDocument = errors.New("unknown document")

type Store struct {
	db *gorm.DB
}

// Open connects to the SQLite file at path and migrates it.
func Open(path string) (*Store, error) {
	database, err := db.Connect(path)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(database); err != nil {
		db.Close(database)
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &Store{db: database}, nil
}

func (s *Store) Close() error {
	return db.Close(s.db)
}

// Read decodes the document stored under key into v. It reports false
// when the document does not exist.
func (s *Store) Read(key string, v any) (bool, error) {
	if key == "" {
		return false, fmt.Errorf("%w: empty key", ErrUnknownDocument)
	}
	var doc model.Document
	res := s.db.Where(&model.Document{Key: key}).Limit(1).Find(&doc)
	if res.Error != nil {
		return false, fmt.Errorf("read %s: %w", key, res.Error)
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	if err := json.Unmarshal([]byte(doc.Value), v); err != nil {
		return true, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// Save replaces the document stored under key with v in one statement.
func (s *Store) Save(key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	doc := model.Document{Key: key, Value: string(b), UpdatedAt: time.Now()}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&doc).Error
}

// Raw returns the stored JSON of key, or nil when it does not exist.
func (s *Store) Raw(key string) ([]byte, error) {
	var raw json.RawMessage
	ok, err := s.Read(key, &raw)
	if err != nil || !ok {
		return nil, err
	}
	return raw, nil
}

// Keys lists the stored documents with their last update time.
func (s *Store) Keys() ([]model.Document, error) {
	var docs []model.Document
	err := s.db.Order(clause.OrderByColumn{Column: clause.Column{Name: "key"}}).Find(&docs).Error
	return docs, err
}

// LoadFile imports a JSON or JSONC file as the document key. The content
// must decode into the document's type before anything is written.
func (s *Store) LoadFile(key, path string) error {
	proto, ok := documentTypes[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownDocument, key)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	clean := jsonc.ToJSON(data)
	if !json.Valid(clean) {
		return fmt.Errorf("%s: not valid JSON", path)
	}
	v := proto()
	if err := json.Unmarshal(clean, v); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if err := normalizeDocument(v); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return s.Save(key, v)
}
