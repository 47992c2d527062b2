package sessionstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// sessionEntity 会话表实体
type sessionEntity struct {
	SessionID      string         `gorm:"column:session_id;primaryKey;size:64"`
	Domain         string         `gorm:"column:domain;size:32"`
	Filename       string         `gorm:"column:filename;size:255"`
	Status         string         `gorm:"column:status;size:16;index"`
	ResultJSON     datatypes.JSON `gorm:"column:result_json;type:json"`
	SavedFilesJSON datatypes.JSON `gorm:"column:saved_files_json;type:json"`
	ErrorMessage   string         `gorm:"column:error_message;size:1024"`
	CreatedAt      time.Time      `gorm:"column:created_at;index"`
}

// TableName 指定表名
func (sessionEntity) TableName() string {
	return "analysis_sessions"
}

// MySQLStore MySQL 会话存储（生产用）
type MySQLStore struct {
	db *gorm.DB
}

// NewMySQLStore 创建 MySQL 会话存储并迁移表结构
func NewMySQLStore(dsn string) (*MySQLStore, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(&sessionEntity{}); err != nil {
		return nil, fmt.Errorf("failed to migrate sessions table: %w", err)
	}

	return &MySQLStore{db: db}, nil
}

// Put 实现 Store 接口
func (s *MySQLStore) Put(ctx context.Context, record *Record) error {
	entity, err := toEntity(record)
	if err != nil {
		return err
	}

	result := s.db.WithContext(ctx).Save(entity)
	if result.Error != nil {
		return fmt.Errorf("failed to save session: %w", result.Error)
	}
	return nil
}

// Get 实现 Store 接口
func (s *MySQLStore) Get(ctx context.Context, sessionID string) (*Record, error) {
	var entity sessionEntity
	result := s.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&entity)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", result.Error)
	}
	return fromEntity(&entity)
}

// ListRecent 实现 Store 接口
func (s *MySQLStore) ListRecent(ctx context.Context, limit int) ([]*Record, error) {
	if limit <= 0 {
		limit = 20
	}

	var entities []sessionEntity
	result := s.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&entities)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", result.Error)
	}

	records := make([]*Record, 0, len(entities))
	for i := range entities {
		record, err := fromEntity(&entities[i])
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

// Close 关闭数据库连接
func (s *MySQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func toEntity(record *Record) (*sessionEntity, error) {
	var savedFiles []byte
	if record.SavedFiles != nil {
		data, err := json.Marshal(record.SavedFiles)
		if err != nil {
			return nil, fmt.Errorf("marshal saved files failed: %w", err)
		}
		savedFiles = data
	}

	return &sessionEntity{
		SessionID:      record.SessionID,
		Domain:         record.Domain,
		Filename:       record.Filename,
		Status:         record.Status,
		ResultJSON:     datatypes.JSON(record.ResultJSON),
		SavedFilesJSON: datatypes.JSON(savedFiles),
		ErrorMessage:   record.Error,
		CreatedAt:      record.CreatedAt,
	}, nil
}

func fromEntity(entity *sessionEntity) (*Record, error) {
	record := &Record{
		SessionID:  entity.SessionID,
		Domain:     entity.Domain,
		Filename:   entity.Filename,
		Status:     entity.Status,
		ResultJSON: []byte(entity.ResultJSON),
		Error:      entity.ErrorMessage,
		CreatedAt:  entity.CreatedAt,
	}

	if len(entity.SavedFilesJSON) > 0 {
		if err := json.Unmarshal(entity.SavedFilesJSON, &record.SavedFiles); err != nil {
			return nil, fmt.Errorf("unmarshal saved files failed: %w", err)
		}
	}
	return record, nil
}
