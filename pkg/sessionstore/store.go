package sessionstore

import (
	"context"
	"errors"
	"time"
)

// 会话状态
const (
	StatusProcessing = "PROCESSING"
	StatusAnalyzed   = "ANALYZED"
	StatusFailed     = "FAILED"
)

// ErrNotFound 会话不存在
var ErrNotFound = errors.New("session not found")

// Record 分析会话记录
type Record struct {
	SessionID  string            `json:"session_id"`
	Domain     string            `json:"domain"`
	Filename   string            `json:"filename"`
	Status     string            `json:"status"`
	ResultJSON []byte            `json:"result,omitempty"` // Result 序列化快照
	SavedFiles map[string]string `json:"saved_files,omitempty"`
	Error      string            `json:"error,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

// Store 会话存储抽象
// 替代进程级可变全局字典：显式注入，后端可插拔
// （测试/开发用内存实现，生产用 MySQL 实现）
type Store interface {
	// Put 写入或覆盖会话记录
	Put(ctx context.Context, record *Record) error

	// Get 按会话 ID 读取
	Get(ctx context.Context, sessionID string) (*Record, error)

	// ListRecent 按创建时间倒序列出最近的会话
	ListRecent(ctx context.Context, limit int) ([]*Record, error)
}
