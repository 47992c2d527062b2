package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"leakscan/internal/business/dataset"
)

// Sink 表格输出存储
// 契约：给定记录集和文件名，持久化并返回写入路径
type Sink interface {
	Save(ds *dataset.Dataset, name string) (string, error)
}

// CSVSink 目录内 CSV 存储实现
// 每个会话的输出只写一次、不再变更，并发读取无需加锁
type CSVSink struct {
	dir string
}

// NewCSVSink 创建 CSV 存储（目录不存在时创建）
func NewCSVSink(dir string) (*CSVSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir failed: %w", err)
	}
	return &CSVSink{dir: dir}, nil
}

// Save 实现 Sink 接口
func (s *CSVSink) Save(ds *dataset.Dataset, name string) (string, error) {
	path := filepath.Join(s.dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create output file failed: %w", err)
	}
	defer f.Close()

	if err := ds.WriteCSV(f); err != nil {
		return "", fmt.Errorf("write output csv failed: %w", err)
	}

	return path, nil
}
