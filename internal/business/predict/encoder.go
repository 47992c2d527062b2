package predict

import (
	"encoding/json"
	"fmt"
	"os"

	"leakscan/pkg/errorutil"
)

// ClassEncoder 基于类别清单的标签编码器实现
type ClassEncoder struct {
	classes []string
	index   map[string]int
}

// NewClassEncoder 从类别清单创建编码器
func NewClassEncoder(classes []string) (*ClassEncoder, error) {
	if len(classes) == 0 {
		return nil, errorutil.Structural("encoder needs at least one class")
	}

	index := make(map[string]int, len(classes))
	for i, c := range classes {
		if _, dup := index[c]; dup {
			return nil, errorutil.Structural(fmt.Sprintf("encoder class duplicated: %s", c))
		}
		index[c] = i
	}

	return &ClassEncoder{classes: classes, index: index}, nil
}

// encoderArtifact 编码器工件文件结构
type encoderArtifact struct {
	Classes []string `json:"classes"`
}

// LoadClassEncoder 从 JSON 工件文件加载编码器
func LoadClassEncoder(path string) (*ClassEncoder, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errorutil.StructuralWithDetails("read encoder artifact failed", err.Error())
	}

	var artifact encoderArtifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, errorutil.StructuralWithDetails("parse encoder artifact failed", err.Error())
	}

	return NewClassEncoder(artifact.Classes)
}

// Decode 实现 Encoder 接口（越界为结构性错误）
func (e *ClassEncoder) Decode(index int) (string, error) {
	if index < 0 || index >= len(e.classes) {
		return "", errorutil.Structural(fmt.Sprintf(
			"label index %d out of range, encoder has %d classes", index, len(e.classes)))
	}
	return e.classes[index], nil
}

// Index 实现 Encoder 接口
func (e *ClassEncoder) Index(class string) (int, bool) {
	i, ok := e.index[class]
	return i, ok
}

// Classes 实现 Encoder 接口
func (e *ClassEncoder) Classes() []string {
	out := make([]string, len(e.classes))
	copy(out, e.classes)
	return out
}
