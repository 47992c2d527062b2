package framework

import (
	"context"
	"fmt"
)

// Step 处理链中的一个命名步骤
type Step struct {
	Name string        // 步骤名（拼入失败错误信息）
	Run  ProcessorFunc // 步骤实现
}

// PreProcessor 命名步骤处理链
type PreProcessor struct {
	steps []Step
}

// NewPreProcessor 创建处理链
func NewPreProcessor(steps []Step) *PreProcessor {
	return &PreProcessor{
		steps: steps,
	}
}

// Run 顺序执行处理链
// 任一步骤返回 error 则立即停止，错误带失败步骤名
func (p *PreProcessor) Run(ctx context.Context) error {
	for _, step := range p.steps {
		if err := step.Run(ctx); err != nil {
			return fmt.Errorf("%s failed: %w", step.Name, err)
		}
	}
	return nil
}
