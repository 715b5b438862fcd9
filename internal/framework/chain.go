package framework

import (
	"context"
	"fmt"
)

// Step 处理链中的一步
type Step func(ctx context.Context) error

// Chain 按顺序执行的处理步骤，首个失败即停止
type Chain struct {
	steps []Step
}

// NewChain 创建处理链
func NewChain(steps ...Step) *Chain {
	return &Chain{steps: steps}
}

// Run 执行处理链，返回的错误包含失败步骤的序号
func (c *Chain) Run(ctx context.Context) error {
	for i, step := range c.steps {
		if err := step(ctx); err != nil {
			return fmt.Errorf("step[%d] failed: %w", i, err)
		}
	}
	return nil
}
