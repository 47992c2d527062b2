package retryutil

import (
	"context"
	"time"
)

// Policy 重试策略：指数退避
type Policy struct {
	MaxAttempts int           // 最大尝试次数（含首次）
	BaseDelay   time.Duration // 首次重试前的等待时间
	Multiplier  float64       // 每次重试后等待时间的放大系数
}

// DefaultPolicy 默认重试策略
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		Multiplier:  2.0,
	}
}

// normalize 修正非法参数，保证策略可用
func (p Policy) normalize() Policy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = time.Second
	}
	if p.Multiplier < 1 {
		p.Multiplier = 1
	}
	return p
}

// Do 按策略执行 fn，全部失败时返回最后一次错误
func Do(ctx context.Context, policy Policy, fn func(ctx context.Context) error) error {
	policy = policy.normalize()

	var lastErr error
	delay := policy.BaseDelay
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		// 1. 检查上下文是否已取消
		if err := ctx.Err(); err != nil {
			return err
		}

		// 2. 执行业务函数
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}

		// 3. 最后一次尝试失败后不再等待
		if attempt == policy.MaxAttempts {
			break
		}

		// 4. 指数退避等待
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay = time.Duration(float64(delay) * policy.Multiplier)
	}

	return lastErr
}
