package errorutil

import (
	"errors"
	"fmt"
)

// Kind 错误分类
// 输入数据缺陷在清洗阶段用默认值修复，不会以错误形式上报
// Structural：结构性缺陷（模型未加载、维度不匹配、解码越界），请求级致命
// Degenerate：退化输入（零行/零列），处理开始前即拒绝
type Kind string

const (
	KindStructural Kind = "STRUCTURAL"
	KindDegenerate Kind = "DEGENERATE"
)

// Error 错误结构（包含分类和可重试标记）
type Error struct {
	Code       int    `json:"code"`
	Kind       Kind   `json:"kind"`
	Message    string `json:"message"`
	Retryable  bool   `json:"retryable"`
	DevDetails string `json:"dev_details,omitempty"`
}

// Error 实现 error 接口
func (e *Error) Error() string {
	return e.Message
}

// Structural 创建结构性错误（模型/编码器缺失、形状不匹配等，不可重试）
func Structural(message string) *Error {
	return &Error{
		Code:      500,
		Kind:      KindStructural,
		Message:   message,
		Retryable: false,
	}
}

// StructuralWithDetails 创建结构性错误（带详细信息）
func StructuralWithDetails(message string, details string) *Error {
	return &Error{
		Code:       500,
		Kind:       KindStructural,
		Message:    message,
		Retryable:  false,
		DevDetails: details,
	}
}

// Degenerate 创建退化输入错误（零行/零列，处理前拒绝）
func Degenerate(message string) *Error {
	return &Error{
		Code:      400,
		Kind:      KindDegenerate,
		Message:   message,
		Retryable: false,
	}
}

// Retriable 创建可重试错误（网络错误、临时故障等，用于外部服务调用）
func Retriable(message string) *Error {
	return &Error{
		Code:      500,
		Kind:      KindStructural,
		Message:   message,
		Retryable: true,
	}
}

// Wrap 包装错误（已是 Error 类型则直接返回）
func Wrap(err error) *Error {
	if err == nil {
		return nil
	}

	var e *Error
	if errors.As(err, &e) {
		return e
	}

	// 默认归为不可重试的结构性错误
	return &Error{
		Code:       500,
		Kind:       KindStructural,
		Message:    err.Error(),
		Retryable:  false,
		DevDetails: fmt.Sprintf("%+v", err),
	}
}

// UnWrapResponse 解包错误（用于 Response）
func UnWrapResponse(err error) *Error {
	if err == nil {
		return nil
	}
	return Wrap(err)
}

// IsStructural 判断是否结构性错误
func IsStructural(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindStructural
}

// IsDegenerate 判断是否退化输入错误
func IsDegenerate(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindDegenerate
}
