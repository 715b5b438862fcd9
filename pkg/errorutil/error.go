package errorutil

import (
	"errors"
	"fmt"
)

// Kind 错误类别
type Kind string

const (
	// KindDevice 设备不可达（执行器串口、传感站连接），流程提前终止，不重试
	KindDevice Kind = "device"
	// KindRegistry 远程登记服务/网络错误，按哨兵值处理，流程继续
	KindRegistry Kind = "registry"
	// KindClassifier 分类模型不可用，禁止启动任何流程
	KindClassifier Kind = "classifier"
	// KindInput 请求参数错误
	KindInput Kind = "input"
)

// Error 错误结构（包含可重试标记）
type Error struct {
	Code       int    `json:"code"`
	Kind       Kind   `json:"kind"`
	Message    string `json:"message"`
	Retryable  bool   `json:"retryable"`
	DevDetails string `json:"dev_details,omitempty"`
	cause      error
}

// Error 实现 error 接口
func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

// Unwrap 支持 errors.Is / errors.As
func (e *Error) Unwrap() error {
	return e.cause
}

// Device 设备错误（不可重试）
func Device(message string, cause error) *Error {
	return &Error{Code: 503, Kind: KindDevice, Message: message, Retryable: false, cause: cause}
}

// Registry 登记服务错误（可重试）
func Registry(message string, cause error) *Error {
	return &Error{Code: 502, Kind: KindRegistry, Message: message, Retryable: true, cause: cause}
}

// Classifier 分类器错误（不可重试）
func Classifier(message string, cause error) *Error {
	return &Error{Code: 503, Kind: KindClassifier, Message: message, Retryable: false, cause: cause}
}

// NonRetriable 创建不可重试错误（参数错误、业务规则错误等）
func NonRetriable(message string) *Error {
	return &Error{Code: 400, Kind: KindInput, Message: message, Retryable: false}
}

// Wrap 包装错误
func Wrap(err error) *Error {
	if err == nil {
		return nil
	}

	var e *Error
	if errors.As(err, &e) {
		return e
	}

	// 默认为不可重试错误
	return &Error{
		Code:       500,
		Message:    err.Error(),
		Retryable:  false,
		DevDetails: fmt.Sprintf("%+v", err),
	}
}

// IsKind 判断错误类别
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// IsRetryable 判断错误是否可重试
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}
