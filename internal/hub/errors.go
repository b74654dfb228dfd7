// Package hub 定义各子系统共享的调用方身份与错误分类。
package hub

import "fmt"

// Caller 是经过认证的请求发起人，由中间件解析 JWT 后显式传入各操作。
type Caller struct {
	UserID uint
	Email  string
	Role   string
}

// IsAdmin 判断调用方是否持有管理员身份（可代发消息）。
func (c Caller) IsAdmin() bool {
	return c.Role == "admin"
}

// ValidationError 请求缺少必需输入或输入非法。
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Validationf 构造 ValidationError。
func Validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// PermissionError 调用方身份与操作要求不符。
type PermissionError struct {
	Msg string
}

func (e *PermissionError) Error() string { return e.Msg }

// Permissionf 构造 PermissionError。
func Permissionf(format string, args ...any) error {
	return &PermissionError{Msg: fmt.Sprintf(format, args...)}
}

// NotFoundError 引用的实体不存在。读路径一般返回空值而不是该错误，
// 写路径引用缺失实体时返回它。
type NotFoundError struct {
	Entity string
	Key    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.Key)
}

// DuplicateError 违反唯一性约束（如同一用户重复评论）。
type DuplicateError struct {
	Msg string
}

func (e *DuplicateError) Error() string { return e.Msg }

// Duplicatef 构造 DuplicateError。
func Duplicatef(format string, args ...any) error {
	return &DuplicateError{Msg: fmt.Sprintf(format, args...)}
}
