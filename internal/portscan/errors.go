package portscan

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidPolicy 策略参数非法
	ErrInvalidPolicy = errors.New("invalid scan policy")
	// ErrInvalidPort 端口越界或重复
	ErrInvalidPort = errors.New("invalid port")
	// ErrResolve 目标无法解析, 整个扫描中止
	ErrResolve = errors.New("cannot resolve target")
)

// ResolveError 目标解析失败
type ResolveError struct {
	Target string
	Err    error
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("%v %q: %v", ErrResolve, e.Target, e.Err)
}

func (e *ResolveError) Unwrap() []error {
	return []error{ErrResolve, e.Err}
}
