package service

import "fmt"

// InvalidTransitionError 非法的状态流转
type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("不允许从 %s 流转到 %s", e.From, e.To)
}

// PreconditionError 前置条件不满足（区别于一般参数错误）
type PreconditionError struct {
	Reason string
}

func (e *PreconditionError) Error() string {
	return e.Reason
}
