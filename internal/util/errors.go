package util

import (
	"errors"
	"fmt"
)

var (
	ErrUserNotFound     = errors.New("用户不存在")
	ErrEmailRegistered  = errors.New("该邮箱已被注册")
	ErrPermissionDenied = errors.New("permission denied")

	ErrCourseNotFound   = errors.New("course not found")
	ErrUnitNotFound     = errors.New("unit not found")
	ErrLessonNotFound   = errors.New("lesson not found")
	ErrProgressNotFound = errors.New("progress not found")

	// ErrConcurrencyConflict 同一进度键上的写冲突在有限次重试后仍未消解
	ErrConcurrencyConflict = errors.New("concurrent update conflict, please retry")

	// ErrRewardAccrualUnavailable XP 记账失败且补偿入队不可用，
	// 只能走管理端手工回放
	ErrRewardAccrualUnavailable = errors.New("reward accrual unavailable")
)

// GateLockedError 前置单元未完成导致访问被拒，携带阻塞单元序号
type GateLockedError struct {
	RequiredOrdinal int
}

func (e *GateLockedError) Error() string {
	return fmt.Sprintf("unit %d must be completed before accessing this unit", e.RequiredOrdinal)
}

// OutOfRangeError 测验/作业下标超出目录声明的总量，属于客户端与目录不同步
type OutOfRangeError struct {
	Kind  string // "quiz" | "assignment" | "score"
	Index int
	Total int
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("%s index %d out of range [0, %d)", e.Kind, e.Index, e.Total)
}

// GateNotSatisfiedError 课节附带小测但没有达标成绩，结课被拒
type GateNotSatisfiedError struct {
	LessonID      uint
	RequiredScore int
	BestScore     *int
}

func (e *GateNotSatisfiedError) Error() string {
	if e.BestScore != nil {
		return fmt.Sprintf("quiz score %d%% is below the required %d%% for lesson %d", *e.BestScore, e.RequiredScore, e.LessonID)
	}
	return fmt.Sprintf("a quiz score of at least %d%% is required before completing lesson %d", e.RequiredScore, e.LessonID)
}
