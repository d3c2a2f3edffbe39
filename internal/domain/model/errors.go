package model

import (
	"errors"
	"fmt"
)

var (
	ErrNoActiveTest       = errors.New("no active test")
	ErrActiveTestExists   = errors.New("another test is already active")
	ErrActiveTestMismatch = errors.New("test is not the active one")
	ErrTestNotFound       = errors.New("test not found")
	ErrNoQuestions        = errors.New("test has no questions")
	ErrAlreadyCompleted   = errors.New("attempt already completed")
	ErrAttemptNotFound    = errors.New("attempt not found")
	ErrAttemptFinished    = errors.New("attempt already finished")
	ErrNoResult           = errors.New("no result")
	ErrDuplicateToken     = errors.New("token already taken")
	ErrInvalidAnswer      = errors.New("invalid answer")
	ErrInvalidQuestion    = errors.New("invalid question")
	ErrForbidden          = errors.New("forbidden")
)

// AlreadyCompletedError отказ в повторной попытке, содержит токен завершенной попытки
type AlreadyCompletedError struct {
	Token string
}

func (e *AlreadyCompletedError) Error() string {
	return fmt.Sprintf("%s: token %s", ErrAlreadyCompleted, e.Token)
}

func (e *AlreadyCompletedError) Is(target error) bool {
	return target == ErrAlreadyCompleted
}
