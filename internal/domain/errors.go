package domain

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrNotFound - запись не найдена.
	ErrNotFound = errors.New("not found")
	// ErrValidation - входные данные не прошли проверку.
	ErrValidation = errors.New("validation failed")
	// ErrCommentsDisabled - комментарии к посту выключены.
	ErrCommentsDisabled = errors.New("comments are disabled for this post")
)

// NotFoundError - отсутствующая запись конкретного вида.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with id %s not found", e.Resource, e.ID)
}

// Is позволяет errors.Is(err, ErrNotFound).
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// NotFound возвращает ошибку вида "post with id X not found".
func NotFound(resource, id string) error {
	return &NotFoundError{Resource: resource, ID: id}
}

// ValidationError описывает первое нарушенное правило.
type ValidationError struct {
	Field string
	Rule  string
}

func (e *ValidationError) Error() string {
	field := strings.ToLower(e.Field)
	switch e.Rule {
	case "max":
		return field + " is too long"
	case "required", "notblank":
		return field + " cannot be empty"
	default:
		return field + " is invalid"
	}
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// OperationFailed - единственный вид ошибки, который видит пользователь.
// Retryable позволяет коллабораторам отделять временные сбои от окончательных.
type OperationFailed struct {
	Op        string
	Message   string
	Retryable bool
	Err       error
}

func (e *OperationFailed) Error() string {
	if e.Op == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *OperationFailed) Unwrap() error { return e.Err }

// AsOperationFailed приводит любую ошибку к OperationFailed.
// Уже классифицированная ошибка сохраняет свой Retryable; ошибки валидации
// и "не найдено" считаются окончательными, прочие - временными.
func AsOperationFailed(op string, err error) *OperationFailed {
	if err == nil {
		return nil
	}
	var of *OperationFailed
	if errors.As(err, &of) {
		if of.Op == "" {
			return &OperationFailed{Op: op, Message: of.Message, Retryable: of.Retryable, Err: of.Err}
		}
		return of
	}
	terminal := errors.Is(err, ErrValidation) || errors.Is(err, ErrNotFound) || errors.Is(err, ErrCommentsDisabled)
	return &OperationFailed{Op: op, Message: err.Error(), Retryable: !terminal, Err: err}
}

// CheckCommentContent - проверки содержимого комментария, общие для всех хранилищ.
func CheckCommentContent(content string) error {
	if len(content) > MaxCommentLength {
		return &ValidationError{Field: "comment content", Rule: "max"}
	}
	if strings.TrimSpace(content) == "" {
		return &ValidationError{Field: "comment content", Rule: "notblank"}
	}
	return nil
}
