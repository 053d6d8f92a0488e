// errors.go — типизированная ошибка сервисного слоя Media Module.
package service

import "fmt"

// Коды ошибок сервисного слоя (совпадают с кодами API-ответов).
const (
	CodeValidationError = "VALIDATION_ERROR"
	CodeContentMismatch = "CONTENT_MISMATCH"
	CodeFileTooLarge    = "FILE_TOO_LARGE"
	CodeBatchTooLarge   = "BATCH_TOO_LARGE"
	CodeNotFound        = "NOT_FOUND"
	CodeUploadFailed    = "UPLOAD_FAILED"
	CodeInternalError   = "INTERNAL_ERROR"
)

// Error — ошибка операции с HTTP-кодом и ключом i18n.
// Message — полная диагностика для логов; клиенту уходит перевод Key.
type Error struct {
	StatusCode int
	Code       string
	Key        string
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// validationErr — конструктор ошибки валидации (400).
func validationErr(key, format string, args ...any) *Error {
	return &Error{
		StatusCode: 400,
		Code:       CodeValidationError,
		Key:        key,
		Message:    fmt.Sprintf(format, args...),
	}
}

// internalErr — конструктор внутренней ошибки (500).
// Клиенту уходит короткое generic-сообщение, диагностика — только в логи.
func internalErr(code, key, format string, args ...any) *Error {
	return &Error{
		StatusCode: 500,
		Code:       code,
		Key:        key,
		Message:    fmt.Sprintf(format, args...),
	}
}
