package model

import (
	"strconv"
	"strings"
)

// FieldError описывает ошибку конкретного поля документа
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError - некорректный документ (размер, цвет, конфигурация, поля пользователя).
// HTTP слой отдает его клиенту как 400 с деталями по полям.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

// Error реализует error
func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add добавляет ошибку поля
func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// OrNil возвращает nil, если ошибок полей нет
func (e *ValidationError) OrNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

func itoa(i int) string {
	return strconv.Itoa(i)
}
