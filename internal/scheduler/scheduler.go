// Package scheduler запускает именованные периодические задачи.
// Период задается в тиках; длительность тика выбирает реализация.
package scheduler

import (
	"errors"
	"fmt"
)

var (
	ErrTaskExists    = errors.New("task already registered")
	ErrInvalidPeriod = errors.New("period must be at least one tick")
)

// Scheduler - общий для процесса реестр периодических задач, ключ - имя задачи.
// Вызовы одной задачи никогда не перекрываются.
type Scheduler interface {
	// RunTask регистрирует fn с периодом periodTicks. ErrTaskExists если имя занято.
	RunTask(name string, fn func(), periodTicks int) error

	// StopTask отменяет задачу. Неизвестное имя игнорируется.
	StopTask(name string)
}

func validate(name string, fn func(), periodTicks int) error {
	if fn == nil {
		return fmt.Errorf("task %q: nil callback", name)
	}
	if periodTicks < 1 {
		return fmt.Errorf("task %q: %w (got %d)", name, ErrInvalidPeriod, periodTicks)
	}
	return nil
}
