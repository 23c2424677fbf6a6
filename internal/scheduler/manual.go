package scheduler

import (
	"fmt"
	"sync"
)

// ManualScheduler продвигает время только через Advance.
// Задачи вызываются синхронно в порядке регистрации, что удобно в тестах.
type ManualScheduler struct {
	mu    sync.Mutex
	order []string
	tasks map[string]*manualTask
	now   uint64
	runs  map[string]int
}

type manualTask struct {
	fn     func()
	period uint64
	start  uint64
	active bool
}

// NewManualScheduler создает планировщик с нулевым временем
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{
		tasks: make(map[string]*manualTask),
		runs:  make(map[string]int),
	}
}

func (s *ManualScheduler) RunTask(name string, fn func(), periodTicks int) error {
	if err := validate(name, fn, periodTicks); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[name]; exists {
		return fmt.Errorf("task %q: %w", name, ErrTaskExists)
	}
	s.tasks[name] = &manualTask{fn: fn, period: uint64(periodTicks), start: s.now, active: true}
	s.order = append(s.order, name)
	return nil
}

func (s *ManualScheduler) StopTask(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[name]
	if !ok {
		return
	}
	t.active = false
	delete(s.tasks, name)
	for i, n := range s.order {
		if n == name {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Advance продвигает время на n тиков и вызывает задачи, период которых истек.
// Колбэки выполняются без блокировки, поэтому могут вызывать RunTask и StopTask.
func (s *ManualScheduler) Advance(n int) {
	for i := 0; i < n; i++ {
		s.mu.Lock()
		s.now++
		due := make([]*manualTask, 0, len(s.order))
		names := make([]string, 0, len(s.order))
		for _, name := range s.order {
			t := s.tasks[name]
			if (s.now-t.start)%t.period == 0 {
				due = append(due, t)
				names = append(names, name)
			}
		}
		s.mu.Unlock()

		for j, t := range due {
			s.mu.Lock()
			active := t.active
			if active {
				s.runs[names[j]]++
			}
			s.mu.Unlock()
			if active {
				t.fn()
			}
		}
	}
}

// Has сообщает, зарегистрирована ли задача
func (s *ManualScheduler) Has(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tasks[name]
	return ok
}

// Runs возвращает число вызовов задачи с таким именем за все время
func (s *ManualScheduler) Runs(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs[name]
}
