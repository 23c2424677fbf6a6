package scheduler

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/annel0/army-battle/internal/logging"
)

// TickScheduler выполняет каждую задачу в собственной горутине с time.Ticker
// на period * tick. Следующий вызов начинается только после завершения предыдущего.
type TickScheduler struct {
	mu    sync.Mutex
	tick  time.Duration
	tasks map[string]*tickTask
}

type tickTask struct {
	quit chan struct{}
	done chan struct{}
}

// NewTickScheduler создает планировщик с базовой длительностью тика
func NewTickScheduler(tick time.Duration) *TickScheduler {
	if tick <= 0 {
		tick = 50 * time.Millisecond
	}
	return &TickScheduler{
		tick:  tick,
		tasks: make(map[string]*tickTask),
	}
}

// Tick возвращает базовую длительность тика
func (s *TickScheduler) Tick() time.Duration {
	return s.tick
}

// RunTask регистрирует и запускает задачу
func (s *TickScheduler) RunTask(name string, fn func(), periodTicks int) error {
	if err := validate(name, fn, periodTicks); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[name]; exists {
		return fmt.Errorf("task %q: %w", name, ErrTaskExists)
	}

	t := &tickTask{
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
	s.tasks[name] = t
	go t.loop(s.tick*time.Duration(periodTicks), fn)

	logging.Debug("Задача %s запущена, период %d тик(ов)", name, periodTicks)
	return nil
}

func (t *tickTask) loop(every time.Duration, fn func()) {
	defer close(t.done)

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-t.quit:
			return
		case <-ticker.C:
			// quit мог прийти одновременно с тиком
			select {
			case <-t.quit:
				return
			default:
			}
			fn()
		}
	}
}

// StopTask отменяет задачу и ждет завершения выполняющегося вызова.
// Нельзя вызывать из колбэка той же задачи.
func (s *TickScheduler) StopTask(name string) {
	s.mu.Lock()
	t, ok := s.tasks[name]
	if ok {
		delete(s.tasks, name)
	}
	s.mu.Unlock()

	if !ok {
		return
	}
	close(t.quit)
	<-t.done
	logging.Debug("Задача %s остановлена", name)
}

// Tasks возвращает имена зарегистрированных задач
func (s *TickScheduler) Tasks() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.tasks))
	for name := range s.tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Shutdown останавливает все задачи
func (s *TickScheduler) Shutdown() {
	for _, name := range s.Tasks() {
		s.StopTask(name)
	}
}
