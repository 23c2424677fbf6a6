package game

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/annel0/army-battle/internal/army"
	"github.com/annel0/army-battle/internal/logging"
	"github.com/annel0/army-battle/internal/model"
	"github.com/annel0/army-battle/internal/scheduler"
	"github.com/google/uuid"
)

// Допустимое число армий в одной битве
const (
	MinArmies = 2
	MaxArmies = 4
)

var (
	ErrArmyCount    = errors.New("game requires between 2 and 4 armies")
	ErrGameNotFound = errors.New("game not found")
)

// Status - состояние игры. Переходы только INIT -> IN_PROGRESS -> STOPPED.
type Status string

const (
	StatusInit       Status = "INIT"
	StatusInProgress Status = "IN_PROGRESS"
	StatusStopped    Status = "STOPPED"
)

// UpdateEvent отправляется после каждого тика. Armies - снимки в сохраняемой
// форме, они не разделяют память с живыми армиями.
type UpdateEvent struct {
	GameID    string               `json:"gameId"`
	LoopCount uint64               `json:"loopCount"`
	Armies    []model.ArmyDocument `json:"armies"`
}

// Options настраивают игру
type Options struct {
	TickPeriod  int // период цикла в тиках планировщика
	EventBuffer int // емкость канала событий
	Metrics     *Metrics
	Logger      *logging.Logger
}

// Option изменяет Options
type Option func(*Options)

func WithTickPeriod(ticks int) Option {
	return func(o *Options) { o.TickPeriod = ticks }
}

func WithEventBuffer(size int) Option {
	return func(o *Options) { o.EventBuffer = size }
}

func WithMetrics(m *Metrics) Option {
	return func(o *Options) { o.Metrics = m }
}

func WithLogger(l *logging.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

// Game - одна битва из 2-4 армий, продвигаемая планировщиком.
// Мьютекс защищает состояние от одновременных Start/Stop/Snapshots из HTTP.
type Game struct {
	mu        sync.Mutex
	id        string
	armies    []*army.Army
	scheduler scheduler.Scheduler
	opts      Options
	createdAt time.Time

	status    Status
	loopCount uint64
	events    chan UpdateEvent
	closed    bool
	dropped   uint64
}

// TaskName возвращает имя задачи игрового цикла в планировщике
func TaskName(gameID string) string {
	return "game-loop:" + gameID
}

// New создает игру в состоянии INIT. Пустой id заменяется новым UUID.
func New(id string, armies []*army.Army, sched scheduler.Scheduler, opts ...Option) (*Game, error) {
	if len(armies) < MinArmies || len(armies) > MaxArmies {
		return nil, fmt.Errorf("%w: got %d", ErrArmyCount, len(armies))
	}
	if id == "" {
		id = uuid.NewString()
	}

	o := Options{TickPeriod: 1, EventBuffer: 64}
	for _, opt := range opts {
		opt(&o)
	}
	if o.TickPeriod < 1 {
		o.TickPeriod = 1
	}
	if o.EventBuffer < 1 {
		o.EventBuffer = 1
	}
	if o.Logger == nil {
		o.Logger = logging.GetGameLogger()
	}

	list := make([]*army.Army, len(armies))
	copy(list, armies)

	return &Game{
		id:        id,
		armies:    list,
		scheduler: sched,
		opts:      o,
		createdAt: time.Now().UTC(),
		status:    StatusInit,
		events:    make(chan UpdateEvent, o.EventBuffer),
	}, nil
}

func (g *Game) ID() string { return g.id }

func (g *Game) CreatedAt() time.Time { return g.createdAt }

// Armies возвращает копию списка армий в порядке создания игры
func (g *Game) Armies() []*army.Army {
	out := make([]*army.Army, len(g.armies))
	copy(out, g.armies)
	return out
}

// Start переводит игру из INIT в IN_PROGRESS и регистрирует игровой цикл.
// В IN_PROGRESS и STOPPED ничего не делает: остановленная игра не возобновляется.
func (g *Game) Start() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.status != StatusInit {
		return nil
	}

	if err := g.scheduler.RunTask(TaskName(g.id), g.Update, g.opts.TickPeriod); err != nil {
		g.opts.Logger.Error("Игра %s: не удалось зарегистрировать цикл: %v", g.id, err)
		return fmt.Errorf("start game %s: %w", g.id, err)
	}
	g.status = StatusInProgress
	g.opts.Metrics.gameStarted()
	g.opts.Logger.Info("Игра %s запущена: %d армий, период %d", g.id, len(g.armies), g.opts.TickPeriod)
	return nil
}

// Stop останавливает игру, отменяет цикл и закрывает канал событий.
// Повторные вызовы безопасны.
func (g *Game) Stop() {
	g.mu.Lock()
	if g.status == StatusStopped {
		g.mu.Unlock()
		return
	}
	wasRunning := g.status == StatusInProgress
	g.status = StatusStopped
	g.mu.Unlock()

	// StopTask ждет текущий тик, который берет g.mu, поэтому вызываем без блокировки.
	// Тик, дождавшийся блокировки, увидит STOPPED и ничего не сделает.
	g.scheduler.StopTask(TaskName(g.id))

	g.mu.Lock()
	if !g.closed {
		g.closed = true
		close(g.events)
	}
	g.mu.Unlock()

	if wasRunning {
		g.opts.Metrics.gameStopped()
	}
	g.opts.Logger.Info("Игра %s остановлена на цикле %d", g.id, g.LoopCount())
}

// Update - тело тика. Увеличивает счетчик цикла, обновляет армии по порядку
// и без блокировки отправляет UpdateEvent. Если канал полон, событие теряется.
func (g *Game) Update() {
	start := time.Now()

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.status == StatusStopped {
		return
	}

	g.loopCount++
	for _, a := range g.armies {
		a.Update(g.loopCount)
	}

	ev := UpdateEvent{
		GameID:    g.id,
		LoopCount: g.loopCount,
		Armies:    g.snapshotsLocked(),
	}
	select {
	case g.events <- ev:
	default:
		g.dropped++
		g.opts.Metrics.eventDropped()
		g.opts.Logger.Debug("Игра %s: событие цикла %d отброшено, потребитель не успевает", g.id, g.loopCount)
	}

	g.opts.Metrics.observeTick(time.Since(start))
}

// Events возвращает канал событий. Канал закрывается при Stop.
func (g *Game) Events() <-chan UpdateEvent {
	return g.events
}

func (g *Game) Status() Status {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.status
}

func (g *Game) LoopCount() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.loopCount
}

// Dropped возвращает число событий, потерянных из-за полного канала
func (g *Game) Dropped() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.dropped
}

// Snapshots возвращает снимки всех армий, снятые под блокировкой игры
func (g *Game) Snapshots() []model.ArmyDocument {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.snapshotsLocked()
}

func (g *Game) snapshotsLocked() []model.ArmyDocument {
	docs := make([]model.ArmyDocument, 0, len(g.armies))
	for _, a := range g.armies {
		docs = append(docs, a.Snapshot())
	}
	return docs
}

// Info - сводка по игре для API
type Info struct {
	ID        string    `json:"id"`
	Status    Status    `json:"status"`
	LoopCount uint64    `json:"loopCount"`
	Armies    []string  `json:"armies"`
	Dropped   uint64    `json:"droppedEvents"`
	CreatedAt time.Time `json:"createdAt"`
}

// Info возвращает согласованную сводку по игре
func (g *Game) Info() Info {
	g.mu.Lock()
	defer g.mu.Unlock()

	ids := make([]string, 0, len(g.armies))
	for _, a := range g.armies {
		ids = append(ids, a.ID)
	}
	return Info{
		ID:        g.id,
		Status:    g.status,
		LoopCount: g.loopCount,
		Armies:    ids,
		Dropped:   g.dropped,
		CreatedAt: g.createdAt,
	}
}
