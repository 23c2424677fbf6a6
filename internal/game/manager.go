package game

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/annel0/army-battle/internal/army"
	"github.com/annel0/army-battle/internal/eventbus"
	"github.com/annel0/army-battle/internal/logging"
	"github.com/annel0/army-battle/internal/model"
	"github.com/annel0/army-battle/internal/protocol"
	"github.com/annel0/army-battle/internal/scheduler"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// EventSource - значение Envelope.Source для событий симуляции
const EventSource = "battle-server"

// lifecyclePublishTimeout ограничивает ожидание места в шине для game.started и game.stopped
const lifecyclePublishTimeout = 5 * time.Second

// ManagerConfig задает темп игр, создаваемых менеджером
type ManagerConfig struct {
	TickPeriod    int
	AutosaveTicks int // 0 отключает автосохранение
	EventBuffer   int
	SaveTimeout   time.Duration
}

// Manager владеет запущенными играми: загружает армии, запускает цикл,
// периодически сохраняет армии и пересылает события в шину.
type Manager struct {
	mu        sync.RWMutex
	games     map[string]*managedGame
	factory   *army.Factory
	scheduler scheduler.Scheduler
	bus       eventbus.EventBus
	cfg       ManagerConfig
	metrics   *Metrics
	logger    *logging.Logger
}

// managedGame хранит фоновые горутины игры: пересылку событий и сохранение.
// saveCh держит только последний снимок, поэтому сохранения идут по порядку.
type managedGame struct {
	game      *Game
	pumpDone  chan struct{}
	saveCh    chan []model.ArmyDocument
	saverDone chan struct{}
}

// SaveTaskName возвращает имя задачи автосохранения игры
func SaveTaskName(gameID string) string {
	return "game-save:" + gameID
}

// NewManager создает менеджер. metrics может быть nil.
func NewManager(factory *army.Factory, sched scheduler.Scheduler, bus eventbus.EventBus, cfg ManagerConfig, metrics *Metrics) *Manager {
	if cfg.TickPeriod < 1 {
		cfg.TickPeriod = 1
	}
	if cfg.EventBuffer < 1 {
		cfg.EventBuffer = 64
	}
	if cfg.SaveTimeout <= 0 {
		cfg.SaveTimeout = 10 * time.Second
	}
	return &Manager{
		games:     make(map[string]*managedGame),
		factory:   factory,
		scheduler: sched,
		bus:       bus,
		cfg:       cfg,
		metrics:   metrics,
		logger:    logging.GetGameLogger(),
	}
}

// StartGame загружает армии, создает и запускает игру.
func (m *Manager) StartGame(ctx context.Context, armyIDs []string) (*Game, error) {
	if len(armyIDs) < MinArmies || len(armyIDs) > MaxArmies {
		return nil, fmt.Errorf("%w: got %d", ErrArmyCount, len(armyIDs))
	}
	if err := validateDistinct(armyIDs); err != nil {
		return nil, err
	}

	armies := make([]*army.Army, len(armyIDs))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range armyIDs {
		i, id := i, id
		g.Go(func() error {
			a, err := m.factory.Load(gctx, id)
			if err != nil {
				return err
			}
			armies[i] = a
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	game, err := New(uuid.NewString(), armies, m.scheduler,
		WithTickPeriod(m.cfg.TickPeriod),
		WithEventBuffer(m.cfg.EventBuffer),
		WithMetrics(m.metrics),
		WithLogger(m.logger),
	)
	if err != nil {
		return nil, err
	}

	mg := &managedGame{
		game:      game,
		pumpDone:  make(chan struct{}),
		saveCh:    make(chan []model.ArmyDocument, 1),
		saverDone: make(chan struct{}),
	}
	go m.pump(mg)
	go m.saver(mg)

	if err := game.Start(); err != nil {
		m.shutdown(mg)
		return nil, err
	}

	if m.cfg.AutosaveTicks > 0 {
		if err := m.scheduler.RunTask(SaveTaskName(game.ID()), func() { m.autosave(mg) }, m.cfg.AutosaveTicks); err != nil {
			m.shutdown(mg)
			return nil, fmt.Errorf("register autosave: %w", err)
		}
	}

	m.mu.Lock()
	m.games[game.ID()] = mg
	m.mu.Unlock()

	m.publishLifecycle(context.Background(), protocol.EventGameStarted, game.ID(), game.Info())
	return game, nil
}

func validateDistinct(ids []string) error {
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			verr := &model.ValidationError{}
			verr.Add("armies", "army "+id+" is listed more than once")
			return verr
		}
		seen[id] = struct{}{}
	}
	return nil
}

// pump пересылает события игры в шину, пока канал не закрыт
func (m *Manager) pump(mg *managedGame) {
	defer close(mg.pumpDone)
	for ev := range mg.game.Events() {
		m.publish(context.Background(), protocol.EventGameUpdate, ev.GameID, eventbus.PriorityLow, ev)
	}
}

// publishLifecycle публикует событие, по которому подписчики открывают и закрывают комнаты.
// Такие события не отбрасываются при переполнении шины.
func (m *Manager) publishLifecycle(ctx context.Context, eventType, gameID string, v interface{}) {
	ctx, cancel := context.WithTimeout(ctx, lifecyclePublishTimeout)
	defer cancel()
	m.publish(ctx, eventType, gameID, eventbus.PriorityCritical, v)
}

func (m *Manager) publish(ctx context.Context, eventType, gameID string, priority int, v interface{}) {
	if m.bus == nil {
		return
	}
	payload, err := json.Marshal(v)
	if err != nil {
		m.logger.Error("Игра %s: ошибка сериализации %s: %v", gameID, eventType, err)
		return
	}
	env := eventbus.NewEnvelope(EventSource, eventType, payload, map[string]string{"game_id": gameID})
	env.Priority = priority
	if err := m.bus.Publish(ctx, env); err != nil {
		m.logger.Warn("Игра %s: не удалось опубликовать %s: %v", gameID, eventType, err)
	}
}

// autosave снимает снимки под блокировкой игры и передает их сохраняющей горутине,
// не дожидаясь записи. Несохраненный старый снимок заменяется новым.
func (m *Manager) autosave(mg *managedGame) {
	docs := mg.game.Snapshots()
	select {
	case mg.saveCh <- docs:
	default:
		select {
		case <-mg.saveCh:
		default:
		}
		mg.saveCh <- docs
	}
}

func (m *Manager) saver(mg *managedGame) {
	defer close(mg.saverDone)
	for docs := range mg.saveCh {
		ctx, cancel := context.WithTimeout(context.Background(), m.cfg.SaveTimeout)
		if err := m.saveAll(ctx, docs); err != nil {
			m.logger.Warn("Игра %s: автосохранение: %v", mg.game.ID(), err)
		}
		cancel()
	}
}

// shutdown останавливает игру и ее фоновые горутины. Автосохранение
// должно быть уже снято с планировщика: autosave единственный отправитель в saveCh.
func (m *Manager) shutdown(mg *managedGame) {
	mg.game.Stop()
	<-mg.pumpDone
	close(mg.saveCh)
	<-mg.saverDone
}

func (m *Manager) saveAll(ctx context.Context, docs []model.ArmyDocument) error {
	var errs []error
	for _, doc := range docs {
		if err := m.factory.SaveSnapshot(ctx, doc); err != nil {
			m.metrics.saveFailed()
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// StopGame останавливает игру, дожидается пересылки оставшихся событий
// и сохраняет итоговое состояние армий.
func (m *Manager) StopGame(ctx context.Context, id string) (Info, error) {
	m.mu.Lock()
	mg, ok := m.games[id]
	if ok {
		delete(m.games, id)
	}
	m.mu.Unlock()
	if !ok {
		return Info{}, ErrGameNotFound
	}

	m.scheduler.StopTask(SaveTaskName(id))
	m.shutdown(mg)

	info := mg.game.Info()
	m.publishLifecycle(ctx, protocol.EventGameStopped, id, info)

	if err := m.saveAll(ctx, mg.game.Snapshots()); err != nil {
		return info, fmt.Errorf("final save of game %s: %w", id, err)
	}
	return info, nil
}

// Get возвращает запущенную игру
func (m *Manager) Get(id string) (*Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mg, ok := m.games[id]
	if !ok {
		return nil, ErrGameNotFound
	}
	return mg.game, nil
}

// List возвращает сводки всех запущенных игр по времени создания
func (m *Manager) List() []Info {
	m.mu.RLock()
	infos := make([]Info, 0, len(m.games))
	for _, mg := range m.games {
		infos = append(infos, mg.game.Info())
	}
	m.mu.RUnlock()

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].CreatedAt.Before(infos[j].CreatedAt)
	})
	return infos
}

// StopAll останавливает все игры с итоговым сохранением
func (m *Manager) StopAll(ctx context.Context) error {
	m.mu.RLock()
	ids := make([]string, 0, len(m.games))
	for id := range m.games {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	var errs []error
	for _, id := range ids {
		if _, err := m.StopGame(ctx, id); err != nil && !errors.Is(err, ErrGameNotFound) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
