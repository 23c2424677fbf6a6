package game

import (
	"testing"

	"github.com/annel0/army-battle/internal/army"
	"github.com/annel0/army-battle/internal/entity"
	"github.com/annel0/army-battle/internal/scheduler"
	"github.com/annel0/army-battle/internal/vec"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stepBehavior сдвигает сущность на 1 по X за тик
var stepBehavior = entity.BehaviorFunc(func(e *entity.Entity, _ uint64) {
	e.Position = e.Position.Add(vec.New(1, 0))
})

func newArmies(n int) []*army.Army {
	armies := make([]*army.Army, 0, n)
	for i := 0; i < n; i++ {
		a := army.New(string(rune('a'+i)), vec.New(100, 100))
		b := entity.NewBarbarian(vec.New(0, 0), vec.New(1, 1), "#f00")
		b.SetBehavior(stepBehavior)
		a.Spawn(b)
		a.Spawn(entity.NewArcher(vec.New(1, 1), vec.New(1, 1), "#0f0"))
		armies = append(armies, a)
	}
	return armies
}

func TestNew_ArmyCardinality(t *testing.T) {
	s := scheduler.NewManualScheduler()

	for _, n := range []int{0, 1, 5} {
		_, err := New("g", newArmies(n), s)
		assert.ErrorIs(t, err, ErrArmyCount, "Игра с %d армиями должна быть отклонена", n)
	}
	for _, n := range []int{2, 3, 4} {
		g, err := New("g", newArmies(n), s)
		require.NoError(t, err)
		assert.Equal(t, StatusInit, g.Status())
	}
}

func TestNew_GeneratesID(t *testing.T) {
	g, err := New("", newArmies(2), scheduler.NewManualScheduler())
	require.NoError(t, err)
	assert.NotEmpty(t, g.ID())
}

func TestGame_StopBeforeStartNeverRegisters(t *testing.T) {
	s := scheduler.NewManualScheduler()
	g, err := New("g1", newArmies(2), s)
	require.NoError(t, err)

	g.Stop()
	require.NoError(t, g.Start())

	assert.Equal(t, StatusStopped, g.Status(), "Остановленная игра не возобновляется")
	assert.False(t, s.Has(TaskName("g1")), "Цикл не должен регистрироваться после Stop")

	s.Advance(5)
	assert.Zero(t, g.LoopCount())
}

func TestGame_StartIsIdempotent(t *testing.T) {
	s := scheduler.NewManualScheduler()
	g, err := New("g1", newArmies(2), s)
	require.NoError(t, err)

	require.NoError(t, g.Start())
	require.NoError(t, g.Start(), "Повторный Start не должен конфликтовать в планировщике")
	assert.Equal(t, StatusInProgress, g.Status())

	s.Advance(3)
	assert.Equal(t, uint64(3), g.LoopCount(), "Цикл зарегистрирован один раз")
}

func TestGame_TaskNamesAreUniquePerGame(t *testing.T) {
	s := scheduler.NewManualScheduler()
	g1, err := New("g1", newArmies(2), s)
	require.NoError(t, err)
	g2, err := New("g2", newArmies(2), s)
	require.NoError(t, err)

	require.NoError(t, g1.Start())
	require.NoError(t, g2.Start(), "Две игры в одном процессе не конфликтуют")

	s.Advance(2)
	assert.Equal(t, uint64(2), g1.LoopCount())
	assert.Equal(t, uint64(2), g2.LoopCount())
}

func TestGame_StartPropagatesSchedulerError(t *testing.T) {
	s := scheduler.NewManualScheduler()
	require.NoError(t, s.RunTask(TaskName("g1"), func() {}, 1))

	g, err := New("g1", newArmies(2), s)
	require.NoError(t, err)

	err = g.Start()
	assert.ErrorIs(t, err, scheduler.ErrTaskExists)
	assert.Equal(t, StatusInit, g.Status())
}

func TestGame_HundredTicks(t *testing.T) {
	s := scheduler.NewManualScheduler()
	g, err := New("g1", newArmies(2), s, WithEventBuffer(128))
	require.NoError(t, err)
	require.NoError(t, g.Start())

	s.Advance(100)
	assert.Equal(t, uint64(100), g.LoopCount())

	g.Stop()

	var events []UpdateEvent
	for ev := range g.Events() {
		events = append(events, ev)
	}
	require.Len(t, events, 100, "Одно событие на тик")
	assert.Zero(t, g.Dropped())

	for i, ev := range events {
		tick := uint64(i + 1)
		assert.Equal(t, tick, ev.LoopCount)
		assert.Equal(t, "g1", ev.GameID)
		require.Len(t, ev.Armies, 2)
		for _, doc := range ev.Armies {
			require.Len(t, doc.Entities, 2)
			assert.Equal(t, float64(tick), doc.Entities[0].Position.X, "Снимок отражает состояние после тика %d", tick)
			assert.Equal(t, 1.0, doc.Entities[1].Position.X, "Лучник без поведения стоит на месте")
		}
	}
}

func TestGame_FullChannelDropsWithoutBlocking(t *testing.T) {
	s := scheduler.NewManualScheduler()
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)

	g, err := New("g1", newArmies(2), s, WithEventBuffer(1), WithMetrics(metrics))
	require.NoError(t, err)
	require.NoError(t, g.Start())

	s.Advance(3)
	assert.Equal(t, uint64(3), g.LoopCount(), "Тики не блокируются медленным потребителем")
	assert.Equal(t, uint64(2), g.Dropped())
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.droppedEvents))
	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.ticks))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.activeGames))

	ev := <-g.Events()
	assert.Equal(t, uint64(1), ev.LoopCount)

	g.Stop()
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.activeGames))
}

func TestGame_StopClosesEventsAndFreezesLoop(t *testing.T) {
	s := scheduler.NewManualScheduler()
	g, err := New("g1", newArmies(2), s)
	require.NoError(t, err)
	require.NoError(t, g.Start())

	s.Advance(2)
	g.Stop()
	g.Stop()

	g.Update()
	assert.Equal(t, uint64(2), g.LoopCount(), "Update после Stop ничего не делает")
	assert.False(t, s.Has(TaskName("g1")))

	n := 0
	for range g.Events() {
		n++
	}
	assert.Equal(t, 2, n)
}

func TestGame_SnapshotsAndInfo(t *testing.T) {
	g, err := New("g1", newArmies(3), scheduler.NewManualScheduler())
	require.NoError(t, err)

	g.Update()
	docs := g.Snapshots()
	require.Len(t, docs, 3)
	assert.Equal(t, "a", docs[0].ID)

	info := g.Info()
	assert.Equal(t, []string{"a", "b", "c"}, info.Armies)
	assert.Equal(t, uint64(1), info.LoopCount)
	assert.Equal(t, StatusInit, info.Status)
}
