package army

import (
	"testing"

	"github.com/annel0/army-battle/internal/entity"
	"github.com/annel0/army-battle/internal/vec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArmy_UpdateCallsEntitiesInSpawnOrder(t *testing.T) {
	a := New("a1", vec.New(10, 10))

	var calls []string
	record := func(name string) entity.Behavior {
		return entity.BehaviorFunc(func(e *entity.Entity, loop uint64) {
			calls = append(calls, name)
			assert.Equal(t, uint64(7), loop)
		})
	}

	for _, name := range []string{"first", "second", "third"} {
		e := entity.NewBarbarian(vec.New(0, 0), vec.New(1, 1), "#fff")
		e.SetBehavior(record(name))
		a.Spawn(e)
	}

	a.Update(7)
	assert.Equal(t, []string{"first", "second", "third"}, calls, "Каждая сущность обновляется ровно один раз по порядку")
	assert.Equal(t, 3, a.Len())
}

func TestArmy_EntitiesReturnsCopy(t *testing.T) {
	a := New("a1", vec.New(10, 10))
	a.Spawn(entity.NewArcher(vec.New(1, 1), vec.New(1, 1), "#000"))
	a.Spawn(nil)

	list := a.Entities()
	list[0] = nil
	assert.NotNil(t, a.Entities()[0], "Изменение копии не должно влиять на армию")
	assert.Equal(t, 1, a.Len(), "nil не добавляется")
}

func TestArmy_InBounds(t *testing.T) {
	a := New("a1", vec.New(10, 10))

	assert.True(t, a.InBounds(entity.NewArcher(vec.New(0, 0), vec.New(1, 1), "#000")))
	assert.True(t, a.InBounds(entity.NewArcher(vec.New(9, 9), vec.New(1, 1), "#000")))
	assert.False(t, a.InBounds(entity.NewArcher(vec.New(9.5, 0), vec.New(1, 1), "#000")))
	assert.False(t, a.InBounds(entity.NewArcher(vec.New(-1, 0), vec.New(1, 1), "#000")))

	// Spawn не проверяет границы
	a.Spawn(entity.NewArcher(vec.New(100, 100), vec.New(1, 1), "#000"))
	assert.Equal(t, 1, a.Len())
}

func TestArmy_SnapshotIsDetached(t *testing.T) {
	a := New("a1", vec.New(10, 20))
	b := entity.NewBarbarian(vec.New(2, 3), vec.New(1, 1), "#abc")
	a.Spawn(b)

	doc := a.Snapshot()
	require.Len(t, doc.Entities, 1)
	assert.Equal(t, "a1", doc.ID)
	assert.Equal(t, 10.0, doc.Size.Width)
	assert.Equal(t, 20.0, doc.Size.Height)
	assert.Equal(t, entity.KindBarbarian, doc.Entities[0].Config.Kind)
	assert.Equal(t, entity.BarbarianBaseSpeed, doc.Entities[0].Config.Speed)

	b.Position = vec.New(5, 5)
	assert.Equal(t, 2.0, doc.Entities[0].Position.X, "Снимок не должен отражать последующие изменения")
}

func TestFromDocument_UnknownKind(t *testing.T) {
	doc := ToDocument(entity.NewArcher(vec.New(1, 1), vec.New(1, 1), "#000"))
	doc.Config.Kind = "dragon"
	assert.Nil(t, FromDocument(doc))
}
