package army

import (
	"context"
	"errors"
	"testing"

	"github.com/annel0/army-battle/internal/entity"
	"github.com/annel0/army-battle/internal/model"
	"github.com/annel0/army-battle/internal/storage"
	"github.com/annel0/army-battle/internal/vec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingRepo возвращает ошибку хранилища на любую операцию
type failingRepo struct {
	storage.ArmyRepository
}

func (failingRepo) Insert(context.Context, model.ArmyDocument) (model.ArmyDocument, error) {
	return model.ArmyDocument{}, storage.ErrStorage
}

func (failingRepo) FindByID(context.Context, string) (model.ArmyDocument, error) {
	return model.ArmyDocument{}, storage.ErrStorage
}

func TestFactory_SaveThenCreateRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := storage.NewMemoryArmyRepo()
	f := NewFactory(repo)

	a, err := f.CreateNew(ctx, "owner-1", vec.New(10, 10))
	require.NoError(t, err)
	require.NotEmpty(t, a.ID)
	assert.Equal(t, 0, a.Len())

	barbarian := entity.NewBarbarian(vec.New(0, 0), vec.New(1, 1), "#f00")
	archer := entity.NewArcher(vec.New(1, 1), vec.New(1, 1), "#0f0")
	a.Spawn(barbarian)
	a.Spawn(archer)

	require.NoError(t, f.Save(ctx, a))

	doc, err := repo.FindByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "owner-1", doc.Owner, "Save не должен терять владельца")

	restored := f.Create(doc)
	assert.Equal(t, a.ID, restored.ID)
	assert.Equal(t, a.Size(), restored.Size())

	entities := restored.Entities()
	require.Len(t, entities, 2)
	for i, original := range []*entity.Entity{barbarian, archer} {
		got := entities[i]
		assert.Equal(t, original.Kind(), got.Kind())
		assert.Equal(t, original.Position, got.Position)
		assert.Equal(t, original.Size, got.Size)
		assert.Equal(t, original.Color, got.Color)
		assert.Equal(t, original.ExportConfiguration(), got.ExportConfiguration())
	}
}

func TestFactory_CreateSkipsUnknownKinds(t *testing.T) {
	f := NewFactory(storage.NewMemoryArmyRepo())

	good := ToDocument(entity.NewArcher(vec.New(1, 1), vec.New(1, 1), "#000"))
	bad := good
	bad.Config = entity.Configuration{Kind: "wizard"}

	a := f.Create(model.ArmyDocument{
		ID:       "a1",
		Size:     model.Size{Width: 5, Height: 5},
		Entities: []model.EntityDocument{bad, good, bad},
	})
	require.Equal(t, 1, a.Len(), "Неизвестные типы пропускаются, остальные сохраняются")
	assert.Equal(t, entity.KindArcher, a.Entities()[0].Kind())
}

func TestFactory_CreateEnforceBounds(t *testing.T) {
	f := NewFactory(storage.NewMemoryArmyRepo(), WithEnforceBounds(true))

	inside := ToDocument(entity.NewArcher(vec.New(1, 1), vec.New(1, 1), "#000"))
	outside := ToDocument(entity.NewArcher(vec.New(50, 1), vec.New(1, 1), "#000"))

	a := f.Create(model.ArmyDocument{
		ID:       "a1",
		Size:     model.Size{Width: 5, Height: 5},
		Entities: []model.EntityDocument{inside, outside},
	})
	assert.Equal(t, 1, a.Len())
}

func TestFactory_SaveMissingRecordIsNoop(t *testing.T) {
	repo := storage.NewMemoryArmyRepo()
	f := NewFactory(repo)

	a := New("deleted", vec.New(3, 3))
	a.Spawn(entity.NewBarbarian(vec.New(0, 0), vec.New(1, 1), "#fff"))

	assert.NoError(t, f.Save(context.Background(), a))
	assert.Equal(t, 0, repo.Count(), "Сохранение не должно создавать запись")
}

func TestFactory_StorageErrorsPropagate(t *testing.T) {
	f := NewFactory(failingRepo{})
	ctx := context.Background()

	a, err := f.CreateNew(ctx, "owner", vec.New(1, 1))
	assert.Nil(t, a, "При ошибке записи армия не возвращается")
	assert.True(t, errors.Is(err, storage.ErrStorage))

	_, err = f.Load(ctx, "x")
	assert.ErrorIs(t, err, storage.ErrStorage)

	assert.ErrorIs(t, f.Save(ctx, New("x", vec.New(1, 1))), storage.ErrStorage)
}

func TestFactory_CreateNewRejectsInvalidSize(t *testing.T) {
	f := NewFactory(storage.NewMemoryArmyRepo())

	_, err := f.CreateNew(context.Background(), "owner", vec.New(0, 10))
	var verr *model.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestFactory_LoadNotFound(t *testing.T) {
	f := NewFactory(storage.NewMemoryArmyRepo())
	_, err := f.Load(context.Background(), "nope")
	assert.ErrorIs(t, err, storage.ErrArmyNotFound)
}
