package entity

import (
	"testing"

	"github.com/annel0/army-battle/internal/vec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreate_EveryKind(t *testing.T) {
	for _, kind := range Kinds() {
		e := Create(vec.New(2, 3), vec.New(1, 1), "#123456", Configuration{Kind: kind})
		require.NotNil(t, e, "Сущность типа %s должна быть создана", kind)
		assert.Equal(t, kind, e.ExportConfiguration().Kind)
		assert.Equal(t, vec.New(2, 3), e.Position)
		assert.Equal(t, "#123456", e.Color)
	}
}

func TestCreate_AppliesConfiguration(t *testing.T) {
	b := Create(vec.Vec2{}, vec.New(1, 1), "#fff", Configuration{Kind: KindBarbarian, Speed: 2, SpeedMultiplier: 1.5})
	require.NotNil(t, b)
	assert.Equal(t, 2.0, b.Speed)
	assert.Equal(t, 1.5, b.Barbarian().SpeedMultiplier)

	a := Create(vec.Vec2{}, vec.New(1, 1), "#fff", Configuration{Kind: KindArcher, ShootSpeed: 3})
	require.NotNil(t, a)
	assert.Equal(t, ArcherBaseSpeed, a.Speed, "Незаданная скорость берется из базовой")
	assert.Equal(t, 3.0, a.Archer().ShootSpeed)
}

func TestCreate_UnknownKind(t *testing.T) {
	assert.NotPanics(t, func() {
		e := Create(vec.Vec2{}, vec.New(1, 1), "#fff", Configuration{Kind: "zombie"})
		assert.Nil(t, e)
	})
	assert.Nil(t, Create(vec.Vec2{}, vec.New(1, 1), "#fff", Configuration{}))
}
