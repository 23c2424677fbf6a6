package model

import (
	"time"

	"github.com/annel0/army-battle/internal/entity"
	"github.com/annel0/army-battle/internal/vec"
)

// Position - сохраняемая позиция сущности {x, y}
type Position struct {
	X float64 `json:"x" bson:"x"`
	Y float64 `json:"y" bson:"y"`
}

// Size - сохраняемый размер {width, height}
type Size struct {
	Width  float64 `json:"width" bson:"width"`
	Height float64 `json:"height" bson:"height"`
}

// Vec преобразует позицию в вектор
func (p Position) Vec() vec.Vec2 { return vec.New(p.X, p.Y) }

// Vec преобразует размер в вектор
func (s Size) Vec() vec.Vec2 { return vec.New(s.Width, s.Height) }

// PositionOf создает позицию из вектора
func PositionOf(v vec.Vec2) Position { return Position{X: v.X, Y: v.Y} }

// SizeOf создает размер из вектора
func SizeOf(v vec.Vec2) Size { return Size{Width: v.Width(), Height: v.Height()} }

// EntityDocument - сохраняемая запись сущности внутри армии
type EntityDocument struct {
	Position Position             `json:"position" bson:"position"`
	Size     Size                 `json:"size" bson:"size"`
	Color    string               `json:"color" bson:"color"`
	Config   entity.Configuration `json:"config" bson:"config"`
}

// ArmyDocument - сохраняемая армия. Владелец хранится только здесь,
// армия в памяти о нем не знает.
type ArmyDocument struct {
	ID        string           `json:"id" bson:"-"`
	Owner     string           `json:"owner" bson:"owner"`
	Size      Size             `json:"size" bson:"size"`
	Entities  []EntityDocument `json:"entities" bson:"entities"`
	CreatedAt time.Time        `json:"createdAt" bson:"created_at"`
	UpdatedAt time.Time        `json:"updatedAt" bson:"updated_at"`
}

// Clone возвращает глубокую копию документа
func (a ArmyDocument) Clone() ArmyDocument {
	c := a
	c.Entities = make([]EntityDocument, len(a.Entities))
	copy(c.Entities, a.Entities)
	return c
}

// Validate проверяет размер армии и все записи сущностей
func (a ArmyDocument) Validate() error {
	verr := &ValidationError{}
	validateSize(verr, "size", a.Size)
	for i, e := range a.Entities {
		validateEntity(verr, i, e)
	}
	return verr.OrNil()
}

// ValidateSize проверяет размер армии
func ValidateSize(s Size) error {
	verr := &ValidationError{}
	validateSize(verr, "size", s)
	return verr.OrNil()
}

func validateSize(verr *ValidationError, field string, s Size) {
	if !s.Vec().IsPositive() {
		verr.Add(field, "size must have two positive numeric components")
	}
}

func validateEntity(verr *ValidationError, i int, e EntityDocument) {
	prefix := "entities." + itoa(i)
	if !e.Position.Vec().IsFinite() {
		verr.Add(prefix+".position", "Invalid entity position")
	}
	validateSize(verr, prefix+".size", e.Size)
	if e.Color == "" {
		verr.Add(prefix+".color", "Entity color is required")
	} else if !entity.ValidColor(e.Color) {
		verr.Add(prefix+".color", "Invalid entity color")
	}
	if err := e.Config.Validate(); err != nil {
		verr.Add(prefix+".config", err.Error())
	}
}
