package entity

import (
	"errors"
	"fmt"

	"github.com/annel0/army-battle/internal/vec"
)

// Базовые параметры типов сущностей
const (
	BarbarianBaseSpeed     = 0.9
	DefaultSpeedMultiplier = 0.0

	ArcherBaseSpeed   = 1.0
	DefaultShootSpeed = 2.0
)

var (
	ErrUnknownKind  = errors.New("unknown entity kind")
	ErrKindMismatch = errors.New("configuration kind does not match entity kind")
)

// Payload содержит поля, специфичные для типа сущности.
// Реализуется только BarbarianPayload и ArcherPayload.
type Payload interface {
	payloadKind() Kind
}

// BarbarianPayload - поля варвара
type BarbarianPayload struct {
	SpeedMultiplier float64
}

func (BarbarianPayload) payloadKind() Kind { return KindBarbarian }

// ArcherPayload - поля лучника
type ArcherPayload struct {
	ShootSpeed float64
}

func (ArcherPayload) payloadKind() Kind { return KindArcher }

// Entity - юнит внутри армии. Идентичности нет: сущность определяется
// позицией в списке своей армии.
type Entity struct {
	Position vec.Vec2
	Size     vec.Vec2
	Color    string
	Speed    float64 // базовая скорость движения, задается типом

	kind     Kind
	payload  Payload
	behavior Behavior
}

// constructors - полное отображение тип -> начальное состояние
var constructors = map[Kind]func() (float64, Payload){
	KindBarbarian: func() (float64, Payload) {
		return BarbarianBaseSpeed, &BarbarianPayload{SpeedMultiplier: DefaultSpeedMultiplier}
	},
	KindArcher: func() (float64, Payload) {
		return ArcherBaseSpeed, &ArcherPayload{ShootSpeed: DefaultShootSpeed}
	},
}

// New создает сущность указанного типа со значениями по умолчанию
func New(kind Kind, position, size vec.Vec2, color string) (*Entity, error) {
	ctor, ok := constructors[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	speed, payload := ctor()
	return &Entity{
		Position: position,
		Size:     size,
		Color:    color,
		Speed:    speed,
		kind:     kind,
		payload:  payload,
	}, nil
}

// NewBarbarian создает варвара со значениями по умолчанию
func NewBarbarian(position, size vec.Vec2, color string) *Entity {
	e, _ := New(KindBarbarian, position, size, color)
	return e
}

// NewArcher создает лучника со значениями по умолчанию
func NewArcher(position, size vec.Vec2, color string) *Entity {
	e, _ := New(KindArcher, position, size, color)
	return e
}

// Kind возвращает тип сущности
func (e *Entity) Kind() Kind {
	return e.kind
}

// Barbarian возвращает поля варвара или nil для другого типа
func (e *Entity) Barbarian() *BarbarianPayload {
	p, _ := e.payload.(*BarbarianPayload)
	return p
}

// Archer возвращает поля лучника или nil для другого типа
func (e *Entity) Archer() *ArcherPayload {
	p, _ := e.payload.(*ArcherPayload)
	return p
}

// Update продвигает состояние сущности на один тик
func (e *Entity) Update(loopCount uint64) {
	b := e.behavior
	if b == nil {
		b = behaviorFor(e.kind)
	}
	b.Update(e, loopCount)
}

// SetBehavior задает поведение конкретной сущности вместо поведения типа.
// nil возвращает поведение по умолчанию.
func (e *Entity) SetBehavior(b Behavior) {
	e.behavior = b
}

// ImportConfiguration перезаписывает изменяемые поля из конфигурации того же типа.
// Нулевые значения в конфигурации не меняют текущие поля.
func (e *Entity) ImportConfiguration(cfg Configuration) error {
	if cfg.Kind != e.kind {
		return fmt.Errorf("%w: entity %s, configuration %s", ErrKindMismatch, e.kind, cfg.Kind)
	}

	e.Speed = valueOr(cfg.Speed, e.Speed)

	switch p := e.payload.(type) {
	case *BarbarianPayload:
		p.SpeedMultiplier = valueOr(cfg.SpeedMultiplier, p.SpeedMultiplier)
	case *ArcherPayload:
		p.ShootSpeed = valueOr(cfg.ShootSpeed, p.ShootSpeed)
	}
	return nil
}

// ExportConfiguration возвращает снимок конфигурации с тегом типа
func (e *Entity) ExportConfiguration() Configuration {
	cfg := Configuration{
		Kind:  e.kind,
		Speed: e.Speed,
	}

	switch p := e.payload.(type) {
	case *BarbarianPayload:
		cfg.SpeedMultiplier = p.SpeedMultiplier
	case *ArcherPayload:
		cfg.ShootSpeed = p.ShootSpeed
	}
	return cfg
}

// Clone возвращает независимую копию сущности (поведение разделяется)
func (e *Entity) Clone() *Entity {
	c := *e
	switch p := e.payload.(type) {
	case *BarbarianPayload:
		cp := *p
		c.payload = &cp
	case *ArcherPayload:
		cp := *p
		c.payload = &cp
	}
	return &c
}
