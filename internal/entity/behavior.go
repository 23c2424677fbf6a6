package entity

import (
	"fmt"
	"sync"
)

// Behavior определяет, что делает сущность на каждом тике игрового цикла.
// Точка расширения для движения и боя: по умолчанию оба типа бездействуют.
type Behavior interface {
	Update(e *Entity, loopCount uint64)
}

// BehaviorFunc позволяет использовать функцию как Behavior
type BehaviorFunc func(e *Entity, loopCount uint64)

// Update вызывает f(e, loopCount)
func (f BehaviorFunc) Update(e *Entity, loopCount uint64) {
	f(e, loopCount)
}

// IdleBehavior ничего не делает
type IdleBehavior struct{}

func (IdleBehavior) Update(*Entity, uint64) {}

var (
	behaviorsMu sync.RWMutex
	behaviors   = map[Kind]Behavior{
		KindBarbarian: IdleBehavior{},
		KindArcher:    IdleBehavior{},
	}
)

// RegisterBehavior регистрирует поведение для типа сущности.
// Возвращает предыдущее поведение, чтобы его можно было восстановить.
func RegisterBehavior(kind Kind, b Behavior) (Behavior, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if b == nil {
		b = IdleBehavior{}
	}

	behaviorsMu.Lock()
	defer behaviorsMu.Unlock()
	prev := behaviors[kind]
	behaviors[kind] = b
	return prev, nil
}

func behaviorFor(kind Kind) Behavior {
	behaviorsMu.RLock()
	defer behaviorsMu.RUnlock()
	if b, ok := behaviors[kind]; ok {
		return b
	}
	return IdleBehavior{}
}
