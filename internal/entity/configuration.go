package entity

import (
	"fmt"
	"math"
)

// Configuration описывает сохраняемые параметры сущности.
// Kind всегда заполнен и определяет, какое из дополнительных полей имеет смысл:
// SpeedMultiplier для варвара, ShootSpeed для лучника.
//
// Нулевые значения опускаются при сериализации и при импорте трактуются как
// "не задано" (см. ImportConfiguration).
type Configuration struct {
	Kind            Kind    `json:"type" bson:"type"`
	Speed           float64 `json:"speed,omitempty" bson:"speed,omitempty"`
	SpeedMultiplier float64 `json:"speedMultiplier,omitempty" bson:"speedMultiplier,omitempty"`
	ShootSpeed      float64 `json:"shootSpeed,omitempty" bson:"shootSpeed,omitempty"`
}

// Validate проверяет форму конфигурации: известный тип, конечные неотрицательные
// числа и отсутствие полей чужого типа.
func (c Configuration) Validate() error {
	if !c.Kind.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownKind, c.Kind)
	}

	for name, v := range map[string]float64{
		"speed":           c.Speed,
		"speedMultiplier": c.SpeedMultiplier,
		"shootSpeed":      c.ShootSpeed,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("invalid %s: %v", name, v)
		}
	}

	switch c.Kind {
	case KindBarbarian:
		if c.ShootSpeed != 0 {
			return fmt.Errorf("shootSpeed is not allowed for %s", c.Kind)
		}
	case KindArcher:
		if c.SpeedMultiplier != 0 {
			return fmt.Errorf("speedMultiplier is not allowed for %s", c.Kind)
		}
	}
	return nil
}

// valueOr возвращает v, если оно задано (не ноль), иначе fallback.
// Явный ноль неотличим от отсутствующего значения.
func valueOr(v, fallback float64) float64 {
	if v != 0 {
		return v
	}
	return fallback
}
