package entity

import (
	"fmt"
	"regexp"
)

// Kind определяет тип сущности. Набор типов закрыт.
type Kind string

const (
	KindBarbarian Kind = "barbarian"
	KindArcher    Kind = "archer"
)

// Kinds возвращает все известные типы сущностей в стабильном порядке
func Kinds() []Kind {
	return []Kind{KindBarbarian, KindArcher}
}

// Valid проверяет, что тип входит в закрытый набор
func (k Kind) Valid() bool {
	_, ok := constructors[k]
	return ok
}

// String возвращает строковое представление типа
func (k Kind) String() string {
	return string(k)
}

// ParseKind разбирает тип сущности из строки
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
	return k, nil
}

var colorPattern = regexp.MustCompile(`^#([0-9a-fA-F]{3}){1,2}$`)

// ValidColor проверяет hex-цвет сущности (#rgb или #rrggbb)
func ValidColor(color string) bool {
	return colorPattern.MatchString(color)
}
