package vec

import "math"

// Vec2 представляет 2D вектор: позицию (X, Y) или размер (Width, Height).
type Vec2 struct {
	X float64 `json:"x" bson:"x"`
	Y float64 `json:"y" bson:"y"`
}

// New создает вектор из двух компонент
func New(x, y float64) Vec2 {
	return Vec2{X: x, Y: y}
}

// Width возвращает X, когда вектор описывает размер
func (v Vec2) Width() float64 {
	return v.X
}

// Height возвращает Y, когда вектор описывает размер
func (v Vec2) Height() float64 {
	return v.Y
}

// Add складывает два вектора
func (v Vec2) Add(other Vec2) Vec2 {
	return Vec2{X: v.X + other.X, Y: v.Y + other.Y}
}

// Sub вычитает вектор
func (v Vec2) Sub(other Vec2) Vec2 {
	return Vec2{X: v.X - other.X, Y: v.Y - other.Y}
}

// Mul умножает вектор на скаляр
func (v Vec2) Mul(scalar float64) Vec2 {
	return Vec2{X: v.X * scalar, Y: v.Y * scalar}
}

// Length возвращает длину вектора
func (v Vec2) Length() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y)
}

// DistanceTo вычисляет расстояние до другой точки
func (v Vec2) DistanceTo(other Vec2) float64 {
	return v.Sub(other).Length()
}

// IsPositive проверяет, что обе компоненты строго больше нуля и конечны.
// Используется для валидации размеров.
func (v Vec2) IsPositive() bool {
	return isFinite(v.X) && isFinite(v.Y) && v.X > 0 && v.Y > 0
}

// IsFinite проверяет, что обе компоненты конечны
func (v Vec2) IsFinite() bool {
	return isFinite(v.X) && isFinite(v.Y)
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
