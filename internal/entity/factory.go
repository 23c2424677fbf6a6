package entity

import "github.com/annel0/army-battle/internal/vec"

// Create восстанавливает сущность из сохраненной конфигурации.
// Для неизвестного типа возвращает nil: вызывающий код пропускает такую запись,
// чтобы переживать расхождение версий конфигурации.
func Create(position, size vec.Vec2, color string, cfg Configuration) *Entity {
	e, err := New(cfg.Kind, position, size, color)
	if err != nil {
		return nil
	}
	// типы совпадают по построению
	_ = e.ImportConfiguration(cfg)
	return e
}
