package army

import (
	"github.com/annel0/army-battle/internal/entity"
	"github.com/annel0/army-battle/internal/model"
	"github.com/annel0/army-battle/internal/vec"
)

// Army - упорядоченный набор сущностей на поле заданного размера.
// Владелец армии хранится только в сохраненном документе.
type Army struct {
	ID       string
	size     vec.Vec2
	entities []*entity.Entity
}

// New создает пустую армию, привязанную к сохраненной записи id
func New(id string, size vec.Vec2) *Army {
	return &Army{
		ID:       id,
		size:     size,
		entities: make([]*entity.Entity, 0),
	}
}

// Size возвращает размер поля армии. Размер не меняется после создания.
func (a *Army) Size() vec.Vec2 {
	return a.size
}

// Spawn добавляет сущность в конец списка. Границы поля не проверяются,
// для этого есть InBounds.
func (a *Army) Spawn(e *entity.Entity) {
	if e == nil {
		return
	}
	a.entities = append(a.entities, e)
}

// InBounds сообщает, помещается ли прямоугольник сущности в поле армии
func (a *Army) InBounds(e *entity.Entity) bool {
	if e == nil {
		return false
	}
	end := e.Position.Add(e.Size)
	return e.Position.X >= 0 && e.Position.Y >= 0 &&
		end.X <= a.size.Width() && end.Y <= a.size.Height()
}

// Update вызывает Update каждой сущности ровно один раз в порядке добавления
func (a *Army) Update(loopCount uint64) {
	for _, e := range a.entities {
		e.Update(loopCount)
	}
}

// Entities возвращает копию списка сущностей
func (a *Army) Entities() []*entity.Entity {
	out := make([]*entity.Entity, len(a.entities))
	copy(out, a.entities)
	return out
}

// Len возвращает количество сущностей
func (a *Army) Len() int {
	return len(a.entities)
}

// Snapshot возвращает сохраняемую форму армии. Документ не разделяет память с армией.
func (a *Army) Snapshot() model.ArmyDocument {
	doc := model.ArmyDocument{
		ID:       a.ID,
		Size:     model.SizeOf(a.size),
		Entities: make([]model.EntityDocument, 0, len(a.entities)),
	}
	for _, e := range a.entities {
		doc.Entities = append(doc.Entities, ToDocument(e))
	}
	return doc
}

// ToDocument переводит сущность в сохраняемую запись
func ToDocument(e *entity.Entity) model.EntityDocument {
	return model.EntityDocument{
		Position: model.PositionOf(e.Position),
		Size:     model.SizeOf(e.Size),
		Color:    e.Color,
		Config:   e.ExportConfiguration(),
	}
}

// FromDocument восстанавливает сущность. nil для неизвестного типа.
func FromDocument(doc model.EntityDocument) *entity.Entity {
	return entity.Create(doc.Position.Vec(), doc.Size.Vec(), doc.Color, doc.Config)
}
