package army

import (
	"context"
	"errors"
	"fmt"

	"github.com/annel0/army-battle/internal/logging"
	"github.com/annel0/army-battle/internal/model"
	"github.com/annel0/army-battle/internal/storage"
	"github.com/annel0/army-battle/internal/vec"
)

// Factory материализует армии из хранилища и сохраняет их обратно
type Factory struct {
	repo          storage.ArmyRepository
	enforceBounds bool
	logger        *logging.Logger
}

// FactoryOption настраивает Factory
type FactoryOption func(*Factory)

// WithEnforceBounds включает пропуск сущностей, выходящих за поле армии
func WithEnforceBounds(enforce bool) FactoryOption {
	return func(f *Factory) { f.enforceBounds = enforce }
}

// WithLogger задает логгер фабрики
func WithLogger(l *logging.Logger) FactoryOption {
	return func(f *Factory) { f.logger = l }
}

// NewFactory создает фабрику поверх репозитория армий
func NewFactory(repo storage.ArmyRepository, opts ...FactoryOption) *Factory {
	f := &Factory{repo: repo}
	for _, opt := range opts {
		opt(f)
	}
	if f.logger == nil {
		f.logger = logging.GetGameLogger()
	}
	return f
}

// Create строит армию из документа. Записи с неизвестным типом пропускаются,
// остальные добавляются в сохраненном порядке.
func (f *Factory) Create(doc model.ArmyDocument) *Army {
	a := New(doc.ID, doc.Size.Vec())
	for i, ed := range doc.Entities {
		e := FromDocument(ed)
		if e == nil {
			f.logger.Warn("Армия %s: пропущена сущность #%d неизвестного типа %q", doc.ID, i, ed.Config.Kind)
			continue
		}
		if f.enforceBounds && !a.InBounds(e) {
			f.logger.Warn("Армия %s: сущность #%d вне поля %v", doc.ID, i, a.Size())
			continue
		}
		a.Spawn(e)
	}
	return a
}

// CreateNew сохраняет пустую армию владельца и возвращает ее, привязанную к новой записи
func (f *Factory) CreateNew(ctx context.Context, owner string, size vec.Vec2) (*Army, error) {
	if err := model.ValidateSize(model.SizeOf(size)); err != nil {
		return nil, err
	}

	doc, err := f.repo.Insert(ctx, model.ArmyDocument{
		Owner:    owner,
		Size:     model.SizeOf(size),
		Entities: []model.EntityDocument{},
	})
	if err != nil {
		return nil, fmt.Errorf("create army: %w", err)
	}

	f.logger.Debug("Создана армия %s для пользователя %s", doc.ID, owner)
	return New(doc.ID, size), nil
}

// Load читает армию из хранилища и материализует ее
func (f *Factory) Load(ctx context.Context, id string) (*Army, error) {
	doc, err := f.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load army %s: %w", id, err)
	}
	return f.Create(doc), nil
}

// Save перезаписывает размер и сущности сохраненной записи армии.
// Если запись удалена, сохранение молча пропускается.
func (f *Factory) Save(ctx context.Context, a *Army) error {
	return f.SaveSnapshot(ctx, a.Snapshot())
}

// SaveSnapshot сохраняет снимок армии, снятый заранее (например под блокировкой игры)
func (f *Factory) SaveSnapshot(ctx context.Context, doc model.ArmyDocument) error {
	stored, err := f.repo.FindByID(ctx, doc.ID)
	if errors.Is(err, storage.ErrArmyNotFound) {
		f.logger.Debug("Армия %s не найдена в хранилище, сохранение пропущено", doc.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("save army %s: %w", doc.ID, err)
	}

	stored.Size = doc.Size
	stored.Entities = doc.Clone().Entities
	if err := f.repo.Update(ctx, stored); err != nil {
		if errors.Is(err, storage.ErrArmyNotFound) {
			return nil
		}
		return fmt.Errorf("save army %s: %w", doc.ID, err)
	}
	return nil
}
