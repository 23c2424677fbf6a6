package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/annel0/army-battle/internal/model"
	"github.com/google/uuid"
)

// MemoryArmyRepo реализует ArmyRepository в памяти.
// Используется в тестах и для локальной разработки без БД.
// ВНИМАНИЕ: Данные теряются при перезапуске сервера!
type MemoryArmyRepo struct {
	mu     sync.RWMutex
	armies map[string]model.ArmyDocument
}

// NewMemoryArmyRepo создает пустой репозиторий армий.
func NewMemoryArmyRepo() *MemoryArmyRepo {
	return &MemoryArmyRepo{armies: make(map[string]model.ArmyDocument)}
}

// Insert присваивает документу новый ID и сохраняет его копию.
func (r *MemoryArmyRepo) Insert(ctx context.Context, doc model.ArmyDocument) (model.ArmyDocument, error) {
	if err := checkCtx(ctx); err != nil {
		return model.ArmyDocument{}, err
	}

	now := time.Now().UTC()
	doc = doc.Clone()
	doc.ID = uuid.NewString()
	doc.CreatedAt = now
	doc.UpdatedAt = now

	r.mu.Lock()
	r.armies[doc.ID] = doc
	r.mu.Unlock()

	return doc.Clone(), nil
}

// FindByID возвращает копию сохраненной армии.
func (r *MemoryArmyRepo) FindByID(ctx context.Context, id string) (model.ArmyDocument, error) {
	if err := checkCtx(ctx); err != nil {
		return model.ArmyDocument{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	doc, ok := r.armies[id]
	if !ok {
		return model.ArmyDocument{}, ErrArmyNotFound
	}
	return doc.Clone(), nil
}

// FindByOwner возвращает армии пользователя в порядке создания.
func (r *MemoryArmyRepo) FindByOwner(ctx context.Context, owner string) ([]model.ArmyDocument, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}

	r.mu.RLock()
	result := make([]model.ArmyDocument, 0)
	for _, doc := range r.armies {
		if doc.Owner == owner {
			result = append(result, doc.Clone())
		}
	}
	r.mu.RUnlock()

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// Update перезаписывает размер и сущности, владелец и дата создания сохраняются.
func (r *MemoryArmyRepo) Update(ctx context.Context, doc model.ArmyDocument) error {
	if err := checkCtx(ctx); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.armies[doc.ID]
	if !ok {
		return ErrArmyNotFound
	}
	updated := doc.Clone()
	updated.Owner = stored.Owner
	updated.CreatedAt = stored.CreatedAt
	updated.UpdatedAt = time.Now().UTC()
	r.armies[doc.ID] = updated
	return nil
}

// Delete удаляет армию.
func (r *MemoryArmyRepo) Delete(ctx context.Context, id string) error {
	if err := checkCtx(ctx); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.armies[id]; !ok {
		return ErrArmyNotFound
	}
	delete(r.armies, id)
	return nil
}

// Count возвращает количество армий (для отладки и тестов).
func (r *MemoryArmyRepo) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.armies)
}

// MemoryUserRepo - потокобезопасное хранилище пользователей в памяти.
type MemoryUserRepo struct {
	mu      sync.RWMutex
	users   map[string]model.UserDocument
	byEmail map[string]string // normalized email -> id
}

// NewMemoryUserRepo создает пустой репозиторий пользователей.
func NewMemoryUserRepo() *MemoryUserRepo {
	return &MemoryUserRepo{
		users:   make(map[string]model.UserDocument),
		byEmail: make(map[string]string),
	}
}

// Create сохраняет пользователя, если email еще не занят.
func (r *MemoryUserRepo) Create(ctx context.Context, user model.UserDocument) (model.UserDocument, error) {
	if err := checkCtx(ctx); err != nil {
		return model.UserDocument{}, err
	}

	user.Email = model.NormalizeEmail(user.Email)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[user.Email]; exists {
		return model.UserDocument{}, ErrUserExists
	}

	now := time.Now().UTC()
	user.ID = uuid.NewString()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.users[user.ID] = user
	r.byEmail[user.Email] = user.ID
	return user, nil
}

func (r *MemoryUserRepo) FindByID(ctx context.Context, id string) (model.UserDocument, error) {
	if err := checkCtx(ctx); err != nil {
		return model.UserDocument{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return model.UserDocument{}, ErrUserNotFound
	}
	return user, nil
}

func (r *MemoryUserRepo) FindByEmail(ctx context.Context, email string) (model.UserDocument, error) {
	if err := checkCtx(ctx); err != nil {
		return model.UserDocument{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[model.NormalizeEmail(email)]
	if !ok {
		return model.UserDocument{}, ErrUserNotFound
	}
	return r.users[id], nil
}

// List возвращает пользователей в порядке регистрации.
func (r *MemoryUserRepo) List(ctx context.Context) ([]model.UserDocument, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}

	r.mu.RLock()
	result := make([]model.UserDocument, 0, len(r.users))
	for _, u := range r.users {
		result = append(result, u)
	}
	r.mu.RUnlock()

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// Update перезаписывает поля пользователя. Смена email проверяется на уникальность.
func (r *MemoryUserRepo) Update(ctx context.Context, user model.UserDocument) error {
	if err := checkCtx(ctx); err != nil {
		return err
	}

	user.Email = model.NormalizeEmail(user.Email)

	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.users[user.ID]
	if !ok {
		return ErrUserNotFound
	}
	if user.Email != stored.Email {
		if _, taken := r.byEmail[user.Email]; taken {
			return ErrUserExists
		}
		delete(r.byEmail, stored.Email)
		r.byEmail[user.Email] = user.ID
	}

	user.CreatedAt = stored.CreatedAt
	user.UpdatedAt = time.Now().UTC()
	r.users[user.ID] = user
	return nil
}

func (r *MemoryUserRepo) Delete(ctx context.Context, id string) error {
	if err := checkCtx(ctx); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return ErrUserNotFound
	}
	delete(r.byEmail, user.Email)
	delete(r.users, id)
	return nil
}
