package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/annel0/army-battle/internal/model"
	"github.com/dgraph-io/badger/v3"
	"github.com/google/uuid"
)

const (
	armyPrefix      = "army:"
	userPrefix      = "user:"
	userEmailPrefix = "user-email:"
)

// BadgerStore - встроенное хранилище для одиночного узла.
// Документы хранятся JSON значениями под ключами army:<id> и user:<id>,
// индекс email хранится под user-email:<email>.
type BadgerStore struct {
	db      *badger.DB
	mutex   sync.RWMutex
	isReady bool
}

// NewBadgerStore открывает БД по пути. Пустой путь открывает БД в памяти.
func NewBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil // Отключаем логирование BadgerDB

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: не удалось открыть BadgerDB: %w", ErrStorage, err)
	}
	return &BadgerStore{db: db, isReady: true}, nil
}

// Close закрывает хранилище данных
func (s *BadgerStore) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if !s.isReady {
		return nil
	}
	s.isReady = false
	return s.db.Close()
}

// Armies возвращает репозиторий армий
func (s *BadgerStore) Armies() *BadgerArmyRepo { return &BadgerArmyRepo{store: s} }

// Users возвращает репозиторий пользователей
func (s *BadgerStore) Users() *BadgerUserRepo { return &BadgerUserRepo{store: s} }

// update выполняет транзакцию записи, пока хранилище открыто.
func (s *BadgerStore) update(fn func(txn *badger.Txn) error) error {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if !s.isReady {
		return fmt.Errorf("%w: хранилище не готово", ErrStorage)
	}
	return s.db.Update(fn)
}

func (s *BadgerStore) view(fn func(txn *badger.Txn) error) error {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if !s.isReady {
		return fmt.Errorf("%w: хранилище не готово", ErrStorage)
	}
	return s.db.View(fn)
}

func getJSON(txn *badger.Txn, key string, out any) error {
	item, err := txn.Get([]byte(key))
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, out)
	})
}

func setJSON(txn *badger.Txn, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("ошибка сериализации: %w", err)
	}
	return txn.Set([]byte(key), data)
}

// scanPrefix декодирует все значения с префиксом через decode.
func scanPrefix(txn *badger.Txn, prefix string, decode func(val []byte) error) error {
	it := txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()

	p := []byte(prefix)
	for it.Seek(p); it.ValidForPrefix(p); it.Next() {
		if err := it.Item().Value(decode); err != nil {
			return err
		}
	}
	return nil
}

// BadgerArmyRepo реализует ArmyRepository поверх BadgerStore
type BadgerArmyRepo struct {
	store *BadgerStore
}

func (r *BadgerArmyRepo) Insert(ctx context.Context, doc model.ArmyDocument) (model.ArmyDocument, error) {
	if err := checkCtx(ctx); err != nil {
		return model.ArmyDocument{}, err
	}

	doc = doc.Clone()
	doc.ID = uuid.NewString()
	doc.CreatedAt = time.Now().UTC()
	doc.UpdatedAt = doc.CreatedAt
	doc.Entities = nonNilEntities(doc.Entities)

	err := r.store.update(func(txn *badger.Txn) error {
		return setJSON(txn, armyPrefix+doc.ID, doc)
	})
	if err != nil {
		return model.ArmyDocument{}, wrap("insert army", err)
	}
	return doc, nil
}

func (r *BadgerArmyRepo) FindByID(ctx context.Context, id string) (model.ArmyDocument, error) {
	if err := checkCtx(ctx); err != nil {
		return model.ArmyDocument{}, err
	}

	var doc model.ArmyDocument
	err := r.store.view(func(txn *badger.Txn) error {
		return getJSON(txn, armyPrefix+id, &doc)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return model.ArmyDocument{}, ErrArmyNotFound
	}
	if err != nil {
		return model.ArmyDocument{}, wrap("find army", err)
	}
	return doc, nil
}

func (r *BadgerArmyRepo) FindByOwner(ctx context.Context, owner string) ([]model.ArmyDocument, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}

	result := make([]model.ArmyDocument, 0)
	err := r.store.view(func(txn *badger.Txn) error {
		return scanPrefix(txn, armyPrefix, func(val []byte) error {
			var doc model.ArmyDocument
			if err := json.Unmarshal(val, &doc); err != nil {
				return err
			}
			if doc.Owner == owner {
				result = append(result, doc)
			}
			return nil
		})
	})
	if err != nil {
		return nil, wrap("find armies", err)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (r *BadgerArmyRepo) Update(ctx context.Context, doc model.ArmyDocument) error {
	if err := checkCtx(ctx); err != nil {
		return err
	}

	err := r.store.update(func(txn *badger.Txn) error {
		var stored model.ArmyDocument
		if err := getJSON(txn, armyPrefix+doc.ID, &stored); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrArmyNotFound
			}
			return err
		}
		stored.Size = doc.Size
		stored.Entities = nonNilEntities(doc.Clone().Entities)
		stored.UpdatedAt = time.Now().UTC()
		return setJSON(txn, armyPrefix+doc.ID, stored)
	})
	return wrap("update army", err)
}

func (r *BadgerArmyRepo) Delete(ctx context.Context, id string) error {
	if err := checkCtx(ctx); err != nil {
		return err
	}

	err := r.store.update(func(txn *badger.Txn) error {
		key := []byte(armyPrefix + id)
		if _, err := txn.Get(key); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrArmyNotFound
			}
			return err
		}
		return txn.Delete(key)
	})
	return wrap("delete army", err)
}

// badgerUser хранит хэш пароля, который скрыт из JSON модели
type badgerUser struct {
	model.UserDocument
	PasswordHash string `json:"password_hash"`
}

func toBadgerUser(u model.UserDocument) badgerUser {
	return badgerUser{UserDocument: u, PasswordHash: u.PasswordHash}
}

func (b badgerUser) toModel() model.UserDocument {
	u := b.UserDocument
	u.PasswordHash = b.PasswordHash
	return u
}

// BadgerUserRepo реализует UserRepository поверх BadgerStore
type BadgerUserRepo struct {
	store *BadgerStore
}

func (r *BadgerUserRepo) Create(ctx context.Context, user model.UserDocument) (model.UserDocument, error) {
	if err := checkCtx(ctx); err != nil {
		return model.UserDocument{}, err
	}

	now := time.Now().UTC()
	user.ID = uuid.NewString()
	user.Email = model.NormalizeEmail(user.Email)
	user.CreatedAt = now
	user.UpdatedAt = now

	err := r.store.update(func(txn *badger.Txn) error {
		emailKey := []byte(userEmailPrefix + user.Email)
		if _, err := txn.Get(emailKey); err == nil {
			return ErrUserExists
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err := txn.Set(emailKey, []byte(user.ID)); err != nil {
			return err
		}
		return setJSON(txn, userPrefix+user.ID, toBadgerUser(user))
	})
	if err != nil {
		return model.UserDocument{}, wrap("create user", err)
	}
	return user, nil
}

func (r *BadgerUserRepo) FindByID(ctx context.Context, id string) (model.UserDocument, error) {
	if err := checkCtx(ctx); err != nil {
		return model.UserDocument{}, err
	}

	var rec badgerUser
	err := r.store.view(func(txn *badger.Txn) error {
		return getJSON(txn, userPrefix+id, &rec)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return model.UserDocument{}, ErrUserNotFound
	}
	if err != nil {
		return model.UserDocument{}, wrap("find user", err)
	}
	return rec.toModel(), nil
}

func (r *BadgerUserRepo) FindByEmail(ctx context.Context, email string) (model.UserDocument, error) {
	if err := checkCtx(ctx); err != nil {
		return model.UserDocument{}, err
	}

	var rec badgerUser
	err := r.store.view(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(userEmailPrefix + model.NormalizeEmail(email)))
		if err != nil {
			return err
		}
		id, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		return getJSON(txn, userPrefix+string(id), &rec)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return model.UserDocument{}, ErrUserNotFound
	}
	if err != nil {
		return model.UserDocument{}, wrap("find user", err)
	}
	return rec.toModel(), nil
}

func (r *BadgerUserRepo) List(ctx context.Context) ([]model.UserDocument, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}

	result := make([]model.UserDocument, 0)
	err := r.store.view(func(txn *badger.Txn) error {
		return scanPrefix(txn, userPrefix, func(val []byte) error {
			var rec badgerUser
			if err := json.Unmarshal(val, &rec); err != nil {
				return err
			}
			result = append(result, rec.toModel())
			return nil
		})
	})
	if err != nil {
		return nil, wrap("list users", err)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (r *BadgerUserRepo) Update(ctx context.Context, user model.UserDocument) error {
	if err := checkCtx(ctx); err != nil {
		return err
	}

	user.Email = model.NormalizeEmail(user.Email)
	err := r.store.update(func(txn *badger.Txn) error {
		var stored badgerUser
		if err := getJSON(txn, userPrefix+user.ID, &stored); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		if stored.Email != user.Email {
			newKey := []byte(userEmailPrefix + user.Email)
			if _, err := txn.Get(newKey); err == nil {
				return ErrUserExists
			} else if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
			if err := txn.Delete([]byte(userEmailPrefix + stored.Email)); err != nil {
				return err
			}
			if err := txn.Set(newKey, []byte(user.ID)); err != nil {
				return err
			}
		}

		user.CreatedAt = stored.CreatedAt
		user.UpdatedAt = time.Now().UTC()
		return setJSON(txn, userPrefix+user.ID, toBadgerUser(user))
	})
	return wrap("update user", err)
}

func (r *BadgerUserRepo) Delete(ctx context.Context, id string) error {
	if err := checkCtx(ctx); err != nil {
		return err
	}

	err := r.store.update(func(txn *badger.Txn) error {
		var stored badgerUser
		if err := getJSON(txn, userPrefix+id, &stored); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		if err := txn.Delete([]byte(userEmailPrefix + stored.Email)); err != nil {
			return err
		}
		return txn.Delete([]byte(userPrefix + id))
	})
	return wrap("delete user", err)
}
