package cache

import (
	"context"
	"encoding/json"
	"hash/fnv"
	"sync"
	"time"

	"github.com/annel0/army-battle/internal/logging"
	"github.com/annel0/army-battle/internal/model"
	"github.com/annel0/army-battle/internal/storage"
)

// CachedArmyRepo - read-through кеш документов армий перед ArmyRepository.
// Запись идет в хранилище, после чего ключ удаляется из кеша.
// Сбои кеша не ломают запросы: они логируются, и используется хранилище.
//
// Каждая запись увеличивает поколение корзины ключа. Промах заполняет кеш,
// только если поколение не изменилось с момента чтения из хранилища.
type CachedArmyRepo struct {
	repo  storage.ArmyRepository
	cache CacheRepo
	ttl   time.Duration

	mu   sync.Mutex
	gens [generationBuckets]uint64
}

const generationBuckets = 256

var _ storage.ArmyRepository = (*CachedArmyRepo)(nil)

// NewCachedArmyRepo оборачивает repo кешем с заданным TTL
func NewCachedArmyRepo(repo storage.ArmyRepository, cache CacheRepo, ttl time.Duration) *CachedArmyRepo {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &CachedArmyRepo{repo: repo, cache: cache, ttl: ttl}
}

func armyKey(id string) string {
	return "army:" + id
}

func bucket(id string) int {
	h := fnv.New32a()
	h.Write([]byte(id))
	return int(h.Sum32() % generationBuckets)
}

func (c *CachedArmyRepo) generation(id string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[bucket(id)]
}

func (c *CachedArmyRepo) Insert(ctx context.Context, doc model.ArmyDocument) (model.ArmyDocument, error) {
	return c.repo.Insert(ctx, doc)
}

// FindByID читает документ из кеша, при промахе из хранилища с заполнением кеша
func (c *CachedArmyRepo) FindByID(ctx context.Context, id string) (model.ArmyDocument, error) {
	data, err := c.cache.Get(ctx, armyKey(id))
	if err == nil {
		var doc model.ArmyDocument
		if err := json.Unmarshal(data, &doc); err == nil {
			return doc, nil
		}
		logging.Warn("Кеш армии %s поврежден, читаем из хранилища", id)
	} else if !IsCacheMiss(err) {
		logging.Warn("Кеш недоступен для армии %s: %v", id, err)
	}

	gen := c.generation(id)
	doc, err := c.repo.FindByID(ctx, id)
	if err != nil {
		return model.ArmyDocument{}, err
	}

	if data, err := json.Marshal(doc); err == nil {
		c.fill(ctx, id, gen, data)
	}
	return doc, nil
}

// fill кладет прочитанный документ в кеш, если после чтения не было записи
func (c *CachedArmyRepo) fill(ctx context.Context, id string, gen uint64, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[bucket(id)] != gen {
		logging.Debug("Армия %s изменена во время чтения, кеш не заполняется", id)
		return
	}
	if err := c.cache.Set(ctx, armyKey(id), data, c.ttl); err != nil {
		logging.Debug("Не удалось закешировать армию %s: %v", id, err)
	}
}

// FindByOwner не кешируется: список меняется при каждом создании армии
func (c *CachedArmyRepo) FindByOwner(ctx context.Context, owner string) ([]model.ArmyDocument, error) {
	return c.repo.FindByOwner(ctx, owner)
}

func (c *CachedArmyRepo) Update(ctx context.Context, doc model.ArmyDocument) error {
	err := c.repo.Update(ctx, doc)
	c.invalidate(ctx, doc.ID)
	return err
}

func (c *CachedArmyRepo) Delete(ctx context.Context, id string) error {
	err := c.repo.Delete(ctx, id)
	c.invalidate(ctx, id)
	return err
}

func (c *CachedArmyRepo) invalidate(ctx context.Context, id string) {
	c.mu.Lock()
	c.gens[bucket(id)]++
	c.mu.Unlock()
	if err := c.cache.Delete(ctx, armyKey(id)); err != nil {
		logging.Warn("Не удалось инвалидировать кеш армии %s: %v", id, err)
	}
}
