package storage

import (
	"fmt"

	"github.com/annel0/army-battle/internal/config"
	"github.com/annel0/army-battle/internal/logging"
)

// Backend объединяет репозитории выбранного хранилища и функцию закрытия.
type Backend struct {
	Name   string
	Armies ArmyRepository
	Users  UserRepository
	close  func() error
}

// Close освобождает соединения хранилища.
func (b *Backend) Close() error {
	if b == nil || b.close == nil {
		return nil
	}
	return b.close()
}

// Open подключает хранилище по имени из конфигурации: memory, mongo, maria или badger.
func Open(cfg config.StorageConfig) (*Backend, error) {
	switch cfg.Backend {
	case "", "memory":
		logging.Warn("Хранилище в памяти: данные будут потеряны при перезапуске")
		return &Backend{Name: "memory", Armies: NewMemoryArmyRepo(), Users: NewMemoryUserRepo()}, nil

	case "mongo":
		store, err := NewMongoStore(MongoConfig{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return nil, err
		}
		logging.Info("MongoDB подключена: %s/%s", cfg.Mongo.URI, cfg.Mongo.Database)
		return &Backend{Name: "mongo", Armies: store.Armies(), Users: store.Users(), close: store.Close}, nil

	case "maria":
		store, err := NewMariaStore(MariaConfig{
			Host:     cfg.Maria.Host,
			Port:     cfg.Maria.Port,
			Database: cfg.Maria.Database,
			Username: cfg.Maria.Username,
			Password: cfg.Maria.Password,
		})
		if err != nil {
			return nil, err
		}
		logging.Info("MariaDB подключена: %s:%d/%s", cfg.Maria.Host, cfg.Maria.Port, cfg.Maria.Database)
		return &Backend{Name: "maria", Armies: store.Armies(), Users: store.Users(), close: store.Close}, nil

	case "badger":
		store, err := NewBadgerStore(cfg.Badger.Path)
		if err != nil {
			return nil, err
		}
		logging.Info("BadgerDB открыта: %s", cfg.Badger.Path)
		return &Backend{Name: "badger", Armies: store.Armies(), Users: store.Users(), close: store.Close}, nil

	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
