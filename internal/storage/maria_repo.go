package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/annel0/army-battle/internal/model"
	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
)

// MariaConfig содержит настройки подключения к MariaDB
type MariaConfig struct {
	Host     string // например, localhost
	Port     int    // например, 3306
	Database string // например, army_battle
	Username string // пользователь БД
	Password string // пароль БД
}

// MariaStore реализует оба репозитория поверх одного *sql.DB.
// Сущности армии хранятся JSON колонкой.
type MariaStore struct {
	db *sql.DB
}

const mysqlDuplicateEntry = 1062

// NewMariaStore создает подключение к MariaDB и таблицы, если их нет
func NewMariaStore(cfg MariaConfig) (*MariaStore, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 3306
	}
	if cfg.Database == "" {
		cfg.Database = "army_battle"
	}

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.Database)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: не удалось открыть подключение к MariaDB: %w", ErrStorage, err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("%w: не удалось подключиться к MariaDB: %w", ErrStorage, err)
	}

	store := &MariaStore{db: db}
	if err := store.createTables(); err != nil {
		return nil, fmt.Errorf("%w: не удалось создать таблицы: %w", ErrStorage, err)
	}
	return store, nil
}

func (m *MariaStore) createTables() error {
	createUsersTable := `
	CREATE TABLE IF NOT EXISTS users (
		id CHAR(36) PRIMARY KEY,
		email VARCHAR(255) NOT NULL UNIQUE,
		name VARCHAR(255) NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		is_admin BOOLEAN NOT NULL DEFAULT FALSE,
		created_at DATETIME(6) NOT NULL,
		updated_at DATETIME(6) NOT NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`

	if _, err := m.db.Exec(createUsersTable); err != nil {
		return fmt.Errorf("не удалось создать таблицу users: %w", err)
	}

	createArmiesTable := `
	CREATE TABLE IF NOT EXISTS armies (
		id CHAR(36) PRIMARY KEY,
		owner VARCHAR(64) NOT NULL,
		width DOUBLE NOT NULL,
		height DOUBLE NOT NULL,
		entities JSON NOT NULL,
		created_at DATETIME(6) NOT NULL,
		updated_at DATETIME(6) NOT NULL,
		INDEX idx_owner (owner)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`

	if _, err := m.db.Exec(createArmiesTable); err != nil {
		return fmt.Errorf("не удалось создать таблицу armies: %w", err)
	}
	return nil
}

// Armies возвращает репозиторий армий
func (m *MariaStore) Armies() *MariaArmyRepo { return &MariaArmyRepo{db: m.db} }

// Users возвращает репозиторий пользователей
func (m *MariaStore) Users() *MariaUserRepo { return &MariaUserRepo{db: m.db} }

// Close закрывает пул соединений
func (m *MariaStore) Close() error { return m.db.Close() }

// MariaArmyRepo реализует ArmyRepository для MariaDB
type MariaArmyRepo struct {
	db *sql.DB
}

func (r *MariaArmyRepo) Insert(ctx context.Context, doc model.ArmyDocument) (model.ArmyDocument, error) {
	doc = doc.Clone()
	doc.ID = uuid.NewString()
	doc.CreatedAt = time.Now().UTC()
	doc.UpdatedAt = doc.CreatedAt

	entities, err := json.Marshal(nonNilEntities(doc.Entities))
	if err != nil {
		return model.ArmyDocument{}, fmt.Errorf("ошибка сериализации сущностей: %w", err)
	}

	query := `INSERT INTO armies (id, owner, width, height, entities, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, query, doc.ID, doc.Owner, doc.Size.Width, doc.Size.Height,
		entities, doc.CreatedAt, doc.UpdatedAt); err != nil {
		return model.ArmyDocument{}, fmt.Errorf("%w: ошибка при создании армии: %w", ErrStorage, err)
	}
	doc.Entities = nonNilEntities(doc.Entities)
	return doc, nil
}

func (r *MariaArmyRepo) FindByID(ctx context.Context, id string) (model.ArmyDocument, error) {
	query := `SELECT id, owner, width, height, entities, created_at, updated_at
			  FROM armies WHERE id = ?`
	doc, err := scanArmy(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.ArmyDocument{}, ErrArmyNotFound
	}
	if err != nil {
		return model.ArmyDocument{}, fmt.Errorf("%w: ошибка при получении армии: %w", ErrStorage, err)
	}
	return doc, nil
}

func (r *MariaArmyRepo) FindByOwner(ctx context.Context, owner string) ([]model.ArmyDocument, error) {
	query := `SELECT id, owner, width, height, entities, created_at, updated_at
			  FROM armies WHERE owner = ? ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, query, owner)
	if err != nil {
		return nil, fmt.Errorf("%w: ошибка при получении армий: %w", ErrStorage, err)
	}
	defer rows.Close()

	result := make([]model.ArmyDocument, 0)
	for rows.Next() {
		doc, err := scanArmy(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: ошибка чтения армии: %w", ErrStorage, err)
		}
		result = append(result, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return result, nil
}

func (r *MariaArmyRepo) Update(ctx context.Context, doc model.ArmyDocument) error {
	entities, err := json.Marshal(nonNilEntities(doc.Entities))
	if err != nil {
		return fmt.Errorf("ошибка сериализации сущностей: %w", err)
	}

	query := `UPDATE armies SET width = ?, height = ?, entities = ?, updated_at = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query, doc.Size.Width, doc.Size.Height, entities, time.Now().UTC(), doc.ID)
	if err != nil {
		return fmt.Errorf("%w: ошибка при обновлении армии: %w", ErrStorage, err)
	}
	return affectedOr(res, ErrArmyNotFound)
}

func (r *MariaArmyRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM armies WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("%w: ошибка при удалении армии: %w", ErrStorage, err)
	}
	return affectedOr(res, ErrArmyNotFound)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArmy(row rowScanner) (model.ArmyDocument, error) {
	var (
		doc      model.ArmyDocument
		entities []byte
	)
	if err := row.Scan(&doc.ID, &doc.Owner, &doc.Size.Width, &doc.Size.Height,
		&entities, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
		return model.ArmyDocument{}, err
	}
	if err := json.Unmarshal(entities, &doc.Entities); err != nil {
		return model.ArmyDocument{}, err
	}
	doc.Entities = nonNilEntities(doc.Entities)
	return doc, nil
}

// MariaUserRepo реализует UserRepository для MariaDB
type MariaUserRepo struct {
	db *sql.DB
}

func (r *MariaUserRepo) Create(ctx context.Context, user model.UserDocument) (model.UserDocument, error) {
	now := time.Now().UTC()
	user.ID = uuid.NewString()
	user.Email = model.NormalizeEmail(user.Email)
	user.CreatedAt = now
	user.UpdatedAt = now

	query := `INSERT INTO users (id, email, name, password_hash, is_admin, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, user.ID, user.Email, user.Name, user.PasswordHash,
		user.IsAdmin, user.CreatedAt, user.UpdatedAt)
	if isDuplicate(err) {
		return model.UserDocument{}, ErrUserExists
	}
	if err != nil {
		return model.UserDocument{}, fmt.Errorf("%w: ошибка при создании пользователя: %w", ErrStorage, err)
	}
	return user, nil
}

func (r *MariaUserRepo) FindByID(ctx context.Context, id string) (model.UserDocument, error) {
	return r.findOne(ctx, `WHERE id = ?`, id)
}

func (r *MariaUserRepo) FindByEmail(ctx context.Context, email string) (model.UserDocument, error) {
	return r.findOne(ctx, `WHERE email = ?`, model.NormalizeEmail(email))
}

const userColumns = `SELECT id, email, name, password_hash, is_admin, created_at, updated_at FROM users `

func (r *MariaUserRepo) findOne(ctx context.Context, where string, arg any) (model.UserDocument, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, userColumns+where, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return model.UserDocument{}, ErrUserNotFound
	}
	if err != nil {
		return model.UserDocument{}, fmt.Errorf("%w: ошибка при получении пользователя: %w", ErrStorage, err)
	}
	return user, nil
}

func (r *MariaUserRepo) List(ctx context.Context) ([]model.UserDocument, error) {
	rows, err := r.db.QueryContext(ctx, userColumns+`ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("%w: ошибка при получении пользователей: %w", ErrStorage, err)
	}
	defer rows.Close()

	result := make([]model.UserDocument, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrStorage, err)
		}
		result = append(result, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return result, nil
}

func (r *MariaUserRepo) Update(ctx context.Context, user model.UserDocument) error {
	query := `UPDATE users SET email = ?, name = ?, password_hash = ?, is_admin = ?, updated_at = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query, model.NormalizeEmail(user.Email), user.Name,
		user.PasswordHash, user.IsAdmin, time.Now().UTC(), user.ID)
	if isDuplicate(err) {
		return ErrUserExists
	}
	if err != nil {
		return fmt.Errorf("%w: ошибка при обновлении пользователя: %w", ErrStorage, err)
	}
	return affectedOr(res, ErrUserNotFound)
}

func (r *MariaUserRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("%w: ошибка при удалении пользователя: %w", ErrStorage, err)
	}
	return affectedOr(res, ErrUserNotFound)
}

func scanUser(row rowScanner) (model.UserDocument, error) {
	var user model.UserDocument
	err := row.Scan(&user.ID, &user.Email, &user.Name, &user.PasswordHash,
		&user.IsAdmin, &user.CreatedAt, &user.UpdatedAt)
	return user, err
}

func isDuplicate(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry
}

// affectedOr возвращает notFound, если запрос не затронул ни одной строки.
// Для UPDATE без изменений MariaDB тоже сообщает 0, поэтому updated_at
// всегда меняется.
func affectedOr(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
