package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/annel0/army-battle/internal/model"
)

// Ошибки уровня хранилища. I/O ошибки драйверов оборачиваются в ErrStorage.
var (
	ErrArmyNotFound = errors.New("army not found")
	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("user already exists")
	ErrStorage      = errors.New("storage failure")
)

// ArmyRepository определяет операции над сохраненными армиями.
// Документы передаются по значению: хранилище никогда не разделяет
// срез сущностей с вызывающим кодом.
type ArmyRepository interface {
	// Insert сохраняет новую армию и возвращает ее с присвоенным ID.
	Insert(ctx context.Context, doc model.ArmyDocument) (model.ArmyDocument, error)

	// FindByID возвращает армию или ErrArmyNotFound.
	FindByID(ctx context.Context, id string) (model.ArmyDocument, error)

	// FindByOwner возвращает все армии пользователя (возможно пустой список).
	FindByOwner(ctx context.Context, owner string) ([]model.ArmyDocument, error)

	// Update перезаписывает размер и сущности армии. ErrArmyNotFound если записи нет.
	Update(ctx context.Context, doc model.ArmyDocument) error

	// Delete удаляет армию. ErrArmyNotFound если записи нет.
	Delete(ctx context.Context, id string) error
}

// UserRepository определяет операции над аккаунтами.
// Email уникален без учета регистра; при конфликте возвращается ErrUserExists.
type UserRepository interface {
	Create(ctx context.Context, user model.UserDocument) (model.UserDocument, error)
	FindByID(ctx context.Context, id string) (model.UserDocument, error)
	FindByEmail(ctx context.Context, email string) (model.UserDocument, error)
	List(ctx context.Context) ([]model.UserDocument, error)
	Update(ctx context.Context, user model.UserDocument) error
	Delete(ctx context.Context, id string) error
}

func checkCtx(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

// wrap оставляет доменные ошибки как есть, остальное оборачивает в ErrStorage
func wrap(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrArmyNotFound), errors.Is(err, ErrUserNotFound), errors.Is(err, ErrUserExists):
		return err
	default:
		return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
	}
}
