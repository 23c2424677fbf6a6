package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/annel0/army-battle/internal/logging"
	"github.com/annel0/army-battle/internal/model"
	"github.com/annel0/army-battle/internal/storage"
)

// ErrInvalidCredentials возвращается при неверной паре email/пароль
var ErrInvalidCredentials = errors.New("invalid credentials")

// Service управляет аутентификацией пользователей поверх UserRepository
type Service struct {
	users storage.UserRepository
}

// NewService создает сервис аутентификации
func NewService(users storage.UserRepository) *Service {
	return &Service{users: users}
}

// LoginResult - выданный токен и пользователь
type LoginResult struct {
	Token     string             `json:"token"`
	ExpiresAt time.Time          `json:"expiresAt"`
	User      model.UserDocument `json:"user"`
}

// Login проверяет учетные данные и выдает JWT
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, storage.ErrUserNotFound) {
		logging.Info("Неудачная аутентификация: пользователь %s не найден", model.NormalizeEmail(email))
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if !CheckPassword(user.PasswordHash, password) {
		logging.Info("Неудачная аутентификация пользователя %s", user.Email)
		return nil, ErrInvalidCredentials
	}

	token, expires, err := GenerateJWT(user)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	logging.Info("Успешная аутентификация пользователя %s (ID: %s)", user.Email, user.ID)
	return &LoginResult{Token: token, ExpiresAt: expires, User: user}, nil
}

// Register проверяет данные, хэширует пароль и создает пользователя
func (s *Service) Register(ctx context.Context, in model.UserInput, isAdmin bool) (model.UserDocument, error) {
	if err := in.Validate(); err != nil {
		return model.UserDocument{}, err
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return model.UserDocument{}, fmt.Errorf("hash password: %w", err)
	}

	return s.users.Create(ctx, model.UserDocument{
		Email:        in.Email,
		Name:         in.Name,
		PasswordHash: hash,
		IsAdmin:      isAdmin,
	})
}

// Authenticate проверяет токен и возвращает актуальную запись пользователя
func (s *Service) Authenticate(ctx context.Context, token string) (model.UserDocument, error) {
	claims, err := ValidateJWT(token)
	if err != nil {
		return model.UserDocument{}, err
	}
	user, err := s.users.FindByID(ctx, claims.UserID)
	if errors.Is(err, storage.ErrUserNotFound) {
		return model.UserDocument{}, ErrInvalidToken
	}
	return user, err
}

// EnsureAdmin создает администратора, если пользователей с таким email нет.
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	_, err := s.users.FindByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, storage.ErrUserNotFound) {
		return err
	}

	_, err = s.Register(ctx, model.UserInput{Email: email, Name: "admin", Password: password}, true)
	if err != nil && !errors.Is(err, storage.ErrUserExists) {
		return fmt.Errorf("create admin: %w", err)
	}
	logging.Info("Создан администратор %s", model.NormalizeEmail(email))
	return nil
}

// Update изменяет пользователя. При partial пустые поля входа не трогают запись,
// иначе все поля обязательны и перезаписываются (PUT).
func (s *Service) Update(ctx context.Context, id string, in model.UserInput, partial bool) (model.UserDocument, error) {
	var err error
	if partial {
		err = in.ValidatePartial()
	} else {
		err = in.Validate()
	}
	if err != nil {
		return model.UserDocument{}, err
	}

	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return model.UserDocument{}, err
	}

	if in.Email != "" {
		user.Email = model.NormalizeEmail(in.Email)
	}
	if in.Name != "" {
		user.Name = in.Name
	}
	if in.Password != "" {
		hash, err := HashPassword(in.Password)
		if err != nil {
			return model.UserDocument{}, fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = hash
	}

	if err := s.users.Update(ctx, user); err != nil {
		return model.UserDocument{}, err
	}
	return user, nil
}
