package model

import (
	"regexp"
	"strings"
	"time"
)

// UserDocument - аккаунт игрока. Армии связаны с ним через ArmyDocument.Owner.
type UserDocument struct {
	ID           string    `json:"id" bson:"-"`
	Email        string    `json:"email" bson:"email"`
	Name         string    `json:"name" bson:"name"`
	PasswordHash string    `json:"-" bson:"password_hash"`
	IsAdmin      bool      `json:"isAdmin" bson:"is_admin"`
	CreatedAt    time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" bson:"updated_at"`
}

// MinPasswordLength - минимальная длина пароля
const MinPasswordLength = 8

var emailPattern = regexp.MustCompile(`\S+@\S+\.\S+`)

// NormalizeEmail приводит email к нижнему регистру без пробелов
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UserInput - данные пользователя из запроса. Пустые поля при частичном
// обновлении не проверяются.
type UserInput struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

// Validate проверяет полный набор полей (создание, PUT)
func (u UserInput) Validate() error {
	return u.validate(false)
}

// ValidatePartial проверяет только заполненные поля (PATCH)
func (u UserInput) ValidatePartial() error {
	return u.validate(true)
}

func (u UserInput) validate(partial bool) error {
	verr := &ValidationError{}

	if u.Email == "" {
		if !partial {
			verr.Add("email", "Email is required")
		}
	} else if !emailPattern.MatchString(u.Email) {
		verr.Add("email", "Invalid email")
	}

	if strings.TrimSpace(u.Name) == "" {
		if !partial || u.Name != "" {
			verr.Add("name", "Name is required")
		}
	}

	if u.Password == "" {
		if !partial {
			verr.Add("password", "Password is required")
		}
	} else if len(u.Password) < MinPasswordLength {
		verr.Add("password", "Password is too small")
	}

	return verr.OrNil()
}
