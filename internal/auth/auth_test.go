package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/annel0/army-battle/internal/model"
	"github.com/annel0/army-battle/internal/storage"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)

	assert.True(t, CheckPassword(hash, "correct horse"))
	assert.False(t, CheckPassword(hash, "wrong"))
	assert.False(t, CheckPassword("", "correct horse"), "Пустой хэш не совпадает ни с чем")
}

func TestJWT_RoundTrip(t *testing.T) {
	user := model.UserDocument{ID: "u-42", Email: "a@b.io", IsAdmin: true}

	token, expires, err := GenerateJWT(user)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(token, "."), "Неверный формат JWT токена")
	assert.True(t, expires.After(time.Now()))

	claims, err := ValidateJWT(token)
	require.NoError(t, err)
	assert.Equal(t, "u-42", claims.UserID)
	assert.Equal(t, "a@b.io", claims.Email)
	assert.True(t, claims.IsAdmin)
}

func TestJWT_RejectsBadTokens(t *testing.T) {
	_, err := ValidateJWT("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)

	// чужой секрет
	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		UserID:           "u1",
		RegisteredClaims: jwt.RegisteredClaims{Issuer: tokenIssuer},
	})
	signed, err := foreign.SignedString([]byte("another-secret-another-secret-!!"))
	require.NoError(t, err)
	_, err = ValidateJWT(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)

	// истекший токен
	secretMu.RLock()
	secret := jwtSecret
	secretMu.RUnlock()
	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		UserID: "u1",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	signed, err = expired.SignedString(secret)
	require.NoError(t, err)
	_, err = ValidateJWT(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSetJWTSecret(t *testing.T) {
	assert.Error(t, SetJWTSecret("short"))
	require.NoError(t, SetJWTSecret(GenerateSecureSecret()))
	require.NoError(t, SetJWTSecret("a-raw-secret-that-is-long-enough-for-hs256"))

	token, _, err := GenerateJWT(model.UserDocument{ID: "u1"})
	require.NoError(t, err)
	_, err = ValidateJWT(token)
	assert.NoError(t, err)
}

func TestService_RegisterLoginAuthenticate(t *testing.T) {
	ctx := context.Background()
	users := storage.NewMemoryUserRepo()
	svc := NewService(users)

	_, err := svc.Register(ctx, model.UserInput{Email: "bad", Name: "", Password: "1"}, false)
	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)

	user, err := svc.Register(ctx, model.UserInput{Email: "Alice@Example.com", Name: "alice", Password: "password1"}, false)
	require.NoError(t, err)
	assert.NotEqual(t, "password1", user.PasswordHash)

	_, err = svc.Register(ctx, model.UserInput{Email: "alice@example.com", Name: "alice2", Password: "password1"}, false)
	assert.ErrorIs(t, err, storage.ErrUserExists)

	_, err = svc.Login(ctx, "alice@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, "nobody@example.com", "password1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	res, err := svc.Login(ctx, "ALICE@example.com", "password1")
	require.NoError(t, err)
	assert.Equal(t, user.ID, res.User.ID)

	authed, err := svc.Authenticate(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, authed.ID)

	require.NoError(t, users.Delete(ctx, user.ID))
	_, err = svc.Authenticate(ctx, res.Token)
	assert.ErrorIs(t, err, ErrInvalidToken, "Токен удаленного пользователя недействителен")
}

func TestService_EnsureAdmin(t *testing.T) {
	ctx := context.Background()
	users := storage.NewMemoryUserRepo()
	svc := NewService(users)

	require.NoError(t, svc.EnsureAdmin(ctx, "root@example.com", "supersecret"))
	require.NoError(t, svc.EnsureAdmin(ctx, "root@example.com", "supersecret"))

	admin, err := users.FindByEmail(ctx, "root@example.com")
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin)

	list, err := users.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestService_Update(t *testing.T) {
	ctx := context.Background()
	svc := NewService(storage.NewMemoryUserRepo())

	user, err := svc.Register(ctx, model.UserInput{Email: "p@x.io", Name: "Pat", Password: "password1"}, false)
	require.NoError(t, err)

	updated, err := svc.Update(ctx, user.ID, model.UserInput{Name: "Patricia"}, true)
	require.NoError(t, err)
	assert.Equal(t, "Patricia", updated.Name)
	assert.Equal(t, "p@x.io", updated.Email, "PATCH не должен трогать незаданные поля")

	_, err = svc.Update(ctx, user.ID, model.UserInput{Name: "Pat"}, false)
	var verr *model.ValidationError
	assert.ErrorAs(t, err, &verr, "PUT требует все поля")

	_, err = svc.Update(ctx, user.ID, model.UserInput{Email: "NEW@x.io", Name: "Pat", Password: "password2"}, false)
	require.NoError(t, err)

	_, err = svc.Login(ctx, "new@x.io", "password2")
	assert.NoError(t, err, "Новый пароль и email должны работать")
	_, err = svc.Login(ctx, "new@x.io", "password1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Update(ctx, "missing", model.UserInput{Name: "X"}, true)
	assert.ErrorIs(t, err, storage.ErrUserNotFound)
}
