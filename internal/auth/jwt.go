package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/annel0/army-battle/internal/model"
	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "army-battle"

var (
	ErrInvalidToken = errors.New("invalid or expired token")

	secretMu sync.RWMutex
	// JWT secret key; in production it is set from configuration via SetJWTSecret
	jwtSecret []byte
	tokenTTL  = 24 * time.Hour
)

func init() {
	// Generate a secure random secret key
	jwtSecret = make([]byte, 32)
	if _, err := rand.Read(jwtSecret); err != nil {
		// Fallback to a hardcoded key only for development
		jwtSecret = []byte("development-secret-key-change-in-production")
	}
}

// Claims represents JWT claims
type Claims struct {
	UserID  string `json:"user_id"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"is_admin"`
	jwt.RegisteredClaims
}

// GenerateJWT creates a signed token for the given user and returns it with its expiry.
func GenerateJWT(user model.UserDocument) (string, time.Time, error) {
	secretMu.RLock()
	secret, ttl := jwtSecret, tokenTTL
	secretMu.RUnlock()

	now := time.Now()
	expires := now.Add(ttl)
	claims := &Claims{
		UserID:  user.ID,
		Email:   user.Email,
		IsAdmin: user.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
			Subject:   user.ID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expires, nil
}

// ValidateJWT checks token validity and returns its claims.
func ValidateJWT(tokenString string) (*Claims, error) {
	secretMu.RLock()
	secret := jwtSecret
	secretMu.RUnlock()

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		// Verify signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	}, jwt.WithIssuer(tokenIssuer))

	if err != nil || !token.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// GenerateSecureSecret generates a new secure secret key
func GenerateSecureSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return base64.StdEncoding.EncodeToString(b)
}

// SetJWTSecret sets the signing key. A base64 value is decoded first;
// otherwise the raw string is used. Either way the key must be at least 32 bytes.
func SetJWTSecret(secret string) error {
	key := []byte(secret)
	if decoded, err := base64.StdEncoding.DecodeString(secret); err == nil {
		key = decoded
	}
	if len(key) < 32 {
		return errors.New("secret key must be at least 32 bytes")
	}

	secretMu.Lock()
	jwtSecret = key
	secretMu.Unlock()
	return nil
}

// SetTokenTTL changes lifetime of newly issued tokens.
func SetTokenTTL(ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	secretMu.Lock()
	tokenTTL = ttl
	secretMu.Unlock()
}
