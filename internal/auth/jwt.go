package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/senyabanana/tender-workflow/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims - утверждения токена, выданного сервисом аутентификации.
type Claims struct {
	Roles   []string `json:"roles,omitempty"`
	Tenants []string `json:"tenants,omitempty"`
	jwt.RegisteredClaims
}

// Caller превращает утверждения токена в пользователя.
func (c *Claims) Caller() models.Caller {
	return models.Caller{ID: c.Subject, Roles: c.Roles, Tenants: c.Tenants}
}

// GenerateToken выпускает токен для пользователя. Используется в тестах и локальной разработке.
func GenerateToken(caller models.Caller, secretKey string, expiry time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		Roles:   caller.Roles,
		Tenants: caller.Tenants,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   caller.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secretKey))
}

// ValidateToken проверяет подпись и срок действия токена.
func ValidateToken(tokenString, secretKey string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(secretKey), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrSignatureInvalid
	}
	if _, err := uuid.Parse(claims.Subject); err != nil {
		return nil, errors.New("token subject is not a valid user id")
	}
	return claims, nil
}

// SystemCaller - пользователь для служебных команд, запускаемых вне HTTP.
func SystemCaller() models.Caller {
	return models.Caller{ID: "system", Roles: []string{models.RoleAdmin}}
}

// ErrMissingToken - в запросе нет токена.
var ErrMissingToken = fmt.Errorf("missing bearer token")
