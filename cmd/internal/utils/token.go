package utils

import (
	"errors"
	"fmt"
	"slotbook/cmd/internal/domain/entity"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const tokenDataKey = "token_data"

const (
	RoleUser   = "user"
	RoleAdmin  = "admin"
	RoleSystem = "system"
)

type TokenData struct {
	Sub      string
	TenantID string
	Role     string
}

// Actor is the ledger identity of the token holder.
func (t *TokenData) Actor() entity.Actor {
	switch t.Role {
	case RoleAdmin:
		return entity.Actor{Type: entity.ActorAdmin, ID: t.Sub}
	case RoleSystem:
		return entity.Actor{Type: entity.ActorSystem, ID: t.Sub}
	}
	return entity.Actor{Type: entity.ActorUser, ID: t.Sub}
}

type Claims struct {
	TenantID string `json:"tenant_id"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

func IssueToken(secret string, data TokenData, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		TenantID: data.TenantID,
		Role:     data.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   data.Sub,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func ParseToken(secret, tokenStr string) (*TokenData, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	return &TokenData{Sub: claims.Subject, TenantID: claims.TenantID, Role: claims.Role}, nil
}

func SetTokenDataCtx(c echo.Context, data *TokenData) {
	c.Set(tokenDataKey, data)
}

func ParseTokenDataCtx(c echo.Context) (*TokenData, error) {
	data, ok := c.Get(tokenDataKey).(*TokenData)
	if !ok || data == nil {
		return nil, errors.New("no token data in context")
	}
	return data, nil
}
