package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

var ErrInvalidToken = errors.New("invalid token")

// IssueTableToken signs an HS256 token that only controls tableID.
func IssueTableToken(secret, tableID string, ttl time.Duration) (string, error) {
	exp := time.Now().Add(ttl)
	claims := jwt.MapClaims{"table_id": tableID, "exp": jwt.NewNumericDate(exp).Unix()}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign table token: %w", err)
	}
	return signed, nil
}

// ParseTableToken returns the table a token was issued for.
func ParseTableToken(secret, token string) (string, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || !parsed.Valid {
		return "", ErrInvalidToken
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}
	tableID, ok := claims["table_id"].(string)
	if !ok || tableID == "" {
		return "", ErrInvalidToken
	}
	return tableID, nil
}

// Authorize checks that token controls tableID.
func Authorize(secret, token, tableID string) error {
	id, err := ParseTableToken(secret, token)
	if err != nil {
		return err
	}
	if id != tableID {
		return ErrInvalidToken
	}
	return nil
}
