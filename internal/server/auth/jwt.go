// Package auth issues and checks the daemon's access tokens and hashes
// account passwords.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dmitrijs2005/filetrade/internal/common"
)

// Claims carries the account the token was issued to. Account is the
// party address used on the ledger.
type Claims struct {
	jwt.RegisteredClaims
	AccountID string `json:"aid"`
	Account   string `json:"acc"`
}

// GenerateToken signs an HS256 token for the account.
func GenerateToken(accountID, account string, secretKey []byte, validityDuration time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
		},
		AccountID: accountID,
		Account:   account,
	})

	return token.SignedString(secretKey)
}

// ParseToken validates a token and returns its claims. Expired tokens
// yield common.ErrTokenExpired, anything else unusable common.ErrInvalidToken.
func ParseToken(tokenString string, secretKey []byte) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}

	if !token.Valid || claims.Account == "" {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}
