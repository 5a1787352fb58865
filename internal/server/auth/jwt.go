// Package auth mints and verifies the HS256 bearer tokens that identify
// actors to the logbook server.
package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/medlogbook/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims carries the standard registered claims plus the actor id.
type Claims struct {
	jwt.RegisteredClaims
	ActorID string `json:"actor_id"`
}

func GenerateToken(actorID string, secretKey []byte, validityDuration time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
		},
		ActorID: actorID,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// GetActorIDFromToken verifies tokenString and returns the actor id it
// carries. Expired tokens yield common.ErrTokenExpired; every other failure
// yields common.ErrInvalidToken.
func GetActorIDFromToken(tokenString string, secretKey []byte) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", common.ErrTokenExpired
		}
		return "", common.ErrInvalidToken
	}

	if !token.Valid || claims.ActorID == "" {
		return "", common.ErrInvalidToken
	}

	return claims.ActorID, nil
}
