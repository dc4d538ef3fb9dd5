package web

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/livepaste/livepaste/internal/common"
)

// Room tokens are a convenience layered over the password gate: a
// successful verify-password returns a short-lived HS256 token so clients
// do not have to re-send the digest on every request. The digest header
// remains accepted everywhere; the token changes nothing about the core.

type roomClaims struct {
	RoomID string `json:"room"`
	jwt.RegisteredClaims
}

// mintRoomToken signs a token granting access to one room until expiry.
func mintRoomToken(secret []byte, roomID string, validity time.Duration) (string, error) {
	claims := &roomClaims{
		RoomID: roomID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validity)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// parseRoomToken verifies the token and returns the room it grants.
func parseRoomToken(secret []byte, tokenString string) (string, error) {
	claims := &roomClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || !token.Valid || claims.RoomID == "" {
		return "", common.ErrInvalidToken
	}
	return claims.RoomID, nil
}
