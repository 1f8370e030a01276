package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the token payload: the registered subject carries the account id,
// plus the account email.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// Identity is the result of successful token verification, attached to a
// request for its duration and discarded afterwards.
type Identity struct {
	AccountID string
	Email     string
}

func (s *Service) signToken(accountID, email string, now time.Time) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
		Email: email,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *Service) parseToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
