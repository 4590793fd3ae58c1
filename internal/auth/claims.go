package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// UserClaims identifies the acting user of a request.
type UserClaims struct {
	UserID int64 `json:"uid"`
	jwt.RegisteredClaims
}

func (c *UserClaims) Source() string { return "JWT" }

// TokenService issues and checks HMAC signed bearer tokens.
type TokenService struct {
	secretKey []byte
	issuer    string
}

func NewTokenService(secretKey []byte) *TokenService {
	return &TokenService{secretKey: secretKey, issuer: "plp"}
}

// Issue signs a token for userID that expires after ttl.
func (s *TokenService) Issue(userID int64, ttl time.Duration) (string, error) {
	if len(s.secretKey) == 0 {
		return "", errors.New("token secret is not configured")
	}
	now := time.Now()
	claims := UserClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Issuer:    s.issuer,
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Parse validates signature, expiry and issuer and returns the claims.
func (s *TokenService) Parse(tokenString string) (*UserClaims, error) {
	if len(s.secretKey) == 0 {
		return nil, errors.New("token secret is not configured")
	}
	claims := &UserClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secretKey, nil
	}, jwt.WithIssuer(s.issuer), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid || claims.UserID == 0 {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
