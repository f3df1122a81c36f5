package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrUnauthorized = errors.New("invalid or missing token")
	ErrExpired      = errors.New("token expired")
)

// Identity is the authenticated actor behind a request or connection.
type Identity struct {
	UserID uint
	Role   string
}

type Claims struct {
	UserID uint   `json:"id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Gate verifies bearer credentials. It is shared by the HTTP middleware and
// the websocket handshake.
type Gate struct {
	secret []byte
}

func NewGate(secret string) *Gate {
	return &Gate{secret: []byte(secret)}
}

// Verify accepts a raw token or a "Bearer <token>" value.
func (g *Gate) Verify(credential string) (*Identity, error) {
	tokenString := strings.TrimSpace(credential)
	if strings.HasPrefix(tokenString, "Bearer ") {
		tokenString = strings.TrimSpace(strings.TrimPrefix(tokenString, "Bearer "))
	}
	if tokenString == "" {
		return nil, ErrUnauthorized
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method == nil || token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return g.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, ErrUnauthorized
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == 0 {
		return nil, ErrUnauthorized
	}

	role := claims.Role
	if role == "" {
		role = "client"
	}
	return &Identity{UserID: claims.UserID, Role: role}, nil
}

// Issue signs a token for userID. Production tokens come from the account
// service; this is used by tooling and tests sharing the same secret.
func (g *Gate) Issue(userID uint, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(g.secret)
}
