package security

import (
	"errors"
	"strconv"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// MinSecretLength is the shortest HS256 signing key accepted at startup.
const MinSecretLength = 32

const (
	claimUserID = "user_id"
	claimRole   = "role"
)

// TokenAuth issues and verifies bearer tokens with a process-wide signing key.
type TokenAuth struct {
	auth *jwtauth.JWTAuth
	ttl  time.Duration
	now  func() time.Time
}

func NewTokenAuth(secret []byte, ttl time.Duration) (*TokenAuth, error) {
	if len(secret) < MinSecretLength {
		return nil, errors.New("jwt secret must be at least 32 bytes")
	}
	if ttl <= 0 {
		return nil, errors.New("jwt expiry must be positive")
	}
	return &TokenAuth{
		auth: jwtauth.New("HS256", secret, nil),
		ttl:  ttl,
		now:  time.Now,
	}, nil
}

// JWTAuth exposes the underlying verifier for jwtauth.Verifier.
func (t *TokenAuth) JWTAuth() *jwtauth.JWTAuth {
	return t.auth
}

// GenerateToken signs a token for the user. The role claim is for clients
// deciding what to show; authorization always reads the stored role.
func (t *TokenAuth) GenerateToken(userID int64, role string) (string, error) {
	now := t.now()
	claims := jwt.MapClaims{
		claimUserID: strconv.FormatInt(userID, 10),
		claimRole:   role,
		"jti":       uuid.NewString(),
	}
	jwtauth.SetIssuedAt(claims, now)
	jwtauth.SetExpiry(claims, now.Add(t.ttl))
	_, tokenString, err := t.auth.Encode(claims)
	return tokenString, err
}

// GetUserIDFromClaims extracts the numeric user id stored by GenerateToken.
func GetUserIDFromClaims(claims jwt.MapClaims) (int64, error) {
	raw, ok := claims[claimUserID].(string)
	if !ok {
		return 0, errors.New("user_id claim is missing or not a string")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("user_id claim is not a positive integer")
	}
	return id, nil
}
