package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Validation failure kinds. The HTTP boundary collapses all three into a
// single 401; the distinction exists for logging and tests.
var (
	ErrInvalidSignature = errors.New("token signature invalid")
	ErrExpired          = errors.New("token expired")
	ErrMalformed        = errors.New("token malformed")
)

type Claims struct {
	jwt.RegisteredClaims
}

// Manager signs and validates access tokens. It is immutable after
// construction and safe for concurrent use.
type Manager struct {
	secret    []byte
	method    jwt.SigningMethod
	accessTTL time.Duration
}

func NewManager(secret, algorithm string, accessTTL time.Duration) (*Manager, error) {
	var method jwt.SigningMethod

	switch algorithm {
	case "", "HS256":
		method = jwt.SigningMethodHS256
	case "HS384":
		method = jwt.SigningMethodHS384
	case "HS512":
		method = jwt.SigningMethodHS512
	default:
		return nil, fmt.Errorf("unsupported signing algorithm %q", algorithm)
	}

	return &Manager{
		secret:    []byte(secret),
		method:    method,
		accessTTL: accessTTL,
	}, nil
}

// GenerateAccessToken issues a token with the configured TTL.
func (m *Manager) GenerateAccessToken(userID int64) (string, error) {
	return m.Issue(userID, m.accessTTL)
}

// Issue signs a claim set with subject=userID and expiry now+ttl.
func (m *Manager) Issue(userID int64, ttl time.Duration) (string, error) {
	now := time.Now().UTC()

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(m.method, claims)

	return token.SignedString(m.secret)
}

// Validate verifies signature and expiry and returns the subject user id.
func (m *Manager) Validate(tokenStr string) (int64, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		// Enforce the HMAC family; anything else counts as a bad signature.
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidSignature
		}
		return m.secret, nil
	})

	if err != nil {
		return 0, classifyParseError(err)
	}

	claims, ok := token.Claims.(*Claims)

	if !ok || !token.Valid {
		return 0, ErrMalformed
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)

	if err != nil {
		return 0, ErrMalformed
	}

	return userID, nil
}

func classifyParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, ErrInvalidSignature):
		return ErrInvalidSignature
	default:
		return ErrMalformed
	}
}
