package identity

import (
	"crypto/rand"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "hero-arena"

var ErrInvalidToken = errors.New("identity: invalid session token")

// Session is the identity bound to a token.
type Session struct {
	ID       string
	Address  string
	IssuedAt time.Time
}

// SessionTokens issues and verifies signed reconnection tokens.
type SessionTokens struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// NewSessionTokens creates a token issuer. An empty secret generates a random
// key, so tokens do not survive a restart.
func NewSessionTokens(secret string, ttl time.Duration) *SessionTokens {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		_, _ = rand.Read(key)
	}
	return &SessionTokens{key: key, ttl: ttl, now: time.Now}
}

// Issue signs a token binding sessionID to address.
func (s *SessionTokens) Issue(sessionID, address string) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub": address,
		"sid": sessionID,
		"iss": tokenIssuer,
		"iat": now.Unix(),
		"exp": now.Add(s.ttl).Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(s.key)
}

// Validate verifies a token and returns its session.
func (s *SessionTokens) Validate(token string) (Session, error) {
	if token == "" {
		return Session{}, ErrInvalidToken
	}
	t, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		return s.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !t.Valid {
		return Session{}, ErrInvalidToken
	}

	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return Session{}, ErrInvalidToken
	}
	address, _ := claims["sub"].(string)
	sid, _ := claims["sid"].(string)
	if address == "" || sid == "" {
		return Session{}, ErrInvalidToken
	}

	var issued time.Time
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		issued = iat.Time
	}
	return Session{ID: sid, Address: address, IssuedAt: issued}, nil
}
