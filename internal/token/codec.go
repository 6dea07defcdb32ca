package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// Claims is the signed access-token payload. Groups are a snapshot taken at
// mint time; they do not change until the token is refreshed or reissued.
type Claims struct {
	Groups []string `json:"groups"`
	jwt.RegisteredClaims
}

// Codec signs and verifies access tokens with a process-wide symmetric key.
// The key is set once at startup and never rotated while the process runs.
type Codec struct {
	key       []byte
	accessTTL time.Duration
}

func NewCodec(secret string, accessTTL time.Duration) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("signing secret is required")
	}
	if accessTTL <= 0 {
		return nil, errors.New("access TTL must be positive")
	}
	return &Codec{key: []byte(secret), accessTTL: accessTTL}, nil
}

// AccessTTL reports the validity window tokens are minted with.
func (c *Codec) AccessTTL() time.Duration {
	return c.accessTTL
}

// Mint signs a fresh token for subject carrying the given group snapshot.
func (c *Codec) Mint(subject string, groups []string) (string, error) {
	now := time.Now().UTC()
	if groups == nil {
		groups = []string{}
	}

	claims := Claims{
		Groups: groups,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.accessTTL)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

// Verify checks structure and signature before anything else, then expiry.
// Signature comparison is constant-time (HMAC) inside golang-jwt.
func (c *Codec) Verify(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return c.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
