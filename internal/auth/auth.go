package auth

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// DefaultTokenTTL is the validity window of issued tokens.
	DefaultTokenTTL = 24 * time.Hour

	defaultLeeway = 5 * time.Second
)

// Claims is the wire form of a token. Role, tier and permissions are kept as
// raw strings so absent and unrecognized values can be told apart on verify.
type Claims struct {
	UserID      string   `json:"id"`
	Email       string   `json:"email"`
	Role        string   `json:"role,omitempty"`
	Tier        string   `json:"tier,omitempty"`
	Permissions []string `json:"permissions"`
	jwt.RegisteredClaims
}

// Token is a signed token and its validity window.
type Token struct {
	Value     string    `json:"token"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Codec issues and verifies HS256 tokens with a secret fixed at construction.
type Codec struct {
	secret []byte
	ttl    time.Duration
	leeway time.Duration
	now    func() time.Time
	logger *slog.Logger
}

// CodecOption configures Codec behavior.
type CodecOption func(*Codec) error

// WithTTL overrides the token validity window.
func WithTTL(ttl time.Duration) CodecOption {
	return func(c *Codec) error {
		if ttl <= 0 {
			return fmt.Errorf("%w: ttl must be greater than zero", ErrInvalidInput)
		}
		c.ttl = ttl
		return nil
	}
}

// WithClock replaces the time source used for issuing and validating.
func WithClock(now func() time.Time) CodecOption {
	return func(c *Codec) error {
		if now == nil {
			return fmt.Errorf("%w: clock is required", ErrInvalidInput)
		}
		c.now = now
		return nil
	}
}

// WithLeeway sets the clock skew tolerated on exp and iat.
func WithLeeway(d time.Duration) CodecOption {
	return func(c *Codec) error {
		if d < 0 {
			return fmt.Errorf("%w: leeway must not be negative", ErrInvalidInput)
		}
		c.leeway = d
		return nil
	}
}

// WithLogger sets the logger that records why a token was downgraded.
func WithLogger(logger *slog.Logger) CodecOption {
	return func(c *Codec) error {
		if logger != nil {
			c.logger = logger
		}
		return nil
	}
}

// NewCodec builds a Codec. The secret is copied and never changes afterwards.
func NewCodec(secret []byte, opts ...CodecOption) (*Codec, error) {
	if len(strings.TrimSpace(string(secret))) == 0 {
		return nil, ErrMissingSecret
	}
	c := &Codec{
		secret: append([]byte(nil), secret...),
		ttl:    DefaultTokenTTL,
		leeway: defaultLeeway,
		now:    time.Now,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// TTL returns the validity window applied to issued tokens.
func (c *Codec) TTL() time.Duration {
	return c.ttl
}

// Issue signs a token for basis. The embedded permission set is the role's
// default grants united with custom, which must be registered permissions.
func (c *Codec) Issue(basis Basis, custom ...Permission) (Token, error) {
	basis, err := basis.normalize()
	if err != nil {
		return Token{}, err
	}
	extra := NewPermissionSet(custom...)
	for p := range extra {
		if !IsRegistered(p) {
			return Token{}, fmt.Errorf("%w: %s", ErrUnknownPermission, p)
		}
	}
	perms := DefaultGrants(basis.Role).Union(extra)

	now := c.now().UTC()
	claims := Claims{
		UserID:      basis.ID,
		Email:       basis.Email,
		Role:        basis.Role.String(),
		Tier:        basis.Tier.String(),
		Permissions: perms.Strings(),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return Token{}, fmt.Errorf("sign token: %w", err)
	}
	return Token{
		Value:     signed,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Parse strictly verifies token and returns its principal. Any failure wraps
// ErrInvalidToken. Request handling should use Verify instead.
func (c *Codec) Parse(token string) (Principal, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Principal{}, fmt.Errorf("%w: empty token", ErrInvalidToken)
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(*jwt.Token) (any, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithLeeway(c.leeway),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	)
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Principal{}, ErrInvalidToken
	}
	if strings.TrimSpace(claims.UserID) == "" {
		return Principal{}, fmt.Errorf("%w: id claim missing", ErrInvalidToken)
	}
	return principalFromClaims(claims), nil
}

// Verify never fails: a missing, malformed, expired or forged token yields the
// public context. Rejection is left to the gates.
func (c *Codec) Verify(token string) AuthContext {
	if strings.TrimSpace(token) == "" {
		return Public()
	}
	p, err := c.Parse(token)
	if err != nil {
		c.logger.Debug("bearer token downgraded to public", slog.String("reason", reason(err)))
		return Public()
	}
	return Authenticated(p)
}

func principalFromClaims(claims *Claims) Principal {
	role := RoleUser
	if strings.TrimSpace(claims.Role) != "" {
		role, _ = ParseRole(claims.Role)
	}
	tier := TierExplorer
	if strings.TrimSpace(claims.Tier) != "" {
		tier, _ = ParseTier(claims.Tier)
	}
	var perms PermissionSet
	if claims.Permissions == nil {
		perms = DefaultGrants(role)
	} else {
		raw := make([]Permission, len(claims.Permissions))
		for i, p := range claims.Permissions {
			raw[i] = Permission(p)
		}
		perms = NewPermissionSet(raw...)
	}
	return Principal{
		ID:          claims.UserID,
		Email:       claims.Email,
		Role:        role,
		Tier:        tier,
		Permissions: perms,
	}
}

func reason(err error) string {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "expired"
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return "bad_signature"
	case errors.Is(err, jwt.ErrTokenMalformed):
		return "malformed"
	case errors.Is(err, jwt.ErrTokenUsedBeforeIssued):
		return "issued_in_future"
	default:
		return err.Error()
	}
}
