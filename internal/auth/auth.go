package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"prepmaster-service/internal/domain"
)

const issuer = "prepmaster"

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID string
	Role   domain.Role
	Class  int
}

func (p Principal) IsAdmin() bool { return p.Role == domain.RoleAdmin }

// Claims is the JWT payload.
type Claims struct {
	Role  domain.Role `json:"role"`
	Class int         `json:"class,omitempty"`
	jwt.RegisteredClaims
}

// Service issues and verifies HS256 tokens.
type Service struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewService(secret string, ttl time.Duration) *Service {
	return &Service{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// NewServiceWithClock is test-only for deterministic expiry.
func NewServiceWithClock(secret string, ttl time.Duration, now func() time.Time) *Service {
	return &Service{secret: []byte(secret), ttl: ttl, now: now}
}

func (s *Service) Issue(user domain.User) (string, error) {
	now := s.now()
	claims := &Claims{
		Role:  user.Role,
		Class: user.Class,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *Service) Parse(token string) (Principal, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return Principal{}, domain.ErrUnauthorized
	}
	return Principal{UserID: claims.Subject, Role: claims.Role, Class: claims.Class}, nil
}

// HashPassword hashes a plaintext password with bcrypt.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports ErrInvalidCredentials on mismatch.
func CheckPassword(hash, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return domain.ErrInvalidCredentials
	}
	return err
}

type ctxKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(Principal)
	return p, ok
}
