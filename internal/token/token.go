package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// Issuer and Audience tag every token this service signs; Verify
	// rejects tokens carrying anything else.
	Issuer   = "credvault"
	Audience = "credvault-admin"

	// TTL is the fixed token lifetime from issuance.
	TTL = 24 * time.Hour
)

// Roles carried in token claims. Admin satisfies any required role;
// user never satisfies an admin requirement.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Verification failure reasons, surfaced distinctly for diagnostics.
// The HTTP boundary collapses all of them to a generic denial.
var (
	ErrExpired     = errors.New("token expired")
	ErrNotYetValid = errors.New("token not yet valid")
	ErrMalformed   = errors.New("token malformed or invalid signature")
)

// Claims is the identity payload carried by a signed token.
type Claims struct {
	UserID string `json:"uid"`
	Role   string `json:"role"`
	Email  string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Service issues and verifies signed, time-bounded identity tokens.
type Service struct {
	secret []byte
	now    func() time.Time
}

// NewService returns a Service signing with the given secret.
func NewService(secret string) (*Service, error) {
	if secret == "" {
		return nil, errors.New("token: signing secret is required")
	}
	return &Service{secret: []byte(secret), now: time.Now}, nil
}

// Issue signs a token for the subject with a 24-hour expiry.
func (s *Service) Issue(userID, role, email string) (string, error) {
	now := s.now()
	claims := &Claims{
		UserID: userID,
		Role:   role,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Audience:  jwt.ClaimStrings{Audience},
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verify parses and validates a signed token, distinguishing expired,
// not-yet-valid and malformed/invalid-signature failures.
func (s *Service) Verify(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithAudience(Audience),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpired
		case errors.Is(err, jwt.ErrTokenNotValidYet):
			return nil, ErrNotYetValid
		default:
			return nil, ErrMalformed
		}
	}

	// Parsing already enforces expiry; re-check against the clock so
	// library drift or clock skew cannot slip an expired token through.
	if claims.ExpiresAt == nil || !s.now().Before(claims.ExpiresAt.Time) {
		return nil, ErrExpired
	}

	return claims, nil
}
