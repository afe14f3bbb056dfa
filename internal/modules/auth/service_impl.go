package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/georgemunganga/markethub-backend/internal/apperror"
	"github.com/georgemunganga/markethub-backend/internal/modules/user"
	"github.com/georgemunganga/markethub-backend/internal/platform/clock"
)

// ErrInvalidCredentials is returned for an unknown email, a wrong password, or a deactivated account.
var ErrInvalidCredentials = errors.New("invalid credentials")

var ErrTokenExpired = errors.New("token expired")

type service struct {
	userRepo user.Repository
	jwtKey   []byte
	ttl      time.Duration
	clock    clock.Clock
}

// NewService creates a new auth service signing HS256 tokens with secret.
func NewService(userRepo user.Repository, secret string, ttl time.Duration, clk clock.Clock) Service {
	return &service{userRepo: userRepo, jwtKey: []byte(secret), ttl: ttl, clock: clk}
}

func (s *service) Login(ctx context.Context, email, password string) (string, error) {
	u, err := s.userRepo.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, apperror.ErrNotFound) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", err
	}
	if !u.IsActive {
		return "", ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	now := s.clock.Now()
	claims := &jwt.StandardClaims{
		Subject:   u.ID.String(),
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(s.ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.jwtKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

func (s *service) Authenticate(_ context.Context, tokenString string) (uuid.UUID, error) {
	claims := &jwt.StandardClaims{}
	// Expiry is checked against the service clock, not the parser's wall time.
	parser := &jwt.Parser{SkipClaimsValidation: true}
	_, err := parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.jwtKey, nil
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("parse token: %w", err)
	}
	if !claims.VerifyExpiresAt(s.clock.Now().Unix(), true) {
		return uuid.Nil, ErrTokenExpired
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("token subject: %w", err)
	}
	return id, nil
}
