package service

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"mosaic/internal/config"
	"mosaic/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	TokenIssuer   = "mosaic-api"
	TokenAudience = "mosaic-client"
	TokenLifetime = 30 * 24 * time.Hour
)

// CredentialService hashes passwords and issues and validates session tokens.
// It holds no mutable state after construction.
type CredentialService struct {
	secret []byte
	cost   int
	now    func() time.Time
}

func NewCredentialService(cfg *config.Config) *CredentialService {
	return &CredentialService{
		secret: []byte(cfg.JWTSecret),
		cost:   clampCost(cfg.BcryptCost),
		now:    time.Now,
	}
}

func clampCost(cost int) int {
	switch {
	case cost == 0:
		return bcrypt.DefaultCost
	case cost < bcrypt.MinCost:
		return bcrypt.MinCost
	case cost > bcrypt.MaxCost:
		return bcrypt.MaxCost
	default:
		return cost
	}
}

func (s *CredentialService) HashPassword(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), s.cost)
	if err != nil {
		return "", models.NewInternalError(err)
	}
	return string(hash), nil
}

// VerifyPassword reports whether plaintext matches hash. A malformed hash
// never matches.
func (s *CredentialService) VerifyPassword(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

// IssueToken signs an HS256 token for userID that expires TokenLifetime after issue.
func (s *CredentialService) IssueToken(userID uint) (string, error) {
	if len(s.secret) == 0 {
		return "", models.NewInternalError(errors.New("JWT secret not configured"))
	}

	now := s.now()
	claims := jwt.MapClaims{
		"sub": strconv.FormatUint(uint64(userID), 10),
		"iss": TokenIssuer,
		"aud": TokenAudience,
		"exp": now.Add(TokenLifetime).Unix(),
		"iat": now.Unix(),
		"nbf": now.Unix(),
		"jti": uuid.NewString(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", models.NewInternalError(fmt.Errorf("sign token: %w", err))
	}
	return signed, nil
}

// ValidateToken returns the user id carried by token. Every failure yields
// models.ErrInvalidToken so callers cannot tell why a token was rejected.
func (s *CredentialService) ValidateToken(token string) (uint, error) {
	if token == "" || len(s.secret) == 0 {
		return 0, models.ErrInvalidToken
	}

	parsed, err := jwt.Parse(token, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(TokenIssuer),
		jwt.WithAudience(TokenAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		return 0, models.ErrInvalidToken
	}

	sub, err := parsed.Claims.GetSubject()
	if err != nil {
		return 0, models.ErrInvalidToken
	}
	id, err := strconv.ParseUint(sub, 10, strconv.IntSize)
	if err != nil || id == 0 {
		return 0, models.ErrInvalidToken
	}
	return uint(id), nil
}
