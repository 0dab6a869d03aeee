package service

import (
	"context"
	"strings"

	"mosaic/internal/models"
	"mosaic/internal/repository"
	"mosaic/internal/validation"
)

// AuthResult is returned by register and login.
type AuthResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
}

type LoginInput struct {
	// Identifier is a username, or an email as fallback.
	Identifier string
	Password   string
}

type AuthService struct {
	users repository.UserRepository
	creds *CredentialService
}

func NewAuthService(users repository.UserRepository, creds *CredentialService) *AuthService {
	return &AuthService{users: users, creds: creds}
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	username := strings.TrimSpace(in.Username)
	email := validation.NormalizeEmail(in.Email)

	if username == "" || email == "" || in.Password == "" {
		return nil, models.NewValidationError("Username, email, and password are required")
	}
	if err := validation.ValidateUsername(username); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateEmail(email); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	existing, err := s.users.FindByUsernameOrEmail(ctx, username, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewDuplicateUserError()
	}

	hash, err := s.creds.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{Username: username, Email: email, Password: hash}
	// A concurrent register can still lose the race on the unique index;
	// the repository reports that as a duplicate too.
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return s.issue(user)
}

func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	identifier := strings.TrimSpace(in.Identifier)
	if identifier == "" || in.Password == "" {
		return nil, models.NewValidationError("Username and password are required")
	}

	user, err := s.users.GetByUsername(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if user == nil && strings.Contains(identifier, "@") {
		if user, err = s.users.GetByEmail(ctx, validation.NormalizeEmail(identifier)); err != nil {
			return nil, err
		}
	}
	if user == nil || !s.creds.VerifyPassword(in.Password, user.Password) {
		return nil, models.NewUnauthorizedError("Invalid credentials")
	}
	return s.issue(user)
}

// Resolve maps a session token to its user. A valid token for a user that no
// longer exists is rejected like any other bad token.
func (s *AuthService) Resolve(ctx context.Context, token string) (*models.User, error) {
	userID, err := s.creds.ValidateToken(token)
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if models.ErrorCode(err) == models.CodeNotFound {
			return nil, models.ErrInvalidToken
		}
		return nil, err
	}
	return user, nil
}

func (s *AuthService) issue(user *models.User) (*AuthResult, error) {
	token, err := s.creds.IssueToken(user.ID)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, User: user}, nil
}
