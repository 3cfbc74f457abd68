package app

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"go.uber.org/zap"

	"prepmaster-service/internal/auth"
	"prepmaster-service/internal/domain"
)

const minPasswordLength = 6

// RegisterInput is the body of a sign-up request.
type RegisterInput struct {
	Name     string      `json:"name"`
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Role     domain.Role `json:"role"`
	Class    int         `json:"class"`
}

// ProfileInput is the body of a profile update. Empty fields are left as is.
type ProfileInput struct {
	Name     string `json:"name"`
	Password string `json:"password"`
	Class    int    `json:"class"`
}

// Session is what a successful register or login returns.
type Session struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (in RegisterInput) validate() error {
	verr := &domain.ValidationError{}
	if strings.TrimSpace(in.Name) == "" {
		verr.Add("name", "Name is required")
	}
	email := strings.TrimSpace(in.Email)
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		verr.Add("email", "Please enter a valid email")
	}
	if len(in.Password) < minPasswordLength {
		verr.Add("password", "Password must be at least 6 characters long")
	}
	if in.Role != domain.RoleAdmin && in.Role != domain.RoleStudent {
		verr.Add("role", "Invalid role")
	}
	if in.Class != 0 && !domain.IsValidClass(in.Class) {
		verr.Add("class", "Invalid class")
	}
	return verr.OrNil()
}

// Register creates an account and signs the new user in.
func (s *Service) Register(ctx context.Context, in RegisterInput) (Session, error) {
	if err := in.validate(); err != nil {
		return Session{}, err
	}
	email := normalizeEmail(in.Email)
	if _, err := s.users.GetUserByEmail(ctx, email); err == nil {
		return Session{}, domain.ErrEmailTaken
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return Session{}, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return Session{}, err
	}
	user := domain.User{
		ID:           s.newID(),
		Name:         strings.TrimSpace(in.Name),
		Email:        email,
		PasswordHash: hash,
		Role:         in.Role,
		Class:        in.Class,
		CreatedAt:    s.now(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return Session{}, err
	}
	s.log.Info("user registered", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	return s.session(user)
}

// Login checks credentials and issues a token.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	user, err := s.users.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return Session{}, domain.ErrInvalidCredentials
		}
		return Session{}, err
	}
	if err := auth.CheckPassword(user.PasswordHash, password); err != nil {
		return Session{}, err
	}
	return s.session(user)
}

func (s *Service) session(user domain.User) (Session, error) {
	token, err := s.tokens.Issue(user)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, User: user}, nil
}

// Profile returns the caller's account.
func (s *Service) Profile(ctx context.Context, caller Caller) (domain.User, error) {
	return s.users.GetUser(ctx, caller.UserID)
}

// UpdateProfile changes the caller's name, class or password.
func (s *Service) UpdateProfile(ctx context.Context, caller Caller, in ProfileInput) (domain.User, error) {
	verr := &domain.ValidationError{}
	if in.Password != "" && len(in.Password) < minPasswordLength {
		verr.Add("password", "Password must be at least 6 characters long")
	}
	if in.Class != 0 && !domain.IsValidClass(in.Class) {
		verr.Add("class", "Invalid class")
	}
	if err := verr.OrNil(); err != nil {
		return domain.User{}, err
	}

	user, err := s.users.GetUser(ctx, caller.UserID)
	if err != nil {
		return domain.User{}, err
	}
	if name := strings.TrimSpace(in.Name); name != "" {
		user.Name = name
	}
	if in.Class != 0 {
		user.Class = in.Class
	}
	if in.Password != "" {
		hash, err := auth.HashPassword(in.Password)
		if err != nil {
			return domain.User{}, err
		}
		user.PasswordHash = hash
	}
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}
