package service

import (
	"context"
	"fmt"
	"log"

	"github.com/UkralStul/social-articles-service/internal/auth"
	"github.com/UkralStul/social-articles-service/internal/domain"
)

// RegisterInput - поля регистрации.
type RegisterInput struct {
	Username string  `json:"username" validate:"required,max=64,username"`
	Email    string  `json:"email" validate:"required,max=128,email"`
	Password string  `json:"password" validate:"required"`
	Fullname string  `json:"fullname" validate:"max=64"`
	Nickname string  `json:"nickname" validate:"required,max=64"`
	Birthday *string `json:"birthday,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// ProfileInput - изменяемые поля профиля. Пустой Password оставляет пароль прежним.
type ProfileInput struct {
	Email    string  `json:"email" validate:"required,max=128,email"`
	Fullname string  `json:"fullname" validate:"max=64"`
	Nickname string  `json:"nickname" validate:"required,max=64"`
	Birthday *string `json:"birthday,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Password string  `json:"password,omitempty"`
}

// Register создает активного пользователя без прав персонала.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	in.Username = domain.NormalizeUsername(in.Username)
	in.Nickname = domain.NormalizeUsername(in.Nickname)
	in.Email = domain.NormalizeEmail(in.Email)
	if err := s.validate.check(in, nil); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user, err := s.store.CreateUser(ctx, &domain.User{
		Username:     in.Username,
		Email:        in.Email,
		Fullname:     in.Fullname,
		Nickname:     in.Nickname,
		Birthday:     parseDate(in.Birthday),
		IsActive:     true,
		IsStaff:      false,
		PasswordHash: hash,
	})
	if err != nil {
		return nil, translate(err, "user")
	}
	return user, nil
}

// Profile возвращает запись текущего пользователя.
func (s *Service) Profile(ctx context.Context, p *domain.Principal) (*domain.User, error) {
	return s.actor(ctx, p)
}

// UpdateProfile меняет профиль текущего пользователя.
func (s *Service) UpdateProfile(ctx context.Context, p *domain.Principal, in ProfileInput) (*domain.User, error) {
	user, err := s.Profile(ctx, p)
	if err != nil {
		return nil, err
	}
	in.Nickname = domain.NormalizeUsername(in.Nickname)
	in.Email = domain.NormalizeEmail(in.Email)
	if err := s.validate.check(in, nil); err != nil {
		return nil, err
	}

	user.Email = in.Email
	user.Fullname = in.Fullname
	user.Nickname = in.Nickname
	user.Birthday = parseDate(in.Birthday)
	if in.Password != "" {
		hash, err := auth.HashPassword(in.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = hash
	}

	updated, err := s.store.UpdateUser(ctx, user)
	if err != nil {
		return nil, translate(err, "user")
	}
	return updated, nil
}

// Deregister повторно проверяет пароль и удаляет пользователя вместе со статьями,
// комментариями и подписками. Refresh токен должен принадлежать самому пользователю
// и отзывается только после успешного удаления.
func (s *Service) Deregister(ctx context.Context, p *domain.Principal, password, refreshToken string) error {
	user, err := s.actor(ctx, p)
	if err != nil {
		return err
	}
	if refreshToken == "" {
		return domain.Auth("refresh token is required")
	}
	owner, err := s.gate.RefreshOwner(ctx, refreshToken)
	if err != nil {
		return err
	}
	if owner.UserID != user.ID {
		return domain.Auth("refresh token belongs to another user")
	}
	if !auth.VerifyPassword(password, user.PasswordHash) {
		return domain.Auth("password is incorrect")
	}
	if err := s.store.DeleteUser(ctx, user.ID); err != nil {
		return translate(err, "user")
	}
	// Токены удаленного пользователя и так не проходят проверку, отзыв лишь чистит список
	if err := s.gate.Revoke(ctx, refreshToken); err != nil {
		log.Printf("deregister: revoke refresh token of user %d: %v", user.ID, err)
	}
	return nil
}

// Login выдает пару токенов по логину и паролю.
func (s *Service) Login(ctx context.Context, username, password string) (auth.TokenPair, error) {
	p, err := s.gate.Authenticate(ctx, username, password)
	if err != nil {
		return auth.TokenPair{}, err
	}
	return s.gate.IssueTokenPair(ctx, p)
}

func (s *Service) RefreshToken(ctx context.Context, refresh string) (string, error) {
	if refresh == "" {
		return "", domain.NewValidationError("refresh", "this field is required")
	}
	return s.gate.Refresh(ctx, refresh)
}

// Logout отзывает refresh токен.
func (s *Service) Logout(ctx context.Context, refresh string) error {
	if refresh == "" {
		return domain.NewValidationError("refresh", "this field is required")
	}
	return s.gate.Revoke(ctx, refresh)
}
