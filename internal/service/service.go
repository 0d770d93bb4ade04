// Package service реализует операции над пользователями, подписками, статьями,
// комментариями и лайками вместе с правилами доступа к ним.
// Каждая операция явно получает принципала; nil означает анонимный запрос.
package service

import (
	"context"
	"errors"

	"github.com/UkralStul/social-articles-service/internal/auth"
	"github.com/UkralStul/social-articles-service/internal/domain"
	"github.com/UkralStul/social-articles-service/internal/feed"
	"github.com/UkralStul/social-articles-service/internal/storage"
)

// CredentialGate - внешний поставщик аутентификации и токенов.
type CredentialGate interface {
	Authenticate(ctx context.Context, username, password string) (domain.Principal, error)
	IssueTokenPair(ctx context.Context, p domain.Principal) (auth.TokenPair, error)
	Refresh(ctx context.Context, refresh string) (string, error)
	RefreshOwner(ctx context.Context, refresh string) (domain.Principal, error)
	Revoke(ctx context.Context, token string) error
}

// Publisher получает события о новых комментариях.
type Publisher interface {
	Publish(e feed.Event)
}

// Service - корневая структура со всеми зависимостями операций.
type Service struct {
	store     storage.Storage
	gate      CredentialGate
	publisher Publisher
	validate  *inputValidator
}

type Option func(*Service)

// WithPublisher подключает рассылку новых комментариев.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

func New(store storage.Storage, gate CredentialGate, opts ...Option) *Service {
	s := &Service{
		store:    store,
		gate:     gate,
		validate: newInputValidator(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// translate переводит ошибки хранилища в доменные.
func translate(err error, what string) error {
	var conflict *storage.ConflictError
	switch {
	case err == nil:
		return nil
	case errors.Is(err, storage.ErrNotFound):
		return domain.NotFound("%s not found", what)
	case errors.As(err, &conflict) && conflict.Field == "":
		return domain.NewValidationError("non_field_errors", "a user with these details already exists")
	case errors.As(err, &conflict):
		return domain.NewValidationError(conflict.Field, "a user with that "+conflict.Field+" already exists")
	case errors.Is(err, storage.ErrSelfReference):
		return domain.Forbidden("%s must not target yourself", what)
	default:
		return err
	}
}

// actor возвращает запись принципала. Удаленный пользователь с еще живым
// токеном считается неаутентифицированным.
func (s *Service) actor(ctx context.Context, p *domain.Principal) (*domain.User, error) {
	if err := requireAuth(p); err != nil {
		return nil, err
	}
	user, err := s.store.GetUserByID(ctx, p.UserID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, domain.Auth("user no longer exists")
	}
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, domain.Auth("user is inactive")
	}
	return user, nil
}
