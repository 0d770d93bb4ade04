package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/UkralStul/social-articles-service/internal/domain"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrSelfReference - попытка создать ребро подписки на самого себя.
	ErrSelfReference = errors.New("edge must not reference its own origin")
)

// ConflictError - нарушение уникальности поля. Пустой Field значит, что поле
// определить не удалось.
type ConflictError struct {
	Field string
}

func (e *ConflictError) Error() string {
	if e.Field == "" {
		return "unique constraint violated"
	}
	return fmt.Sprintf("%s already exists", e.Field)
}

// ArticleFilter - фильтр списка статей.
type ArticleFilter struct {
	AuthorID *uint
}

// Storage определяет контракт для хранилищ.
type Storage interface {
	CreateUser(ctx context.Context, user *domain.User) (*domain.User, error)
	GetUserByID(ctx context.Context, id uint) (*domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
	UpdateUser(ctx context.Context, user *domain.User) (*domain.User, error)
	// DeleteUser удаляет пользователя вместе с его статьями, комментариями и ребрами.
	DeleteUser(ctx context.Context, id uint) error

	// ToggleEdge атомарно удаляет ребро, если оно есть, иначе создает.
	// Возвращает true, если после операции ребро существует.
	ToggleEdge(ctx context.Context, edge domain.Edge) (bool, error)
	HasEdge(ctx context.Context, edge domain.Edge) (bool, error)
	ListFollowers(ctx context.Context, userID uint) ([]*domain.User, error)
	ListFollowees(ctx context.Context, userID uint) ([]*domain.User, error)
	ListLikers(ctx context.Context, articleID uint) ([]*domain.User, error)

	CreateArticle(ctx context.Context, article *domain.Article) (*domain.Article, error)
	// GetArticle ищет статью по паре (автор, id).
	GetArticle(ctx context.Context, authorID, articleID uint) (*domain.Article, error)
	UpdateArticle(ctx context.Context, article *domain.Article) (*domain.Article, error)
	// DeleteArticle удаляет статью вместе с комментариями и лайками.
	DeleteArticle(ctx context.Context, id uint) error
	ListArticles(ctx context.Context, filter ArticleFilter) ([]*domain.ArticleStats, error)

	CreateComment(ctx context.Context, comment *domain.Comment) (*domain.Comment, error)
	GetComment(ctx context.Context, articleID, commentID uint) (*domain.Comment, error)
	UpdateComment(ctx context.Context, comment *domain.Comment) (*domain.Comment, error)
	DeleteComment(ctx context.Context, id uint) error
	ListCommentsByArticle(ctx context.Context, articleID uint) ([]*domain.Comment, error)
	ListCommentsByAuthor(ctx context.Context, userID uint) ([]*domain.Comment, error)

	// Метод для Dataloader'ов
	GetUsersByIDs(ctx context.Context, ids []uint) (map[uint]*domain.User, error)
}
