package service

import (
	"context"
	"fmt"
	"time"

	"github.com/UkralStul/social-articles-service/internal/auth"
	"github.com/UkralStul/social-articles-service/internal/domain"
	"github.com/UkralStul/social-articles-service/internal/feed"
)

// CommentInput - тело комментария и, для анонимов, пароль.
type CommentInput struct {
	Content  string `json:"content" validate:"required"`
	Password string `json:"password,omitempty"`
}

// CreateComment добавляет комментарий. Аутентифицированный принципал становится
// автором (пароль при этом игнорируется), иначе нужен пароль, хранится только его хеш.
func (s *Service) CreateComment(ctx context.Context, p *domain.Principal, authorID, articleID uint, in CommentInput) (*CommentView, error) {
	article, err := s.store.GetArticle(ctx, authorID, articleID)
	if err != nil {
		return nil, translate(err, "article")
	}

	var owner domain.Owner
	switch {
	case p != nil:
		if _, err := s.actor(ctx, p); err != nil {
			return nil, err
		}
		owner = domain.AuthoredBy(p.UserID)
	case in.Password != "":
		hash, err := auth.HashPassword(in.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		owner = domain.AnonymousWithSecret(hash)
	default:
		return nil, domain.NewValidationError("password", "must authenticate or supply a password")
	}
	if err := s.validate.check(in, nil); err != nil {
		return nil, err
	}

	comment, err := s.store.CreateComment(ctx, &domain.Comment{
		ArticleID: article.ID,
		Owner:     owner,
		Content:   in.Content,
	})
	if err != nil {
		return nil, translate(err, "article")
	}

	nicknames := map[uint]string{}
	if p != nil {
		nicknames[p.UserID] = p.Nickname
	}
	view := commentView(comment, nicknames)
	s.publish(view)
	return &view, nil
}

// UpdateComment меняет текст комментария автором или владельцем пароля.
func (s *Service) UpdateComment(ctx context.Context, p *domain.Principal, authorID, articleID, commentID uint, in CommentInput) (*CommentView, error) {
	article, comment, err := s.lookupComment(ctx, authorID, articleID, commentID)
	if err != nil {
		return nil, err
	}
	if err := authorizeCommentChange(p, article, comment, in.Password, false); err != nil {
		return nil, err
	}
	if err := s.validate.check(in, nil); err != nil {
		return nil, err
	}

	comment.Content = in.Content
	updated, err := s.store.UpdateComment(ctx, comment)
	if err != nil {
		return nil, translate(err, "comment")
	}
	nicknames := map[uint]string{}
	if p != nil {
		nicknames[p.UserID] = p.Nickname
	}
	view := commentView(updated, nicknames)
	return &view, nil
}

// DeleteComment удаляет комментарий. Анонимный комментарий автор статьи
// может удалить без пароля.
func (s *Service) DeleteComment(ctx context.Context, p *domain.Principal, authorID, articleID, commentID uint, password string) error {
	article, comment, err := s.lookupComment(ctx, authorID, articleID, commentID)
	if err != nil {
		return err
	}
	if err := authorizeCommentChange(p, article, comment, password, true); err != nil {
		return err
	}
	return translate(s.store.DeleteComment(ctx, comment.ID), "comment")
}

// ListUserComments возвращает комментарии, написанные пользователем.
func (s *Service) ListUserComments(ctx context.Context, userID uint) ([]CommentView, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, translate(err, "user")
	}
	comments, err := s.store.ListCommentsByAuthor(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	nicknames := map[uint]string{user.ID: user.Nickname}
	out := make([]CommentView, len(comments))
	for i, c := range comments {
		out[i] = commentView(c, nicknames)
	}
	return out, nil
}

func (s *Service) lookupComment(ctx context.Context, authorID, articleID, commentID uint) (*domain.Article, *domain.Comment, error) {
	article, err := s.store.GetArticle(ctx, authorID, articleID)
	if err != nil {
		return nil, nil, translate(err, "article")
	}
	comment, err := s.store.GetComment(ctx, article.ID, commentID)
	if err != nil {
		return nil, nil, translate(err, "comment")
	}
	return article, comment, nil
}

func (s *Service) publish(v CommentView) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(feed.Event{
		ID:        v.ID,
		ArticleID: v.ArticleID,
		Author:    v.Author,
		Anonymous: v.Anonymous,
		Content:   v.Content,
		CreatedAt: v.CreatedAt.Format(time.RFC3339),
	})
}
