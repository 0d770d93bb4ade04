package service

import (
	"github.com/UkralStul/social-articles-service/internal/auth"
	"github.com/UkralStul/social-articles-service/internal/domain"
)

// Правила доступа. Функции ничего не читают из хранилища: все факты передаются явно.

func requireAuth(p *domain.Principal) error {
	if p == nil || p.UserID == 0 {
		return domain.Auth("authentication credentials were not provided")
	}
	return nil
}

// canViewFollows: свой граф виден всегда, чужой только при взаимной подписке.
func canViewFollows(p *domain.Principal, targetID uint, mutual bool) error {
	if p.Is(targetID) || (p != nil && mutual) {
		return nil
	}
	return domain.Forbidden("follow lists are visible only to mutual followers")
}

func requireArticleAuthor(p *domain.Principal, article *domain.Article) error {
	if !p.Is(article.AuthorID) {
		return domain.Forbidden("only the author may modify this article")
	}
	return nil
}

func canLike(p *domain.Principal, article *domain.Article) error {
	if p.Is(article.AuthorID) {
		return domain.Forbidden("authors cannot like their own articles")
	}
	return nil
}

// authorizeCommentChange решает, может ли p изменить или удалить комментарий.
// Комментарий пользователя меняет только его автор. Анонимный требует пароль,
// а при moderation автор статьи удаляет его без пароля.
func authorizeCommentChange(p *domain.Principal, article *domain.Article, c *domain.Comment, password string, moderation bool) error {
	if author, ok := c.Owner.Author(); ok {
		if !p.Is(author) {
			return domain.Forbidden("only the author may modify this comment")
		}
		return nil
	}
	if moderation && p.Is(article.AuthorID) {
		return nil
	}
	if password == "" {
		return domain.NewValidationError("password", "this field is required")
	}
	secret, ok := c.Owner.Secret()
	if !ok || !auth.VerifyPassword(password, secret) {
		return domain.Auth("password is incorrect")
	}
	return nil
}
