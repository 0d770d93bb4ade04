package service

import (
	"context"
	"errors"
	"time"

	"github.com/UkralStul/social-articles-service/internal/dataloader"
	"github.com/UkralStul/social-articles-service/internal/domain"
	"github.com/UkralStul/social-articles-service/internal/storage"
)

// ArticleInput - поля создания и изменения статьи.
// Автор всегда берется из принципала.
type ArticleInput struct {
	Title   string `json:"title" validate:"required,max=128"`
	Content string `json:"content" validate:"required"`
	Topic   string `json:"topic" validate:"required"`
}

// ArticleSummary - элемент списка статей.
type ArticleSummary struct {
	domain.ArticleStats
	Author string `json:"author"`
}

// ArticleDetail - статья с комментариями и лайкнувшими пользователями.
type ArticleDetail struct {
	domain.Article
	Author        string        `json:"author"`
	Comments      []CommentView `json:"comments"`
	LikedBy       []string      `json:"likedBy"`
	LikesCount    int64         `json:"likesCount"`
	CommentsCount int64         `json:"commentsCount"`
}

// CommentView - комментарий без секрета, с ником автора либо признаком анонимности.
type CommentView struct {
	ID        uint      `json:"id"`
	ArticleID uint      `json:"articleId"`
	AuthorID  *uint     `json:"authorId,omitempty"`
	Author    string    `json:"author,omitempty"`
	Anonymous bool      `json:"anonymous"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// ListArticles возвращает статьи (все или одного автора) со счетчиками на момент чтения.
func (s *Service) ListArticles(ctx context.Context, authorID *uint) ([]*ArticleSummary, error) {
	if authorID != nil {
		if _, err := s.store.GetUserByID(ctx, *authorID); err != nil {
			return nil, translate(err, "user")
		}
	}
	stats, err := s.store.ListArticles(ctx, storage.ArticleFilter{AuthorID: authorID})
	if err != nil {
		return nil, err
	}

	ids := make([]uint, len(stats))
	for i, st := range stats {
		ids[i] = st.AuthorID
	}
	nicknames, err := dataloader.Nicknames(ctx, s.store, ids)
	if err != nil {
		return nil, err
	}

	out := make([]*ArticleSummary, len(stats))
	for i, st := range stats {
		out[i] = &ArticleSummary{ArticleStats: *st, Author: nicknames[st.AuthorID]}
	}
	return out, nil
}

// CreateArticle публикует статью от имени p.
func (s *Service) CreateArticle(ctx context.Context, p *domain.Principal, in ArticleInput) (*domain.Article, error) {
	if _, err := s.actor(ctx, p); err != nil {
		return nil, err
	}
	topic, err := s.checkArticle(in)
	if err != nil {
		return nil, err
	}
	article, err := s.store.CreateArticle(ctx, &domain.Article{
		AuthorID: p.UserID,
		Title:    in.Title,
		Content:  in.Content,
		Topic:    topic,
	})
	if err != nil {
		return nil, translate(err, "user")
	}
	return article, nil
}

// Article возвращает статью без комментариев и лайков.
func (s *Service) Article(ctx context.Context, authorID, articleID uint) (*domain.Article, error) {
	article, err := s.store.GetArticle(ctx, authorID, articleID)
	if err != nil {
		return nil, translate(err, "article")
	}
	return article, nil
}

// GetArticleDetail ищет статью по паре (автор, id).
func (s *Service) GetArticleDetail(ctx context.Context, authorID, articleID uint) (*ArticleDetail, error) {
	article, err := s.store.GetArticle(ctx, authorID, articleID)
	if err != nil {
		return nil, translate(err, "article")
	}
	comments, err := s.store.ListCommentsByArticle(ctx, article.ID)
	if err != nil {
		return nil, err
	}
	likers, err := s.store.ListLikers(ctx, article.ID)
	if err != nil {
		return nil, err
	}

	ids := []uint{article.AuthorID}
	for _, c := range comments {
		if id, ok := c.Owner.Author(); ok {
			ids = append(ids, id)
		}
	}
	nicknames, err := dataloader.Nicknames(ctx, s.store, ids)
	if err != nil {
		return nil, err
	}

	views := make([]CommentView, len(comments))
	for i, c := range comments {
		views[i] = commentView(c, nicknames)
	}
	return &ArticleDetail{
		Article:       *article,
		Author:        nicknames[article.AuthorID],
		Comments:      views,
		LikedBy:       nicknamesOf(likers),
		LikesCount:    int64(len(likers)),
		CommentsCount: int64(len(comments)),
	}, nil
}

// UpdateArticle меняет статью. Доступно только автору.
func (s *Service) UpdateArticle(ctx context.Context, p *domain.Principal, authorID, articleID uint, in ArticleInput) (*domain.Article, error) {
	article, err := s.store.GetArticle(ctx, authorID, articleID)
	if err != nil {
		return nil, translate(err, "article")
	}
	if err := requireArticleAuthor(p, article); err != nil {
		return nil, err
	}
	topic, err := s.checkArticle(in)
	if err != nil {
		return nil, err
	}

	article.Title = in.Title
	article.Content = in.Content
	article.Topic = topic
	updated, err := s.store.UpdateArticle(ctx, article)
	if err != nil {
		return nil, translate(err, "article")
	}
	return updated, nil
}

// DeleteArticle удаляет статью вместе с комментариями и лайками. Доступно только автору.
func (s *Service) DeleteArticle(ctx context.Context, p *domain.Principal, authorID, articleID uint) error {
	article, err := s.store.GetArticle(ctx, authorID, articleID)
	if err != nil {
		return translate(err, "article")
	}
	if err := requireArticleAuthor(p, article); err != nil {
		return err
	}
	return translate(s.store.DeleteArticle(ctx, article.ID), "article")
}

func (s *Service) checkArticle(in ArticleInput) (domain.Topic, error) {
	extra := map[string]string{}
	topic, err := domain.ParseTopic(in.Topic)
	var invalid *domain.ValidationError
	if in.Topic != "" && errors.As(err, &invalid) {
		extra = invalid.Fields
	}
	if err := s.validate.check(in, extra); err != nil {
		return "", err
	}
	return topic, nil
}

func commentView(c *domain.Comment, nicknames map[uint]string) CommentView {
	v := CommentView{
		ID:        c.ID,
		ArticleID: c.ArticleID,
		Anonymous: c.Owner.IsAnonymous(),
		Content:   c.Content,
		CreatedAt: c.CreatedAt,
	}
	if id, ok := c.Owner.Author(); ok {
		v.AuthorID = &id
		v.Author = nicknames[id]
	}
	return v
}
