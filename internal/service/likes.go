package service

import (
	"context"

	"github.com/UkralStul/social-articles-service/internal/domain"
)

// LikeResult - состояние лайка после переключения.
type LikeResult struct {
	Liked      bool  `json:"liked"`
	LikesCount int64 `json:"likesCount"`
}

// ToggleLike ставит или снимает лайк p со статьи. Автор не может лайкать свою статью.
func (s *Service) ToggleLike(ctx context.Context, p *domain.Principal, authorID, articleID uint) (*LikeResult, error) {
	article, err := s.store.GetArticle(ctx, authorID, articleID)
	if err != nil {
		return nil, translate(err, "article")
	}
	if _, err := s.actor(ctx, p); err != nil {
		return nil, err
	}
	if err := canLike(p, article); err != nil {
		return nil, err
	}

	liked, err := s.toggle(ctx, domain.LikeEdge(p.UserID, article.ID))
	if err != nil {
		return nil, err
	}
	likers, err := s.store.ListLikers(ctx, article.ID)
	if err != nil {
		return nil, err
	}
	return &LikeResult{Liked: liked, LikesCount: int64(len(likers))}, nil
}
