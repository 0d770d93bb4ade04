package service

import (
	"context"

	"github.com/UkralStul/social-articles-service/internal/domain"
)

// FollowState - состояние ребра после переключения.
type FollowState string

const (
	Followed   FollowState = "followed"
	Unfollowed FollowState = "unfollowed"
)

// FollowView - списки ников подписчиков и подписок пользователя.
type FollowView struct {
	Followers []string `json:"followers"`
	Followees []string `json:"followees"`
}

// ToggleFollow добавляет target в подписчики p или убирает оттуда.
func (s *Service) ToggleFollow(ctx context.Context, p *domain.Principal, targetID uint) (FollowState, error) {
	if _, err := s.actor(ctx, p); err != nil {
		return "", err
	}
	if p.UserID == targetID {
		return "", domain.Forbidden("you cannot follow yourself")
	}
	if _, err := s.store.GetUserByID(ctx, targetID); err != nil {
		return "", translate(err, "user")
	}

	present, err := s.toggle(ctx, domain.FollowEdge(targetID, p.UserID))
	if err != nil {
		return "", err
	}
	if present {
		return Followed, nil
	}
	return Unfollowed, nil
}

// FollowView показывает подписчиков и подписки target самому target или
// пользователю, состоящему с ним во взаимной подписке.
func (s *Service) FollowView(ctx context.Context, p *domain.Principal, targetID uint) (*FollowView, error) {
	if _, err := s.actor(ctx, p); err != nil {
		return nil, err
	}
	if _, err := s.store.GetUserByID(ctx, targetID); err != nil {
		return nil, translate(err, "user")
	}

	mutual := false
	if !p.Is(targetID) {
		var err error
		if mutual, err = s.mutual(ctx, p.UserID, targetID); err != nil {
			return nil, err
		}
	}
	if err := canViewFollows(p, targetID, mutual); err != nil {
		return nil, err
	}

	followers, err := s.store.ListFollowers(ctx, targetID)
	if err != nil {
		return nil, err
	}
	followees, err := s.store.ListFollowees(ctx, targetID)
	if err != nil {
		return nil, err
	}
	return &FollowView{Followers: nicknamesOf(followers), Followees: nicknamesOf(followees)}, nil
}

// mutual: y среди подписчиков x и x среди подписчиков y.
func (s *Service) mutual(ctx context.Context, x, y uint) (bool, error) {
	yFollowsX, err := s.store.HasEdge(ctx, domain.FollowEdge(y, x))
	if err != nil || !yFollowsX {
		return false, err
	}
	return s.store.HasEdge(ctx, domain.FollowEdge(x, y))
}

func nicknamesOf(users []*domain.User) []string {
	out := make([]string, len(users))
	for i, u := range users {
		out[i] = u.Nickname
	}
	return out
}
