// Package storagetest содержит общий набор тестов для реализаций storage.Storage.
package storagetest

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/UkralStul/social-articles-service/internal/domain"
	"github.com/UkralStul/social-articles-service/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run прогоняет все проверки контракта для хранилища, созданного newStore.
func Run(t *testing.T, newStore func(t *testing.T) storage.Storage) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s storage.Storage)
	}{
		{"UserUniqueness", testUserUniqueness},
		{"UpdateUser", testUpdateUser},
		{"ToggleFollow", testToggleFollow},
		{"SelfFollowRejected", testSelfFollowRejected},
		{"ArticleScopedLookup", testArticleScopedLookup},
		{"ArticleCounts", testArticleCounts},
		{"CommentOwnership", testCommentOwnership},
		{"DeleteArticleCascades", testDeleteArticleCascades},
		{"DeleteUserCascades", testDeleteUserCascades},
		{"UsersByIDs", testUsersByIDs},
		{"EdgesAndCommentsNeedLiveEndpoints", testEdgesAndCommentsNeedLiveEndpoints},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newStore(t))
		})
	}
}

// MustUser создает пользователя с уникальными полями на основе имени.
func MustUser(t *testing.T, s storage.Storage, name string) *domain.User {
	t.Helper()
	u, err := s.CreateUser(context.Background(), &domain.User{
		Username:     name,
		Email:        name + "@example.com",
		Fullname:     "User " + name,
		Nickname:     name + "-nick",
		IsActive:     true,
		PasswordHash: "hash",
	})
	require.NoError(t, err)
	return u
}

// MustArticle создает статью автора.
func MustArticle(t *testing.T, s storage.Storage, authorID uint, title string) *domain.Article {
	t.Helper()
	a, err := s.CreateArticle(context.Background(), &domain.Article{
		AuthorID: authorID,
		Title:    title,
		Content:  "Content of " + title,
		Topic:    domain.TopicBook,
	})
	require.NoError(t, err)
	return a
}

func testUserUniqueness(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	alice := MustUser(t, s, "alice")
	assert.NotZero(t, alice.ID)

	cases := []struct {
		field string
		user  domain.User
	}{
		{"username", domain.User{Username: "alice", Email: "x@example.com", Nickname: "x", PasswordHash: "h"}},
		{"email", domain.User{Username: "y", Email: "alice@example.com", Nickname: "y", PasswordHash: "h"}},
		{"nickname", domain.User{Username: "z", Email: "z@example.com", Nickname: "alice-nick", PasswordHash: "h"}},
	}
	for _, c := range cases {
		u := c.user
		_, err := s.CreateUser(ctx, &u)
		var conflict *storage.ConflictError
		require.True(t, errors.As(err, &conflict), "expected conflict on %s, got %v", c.field, err)
		assert.Equal(t, c.field, conflict.Field)
	}

	got, err := s.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.ID)

	_, err = s.GetUserByID(ctx, 9999)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func testUpdateUser(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	alice := MustUser(t, s, "alice")
	MustUser(t, s, "bob")

	alice.Fullname = "Alice Liddell"
	updated, err := s.UpdateUser(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, "Alice Liddell", updated.Fullname)

	alice.Nickname = "bob-nick"
	_, err = s.UpdateUser(ctx, alice)
	var conflict *storage.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "nickname", conflict.Field)
}

func testToggleFollow(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	a := MustUser(t, s, "a")
	b := MustUser(t, s, "b")
	edge := domain.FollowEdge(b.ID, a.ID)

	present, err := s.ToggleEdge(ctx, edge)
	require.NoError(t, err)
	assert.True(t, present)

	followers, err := s.ListFollowers(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, followers, 1)
	assert.Equal(t, b.ID, followers[0].ID)

	followees, err := s.ListFollowees(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, followees, 1)
	assert.Equal(t, a.ID, followees[0].ID)

	// обратное ребро не появляется само
	has, err := s.HasEdge(ctx, domain.FollowEdge(a.ID, b.ID))
	require.NoError(t, err)
	assert.False(t, has)

	present, err = s.ToggleEdge(ctx, edge)
	require.NoError(t, err)
	assert.False(t, present)

	has, err = s.HasEdge(ctx, edge)
	require.NoError(t, err)
	assert.False(t, has)
}

func testSelfFollowRejected(t *testing.T, s storage.Storage) {
	a := MustUser(t, s, "a")
	_, err := s.ToggleEdge(context.Background(), domain.FollowEdge(a.ID, a.ID))
	assert.ErrorIs(t, err, storage.ErrSelfReference)
}

func testArticleScopedLookup(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	a := MustUser(t, s, "a")
	b := MustUser(t, s, "b")
	article := MustArticle(t, s, a.ID, "first")

	got, err := s.GetArticle(ctx, a.ID, article.ID)
	require.NoError(t, err)
	assert.Equal(t, "first", got.Title)
	assert.Equal(t, domain.TopicBook, got.Topic)

	_, err = s.GetArticle(ctx, b.ID, article.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	got.Title = "renamed"
	updated, err := s.UpdateArticle(ctx, got)
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Title)
	assert.False(t, updated.UpdatedAt.Before(updated.CreatedAt))
}

func testArticleCounts(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	a := MustUser(t, s, "a")
	b := MustUser(t, s, "b")
	c := MustUser(t, s, "c")
	first := MustArticle(t, s, a.ID, "first")
	second := MustArticle(t, s, b.ID, "second")

	for _, u := range []uint{b.ID, c.ID} {
		_, err := s.ToggleEdge(ctx, domain.LikeEdge(u, first.ID))
		require.NoError(t, err)
	}
	_, err := s.CreateComment(ctx, &domain.Comment{ArticleID: first.ID, Owner: domain.AuthoredBy(b.ID), Content: "hi"})
	require.NoError(t, err)

	all, err := s.ListArticles(ctx, storage.ArticleFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	byID := map[uint]*domain.ArticleStats{}
	for _, st := range all {
		byID[st.ID] = st
	}
	assert.EqualValues(t, 2, byID[first.ID].LikesCount)
	assert.EqualValues(t, 1, byID[first.ID].CommentsCount)
	assert.EqualValues(t, 0, byID[second.ID].LikesCount)

	// счетчики пересчитываются на каждом чтении
	_, err = s.ToggleEdge(ctx, domain.LikeEdge(c.ID, first.ID))
	require.NoError(t, err)
	authorID := a.ID
	mine, err := s.ListArticles(ctx, storage.ArticleFilter{AuthorID: &authorID})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.EqualValues(t, 1, mine[0].LikesCount)

	likers, err := s.ListLikers(ctx, first.ID)
	require.NoError(t, err)
	require.Len(t, likers, 1)
	assert.Equal(t, b.ID, likers[0].ID)
}

func testCommentOwnership(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	a := MustUser(t, s, "a")
	article := MustArticle(t, s, a.ID, "first")

	authored, err := s.CreateComment(ctx, &domain.Comment{ArticleID: article.ID, Owner: domain.AuthoredBy(a.ID), Content: "mine"})
	require.NoError(t, err)
	anon, err := s.CreateComment(ctx, &domain.Comment{ArticleID: article.ID, Owner: domain.AnonymousWithSecret("secret-hash"), Content: "anon"})
	require.NoError(t, err)

	got, err := s.GetComment(ctx, article.ID, anon.ID)
	require.NoError(t, err)
	assert.True(t, got.Owner.IsAnonymous())
	secret, ok := got.Owner.Secret()
	require.True(t, ok)
	assert.Equal(t, "secret-hash", secret)

	got, err = s.GetComment(ctx, article.ID, authored.ID)
	require.NoError(t, err)
	author, ok := got.Owner.Author()
	require.True(t, ok)
	assert.Equal(t, a.ID, author)

	_, err = s.GetComment(ctx, article.ID+1000, authored.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	got.Content = "edited"
	updated, err := s.UpdateComment(ctx, got)
	require.NoError(t, err)
	assert.Equal(t, "edited", updated.Content)

	list, err := s.ListCommentsByArticle(ctx, article.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, authored.ID, list[0].ID)

	mine, err := s.ListCommentsByAuthor(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)

	require.NoError(t, s.DeleteComment(ctx, anon.ID))
	assert.ErrorIs(t, s.DeleteComment(ctx, anon.ID), storage.ErrNotFound)
}

func testDeleteArticleCascades(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	a := MustUser(t, s, "a")
	b := MustUser(t, s, "b")
	article := MustArticle(t, s, a.ID, "first")
	comment, err := s.CreateComment(ctx, &domain.Comment{ArticleID: article.ID, Owner: domain.AuthoredBy(b.ID), Content: "c"})
	require.NoError(t, err)
	_, err = s.ToggleEdge(ctx, domain.LikeEdge(b.ID, article.ID))
	require.NoError(t, err)

	require.NoError(t, s.DeleteArticle(ctx, article.ID))

	_, err = s.GetComment(ctx, article.ID, comment.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	has, err := s.HasEdge(ctx, domain.LikeEdge(b.ID, article.ID))
	require.NoError(t, err)
	assert.False(t, has)
	assert.ErrorIs(t, s.DeleteArticle(ctx, article.ID), storage.ErrNotFound)
}

func testDeleteUserCascades(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	a := MustUser(t, s, "a")
	b := MustUser(t, s, "b")
	aArticle := MustArticle(t, s, a.ID, "by a")
	bArticle := MustArticle(t, s, b.ID, "by b")

	onA, err := s.CreateComment(ctx, &domain.Comment{ArticleID: aArticle.ID, Owner: domain.AuthoredBy(b.ID), Content: "b on a"})
	require.NoError(t, err)
	byA, err := s.CreateComment(ctx, &domain.Comment{ArticleID: bArticle.ID, Owner: domain.AuthoredBy(a.ID), Content: "a on b"})
	require.NoError(t, err)
	anonOnB, err := s.CreateComment(ctx, &domain.Comment{ArticleID: bArticle.ID, Owner: domain.AnonymousWithSecret("h"), Content: "anon"})
	require.NoError(t, err)
	for _, e := range []domain.Edge{domain.FollowEdge(a.ID, b.ID), domain.FollowEdge(b.ID, a.ID), domain.LikeEdge(a.ID, bArticle.ID)} {
		_, err := s.ToggleEdge(ctx, e)
		require.NoError(t, err)
	}

	require.NoError(t, s.DeleteUser(ctx, a.ID))

	_, err = s.GetUserByID(ctx, a.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = s.GetArticle(ctx, a.ID, aArticle.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = s.GetComment(ctx, aArticle.ID, onA.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = s.GetComment(ctx, bArticle.ID, byA.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = s.GetComment(ctx, bArticle.ID, anonOnB.ID)
	assert.NoError(t, err)

	followers, err := s.ListFollowers(ctx, b.ID)
	require.NoError(t, err)
	assert.Empty(t, followers)
	followees, err := s.ListFollowees(ctx, b.ID)
	require.NoError(t, err)
	assert.Empty(t, followees)
	likers, err := s.ListLikers(ctx, bArticle.ID)
	require.NoError(t, err)
	assert.Empty(t, likers)
}

func testUsersByIDs(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	var ids []uint
	for i := 0; i < 3; i++ {
		ids = append(ids, MustUser(t, s, fmt.Sprintf("user%d", i)).ID)
	}

	got, err := s.GetUsersByIDs(ctx, append(ids, 4242))
	require.NoError(t, err)
	assert.Len(t, got, 3)
	assert.Equal(t, "user1-nick", got[ids[1]].Nickname)
}

func testEdgesAndCommentsNeedLiveEndpoints(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	a := MustUser(t, s, "a")
	b := MustUser(t, s, "b")
	article := MustArticle(t, s, a.ID, "kept")
	require.NoError(t, s.DeleteUser(ctx, b.ID))

	edges := map[string]domain.Edge{
		"like by deleted user":    domain.LikeEdge(b.ID, article.ID),
		"like of missing article": domain.LikeEdge(a.ID, 4242),
		"follow by deleted user":  domain.FollowEdge(b.ID, a.ID),
		"follow of deleted user":  domain.FollowEdge(a.ID, b.ID),
	}
	for name, edge := range edges {
		_, err := s.ToggleEdge(ctx, edge)
		assert.ErrorIs(t, err, storage.ErrNotFound, name)
	}

	_, err := s.CreateComment(ctx, &domain.Comment{ArticleID: article.ID, Owner: domain.AuthoredBy(b.ID), Content: "ghost"})
	assert.ErrorIs(t, err, storage.ErrNotFound)

	stats, err := s.ListArticles(ctx, storage.ArticleFilter{})
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.EqualValues(t, 0, stats[0].LikesCount)
	assert.EqualValues(t, 0, stats[0].CommentsCount)
}
