package inmemory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/UkralStul/social-articles-service/internal/domain"
	"github.com/UkralStul/social-articles-service/internal/storage"
)

type edgeKey struct {
	from uint
	to   uint
}

// Store реализует интерфейс Storage в памяти.
// Наружу отдаются копии записей, изменения проходят только через Update-методы.
type Store struct {
	mu       sync.RWMutex
	seq      uint
	users    map[uint]*domain.User
	articles map[uint]*domain.Article
	comments map[uint]*domain.Comment
	edges    map[domain.EdgeKind]map[edgeKey]struct{}
}

// New создает новый экземпляр in-memory хранилища.
func New() *Store {
	return &Store{
		users:    make(map[uint]*domain.User),
		articles: make(map[uint]*domain.Article),
		comments: make(map[uint]*domain.Comment),
		edges: map[domain.EdgeKind]map[edgeKey]struct{}{
			domain.EdgeFollow: {},
			domain.EdgeLike:   {},
		},
	}
}

func (s *Store) nextID() uint {
	s.seq++
	return s.seq
}

// === User Methods ===

func (s *Store) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkUnique(user); err != nil {
		return nil, err
	}

	u := *user
	u.ID = s.nextID()
	if u.JoinDate.IsZero() {
		u.JoinDate = time.Now().UTC()
	}
	s.users[u.ID] = &u
	out := u
	return &out, nil
}

// checkUnique проверяет уникальность username/email/nickname среди остальных пользователей.
func (s *Store) checkUnique(user *domain.User) error {
	for _, u := range s.users {
		if u.ID == user.ID {
			continue
		}
		switch {
		case u.Username == user.Username:
			return &storage.ConflictError{Field: "username"}
		case u.Email == user.Email:
			return &storage.ConflictError{Field: "email"}
		case u.Nickname == user.Nickname:
			return &storage.ConflictError{Field: "nickname"}
		}
	}
	return nil
}

func (s *Store) GetUserByID(ctx context.Context, id uint) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	out := *u
	return &out, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Username == username {
			out := *u
			return &out, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *Store) UpdateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; !ok {
		return nil, storage.ErrNotFound
	}
	if err := s.checkUnique(user); err != nil {
		return nil, err
	}
	u := *user
	s.users[u.ID] = &u
	out := u
	return &out, nil
}

func (s *Store) DeleteUser(ctx context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return storage.ErrNotFound
	}
	for aid, a := range s.articles {
		if a.AuthorID == id {
			s.deleteArticleLocked(aid)
		}
	}
	for cid, c := range s.comments {
		if author, ok := c.Owner.Author(); ok && author == id {
			delete(s.comments, cid)
		}
	}
	for k := range s.edges[domain.EdgeLike] {
		if k.from == id {
			delete(s.edges[domain.EdgeLike], k)
		}
	}
	for k := range s.edges[domain.EdgeFollow] {
		if k.from == id || k.to == id {
			delete(s.edges[domain.EdgeFollow], k)
		}
	}
	delete(s.users, id)
	return nil
}

func (s *Store) GetUsersByIDs(ctx context.Context, ids []uint) (map[uint]*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make(map[uint]*domain.User, len(ids))
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			out := *u
			results[id] = &out
		}
	}
	return results, nil
}

// === Edge Methods ===

func (s *Store) ToggleEdge(ctx context.Context, edge domain.Edge) (bool, error) {
	if edge.SelfReferential() {
		return false, storage.ErrSelfReference
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.edges[edge.Kind]
	if !ok {
		return false, storage.ErrNotFound
	}
	if !s.endpointsExistLocked(edge) {
		return false, storage.ErrNotFound
	}
	key := edgeKey{from: edge.From, to: edge.To}
	if _, exists := set[key]; exists {
		delete(set, key)
		return false, nil
	}
	set[key] = struct{}{}
	return true, nil
}

// endpointsExistLocked проверяет, что обе стороны ребра существуют.
func (s *Store) endpointsExistLocked(edge domain.Edge) bool {
	if _, ok := s.users[edge.From]; !ok {
		return false
	}
	if edge.Kind == domain.EdgeLike {
		_, ok := s.articles[edge.To]
		return ok
	}
	_, ok := s.users[edge.To]
	return ok
}

func (s *Store) HasEdge(ctx context.Context, edge domain.Edge) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.edges[edge.Kind][edgeKey{from: edge.From, to: edge.To}]
	return ok, nil
}

func (s *Store) ListFollowers(ctx context.Context, userID uint) ([]*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []uint
	for k := range s.edges[domain.EdgeFollow] {
		if k.to == userID {
			ids = append(ids, k.from)
		}
	}
	return s.usersLocked(ids), nil
}

func (s *Store) ListFollowees(ctx context.Context, userID uint) ([]*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []uint
	for k := range s.edges[domain.EdgeFollow] {
		if k.from == userID {
			ids = append(ids, k.to)
		}
	}
	return s.usersLocked(ids), nil
}

func (s *Store) ListLikers(ctx context.Context, articleID uint) ([]*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []uint
	for k := range s.edges[domain.EdgeLike] {
		if k.to == articleID {
			ids = append(ids, k.from)
		}
	}
	return s.usersLocked(ids), nil
}

// usersLocked возвращает копии пользователей, отсортированные по id
func (s *Store) usersLocked(ids []uint) []*domain.User {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]*domain.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			c := *u
			out = append(out, &c)
		}
	}
	return out
}

// === Article Methods ===

func (s *Store) CreateArticle(ctx context.Context, article *domain.Article) (*domain.Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[article.AuthorID]; !ok {
		return nil, storage.ErrNotFound
	}
	a := *article
	a.ID = s.nextID()
	a.CreatedAt = time.Now().UTC()
	a.UpdatedAt = a.CreatedAt
	s.articles[a.ID] = &a
	out := a
	return &out, nil
}

func (s *Store) GetArticle(ctx context.Context, authorID, articleID uint) (*domain.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.articles[articleID]
	if !ok || a.AuthorID != authorID {
		return nil, storage.ErrNotFound
	}
	out := *a
	return &out, nil
}

func (s *Store) UpdateArticle(ctx context.Context, article *domain.Article) (*domain.Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.articles[article.ID]; !ok {
		return nil, storage.ErrNotFound
	}
	a := *article
	a.UpdatedAt = time.Now().UTC()
	s.articles[a.ID] = &a
	out := a
	return &out, nil
}

func (s *Store) DeleteArticle(ctx context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.articles[id]; !ok {
		return storage.ErrNotFound
	}
	s.deleteArticleLocked(id)
	return nil
}

func (s *Store) deleteArticleLocked(id uint) {
	for cid, c := range s.comments {
		if c.ArticleID == id {
			delete(s.comments, cid)
		}
	}
	for k := range s.edges[domain.EdgeLike] {
		if k.to == id {
			delete(s.edges[domain.EdgeLike], k)
		}
	}
	delete(s.articles, id)
}

func (s *Store) ListArticles(ctx context.Context, filter storage.ArticleFilter) ([]*domain.ArticleStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	likes := make(map[uint]int64)
	for k := range s.edges[domain.EdgeLike] {
		likes[k.to]++
	}
	comments := make(map[uint]int64)
	for _, c := range s.comments {
		comments[c.ArticleID]++
	}

	result := make([]*domain.ArticleStats, 0, len(s.articles))
	for _, a := range s.articles {
		if filter.AuthorID != nil && a.AuthorID != *filter.AuthorID {
			continue
		}
		result = append(result, &domain.ArticleStats{
			Article:       *a,
			LikesCount:    likes[a.ID],
			CommentsCount: comments[a.ID],
		})
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID > result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// === Comment Methods ===

func (s *Store) CreateComment(ctx context.Context, comment *domain.Comment) (*domain.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.articles[comment.ArticleID]; !ok {
		return nil, storage.ErrNotFound
	}
	if author, ok := comment.Owner.Author(); ok {
		if _, exists := s.users[author]; !exists {
			return nil, storage.ErrNotFound
		}
	}
	c := *comment
	c.ID = s.nextID()
	c.CreatedAt = time.Now().UTC()
	s.comments[c.ID] = &c
	out := c
	return &out, nil
}

func (s *Store) GetComment(ctx context.Context, articleID, commentID uint) (*domain.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.comments[commentID]
	if !ok || c.ArticleID != articleID {
		return nil, storage.ErrNotFound
	}
	out := *c
	return &out, nil
}

func (s *Store) UpdateComment(ctx context.Context, comment *domain.Comment) (*domain.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.comments[comment.ID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	existing.Content = comment.Content
	out := *existing
	return &out, nil
}

func (s *Store) DeleteComment(ctx context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.comments[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.comments, id)
	return nil
}

func (s *Store) ListCommentsByArticle(ctx context.Context, articleID uint) ([]*domain.Comment, error) {
	return s.listComments(func(c *domain.Comment) bool { return c.ArticleID == articleID }), nil
}

func (s *Store) ListCommentsByAuthor(ctx context.Context, userID uint) ([]*domain.Comment, error) {
	return s.listComments(func(c *domain.Comment) bool {
		author, ok := c.Owner.Author()
		return ok && author == userID
	}), nil
}

// listComments - вспомогательная функция, сортирует по времени создания
func (s *Store) listComments(match func(*domain.Comment) bool) []*domain.Comment {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Comment, 0)
	for _, c := range s.comments {
		if match(c) {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}
