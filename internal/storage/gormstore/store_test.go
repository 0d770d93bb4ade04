package gormstore

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/UkralStul/social-articles-service/internal/domain"
	"github.com/UkralStul/social-articles-service/internal/storage"
	"github.com/UkralStul/social-articles-service/internal/storage/storagetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// newTestStore открывает SQLite во временной директории теста
func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenSQLite(filepath.Join(t.TempDir(), "test.db"), false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore_Contract(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Storage { return newTestStore(t) })
}

func TestStore_AnonymousCommentColumns(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	u := storagetest.MustUser(t, store, "alice")
	article := storagetest.MustArticle(t, store, u.ID, "post")

	created, err := store.CreateComment(ctx, &domain.Comment{
		ArticleID: article.ID,
		Owner:     domain.AnonymousWithSecret("bcrypt-hash"),
		Content:   "anon",
	})
	require.NoError(t, err)

	var row commentRow
	require.NoError(t, store.db.First(&row, created.ID).Error)
	assert.Nil(t, row.AuthorID)
	require.NotNil(t, row.PasswordHash)
	assert.Equal(t, "bcrypt-hash", *row.PasswordHash)
}

func TestStore_ConcurrentToggleNeverDuplicates(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	a := storagetest.MustUser(t, store, "a")
	b := storagetest.MustUser(t, store, "b")
	article := storagetest.MustArticle(t, store, a.ID, "post")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.ToggleEdge(ctx, domain.LikeEdge(b.ID, article.ID))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	var count int64
	require.NoError(t, store.db.Model(&likeRow{}).Where("user_id = ? AND article_id = ?", b.ID, article.ID).Count(&count).Error)
	assert.LessOrEqual(t, count, int64(1))
}

func TestStore_UniqueIndexRaceNamesField(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	storagetest.MustUser(t, store, "alice")

	// Вставка в обход checkUnique, как при параллельной регистрации
	dup := &domain.User{Username: "bob", Email: "bob@example.com", Nickname: "alice-nick", JoinDate: time.Now().UTC(), PasswordHash: "x"}
	err := store.db.WithContext(ctx).Create(dup).Error
	require.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	var conflict *storage.ConflictError
	require.ErrorAs(t, store.uniqueViolation(ctx, dup, err), &conflict)
	assert.Equal(t, "nickname", conflict.Field)

	// Поле не находится: конфликт без имени поля, а не "user"
	fresh := &domain.User{Username: "carol", Email: "carol@example.com", Nickname: "carol"}
	require.ErrorAs(t, store.uniqueViolation(ctx, fresh, gorm.ErrDuplicatedKey), &conflict)
	assert.Empty(t, conflict.Field)

	other := assert.AnError
	assert.Same(t, other, store.uniqueViolation(ctx, fresh, other))
}
