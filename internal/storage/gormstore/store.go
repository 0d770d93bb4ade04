package gormstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/UkralStul/social-articles-service/internal/domain"
	"github.com/UkralStul/social-articles-service/internal/storage"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Store реализует интерфейс Storage поверх gorm (PostgreSQL или SQLite).
type Store struct {
	db *gorm.DB
}

// OpenPostgres подключается к PostgreSQL по DSN.
func OpenPostgres(dsn string, debug bool) (*Store, error) {
	return open(postgres.Open(dsn), debug, 0)
}

// OpenSQLite открывает файл SQLite. Одно соединение, чтобы избежать "database is locked".
func OpenSQLite(path string, debug bool) (*Store, error) {
	return open(sqlite.Open(path), debug, 1)
}

func open(dialector gorm.Dialector, debug bool, maxConns int) (*Store, error) {
	level := logger.Warn
	if debug {
		level = logger.Info
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(level),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if maxConns > 0 {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get sql.DB: %w", err)
		}
		sqlDB.SetMaxOpenConns(maxConns)
	}

	// Выполняем миграцию схемы
	if err := db.AutoMigrate(&domain.User{}, &domain.Article{}, &followRow{}, &likeRow{}, &commentRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close закрывает пул соединений.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return storage.ErrNotFound
	}
	return err
}

// === User Methods ===

func (s *Store) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	if user.JoinDate.IsZero() {
		user.JoinDate = time.Now().UTC()
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkUnique(tx, user); err != nil {
			return err
		}
		return tx.Create(user).Error
	})
	if err != nil {
		return nil, s.uniqueViolation(ctx, user, err)
	}
	return user, nil
}

// checkUnique ищет другого пользователя с тем же username/email/nickname.
func checkUnique(tx *gorm.DB, user *domain.User) error {
	for _, field := range []struct {
		column string
		value  string
	}{
		{"username", user.Username},
		{"email", user.Email},
		{"nickname", user.Nickname},
	} {
		var count int64
		err := tx.Model(&domain.User{}).
			Where(field.column+" = ? AND id <> ?", field.value, user.ID).
			Count(&count).Error
		if err != nil {
			return err
		}
		if count > 0 {
			return &storage.ConflictError{Field: field.column}
		}
	}
	return nil
}

// uniqueViolation переводит гонку на уникальном индексе в ConflictError.
// Поле находится повторной проверкой после отката транзакции.
func (s *Store) uniqueViolation(ctx context.Context, user *domain.User, err error) error {
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		return err
	}
	var conflict *storage.ConflictError
	if errors.As(checkUnique(s.db.WithContext(ctx), user), &conflict) {
		return conflict
	}
	return &storage.ConflictError{}
}

func (s *Store) GetUserByID(ctx context.Context, id uint) (*domain.User, error) {
	var user domain.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	var user domain.User
	if err := s.db.WithContext(ctx).First(&user, "username = ?", username).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (s *Store) UpdateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&domain.User{}).Where("id = ?", user.ID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return storage.ErrNotFound
		}
		if err := checkUnique(tx, user); err != nil {
			return err
		}
		return tx.Save(user).Error
	})
	if err != nil {
		return nil, s.uniqueViolation(ctx, user, err)
	}
	return user, nil
}

func (s *Store) DeleteUser(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var articleIDs []uint
		if err := tx.Model(&domain.Article{}).Where("author_id = ?", id).Pluck("id", &articleIDs).Error; err != nil {
			return err
		}
		if len(articleIDs) > 0 {
			if err := deleteArticles(tx, articleIDs); err != nil {
				return err
			}
		}
		if err := tx.Where("author_id = ?", id).Delete(&commentRow{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&likeRow{}).Error; err != nil {
			return err
		}
		if err := tx.Where("follower_id = ? OR followee_id = ?", id, id).Delete(&followRow{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&domain.User{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return storage.ErrNotFound
		}
		return nil
	})
}

func (s *Store) GetUsersByIDs(ctx context.Context, ids []uint) (map[uint]*domain.User, error) {
	result := make(map[uint]*domain.User, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	var users []*domain.User
	// Загружаем всех пользователей одним запросом
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	for _, u := range users {
		result[u.ID] = u
	}
	return result, nil
}

// === Edge Methods ===

func (s *Store) ToggleEdge(ctx context.Context, edge domain.Edge) (bool, error) {
	if edge.SelfReferential() {
		return false, storage.ErrSelfReference
	}
	tbl, ok := edgeTables[edge.Kind]
	if !ok {
		return false, fmt.Errorf("unknown edge kind %s", edge.Kind)
	}

	var present bool
	// Условное удаление и вставка в одной транзакции, пара защищена первичным ключом
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := endpointsExist(tx, edge); err != nil {
			return err
		}
		res := tx.Where(tbl.fromCol+" = ? AND "+tbl.toCol+" = ?", edge.From, edge.To).Delete(tbl.model)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			present = false
			return nil
		}
		if err := tx.Create(tbl.row(edge.From, edge.To)).Error; err != nil {
			return err
		}
		present = true
		return nil
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// параллельный запрос уже создал это ребро
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return present, nil
}

// endpointsExist проверяет внутри транзакции, что обе стороны ребра существуют.
func endpointsExist(tx *gorm.DB, edge domain.Edge) error {
	if err := exists(tx, &domain.User{}, edge.From); err != nil {
		return err
	}
	if edge.Kind == domain.EdgeLike {
		return exists(tx, &domain.Article{}, edge.To)
	}
	return exists(tx, &domain.User{}, edge.To)
}

func exists(tx *gorm.DB, model any, id uint) error {
	var count int64
	if err := tx.Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) HasEdge(ctx context.Context, edge domain.Edge) (bool, error) {
	tbl, ok := edgeTables[edge.Kind]
	if !ok {
		return false, fmt.Errorf("unknown edge kind %s", edge.Kind)
	}
	var count int64
	err := s.db.WithContext(ctx).Model(tbl.model).
		Where(tbl.fromCol+" = ? AND "+tbl.toCol+" = ?", edge.From, edge.To).
		Count(&count).Error
	return count > 0, err
}

func (s *Store) ListFollowers(ctx context.Context, userID uint) ([]*domain.User, error) {
	return s.usersJoined(ctx, "JOIN follows ON follows.follower_id = users.id", "follows.followee_id = ?", userID)
}

func (s *Store) ListFollowees(ctx context.Context, userID uint) ([]*domain.User, error) {
	return s.usersJoined(ctx, "JOIN follows ON follows.followee_id = users.id", "follows.follower_id = ?", userID)
}

func (s *Store) ListLikers(ctx context.Context, articleID uint) ([]*domain.User, error) {
	return s.usersJoined(ctx, "JOIN article_likes ON article_likes.user_id = users.id", "article_likes.article_id = ?", articleID)
}

func (s *Store) usersJoined(ctx context.Context, join, where string, id uint) ([]*domain.User, error) {
	var users []*domain.User
	err := s.db.WithContext(ctx).
		Joins(join).
		Where(where, id).
		Order("users.id ASC").
		Find(&users).Error
	return users, err
}

// === Article Methods ===

func (s *Store) CreateArticle(ctx context.Context, article *domain.Article) (*domain.Article, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&domain.User{}).Where("id = ?", article.AuthorID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return storage.ErrNotFound
		}
		now := time.Now().UTC()
		article.CreatedAt, article.UpdatedAt = now, now
		return tx.Create(article).Error
	})
	if err != nil {
		return nil, err
	}
	return article, nil
}

func (s *Store) GetArticle(ctx context.Context, authorID, articleID uint) (*domain.Article, error) {
	var article domain.Article
	err := s.db.WithContext(ctx).First(&article, "id = ? AND author_id = ?", articleID, authorID).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &article, nil
}

func (s *Store) UpdateArticle(ctx context.Context, article *domain.Article) (*domain.Article, error) {
	article.UpdatedAt = time.Now().UTC()
	res := s.db.WithContext(ctx).Model(&domain.Article{ID: article.ID}).
		Select("title", "content", "topic", "updated_at").
		Updates(article)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, storage.ErrNotFound
	}
	return s.GetArticle(ctx, article.AuthorID, article.ID)
}

func (s *Store) DeleteArticle(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&domain.Article{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return storage.ErrNotFound
		}
		return deleteArticles(tx, []uint{id})
	})
}

// deleteArticles удаляет статьи вместе с зависимыми комментариями и лайками.
func deleteArticles(tx *gorm.DB, ids []uint) error {
	if err := tx.Where("article_id IN ?", ids).Delete(&commentRow{}).Error; err != nil {
		return err
	}
	if err := tx.Where("article_id IN ?", ids).Delete(&likeRow{}).Error; err != nil {
		return err
	}
	return tx.Where("id IN ?", ids).Delete(&domain.Article{}).Error
}

func (s *Store) ListArticles(ctx context.Context, filter storage.ArticleFilter) ([]*domain.ArticleStats, error) {
	var result []*domain.ArticleStats
	// Счетчики считаются подзапросами на каждом чтении
	query := s.db.WithContext(ctx).Model(&domain.Article{}).
		Select("articles.*, " +
			"(SELECT COUNT(*) FROM article_likes WHERE article_likes.article_id = articles.id) AS likes_count, " +
			"(SELECT COUNT(*) FROM comments WHERE comments.article_id = articles.id) AS comments_count").
		Order("articles.created_at DESC, articles.id DESC")
	if filter.AuthorID != nil {
		query = query.Where("articles.author_id = ?", *filter.AuthorID)
	}
	if err := query.Scan(&result).Error; err != nil {
		return nil, err
	}
	return result, nil
}

// === Comment Methods ===

func (s *Store) CreateComment(ctx context.Context, comment *domain.Comment) (*domain.Comment, error) {
	row := toCommentRow(comment)
	row.CreatedAt = time.Now().UTC()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := exists(tx, &domain.Article{}, row.ArticleID); err != nil {
			return err
		}
		if row.AuthorID != nil {
			if err := exists(tx, &domain.User{}, *row.AuthorID); err != nil {
				return err
			}
		}
		return tx.Create(row).Error
	})
	if err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

func (s *Store) GetComment(ctx context.Context, articleID, commentID uint) (*domain.Comment, error) {
	var row commentRow
	err := s.db.WithContext(ctx).First(&row, "id = ? AND article_id = ?", commentID, articleID).Error
	if err != nil {
		return nil, notFound(err)
	}
	return row.toDomain(), nil
}

func (s *Store) UpdateComment(ctx context.Context, comment *domain.Comment) (*domain.Comment, error) {
	res := s.db.WithContext(ctx).Model(&commentRow{}).
		Where("id = ?", comment.ID).
		Update("content", comment.Content)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, storage.ErrNotFound
	}
	return s.GetComment(ctx, comment.ArticleID, comment.ID)
}

func (s *Store) DeleteComment(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&commentRow{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) ListCommentsByArticle(ctx context.Context, articleID uint) ([]*domain.Comment, error) {
	return s.listComments(ctx, "article_id = ?", articleID)
}

func (s *Store) ListCommentsByAuthor(ctx context.Context, userID uint) ([]*domain.Comment, error) {
	return s.listComments(ctx, "author_id = ?", userID)
}

func (s *Store) listComments(ctx context.Context, where string, id uint) ([]*domain.Comment, error) {
	var rows []*commentRow
	err := s.db.WithContext(ctx).
		Where(where, id).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	comments := make([]*domain.Comment, len(rows))
	for i, r := range rows {
		comments[i] = r.toDomain()
	}
	return comments, nil
}
