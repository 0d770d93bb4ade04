package gormstore

import (
	"time"

	"github.com/UkralStul/social-articles-service/internal/domain"
)

// followRow - ребро подписки, составной ключ (follower_id, followee_id).
type followRow struct {
	FollowerID uint      `gorm:"primaryKey;autoIncrement:false;check:chk_follows_no_self,follower_id <> followee_id"`
	FolloweeID uint      `gorm:"primaryKey;autoIncrement:false;index"`
	CreatedAt  time.Time `gorm:"not null"`
}

func (followRow) TableName() string { return "follows" }

// likeRow - ребро лайка, составной ключ (user_id, article_id).
type likeRow struct {
	UserID    uint      `gorm:"primaryKey;autoIncrement:false"`
	ArticleID uint      `gorm:"primaryKey;autoIncrement:false;index"`
	CreatedAt time.Time `gorm:"not null"`
}

func (likeRow) TableName() string { return "article_likes" }

// commentRow - хранимое представление комментария.
// Ровно одно из AuthorID / PasswordHash заполнено.
type commentRow struct {
	ID           uint      `gorm:"primaryKey"`
	ArticleID    uint      `gorm:"not null;index"`
	AuthorID     *uint     `gorm:"index"`
	PasswordHash *string   `gorm:"type:varchar(255)"`
	Content      string    `gorm:"type:text;not null"`
	CreatedAt    time.Time `gorm:"not null"`
}

func (commentRow) TableName() string { return "comments" }

func toCommentRow(c *domain.Comment) *commentRow {
	row := &commentRow{
		ID:        c.ID,
		ArticleID: c.ArticleID,
		Content:   c.Content,
		CreatedAt: c.CreatedAt,
	}
	if author, ok := c.Owner.Author(); ok {
		row.AuthorID = &author
	} else if secret, ok := c.Owner.Secret(); ok {
		row.PasswordHash = &secret
	}
	return row
}

func (r *commentRow) toDomain() *domain.Comment {
	c := &domain.Comment{
		ID:        r.ID,
		ArticleID: r.ArticleID,
		Content:   r.Content,
		CreatedAt: r.CreatedAt,
	}
	switch {
	case r.AuthorID != nil:
		c.Owner = domain.AuthoredBy(*r.AuthorID)
	case r.PasswordHash != nil:
		c.Owner = domain.AnonymousWithSecret(*r.PasswordHash)
	}
	return c
}

// edgeTable описывает таблицу, в которой хранится ребро данного типа.
type edgeTable struct {
	model   any
	fromCol string
	toCol   string
	row     func(from, to uint) any
}

var edgeTables = map[domain.EdgeKind]edgeTable{
	domain.EdgeFollow: {
		model:   &followRow{},
		fromCol: "follower_id",
		toCol:   "followee_id",
		row: func(from, to uint) any {
			return &followRow{FollowerID: from, FolloweeID: to, CreatedAt: time.Now().UTC()}
		},
	},
	domain.EdgeLike: {
		model:   &likeRow{},
		fromCol: "user_id",
		toCol:   "article_id",
		row: func(from, to uint) any {
			return &likeRow{UserID: from, ArticleID: to, CreatedAt: time.Now().UTC()}
		},
	},
}
