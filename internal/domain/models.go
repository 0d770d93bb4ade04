package domain

import "time"

// User представляет зарегистрированного пользователя.
type User struct {
	ID           uint       `json:"id" gorm:"primaryKey"`
	Username     string     `json:"username" gorm:"type:varchar(64);not null;uniqueIndex"`
	Email        string     `json:"email" gorm:"type:varchar(128);not null;uniqueIndex"`
	Fullname     string     `json:"fullname" gorm:"type:varchar(64);not null"`
	Nickname     string     `json:"nickname" gorm:"type:varchar(64);not null;uniqueIndex"`
	Birthday     *time.Time `json:"birthday,omitempty"`
	JoinDate     time.Time  `json:"joinDate" gorm:"not null"`
	IsActive     bool       `json:"isActive" gorm:"not null;default:true"`
	IsStaff      bool       `json:"isStaff" gorm:"not null;default:false"`
	PasswordHash string     `json:"-" gorm:"type:varchar(255);not null"`
}

// Article представляет статью пользователя.
type Article struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	AuthorID  uint      `json:"authorId" gorm:"not null;index"`
	Title     string    `json:"title" gorm:"type:varchar(128);not null"`
	Content   string    `json:"content" gorm:"type:text;not null"`
	Topic     Topic     `json:"topic" gorm:"type:varchar(64);not null"`
	CreatedAt time.Time `json:"createdAt" gorm:"not null"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"not null"`
}

// ArticleStats - статья с агрегатами, посчитанными в момент чтения.
type ArticleStats struct {
	Article
	LikesCount    int64 `json:"likesCount"`
	CommentsCount int64 `json:"commentsCount"`
}

// Comment представляет комментарий к статье.
// Владелец задается только через Owner, см. AuthoredBy и AnonymousWithSecret.
type Comment struct {
	ID        uint      `json:"id"`
	ArticleID uint      `json:"articleId"`
	Owner     Owner     `json:"-"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// Principal - аутентифицированный пользователь, от имени которого выполняется запрос.
type Principal struct {
	UserID   uint   `json:"userId"`
	Nickname string `json:"nickname"`
}

// Is сообщает, что принципал соответствует пользователю userID.
// Безопасно вызывать на nil (анонимный запрос).
func (p *Principal) Is(userID uint) bool {
	return p != nil && p.UserID == userID
}
