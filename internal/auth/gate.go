package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	"github.com/UkralStul/social-articles-service/internal/domain"
	"github.com/UkralStul/social-articles-service/internal/storage"
)

const (
	TokenAccess  = "access"
	TokenRefresh = "refresh"
)

// Claims - полезная нагрузка JWT.
type Claims struct {
	Nickname string `json:"nickname"`
	Type     string `json:"typ"`
	jwt.RegisteredClaims
}

// TokenPair выдается при входе.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// UserFinder - то, что Gate нужно от хранилища.
type UserFinder interface {
	GetUserByID(ctx context.Context, id uint) (*domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
}

// Options - параметры выпуска токенов.
type Options struct {
	SecretKey  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Gate аутентифицирует пользователей и управляет парами токенов.
type Gate struct {
	users   UserFinder
	opts    Options
	revoked Blacklist
	now     func() time.Time
}

func NewGate(users UserFinder, opts Options, revoked Blacklist) (*Gate, error) {
	if opts.SecretKey == "" {
		return nil, errors.New("secret key must be set")
	}
	if opts.AccessTTL <= 0 || opts.RefreshTTL <= 0 {
		return nil, errors.New("token lifetimes must be positive")
	}
	return &Gate{users: users, opts: opts, revoked: revoked, now: time.Now}, nil
}

// Authenticate проверяет логин и пароль.
func (g *Gate) Authenticate(ctx context.Context, username, password string) (domain.Principal, error) {
	user, err := g.users.GetUserByUsername(ctx, domain.NormalizeUsername(username))
	if errors.Is(err, storage.ErrNotFound) {
		return domain.Principal{}, domain.Auth("no active account found with the given credentials")
	}
	if err != nil {
		return domain.Principal{}, fmt.Errorf("lookup user: %w", err)
	}
	if !user.IsActive || !VerifyPassword(password, user.PasswordHash) {
		return domain.Principal{}, domain.Auth("no active account found with the given credentials")
	}
	return domain.Principal{UserID: user.ID, Nickname: user.Nickname}, nil
}

// IssueTokenPair выпускает access и refresh токены для принципала.
func (g *Gate) IssueTokenPair(_ context.Context, p domain.Principal) (TokenPair, error) {
	access, err := g.sign(p, TokenAccess, g.opts.AccessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := g.sign(p, TokenRefresh, g.opts.RefreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{Access: access, Refresh: refresh}, nil
}

// ValidateAccess проверяет access токен и возвращает принципала.
// Токен удаленного или деактивированного пользователя недействителен.
func (g *Gate) ValidateAccess(ctx context.Context, token string) (domain.Principal, error) {
	return g.principal(ctx, token, TokenAccess)
}

// Refresh выпускает новый access токен по действующему refresh токену.
func (g *Gate) Refresh(ctx context.Context, refresh string) (string, error) {
	p, err := g.principal(ctx, refresh, TokenRefresh)
	if err != nil {
		return "", err
	}
	return g.sign(p, TokenAccess, g.opts.AccessTTL)
}

// RefreshOwner возвращает владельца действующего refresh токена, не отзывая его.
func (g *Gate) RefreshOwner(ctx context.Context, refresh string) (domain.Principal, error) {
	return g.principal(ctx, refresh, TokenRefresh)
}

// Revoke отзывает токен до окончания его срока действия.
func (g *Gate) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return domain.Auth("token is required")
	}
	claims, err := g.parse(ctx, token, "")
	if err != nil {
		return err
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if err := g.revoked.Revoke(ctx, claims.ID, ttl); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func (g *Gate) sign(p domain.Principal, typ string, ttl time.Duration) (string, error) {
	now := g.now()
	claims := &Claims{
		Nickname: p.Nickname,
		Type:     typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatUint(uint64(p.UserID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(g.opts.SecretKey))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// parse проверяет подпись, срок, тип (если задан) и отсутствие в списке отзыва.
func (g *Gate) parse(ctx context.Context, raw, wantType string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(g.opts.SecretKey), nil
	})
	if err != nil || !token.Valid {
		return nil, domain.Auth("token is invalid or expired")
	}
	if wantType != "" && claims.Type != wantType {
		return nil, domain.Auth("token has wrong type")
	}
	if claims.ID == "" || claims.ExpiresAt == nil {
		return nil, domain.Auth("token is invalid or expired")
	}
	revoked, err := g.revoked.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return nil, domain.Auth("token is blacklisted")
	}
	return claims, nil
}

func (g *Gate) principal(ctx context.Context, raw, wantType string) (domain.Principal, error) {
	claims, err := g.parse(ctx, raw, wantType)
	if err != nil {
		return domain.Principal{}, err
	}
	p, err := principalFrom(claims)
	if err != nil {
		return domain.Principal{}, err
	}
	if err := g.ensureActive(ctx, p.UserID); err != nil {
		return domain.Principal{}, err
	}
	return p, nil
}

// ensureActive отклоняет токены удаленных и деактивированных пользователей.
func (g *Gate) ensureActive(ctx context.Context, userID uint) error {
	user, err := g.users.GetUserByID(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return domain.Auth("user no longer exists")
	}
	if err != nil {
		return fmt.Errorf("lookup user: %w", err)
	}
	if !user.IsActive {
		return domain.Auth("user is inactive")
	}
	return nil
}

func principalFrom(c *Claims) (domain.Principal, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil || id == 0 {
		return domain.Principal{}, domain.Auth("token has no valid subject")
	}
	return domain.Principal{UserID: uint(id), Nickname: c.Nickname}, nil
}
