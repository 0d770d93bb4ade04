// Package api - HTTP слой сервиса поверх chi.
package api

import (
	"context"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"

	"github.com/UkralStul/social-articles-service/internal/dataloader"
	"github.com/UkralStul/social-articles-service/internal/domain"
	"github.com/UkralStul/social-articles-service/internal/feed"
	"github.com/UkralStul/social-articles-service/internal/service"
)

// TokenValidator проверяет access токен из заголовка Authorization.
type TokenValidator interface {
	ValidateAccess(ctx context.Context, token string) (domain.Principal, error)
}

// Deps - зависимости HTTP слоя.
type Deps struct {
	Service        *service.Service
	Tokens         TokenValidator
	Feed           *feed.Observer
	Users          dataloader.UserSource
	AllowedOrigins []string
	// AccessLog включает middleware.Logger
	AccessLog bool
}

type handler struct {
	svc      *service.Service
	tokens   TokenValidator
	feed     *feed.Observer
	upgrader websocket.Upgrader
}

// NewRouter собирает chi роутер со всеми маршрутами.
func NewRouter(d Deps) http.Handler {
	h := &handler{
		svc:    d.Service,
		tokens: d.Tokens,
		feed:   d.Feed,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	origins := d.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	// Браузеры не принимают credentials вместе с Allow-Origin: *
	credentials := !slices.Contains(origins, "*")

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	if d.AccessLog {
		router.Use(middleware.Logger)
	}
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: credentials,
		MaxAge:           int((120 * time.Hour).Seconds()),
	}))
	router.Use(func(next http.Handler) http.Handler {
		return dataloader.Middleware(d.Users, next)
	})
	router.Use(h.authenticate)

	// Профиль, регистрация, удаление аккаунта
	router.Get("/user/", h.profile)
	router.Post("/user/", h.register)
	router.Put("/user/", h.updateProfile)
	router.Delete("/user/", h.deregister)

	// Токены
	router.Post("/api/token/", h.login)
	router.Post("/api/token/refresh/", h.refresh)
	router.Post("/api/token/blacklist/", h.logout)

	router.Get("/articles/", h.listArticles)
	router.Post("/articles/", h.createArticle)

	router.Route("/{userId}", func(r chi.Router) {
		r.Post("/follow/", h.toggleFollow)
		r.Get("/follow/", h.followView)
		r.Get("/articles/", h.listUserArticles)
		r.Get("/comments/", h.listUserComments)

		r.Route("/{articleId}", func(r chi.Router) {
			r.Get("/", h.articleDetail)
			r.Put("/", h.updateArticle)
			r.Delete("/", h.deleteArticle)
			r.Post("/likes/", h.toggleLike)

			r.Post("/comments/", h.createComment)
			r.Get("/comments/live/", h.liveComments)
			r.Put("/comments/{commentId}/", h.updateComment)
			r.Delete("/comments/{commentId}/", h.deleteComment)
		})
	})

	return router
}
