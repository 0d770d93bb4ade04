package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/UkralStul/social-articles-service/internal/domain"
)

type contextKey string

const principalKey = contextKey("principal")

// authenticate кладет принципала в контекст запроса. Без заголовка запрос анонимный,
// с неверным токеном отклоняется с 401.
func (h *handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, errorResponse{Error: "authorization header must be 'Bearer <token>'"})
			return
		}

		p, err := h.tokens.ValidateAccess(r.Context(), parts[1])
		if err != nil {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, errorResponse{Error: "token is invalid or expired"})
			return
		}
		ctx := context.WithValue(r.Context(), principalKey, &p)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// principal возвращает принципала запроса или nil для анонима.
func principal(r *http.Request) *domain.Principal {
	p, _ := r.Context().Value(principalKey).(*domain.Principal)
	return p
}

// idParam разбирает числовой параметр пути. Нечисловой id означает отсутствие ресурса.
func idParam(r *http.Request, name string) (uint, error) {
	id, err := strconv.ParseUint(chi.URLParam(r, name), 10, 64)
	if err != nil || id == 0 {
		return 0, domain.NotFound("%s not found", strings.TrimSuffix(name, "Id"))
	}
	return uint(id), nil
}
