package api

import (
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/render"

	"github.com/UkralStul/social-articles-service/internal/domain"
)

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// statusOf сопоставляет доменную ошибку HTTP статусу.
func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrAuth), errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	resp := errorResponse{Error: err.Error()}
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		resp.Fields = ve.Fields
	}
	if status == http.StatusInternalServerError {
		log.Printf("request %s %s failed: %v", r.Method, r.URL.Path, err)
		resp.Error = "internal server error"
	}
	render.Status(r, status)
	render.JSON(w, r, resp)
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	render.Status(r, status)
	render.JSON(w, r, v)
}

// decode читает JSON тело. Пустое тело допустимо и оставляет v нулевым.
func decode(r *http.Request, v any) error {
	if err := render.DecodeJSON(r.Body, v); err != nil && !errors.Is(err, io.EOF) {
		return domain.Validation("malformed request body: %v", err)
	}
	return nil
}
