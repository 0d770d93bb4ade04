package api

import (
	"net/http"

	"github.com/go-chi/render"

	"github.com/UkralStul/social-articles-service/internal/service"
)

// articleKey разбирает пару (автор, статья) из пути.
func articleKey(r *http.Request) (uint, uint, error) {
	authorID, err := idParam(r, "userId")
	if err != nil {
		return 0, 0, err
	}
	articleID, err := idParam(r, "articleId")
	if err != nil {
		return 0, 0, err
	}
	return authorID, articleID, nil
}

func (h *handler) listArticles(w http.ResponseWriter, r *http.Request) {
	articles, err := h.svc.ListArticles(r.Context(), nil)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, articles)
}

func (h *handler) createArticle(w http.ResponseWriter, r *http.Request) {
	var in service.ArticleInput
	if err := decode(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	article, err := h.svc.CreateArticle(r.Context(), principal(r), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, article)
}

func (h *handler) articleDetail(w http.ResponseWriter, r *http.Request) {
	authorID, articleID, err := articleKey(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	detail, err := h.svc.GetArticleDetail(r.Context(), authorID, articleID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, detail)
}

func (h *handler) updateArticle(w http.ResponseWriter, r *http.Request) {
	authorID, articleID, err := articleKey(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in service.ArticleInput
	if err := decode(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	article, err := h.svc.UpdateArticle(r.Context(), principal(r), authorID, articleID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, article)
}

func (h *handler) deleteArticle(w http.ResponseWriter, r *http.Request) {
	authorID, articleID, err := articleKey(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.svc.DeleteArticle(r.Context(), principal(r), authorID, articleID); err != nil {
		writeError(w, r, err)
		return
	}
	render.NoContent(w, r)
}

func (h *handler) toggleLike(w http.ResponseWriter, r *http.Request) {
	authorID, articleID, err := articleKey(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.svc.ToggleLike(r.Context(), principal(r), authorID, articleID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}
