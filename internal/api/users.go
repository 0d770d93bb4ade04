package api

import (
	"net/http"

	"github.com/go-chi/render"

	"github.com/UkralStul/social-articles-service/internal/service"
)

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type deregisterRequest struct {
	Password string `json:"password"`
	Refresh  string `json:"refresh"`
}

func (h *handler) profile(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.Profile(r.Context(), principal(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, user)
}

func (h *handler) register(w http.ResponseWriter, r *http.Request) {
	var in service.RegisterInput
	if err := decode(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	user, err := h.svc.Register(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, user)
}

func (h *handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	var in service.ProfileInput
	if err := decode(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	user, err := h.svc.UpdateProfile(r.Context(), principal(r), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, user)
}

func (h *handler) deregister(w http.ResponseWriter, r *http.Request) {
	var in deregisterRequest
	if err := decode(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.svc.Deregister(r.Context(), principal(r), in.Password, in.Refresh); err != nil {
		writeError(w, r, err)
		return
	}
	render.NoContent(w, r)
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var in credentialsRequest
	if err := decode(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	pair, err := h.svc.Login(r.Context(), in.Username, in.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, pair)
}

func (h *handler) refresh(w http.ResponseWriter, r *http.Request) {
	var in refreshRequest
	if err := decode(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	access, err := h.svc.RefreshToken(r.Context(), in.Refresh)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"access": access})
}

func (h *handler) logout(w http.ResponseWriter, r *http.Request) {
	var in refreshRequest
	if err := decode(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.svc.Logout(r.Context(), in.Refresh); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{})
}

func (h *handler) toggleFollow(w http.ResponseWriter, r *http.Request) {
	targetID, err := idParam(r, "userId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	state, err := h.svc.ToggleFollow(r.Context(), principal(r), targetID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]service.FollowState{"state": state})
}

func (h *handler) followView(w http.ResponseWriter, r *http.Request) {
	targetID, err := idParam(r, "userId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	view, err := h.svc.FollowView(r.Context(), principal(r), targetID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, view)
}

func (h *handler) listUserArticles(w http.ResponseWriter, r *http.Request) {
	userID, err := idParam(r, "userId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	articles, err := h.svc.ListArticles(r.Context(), &userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, articles)
}

func (h *handler) listUserComments(w http.ResponseWriter, r *http.Request) {
	userID, err := idParam(r, "userId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	comments, err := h.svc.ListUserComments(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, comments)
}
