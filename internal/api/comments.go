package api

import (
	"log"
	"net/http"
	"time"

	"github.com/go-chi/render"
	"github.com/gorilla/websocket"

	"github.com/UkralStul/social-articles-service/internal/service"
)

const (
	feedBuffer     = 16
	feedPingPeriod = 30 * time.Second
	feedWriteWait  = 10 * time.Second
)

type deleteCommentRequest struct {
	Password string `json:"password"`
}

func (h *handler) createComment(w http.ResponseWriter, r *http.Request) {
	authorID, articleID, err := articleKey(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in service.CommentInput
	if err := decode(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	comment, err := h.svc.CreateComment(r.Context(), principal(r), authorID, articleID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, comment)
}

func (h *handler) updateComment(w http.ResponseWriter, r *http.Request) {
	authorID, articleID, err := articleKey(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	commentID, err := idParam(r, "commentId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in service.CommentInput
	if err := decode(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	comment, err := h.svc.UpdateComment(r.Context(), principal(r), authorID, articleID, commentID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, comment)
}

func (h *handler) deleteComment(w http.ResponseWriter, r *http.Request) {
	authorID, articleID, err := articleKey(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	commentID, err := idParam(r, "commentId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in deleteCommentRequest
	if err := decode(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.svc.DeleteComment(r.Context(), principal(r), authorID, articleID, commentID, in.Password); err != nil {
		writeError(w, r, err)
		return
	}
	render.NoContent(w, r)
}

// liveComments отдает новые комментарии статьи через websocket.
func (h *handler) liveComments(w http.ResponseWriter, r *http.Request) {
	authorID, articleID, err := articleKey(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	article, err := h.svc.Article(r.Context(), authorID, articleID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	// Подписываемся до апгрейда, чтобы не пропустить события сразу после рукопожатия
	events, cancel := h.feed.Subscribe(article.ID, feedBuffer)
	defer cancel()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade уже ответил клиенту
		log.Printf("websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	// Читаем входящие только для обработки close/pong
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(feedPingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-closed:
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
			if err := conn.WriteJSON(e); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(feedWriteWait)); err != nil {
				return
			}
		}
	}
}
