package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UkralStul/social-articles-service/internal/auth"
	"github.com/UkralStul/social-articles-service/internal/feed"
	"github.com/UkralStul/social-articles-service/internal/service"
	"github.com/UkralStul/social-articles-service/internal/storage/inmemory"
)

type testServer struct {
	*httptest.Server
	feed *feed.Observer
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := inmemory.New()
	gate, err := auth.NewGate(store, auth.Options{
		SecretKey:  "api-test-secret",
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
	}, auth.NewMemoryBlacklist(64, time.Hour))
	require.NoError(t, err)

	observer := feed.NewObserver()
	router := NewRouter(Deps{
		Service: service.New(store, gate, service.WithPublisher(observer)),
		Tokens:  gate,
		Feed:    observer,
		Users:   store,
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, feed: observer}
}

// call выполняет запрос и декодирует ответ в out, если он не nil.
func (s *testServer) call(t *testing.T, method, path, token string, body, out any) int {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, s.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

type account struct {
	ID      uint
	Access  string
	Refresh string
}

func (s *testServer) signUp(t *testing.T, name string) account {
	t.Helper()
	var user struct {
		ID uint `json:"id"`
	}
	status := s.call(t, http.MethodPost, "/user/", "", map[string]string{
		"username": name,
		"email":    name + "@example.com",
		"password": "pw-" + name,
		"fullname": "User " + name,
		"nickname": name + "_nick",
	}, &user)
	require.Equal(t, http.StatusCreated, status)

	var pair auth.TokenPair
	status = s.call(t, http.MethodPost, "/api/token/", "", map[string]string{
		"username": name,
		"password": "pw-" + name,
	}, &pair)
	require.Equal(t, http.StatusOK, status)
	return account{ID: user.ID, Access: pair.Access, Refresh: pair.Refresh}
}

func (s *testServer) postArticle(t *testing.T, a account, title string) uint {
	t.Helper()
	var article struct {
		ID uint `json:"id"`
	}
	status := s.call(t, http.MethodPost, "/articles/", a.Access, map[string]string{
		"title":   title,
		"content": "body of " + title,
		"topic":   "book",
	}, &article)
	require.Equal(t, http.StatusCreated, status)
	return article.ID
}

func articlePath(author account, articleID uint) string {
	return fmt.Sprintf("/%d/%d/", author.ID, articleID)
}

func TestUserEndpoints(t *testing.T) {
	srv := newTestServer(t)
	alice := srv.signUp(t, "alice")

	t.Run("profile requires auth", func(t *testing.T) {
		assert.Equal(t, http.StatusForbidden, srv.call(t, http.MethodGet, "/user/", "", nil, nil))
	})

	t.Run("profile of the caller", func(t *testing.T) {
		var user map[string]any
		require.Equal(t, http.StatusOK, srv.call(t, http.MethodGet, "/user/", alice.Access, nil, &user))
		assert.Equal(t, "alice", user["username"])
		assert.NotContains(t, user, "passwordHash")
	})

	t.Run("duplicate username", func(t *testing.T) {
		var resp errorResponse
		status := srv.call(t, http.MethodPost, "/user/", "", map[string]string{
			"username": "ALICE",
			"email":    "other@example.com",
			"password": "x",
			"nickname": "other",
		}, &resp)
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Contains(t, resp.Fields, "username")
	})

	t.Run("malformed body", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodPost, srv.URL+"/user/", strings.NewReader("{"))
		require.NoError(t, err)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("update profile", func(t *testing.T) {
		var user map[string]any
		status := srv.call(t, http.MethodPut, "/user/", alice.Access, map[string]string{
			"email":    "alice@new.example.com",
			"nickname": "alice_nick",
			"fullname": "Alice Updated",
		}, &user)
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, "Alice Updated", user["fullname"])
	})

	t.Run("bad token is rejected", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, srv.call(t, http.MethodGet, "/user/", "garbage", nil, nil))
	})
}

func TestTokenEndpoints(t *testing.T) {
	srv := newTestServer(t)
	bob := srv.signUp(t, "bob")

	assert.Equal(t, http.StatusForbidden, srv.call(t, http.MethodPost, "/api/token/", "", map[string]string{
		"username": "bob",
		"password": "wrong",
	}, nil))

	var refreshed map[string]string
	require.Equal(t, http.StatusOK, srv.call(t, http.MethodPost, "/api/token/refresh/", "", map[string]string{
		"refresh": bob.Refresh,
	}, &refreshed))
	assert.NotEmpty(t, refreshed["access"])
	assert.Equal(t, http.StatusOK, srv.call(t, http.MethodGet, "/user/", refreshed["access"], nil, nil))

	require.Equal(t, http.StatusOK, srv.call(t, http.MethodPost, "/api/token/blacklist/", "", map[string]string{
		"refresh": bob.Refresh,
	}, nil))
	assert.Equal(t, http.StatusForbidden, srv.call(t, http.MethodPost, "/api/token/refresh/", "", map[string]string{
		"refresh": bob.Refresh,
	}, nil))
}

func TestDeregister(t *testing.T) {
	srv := newTestServer(t)
	carol := srv.signUp(t, "carol")
	srv.postArticle(t, carol, "Carol's article")

	assert.Equal(t, http.StatusForbidden, srv.call(t, http.MethodDelete, "/user/", carol.Access, map[string]string{
		"password": "wrong",
		"refresh":  carol.Refresh,
	}, nil))
	require.Equal(t, http.StatusNoContent, srv.call(t, http.MethodDelete, "/user/", carol.Access, map[string]string{
		"password": "pw-carol",
		"refresh":  carol.Refresh,
	}, nil))

	var articles []map[string]any
	require.Equal(t, http.StatusOK, srv.call(t, http.MethodGet, "/articles/", "", nil, &articles))
	assert.Empty(t, articles)

	// access токен удаленного пользователя больше не принимается
	assert.Equal(t, http.StatusUnauthorized, srv.call(t, http.MethodPost, "/articles/", carol.Access, map[string]string{
		"title": "ghost", "content": "x", "topic": "book",
	}, nil))
}

func TestFollowEndpoints(t *testing.T) {
	srv := newTestServer(t)
	alice := srv.signUp(t, "alice")
	bob := srv.signUp(t, "bob")
	followPath := func(a account) string { return fmt.Sprintf("/%d/follow/", a.ID) }

	t.Run("anonymous cannot follow", func(t *testing.T) {
		assert.Equal(t, http.StatusForbidden, srv.call(t, http.MethodPost, followPath(bob), "", nil, nil))
	})

	t.Run("self follow is forbidden", func(t *testing.T) {
		assert.Equal(t, http.StatusForbidden, srv.call(t, http.MethodPost, followPath(alice), alice.Access, nil, nil))
	})

	t.Run("unknown user", func(t *testing.T) {
		assert.Equal(t, http.StatusNotFound, srv.call(t, http.MethodPost, "/999/follow/", alice.Access, nil, nil))
	})

	var resp map[string]string
	require.Equal(t, http.StatusOK, srv.call(t, http.MethodPost, followPath(bob), alice.Access, nil, &resp))
	assert.Equal(t, "followed", resp["state"])

	// Одна сторона: граф bob скрыт от alice
	assert.Equal(t, http.StatusForbidden, srv.call(t, http.MethodGet, followPath(bob), alice.Access, nil, nil))

	require.Equal(t, http.StatusOK, srv.call(t, http.MethodPost, followPath(alice), bob.Access, nil, &resp))
	assert.Equal(t, "followed", resp["state"])

	var view service.FollowView
	require.Equal(t, http.StatusOK, srv.call(t, http.MethodGet, followPath(bob), alice.Access, nil, &view))
	assert.Contains(t, view.Followers, "alice_nick")
	assert.Contains(t, view.Followees, "alice_nick")

	require.Equal(t, http.StatusOK, srv.call(t, http.MethodPost, followPath(bob), alice.Access, nil, &resp))
	assert.Equal(t, "unfollowed", resp["state"])
	assert.Equal(t, http.StatusForbidden, srv.call(t, http.MethodGet, followPath(bob), alice.Access, nil, nil))

	// Свой граф виден всегда
	assert.Equal(t, http.StatusOK, srv.call(t, http.MethodGet, followPath(bob), bob.Access, nil, nil))
}

func TestArticleEndpoints(t *testing.T) {
	srv := newTestServer(t)
	alice := srv.signUp(t, "alice")
	bob := srv.signUp(t, "bob")
	articleID := srv.postArticle(t, alice, "First")

	t.Run("anonymous cannot publish", func(t *testing.T) {
		assert.Equal(t, http.StatusForbidden, srv.call(t, http.MethodPost, "/articles/", "", map[string]string{
			"title": "x", "content": "y", "topic": "book",
		}, nil))
	})

	t.Run("unknown topic", func(t *testing.T) {
		var resp errorResponse
		status := srv.call(t, http.MethodPost, "/articles/", alice.Access, map[string]string{
			"title": "x", "content": "y", "topic": "sports",
		}, &resp)
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Contains(t, resp.Fields, "topic")
	})

	t.Run("detail is scoped by author", func(t *testing.T) {
		var detail map[string]any
		require.Equal(t, http.StatusOK, srv.call(t, http.MethodGet, articlePath(alice, articleID), "", nil, &detail))
		assert.Equal(t, "First", detail["title"])
		assert.Equal(t, "alice_nick", detail["author"])
		assert.Equal(t, http.StatusNotFound, srv.call(t, http.MethodGet, articlePath(bob, articleID), "", nil, nil))
		assert.Equal(t, http.StatusNotFound, srv.call(t, http.MethodGet, fmt.Sprintf("/%d/abc/", alice.ID), "", nil, nil))
	})

	t.Run("only the author may edit", func(t *testing.T) {
		body := map[string]string{"title": "Edited", "content": "new", "topic": "music"}
		assert.Equal(t, http.StatusForbidden, srv.call(t, http.MethodPut, articlePath(alice, articleID), bob.Access, body, nil))
		assert.Equal(t, http.StatusForbidden, srv.call(t, http.MethodPut, articlePath(alice, articleID), "", body, nil))

		var article map[string]any
		require.Equal(t, http.StatusOK, srv.call(t, http.MethodPut, articlePath(alice, articleID), alice.Access, body, &article))
		assert.Equal(t, "Edited", article["title"])
		assert.Equal(t, "music", article["topic"])
	})

	t.Run("likes", func(t *testing.T) {
		likes := articlePath(alice, articleID) + "likes/"
		assert.Equal(t, http.StatusForbidden, srv.call(t, http.MethodPost, likes, alice.Access, nil, nil))
		assert.Equal(t, http.StatusForbidden, srv.call(t, http.MethodPost, likes, "", nil, nil))

		var res service.LikeResult
		require.Equal(t, http.StatusOK, srv.call(t, http.MethodPost, likes, bob.Access, nil, &res))
		assert.True(t, res.Liked)
		assert.EqualValues(t, 1, res.LikesCount)

		var list []map[string]any
		require.Equal(t, http.StatusOK, srv.call(t, http.MethodGet, fmt.Sprintf("/%d/articles/", alice.ID), "", nil, &list))
		require.Len(t, list, 1)
		assert.EqualValues(t, 1, list[0]["likesCount"])

		require.Equal(t, http.StatusOK, srv.call(t, http.MethodPost, likes, bob.Access, nil, &res))
		assert.False(t, res.Liked)
		assert.EqualValues(t, 0, res.LikesCount)
	})

	t.Run("delete", func(t *testing.T) {
		assert.Equal(t, http.StatusForbidden, srv.call(t, http.MethodDelete, articlePath(alice, articleID), bob.Access, nil, nil))
		require.Equal(t, http.StatusNoContent, srv.call(t, http.MethodDelete, articlePath(alice, articleID), alice.Access, nil, nil))
		assert.Equal(t, http.StatusNotFound, srv.call(t, http.MethodGet, articlePath(alice, articleID), "", nil, nil))
	})
}

func TestCommentEndpoints(t *testing.T) {
	srv := newTestServer(t)
	alice := srv.signUp(t, "alice")
	bob := srv.signUp(t, "bob")
	articleID := srv.postArticle(t, alice, "Commented")
	comments := articlePath(alice, articleID) + "comments/"

	t.Run("anonymous without password", func(t *testing.T) {
		var resp errorResponse
		status := srv.call(t, http.MethodPost, comments, "", map[string]string{"content": "hi"}, &resp)
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Contains(t, resp.Fields, "password")
	})

	var anon service.CommentView
	require.Equal(t, http.StatusCreated, srv.call(t, http.MethodPost, comments, "", map[string]string{
		"content":  "anonymous hello",
		"password": "s3cret",
	}, &anon))
	assert.True(t, anon.Anonymous)
	assert.Nil(t, anon.AuthorID)
	anonPath := fmt.Sprintf("%s%d/", comments, anon.ID)

	t.Run("anonymous edit needs the password", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, srv.call(t, http.MethodPut, anonPath, "", map[string]string{"content": "x"}, nil))
		assert.Equal(t, http.StatusForbidden, srv.call(t, http.MethodPut, anonPath, "", map[string]string{
			"content": "x", "password": "wrong",
		}, nil))

		var updated service.CommentView
		require.Equal(t, http.StatusOK, srv.call(t, http.MethodPut, anonPath, "", map[string]string{
			"content": "edited", "password": "s3cret",
		}, &updated))
		assert.Equal(t, "edited", updated.Content)
	})

	var authored service.CommentView
	require.Equal(t, http.StatusCreated, srv.call(t, http.MethodPost, comments, bob.Access, map[string]string{
		"content": "bob says hi",
	}, &authored))
	assert.Equal(t, "bob_nick", authored.Author)
	authoredPath := fmt.Sprintf("%s%d/", comments, authored.ID)

	t.Run("authored comment belongs to its author", func(t *testing.T) {
		assert.Equal(t, http.StatusForbidden, srv.call(t, http.MethodPut, authoredPath, alice.Access, map[string]string{"content": "x"}, nil))
		assert.Equal(t, http.StatusForbidden, srv.call(t, http.MethodDelete, authoredPath, alice.Access, nil, nil))
	})

	t.Run("user comments listing", func(t *testing.T) {
		var list []service.CommentView
		require.Equal(t, http.StatusOK, srv.call(t, http.MethodGet, fmt.Sprintf("/%d/comments/", bob.ID), "", nil, &list))
		require.Len(t, list, 1)
		assert.Equal(t, authored.ID, list[0].ID)
	})

	t.Run("article author moderates anonymous comments", func(t *testing.T) {
		require.Equal(t, http.StatusNoContent, srv.call(t, http.MethodDelete, anonPath, alice.Access, nil, nil))
		assert.Equal(t, http.StatusNotFound, srv.call(t, http.MethodDelete, anonPath, alice.Access, nil, nil))
	})

	require.Equal(t, http.StatusNoContent, srv.call(t, http.MethodDelete, authoredPath, bob.Access, nil, nil))

	var detail service.ArticleDetail
	require.Equal(t, http.StatusOK, srv.call(t, http.MethodGet, articlePath(alice, articleID), "", nil, &detail))
	assert.Empty(t, detail.Comments)
}

func TestLiveComments(t *testing.T) {
	srv := newTestServer(t)
	alice := srv.signUp(t, "alice")
	articleID := srv.postArticle(t, alice, "Live")

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + articlePath(alice, articleID) + "comments/live/"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	// Подписка регистрируется до апгрейда, поэтому к этому моменту она уже есть
	assert.Equal(t, 1, srv.feed.Subscribers(articleID))

	require.Equal(t, http.StatusCreated, srv.call(t, http.MethodPost, articlePath(alice, articleID)+"comments/", alice.Access,
		map[string]string{"content": "streamed"}, nil))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var event feed.Event
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, "streamed", event.Content)
	assert.Equal(t, articleID, event.ArticleID)
	assert.Equal(t, "alice_nick", event.Author)
	assert.False(t, event.Anonymous)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return srv.feed.Subscribers(articleID) == 0 }, 3*time.Second, 20*time.Millisecond)
}

func TestLiveComments_UnknownArticle(t *testing.T) {
	srv := newTestServer(t)
	alice := srv.signUp(t, "alice")

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + fmt.Sprintf("/%d/42/comments/live/", alice.ID)
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCORS_CredentialsOnlyForExplicitOrigins(t *testing.T) {
	preflight := func(origins []string) http.Header {
		router := NewRouter(Deps{AllowedOrigins: origins})
		req := httptest.NewRequest(http.MethodOptions, "/articles/", nil)
		req.Header.Set("Origin", "http://app.example.com")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec.Header()
	}

	wildcard := preflight(nil)
	assert.Equal(t, "*", wildcard.Get("Access-Control-Allow-Origin"))
	assert.Empty(t, wildcard.Get("Access-Control-Allow-Credentials"))

	explicit := preflight([]string{"http://app.example.com"})
	assert.Equal(t, "http://app.example.com", explicit.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", explicit.Get("Access-Control-Allow-Credentials"))
}
