package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"gatherly/internal/engagement"
	"gatherly/internal/shared/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	mu    sync.Mutex
	calls []string
	likes map[string]bool
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()
	write := func(w http.ResponseWriter, code int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(v)
	}
	authed := func(r *http.Request) bool { return r.Header.Get("Authorization") == "Bearer tok-1" }

	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		var in map[string]string
		_ = json.NewDecoder(r.Body).Decode(&in)
		if in["password"] != "secret" {
			write(w, http.StatusUnauthorized, map[string]any{"error": "wrong credentials", "reason": "auth_required"})
			return
		}
		write(w, http.StatusOK, Session{Token: "tok-1", UserID: "u1"})
	})
	mux.HandleFunc("GET /posts", func(w http.ResponseWriter, r *http.Request) {
		f.record(r.Method + " " + r.URL.String())
		if r.URL.Query().Get("relations") == "1" {
			write(w, http.StatusOK, map[string]any{"entries": []engagement.Entry{{
				Post:  engagement.Post{ID: "p1", Title: "hello"},
				Likes: []engagement.Relation{{ID: "l1", PostID: "p1", UserID: "u1"}},
			}}})
			return
		}
		write(w, http.StatusOK, map[string]any{"items": []engagement.Item{{
			Post: engagement.Post{ID: "p1"},
			View: engagement.View{IsLiked: true, LikeCount: 1},
		}}})
	})
	mux.HandleFunc("/posts/{post_id}/like", func(w http.ResponseWriter, r *http.Request) {
		f.record(r.Method + " " + r.URL.Path)
		if !authed(r) {
			write(w, http.StatusUnauthorized, map[string]any{"error": "unauthorized"})
			return
		}
		pid := r.PathValue("post_id")
		f.mu.Lock()
		defer f.mu.Unlock()
		switch {
		case pid == "missing":
			write(w, http.StatusNotFound, map[string]any{"error": "post not found", "reason": "not_found"})
		case r.Method == http.MethodPut && f.likes[pid]:
			write(w, http.StatusConflict, map[string]any{"error": "duplicate", "reason": "conflict"})
		case r.Method == http.MethodPut:
			f.likes[pid] = true
			write(w, http.StatusOK, map[string]any{"post_id": pid, "is_liked": true, "like_count": 1})
		default:
			delete(f.likes, pid)
			write(w, http.StatusOK, map[string]any{"post_id": pid})
		}
	})
	mux.HandleFunc("POST /posts", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			write(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
			return
		}
		it := engagement.Item{Post: engagement.Post{ID: "p9", Title: r.FormValue("title")}}
		if file, _, err := r.FormFile("file"); err == nil {
			b, _ := io.ReadAll(file)
			it.ImageURL = "http://img/" + string(b)
		}
		write(w, http.StatusCreated, it)
	})
	return mux
}

func (f *fakeAPI) record(s string) {
	f.mu.Lock()
	f.calls = append(f.calls, s)
	f.mu.Unlock()
}

func newTestClient(t *testing.T) (*Client, *fakeAPI) {
	t.Helper()
	api := &fakeAPI{likes: map[string]bool{}}
	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)
	return New(srv.URL, WithHTTPClient(srv.Client()), WithRateLimit(1000, 100)), api
}

func TestClient_LoginStoresSession(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	_, err := c.Login(ctx, "a@b.c", "nope")
	require.Error(t, err)
	assert.ErrorIs(t, err, engagement.ErrAuthRequired)
	assert.True(t, IsStatus(err, http.StatusUnauthorized))
	assert.Empty(t, c.UserID())

	s, err := c.Login(ctx, "a@b.c", "secret")
	require.NoError(t, err)
	assert.Equal(t, Session{Token: "tok-1", UserID: "u1"}, s)
	assert.Equal(t, "u1", c.UserID())

	c.SignOut()
	assert.Empty(t, c.Session().Token)
}

func TestClient_EntriesAndItems(t *testing.T) {
	c, api := newTestClient(t)
	ctx := context.Background()

	entries, err := c.Entries(ctx, ListOptions{Limit: 10})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "p1", entries[0].Post.ID)
	assert.Len(t, entries[0].Likes, 1)

	items, err := c.Items(ctx, ListOptions{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.True(t, items[0].IsLiked)

	assert.Equal(t, []string{"GET /posts?limit=10&relations=1", "GET /posts"}, api.calls)
}

func TestListPath(t *testing.T) {
	cases := map[string]struct {
		opts      ListOptions
		relations bool
		want      string
	}{
		"feed":       {ListOptions{}, false, "/posts"},
		"author":     {ListOptions{Scope: "author", UserID: "u1", Offset: 5}, false, "/users/u1/posts?offset=5"},
		"liked":      {ListOptions{Scope: "liked", UserID: "u1"}, true, "/users/u1/likes?relations=1"},
		"bookmarked": {ListOptions{Scope: "bookmarked", UserID: "u 2"}, false, "/users/u%202/bookmarks"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, listPath(tc.opts, tc.relations))
		})
	}
}

func TestClient_WriterRequiresMatchingSession(t *testing.T) {
	c, api := newTestClient(t)
	ctx := context.Background()

	err := c.Insert(ctx, engagement.Like, "u1", "p1")
	assert.ErrorIs(t, err, engagement.ErrAuthRequired)
	assert.Empty(t, api.calls)

	_, err = c.Login(ctx, "a@b.c", "secret")
	require.NoError(t, err)

	err = c.Insert(ctx, engagement.Like, "someone-else", "p1")
	assert.ErrorIs(t, err, engagement.ErrAuthRequired)
	assert.Empty(t, api.calls)
}

func TestClient_InsertDelete(t *testing.T) {
	c, api := newTestClient(t)
	ctx := context.Background()
	_, err := c.Login(ctx, "a@b.c", "secret")
	require.NoError(t, err)

	require.NoError(t, c.Insert(ctx, engagement.Like, "u1", "p1"))
	err = c.Insert(ctx, engagement.Like, "u1", "p1")
	assert.ErrorIs(t, err, apperr.ErrConflict)

	require.NoError(t, c.Delete(ctx, engagement.Like, "u1", "p1"))
	assert.ErrorIs(t, c.Delete(ctx, engagement.Like, "u1", "missing"), apperr.ErrNotFound)

	assert.Equal(t, []string{
		"PUT /posts/p1/like",
		"PUT /posts/p1/like",
		"DELETE /posts/p1/like",
		"DELETE /posts/missing/like",
	}, api.calls)
}

func TestClient_BoardRollsBackOnServerError(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()
	_, err := c.Login(ctx, "a@b.c", "secret")
	require.NoError(t, err)

	entries := []engagement.Entry{
		{Post: engagement.Post{ID: "p1"}},
		{Post: engagement.Post{ID: "missing"}},
	}
	b := engagement.NewBoard(engagement.NewMutator(c))
	b.Replace(entries, c.UserID())

	v, err := b.Toggle(ctx, "p1", engagement.Like)
	require.NoError(t, err)
	assert.Equal(t, engagement.View{IsLiked: true, LikeCount: 1}, v)

	_, err = b.Toggle(ctx, "missing", engagement.Like)
	require.Error(t, err)
	assert.True(t, errors.Is(err, engagement.ErrRemoteWriteFailed))
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	it, ok := b.Get("missing")
	require.True(t, ok)
	assert.Equal(t, engagement.View{}, it.View)
}

func TestClient_CreatePostMultipart(t *testing.T) {
	c, _ := newTestClient(t)
	it, err := c.CreatePost(context.Background(), "sunset", "", "a.jpg", strings.NewReader("pixels"))
	require.NoError(t, err)
	assert.Equal(t, "p9", it.ID)
	assert.Equal(t, "sunset", it.Title)
	assert.Equal(t, "http://img/pixels", it.ImageURL)
}

func TestStatusError_Message(t *testing.T) {
	err := &StatusError{Code: 409, Message: "duplicate", Reason: "conflict"}
	assert.Equal(t, "409 conflict: duplicate", err.Error())
	assert.False(t, errors.Is(err, apperr.ErrNotFound))
}
