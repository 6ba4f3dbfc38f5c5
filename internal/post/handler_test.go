package post

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"gatherly/internal/engagement"
	"gatherly/internal/shared/httpx"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func routes(h *Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("GET /posts", httpx.Wrap(h.Feed))
	mux.Handle("GET /posts/{post_id}", httpx.Wrap(h.GetByID))
	mux.Handle("GET /users/{user_id}/likes", httpx.Wrap(h.ListLiked))
	mux.Handle("POST /posts", httpx.Wrap(h.Create))
	mux.Handle("DELETE /posts/{post_id}", httpx.Wrap(h.Delete))
	return mux
}

func as(req *http.Request, uid string) *http.Request {
	return req.WithContext(httpx.WithUser(req.Context(), uid))
}

func TestHandler_CreateAndFetch(t *testing.T) {
	svc, _, _ := newService(t)
	mux := routes(NewHandler(svc))

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("title", "hello"))
	require.NoError(t, mw.WriteField("description", "world"))
	fw, err := mw.CreateFormFile("file", "pic.png")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("png"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/posts", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, as(req, "alice"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created engagement.Item
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "hello", created.Title)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/posts/"+created.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/posts?limit=5", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var page struct {
		Items []engagement.Item `json:"items"`
		Limit int               `json:"limit"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Len(t, page.Items, 1)
	assert.Equal(t, 5, page.Limit)
}

func TestHandler_Errors(t *testing.T) {
	svc, _, _ := newService(t)
	mux := routes(NewHandler(svc))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/posts/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, as(httptest.NewRequest(http.MethodDelete, "/posts/missing", nil), "alice"))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/posts/any", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandler_ListLikedEmpty(t *testing.T) {
	svc, _, _ := newService(t)
	mux := routes(NewHandler(svc))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/nobody/likes", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"items":[],"limit":50,"offset":0}`, rec.Body.String())
}

func TestHandler_ListReportsAppliedPaging(t *testing.T) {
	svc, _, _ := newService(t)
	mux := routes(NewHandler(svc))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/posts?limit=1000&offset=-4", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"items":[],"limit":200,"offset":0}`, rec.Body.String())

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/posts?relations=1&limit=0", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"entries":[],"limit":50,"offset":0}`, rec.Body.String())
}

func TestHandler_ListWithRelations(t *testing.T) {
	r := NewRepository(newStore(t))
	seed(t, r)
	mux := routes(NewHandler(NewService(r, newMemImages(), nil, nil)))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/posts?relations=1", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var page struct {
		Entries []engagement.Entry `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Len(t, page.Entries, 3)
	assert.Equal(t, "p3", page.Entries[0].Post.ID)
	assert.Len(t, page.Entries[0].Likes, 2)

	items := engagement.Aggregate(page.Entries, "alice")
	assert.True(t, items[0].IsLiked)
	assert.True(t, items[1].IsBookmarked)
}

func TestHandler_GetByIDWithRelations(t *testing.T) {
	r := NewRepository(newStore(t))
	seed(t, r)
	mux := routes(NewHandler(NewService(r, newMemImages(), nil, nil)))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/posts/p3?relations=1", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var e engagement.Entry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
	assert.Equal(t, "p3", e.Post.ID)
	assert.Len(t, e.Likes, 2)
	assert.Empty(t, e.Bookmarks)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/posts/nope?relations=1", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
