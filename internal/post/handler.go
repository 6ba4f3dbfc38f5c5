package post

import (
	"errors"
	"net/http"

	"gatherly/internal/shared/httpx"
)

type Handler struct{ svc Service }

func NewHandler(s Service) *Handler { return &Handler{svc: s} }

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) error {
	uid, err := httpx.UserFromCtx(r)
	if err != nil {
		return err
	}
	if err := r.ParseMultipartForm(20 << 20); err != nil { // 20MB
		return err
	}
	in := CreateInput{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
	}
	file, hdr, err := r.FormFile("file")
	switch {
	case err == nil:
		defer file.Close()
		in.Image = file
		in.Filename = hdr.Filename
		in.ContentType = hdr.Header.Get("Content-Type")
		in.Size = hdr.Size
	case !errors.Is(err, http.ErrMissingFile):
		return err
	}

	it, err := h.svc.Create(r.Context(), uid, in)
	if err != nil {
		return err
	}
	httpx.WriteJSON(w, it, http.StatusCreated)
	return nil
}

func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) error {
	if r.URL.Query().Get("relations") == "1" {
		e, err := h.svc.Entry(r.Context(), r.PathValue("post_id"))
		if err != nil {
			return err
		}
		httpx.WriteJSON(w, e, http.StatusOK)
		return nil
	}
	it, err := h.svc.Get(r.Context(), r.PathValue("post_id"), httpx.Viewer(r))
	if err != nil {
		return err
	}
	httpx.WriteJSON(w, it, http.StatusOK)
	return nil
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) error {
	uid, err := httpx.UserFromCtx(r)
	if err != nil {
		return err
	}
	res, err := h.svc.Delete(r.Context(), r.PathValue("post_id"), uid)
	if err != nil {
		return err
	}
	httpx.WriteJSON(w, res, http.StatusOK)
	return nil
}

func (h *Handler) Feed(w http.ResponseWriter, r *http.Request) error {
	return h.list(w, r, ScopeFeed)
}

func (h *Handler) ListByUser(w http.ResponseWriter, r *http.Request) error {
	return h.list(w, r, ScopeAuthor)
}

func (h *Handler) ListLiked(w http.ResponseWriter, r *http.Request) error {
	return h.list(w, r, ScopeLiked)
}

func (h *Handler) ListBookmarked(w http.ResponseWriter, r *http.Request) error {
	return h.list(w, r, ScopeBookmarked)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, scope Scope) error {
	q, err := Query{
		Scope:  scope,
		UserID: r.PathValue("user_id"),
		Limit:  httpx.QueryInt(r, "limit", defaultLimit),
		Offset: httpx.QueryInt(r, "offset", 0),
	}.normalize()
	if err != nil {
		return err
	}
	if r.URL.Query().Get("relations") == "1" {
		entries, err := h.svc.Entries(r.Context(), q)
		if err != nil {
			return err
		}
		httpx.WriteJSON(w, map[string]any{"entries": entries, "limit": q.Limit, "offset": q.Offset}, http.StatusOK)
		return nil
	}
	items, err := h.svc.List(r.Context(), q, httpx.Viewer(r))
	if err != nil {
		return err
	}
	httpx.WriteJSON(w, map[string]any{"items": items, "limit": q.Limit, "offset": q.Offset}, http.StatusOK)
	return nil
}
