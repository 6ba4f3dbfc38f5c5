package relation

import (
	"net/http"

	"gatherly/internal/engagement"
	"gatherly/internal/shared/httpx"
)

type Handler struct{ svc Service }

func NewHandler(s Service) *Handler { return &Handler{svc: s} }

type viewResp struct {
	PostID string `json:"post_id"`
	engagement.View
}

func (h *Handler) Toggle(kind engagement.Kind) httpx.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		uid, err := httpx.UserFromCtx(r)
		if err != nil {
			return err
		}
		pid := r.PathValue("post_id")
		v, err := h.svc.Toggle(r.Context(), kind, pid, uid)
		if err != nil {
			return err
		}
		httpx.WriteJSON(w, viewResp{PostID: pid, View: v}, http.StatusOK)
		return nil
	}
}

func (h *Handler) Set(kind engagement.Kind) httpx.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		uid, err := httpx.UserFromCtx(r)
		if err != nil {
			return err
		}
		pid := r.PathValue("post_id")
		v, err := h.svc.Set(r.Context(), kind, pid, uid)
		if err != nil {
			return err
		}
		httpx.WriteJSON(w, viewResp{PostID: pid, View: v}, http.StatusOK)
		return nil
	}
}

func (h *Handler) Unset(kind engagement.Kind) httpx.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		uid, err := httpx.UserFromCtx(r)
		if err != nil {
			return err
		}
		pid := r.PathValue("post_id")
		v, err := h.svc.Unset(r.Context(), kind, pid, uid)
		if err != nil {
			return err
		}
		httpx.WriteJSON(w, viewResp{PostID: pid, View: v}, http.StatusOK)
		return nil
	}
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) error {
	pid := r.PathValue("post_id")
	v, err := h.svc.View(r.Context(), pid, httpx.Viewer(r))
	if err != nil {
		return err
	}
	httpx.WriteJSON(w, viewResp{PostID: pid, View: v}, http.StatusOK)
	return nil
}
