package user

import (
	"errors"
	"net/http"

	"gatherly/internal/shared/httpx"
)

type Handler struct{ svc Service }

func NewHandler(s Service) *Handler { return &Handler{svc: s} }

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) error {
	in, err := httpx.Decode[RegisterReq](r)
	if err != nil {
		return err
	}
	out, err := h.svc.Register(r.Context(), in)
	if err != nil {
		return err
	}
	httpx.WriteJSON(w, out, http.StatusCreated)
	return nil
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) error {
	in, err := httpx.Decode[LoginReq](r)
	if err != nil {
		return err
	}
	out, err := h.svc.Login(r.Context(), in)
	if errors.Is(err, ErrWrongCredentials) {
		httpx.WriteError(w, http.StatusUnauthorized, err, "wrong_credentials")
		return nil
	}
	if err != nil {
		return err
	}
	httpx.WriteJSON(w, out, http.StatusOK)
	return nil
}

func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) error {
	p, err := h.svc.Profile(r.Context(), r.PathValue("user_id"))
	if err != nil {
		return err
	}
	httpx.WriteJSON(w, p, http.StatusOK)
	return nil
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) error {
	uid, err := httpx.UserFromCtx(r)
	if err != nil {
		return err
	}
	p, err := h.svc.Profile(r.Context(), uid)
	if err != nil {
		return err
	}
	httpx.WriteJSON(w, p, http.StatusOK)
	return nil
}

func (h *Handler) SetPicture(w http.ResponseWriter, r *http.Request) error {
	uid, err := httpx.UserFromCtx(r)
	if err != nil {
		return err
	}
	if err := r.ParseMultipartForm(10 << 20); err != nil { // 10MB
		return err
	}
	file, hdr, err := r.FormFile("file")
	if err != nil {
		return err
	}
	defer file.Close()

	p, err := h.svc.SetPicture(r.Context(), uid, Picture{
		Filename:    hdr.Filename,
		ContentType: hdr.Header.Get("Content-Type"),
		Body:        file,
		Size:        hdr.Size,
	})
	if err != nil {
		return err
	}
	httpx.WriteJSON(w, p, http.StatusOK)
	return nil
}

func (h *Handler) DeletePicture(w http.ResponseWriter, r *http.Request) error {
	uid, err := httpx.UserFromCtx(r)
	if err != nil {
		return err
	}
	p, err := h.svc.DeletePicture(r.Context(), uid)
	if err != nil {
		return err
	}
	httpx.WriteJSON(w, p, http.StatusOK)
	return nil
}
