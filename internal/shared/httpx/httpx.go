package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"gatherly/internal/engagement"
	"gatherly/internal/shared/apperr"
)

type HandlerFunc func(http.ResponseWriter, *http.Request) error

type APIError struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
	Status int    `json:"status"`
}

// TokenParser resolves a bearer token to a user id.
type TokenParser interface {
	Parse(tok string) (string, error)
}

type ctxKey struct{}

var (
	ErrUnauthorized    = errors.New("unauthorized")
	ErrTooManyRequests = errors.New("too many requests")
)

func WriteJSON(w http.ResponseWriter, v any, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, status int, err error, reason string) {
	if err == nil {
		err = errors.New(http.StatusText(status))
	}
	WriteJSON(w, APIError{Error: err.Error(), Reason: reason, Status: status}, status)
}

func Wrap(fn HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := fn(w, r); err != nil {
			code, reason := Status(err)
			WriteError(w, code, err, reason)
		}
	})
}

// Status maps an error to its HTTP status and a short machine readable reason.
func Status(err error) (int, string) {
	switch {
	case errors.Is(err, ErrUnauthorized), errors.Is(err, engagement.ErrAuthRequired):
		return http.StatusUnauthorized, "auth_required"
	case errors.Is(err, apperr.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, apperr.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, ErrTooManyRequests):
		return http.StatusTooManyRequests, "rate_limited"
	case errors.Is(err, engagement.ErrRemoteWriteFailed):
		return http.StatusBadGateway, "remote_write_failed"
	case errors.Is(err, engagement.ErrMalformedRelation):
		return http.StatusInternalServerError, "malformed_relation"
	}
	return http.StatusBadRequest, ""
}

func Decode[T any](r *http.Request) (T, error) {
	var t T
	err := json.NewDecoder(r.Body).Decode(&t)
	return t, err
}

func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

func WithUser(ctx context.Context, uid string) context.Context {
	return context.WithValue(ctx, ctxKey{}, uid)
}

func AuthMiddleware(p TokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok := BearerToken(r)
			if tok == "" {
				WriteError(w, http.StatusUnauthorized, ErrUnauthorized, "missing_bearer")
				return
			}
			uid, err := p.Parse(tok)
			if err != nil || uid == "" {
				WriteError(w, http.StatusUnauthorized, ErrUnauthorized, "invalid_token")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), uid)))
		})
	}
}

// OptionalAuth attaches the user when a bearer token is present and lets
// anonymous requests through.
func OptionalAuth(p TokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok := BearerToken(r)
			if tok == "" {
				next.ServeHTTP(w, r)
				return
			}
			uid, err := p.Parse(tok)
			if err != nil || uid == "" {
				WriteError(w, http.StatusUnauthorized, ErrUnauthorized, "invalid_token")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), uid)))
		})
	}
}

func UserFromCtx(r *http.Request) (string, error) {
	uid, _ := r.Context().Value(ctxKey{}).(string)
	if uid == "" {
		return "", ErrUnauthorized
	}
	return uid, nil
}

// Viewer returns the authenticated user id, or "" for anonymous requests.
func Viewer(r *http.Request) string {
	uid, _ := r.Context().Value(ctxKey{}).(string)
	return uid
}

func QueryInt(r *http.Request, key string, def int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
