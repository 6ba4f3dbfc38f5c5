package main

import (
	"net/http"
	"time"

	"gatherly/internal/engagement"
	"gatherly/internal/post"
	"gatherly/internal/ratelimit"
	"gatherly/internal/relation"
	"gatherly/internal/shared/httpx"
	"gatherly/internal/user"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type handlers struct {
	posts     *post.Handler
	relations *relation.Handler
	users     *user.Handler
}

type limits struct {
	limiter *ratelimit.Limiter
	toggles int64
	window  time.Duration
}

func routes(h handlers, tokens httpx.TokenParser, lim limits, health http.HandlerFunc) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", health)

	auth := httpx.AuthMiddleware(tokens)
	optional := httpx.OptionalAuth(tokens)

	protect := func(pattern string, h http.Handler) {
		mux.Handle(pattern, auth(h))
	}
	public := func(pattern string, h http.Handler) {
		mux.Handle(pattern, optional(h))
	}
	throttled := func(pattern string, h http.Handler) {
		if lim.limiter != nil {
			h = lim.limiter.LimitHTTP(pattern, lim.toggles, lim.window, h)
		}
		protect(pattern, h)
	}

	mux.Handle("POST /auth/register", httpx.Wrap(h.users.Register))
	mux.Handle("POST /auth/login", httpx.Wrap(h.users.Login))
	mux.Handle("GET /users/{user_id}", httpx.Wrap(h.users.Profile))
	protect("GET /whoami", httpx.Wrap(h.users.Me))
	protect("PUT /me/picture", httpx.Wrap(h.users.SetPicture))
	protect("DELETE /me/picture", httpx.Wrap(h.users.DeletePicture))

	public("GET /posts", httpx.Wrap(h.posts.Feed))
	public("GET /posts/{post_id}", httpx.Wrap(h.posts.GetByID))
	public("GET /users/{user_id}/posts", httpx.Wrap(h.posts.ListByUser))
	public("GET /users/{user_id}/likes", httpx.Wrap(h.posts.ListLiked))
	public("GET /users/{user_id}/bookmarks", httpx.Wrap(h.posts.ListBookmarked))
	protect("POST /posts", httpx.Wrap(h.posts.Create))
	protect("DELETE /posts/{post_id}", httpx.Wrap(h.posts.Delete))

	public("GET /posts/{post_id}/engagement", httpx.Wrap(h.relations.Get))
	for _, kind := range []engagement.Kind{engagement.Like, engagement.Bookmark} {
		base := "/posts/{post_id}/" + string(kind)
		throttled("POST "+base+"/toggle", httpx.Wrap(h.relations.Toggle(kind)))
		throttled("PUT "+base, httpx.Wrap(h.relations.Set(kind)))
		throttled("DELETE "+base, httpx.Wrap(h.relations.Unset(kind)))
	}
	return mux
}
