// Package client is a Go client for the Gatherly HTTP API.
//
// Client implements engagement.Writer, so it can back an engagement.Board
// that renders optimistic views while the server write is in flight.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"gatherly/internal/engagement"
	"gatherly/internal/shared/apperr"

	"golang.org/x/time/rate"
)

type Client struct {
	base    string
	http    *http.Client
	limiter *rate.Limiter

	mu     sync.RWMutex
	token  string
	userID string
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.http = hc } }

// WithRateLimit caps outgoing requests at rps with the given burst.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Limit(rps), burst) }
}

func WithToken(token, userID string) Option {
	return func(c *Client) { c.token, c.userID = token, userID }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		base:    strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(10), 20),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// StatusError is a non 2xx answer from the server.
type StatusError struct {
	Code    int
	Message string
	Reason  string
}

func (e *StatusError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%d %s: %s", e.Code, e.Reason, e.Message)
	}
	return fmt.Sprintf("%d: %s", e.Code, e.Message)
}

func (e *StatusError) Is(target error) bool {
	switch e.Code {
	case http.StatusUnauthorized:
		return target == engagement.ErrAuthRequired
	case http.StatusNotFound:
		return target == apperr.ErrNotFound
	case http.StatusConflict:
		return target == apperr.ErrConflict
	case http.StatusForbidden:
		return target == apperr.ErrForbidden
	case http.StatusBadRequest:
		return target == apperr.ErrInvalidInput
	}
	return false
}

type Session struct {
	Token  string `json:"token"`
	UserID string `json:"user_id"`
}

type Profile struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	ProfilePicture string `json:"profile_picture,omitempty"`
	PostCount      int64  `json:"post_count"`
}

type ListOptions struct {
	// Scope is one of "feed", "author", "liked" or "bookmarked".
	Scope  string
	UserID string
	Limit  int
	Offset int
}

func (c *Client) Session() Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Session{Token: c.token, UserID: c.userID}
}

// UserID is the signed in user, or "" when signed out.
func (c *Client) UserID() string { return c.Session().UserID }

func (c *Client) SignOut() {
	c.mu.Lock()
	c.token, c.userID = "", ""
	c.mu.Unlock()
}

func (c *Client) Register(ctx context.Context, email, password, name string) (Session, error) {
	return c.authenticate(ctx, "/auth/register", map[string]string{"email": email, "password": password, "name": name})
}

func (c *Client) Login(ctx context.Context, email, password string) (Session, error) {
	return c.authenticate(ctx, "/auth/login", map[string]string{"email": email, "password": password})
}

func (c *Client) authenticate(ctx context.Context, path string, body any) (Session, error) {
	var s Session
	if err := c.doJSON(ctx, http.MethodPost, path, body, &s); err != nil {
		return Session{}, err
	}
	c.mu.Lock()
	c.token, c.userID = s.Token, s.UserID
	c.mu.Unlock()
	return s, nil
}

func (c *Client) WhoAmI(ctx context.Context) (Profile, error) {
	var p Profile
	err := c.doJSON(ctx, http.MethodGet, "/whoami", nil, &p)
	return p, err
}

func (c *Client) Profile(ctx context.Context, userID string) (Profile, error) {
	var p Profile
	err := c.doJSON(ctx, http.MethodGet, "/users/"+url.PathEscape(userID), nil, &p)
	return p, err
}

// Entries fetches posts with their complete like and bookmark sets.
func (c *Client) Entries(ctx context.Context, o ListOptions) ([]engagement.Entry, error) {
	var page struct {
		Entries []engagement.Entry `json:"entries"`
	}
	if err := c.doJSON(ctx, http.MethodGet, listPath(o, true), nil, &page); err != nil {
		return nil, err
	}
	return page.Entries, nil
}

// Items fetches posts already annotated for the signed in user.
func (c *Client) Items(ctx context.Context, o ListOptions) ([]engagement.Item, error) {
	var page struct {
		Items []engagement.Item `json:"items"`
	}
	if err := c.doJSON(ctx, http.MethodGet, listPath(o, false), nil, &page); err != nil {
		return nil, err
	}
	return page.Items, nil
}

func listPath(o ListOptions, relations bool) string {
	var p string
	switch o.Scope {
	case "author":
		p = "/users/" + url.PathEscape(o.UserID) + "/posts"
	case "liked":
		p = "/users/" + url.PathEscape(o.UserID) + "/likes"
	case "bookmarked":
		p = "/users/" + url.PathEscape(o.UserID) + "/bookmarks"
	default:
		p = "/posts"
	}
	q := url.Values{}
	if o.Limit > 0 {
		q.Set("limit", strconv.Itoa(o.Limit))
	}
	if o.Offset > 0 {
		q.Set("offset", strconv.Itoa(o.Offset))
	}
	if relations {
		q.Set("relations", "1")
	}
	if len(q) == 0 {
		return p
	}
	return p + "?" + q.Encode()
}

func (c *Client) Post(ctx context.Context, postID string) (engagement.Item, error) {
	var it engagement.Item
	err := c.doJSON(ctx, http.MethodGet, "/posts/"+url.PathEscape(postID), nil, &it)
	return it, err
}

// Entry fetches one post with its complete like and bookmark sets.
func (c *Client) Entry(ctx context.Context, postID string) (engagement.Entry, error) {
	var e engagement.Entry
	err := c.doJSON(ctx, http.MethodGet, "/posts/"+url.PathEscape(postID)+"?relations=1", nil, &e)
	return e, err
}

func (c *Client) CreatePost(ctx context.Context, title, description, filename string, image io.Reader) (engagement.Item, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	_ = mw.WriteField("title", title)
	_ = mw.WriteField("description", description)
	if image != nil {
		fw, err := mw.CreateFormFile("file", filename)
		if err != nil {
			return engagement.Item{}, err
		}
		if _, err := io.Copy(fw, image); err != nil {
			return engagement.Item{}, err
		}
	}
	if err := mw.Close(); err != nil {
		return engagement.Item{}, err
	}
	var it engagement.Item
	err := c.do(ctx, http.MethodPost, "/posts", &body, mw.FormDataContentType(), &it)
	return it, err
}

func (c *Client) DeletePost(ctx context.Context, postID string) (remaining int64, err error) {
	var out struct {
		RemainingPosts int64 `json:"remaining_posts"`
	}
	err = c.doJSON(ctx, http.MethodDelete, "/posts/"+url.PathEscape(postID), nil, &out)
	return out.RemainingPosts, err
}

// Insert creates the relation of kind. userID must be the signed in user.
func (c *Client) Insert(ctx context.Context, kind engagement.Kind, userID, postID string) error {
	return c.relation(ctx, http.MethodPut, kind, userID, postID)
}

func (c *Client) Delete(ctx context.Context, kind engagement.Kind, userID, postID string) error {
	return c.relation(ctx, http.MethodDelete, kind, userID, postID)
}

func (c *Client) relation(ctx context.Context, method string, kind engagement.Kind, userID, postID string) error {
	if uid := c.UserID(); uid == "" || uid != userID {
		return fmt.Errorf("%w: signed in as %q, writing for %q", engagement.ErrAuthRequired, uid, userID)
	}
	return c.doJSON(ctx, method, "/posts/"+url.PathEscape(postID)+"/"+string(kind), nil, nil)
}

// Toggle flips the relation server side, starting from the stored state.
func (c *Client) Toggle(ctx context.Context, kind engagement.Kind, postID string) (engagement.View, error) {
	var v engagement.View
	err := c.doJSON(ctx, http.MethodPost, "/posts/"+url.PathEscape(postID)+"/"+string(kind)+"/toggle", nil, &v)
	return v, err
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	ct := ""
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body, ct = bytes.NewReader(b), "application/json"
	}
	return c.do(ctx, method, path, body, ct, out)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if tok := c.Session().Token; tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var apiErr struct {
			Error  string `json:"error"`
			Reason string `json:"reason"`
		}
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if json.Unmarshal(b, &apiErr) != nil || apiErr.Error == "" {
			apiErr.Error = strings.TrimSpace(string(b))
		}
		return &StatusError{Code: resp.StatusCode, Message: apiErr.Error, Reason: apiErr.Reason}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

var _ engagement.Writer = (*Client)(nil)

// IsStatus reports whether err is a StatusError with code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}
