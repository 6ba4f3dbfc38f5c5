package post

import (
	"fmt"
	"io"
	"time"

	"gatherly/internal/shared/apperr"
)

type Scope string

const (
	ScopeFeed       Scope = "feed"
	ScopeAuthor     Scope = "author"
	ScopeLiked      Scope = "liked"
	ScopeBookmarked Scope = "bookmarked"
)

type Query struct {
	Scope  Scope
	UserID string
	Limit  int
	Offset int
}

const (
	defaultLimit = 50
	maxLimit     = 200
)

func (q Query) normalize() (Query, error) {
	if q.Scope == "" {
		q.Scope = ScopeFeed
	}
	switch q.Scope {
	case ScopeFeed:
	case ScopeAuthor, ScopeLiked, ScopeBookmarked:
		if q.UserID == "" {
			return q, fmt.Errorf("%w: scope %s needs a user", apperr.ErrInvalidInput, q.Scope)
		}
	default:
		return q, fmt.Errorf("%w: unknown scope %q", apperr.ErrInvalidInput, q.Scope)
	}
	if q.Limit <= 0 {
		q.Limit = defaultLimit
	}
	if q.Limit > maxLimit {
		q.Limit = maxLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	return q, nil
}

type CreateInput struct {
	Title       string
	Description string
	Filename    string
	ContentType string
	Image       io.Reader
	Size        int64
}

type Event struct {
	Type      string    `json:"type"`
	PostID    string    `json:"post_id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title,omitempty"`
	ImageURL  string    `json:"image_url,omitempty"`
	Timestamp time.Time `json:"ts"`
}

type DeleteResult struct {
	PostID         string `json:"post_id"`
	RemainingPosts int64  `json:"remaining_posts"`
}
