// Package engagement folds like and bookmark rows into per-post views for a
// viewer and toggles those relations with an optimistic view.
package engagement

import (
	"errors"
	"fmt"
	"time"
)

type Kind string

const (
	Like     Kind = "like"
	Bookmark Kind = "bookmark"
)

var (
	ErrAuthRequired      = errors.New("authentication required")
	ErrRemoteWriteFailed = errors.New("remote write failed")
	ErrMalformedRelation = errors.New("malformed relation")
	ErrUnknownKind       = errors.New("unknown engagement kind")
)

func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case Like, Bookmark:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

func (k Kind) Valid() bool { return k == Like || k == Bookmark }

// Relation is one like or bookmark row.
type Relation struct {
	ID        string    `json:"id"`
	PostID    string    `json:"post_id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

type Post struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	ImageURL    string    `json:"image_url"`
	UserID      string    `json:"user_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// Entry is a post joined with its full relation sets, as fetched.
type Entry struct {
	Post      Post       `json:"post"`
	Likes     []Relation `json:"likes"`
	Bookmarks []Relation `json:"bookmarks"`
}

type View struct {
	IsLiked       bool `json:"is_liked"`
	LikeCount     int  `json:"like_count"`
	IsBookmarked  bool `json:"is_bookmarked"`
	BookmarkCount int  `json:"bookmark_count"`
}

// Item is a post annotated with the viewer's engagement view.
type Item struct {
	Post
	View
}

func (v View) Flag(k Kind) bool {
	if k == Bookmark {
		return v.IsBookmarked
	}
	return v.IsLiked
}

func (v View) Count(k Kind) int {
	if k == Bookmark {
		return v.BookmarkCount
	}
	return v.LikeCount
}

// With returns v with the fields of kind k replaced. Negative counts become 0.
func (v View) With(k Kind, flag bool, count int) View {
	if count < 0 {
		count = 0
	}
	switch k {
	case Like:
		v.IsLiked, v.LikeCount = flag, count
	case Bookmark:
		v.IsBookmarked, v.BookmarkCount = flag, count
	}
	return v
}

// Toggled flips the flag of kind k and moves its count by one in the same
// direction.
func (v View) Toggled(k Kind) View {
	if v.Flag(k) {
		return v.With(k, false, v.Count(k)-1)
	}
	return v.With(k, true, v.Count(k)+1)
}
