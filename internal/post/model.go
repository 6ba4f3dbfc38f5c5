package post

import (
	"time"

	"gatherly/internal/engagement"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Post struct {
	ID          string     `gorm:"primaryKey;size:36" json:"id"`
	Title       string     `gorm:"size:200;not null" json:"title"`
	Description string     `json:"description"`
	ImageURL    string     `gorm:"size:512" json:"image_url"`
	UserID      string     `gorm:"index;size:36;not null" json:"user_id"`
	CreatedAt   time.Time  `gorm:"index" json:"created_at"`
	Likes       []Like     `json:"-"`
	Bookmarks   []Bookmark `json:"-"`
}

type Like struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	UserID    string    `gorm:"size:36;not null;uniqueIndex:idx_likes_user_post,priority:1" json:"user_id"`
	PostID    string    `gorm:"size:36;not null;index;uniqueIndex:idx_likes_user_post,priority:2" json:"post_id"`
	CreatedAt time.Time `json:"created_at"`
}

type Bookmark struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	UserID    string    `gorm:"size:36;not null;uniqueIndex:idx_bookmarks_user_post,priority:1" json:"user_id"`
	PostID    string    `gorm:"size:36;not null;index;uniqueIndex:idx_bookmarks_user_post,priority:2" json:"post_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (p *Post) BeforeCreate(*gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

func (l *Like) BeforeCreate(*gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}

func (b *Bookmark) BeforeCreate(*gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

// Entry converts a post loaded with its relations.
func (p Post) Entry() engagement.Entry {
	e := engagement.Entry{
		Post: engagement.Post{
			ID:          p.ID,
			Title:       p.Title,
			Description: p.Description,
			ImageURL:    p.ImageURL,
			UserID:      p.UserID,
			CreatedAt:   p.CreatedAt,
		},
		Likes:     make([]engagement.Relation, 0, len(p.Likes)),
		Bookmarks: make([]engagement.Relation, 0, len(p.Bookmarks)),
	}
	for _, l := range p.Likes {
		e.Likes = append(e.Likes, engagement.Relation{ID: l.ID, PostID: l.PostID, UserID: l.UserID, CreatedAt: l.CreatedAt})
	}
	for _, b := range p.Bookmarks {
		e.Bookmarks = append(e.Bookmarks, engagement.Relation{ID: b.ID, PostID: b.PostID, UserID: b.UserID, CreatedAt: b.CreatedAt})
	}
	return e
}

func Entries(ps []Post) []engagement.Entry {
	out := make([]engagement.Entry, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.Entry())
	}
	return out
}
