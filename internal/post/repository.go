package post

import (
	"context"
	"errors"
	"fmt"

	"gatherly/internal/shared/apperr"
	"gatherly/internal/shared/db"

	"gorm.io/gorm"
)

var ErrNotFound = fmt.Errorf("post %w", apperr.ErrNotFound)

type Repository interface {
	Create(ctx context.Context, p *Post) error
	ByID(ctx context.Context, id string) (*Post, error)
	List(ctx context.Context, q Query) ([]Post, error)
	Delete(ctx context.Context, id string) error
	CountByUser(ctx context.Context, uid string) (int64, error)
}

type repo struct {
	store *db.Store
}

func NewRepository(s *db.Store) Repository { return &repo{store: s} }

func withRelations(tx *gorm.DB) *gorm.DB {
	return tx.
		Preload("Likes", func(d *gorm.DB) *gorm.DB { return d.Order("likes.created_at ASC") }).
		Preload("Bookmarks", func(d *gorm.DB) *gorm.DB { return d.Order("bookmarks.created_at ASC") })
}

func (r *repo) Create(ctx context.Context, p *Post) error {
	return r.store.Base.WithContext(ctx).Create(p).Error
}

func (r *repo) ByID(ctx context.Context, id string) (*Post, error) {
	var p Post
	err := withRelations(r.store.Base.WithContext(ctx)).First(&p, "posts.id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repo) List(ctx context.Context, q Query) ([]Post, error) {
	tx := withRelations(r.store.Base.WithContext(ctx)).Model(&Post{}).Select("posts.*")
	switch q.Scope {
	case ScopeAuthor:
		tx = tx.Where("posts.user_id = ?", q.UserID).Order("posts.created_at DESC")
	case ScopeLiked:
		tx = tx.Joins("JOIN likes ON likes.post_id = posts.id AND likes.user_id = ?", q.UserID).
			Order("likes.created_at DESC")
	case ScopeBookmarked:
		tx = tx.Joins("JOIN bookmarks ON bookmarks.post_id = posts.id AND bookmarks.user_id = ?", q.UserID).
			Order("bookmarks.created_at DESC")
	default:
		tx = tx.Order("posts.created_at DESC")
	}
	var out []Post
	if err := tx.Limit(q.Limit).Offset(q.Offset).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes the post together with its likes and bookmarks.
func (r *repo) Delete(ctx context.Context, id string) error {
	return r.store.Base.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&Like{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&Bookmark{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&Post{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (r *repo) CountByUser(ctx context.Context, uid string) (int64, error) {
	var n int64
	err := r.store.Base.WithContext(ctx).Model(&Post{}).Where("user_id = ?", uid).Count(&n).Error
	return n, err
}
