package user

import (
	"context"
	"errors"
	"fmt"

	"gatherly/internal/shared/apperr"
	"gatherly/internal/shared/db"

	"gorm.io/gorm"
)

var ErrNotFound = fmt.Errorf("user %w", apperr.ErrNotFound)

type Repository interface {
	Create(ctx context.Context, u *User) error
	ByEmail(ctx context.Context, email string) (*User, error)
	ByID(ctx context.Context, id string) (*User, error)
	SetPicture(ctx context.Context, id, url string) error
}

type repo struct{ store *db.Store }

func NewRepository(s *db.Store) Repository { return &repo{store: s} }

func (r *repo) Create(ctx context.Context, u *User) error {
	err := r.store.Base.WithContext(ctx).Create(u).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrExists
	}
	return err
}

func (r *repo) ByEmail(ctx context.Context, email string) (*User, error) {
	return r.first(ctx, "email = ?", email)
}

func (r *repo) ByID(ctx context.Context, id string) (*User, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *repo) first(ctx context.Context, cond string, arg any) (*User, error) {
	var u User
	err := r.store.Base.WithContext(ctx).Where(cond, arg).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *repo) SetPicture(ctx context.Context, id, url string) error {
	res := r.store.Base.WithContext(ctx).Model(&User{}).Where("id = ?", id).Update("profile_picture", url)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
