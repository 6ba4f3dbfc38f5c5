package relation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gatherly/internal/engagement"
	"gatherly/internal/logging"
	"gatherly/internal/post"
	"gatherly/internal/shared/apperr"
	"gatherly/internal/shared/db"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrDuplicate = fmt.Errorf("relation already exists: %w", apperr.ErrConflict)
	ErrNotFound  = fmt.Errorf("relation %w", apperr.ErrNotFound)
)

type Repository interface {
	Insert(ctx context.Context, kind engagement.Kind, uid, postID string) error
	Delete(ctx context.Context, kind engagement.Kind, uid, postID string) error
	View(ctx context.Context, uid, postID string) (engagement.View, error)
}

// counterTTL bounds how long a counter that missed an update can be served.
const counterTTL = 10 * time.Minute

type repo struct {
	store *db.Store
	rdb   *redis.Client
	log   *zap.Logger
	// counters whose last update failed and that could not be deleted
	dirty sync.Map
}

func NewRepository(s *db.Store, r *redis.Client, log *zap.Logger) Repository {
	log = logging.OrNop(log)
	return &repo{store: s, rdb: r, log: log}
}

func counterKey(kind engagement.Kind, postID string) string {
	return fmt.Sprintf("gl:%ss:%s", kind, postID)
}

func model(kind engagement.Kind) (any, error) {
	switch kind {
	case engagement.Like:
		return &post.Like{}, nil
	case engagement.Bookmark:
		return &post.Bookmark{}, nil
	}
	return nil, fmt.Errorf("%w: %q", engagement.ErrUnknownKind, string(kind))
}

func (r *repo) Insert(ctx context.Context, kind engagement.Kind, uid, postID string) error {
	m, err := model(kind)
	if err != nil {
		return err
	}
	err = r.store.Writer(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&post.Post{}).Where("id = ?", postID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return post.ErrNotFound
		}
		if err := tx.Model(m).Where("post_id = ? AND user_id = ?", postID, uid).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrDuplicate
		}
		var row any
		switch kind {
		case engagement.Like:
			row = &post.Like{PostID: postID, UserID: uid}
		default:
			row = &post.Bookmark{PostID: postID, UserID: uid}
		}
		if err := tx.Create(row).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicate
			}
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}
	r.bump(ctx, kind, postID, 1)
	return nil
}

func (r *repo) Delete(ctx context.Context, kind engagement.Kind, uid, postID string) error {
	m, err := model(kind)
	if err != nil {
		return err
	}
	res := r.store.Writer(ctx).Where("post_id = ? AND user_id = ?", postID, uid).Delete(m)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	r.bump(ctx, kind, postID, -1)
	return nil
}

// View reads the relation state of uid on postID. Counts come from the
// counter cache when present.
func (r *repo) View(ctx context.Context, uid, postID string) (engagement.View, error) {
	var n int64
	if err := r.store.Writer(ctx).Model(&post.Post{}).Where("id = ?", postID).Count(&n).Error; err != nil {
		return engagement.View{}, err
	}
	if n == 0 {
		return engagement.View{}, post.ErrNotFound
	}
	var v engagement.View
	for _, kind := range []engagement.Kind{engagement.Like, engagement.Bookmark} {
		count, err := r.count(ctx, kind, postID)
		if err != nil {
			return engagement.View{}, err
		}
		flag := false
		if uid != "" {
			m, _ := model(kind)
			var mine int64
			if err := r.store.Writer(ctx).Model(m).Where("post_id = ? AND user_id = ?", postID, uid).Count(&mine).Error; err != nil {
				return engagement.View{}, err
			}
			flag = mine > 0
		}
		v = v.With(kind, flag, int(count))
	}
	return v, nil
}

// count serves the cached counter, rebuilding it from the table on a miss.
// The rebuild is dropped when a write touches the key while rows are being
// counted.
func (r *repo) count(ctx context.Context, kind engagement.Kind, postID string) (int64, error) {
	key := counterKey(kind, postID)
	if r.rdb == nil || !r.clean(ctx, key) {
		return r.countRows(ctx, kind, postID)
	}
	var (
		n     int64
		dbErr error
	)
	err := r.rdb.Watch(ctx, func(tx *redis.Tx) error {
		val, err := tx.Get(ctx, key).Int64()
		if err == nil {
			n = val
			return nil
		}
		if !errors.Is(err, redis.Nil) {
			return err
		}
		if n, dbErr = r.countRows(ctx, kind, postID); dbErr != nil {
			return dbErr
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, key, n, counterTTL)
			return nil
		})
		return err
	}, key)
	switch {
	case dbErr != nil:
		return 0, dbErr
	case err == nil:
		return n, nil
	case !errors.Is(err, redis.TxFailedErr):
		r.log.Warn("counter cache", zap.String("key", key), zap.Error(err))
	}
	return r.countRows(ctx, kind, postID)
}

func (r *repo) countRows(ctx context.Context, kind engagement.Kind, postID string) (int64, error) {
	m, err := model(kind)
	if err != nil {
		return 0, err
	}
	var n int64
	err = r.store.Writer(ctx).Model(m).Where("post_id = ?", postID).Count(&n).Error
	return n, err
}

// bump moves an existing counter by delta. A counter that was missing, went
// negative or could not be updated is deleted so the next read rebuilds it.
func (r *repo) bump(ctx context.Context, kind engagement.Kind, postID string, delta int64) {
	if r.rdb == nil {
		return
	}
	key := counterKey(kind, postID)
	var existed, incr *redis.IntCmd
	_, err := r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		existed = p.Exists(ctx, key)
		incr = p.IncrBy(ctx, key, delta)
		return nil
	})
	if err == nil && existed.Val() == 1 && incr.Val() >= 0 {
		return
	}
	if err != nil {
		r.log.Warn("counter cache", zap.String("key", key), zap.Error(err))
	}
	if err := r.rdb.Del(ctx, key).Err(); err != nil {
		r.dirty.Store(key, struct{}{})
	}
}

// clean deletes key if an earlier update of it failed. It reports whether
// the cached value may be used.
func (r *repo) clean(ctx context.Context, key string) bool {
	if _, dirty := r.dirty.Load(key); !dirty {
		return true
	}
	if err := r.rdb.Del(ctx, key).Err(); err != nil {
		return false
	}
	r.dirty.Delete(key)
	return true
}
