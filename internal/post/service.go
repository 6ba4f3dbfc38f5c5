package post

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"gatherly/internal/engagement"
	"gatherly/internal/kafka"
	"gatherly/internal/logging"
	"gatherly/internal/metrics"
	"gatherly/internal/shared/apperr"

	"go.uber.org/zap"
)

type ImageStore interface {
	Put(ctx context.Context, key, contentType string, r io.Reader, size int64) error
	Remove(ctx context.Context, key string) error
	PublicURL(key string) string
	KeyFromURL(u string) (string, bool)
}

type Service interface {
	Create(ctx context.Context, uid string, in CreateInput) (*engagement.Item, error)
	Get(ctx context.Context, id, viewer string) (*engagement.Item, error)
	Entry(ctx context.Context, id string) (*engagement.Entry, error)
	List(ctx context.Context, q Query, viewer string) ([]engagement.Item, error)
	Entries(ctx context.Context, q Query) ([]engagement.Entry, error)
	Delete(ctx context.Context, id, uid string) (*DeleteResult, error)
	CountByUser(ctx context.Context, uid string) (int64, error)
}

type service struct {
	repo   Repository
	images ImageStore
	events kafka.Writer
	log    *zap.Logger
	now    func() time.Time
}

func NewService(r Repository, images ImageStore, events kafka.Writer, log *zap.Logger) Service {
	if events == nil {
		events = kafka.Nop()
	}
	log = logging.OrNop(log)
	return &service{repo: r, images: images, events: events, log: log, now: time.Now}
}

func (s *service) Create(ctx context.Context, uid string, in CreateInput) (*engagement.Item, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", apperr.ErrInvalidInput)
	}
	p := &Post{Title: title, Description: strings.TrimSpace(in.Description), UserID: uid}

	var key string
	if in.Image != nil {
		key = imageKey(in.Filename, s.now())
		if err := s.images.Put(ctx, key, in.ContentType, in.Image, in.Size); err != nil {
			return nil, fmt.Errorf("upload image: %w", err)
		}
		p.ImageURL = s.images.PublicURL(key)
	}

	if err := s.repo.Create(ctx, p); err != nil {
		if key != "" {
			if rmErr := s.images.Remove(ctx, key); rmErr != nil {
				s.log.Warn("orphaned image", zap.String("key", key), zap.Error(rmErr))
			}
		}
		return nil, fmt.Errorf("create post: %w", err)
	}
	metrics.PostsCreated.Inc()
	s.publish(ctx, Event{Type: "post.created", PostID: p.ID, UserID: uid, Title: p.Title, ImageURL: p.ImageURL})

	it := engagement.Aggregate([]engagement.Entry{p.Entry()}, uid)[0]
	return &it, nil
}

func (s *service) Get(ctx context.Context, id, viewer string) (*engagement.Item, error) {
	e, err := s.Entry(ctx, id)
	if err != nil {
		return nil, err
	}
	it := engagement.Aggregate([]engagement.Entry{*e}, viewer)[0]
	return &it, nil
}

func (s *service) Entry(ctx context.Context, id string) (*engagement.Entry, error) {
	p, err := s.repo.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	e := p.Entry()
	if err := engagement.CheckRelations([]engagement.Entry{e}); err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *service) List(ctx context.Context, q Query, viewer string) ([]engagement.Item, error) {
	entries, err := s.Entries(ctx, q)
	if err != nil {
		return nil, err
	}
	return engagement.Aggregate(entries, viewer), nil
}

// Entries returns the posts of q with their full like and bookmark sets.
func (s *service) Entries(ctx context.Context, q Query) ([]engagement.Entry, error) {
	q, err := q.normalize()
	if err != nil {
		return nil, err
	}
	ps, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list %s posts: %w", q.Scope, err)
	}
	entries := Entries(ps)
	if err := engagement.CheckRelations(entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Delete removes a post owned by uid and its image, and reports how many
// posts the owner has left.
func (s *service) Delete(ctx context.Context, id, uid string) (*DeleteResult, error) {
	p, err := s.repo.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.UserID != uid {
		return nil, fmt.Errorf("delete post %s: %w", id, apperr.ErrForbidden)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return nil, fmt.Errorf("delete post %s: %w", id, err)
	}
	if key, ok := s.images.KeyFromURL(p.ImageURL); ok {
		if err := s.images.Remove(ctx, key); err != nil {
			s.log.Warn("remove image", zap.String("post_id", id), zap.String("key", key), zap.Error(err))
		}
	}
	metrics.PostsDeleted.Inc()
	s.publish(ctx, Event{Type: "post.deleted", PostID: id, UserID: uid})

	n, err := s.repo.CountByUser(ctx, uid)
	if err != nil {
		return nil, err
	}
	return &DeleteResult{PostID: id, RemainingPosts: n}, nil
}

func (s *service) CountByUser(ctx context.Context, uid string) (int64, error) {
	return s.repo.CountByUser(ctx, uid)
}

func (s *service) publish(ctx context.Context, ev Event) {
	ev.Timestamp = s.now().UTC()
	if err := s.events.WriteJSON(ctx, ev.PostID, ev); err != nil {
		s.log.Warn("publish post event", zap.String("type", ev.Type), zap.String("post_id", ev.PostID), zap.Error(err))
	}
}

func imageKey(filename string, now time.Time) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		ext = ".jpg"
	}
	return fmt.Sprintf("post-%d%s", now.UnixNano(), ext)
}
