package relation

import (
	"context"
	"errors"
	"time"

	"gatherly/internal/engagement"
	"gatherly/internal/kafka"
	"gatherly/internal/logging"
	"gatherly/internal/metrics"

	"go.uber.org/zap"
)

type Event struct {
	Type      string    `json:"type"`
	Kind      string    `json:"kind"`
	PostID    string    `json:"post_id"`
	UserID    string    `json:"user_id"`
	Timestamp time.Time `json:"ts"`
}

type Service interface {
	Toggle(ctx context.Context, kind engagement.Kind, postID, uid string) (engagement.View, error)
	Set(ctx context.Context, kind engagement.Kind, postID, uid string) (engagement.View, error)
	Unset(ctx context.Context, kind engagement.Kind, postID, uid string) (engagement.View, error)
	View(ctx context.Context, postID, uid string) (engagement.View, error)
}

type service struct {
	repo    Repository
	writer  *publishingWriter
	mutator *engagement.Mutator
	log     *zap.Logger
}

func NewService(r Repository, events kafka.Writer, log *zap.Logger) Service {
	log = logging.OrNop(log)
	if events == nil {
		events = kafka.Nop()
	}
	w := &publishingWriter{repo: r, events: events, log: log}
	return &service{repo: r, writer: w, mutator: engagement.NewMutator(w), log: log}
}

// Toggle flips the stored relation of uid on postID starting from the stored
// state, and returns the view the write produced.
func (s *service) Toggle(ctx context.Context, kind engagement.Kind, postID, uid string) (engagement.View, error) {
	start := time.Now()
	v, err := s.toggle(ctx, kind, postID, uid)
	metrics.ObserveToggle(kind, err, start)
	if err != nil && errors.Is(err, engagement.ErrRemoteWriteFailed) {
		s.log.Warn("toggle failed",
			zap.String("kind", string(kind)),
			zap.String("post_id", postID),
			zap.String("user_id", uid),
			zap.Error(err))
	}
	return v, err
}

func (s *service) toggle(ctx context.Context, kind engagement.Kind, postID, uid string) (engagement.View, error) {
	if uid == "" {
		return engagement.View{}, engagement.ErrAuthRequired
	}
	current, err := s.repo.View(ctx, uid, postID)
	if err != nil {
		return engagement.View{}, err
	}
	return s.mutator.Toggle(ctx, kind, postID, uid, current)
}

func (s *service) Set(ctx context.Context, kind engagement.Kind, postID, uid string) (engagement.View, error) {
	return s.write(ctx, kind, postID, uid, true)
}

func (s *service) Unset(ctx context.Context, kind engagement.Kind, postID, uid string) (engagement.View, error) {
	return s.write(ctx, kind, postID, uid, false)
}

func (s *service) write(ctx context.Context, kind engagement.Kind, postID, uid string, set bool) (engagement.View, error) {
	if uid == "" {
		return engagement.View{}, engagement.ErrAuthRequired
	}
	if !kind.Valid() {
		return engagement.View{}, engagement.ErrUnknownKind
	}
	write := s.writer.Delete
	if set {
		write = s.writer.Insert
	}
	if err := write(ctx, kind, uid, postID); err != nil {
		return engagement.View{}, err
	}
	return s.repo.View(ctx, uid, postID)
}

func (s *service) View(ctx context.Context, postID, uid string) (engagement.View, error) {
	return s.repo.View(ctx, uid, postID)
}
