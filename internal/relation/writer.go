package relation

import (
	"context"
	"time"

	"gatherly/internal/engagement"
	"gatherly/internal/kafka"

	"go.uber.org/zap"
)

// publishingWriter stores relation rows and announces every change.
type publishingWriter struct {
	repo   Repository
	events kafka.Writer
	log    *zap.Logger
}

func (w *publishingWriter) Insert(ctx context.Context, kind engagement.Kind, uid, postID string) error {
	if err := w.repo.Insert(ctx, kind, uid, postID); err != nil {
		return err
	}
	w.publish(ctx, eventType(kind, true), kind, uid, postID)
	return nil
}

func (w *publishingWriter) Delete(ctx context.Context, kind engagement.Kind, uid, postID string) error {
	if err := w.repo.Delete(ctx, kind, uid, postID); err != nil {
		return err
	}
	w.publish(ctx, eventType(kind, false), kind, uid, postID)
	return nil
}

func (w *publishingWriter) publish(ctx context.Context, typ string, kind engagement.Kind, uid, postID string) {
	ev := Event{Type: typ, Kind: string(kind), PostID: postID, UserID: uid, Timestamp: time.Now().UTC()}
	if err := w.events.WriteJSON(ctx, postID, ev); err != nil {
		w.log.Warn("publish engagement event", zap.String("type", typ), zap.String("post_id", postID), zap.Error(err))
	}
}

func eventType(kind engagement.Kind, set bool) string {
	switch {
	case kind == engagement.Like && set:
		return "liked"
	case kind == engagement.Like:
		return "unliked"
	case set:
		return "bookmarked"
	}
	return "unbookmarked"
}
