package engagement

import (
	"context"
	"errors"
	"fmt"
)

// Writer persists relation rows. Insert must fail on a duplicate and Delete
// must fail when no row exists.
type Writer interface {
	Insert(ctx context.Context, kind Kind, userID, postID string) error
	Delete(ctx context.Context, kind Kind, userID, postID string) error
}

type RemoteWriteError struct {
	Op     string
	Kind   Kind
	PostID string
	Err    error
}

func (e *RemoteWriteError) Error() string {
	return fmt.Sprintf("%s %s on post %s: %v", e.Op, e.Kind, e.PostID, e.Err)
}

func (e *RemoteWriteError) Unwrap() error { return e.Err }

func (e *RemoteWriteError) Is(target error) bool { return target == ErrRemoteWriteFailed }

// Optimistic returns the view expected after toggling kind for viewerID.
func Optimistic(kind Kind, viewerID string, current View) (View, error) {
	if !kind.Valid() {
		return View{}, fmt.Errorf("%w: %q", ErrUnknownKind, string(kind))
	}
	if viewerID == "" {
		return View{}, ErrAuthRequired
	}
	return current.Toggled(kind), nil
}

// Mutator issues exactly one write per toggle and keeps no state. Rolling the
// caller's view back on failure is left to the caller.
type Mutator struct {
	w Writer
}

func NewMutator(w Writer) *Mutator { return &Mutator{w: w} }

func (m *Mutator) Toggle(ctx context.Context, kind Kind, postID, viewerID string, current View) (View, error) {
	next, err := Optimistic(kind, viewerID, current)
	if err != nil {
		return View{}, err
	}
	op, write := "insert", m.w.Insert
	if current.Flag(kind) {
		op, write = "delete", m.w.Delete
	}
	if err := write(ctx, kind, viewerID, postID); err != nil {
		var rw *RemoteWriteError
		if errors.As(err, &rw) {
			return View{}, err
		}
		return View{}, &RemoteWriteError{Op: op, Kind: kind, PostID: postID, Err: err}
	}
	return next, nil
}
