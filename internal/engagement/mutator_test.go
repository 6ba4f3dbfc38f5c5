package engagement

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	Op     string
	Kind   Kind
	UserID string
	PostID string
}

type recordingWriter struct {
	mu    sync.Mutex
	calls []call
	err   error
	// block, when set, is received from before each write returns
	block chan struct{}
}

func (w *recordingWriter) record(op string, kind Kind, userID, postID string) error {
	w.mu.Lock()
	w.calls = append(w.calls, call{op, kind, userID, postID})
	err := w.err
	block := w.block
	w.mu.Unlock()
	if block != nil {
		<-block
	}
	return err
}

func (w *recordingWriter) Insert(_ context.Context, kind Kind, userID, postID string) error {
	return w.record("insert", kind, userID, postID)
}

func (w *recordingWriter) Delete(_ context.Context, kind Kind, userID, postID string) error {
	return w.record("delete", kind, userID, postID)
}

func (w *recordingWriter) Calls() []call {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]call(nil), w.calls...)
}

func TestMutator_AuthGate(t *testing.T) {
	w := &recordingWriter{}
	m := NewMutator(w)

	for _, k := range []Kind{Like, Bookmark} {
		_, err := m.Toggle(context.Background(), k, "p1", "", View{LikeCount: 3})
		assert.ErrorIs(t, err, ErrAuthRequired)
	}
	assert.Empty(t, w.Calls())
}

func TestMutator_LikeUnlikePair(t *testing.T) {
	w := &recordingWriter{}
	m := NewMutator(w)
	ctx := context.Background()

	start := View{IsLiked: false, LikeCount: 0}
	v, err := m.Toggle(ctx, Like, "p1", "u1", start)
	require.NoError(t, err)
	assert.Equal(t, View{IsLiked: true, LikeCount: 1}, v)

	v, err = m.Toggle(ctx, Like, "p1", "u1", v)
	require.NoError(t, err)
	assert.Equal(t, start, v)

	assert.Equal(t, []call{
		{"insert", Like, "u1", "p1"},
		{"delete", Like, "u1", "p1"},
	}, w.Calls())
}

func TestMutator_BookmarkRemoval(t *testing.T) {
	w := &recordingWriter{}
	m := NewMutator(w)

	v, err := m.Toggle(context.Background(), Bookmark, "p9", "u2", View{IsBookmarked: true, BookmarkCount: 1})
	require.NoError(t, err)
	assert.Equal(t, View{IsBookmarked: false, BookmarkCount: 0}, v)
	assert.Equal(t, []call{{"delete", Bookmark, "u2", "p9"}}, w.Calls())
}

func TestMutator_CountNeverNegative(t *testing.T) {
	w := &recordingWriter{}
	m := NewMutator(w)

	v, err := m.Toggle(context.Background(), Like, "p1", "u1", View{IsLiked: true, LikeCount: 0})
	require.NoError(t, err)
	assert.Equal(t, 0, v.LikeCount)
	assert.False(t, v.IsLiked)
}

func TestMutator_RemoteFailure(t *testing.T) {
	cause := errors.New("connection reset")
	w := &recordingWriter{err: cause}
	m := NewMutator(w)

	_, err := m.Toggle(context.Background(), Like, "p1", "u1", View{LikeCount: 4})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRemoteWriteFailed)
	assert.ErrorIs(t, err, cause)

	var rw *RemoteWriteError
	require.True(t, errors.As(err, &rw))
	assert.Equal(t, "insert", rw.Op)
	assert.Equal(t, "p1", rw.PostID)

	// exactly one attempt
	assert.Len(t, w.Calls(), 1)
}

func TestMutator_UnknownKind(t *testing.T) {
	w := &recordingWriter{}
	_, err := NewMutator(w).Toggle(context.Background(), Kind("share"), "p1", "u1", View{})
	assert.ErrorIs(t, err, ErrUnknownKind)
	assert.Empty(t, w.Calls())
}

func TestOptimistic(t *testing.T) {
	v, err := Optimistic(Like, "u1", View{LikeCount: 2, BookmarkCount: 1})
	require.NoError(t, err)
	assert.Equal(t, View{IsLiked: true, LikeCount: 3, BookmarkCount: 1}, v)

	_, err = Optimistic(Bookmark, "", View{})
	assert.ErrorIs(t, err, ErrAuthRequired)
}
