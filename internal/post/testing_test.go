package post

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"gatherly/internal/shared/db"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newStore(t *testing.T) *db.Store {
	t.Helper()
	base, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	sqlDB, err := base.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, base.AutoMigrate(&Post{}, &Like{}, &Bookmark{}))
	return db.New(base)
}

type memImages struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
}

func newMemImages() *memImages { return &memImages{objects: map[string][]byte{}} }

func (m *memImages) Put(_ context.Context, key, _ string, r io.Reader, _ int64) error {
	if m.putErr != nil {
		return m.putErr
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = buf.Bytes()
	return nil
}

func (m *memImages) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[key]; !ok {
		return errors.New("no such key")
	}
	delete(m.objects, key)
	return nil
}

func (m *memImages) PublicURL(key string) string { return "http://img.test/post-images/" + key }

func (m *memImages) KeyFromURL(u string) (string, bool) {
	const prefix = "http://img.test/post-images/"
	if len(u) <= len(prefix) || u[:len(prefix)] != prefix {
		return "", false
	}
	return u[len(prefix):], true
}

func (m *memImages) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

type recordedEvents struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (r *recordedEvents) WriteJSON(_ context.Context, _ string, v any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ev, ok := v.(Event); ok {
		r.events = append(r.events, ev)
	}
	return r.err
}

func (r *recordedEvents) Close() error { return nil }
