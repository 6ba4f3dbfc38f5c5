package engagement

import (
	"context"
	"errors"
	"sync"
)

var ErrPostNotLoaded = errors.New("post not loaded")

type tuple struct {
	postID string
	kind   Kind
}

// gate admits one toggle at a time. refs counts the holder and the waiters;
// the gate is dropped when it reaches zero.
type gate struct {
	ch   chan struct{}
	refs int
}

// Board owns the item list of one screen. Toggles on the same post and kind
// run one at a time; others proceed independently.
type Board struct {
	mut *Mutator

	mu     sync.Mutex
	viewer string
	items  []Item
	index  map[string]int
	gen    uint64
	gates  map[tuple]*gate

	// OnChange, when set, is called with the item after every local change.
	OnChange func(Item)
}

func NewBoard(m *Mutator) *Board {
	return &Board{
		mut:   m,
		index: map[string]int{},
		gates: map[tuple]*gate{},
	}
}

// Replace swaps the whole collection for freshly fetched entries.
func (b *Board) Replace(entries []Entry, viewerID string) {
	items := Aggregate(entries, viewerID)
	idx := make(map[string]int, len(items))
	for i, it := range items {
		idx[it.ID] = i
	}
	b.mu.Lock()
	b.viewer = viewerID
	b.items = items
	b.index = idx
	b.gen++
	b.mu.Unlock()
}

func (b *Board) Viewer() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.viewer
}

func (b *Board) Snapshot() []Item {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Item, len(b.items))
	copy(out, b.items)
	return out
}

func (b *Board) Get(postID string) (Item, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	i, ok := b.index[postID]
	if !ok {
		return Item{}, false
	}
	return b.items[i], true
}

// Toggle applies the optimistic view, writes, and restores the prior view of
// kind if the write fails. The returned view is the one left on the board.
func (b *Board) Toggle(ctx context.Context, postID string, kind Kind) (View, error) {
	release, err := b.acquire(ctx, tuple{postID, kind})
	if err != nil {
		return View{}, err
	}
	defer release()

	b.mu.Lock()
	i, ok := b.index[postID]
	if !ok {
		b.mu.Unlock()
		return View{}, ErrPostNotLoaded
	}
	prior := b.items[i].View
	viewer, gen := b.viewer, b.gen
	next, err := Optimistic(kind, viewer, prior)
	if err != nil {
		b.mu.Unlock()
		return prior, err
	}
	b.items[i].View = next
	item := b.items[i]
	b.mu.Unlock()
	b.notify(item)

	if _, err := b.mut.Toggle(ctx, kind, postID, viewer, prior); err != nil {
		b.mu.Lock()
		if b.gen != gen {
			// a refetch replaced the list while the write was in flight
			b.mu.Unlock()
			return prior, err
		}
		i := b.index[postID]
		b.items[i].View = b.items[i].View.With(kind, prior.Flag(kind), prior.Count(kind))
		item := b.items[i]
		b.mu.Unlock()
		b.notify(item)
		return item.View, err
	}
	return next, nil
}

func (b *Board) acquire(ctx context.Context, t tuple) (func(), error) {
	b.mu.Lock()
	g, ok := b.gates[t]
	if !ok {
		g = &gate{ch: make(chan struct{}, 1)}
		b.gates[t] = g
	}
	g.refs++
	b.mu.Unlock()
	select {
	case g.ch <- struct{}{}:
		return func() {
			<-g.ch
			b.unref(t, g)
		}, nil
	case <-ctx.Done():
		b.unref(t, g)
		return nil, ctx.Err()
	}
}

func (b *Board) unref(t tuple, g *gate) {
	b.mu.Lock()
	g.refs--
	if g.refs == 0 {
		delete(b.gates, t)
	}
	b.mu.Unlock()
}

func (b *Board) notify(it Item) {
	if b.OnChange != nil {
		b.OnChange(it)
	}
}
