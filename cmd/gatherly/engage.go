package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"gatherly/internal/engagement"

	"github.com/spf13/cobra"
)

func newToggleCmd(a *app, name string) *cobra.Command {
	kind := engagement.Kind(name)
	return &cobra.Command{
		Use:   name + " <post_id>...",
		Short: fmt.Sprintf("Toggle your %s on one or more posts", name),
		Long: fmt.Sprintf(`Toggle your %[1]s on the given posts.

Each post shows its optimistic state right away and is rolled back if the
server refuses the write. Repeating a post id toggles it again once the
previous toggle has finished.`, name),
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), a.timeout)
			defer cancel()
			c, err := a.client()
			if err != nil {
				return err
			}
			if c.UserID() == "" {
				return fmt.Errorf("%w: run gatherly login first", engagement.ErrAuthRequired)
			}

			entries := make([]engagement.Entry, 0, len(args))
			seen := map[string]bool{}
			for _, id := range args {
				if seen[id] {
					continue
				}
				seen[id] = true
				e, err := c.Entry(ctx, id)
				if err != nil {
					return fmt.Errorf("load %s: %w", id, err)
				}
				entries = append(entries, e)
			}

			out := &lockedWriter{w: cmd.OutOrStdout()}
			b := engagement.NewBoard(engagement.NewMutator(c))
			b.Replace(entries, c.UserID())
			b.OnChange = func(it engagement.Item) {
				out.printf("~ %s %s %s\n", it.ID, name, mark(it.View.Flag(kind), it.View.Count(kind)))
			}
			return toggleAll(ctx, b, kind, args, out)
		},
	}
}

// toggleAll toggles every post concurrently. The board orders repeated ids.
func toggleAll(ctx context.Context, b *engagement.Board, kind engagement.Kind, ids []string, out *lockedWriter) error {
	errs := make([]error, len(ids))
	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := b.Toggle(ctx, id, kind)
			if err != nil {
				errs[i] = fmt.Errorf("%s: %w", id, err)
				out.printf("! %s %s\n", id, err)
				return
			}
			out.printf("= %s %s %s\n", id, kind, mark(v.Flag(kind), v.Count(kind)))
		}()
	}
	wg.Wait()
	return errors.Join(errs...)
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) printf(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.w, format, args...)
}
