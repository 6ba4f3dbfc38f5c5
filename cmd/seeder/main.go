// Command seeder fills a running Gatherly server with fake users, posts,
// likes and bookmarks.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"gatherly/internal/engagement"
	"gatherly/internal/logging"
	"gatherly/pkg/client"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type options struct {
	server   string
	users    int
	posts    int
	engage   float64
	password string
	rps      float64
	seed     int64
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var o options
	cmd := &cobra.Command{
		Use:   "seeder",
		Short: "Fill a Gatherly server with fake users, posts, likes and bookmarks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			log, err := logging.New("info", "console")
			if err != nil {
				return err
			}
			defer log.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			st, err := seed(ctx, o, log)
			if err != nil {
				log.Error("seeding failed", zap.Error(err))
				return err
			}
			log.Info("seeding done",
				zap.Int("users", st.users),
				zap.Int("posts", st.posts),
				zap.Int("likes", st.likes),
				zap.Int("bookmarks", st.bookmarks),
			)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.server, "server", "http://localhost:8080", "Gatherly server URL")
	f.IntVar(&o.users, "users", 5, "users to register")
	f.IntVar(&o.posts, "posts", 3, "posts per user")
	f.Float64Var(&o.engage, "engage", 0.3, "chance that a user likes or bookmarks a given post")
	f.StringVar(&o.password, "password", "123456", "password for every seeded user")
	f.Float64Var(&o.rps, "rps", 20, "requests per second per user")
	f.Int64Var(&o.seed, "seed", time.Now().UnixNano(), "random seed")
	return cmd
}

type stats struct {
	users, posts, likes, bookmarks int
}

type seededUser struct {
	email string
	c     *client.Client
}

func seed(ctx context.Context, o options, log *zap.Logger) (stats, error) {
	faker := gofakeit.New(o.seed)
	var st stats

	users := make([]seededUser, 0, o.users)
	for i := 0; i < o.users; i++ {
		email := faker.Email()
		c := client.New(o.server, client.WithRateLimit(o.rps, 1))
		if _, err := c.Register(ctx, email, o.password, faker.Name()); err != nil {
			return st, fmt.Errorf("register %s: %w", email, err)
		}
		users = append(users, seededUser{email: email, c: c})
		st.users++
		log.Debug("registered", zap.String("email", email), zap.String("user_id", c.UserID()))
	}

	var postIDs []string
	for _, u := range users {
		for j := 0; j < o.posts; j++ {
			it, err := u.c.CreatePost(ctx, faker.Sentence(5), faker.Paragraph(1, 3, 12, " "), "", nil)
			if err != nil {
				return st, fmt.Errorf("create post for %s: %w", u.email, err)
			}
			postIDs = append(postIDs, it.ID)
			st.posts++
		}
	}

	for _, u := range users {
		for _, pid := range postIDs {
			for _, kind := range []engagement.Kind{engagement.Like, engagement.Bookmark} {
				if faker.Float64Range(0, 1) >= o.engage {
					continue
				}
				if err := u.c.Insert(ctx, kind, u.c.UserID(), pid); err != nil {
					log.Warn("engage", zap.String("kind", string(kind)), zap.String("post_id", pid), zap.Error(err))
					continue
				}
				if kind == engagement.Like {
					st.likes++
				} else {
					st.bookmarks++
				}
			}
		}
	}
	return st, nil
}
