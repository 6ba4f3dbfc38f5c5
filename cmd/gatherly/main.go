// Command gatherly is a terminal client for a Gatherly server.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gatherly/pkg/client"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type app struct {
	server  string
	session string
	rps     float64
	timeout time.Duration
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "gatherly",
		Short: "Browse, post, like and bookmark on a Gatherly server",
		Long: `gatherly talks to a Gatherly HTTP server.

Examples:
  # Sign in and keep the session for later commands
  gatherly login --email ana@example.com --password secret

  # Show the feed with your likes and bookmarks
  gatherly feed

  # Like two posts at once
  gatherly like 8b1c... 42fe...`,
		Version:       version,
		SilenceUsage:  true,
	}
	root.PersistentFlags().StringVar(&a.server, "server", envOr("GATHERLY_SERVER", "http://localhost:8080"), "Gatherly server URL")
	root.PersistentFlags().StringVar(&a.session, "session", defaultSessionPath(), "file holding the signed in session")
	root.PersistentFlags().Float64Var(&a.rps, "rps", 5, "maximum requests per second")
	root.PersistentFlags().DurationVar(&a.timeout, "timeout", 15*time.Second, "overall command timeout")

	root.AddCommand(
		newRegisterCmd(a),
		newLoginCmd(a),
		newLogoutCmd(a),
		newWhoAmICmd(a),
		newListCmd(a, "feed", "Show the newest posts", ""),
		newListCmd(a, "posts", "Show the posts written by a user", "author"),
		newListCmd(a, "likes", "Show the posts a user liked", "liked"),
		newListCmd(a, "bookmarks", "Show the posts a user bookmarked", "bookmarked"),
		newToggleCmd(a, "like"),
		newToggleCmd(a, "bookmark"),
		newPostCmd(a),
	)
	return root
}

// client builds an API client, signed in when a session file exists.
func (a *app) client() (*client.Client, error) {
	opts := []client.Option{client.WithRateLimit(a.rps, 1)}
	s, err := a.loadSession()
	if err != nil {
		return nil, err
	}
	if s.Token != "" {
		opts = append(opts, client.WithToken(s.Token, s.UserID))
	}
	return client.New(a.server, opts...), nil
}

func (a *app) loadSession() (client.Session, error) {
	var s client.Session
	b, err := os.ReadFile(a.session)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("read session: %w", err)
	}
	if err := json.Unmarshal(b, &s); err != nil {
		return s, fmt.Errorf("parse session %s: %w", a.session, err)
	}
	return s, nil
}

func (a *app) saveSession(s client.Session) error {
	if err := os.MkdirAll(filepath.Dir(a.session), 0o700); err != nil {
		return err
	}
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(a.session, b, 0o600)
}

func (a *app) dropSession() error {
	err := os.Remove(a.session)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func defaultSessionPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "gatherly", "session.json")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
