package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"gatherly/internal/engagement"
	"gatherly/pkg/client"

	"github.com/spf13/cobra"
)

// newListCmd lists one page of posts. An empty scope is the feed; other
// scopes take a user id and default to the signed in user.
func newListCmd(a *app, use, short, scope string) *cobra.Command {
	var limit, offset int
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), a.timeout)
			defer cancel()
			c, err := a.client()
			if err != nil {
				return err
			}
			uid, _ := cmd.Flags().GetString("user")
			if scope != "" && uid == "" {
				uid = c.UserID()
				if uid == "" {
					return fmt.Errorf("%s needs --user or a signed in session", use)
				}
			}
			entries, err := c.Entries(ctx, client.ListOptions{Scope: scope, UserID: uid, Limit: limit, Offset: offset})
			if err != nil {
				return err
			}
			b := engagement.NewBoard(engagement.NewMutator(c))
			b.Replace(entries, c.UserID())
			return printItems(cmd.OutOrStdout(), b.Snapshot())
		},
	}
	if scope != "" {
		cmd.Flags().String("user", "", "user id (defaults to the signed in user)")
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "page size")
	cmd.Flags().IntVar(&offset, "offset", 0, "page offset")
	return cmd
}

func printItems(out io.Writer, items []engagement.Item) error {
	if len(items) == 0 {
		_, err := fmt.Fprintln(out, "no posts")
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tLIKES\tBOOKMARKS")
	for _, it := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", it.ID, it.Title,
			mark(it.IsLiked, it.LikeCount), mark(it.IsBookmarked, it.BookmarkCount))
	}
	return tw.Flush()
}

// mark renders a count, starred when the viewer holds the relation.
func mark(on bool, n int) string {
	if on {
		return fmt.Sprintf("*%d", n)
	}
	return fmt.Sprint(n)
}

func newPostCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "post",
		Short: "Create or delete your posts",
	}
	cmd.AddCommand(newPostCreateCmd(a), newPostDeleteCmd(a))
	return cmd
}

func newPostCreateCmd(a *app) *cobra.Command {
	var title, description, image string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Publish a post, optionally with an image",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), a.timeout)
			defer cancel()
			c, err := a.client()
			if err != nil {
				return err
			}
			var r io.Reader
			if image != "" {
				f, err := os.Open(image)
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}
			it, err := c.CreatePost(ctx, title, description, filepath.Base(image), r)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", it.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "post title (required)")
	cmd.Flags().StringVar(&description, "description", "", "post body")
	cmd.Flags().StringVar(&image, "image", "", "path of an image to attach")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newPostDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <post_id>",
		Short: "Delete one of your posts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), a.timeout)
			defer cancel()
			c, err := a.client()
			if err != nil {
				return err
			}
			n, err := c.DeletePost(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s, %d posts left\n", args[0], n)
			return nil
		},
	}
}
