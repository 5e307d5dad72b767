package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rapidos-social/go-rapidos/feed"
	"github.com/rapidos-social/go-rapidos/publicapi"
	"github.com/rapidos-social/go-rapidos/service/persist"
	sentryutil "github.com/rapidos-social/go-rapidos/service/sentry"
	"github.com/rapidos-social/go-rapidos/util"
	"github.com/spf13/cobra"
)

var (
	signUpUsername string
	signUpName     string
	quickPost      bool
)

func init() {
	signUpCmd.Flags().StringVar(&signUpUsername, "username", "", "app username")
	signUpCmd.Flags().StringVar(&signUpName, "name", "", "display name")
	postCmd.Flags().BoolVar(&quickPost, "quick", false, "generate the post when no content is given")
}

var signUpCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create an account and show the feed",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := setup(cmd)
		defer sentryutil.Flush()

		api := publicapi.NewFromEnv(ctx)
		defer api.Shutdown()

		_, err := api.Auth.SignUp(ctx, publicapi.SignUpInput{
			Email:       credential(email, "RAPIDOS_EMAIL"),
			Password:    credential(password, "RAPIDOS_PASSWORD"),
			Username:    signUpUsername,
			DisplayName: signUpName,
		})
		if err != nil {
			return err
		}

		printView(cmd.OutOrStdout(), api.Feed.View())
		return nil
	},
}

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "Show the feed, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, api *publicapi.PublicAPI) error {
			printView(cmd.OutOrStdout(), api.Feed.View())
			return nil
		})
	},
}

var postCmd = &cobra.Command{
	Use:   "post [content]",
	Short: "Publish a post as the signed-in user",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		content := strings.Join(args, " ")
		return withSession(cmd, func(ctx context.Context, api *publicapi.PublicAPI) error {
			if quickPost {
				posted, err := api.Feed.QuickPost(ctx, content)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "posted: %s\n\n", posted)
			} else if err := api.Feed.AddPost(ctx, content); err != nil {
				return err
			}
			printView(cmd.OutOrStdout(), api.Feed.View())
			return nil
		})
	},
}

var likeCmd = &cobra.Command{
	Use:   "like <post-id>",
	Short: "Like a post, or remove an existing like",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, api *publicapi.PublicAPI) error {
			if err := api.Feed.ToggleLike(ctx, persist.DBID(args[0])); err != nil {
				return err
			}
			printView(cmd.OutOrStdout(), api.Feed.View())
			return nil
		})
	},
}

var commentCmd = &cobra.Command{
	Use:   "comment <post-id> <content>",
	Short: "Comment on a post and show its thread",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		postID := persist.DBID(args[0])
		content := strings.Join(args[1:], " ")
		return withSession(cmd, func(ctx context.Context, api *publicapi.PublicAPI) error {
			if _, err := api.Feed.OpenFocusedPost(ctx, postID); err != nil {
				return err
			}
			if err := api.Feed.AddComment(ctx, postID, content); err != nil {
				return err
			}
			view := api.Feed.View()
			if view.Focused != nil {
				printThread(cmd.OutOrStdout(), *view.Focused)
			}
			return nil
		})
	},
}

var suggestCmd = &cobra.Command{
	Use:   "suggest [draft]",
	Short: "Suggest a post, or complete a draft",
	RunE: func(cmd *cobra.Command, args []string) error {
		draft := strings.Join(args, " ")
		return withSession(cmd, func(ctx context.Context, api *publicapi.PublicAPI) error {
			suggestion, err := api.Feed.Suggest(ctx, draft)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), suggestion)
			return nil
		})
	},
}

func printView(w io.Writer, view feed.View) {
	if view.Viewer != nil {
		fmt.Fprintf(w, "signed in as %s (@%s)\n", view.Viewer.Name, view.Viewer.Handle)
	}
	if view.Message != "" {
		fmt.Fprintf(w, "! %s\n", view.Message)
	}
	if len(view.Posts) == 0 {
		fmt.Fprintln(w, "no posts yet")
		return
	}

	for _, post := range view.Posts {
		liked := " "
		if post.LikedByViewer {
			liked = "*"
		}
		author := "@" + post.Author.Handle
		if post.IsBotPost || post.Author.IsBot {
			author += " [bot]"
		}
		fmt.Fprintf(w, "\n%s %s  %s\n", post.ID, author, post.CreatedAt.Format("Jan 2 15:04"))
		fmt.Fprintf(w, "  %s\n", util.TruncateWithEllipsis(post.Content, 280))
		fmt.Fprintf(w, "  %s%d likes  %d comments\n", liked, post.LikeCount, post.CommentCount)
	}
}

func printThread(w io.Writer, post persist.Post) {
	fmt.Fprintf(w, "@%s: %s\n", post.Author.Handle, post.Content)
	for _, c := range post.Comments {
		fmt.Fprintf(w, "  @%s: %s\n", c.Author.Handle, c.Content)
	}
}
