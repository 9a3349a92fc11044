package commands

import (
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/penguinencounter/cohost-randombot/lib/cohost"
	"github.com/penguinencounter/cohost-randombot/lib/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(lineageCmd)
}

var lineageCmd = &cobra.Command{
	Use:   "lineage <post id>",
	Short: "Prints a post's full share chain, including ancestors hidden by transparent shares.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		postID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			serviceutil.Fatal("post id must be a number", err)
		}

		client, _ := createClient()
		ctx := cmd.Context()

		ext, err := client.FetchPost(ctx, postID)
		if err != nil {
			serviceutil.Fatal("failed to fetch post", err)
		}
		if oc, err := cohost.CollapseToOriginal(ext); err == nil {
			fmt.Printf("last contributor: %d by @%s\n", oc.Post.PostID, oc.Post.PostingProject.Handle)
		}

		// the visible tree, oldest first, plus the post itself
		seen := map[int64]bool{}
		var chain []cohost.Post
		for _, item := range append(append([]cohost.Post{}, ext.Post.ShareTree...), ext.Post) {
			seen[item.PostID] = true
			chain = append(chain, item)
		}

		// transparent shares truncate the visible tree, so walk through
		// them to recover the hidden ancestors
		current := ext.Post
		for len(current.ShareTree) > 0 {
			parent := current.ShareTree[len(current.ShareTree)-1]
			if parent.Kind() != cohost.KindTransparent {
				break
			}
			hidden, err := client.FetchPost(ctx, parent.PostID)
			if err != nil {
				serviceutil.Fatal("failed to fetch hidden ancestor", err)
			}
			current = hidden.Post
			if !seen[current.PostID] {
				seen[current.PostID] = true
				chain = append(chain, current)
			}
		}

		sort.Slice(chain, func(i, j int) bool {
			return chain[i].PostID < chain[j].PostID
		})

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Kind", "Post", "Headline", "Author", "URL"})
		for _, item := range chain {
			headline := item.Headline
			if headline == "" {
				headline = "<no headline>"
			}
			t.AppendRow(table.Row{
				item.Kind(),
				item.PostID,
				headline,
				"@" + item.PostingProject.Handle,
				fmt.Sprintf("https://cohost.org/%s/post/%d-a", item.PostingProject.Handle, item.PostID),
			})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}
