package commands

import (
	"errors"
	"fmt"

	"github.com/penguinencounter/cohost-randombot/lib/cohost"
	"github.com/penguinencounter/cohost-randombot/lib/serviceutil"
	"github.com/penguinencounter/cohost-randombot/lib/sqliteutil"
	"github.com/penguinencounter/cohost-randombot/services/randomizer"
	"github.com/penguinencounter/cohost-randombot/services/randomizer/db"

	"github.com/spf13/cobra"
)

var randomizeDb *string

func init() {
	randomizeDb = randomizeCmd.Flags().String("db", "randomizer.db", "The database holding the id cursor and share log.")
	rootCmd.AddCommand(randomizeCmd)
}

var randomizeCmd = &cobra.Command{
	Use:   "randomize [--db <path/to/state.db>]",
	Short: "Rolls a random post and shares it if it qualifies.",
	Run: func(cmd *cobra.Command, args []string) {
		client, cfg := createClient()
		state, err := sqliteutil.OpenDB(db.Schema, *randomizeDb)
		if err != nil {
			serviceutil.Fatal("failed to open db", err)
		}
		defer state.Close()

		sampler := cohost.NewTagSampler(client, cohost.TagSamplerOptions{})
		service := randomizer.NewService(client, sampler, randomizer.NewStore(state), randomizer.Options{
			PostTo:        cfg.PostTo,
			BannedHandles: cfg.BannedHandles,
		})

		result, err := service.Run(cmd.Context())
		if errors.Is(err, randomizer.ErrNoCandidate) {
			// legitimate outcome of a quiet day
			fmt.Println("nothing eligible this round")
			return
		}
		if err != nil {
			serviceutil.Fatal("randomizer round failed", err)
		}
		fmt.Printf("shared #%d by @%s as #%d (tag #%s, %s posters)\n",
			result.SourcePostID, result.SourceHandle, result.SharePostID,
			result.VerifiedTag, result.TagUseCount)
	},
}
