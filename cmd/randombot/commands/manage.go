package commands

import (
	"fmt"
	"time"

	"github.com/penguinencounter/cohost-randombot/services/manager"

	"github.com/spf13/cobra"
)

var manageLock *string

func init() {
	manageLock = manageCmd.Flags().String("lock", ".lock", "Lockfile preventing overlapping manage runs.")
	rootCmd.AddCommand(manageCmd)
}

var manageCmd = &cobra.Command{
	Use:   "manage [--lock <path>]",
	Short: "Drains the ask inbox, honoring delete requests from involved parties.",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, cfg := createClient()
		service := manager.NewService(client, manager.Options{
			Handle:    cfg.PostTo,
			Operators: cfg.Operators,
		})

		// exiting here would skip RunLocked's deferred lock release
		handled, err := service.RunLocked(cmd.Context(), *manageLock, time.Second*120)
		if err != nil {
			return fmt.Errorf("manage round failed: %w", err)
		}
		fmt.Printf("handled %d asks\n", handled)
		return nil
	},
}
