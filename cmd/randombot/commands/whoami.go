package commands

import (
	"fmt"
	"os"

	"github.com/penguinencounter/cohost-randombot/lib/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(whoamiCmd)
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Checks the session cookie and lists the projects it can post as.",
	Run: func(cmd *cobra.Command, args []string) {
		client, _ := createClient()

		session, err := client.Login(cmd.Context())
		if err != nil {
			serviceutil.Fatal("login check failed", err)
		}
		if !session.LoggedIn {
			fmt.Println("not logged in!!")
			os.Exit(1)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Project", "Handle", "Display name"})
		for _, project := range session.Projects {
			t.AppendRow(table.Row{project.ProjectID, "@" + project.Handle, project.DisplayName})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}
