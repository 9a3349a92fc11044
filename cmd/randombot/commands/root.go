// Package commands holds the randombot CLI. Every subcommand is a
// single bot round so the whole thing can run out of cron.
package commands

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/penguinencounter/cohost-randombot/lib/cohost"
	"github.com/penguinencounter/cohost-randombot/lib/configutil"
	"github.com/penguinencounter/cohost-randombot/lib/serviceutil"

	"github.com/spf13/cobra"
)

type Config struct {
	// handle the bot posts as
	PostTo string `json:"post_to"`
	// handle used for scratch posts and share probes
	Scratchpad string `json:"scratchpad"`
	// handles never to share from
	BannedHandles []string `json:"banned_handles"`
	// project ids allowed to manage any share
	Operators []int64 `json:"operators"`
	UserAgent string  `json:"user_agent"`
}

var rootCmd = &cobra.Command{
	Use:   "randombot",
	Short: "randombot shares random cohost posts and handles takedown asks.",
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// createClient reads config.json5 and the COHOST_COOKIE environment
// variable and builds a session-carrying client.
func createClient() (*cohost.Client, Config) {
	cfg, err := configutil.ReadConfig[Config]("config.json5")
	if err != nil {
		serviceutil.Fatal("failed to read config", err)
	}
	cookie := os.Getenv("COHOST_COOKIE")
	if cookie == "" {
		serviceutil.Fatal("missing session", errors.New("COHOST_COOKIE is not set"))
	}

	client, err := cohost.NewClient(cohost.ClientOptions{
		SessionCookie: cookie,
		Scratchpad:    cfg.Scratchpad,
		UserAgent:     cfg.UserAgent,
	})
	if err != nil {
		serviceutil.Fatal("failed to initialize cohost client", err)
	}
	return client, cfg
}
