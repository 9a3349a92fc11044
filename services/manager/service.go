// Package manager processes moderation requests sent to the bot's ask
// inbox. Anyone can send an ask containing a fenced command block; the
// manager honors the commands the sender is entitled to and discards
// the ask either way.
package manager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/penguinencounter/cohost-randombot/lib/cohost"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/manager")

var ErrNotLoggedIn = errors.New("session is not logged in")

type Options struct {
	// project whose inbox is read and whose shares get managed
	Handle string
	// project ids allowed to manage any share, not just their own
	Operators []int64
}

type Service struct {
	client *cohost.Client
	opts   Options
}

func NewService(client *cohost.Client, opts Options) *Service {
	return &Service{client: client, opts: opts}
}

var (
	blockPattern = regexp.MustCompile("```@?randomizer\r?\n([\\S\\s]*?)\r?\n```")
	linePattern  = regexp.MustCompile(`^(delete|suppress|unsuppress) (\d+)$`)
)

type command struct {
	Verb   string
	Target int64
}

// parseCommands extracts the commands from an ask body. Commands live
// in a fenced code block tagged "randomizer" (an @ prefix on the tag is
// tolerated), one per line. Lines that aren't commands are ignored, as
// is everything outside the block.
func parseCommands(content string) []command {
	bounds := blockPattern.FindStringSubmatch(content)
	if bounds == nil {
		return nil
	}

	var commands []command
	for _, line := range strings.Split(strings.ReplaceAll(bounds[1], "\r\n", "\n"), "\n") {
		match := linePattern.FindStringSubmatch(strings.TrimSpace(line))
		if match == nil {
			continue
		}
		target, err := strconv.ParseInt(match[2], 10, 64)
		if err != nil {
			continue
		}
		commands = append(commands, command{Verb: match[1], Target: target})
	}
	return commands
}

// Run drains the inbox once: every pending ask is parsed, its commands
// dispatched and the ask rejected. Returns how many asks it handled.
func (s *Service) Run(ctx context.Context) (int, error) {
	ctx, span := tracer.Start(ctx, "manager:Run")
	defer span.End()

	session, err := s.client.Login(ctx)
	if err != nil {
		return 0, err
	}
	if !session.LoggedIn {
		return 0, ErrNotLoggedIn
	}

	asks, err := s.client.ListAsks(ctx, s.opts.Handle)
	if err != nil {
		return 0, err
	}
	span.SetAttributes(attribute.Int("custom.pending_asks", len(asks)))

	for _, ask := range asks {
		err = s.process(ctx, ask)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "processing ask failed")
			return 0, err
		}
		slog.InfoContext(ctx, "discarding ask",
			"ask_id", ask.AskID,
			"from", ask.AskingProject.Handle)
		err = s.client.RejectAsk(ctx, ask.AskID)
		if err != nil {
			return 0, err
		}
	}
	return len(asks), nil
}

func (s *Service) process(ctx context.Context, ask cohost.Ask) error {
	for _, cmd := range parseCommands(ask.Content) {
		switch cmd.Verb {
		case "delete":
			err := s.deleteShare(ctx, cmd.Target, ask)
			if err != nil {
				return err
			}
		default:
			// suppress/unsuppress are reserved words for now
			slog.InfoContext(ctx, "not yet implemented", "verb", cmd.Verb, "target", cmd.Target)
		}
	}
	return nil
}

// deleteShare removes one of the bot's shares on request. The request
// is honored when it comes from the shared post's immediate author,
// the root author of the share chain, or an operator; anyone else gets
// logged and ignored.
func (s *Service) deleteShare(ctx context.Context, target int64, ask cohost.Ask) error {
	ext, err := s.client.FetchPostAs(ctx, target, s.opts.Handle)
	if err != nil {
		slog.WarnContext(ctx, "managed share does not exist", "post_id", target, "err", err)
		return nil
	}
	tree := ext.Post.ShareTree
	if len(tree) == 0 {
		slog.WarnContext(ctx, "refusing to manage a post that isn't a share", "post_id", target)
		return nil
	}

	immediate := tree[len(tree)-1].PostingProject
	root := tree[0].PostingProject
	requester := ask.AskingProject

	allowed := requester.ProjectID == immediate.ProjectID ||
		requester.ProjectID == root.ProjectID ||
		slices.Contains(s.opts.Operators, requester.ProjectID)
	if !allowed {
		slog.WarnContext(ctx, "access violation", "detail", fmt.Sprintf(
			"%s (%d) tried to delete share #%d, but only %s (%d), %s (%d), or an operator can do that",
			requester.Handle, requester.ProjectID, target,
			immediate.Handle, immediate.ProjectID,
			root.Handle, root.ProjectID))
		return nil
	}

	slog.InfoContext(ctx, "deleting share", "post_id", target, "requested_by", requester.Handle)
	return s.client.DeletePost(ctx, s.opts.Handle, target)
}
