// Package randomizer picks a random recent post off cohost and, if
// it survives the eligibility gauntlet, shares it to the bot's page.
package randomizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/penguinencounter/cohost-randombot/lib/cohost"

	"github.com/mazen160/go-random"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/randomizer")

// ErrNoCandidate means the attempt budget ran out before an eligible
// post turned up.
var ErrNoCandidate = errors.New("ran out of attempts or there is no more content to look at")

var ErrNotLoggedIn = errors.New("session is not logged in")

type Options struct {
	// handle the bot posts to
	PostTo string
	// handles never to share from
	BannedHandles []string
	// candidate ids to try before giving up, defaults to 50
	MaxAttempts int
	// distinct accounts a tag needs before it counts as "in use",
	// defaults to 3
	TagTarget int
	// tags applied to the bot's own share
	BotTags []string
}

type Service struct {
	client  *cohost.Client
	sampler *cohost.TagSampler
	store   Store
	opts    Options

	now   func() time.Time
	sleep func(time.Duration)
}

func NewService(client *cohost.Client, sampler *cohost.TagSampler, store Store, opts Options) *Service {
	if opts.MaxAttempts == 0 {
		opts.MaxAttempts = 50
	}
	if opts.TagTarget == 0 {
		opts.TagTarget = 3
	}
	if opts.BotTags == nil {
		opts.BotTags = []string{"bot", "randomizer/random-post"}
	}
	return &Service{
		client:  client,
		sampler: sampler,
		store:   store,
		opts:    opts,
		now:     time.Now,
		sleep:   time.Sleep,
	}
}

type Result struct {
	SharePostID  int64
	SourcePostID int64
	SourceHandle string
	VerifiedTag  string
	TagUseCount  string
}

// Run performs one randomizer round: advance the id cursor, roll
// candidate ids until one is eligible, share it and lock the share
// down.
func (s *Service) Run(ctx context.Context) (Result, error) {
	ctx, span := tracer.Start(ctx, "randomizer:Run")
	defer span.End()

	session, err := s.client.Login(ctx)
	if err != nil {
		return Result{}, err
	}
	if !session.LoggedIn {
		return Result{}, ErrNotLoggedIn
	}

	latest, err := s.client.NextPostID(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("sampling latest post id: %w", err)
	}
	last, err := s.store.Cursor(ctx)
	if err != nil {
		return Result{}, err
	}
	err = s.store.SetCursor(ctx, latest)
	if err != nil {
		return Result{}, err
	}
	slog.InfoContext(ctx, "searching id window", "from", last, "to", latest)
	span.SetAttributes(
		attribute.Int64("custom.window_start", last),
		attribute.Int64("custom.window_end", latest),
	)

	banned := map[string]bool{}
	for _, handle := range s.opts.BannedHandles {
		banned[handle] = true
	}

	tried := map[int64]bool{}
	for attempts := s.opts.MaxAttempts; attempts > 0; attempts-- {
		candidate, err := pickCandidate(last, latest)
		if err != nil {
			return Result{}, err
		}
		if tried[candidate] {
			continue
		}
		tried[candidate] = true

		result, shared, err := s.tryCandidate(ctx, candidate, banned, latest-last)
		if err != nil {
			return Result{}, err
		}
		if shared {
			return result, nil
		}
	}

	span.SetStatus(codes.Error, ErrNoCandidate.Error())
	return Result{}, ErrNoCandidate
}

// pickCandidate rolls a post id in [last, latest]. The roll works on
// the window offset so the ids themselves never pass through int,
// which is 32 bits on some platforms.
func pickCandidate(last, latest int64) (int64, error) {
	offset, err := random.IntRange(0, int(latest-last)+1)
	if err != nil {
		return 0, err
	}
	return last + int64(offset), nil
}

func (s *Service) tryCandidate(ctx context.Context, candidate int64, banned map[string]bool, poolSize int64) (Result, bool, error) {
	ext, err := s.client.FetchPost(ctx, candidate)
	if err != nil {
		// ids in the window aren't guaranteed to exist or be visible
		slog.InfoContext(ctx, "candidate unavailable", "post_id", candidate, "err", err)
		return Result{}, false, nil
	}

	collapsed, err := cohost.CollapseToOriginal(ext)
	if err != nil {
		return Result{}, false, err
	}
	reason, eft := disqualify(ext, collapsed, banned)
	if reason != "" {
		slog.InfoContext(ctx, "skipping candidate",
			"post_id", ext.Post.PostID,
			"handle", ext.Post.PostingProject.Handle,
			"reason", reason)
		return Result{}, false, nil
	}
	return s.share(ctx, ext, eft, poolSize)
}

func (s *Service) share(ctx context.Context, ext cohost.ExtendedPost, eft []string, poolSize int64) (Result, bool, error) {
	verifiedTag, useCount, ok, err := s.verifyTagUsage(ctx, eft)
	if err != nil {
		return Result{}, false, err
	}
	if !ok {
		slog.InfoContext(ctx, "skipping candidate",
			"post_id", ext.Post.PostID,
			"reason", "no tags used by others",
			"tags", eft)
		return Result{}, false, nil
	}

	body, err := renderShareBody(ext.Post, eft, verifiedTag, useCount, poolSize, s.now())
	if err != nil {
		return Result{}, false, err
	}

	// the locking endpoints only work for the active project
	err = s.client.SwitchProjectHandle(ctx, s.opts.PostTo)
	if err != nil {
		return Result{}, false, err
	}
	shareID, err := s.client.CreateShare(
		ctx,
		s.opts.PostTo,
		ext.Post.PostID,
		[]cohost.Block{cohost.MarkdownBlock(body)},
		s.opts.BotTags,
	)
	if err != nil {
		return Result{}, false, err
	}
	// give the service a moment to materialize the share before
	// poking at it
	s.sleep(time.Millisecond * 500)
	err = s.client.SetSharesLocked(ctx, shareID, true)
	if err != nil {
		return Result{}, false, err
	}
	err = s.client.SetCommentsLocked(ctx, shareID, true)
	if err != nil {
		return Result{}, false, err
	}

	err = s.store.RecordShare(ctx, ShareRecord{
		SharePostID:  shareID,
		SourcePostID: ext.Post.PostID,
		SourceHandle: ext.Post.PostingProject.Handle,
		VerifiedTag:  verifiedTag,
		SharedAt:     s.now(),
	})
	if err != nil {
		return Result{}, false, err
	}

	slog.InfoContext(ctx, "shared post",
		"share_id", shareID,
		"source_id", ext.Post.PostID,
		"source_handle", ext.Post.PostingProject.Handle)
	return Result{
		SharePostID:  shareID,
		SourcePostID: ext.Post.PostID,
		SourceHandle: ext.Post.PostingProject.Handle,
		VerifiedTag:  verifiedTag,
		TagUseCount:  useCount,
	}, true, nil
}

// verifyTagUsage looks for an effective tag that enough other
// accounts post to. Tags longer than 50 characters are assumed to be
// talking-in-tags, not topics.
func (s *Service) verifyTagUsage(ctx context.Context, eft []string) (string, string, bool, error) {
	for _, tag := range eft {
		if len([]rune(tag)) > 50 {
			continue
		}
		met, count, err := s.sampler.Sample(ctx, tag, s.opts.TagTarget)
		if err != nil {
			return "", "", false, err
		}
		if met {
			return tag, count, true, nil
		}
	}
	return "", "", false, nil
}
