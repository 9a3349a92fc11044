package cohost

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/penguinencounter/cohost-randombot/lib/htmlutil"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ProbeMismatchError means the share probe resolved a different post
// than the one we asked about. This is a consistency failure, never
// downgraded to a best guess.
type ProbeMismatchError struct {
	Expected int64
	Got      int64
}

func (e *ProbeMismatchError) Error() string {
	return fmt.Sprintf("got post id %d by sharing %d", e.Got, e.Expected)
}

// ResolveAuthor finds the handle of the account that published the
// post. The classic metadata document is tried first; if its link
// list doesn't give up the author, a share probe does. Callers can't
// tell which path ran.
func (c *Client) ResolveAuthor(ctx context.Context, postID int64) (string, error) {
	ctx, span := tracer.Start(ctx, "client:ResolveAuthor")
	defer span.End()
	span.SetAttributes(attribute.Int64("custom.post_id", postID))

	handle, err := c.authorFromLinks(ctx, postID)
	if err == nil {
		return handle, nil
	}
	slog.InfoContext(ctx, "using share probe to derive post author", "post_id", postID, "classic_err", err)
	span.AddEvent("classic lookup failed, probing")

	handle, err = c.authorFromProbe(ctx, postID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "probe failed")
		return "", err
	}
	return handle, nil
}

type projectPostLinks struct {
	Links []struct {
		Href string `json:"href"`
	} `json:"_links"`
}

func (c *Client) authorFromLinks(ctx context.Context, postID int64) (string, error) {
	res, err := c.Execute(ctx, http.MethodGet, fmt.Sprintf("/api/v1/project_post/%d", postID), nil)
	if err != nil {
		return "", err
	}
	info, err := decodeJSON[projectPostLinks](res.Body())
	if err != nil {
		return "", err
	}

	for _, link := range info.Links {
		if strings.HasPrefix(link.Href, "/api/v1/project/") && !strings.HasSuffix(link.Href, "/posts") {
			return htmlutil.LastPathSegment(link.Href), nil
		}
	}
	return "", fmt.Errorf("no project link in metadata for post %d", postID)
}

// authorFromProbe creates a throwaway share of the target on the
// scratchpad account, reads the true origin off the materialized
// share tree, and deletes the share again. The probe mutates remote
// state, so it runs exactly once per call and is never blindly
// retried.
func (c *Client) authorFromProbe(ctx context.Context, postID int64) (handle string, err error) {
	ctx, span := tracer.Start(ctx, "client:authorFromProbe")
	defer span.End()

	scratchID, err := c.CreateShare(ctx, c.scratchpad, postID, nil, nil)
	if err != nil {
		return "", err
	}
	defer func() {
		// cleanup is best-effort: its failure is worth a log line but
		// must never displace the resolution result
		cleanupErr := c.DeletePost(ctx, c.scratchpad, scratchID)
		if cleanupErr != nil {
			slog.ErrorContext(ctx, "failed to clean up probe share", "post_id", scratchID, "err", cleanupErr)
			span.AddEvent("cleanup failed")
		} else {
			slog.DebugContext(ctx, "cleaned up probe share", "post_id", scratchID)
		}
	}()

	var ext ExtendedPost
	attempts := probeAttempts
	for {
		ext, err = c.fetchExtended(ctx, scratchID, c.scratchpad)
		if err == nil {
			break
		}
		attempts--
		if attempts == 0 {
			return "", fmt.Errorf("never got post info for probe share %d: %w", scratchID, err)
		}
		slog.DebugContext(ctx, "probe share not materialized yet, waiting", "post_id", scratchID)
		c.sleep(probeInterval)
	}

	tree := ext.Post.ShareTree
	if len(tree) == 0 {
		return "", fmt.Errorf("probe share %d came back with an empty share tree", scratchID)
	}
	origin := tree[len(tree)-1]
	if origin.PostID != postID {
		return "", &ProbeMismatchError{Expected: postID, Got: origin.PostID}
	}
	return origin.PostingProject.Handle, nil
}
