package cohost

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

func (c *Client) singlePostURL(postID int64, handle string) string {
	input := fmt.Sprintf(`{"0":{"postId":%d,"handle":%q}}`, postID, handle)
	query := url.Values{}
	query.Set("batch", "1")
	query.Set("input", input)
	return "/api/v1/trpc/posts.singlePost?" + query.Encode()
}

// FetchPost resolves the post's author and retrieves its extended
// record (share tree plus comment threads).
func (c *Client) FetchPost(ctx context.Context, postID int64) (ExtendedPost, error) {
	ctx, span := tracer.Start(ctx, "client:FetchPost")
	defer span.End()
	span.SetAttributes(attribute.Int64("custom.post_id", postID))

	handle, err := c.ResolveAuthor(ctx, postID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to resolve author")
		return ExtendedPost{}, err
	}
	return c.fetchExtended(ctx, postID, handle)
}

// FetchPostAs retrieves the extended record of a post whose author is
// already known, skipping resolution.
func (c *Client) FetchPostAs(ctx context.Context, postID int64, handle string) (ExtendedPost, error) {
	return c.fetchExtended(ctx, postID, handle)
}

func (c *Client) fetchExtended(ctx context.Context, postID int64, handle string) (ExtendedPost, error) {
	res, err := c.Execute(ctx, http.MethodGet, c.singlePostURL(postID, handle), nil)
	if err != nil {
		return ExtendedPost{}, err
	}
	return decodeBatchSingle[ExtendedPost](res.Body())
}

type createPostResponse struct {
	PostID int64 `json:"postId"`
}

// CreateShare publishes a reshare of shareOf under the given handle.
// Nil blocks and tags are sent as empty lists; a share with neither
// is a transparent share.
func (c *Client) CreateShare(ctx context.Context, handle string, shareOf int64, blocks []Block, tags []string) (int64, error) {
	ctx, span := tracer.Start(ctx, "client:CreateShare")
	defer span.End()
	span.SetAttributes(attribute.Int64("custom.share_of", shareOf))

	if blocks == nil {
		blocks = []Block{}
	}
	if tags == nil {
		tags = []string{}
	}
	body := map[string]createPostRequest{
		"0": {
			ProjectHandle: handle,
			Content: createContent{
				AdultContent:  false,
				Blocks:        blocks,
				CWs:           []string{},
				Headline:      "",
				PostState:     1,
				Tags:          tags,
				ShareOfPostID: &shareOf,
			},
		},
	}
	res, err := c.Execute(ctx, http.MethodPost, "/api/v1/trpc/posts.create?batch=1", body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create share")
		return 0, err
	}
	created, err := decodeBatchSingle[createPostResponse](res.Body())
	if err != nil {
		return 0, err
	}
	return created.PostID, nil
}

func (c *Client) DeletePost(ctx context.Context, handle string, postID int64) error {
	ctx, span := tracer.Start(ctx, "client:DeletePost")
	defer span.End()

	body := map[string]any{
		"0": map[string]any{"postId": postID, "projectHandle": handle},
	}
	_, err := c.Execute(ctx, http.MethodPost, "/api/v1/trpc/posts.delete?batch=1", body)
	return err
}

func (c *Client) SetSharesLocked(ctx context.Context, postID int64, locked bool) error {
	body := map[string]any{
		"0": map[string]any{"postId": postID, "sharesLocked": locked},
	}
	_, err := c.Execute(ctx, http.MethodPost, "/api/v1/trpc/posts.setSharesLocked?batch=1", body)
	return err
}

func (c *Client) SetCommentsLocked(ctx context.Context, postID int64, locked bool) error {
	body := map[string]any{
		"0": map[string]any{"postId": postID, "commentsLocked": locked},
	}
	_, err := c.Execute(ctx, http.MethodPost, "/api/v1/trpc/posts.setCommentsLocked?batch=1", body)
	return err
}

// SwitchProject switches the session's active project. Some locking
// endpoints only apply to the active project.
func (c *Client) SwitchProject(ctx context.Context, projectID int64) error {
	body := map[string]any{
		"0": map[string]any{"projectId": projectID},
	}
	_, err := c.Execute(ctx, http.MethodPost, "/api/v1/trpc/projects.switchProject?batch=1", body)
	return err
}

// SwitchProjectHandle is SwitchProject by handle, using the project
// map populated by Login.
func (c *Client) SwitchProjectHandle(ctx context.Context, handle string) error {
	c.mu.Lock()
	id, ok := c.projectIDs[handle]
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown project handle %q (did you Login first?)", handle)
	}
	return c.SwitchProject(ctx, id)
}

// NextPostID samples the service's monotonic post id counter by
// creating a scratch post and deleting it immediately.
func (c *Client) NextPostID(ctx context.Context) (int64, error) {
	ctx, span := tracer.Start(ctx, "client:NextPostID")
	defer span.End()

	body := map[string]createPostRequest{
		"0": {
			ProjectHandle: c.scratchpad,
			Content: createContent{
				Blocks:    []Block{MarkdownBlock("don't mind me, checking next post ID")},
				CWs:       []string{},
				Tags:      []string{},
				PostState: 1,
			},
		},
	}
	res, err := c.Execute(ctx, http.MethodPost, "/api/v1/trpc/posts.create?batch=1", body)
	if err != nil {
		return 0, err
	}
	created, err := decodeBatchSingle[createPostResponse](res.Body())
	if err != nil {
		return 0, err
	}
	err = c.DeletePost(ctx, c.scratchpad, created.PostID)
	if err != nil {
		return 0, err
	}
	return created.PostID, nil
}

type Session struct {
	LoggedIn bool
	Projects []Project
}

// Login checks the session cookie and lists the projects it can post
// as, caching their handle to id mapping on the client.
func (c *Client) Login(ctx context.Context) (Session, error) {
	ctx, span := tracer.Start(ctx, "client:Login")
	defer span.End()

	res, err := c.http.R().
		SetContext(ctx).
		Get(`/api/v1/trpc/login.loggedIn,projects.listEditedProjects?batch=1&input={}`)
	if err != nil {
		return Session{}, err
	}
	if res.StatusCode() >= 400 && res.StatusCode() <= 599 {
		return Session{}, fmt.Errorf("bad HTTP code: %d", res.StatusCode())
	}

	var batch []trpcEnvelope[json.RawMessage]
	err = json.Unmarshal(res.Body(), &batch)
	if err != nil {
		return Session{}, fmt.Errorf("decoding login response: %w", err)
	}
	if len(batch) < 2 {
		return Session{}, fmt.Errorf("login response had %d entries, expected 2", len(batch))
	}

	var login struct {
		LoggedIn bool `json:"loggedIn"`
	}
	err = json.Unmarshal(batch[0].Result.Data, &login)
	if err != nil {
		return Session{}, err
	}
	if !login.LoggedIn {
		return Session{LoggedIn: false}, nil
	}

	var edited struct {
		Projects []Project `json:"projects"`
	}
	err = json.Unmarshal(batch[1].Result.Data, &edited)
	if err != nil {
		return Session{}, err
	}
	c.mu.Lock()
	for _, project := range edited.Projects {
		c.projectIDs[project.Handle] = project.ProjectID
	}
	c.mu.Unlock()

	return Session{LoggedIn: true, Projects: edited.Projects}, nil
}
