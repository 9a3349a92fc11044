package cohost

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFetchPost(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/project_post/55", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"_links": [{"href": "/api/v1/project/writer"}]}`))
	})
	mux.HandleFunc("/api/v1/trpc/posts.singlePost", func(w http.ResponseWriter, r *http.Request) {
		input := r.URL.Query().Get("input")
		require.JSONEq(t, `{"0": {"postId": 55, "handle": "writer"}}`, input)
		w.Write([]byte(`[{"result": {"data": {
			"post": {"postId": 55, "headline": "hello", "postingProject": {"handle": "writer"}},
			"comments": {"55": [{"comment": {"commentId": "c9", "body": "first"}}]}
		}}}]`))
	})
	client, _ := newTestClient(t, mux)

	ext, err := client.FetchPost(context.Background(), 55)
	require.NoError(t, err)
	require.Equal(t, int64(55), ext.Post.PostID)
	require.Equal(t, "hello", ext.Post.Headline)
	require.Equal(t, "first", ext.Comments["55"][0].Comment.Body)
}

func TestCreateSharePayload(t *testing.T) {
	var captured []byte
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/trpc/posts.create", func(w http.ResponseWriter, r *http.Request) {
		captured, _ = io.ReadAll(r.Body)
		w.Write([]byte(`[{"result": {"data": {"postId": 321}}}]`))
	})
	client, _ := newTestClient(t, mux)

	id, err := client.CreateShare(
		context.Background(),
		"randomizer",
		100,
		[]Block{MarkdownBlock("look at this")},
		[]string{"bot"},
	)
	require.NoError(t, err)
	require.Equal(t, int64(321), id)

	var body map[string]createPostRequest
	require.NoError(t, json.Unmarshal(captured, &body))
	content := body["0"].Content
	require.Equal(t, "randomizer", body["0"].ProjectHandle)
	require.NotNil(t, content.ShareOfPostID)
	require.Equal(t, int64(100), *content.ShareOfPostID)
	require.Equal(t, 1, content.PostState)
	require.Equal(t, []string{"bot"}, content.Tags)
	require.Equal(t, "look at this", content.Blocks[0].Markdown.Content)
	require.NotNil(t, content.CWs, "cws must serialize as a list, not null")
}

func TestLogin(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/trpc/login.loggedIn,projects.listEditedProjects", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"result": {"data": {"loggedIn": true}}},
			{"result": {"data": {"projects": [
				{"projectId": 188410, "handle": "quae-nihl"},
				{"projectId": 217741, "handle": "randomizer"}
			]}}}
		]`))
	})
	client, _ := newTestClient(t, mux)

	session, err := client.Login(context.Background())
	require.NoError(t, err)
	require.True(t, session.LoggedIn)
	require.Len(t, session.Projects, 2)

	// the handle map is what SwitchProjectHandle runs on
	require.Equal(t, int64(217741), client.projectIDs["randomizer"])
	err = client.SwitchProjectHandle(context.Background(), "nobody")
	require.Error(t, err)
}

func TestLoginConcurrent(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/trpc/login.loggedIn,projects.listEditedProjects", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"result": {"data": {"loggedIn": true}}},
			{"result": {"data": {"projects": [
				{"projectId": 217741, "handle": "randomizer"}
			]}}}
		]`))
	})
	mux.HandleFunc("/api/v1/trpc/projects.switchProject", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"result": {"data": {}}}]`))
	})
	client, _ := newTestClient(t, mux)

	_, err := client.Login(context.Background())
	require.NoError(t, err)

	// the handle map is shared; concurrent logins and lookups must not
	// race each other
	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := client.Login(context.Background()); err != nil {
				errs <- err
				return
			}
			if err := client.SwitchProjectHandle(context.Background(), "randomizer"); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
}

func TestLoginLoggedOut(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/trpc/login.loggedIn,projects.listEditedProjects", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"result": {"data": {"loggedIn": false}}},
			{"result": {"data": {"projects": []}}}
		]`))
	})
	client, _ := newTestClient(t, mux)

	session, err := client.Login(context.Background())
	require.NoError(t, err)
	require.False(t, session.LoggedIn)
	require.Empty(t, session.Projects)
}

func TestPostKind(t *testing.T) {
	testCases := []struct {
		post   Post
		expect PostKind
	}{
		{post: Post{}, expect: KindOriginal},
		{post: Post{ShareOfPostID: intp(1)}, expect: KindReply},
		{post: Post{ShareOfPostID: intp(1), TransparentShareOfPostID: intp(1), Tags: []string{"art"}}, expect: KindTagged},
		{post: Post{ShareOfPostID: intp(1), TransparentShareOfPostID: intp(1)}, expect: KindTransparent},
	}
	for _, test := range testCases {
		require.Equal(t, test.expect, test.post.Kind())
	}
}
