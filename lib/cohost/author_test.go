package cohost

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestResolveAuthorClassic(t *testing.T) {
	var probes atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/project_post/123", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"_links": [
			{"href": "/api/v1/project/someone/posts"},
			{"href": "/api/v1/project/someone"},
			{"href": "/api/v1/unrelated"}
		]}`))
	})
	mux.HandleFunc("/api/v1/trpc/posts.create", func(w http.ResponseWriter, r *http.Request) {
		probes.Add(1)
		w.Write([]byte(`[{"result": {"data": {"postId": 900}}}]`))
	})
	client, _ := newTestClient(t, mux)

	handle, err := client.ResolveAuthor(context.Background(), 123)
	require.NoError(t, err)
	require.Equal(t, "someone", handle)
	require.Equal(t, int64(0), probes.Load(), "classic path must not probe")
}

// probeServer scripts the endpoints the share probe touches.
type probeServer struct {
	mux     *http.ServeMux
	creates atomic.Int64
	deletes atomic.Int64
	// responses for posts.singlePost, popped in order
	singlePost []string
	fetches    atomic.Int64
}

func newProbeServer(tailPostID int64, notFoundFirst int) *probeServer {
	s := &probeServer{mux: http.NewServeMux()}

	// classic metadata with no usable project link
	s.mux.HandleFunc("/api/v1/project_post/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"_links": [{"href": "/api/v1/project/someone/posts"}]}`))
	})
	s.mux.HandleFunc("/api/v1/trpc/posts.create", func(w http.ResponseWriter, r *http.Request) {
		s.creates.Add(1)
		w.Write([]byte(`[{"result": {"data": {"postId": 900}}}]`))
	})
	s.mux.HandleFunc("/api/v1/trpc/posts.delete", func(w http.ResponseWriter, r *http.Request) {
		s.deletes.Add(1)
		w.Write([]byte(`[{"result": {"data": {}}}]`))
	})
	s.mux.HandleFunc("/api/v1/trpc/posts.singlePost", func(w http.ResponseWriter, r *http.Request) {
		if s.fetches.Add(1) <= int64(notFoundFirst) {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"message": "record not ready"}`))
			return
		}
		w.Write([]byte(fmt.Sprintf(`[{"result": {"data": {"post": {
			"postId": 900,
			"shareOfPostId": 123,
			"transparentShareOfPostId": 123,
			"shareTree": [
				{"postId": %d, "postingProject": {"projectId": 7, "handle": "hidden-author"}}
			]
		}, "comments": {}}}}]`, tailPostID)))
	})

	return s
}

func TestResolveAuthorProbe(t *testing.T) {
	server := newProbeServer(123, 0)
	client, _ := newTestClient(t, server.mux)

	handle, err := client.ResolveAuthor(context.Background(), 123)
	require.NoError(t, err)
	require.Equal(t, "hidden-author", handle)
	require.Equal(t, int64(1), server.creates.Load(), "probe must run exactly once")
	require.Equal(t, int64(1), server.deletes.Load(), "scratch share must be deleted exactly once")
}

func TestResolveAuthorProbePolls(t *testing.T) {
	server := newProbeServer(123, 2)
	client, waits := newTestClient(t, server.mux)

	handle, err := client.ResolveAuthor(context.Background(), 123)
	require.NoError(t, err)
	require.Equal(t, "hidden-author", handle)
	require.Equal(t, int64(3), server.fetches.Load())
	require.Equal(t, []time.Duration{probeInterval, probeInterval}, *waits)
}

func TestResolveAuthorProbeGivesUp(t *testing.T) {
	server := newProbeServer(123, 100)
	client, _ := newTestClient(t, server.mux)

	_, err := client.ResolveAuthor(context.Background(), 123)
	require.Error(t, err)
	require.Equal(t, int64(probeAttempts), server.fetches.Load())
	require.Equal(t, int64(1), server.deletes.Load(), "cleanup runs even when resolution fails")
}

func TestResolveAuthorProbeMismatch(t *testing.T) {
	server := newProbeServer(124, 0)
	client, _ := newTestClient(t, server.mux)

	_, err := client.ResolveAuthor(context.Background(), 123)
	var mismatch *ProbeMismatchError
	require.ErrorAs(t, err, &mismatch)
	require.Equal(t, int64(123), mismatch.Expected)
	require.Equal(t, int64(124), mismatch.Got)
	require.Equal(t, int64(1), server.deletes.Load(), "cleanup runs even on consistency errors")
}
