package randomizer

import (
	"testing"
	"time"

	"github.com/penguinencounter/cohost-randombot/lib/cohost"

	"github.com/stretchr/testify/require"
)

func TestRenderShareBody(t *testing.T) {
	post := cohost.Post{
		PostID:            150,
		PostingProject:    cohost.Project{Handle: "artist"},
		SinglePostPageURL: "https://cohost.org/artist/post/150-hello",
	}
	at := time.Date(2023, time.June, 1, 12, 0, 0, 0, time.UTC)

	body, err := renderShareBody(post, []string{"art", "oc"}, "art", "3", 200, at)
	require.NoError(t, err)

	require.Contains(t, body, `<a href="https://cohost.org/artist/post/150-hello">post #150</a>`)
	require.Contains(t, body, "a post by")
	require.Contains(t, body, `<a href="https://cohost.org/artist">@artist</a>`)
	require.Contains(t, body, "2 tags")
	require.Contains(t, body, "#art")
	require.Contains(t, body, "(3 posters)")
	require.Contains(t, body, "Thu 01 June, 2023 12:00:00 UTC")
	require.Contains(t, body, "out of 200 candidate ids")
	require.Contains(t, body, "(0.500% each)")
}

func TestRenderShareBodyEffectiveTags(t *testing.T) {
	post := cohost.Post{
		PostID:         7,
		PostingProject: cohost.Project{Handle: "curator"},
		ShareTree:      []cohost.Post{{PostID: 1}},
	}

	body, err := renderShareBody(post, []string{"art"}, "art", "5 or more", 0, time.Unix(0, 0))
	require.NoError(t, err)
	require.Contains(t, body, "1 effective tags")
	require.Contains(t, body, "(5 or more posters)")
	require.Contains(t, body, "(100.000% each)")
}
