package randomizer

import (
	"testing"

	"github.com/penguinencounter/cohost-randombot/lib/cohost"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestIsBotAccount(t *testing.T) {
	require.True(t, isBotAccount(cohost.Project{Handle: "some-bot"}))
	require.True(t, isBotAccount(cohost.Project{Handle: "whatever", DisplayName: "beep 🤖 boop"}))
	require.False(t, isBotAccount(cohost.Project{Handle: "botanist", DisplayName: "plants!"}))
}

func TestEffectiveTags(t *testing.T) {
	root := cohost.Post{
		PostID:         1,
		PostingProject: cohost.Project{ProjectID: 10},
		Tags:           []string{"art", "photography"},
	}

	testCases := []struct {
		name   string
		post   cohost.Post
		expect []string
	}{
		{
			name: "original keeps its own tags",
			post: cohost.Post{
				Tags: []string{"art", "oc"},
			},
			expect: []string{"art", "oc"},
		},
		{
			name: "share keeps only the overlap",
			post: cohost.Post{
				PostingProject: cohost.Project{ProjectID: 20},
				Tags:           []string{"art", "oc"},
				ShareTree:      []cohost.Post{root},
			},
			expect: []string{"art"},
		},
		{
			name: "self-share keeps everything",
			post: cohost.Post{
				PostingProject: cohost.Project{ProjectID: 10},
				Tags:           []string{"art", "oc"},
				ShareTree:      []cohost.Post{root},
			},
			expect: []string{"art", "oc"},
		},
		{
			name: "no overlap",
			post: cohost.Post{
				PostingProject: cohost.Project{ProjectID: 20},
				Tags:           []string{"oc"},
				ShareTree:      []cohost.Post{root},
			},
			expect: nil,
		},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			diff := cmp.Diff(test.expect, effectiveTags(test.post))
			require.Empty(t, diff)
		})
	}
}

func TestDisqualify(t *testing.T) {
	eligible := cohost.ExtendedPost{Post: cohost.Post{
		PostID:         5,
		CanShare:       true,
		Tags:           []string{"art"},
		PostingProject: cohost.Project{ProjectID: 10, Handle: "artist"},
	}}

	testCases := []struct {
		name      string
		ext       cohost.ExtendedPost
		collapsed cohost.ExtendedPost
		banned    map[string]bool
		reason    string
	}{
		{
			name:      "eligible",
			ext:       eligible,
			collapsed: eligible,
			reason:    "",
		},
		{
			name: "collapses away",
			ext:  eligible,
			collapsed: cohost.ExtendedPost{Post: cohost.Post{
				PostID: 4,
			}},
			reason: "not additive",
		},
		{
			name: "adult content",
			ext: cohost.ExtendedPost{Post: cohost.Post{
				PostID:                5,
				CanShare:              true,
				Tags:                  []string{"art"},
				EffectiveAdultContent: true,
			}},
			reason: "adult content",
		},
		{
			name:   "banned handle",
			ext:    eligible,
			banned: map[string]bool{"artist": true},
			reason: "banlist",
		},
		{
			name: "shares locked",
			ext: cohost.ExtendedPost{Post: cohost.Post{
				PostID: 5,
				Tags:   []string{"art"},
			}},
			reason: "can't share",
		},
		{
			name: "untagged",
			ext: cohost.ExtendedPost{Post: cohost.Post{
				PostID:   5,
				CanShare: true,
			}},
			reason: "published to followers only (no tags)",
		},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			collapsed := test.collapsed
			if collapsed.Post.PostID == 0 {
				collapsed = test.ext
			}
			reason, _ := disqualify(test.ext, collapsed, test.banned)
			require.Equal(t, test.reason, reason)
		})
	}
}
