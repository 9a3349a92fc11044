package randomizer

import (
	"strings"

	"github.com/penguinencounter/cohost-randombot/lib/cohost"
)

func isBotAccount(p cohost.Project) bool {
	return strings.Contains(p.DisplayName, "🤖") || strings.HasSuffix(p.Handle, "-bot")
}

// effectiveTags is the set of tags a share actually propagates: your
// own tags when sharing your own post, otherwise only the tags the
// share has in common with the root post. Order follows the share's
// tag list.
func effectiveTags(post cohost.Post) []string {
	if len(post.ShareTree) == 0 {
		return post.Tags
	}
	root := post.ShareTree[0]
	if root.PostingProject.ProjectID == post.PostingProject.ProjectID {
		// you can always share your own post
		return post.Tags
	}

	rootTags := map[string]bool{}
	for _, tag := range root.Tags {
		rootTags[tag] = true
	}
	var overlap []string
	for _, tag := range post.Tags {
		if rootTags[tag] {
			overlap = append(overlap, tag)
		}
	}
	return overlap
}

// disqualify returns why a candidate can't be shared ("" when it
// can) along with its effective tags.
func disqualify(ext, collapsed cohost.ExtendedPost, banned map[string]bool) (string, []string) {
	post := ext.Post
	if collapsed.Post.PostID != post.PostID {
		return "not additive", nil
	}
	if post.EffectiveAdultContent {
		return "adult content", nil
	}
	if banned[post.PostingProject.Handle] {
		return "banlist", nil
	}
	if !post.CanShare {
		return "can't share", nil
	}
	if isBotAccount(post.PostingProject) {
		return "bot", nil
	}
	if len(post.Tags) == 0 {
		return "published to followers only (no tags)", nil
	}

	eft := effectiveTags(post)
	if len(eft) == 0 {
		return "no effective tags", nil
	}
	return "", eft
}
