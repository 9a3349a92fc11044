package cohost

import (
	"errors"
	"slices"
)

// ErrNoOriginal means a share tree was made entirely of transparent
// shares, which the service guarantees can't happen.
var ErrNoOriginal = errors.New("share tree contains no original post")

// CollapseToOriginal rewinds a chain of transparent shares to the
// last entry that actually contributed content. Posts that aren't
// transparent shares come back unchanged. The comment threads always
// stay those of the post that was fetched; they are never refetched
// for the ancestor.
func CollapseToOriginal(ext ExtendedPost) (ExtendedPost, error) {
	if ext.Post.TransparentShareOfPostID == nil {
		return ext, nil
	}

	tree := ext.Post.ShareTree
	index := len(tree) - 1
	for index >= 0 && tree[index].TransparentShareOfPostID != nil {
		index--
	}
	if index < 0 {
		return ExtendedPost{}, ErrNoOriginal
	}

	collapsed := tree[index]
	collapsed.ShareTree = slices.Clone(tree[:index])
	return ExtendedPost{
		Post:     collapsed,
		Comments: ext.Comments,
	}, nil
}
