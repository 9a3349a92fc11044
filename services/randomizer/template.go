package randomizer

import (
	_ "embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/penguinencounter/cohost-randombot/lib/cohost"
)

//go:embed template.html
var shareTemplateText string

var shareTemplate = template.Must(template.New("share").Parse(shareTemplateText))

type shareBody struct {
	OriginalHref string
	PostID       int64
	Handle       string
	Kind         cohost.PostKind
	TagCount     int
	TagLabel     string
	VerifiedTag  string
	TagUseCount  string
	Timestamp    string
	PoolSize     int64
	Percentage   string
}

func renderShareBody(post cohost.Post, eft []string, verifiedTag, useCount string, poolSize int64, now time.Time) (string, error) {
	label := "tags"
	if len(post.ShareTree) > 0 {
		label = "effective tags"
	}
	percentage := "100.000"
	if poolSize > 0 {
		percentage = fmt.Sprintf("%.3f", 100.0/float64(poolSize))
	}

	data := shareBody{
		OriginalHref: post.SinglePostPageURL,
		PostID:       post.PostID,
		Handle:       post.PostingProject.Handle,
		Kind:         post.Kind(),
		TagCount:     len(eft),
		TagLabel:     label,
		VerifiedTag:  "#" + verifiedTag,
		TagUseCount:  useCount,
		Timestamp:    now.UTC().Format("Mon 02 January, 2006 15:04:05 MST"),
		PoolSize:     poolSize,
		Percentage:   percentage,
	}

	var out strings.Builder
	err := shareTemplate.Execute(&out, data)
	if err != nil {
		return "", err
	}
	return out.String(), nil
}
