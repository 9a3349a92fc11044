package cohost

// Domain records as cohost's trpc endpoints deliver them. These are
// value objects, materialized fresh per fetch and never mutated in
// place.

type Project struct {
	ProjectID          int64    `json:"projectId"`
	Handle             string   `json:"handle"`
	DisplayName        string   `json:"displayName"`
	Description        string   `json:"description"`
	AvatarURL          string   `json:"avatarURL"`
	Privacy            string   `json:"privacy"`
	Pronouns           string   `json:"pronouns"`
	FrequentlyUsedTags []string `json:"frequentlyUsedTags"`
}

type Attachment struct {
	AttachmentID string `json:"attachmentId"`
	AltText      string `json:"altText"`
	PreviewURL   string `json:"previewURL"`
	FileURL      string `json:"fileURL"`
	Kind         string `json:"kind"`
}

type MarkdownContent struct {
	Content string `json:"content"`
}

type AskContent struct{}

// Block is a tagged variant: Type selects which payload pointer is set.
type Block struct {
	Type       string           `json:"type"`
	Markdown   *MarkdownContent `json:"markdown,omitempty"`
	Attachment *Attachment      `json:"attachment,omitempty"`
	Ask        *AskContent      `json:"ask,omitempty"`
}

func MarkdownBlock(text string) Block {
	return Block{
		Type:     "markdown",
		Markdown: &MarkdownContent{Content: text},
	}
}

type Post struct {
	PostID                   int64    `json:"postId"`
	Headline                 string   `json:"headline"`
	PublishedAt              string   `json:"publishedAt"`
	Filename                 string   `json:"filename"`
	TransparentShareOfPostID *int64   `json:"transparentShareOfPostId"`
	ShareOfPostID            *int64   `json:"shareOfPostId"`
	State                    int      `json:"state"`
	NumComments              int      `json:"numComments"`
	CWs                      []string `json:"cws"`
	Tags                     []string `json:"tags"`
	Pinned                   bool     `json:"pinned"`
	CommentsLocked           bool     `json:"commentsLocked"`
	SharesLocked             bool     `json:"sharesLocked"`
	Blocks                   []Block  `json:"blocks"`
	PlainTextBody            string   `json:"plainTextBody"`
	PostingProject           Project  `json:"postingProject"`
	// ancestor chain, oldest first, excluding this post itself. empty
	// for originals; the last entry is the immediate parent.
	ShareTree             []Post `json:"shareTree"`
	SinglePostPageURL     string `json:"singlePostPageUrl"`
	EffectiveAdultContent bool   `json:"effectiveAdultContent"`
	IsEditor              bool   `json:"isEditor"`
	IsLiked               bool   `json:"isLiked"`
	CanShare              bool   `json:"canShare"`
	CanPublish            bool   `json:"canPublish"`
}

type PostKind string

const (
	// an original post
	KindOriginal PostKind = "post"
	// a share with added content
	KindReply PostKind = "reply"
	// a share adding only tags
	KindTagged PostKind = "tags"
	// a share adding nothing at all
	KindTransparent PostKind = "share"
)

func (p Post) Kind() PostKind {
	if p.ShareOfPostID == nil {
		return KindOriginal
	}
	if p.TransparentShareOfPostID == nil {
		return KindReply
	}
	if len(p.Tags) > 0 {
		return KindTagged
	}
	return KindTransparent
}

type Comment struct {
	CommentID   string        `json:"commentId"`
	PostedAtISO string        `json:"postedAtISO"`
	Deleted     bool          `json:"deleted"`
	Body        string        `json:"body"`
	Children    []CommentNode `json:"children"`
	PostID      int64         `json:"postId"`
	InReplyTo   *string       `json:"inReplyTo"`
	Hidden      bool          `json:"hidden"`
}

type CommentNode struct {
	Comment Comment `json:"comment"`
	Poster  Project `json:"poster"`
}

// ExtendedPost is a post plus its comment threads, keyed by thread
// root post id.
type ExtendedPost struct {
	Post     Post                     `json:"post"`
	Comments map[string][]CommentNode `json:"comments"`
}

type Ask struct {
	AskID         string  `json:"askId"`
	Content       string  `json:"content"`
	SentAt        string  `json:"sentAt"`
	Anon          bool    `json:"anon"`
	AskingProject Project `json:"askingProject"`
}

type createContent struct {
	AdultContent  bool     `json:"adultContent"`
	Blocks        []Block  `json:"blocks"`
	CWs           []string `json:"cws"`
	Headline      string   `json:"headline"`
	PostState     int      `json:"postState"`
	Tags          []string `json:"tags"`
	ShareOfPostID *int64   `json:"shareOfPostId,omitempty"`
}

type createPostRequest struct {
	ProjectHandle string        `json:"projectHandle"`
	Content       createContent `json:"content"`
}
