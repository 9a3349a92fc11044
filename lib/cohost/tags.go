package cohost

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/penguinencounter/cohost-randombot/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"
)

// HandleExtractor pulls the contributing account handle out of each
// post header on a tag listing page. The markup this reads is
// undocumented and drifts, so the rule is pluggable.
type HandleExtractor func(doc *goquery.Document) []string

// DefaultHandleExtractor reads the project-handle anchor of every
// thread header.
func DefaultHandleExtractor(doc *goquery.Document) []string {
	anchors := htmlutil.GetAnchors(doc.Find("header.co-thread-header a.co-project-handle"))
	handles := make([]string, 0, len(anchors))
	for _, a := range anchors {
		handles = append(handles, htmlutil.LastPathSegment(a.Href))
	}
	return handles
}

type TagSampleKey struct {
	Tag    string
	Target int
}

type TagSampleResult struct {
	TargetMet bool
	Count     string
}

// TagSampler estimates how many distinct accounts post to a tag by
// paging through the tag's public listing. Results are memoized by
// (tag, target) for the sampler's lifetime; there is no invalidation,
// restart the process to refresh.
type TagSampler struct {
	client   *Client
	extract  HandleExtractor
	limiter  *rate.Limiter
	maxPages int

	mu    sync.Mutex
	cache map[TagSampleKey]TagSampleResult
}

type TagSamplerOptions struct {
	// defaults to 10
	MaxPages int
	// defaults to DefaultHandleExtractor
	Extract HandleExtractor
}

func NewTagSampler(client *Client, opts TagSamplerOptions) *TagSampler {
	if opts.MaxPages == 0 {
		opts.MaxPages = 10
	}
	if opts.Extract == nil {
		opts.Extract = DefaultHandleExtractor
	}
	return &TagSampler{
		client:   client,
		extract:  opts.Extract,
		limiter:  rate.NewLimiter(rate.Every(time.Second), 1),
		maxPages: opts.MaxPages,
		cache:    map[TagSampleKey]TagSampleResult{},
	}
}

// Reset drops all memoized results.
func (s *TagSampler) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = map[TagSampleKey]TagSampleResult{}
}

// Sample reports whether at least target distinct accounts contribute
// to the tag, along with a count string that is exact when the search
// finished and a lower bound ("N or more") when the page budget ran
// out first. Repeat calls with the same (tag, target) return the
// memoized result without touching the network.
func (s *TagSampler) Sample(ctx context.Context, tag string, target int) (bool, string, error) {
	key := TagSampleKey{Tag: tag, Target: target}

	s.mu.Lock()
	cached, ok := s.cache[key]
	s.mu.Unlock()
	if ok {
		return cached.TargetMet, cached.Count, nil
	}

	met, count, err := s.sample(ctx, tag, target)
	if err != nil {
		return false, "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// first writer wins; concurrent callers may have raced us here
	if existing, ok := s.cache[key]; ok {
		return existing.TargetMet, existing.Count, nil
	}
	s.cache[key] = TagSampleResult{TargetMet: met, Count: count}
	return met, count, nil
}

func (s *TagSampler) sample(ctx context.Context, tag string, target int) (bool, string, error) {
	ctx, span := tracer.Start(ctx, "tags:sample")
	defer span.End()
	span.SetAttributes(
		attribute.String("custom.tag", tag),
		attribute.Int("custom.target", target),
	)

	uniques := map[string]struct{}{}
	refTimestamp := ""
	offset := 0

	for page := 0; page < s.maxPages; page++ {
		link := "/rc/tagged/" + url.PathEscape(tag)
		query := url.Values{}
		if offset > 0 {
			query.Set("skipPosts", strconv.Itoa(offset))
		}
		if refTimestamp != "" {
			query.Set("refTimestamp", refTimestamp)
		}
		if len(query) > 0 {
			link += "?" + query.Encode()
		}
		slog.InfoContext(ctx, "checking tag", "tag", tag, "skip", offset, "url", link)

		err := s.limiter.Wait(ctx)
		if err != nil {
			return false, "", err
		}
		res, err := s.client.Execute(ctx, http.MethodGet, link, nil)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to fetch tag page")
			return false, "", err
		}
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body()))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to parse tag page")
			return false, "", err
		}

		// reuse the page's own continuation cursor so we don't murder
		// the cache servers
		if cursor := nextPageCursor(doc); cursor != "" {
			refTimestamp = cursor
		}

		handles := s.extract(doc)
		for _, handle := range handles {
			uniques[handle] = struct{}{}
		}
		if len(handles) == 0 {
			// no more content exists, the count is exact
			return len(uniques) >= target, strconv.Itoa(len(uniques)), nil
		}
		offset += len(handles)
	}

	if len(uniques) >= target {
		return true, strconv.Itoa(len(uniques)), nil
	}
	return false, fmt.Sprintf("%d or more", len(uniques)), nil
}

// nextPageCursor finds the "load more" link, which is the tag-listing
// anchor carrying an inline icon rather than any particular text, and
// returns its refTimestamp parameter. "" means the page has no such
// link.
func nextPageCursor(doc *goquery.Document) string {
	cursor := ""
	doc.Find(`a[href*="/rc/tagged"]`).EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if a.ChildrenFiltered("svg").Length() == 0 {
			return true
		}
		cursor = htmlutil.QueryParam(a.AttrOr("href", ""), "refTimestamp")
		return false
	})
	return cursor
}
