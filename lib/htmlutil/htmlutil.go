// Package htmlutil has small helpers on top of goquery for pulling
// links and text out of scraped pages.
package htmlutil

import (
	"bytes"
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

type Anchor struct {
	Name string
	Href string
}

var innerWhitespace = regexp.MustCompile(`\s\s+`)

func removeNonPrintable(s string) string {
	newStr := strings.Builder{}
	for _, c := range s {
		if unicode.IsPrint(c) {
			newStr.WriteRune(c)
		}
	}
	return newStr.String()
}

// GetAnchors collects the href and cleaned-up display text of every
// anchor in the selection. Anchors whose href fails to parse as a url
// are skipped.
func GetAnchors(sel *goquery.Selection) []Anchor {
	anchors := []Anchor{}
	for _, n := range sel.Nodes {
		href := ""
		for _, a := range n.Attr {
			if a.Key == "href" {
				href = a.Val
				break
			}
		}

		link, err := url.Parse(href)
		if err != nil {
			continue
		}

		name := GetText(n)
		name = removeNonPrintable(name)
		name = strings.Trim(name, " \t\n")
		name = innerWhitespace.ReplaceAllString(name, " ")

		anchors = append(anchors, Anchor{
			Name: name,
			Href: link.String(),
		})
	}

	return anchors
}

// QueryParam returns the named query parameter of a link, or "" when
// the link does not parse or the parameter is absent.
func QueryParam(href, key string) string {
	link, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return link.Query().Get(key)
}

// LastPathSegment returns the final segment of a link's path, e.g. the
// handle out of "https://cohost.org/some-handle".
func LastPathSegment(href string) string {
	link, err := url.Parse(href)
	if err != nil {
		// scraped hrefs are not always absolute urls, fall back to
		// splitting the raw string
		idx := strings.LastIndex(href, "/")
		return href[idx+1:]
	}
	path := strings.TrimRight(link.Path, "/")
	idx := strings.LastIndex(path, "/")
	return path[idx+1:]
}
