// Package sanitize cleans user supplied rich text before it is stored.
package sanitize

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	postPolicy     *bluemonday.Policy
	postPolicyOnce sync.Once

	stripPolicy = newStripPolicy()
)

func newStripPolicy() *bluemonday.Policy {
	p := bluemonday.StrictPolicy()
	p.AddSpaceWhenStrippingTag(true)
	return p
}

func policy() *bluemonday.Policy {
	postPolicyOnce.Do(func() {
		p := bluemonday.UGCPolicy()
		p.RequireNoFollowOnLinks(true)
		p.AddTargetBlankToFullyQualifiedLinks(true)
		// Emoji images from the editor are inline <img> tags with alt text.
		p.AllowAttrs("alt", "title").OnElements("img")
		postPolicy = p
	})
	return postPolicy
}

// Post returns the sanitized form of a post body. Script, style and event
// handler markup is removed; formatting, links and images survive.
func Post(text string) string {
	return strings.TrimSpace(policy().Sanitize(text))
}

// StripTags removes all markup and unescapes entities, collapsing runs of
// whitespace to single spaces.
func StripTags(text string) string {
	plain := html.UnescapeString(stripPolicy.Sanitize(text))
	return strings.Join(strings.Fields(plain), " ")
}

// IsBlank reports whether text has no visible content once markup is gone.
func IsBlank(text string) bool {
	return StripTags(text) == "" && !strings.Contains(strings.ToLower(text), "<img")
}

// TruncateWords keeps the first n words of text and appends suffix when
// anything was cut.
func TruncateWords(text string, n int, suffix string) string {
	words := strings.Fields(text)
	if len(words) <= n {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:n], " ") + suffix
}
