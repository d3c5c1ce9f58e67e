// Package meta extracts page metadata, icon candidates, and preview
// image candidates from HTML and web manifests. Parsing is deliberately
// permissive attribute matching on <link>, <meta>, and <base> tags, not
// a DOM parse; the downstream ranking heuristics are tuned to exactly
// this level of fidelity.
package meta

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	linkTagRe = regexp.MustCompile(`(?is)<link\b[^>]*>`)
	metaTagRe = regexp.MustCompile(`(?is)<meta\b[^>]*>`)
	baseTagRe = regexp.MustCompile(`(?is)<base\b[^>]*>`)
	titleRe   = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)

	attrRe = regexp.MustCompile(`(?i)([a-z0-9:_-]+)\s*=\s*(?:"([^"]*)"|'([^']*)'|([^\s"'>]+))`)

	whitespaceRe = regexp.MustCompile(`\s+`)
)

// attrs parses the attributes of a single tag into a lowercase-keyed map.
func attrs(tag string) map[string]string {
	out := map[string]string{}
	for _, m := range attrRe.FindAllStringSubmatch(tag, -1) {
		key := strings.ToLower(m[1])
		if _, dup := out[key]; dup {
			continue
		}
		val := m[2]
		if val == "" {
			val = m[3]
		}
		if val == "" {
			val = m[4]
		}
		out[key] = val
	}
	return out
}

var entityReplacer = strings.NewReplacer(
	"&amp;", "&",
	"&quot;", `"`,
	"&#39;", "'",
	"&lt;", "<",
	"&gt;", ">",
)

// clean entity-decodes the common HTML escapes and collapses runs of
// whitespace into single spaces.
func clean(s string) string {
	s = entityReplacer.Replace(s)
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// effectiveBase returns the URL relative references resolve against:
// the page URL, overridden by a <base href> tag when one is present.
func effectiveBase(html string, pageURL *url.URL) *url.URL {
	if tag := baseTagRe.FindString(html); tag != "" {
		if href := attrs(tag)["href"]; href != "" {
			if resolved, err := pageURL.Parse(href); err == nil {
				return resolved
			}
		}
	}
	return pageURL
}

// resolveRef resolves ref against base, returning "" when unusable.
func resolveRef(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || base == nil {
		return ""
	}
	resolved, err := base.Parse(ref)
	if err != nil {
		return ""
	}
	return resolved.String()
}
