package meta

import (
	"encoding/json"
	"net/url"
	"strings"

	"github.com/linkhoard/enricher/internal/enrich"
)

// IconDiscovery is the result of scanning a document for icons.
type IconDiscovery struct {
	Icons       []enrich.IconCandidate
	ManifestURL string
	BaseURL     string
}

// Origin-relative paths probed even when the page declares nothing.
var fallbackIconPaths = []string{
	"/favicon.ico",
	"/favicon.png",
	"/apple-touch-icon.png",
	"/apple-touch-icon-precomposed.png",
}

// ExtractIcons scans <link> tags for icon declarations and the first
// web manifest reference. Hrefs resolve against the page URL, honoring
// a <base href> override. Candidates are returned in document order;
// callers append manifest and fallback candidates before de-duping.
func ExtractIcons(html string, pageURL *url.URL) IconDiscovery {
	base := effectiveBase(html, pageURL)
	result := IconDiscovery{BaseURL: base.String()}

	for _, tag := range linkTagRe.FindAllString(html, -1) {
		a := attrs(tag)
		rel := strings.ToLower(strings.TrimSpace(a["rel"]))
		href := a["href"]
		if rel == "" || href == "" {
			continue
		}
		if rel == "manifest" && result.ManifestURL == "" {
			result.ManifestURL = resolveRef(base, href)
			continue
		}
		if !isIconRel(rel) {
			continue
		}
		resolved := resolveRef(base, href)
		if resolved == "" {
			continue
		}
		result.Icons = append(result.Icons, enrich.IconCandidate{
			URL:    resolved,
			Rel:    rel,
			Sizes:  a["sizes"],
			Type:   a["type"],
			Source: enrich.IconSourceHTML,
		})
	}
	return result
}

func isIconRel(rel string) bool {
	if strings.Contains(rel, "apple-touch-icon") {
		return true
	}
	for _, token := range strings.Fields(rel) {
		switch token {
		case "icon", "shortcut", "shortcut-icon", "mask-icon":
			return true
		}
	}
	return false
}

// Manifest is the subset of a web app manifest the icon chase reads.
type Manifest struct {
	Icons []ManifestIcon `json:"icons"`
}

// ManifestIcon is one icons[] entry; Src may be relative to the
// manifest's own URL.
type ManifestIcon struct {
	Src   string `json:"src"`
	Sizes string `json:"sizes"`
	Type  string `json:"type"`
}

// ManifestIconCandidates resolves a decoded manifest's icons against
// the manifest's own URL.
func ManifestIconCandidates(manifest Manifest, manifestURL *url.URL) []enrich.IconCandidate {
	var out []enrich.IconCandidate
	for _, icon := range manifest.Icons {
		resolved := resolveRef(manifestURL, icon.Src)
		if resolved == "" {
			continue
		}
		out = append(out, enrich.IconCandidate{
			URL:    resolved,
			Sizes:  icon.Sizes,
			Type:   icon.Type,
			Source: enrich.IconSourceManifest,
		})
	}
	return out
}

// ParseManifestIcons extracts icons[] entries from a raw manifest body,
// resolving each src relative to the manifest's own URL.
func ParseManifestIcons(body []byte, manifestURL *url.URL) []enrich.IconCandidate {
	var manifest Manifest
	if err := json.Unmarshal(body, &manifest); err != nil {
		return nil
	}
	return ManifestIconCandidates(manifest, manifestURL)
}

// FallbackIcons returns the four well-known origin-relative icon paths
// for the given URL's origin.
func FallbackIcons(origin *url.URL) []enrich.IconCandidate {
	if origin == nil || origin.Host == "" {
		return nil
	}
	out := make([]enrich.IconCandidate, 0, len(fallbackIconPaths))
	for _, path := range fallbackIconPaths {
		out = append(out, enrich.IconCandidate{
			URL:    origin.Scheme + "://" + origin.Host + path,
			Source: enrich.IconSourceFallback,
		})
	}
	return out
}
