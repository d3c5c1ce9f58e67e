package meta

import (
	"net/url"
	"strings"

	"github.com/linkhoard/enricher/internal/enrich"
)

// ExtractImages scans <meta> tags for Open Graph and Twitter card
// images in document order. Attribute tags (og:image:alt and friends)
// attach to the most recently opened candidate of their family, per the
// OG structured-property convention. URLs resolve against base, which
// should be the final post-redirect URL of the fetched document.
func ExtractImages(html string, base *url.URL) []enrich.ImageCandidate {
	var (
		out            []enrich.ImageCandidate
		currentOG      *enrich.ImageCandidate
		currentTwitter *enrich.ImageCandidate
	)
	flush := func(c **enrich.ImageCandidate) {
		if *c != nil && (*c).URL != "" {
			out = append(out, **c)
		}
		*c = nil
	}

	for _, tag := range metaTagRe.FindAllString(html, -1) {
		a := attrs(tag)
		key := strings.ToLower(a["property"])
		if key == "" {
			key = strings.ToLower(a["name"])
		}
		content := a["content"]
		if key == "" || content == "" {
			continue
		}
		switch key {
		case "og:image", "og:image:url", "og:image:secure_url":
			flush(&currentOG)
			currentOG = &enrich.ImageCandidate{
				URL:    resolveRef(base, content),
				Source: enrich.ImageSourceOpenGraph,
			}
		case "og:image:alt":
			if currentOG != nil {
				currentOG.Alt = clean(content)
			}
		case "og:image:type":
			if currentOG != nil {
				currentOG.Type = content
			}
		case "og:image:width":
			if currentOG != nil {
				currentOG.Width = content
			}
		case "og:image:height":
			if currentOG != nil {
				currentOG.Height = content
			}
		case "twitter:image", "twitter:image:src":
			flush(&currentTwitter)
			currentTwitter = &enrich.ImageCandidate{
				URL:    resolveRef(base, content),
				Source: enrich.ImageSourceTwitter,
			}
		case "twitter:image:alt":
			if currentTwitter != nil {
				currentTwitter.Alt = clean(content)
			}
		}
	}
	flush(&currentOG)
	flush(&currentTwitter)

	return enrich.DedupeImages(out)
}
