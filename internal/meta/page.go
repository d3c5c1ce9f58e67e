package meta

import "strings"

// Page holds the title/description pair extracted from a document.
type Page struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}

// ExtractPage pulls a title and description out of the document,
// preferring Open Graph tags, then Twitter card tags, then the plain
// <title> element and <meta name="description">.
func ExtractPage(html string) Page {
	var (
		ogTitle, twitterTitle, metaDesc string
		ogDesc, twitterDesc             string
	)
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
		case "og:title":
			if ogTitle == "" {
				ogTitle = content
			}
		case "twitter:title":
			if twitterTitle == "" {
				twitterTitle = content
			}
		case "og:description":
			if ogDesc == "" {
				ogDesc = content
			}
		case "twitter:description":
			if twitterDesc == "" {
				twitterDesc = content
			}
		case "description":
			if metaDesc == "" {
				metaDesc = content
			}
		}
	}

	title := firstNonEmpty(ogTitle, twitterTitle)
	if title == "" {
		if m := titleRe.FindStringSubmatch(html); m != nil {
			title = m[1]
		}
	}
	desc := firstNonEmpty(ogDesc, twitterDesc, metaDesc)

	return Page{Title: clean(title), Description: clean(desc)}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
