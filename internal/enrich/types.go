// Package enrich defines the core types shared by the bookmark
// enrichment pipeline: jobs delivered by the queue, discovered asset
// candidates, and per-source processing outcomes.
package enrich

// Job is one deferred request to enrich a single bookmark. ID may be
// empty when the producer did not supply one; the storage key then
// falls back to the target hostname.
type Job struct {
	URL string `json:"url"`
	ID  string `json:"id,omitempty"`
}

// IconSource identifies where an icon candidate was discovered.
type IconSource string

// Icon candidate sources, in descending rank order.
const (
	IconSourceHTML     IconSource = "html"
	IconSourceManifest IconSource = "manifest"
	IconSourceFallback IconSource = "fallback"
)

// IconCandidate is a discovered-but-unconfirmed icon URL.
type IconCandidate struct {
	URL    string     `json:"url"`
	Rel    string     `json:"rel,omitempty"`
	Sizes  string     `json:"sizes,omitempty"`
	Type   string     `json:"type,omitempty"`
	Source IconSource `json:"source"`
}

// ImageSource identifies the meta tag family an image came from.
type ImageSource string

// Image candidate sources.
const (
	ImageSourceOpenGraph ImageSource = "og"
	ImageSourceTwitter   ImageSource = "twitter"
)

// ImageCandidate is a discovered preview-image URL with whatever
// companion attributes the page declared for it.
type ImageCandidate struct {
	URL    string      `json:"url"`
	Source ImageSource `json:"source"`
	Alt    string      `json:"alt,omitempty"`
	Type   string      `json:"type,omitempty"`
	Width  string      `json:"width,omitempty"`
	Height string      `json:"height,omitempty"`
}

// Asset kinds produced by the pipeline's fan-out branches.
const (
	SourceFavicon    = "favicon"
	SourceImage      = "og"
	SourceScreenshot = "preview"
)

// Outcome reports what happened to one fan-out branch of a job.
type Outcome struct {
	Source     string
	Err        error
	Uploaded   bool
	ObjectPath string
}

// OK reports whether the branch produced and persisted an asset.
func (o Outcome) OK() bool {
	return o.Err == nil && o.Uploaded
}

// DedupeIcons collapses candidates with identical URLs, keeping the
// first occurrence so insertion order stays stable for the ranker.
func DedupeIcons(in []IconCandidate) []IconCandidate {
	seen := make(map[string]struct{}, len(in))
	out := make([]IconCandidate, 0, len(in))
	for _, c := range in {
		if c.URL == "" {
			continue
		}
		if _, dup := seen[c.URL]; dup {
			continue
		}
		seen[c.URL] = struct{}{}
		out = append(out, c)
	}
	return out
}

// DedupeImages collapses image candidates by URL, first occurrence wins.
func DedupeImages(in []ImageCandidate) []ImageCandidate {
	seen := make(map[string]struct{}, len(in))
	out := make([]ImageCandidate, 0, len(in))
	for _, c := range in {
		if c.URL == "" {
			continue
		}
		if _, dup := seen[c.URL]; dup {
			continue
		}
		seen[c.URL] = struct{}{}
		out = append(out, c)
	}
	return out
}
