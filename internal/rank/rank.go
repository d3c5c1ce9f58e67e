// Package rank selects the best icon from a de-duplicated candidate
// list with a deterministic, fully ordered heuristic. Scoring is pure
// so it can be unit tested in isolation.
package rank

import (
	"path"
	"strconv"
	"strings"

	"github.com/linkhoard/enricher/internal/enrich"
)

// Score weights. Source dominates, then declared/inferred type, then
// declared size, then rel specificity; ties keep insertion order.
const (
	sourceWeight = 1000
	typeWeight   = 100
	sizeWeight   = 10
	relWeight    = 1
)

// Best returns the highest-scoring candidate and true, or the zero
// value and false when the list is empty. Equal scores resolve to the
// earliest candidate.
func Best(candidates []enrich.IconCandidate) (enrich.IconCandidate, bool) {
	if len(candidates) == 0 {
		return enrich.IconCandidate{}, false
	}
	best := 0
	bestScore := Score(candidates[0])
	for i := 1; i < len(candidates); i++ {
		if s := Score(candidates[i]); s > bestScore {
			best = i
			bestScore = s
		}
	}
	return candidates[best], true
}

// Score computes the total heuristic score for one candidate.
func Score(c enrich.IconCandidate) int {
	return sourceRank(c.Source)*sourceWeight +
		typeRank(c)*typeWeight +
		sizeScore(c.Sizes)*sizeWeight +
		relRank(c.Rel)*relWeight
}

func sourceRank(s enrich.IconSource) int {
	switch s {
	case enrich.IconSourceHTML:
		return 3
	case enrich.IconSourceManifest:
		return 2
	case enrich.IconSourceFallback:
		return 1
	}
	return 0
}

func typeRank(c enrich.IconCandidate) int {
	mime := strings.ToLower(strings.TrimSpace(c.Type))
	if mime == "" {
		mime = inferredType(c.URL)
	}
	switch {
	case strings.Contains(mime, "png"):
		return 5
	case strings.Contains(mime, "svg"):
		return 4
	case strings.Contains(mime, "ico") || strings.Contains(mime, "icon"):
		return 3
	case strings.Contains(mime, "webp"):
		return 2
	case strings.Contains(mime, "jpeg") || strings.Contains(mime, "jpg"):
		return 1
	}
	return 0
}

func inferredType(rawURL string) string {
	clean := rawURL
	if i := strings.IndexAny(clean, "?#"); i >= 0 {
		clean = clean[:i]
	}
	switch strings.ToLower(strings.TrimPrefix(path.Ext(clean), ".")) {
	case "png":
		return "png"
	case "svg":
		return "svg"
	case "ico":
		return "ico"
	case "webp":
		return "webp"
	case "jpg", "jpeg":
		return "jpeg"
	}
	return ""
}

// sizeScore favors mid-range icons: large enough to look crisp, small
// enough to not be a splash image.
func sizeScore(sizes string) int {
	largest := largestDimension(sizes)
	switch {
	case largest >= 64 && largest <= 256:
		return 3
	case largest >= 32:
		return 2
	case largest > 0:
		return 1
	}
	return 0
}

// largestDimension parses a sizes attribute ("16x16 32x32", "any") and
// returns the largest square dimension declared, or 0.
func largestDimension(sizes string) int {
	largest := 0
	for _, entry := range strings.Fields(strings.ToLower(sizes)) {
		parts := strings.Split(entry, "x")
		if len(parts) != 2 {
			continue
		}
		w, err1 := strconv.Atoi(parts[0])
		h, err2 := strconv.Atoi(parts[1])
		if err1 != nil || err2 != nil {
			continue
		}
		dim := w
		if h > dim {
			dim = h
		}
		if dim > largest {
			largest = dim
		}
	}
	return largest
}

func relRank(rel string) int {
	rel = strings.ToLower(rel)
	tokens := strings.Fields(rel)
	for _, token := range tokens {
		if token == "icon" {
			return 3
		}
	}
	if strings.Contains(rel, "apple-touch-icon") {
		return 2
	}
	for _, token := range tokens {
		if token == "mask-icon" {
			return 1
		}
	}
	return 0
}
