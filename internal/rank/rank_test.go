package rank

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/linkhoard/enricher/internal/enrich"
)

func TestBestPrefersDeclaredHTMLIcon(t *testing.T) {
	t.Parallel()

	candidates := []enrich.IconCandidate{
		{URL: "a.ico", Source: enrich.IconSourceFallback},
		{URL: "b.png", Source: enrich.IconSourceHTML, Sizes: "128x128", Rel: "icon"},
	}
	got, ok := Best(candidates)
	require.True(t, ok)
	require.Equal(t, "b.png", got.URL)
}

func TestBestEmptyList(t *testing.T) {
	t.Parallel()

	_, ok := Best(nil)
	require.False(t, ok)
}

func TestBestTieKeepsInsertionOrder(t *testing.T) {
	t.Parallel()

	candidates := []enrich.IconCandidate{
		{URL: "first.png", Source: enrich.IconSourceHTML, Sizes: "128x128", Rel: "icon"},
		{URL: "second.png", Source: enrich.IconSourceHTML, Sizes: "192x192", Rel: "icon"},
	}
	got, ok := Best(candidates)
	require.True(t, ok)
	require.Equal(t, "first.png", got.URL)
}

func TestScoreComponents(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		candidate enrich.IconCandidate
		want      int
	}{
		{
			name:      "html png midrange exact icon rel",
			candidate: enrich.IconCandidate{URL: "i.png", Source: enrich.IconSourceHTML, Sizes: "128x128", Rel: "icon"},
			want:      3*1000 + 5*100 + 3*10 + 3,
		},
		{
			name:      "manifest declared type small size",
			candidate: enrich.IconCandidate{URL: "i", Source: enrich.IconSourceManifest, Type: "image/webp", Sizes: "48x48"},
			want:      2*1000 + 2*100 + 2*10,
		},
		{
			name:      "fallback ico inferred from extension",
			candidate: enrich.IconCandidate{URL: "https://example.com/favicon.ico", Source: enrich.IconSourceFallback},
			want:      1*1000 + 3*100,
		},
		{
			name:      "apple touch icon rel",
			candidate: enrich.IconCandidate{URL: "apple-touch-icon.png", Source: enrich.IconSourceHTML, Rel: "apple-touch-icon"},
			want:      3*1000 + 5*100 + 2,
		},
		{
			name:      "mask icon svg",
			candidate: enrich.IconCandidate{URL: "mask.svg", Source: enrich.IconSourceHTML, Rel: "mask-icon"},
			want:      3*1000 + 4*100 + 1,
		},
		{
			name:      "tiny declared size",
			candidate: enrich.IconCandidate{URL: "i.png", Source: enrich.IconSourceHTML, Sizes: "16x16", Rel: "icon"},
			want:      3*1000 + 5*100 + 1*10 + 3,
		},
		{
			name:      "oversized icon scores the 32px band",
			candidate: enrich.IconCandidate{URL: "i.png", Source: enrich.IconSourceHTML, Sizes: "512x512", Rel: "icon"},
			want:      3*1000 + 5*100 + 2*10 + 3,
		},
		{
			name:      "unknown everything",
			candidate: enrich.IconCandidate{URL: "mystery", Source: enrich.IconSourceFallback},
			want:      1 * 1000,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, Score(tc.candidate))
		})
	}
}

func TestLargestDimensionMultipleEntries(t *testing.T) {
	t.Parallel()

	if got := largestDimension("16x16 32x32 64x64"); got != 64 {
		t.Fatalf("largestDimension = %d, want 64", got)
	}
	if got := largestDimension("any"); got != 0 {
		t.Fatalf("largestDimension(any) = %d, want 0", got)
	}
	if got := largestDimension("120x60"); got != 120 {
		t.Fatalf("largestDimension(120x60) = %d, want 120", got)
	}
}

func TestQueryStringDoesNotConfuseTypeInference(t *testing.T) {
	t.Parallel()

	c := enrich.IconCandidate{URL: "https://example.com/icon.png?v=2", Source: enrich.IconSourceHTML}
	require.Equal(t, 3*1000+5*100, Score(c))
}
