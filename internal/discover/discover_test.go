package discover

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/linkhoard/enricher/internal/enrich"
	"github.com/linkhoard/enricher/internal/fetch"
	"github.com/linkhoard/enricher/internal/safeurl"
	"github.com/linkhoard/enricher/internal/screenshot"
)

type fakeCapturer struct {
	shot screenshot.Shot
	err  error
}

func (f *fakeCapturer) Capture(_ context.Context, _ string) (screenshot.Shot, error) {
	return f.shot, f.err
}

func newTestService(capturer screenshot.Capturer) *Service {
	if capturer == nil {
		capturer = screenshot.Disabled{}
	}
	return New(fetch.NewClient(fetch.Config{}), capturer, Config{
		PageTimeout:       3 * time.Second,
		ManifestTimeout:   2 * time.Second,
		AllowPrivateHosts: true,
	}, nil)
}

func TestIconsFullDiscovery(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/page", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><head>
			<link rel="icon" href="/icon-192.png" sizes="192x192">
			<link rel="manifest" href="/manifest.json">
		</head></html>`))
	})
	mux.HandleFunc("/manifest.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/manifest+json")
		_, _ = w.Write([]byte(`{"icons":[{"src":"pwa-512.png","sizes":"512x512","type":"image/png"}]}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	result, err := newTestService(nil).Icons(context.Background(), srv.URL+"/page")
	require.NoError(t, err)
	require.Equal(t, srv.URL+"/page", result.FinalURL)

	var urls []string
	for _, icon := range result.Icons {
		urls = append(urls, icon.URL)
	}
	require.Contains(t, urls, srv.URL+"/icon-192.png")
	require.Contains(t, urls, srv.URL+"/pwa-512.png")
	require.Contains(t, urls, srv.URL+"/favicon.ico")
	require.Contains(t, urls, srv.URL+"/apple-touch-icon-precomposed.png")

	// html candidate first, then manifest, then fallbacks
	require.Equal(t, enrich.IconSourceHTML, result.Icons[0].Source)
}

func TestIconsMalformedManifestIsIgnored(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/page", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><head>
			<link rel="icon" href="/icon.png">
			<link rel="manifest" href="/manifest.json">
		</head></html>`))
	})
	mux.HandleFunc("/manifest.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/manifest+json")
		_, _ = w.Write([]byte(`{"icons": not-json`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	result, err := newTestService(nil).Icons(context.Background(), srv.URL+"/page")
	require.NoError(t, err)
	for _, icon := range result.Icons {
		require.NotEqual(t, enrich.IconSourceManifest, icon.Source)
	}
	require.Equal(t, enrich.IconSourceHTML, result.Icons[0].Source)
}

func TestIconsFetchFailureDegradesToFallbacks(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	result, err := newTestService(nil).Icons(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Len(t, result.Icons, 4)
	for _, icon := range result.Icons {
		require.Equal(t, enrich.IconSourceFallback, icon.Source)
	}
	require.Empty(t, result.FinalURL)
}

func TestIconsInvalidURL(t *testing.T) {
	t.Parallel()

	_, err := newTestService(nil).Icons(context.Background(), "ftp://example.com")
	require.ErrorIs(t, err, safeurl.ErrInvalidURL)
}

func TestBestIconPrefersDeclaredOverFallback(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<link rel="icon" href="/best.png" sizes="128x128">`))
	}))
	defer srv.Close()

	best, err := newTestService(nil).BestIcon(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, srv.URL+"/best.png", best.URL)
}

func TestImageDiscovery(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<head>
			<meta property="og:image" content="/og.jpg">
			<meta name="twitter:image" content="/card.png">
		</head>`))
	}))
	defer srv.Close()

	result, err := newTestService(nil).Image(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, srv.URL+"/og.jpg", result.ImageURL)
	require.Len(t, result.Images, 2)
}

func TestImageFetchFailureIsError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestService(nil).Image(context.Background(), srv.URL)
	var statusErr *fetch.StatusError
	require.True(t, errors.As(err, &statusErr))
}

func TestPreviewMergesPageAndScreenshot(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<head>
			<title>The Page</title>
			<meta name="description" content="it describes">
			<meta property="og:image" content="/og.png">
		</head>`))
	}))
	defer srv.Close()

	capturer := &fakeCapturer{shot: screenshot.Shot{
		Bytes:       []byte("pngpng"),
		ContentType: "image/png",
	}}
	result, err := newTestService(capturer).Preview(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, "The Page", result.Title)
	require.Equal(t, "it describes", result.Description)
	require.Equal(t, srv.URL+"/og.png", result.ImageURL)
	require.Equal(t, "image/png", result.ScreenshotContentType)
	require.Equal(t, 6, result.ScreenshotBytes)
	require.True(t, strings.HasPrefix(result.ScreenshotDataURL, "data:image/png;base64,"))
	require.Empty(t, result.ScreenshotError)
}

func TestPreviewScreenshotFailureIsNonFatal(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<title>Still Works</title>`))
	}))
	defer srv.Close()

	capturer := &fakeCapturer{err: errors.New("renderer down")}
	result, err := newTestService(capturer).Preview(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, "Still Works", result.Title)
	require.Equal(t, "renderer down", result.ScreenshotError)
	require.Empty(t, result.ScreenshotDataURL)
}

func TestManifestIconsSkipsPrivateHosts(t *testing.T) {
	t.Parallel()

	svc := New(fetch.NewClient(fetch.Config{}), screenshot.Disabled{}, Config{
		ManifestTimeout: 2 * time.Second,
	}, nil)
	require.Nil(t, svc.manifestIcons(context.Background(), "http://10.0.0.5/manifest.json"))
	require.Nil(t, svc.manifestIcons(context.Background(), "http://169.254.169.254/manifest.json"))
}
