package uploader

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/linkhoard/enricher/internal/fetch"
	"github.com/linkhoard/enricher/internal/metrics"
	"github.com/linkhoard/enricher/internal/screenshot"
	"github.com/linkhoard/enricher/internal/storage/memory"
)

func TestMain(m *testing.M) {
	metrics.Init()
	m.Run()
}

func TestStorageKey(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		jobID    string
		hostname string
		want     string
	}{
		{"plain id", "abc123", "example.com", "abc123"},
		{"id with forbidden chars", "a/b c!#", "example.com", "abc"},
		{"id empties after sanitize", "///???", "example.com", "example.com"},
		{"no id", "", "example.com", "example.com"},
		{"nothing usable", "", "!!!", "bookmark"},
		{
			"truncated to 80",
			strings.Repeat("a", 100),
			"example.com",
			strings.Repeat("a", 80),
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, StorageKey(tc.jobID, tc.hostname))
		})
	}
}

func TestStorageKeyIsDeterministic(t *testing.T) {
	t.Parallel()

	require.Equal(t, StorageKey("job-9", "a.com"), StorageKey("job-9", "b.com"))
}

func TestUploadFaviconDownloadsAndStores(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/x-icon")
		_, _ = w.Write([]byte("iconbytes"))
	}))
	defer srv.Close()

	store := memory.NewBlobStore()
	up := New(store, fetch.NewClient(fetch.Config{}), Config{DownloadTimeout: 2 * time.Second, AllowPrivateHosts: true}, nil)

	uri, err := up.UploadFavicon(context.Background(), "abc123", srv.URL+"/favicon.ico")
	require.NoError(t, err)
	require.Equal(t, "memory://bookmark-favicons/abc123/favicon.png", uri)

	data, ok := store.Get("bookmark-favicons", "abc123/favicon.png")
	require.True(t, ok)
	require.Equal(t, "iconbytes", string(data))
}

func TestUploadImageUsesPreviewBucket(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ogbytes"))
	}))
	defer srv.Close()

	store := memory.NewBlobStore()
	up := New(store, fetch.NewClient(fetch.Config{}), Config{AllowPrivateHosts: true}, nil)

	_, err := up.UploadImage(context.Background(), "abc123", srv.URL+"/og.jpg")
	require.NoError(t, err)

	_, ok := store.Get("bookmark-previews", "abc123/og.png")
	require.True(t, ok)
}

func TestUploadRejectsUpstreamError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("denied"))
	}))
	defer srv.Close()

	store := memory.NewBlobStore()
	up := New(store, fetch.NewClient(fetch.Config{}), Config{AllowPrivateHosts: true}, nil)

	_, err := up.UploadFavicon(context.Background(), "k", srv.URL)
	var statusErr *fetch.StatusError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, http.StatusForbidden, statusErr.Status)
	require.Equal(t, 0, store.Len())
}

func TestUploadScreenshot(t *testing.T) {
	t.Parallel()

	store := memory.NewBlobStore()
	up := New(store, fetch.NewClient(fetch.Config{}), Config{AllowPrivateHosts: true}, nil)

	uri, err := up.UploadScreenshot(context.Background(), "abc123", screenshot.Shot{
		Bytes:       []byte{0x89, 0x50, 0x4e, 0x47},
		ContentType: "image/png",
	})
	require.NoError(t, err)
	require.Equal(t, "memory://bookmark-previews/abc123/preview.png", uri)
}

func TestUploadRecordsUploadedBytes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("assetbytes"))
	}))
	defer srv.Close()

	store := memory.NewBlobStore()
	up := New(store, fetch.NewClient(fetch.Config{}), Config{AllowPrivateHosts: true}, nil)

	_, err := up.UploadFavicon(context.Background(), "m1", srv.URL+"/icon.png")
	require.NoError(t, err)
	_, err = up.UploadImage(context.Background(), "m1", srv.URL+"/og.png")
	require.NoError(t, err)
	_, err = up.UploadScreenshot(context.Background(), "m1", screenshot.Shot{Bytes: []byte("shot"), ContentType: "image/png"})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	require.Contains(t, body, `enrich_uploaded_bytes_total{source="favicon"}`)
	require.Contains(t, body, `enrich_uploaded_bytes_total{source="og"}`)
	require.Contains(t, body, `enrich_uploaded_bytes_total{source="preview"}`)
}

func TestUploadRefusesPrivateAssetHosts(t *testing.T) {
	t.Parallel()

	store := memory.NewBlobStore()
	up := New(store, fetch.NewClient(fetch.Config{}), Config{}, nil)

	_, err := up.UploadFavicon(context.Background(), "k", "http://169.254.169.254/latest/meta-data")
	require.Error(t, err)
	_, err = up.UploadFavicon(context.Background(), "k", "http://127.0.0.1:8080/icon.png")
	require.Error(t, err)
	require.Equal(t, 0, store.Len())
}

func TestUploadScreenshotRejectsEmptyPayload(t *testing.T) {
	t.Parallel()

	up := New(memory.NewBlobStore(), fetch.NewClient(fetch.Config{}), Config{}, nil)
	_, err := up.UploadScreenshot(context.Background(), "k", screenshot.Shot{})
	require.Error(t, err)
}

func TestRepeatedUploadOverwrites(t *testing.T) {
	t.Parallel()

	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = w.Write([]byte("bytes"))
	}))
	defer srv.Close()

	store := memory.NewBlobStore()
	up := New(store, fetch.NewClient(fetch.Config{}), Config{AllowPrivateHosts: true}, nil)

	for i := 0; i < 2; i++ {
		_, err := up.UploadFavicon(context.Background(), "same-job", srv.URL)
		require.NoError(t, err)
	}
	require.Equal(t, 2, calls)
	require.Equal(t, 1, store.Len())
}
