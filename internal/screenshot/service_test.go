package screenshot

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/linkhoard/enricher/internal/fetch"
)

func newServiceForTest(t *testing.T, base string) *Service {
	t.Helper()
	svc, err := NewService(fetch.NewClient(fetch.Config{}), ServiceConfig{
		BaseURL: base,
		Timeout: 5 * time.Second,
	})
	require.NoError(t, err)
	return svc
}

func TestServiceCaptureSuccess(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "https://example.com/page", r.URL.Query().Get("url"))
		w.Header().Set("Content-Type", "image/jpeg; charset=binary")
		_, _ = w.Write([]byte("jpegbytes"))
	}))
	defer srv.Close()

	shot, err := newServiceForTest(t, srv.URL).Capture(context.Background(), "https://example.com/page")
	require.NoError(t, err)
	require.Equal(t, "jpegbytes", string(shot.Bytes))
	require.Equal(t, "image/jpeg", shot.ContentType)
}

func TestServiceCaptureDefaultsContentType(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header()["Content-Type"] = nil
		_, _ = w.Write([]byte{0x89, 0x50})
	}))
	defer srv.Close()

	shot, err := newServiceForTest(t, srv.URL).Capture(context.Background(), "https://example.com")
	require.NoError(t, err)
	require.Equal(t, "image/png", shot.ContentType)
}

func TestServiceCaptureUpstreamFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("render crashed"))
	}))
	defer srv.Close()

	_, err := newServiceForTest(t, srv.URL).Capture(context.Background(), "https://example.com")
	var capErr *CaptureError
	require.True(t, errors.As(err, &capErr))
	require.Equal(t, http.StatusBadGateway, capErr.Status)
	require.Contains(t, capErr.Body, "render crashed")
}

func TestNewServiceRequiresBaseURL(t *testing.T) {
	t.Parallel()

	_, err := NewService(fetch.NewClient(fetch.Config{}), ServiceConfig{})
	require.Error(t, err)
}

func TestDisabledCapturer(t *testing.T) {
	t.Parallel()

	_, err := Disabled{}.Capture(context.Background(), "https://example.com")
	require.Error(t, err)
}

func TestNormalizeContentType(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in, want string
	}{
		{"image/png", "image/png"},
		{"image/jpeg; charset=binary", "image/jpeg"},
		{"  ", "image/png"},
		{"", "image/png"},
	}
	for _, tc := range cases {
		if got := normalizeContentType(tc.in); got != tc.want {
			t.Fatalf("normalizeContentType(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
