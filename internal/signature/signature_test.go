package signature

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVerifyRoundTrip(t *testing.T) {
	t.Parallel()

	v, err := NewVerifier("current-key", "")
	require.NoError(t, err)

	body := []byte(`{"url":"https://example.com","id":"abc"}`)
	sig := Sign("current-key", "https://enricher.example.com/enrich", body)
	require.NoError(t, v.Verify(sig, "https://enricher.example.com/enrich", body))
}

func TestVerifyStripsQueryAndFragment(t *testing.T) {
	t.Parallel()

	v, err := NewVerifier("key", "")
	require.NoError(t, err)

	body := []byte("payload")
	sig := Sign("key", "https://host/enrich", body)
	require.NoError(t, v.Verify(sig, "https://host/enrich?delivery=7#frag", body))
}

func TestVerifyMissingHeaderFailsClosed(t *testing.T) {
	t.Parallel()

	v, err := NewVerifier("key", "")
	require.NoError(t, err)
	require.ErrorIs(t, v.Verify("", "https://host/enrich", []byte("body")), ErrMissingSignature)
}

func TestVerifyWrongKey(t *testing.T) {
	t.Parallel()

	v, err := NewVerifier("key", "")
	require.NoError(t, err)

	body := []byte("body")
	sig := Sign("other-key", "https://host/enrich", body)
	require.ErrorIs(t, v.Verify(sig, "https://host/enrich", body), ErrBadSignature)
}

func TestVerifyTamperedBody(t *testing.T) {
	t.Parallel()

	v, err := NewVerifier("key", "")
	require.NoError(t, err)

	sig := Sign("key", "https://host/enrich", []byte("original"))
	require.ErrorIs(t, v.Verify(sig, "https://host/enrich", []byte("tampered")), ErrBadSignature)
}

func TestVerifyAcceptsNextKeyDuringRotation(t *testing.T) {
	t.Parallel()

	v, err := NewVerifier("old-key", "new-key")
	require.NoError(t, err)

	body := []byte("body")
	sig := Sign("new-key", "https://host/enrich", body)
	require.NoError(t, v.Verify(sig, "https://host/enrich", body))
}

func TestNewVerifierRequiresCurrentKey(t *testing.T) {
	t.Parallel()

	_, err := NewVerifier("", "next")
	require.Error(t, err)
}
