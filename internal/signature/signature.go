// Package signature verifies that enrichment webhooks genuinely came
// from the delivery queue. The signature is an HMAC-SHA256 over the
// request URL (query string and fragment stripped) and the exact raw
// request body, hex encoded. Verification fails closed: no header means
// unauthorized before the body is ever inspected.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
)

// Header is the request header carrying the signature.
const Header = "X-Enrich-Signature"

var (
	ErrMissingSignature = errors.New("missing signature")
	ErrBadSignature     = errors.New("signature mismatch")
)

// Verifier checks webhook signatures against the active signing key,
// and optionally a next key to tolerate in-flight rotation.
type Verifier struct {
	currentKey []byte
	nextKey    []byte
}

// NewVerifier builds a Verifier. The current key is required; nextKey
// may be empty when no rotation is pending.
func NewVerifier(currentKey, nextKey string) (*Verifier, error) {
	if currentKey == "" {
		return nil, fmt.Errorf("current signing key is required")
	}
	v := &Verifier{currentKey: []byte(currentKey)}
	if nextKey != "" {
		v.nextKey = []byte(nextKey)
	}
	return v, nil
}

// Verify checks header against the signature of requestURL and body.
func (v *Verifier) Verify(header string, requestURL string, body []byte) error {
	if header == "" {
		return ErrMissingSignature
	}
	signed := signedURL(requestURL)
	if matches(v.currentKey, signed, body, header) {
		return nil
	}
	if v.nextKey != nil && matches(v.nextKey, signed, body, header) {
		return nil
	}
	return ErrBadSignature
}

// Sign computes the signature the sender attaches; exported for the
// producer CLI and for tests.
func Sign(key, requestURL string, body []byte) string {
	return compute([]byte(key), signedURL(requestURL), body)
}

func matches(key []byte, signedURL string, body []byte, header string) bool {
	want := compute(key, signedURL, body)
	return subtle.ConstantTimeCompare([]byte(want), []byte(header)) == 1
}

func compute(key []byte, signedURL string, body []byte) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(signedURL))
	mac.Write([]byte{'.'})
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// signedURL strips the query string and fragment so the same signature
// holds regardless of delivery-time query parameters.
func signedURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}
