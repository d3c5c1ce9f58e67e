package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/linkhoard/enricher/internal/enrich"
	"github.com/linkhoard/enricher/internal/metrics"
	"github.com/linkhoard/enricher/internal/signature"
)

const maxWebhookBody = 1 << 20

// enrich handles the signed job webhook. The raw body is read before
// any parsing because the signature covers the exact bytes; once the
// request is authorized and a URL extracted, the response is always 200
// so the delivery queue does not redeliver jobs whose content merely
// failed to fetch.
func (s *Server) enrich(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")

	header := r.Header.Get(signature.Header)
	if header == "" {
		metrics.ObserveJob("unauthorized")
		writeError(s.logger, w, http.StatusUnauthorized, "missing signature")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		metrics.ObserveJob("unauthorized")
		writeError(s.logger, w, http.StatusUnauthorized, "unreadable body")
		return
	}

	if err := s.verifier.Verify(header, requestURL(r), body); err != nil {
		metrics.ObserveJob("unauthorized")
		s.logger.Warn("webhook signature rejected", zap.Error(err))
		writeError(s.logger, w, http.StatusUnauthorized, "invalid signature")
		return
	}

	job, err := extractJob(r, body)
	if err != nil {
		metrics.ObserveJob("malformed")
		writeError(s.logger, w, http.StatusBadRequest, err.Error())
		return
	}

	metrics.ObserveJob("accepted")
	s.pipeline.Run(r.Context(), job)
	writeJSON(s.logger, w, http.StatusOK, map[string]bool{"success": true})
}

// extractJob prefers query parameters, then the JSON body. The id may
// arrive as a string or a number; both become strings.
func extractJob(r *http.Request, body []byte) (enrich.Job, error) {
	query := r.URL.Query()
	job := enrich.Job{
		URL: query.Get("url"),
		ID:  query.Get("id"),
	}
	if job.URL != "" {
		return job, nil
	}

	if len(body) > 0 {
		var payload struct {
			URL string `json:"url"`
			ID  any    `json:"id"`
		}
		dec := json.NewDecoder(bytes.NewReader(body))
		dec.UseNumber()
		if err := dec.Decode(&payload); err == nil {
			job.URL = payload.URL
			if job.ID == "" {
				job.ID = scalarToString(payload.ID)
			}
		}
	}
	if job.URL == "" {
		return enrich.Job{}, errors.New("missing url")
	}
	return job, nil
}

func scalarToString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	default:
		return fmt.Sprintf("%v", t)
	}
}

// requestURL rebuilds the URL the sender signed. The query string is
// irrelevant because signing strips it, so scheme+host+path suffices.
func requestURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host + r.URL.Path
}
