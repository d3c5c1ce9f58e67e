package api

import (
	"errors"
	"net/http"

	"github.com/linkhoard/enricher/internal/enrich"
	"github.com/linkhoard/enricher/internal/rank"
	"github.com/linkhoard/enricher/internal/safeurl"
)

// favicons serves icon discovery. mode=one collapses the candidate list
// to the ranked winner (possibly empty).
func (s *Server) favicons(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("url")
	if raw == "" {
		writeError(s.logger, w, http.StatusBadRequest, "missing url")
		return
	}

	result, err := s.discoverer.Icons(r.Context(), raw)
	if err != nil {
		writeError(s.logger, w, urlErrorStatus(err), err.Error())
		return
	}

	if r.URL.Query().Get("mode") == "one" {
		if best, ok := rank.Best(result.Icons); ok {
			result.Icons = []enrich.IconCandidate{best}
		} else {
			result.Icons = []enrich.IconCandidate{}
		}
	}
	writeJSON(s.logger, w, http.StatusOK, result)
}

func (s *Server) previewImage(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("url")
	if raw == "" {
		writeError(s.logger, w, http.StatusBadRequest, "missing url")
		return
	}

	result, err := s.discoverer.Image(r.Context(), raw)
	if err != nil {
		writeError(s.logger, w, urlErrorStatus(err), err.Error())
		return
	}
	writeJSON(s.logger, w, http.StatusOK, result)
}

func (s *Server) preview(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("url")
	if raw == "" {
		writeError(s.logger, w, http.StatusBadRequest, "missing url")
		return
	}

	result, err := s.discoverer.Preview(r.Context(), raw)
	if err != nil {
		writeError(s.logger, w, urlErrorStatus(err), err.Error())
		return
	}
	writeJSON(s.logger, w, http.StatusOK, result)
}

// urlErrorStatus maps URL validation failures to 400 and everything
// else (fetch failures past validation) to 500.
func urlErrorStatus(err error) int {
	if errors.Is(err, safeurl.ErrInvalidURL) || errors.Is(err, safeurl.ErrForbiddenHost) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
