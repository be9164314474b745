package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/kensaku/internal/analytics"
	"github.com/hyperjump/kensaku/internal/cache"
	"github.com/hyperjump/kensaku/internal/models"
	"github.com/hyperjump/kensaku/internal/profile"
	"github.com/hyperjump/kensaku/internal/query"
)

// searchAPIRequest is the wire shape of a gateway search call. Everything
// beyond text is optional; defaults come from the active profile.
type searchAPIRequest struct {
	Text         string               `json:"text"`
	Profile      string               `json:"profile,omitempty"`
	Type         models.QueryType     `json:"type,omitempty"`
	Filters      []models.Filter      `json:"filters,omitempty"`
	FacetFilters []models.FacetFilter `json:"facet_filters,omitempty"`
	Sort         []models.SortOption  `json:"sort,omitempty"`
	Offset       int                  `json:"offset,omitempty"`
	Limit        int                  `json:"limit,omitempty"`
	Deep         bool                 `json:"deep,omitempty"`
	SearchAfter  string               `json:"search_after,omitempty"`
	UserID       string               `json:"user_id,omitempty"`
	SessionID    string               `json:"session_id,omitempty"`
}

// resolveProfile returns the named profile or the default when name is empty
// or unknown.
func (s *Server) resolveProfile(name string) *profile.Profile {
	if name != "" {
		if p, ok := s.profiles.Get(name); ok {
			return p
		}
		s.logger.Warn("unknown profile requested, using default", zap.String("profile", name))
	}
	return s.profiles.Default()
}

// buildQuery turns an API request into a validated SearchQuery.
func (s *Server) buildQuery(req *searchAPIRequest, prof *profile.Profile) (*models.SearchQuery, error) {
	builder := query.NewBuilder(prof, s.checker)
	var opts []query.Option
	if req.Type != "" {
		opts = append(opts, query.WithType(req.Type))
	}
	if req.Deep {
		opts = append(opts, query.WithDeepPaging())
	}
	if req.UserID != "" || req.SessionID != "" {
		opts = append(opts, query.WithUser(req.UserID, req.SessionID))
	}
	q, err := builder.Build(req.Text, nil, opts...)
	if err != nil {
		return nil, err
	}
	q.Filters = req.Filters
	q.FacetFilters = req.FacetFilters
	q.Sort = req.Sort
	if req.Offset > 0 {
		q.Pagination.Offset = req.Offset
	}
	if req.Limit > 0 {
		q.Pagination.Limit = req.Limit
	}
	if req.SearchAfter != "" {
		q.Pagination.SearchAfter = req.SearchAfter
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	return q, nil
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchAPIRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	prof := s.resolveProfile(req.Profile)
	q, err := s.buildQuery(&req, prof)
	if err != nil {
		s.respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	s.logger.Debug("search request",
		zap.String("text", q.Text),
		zap.String("type", string(q.Type)),
		zap.String("profile", prof.Name))

	key := ""
	var resp *models.SearchResponse
	fromCache := false
	if s.cache != nil {
		key = cache.Key(q, prof.Signature())
		if cached, ok := s.cache.Get(key); ok {
			resp, fromCache = cached, true
		}
	}
	if resp == nil {
		resp, err = s.backend.Search(r.Context(), q, prof.Name)
		if err != nil {
			s.logger.Error("backend search failed", zap.Error(err))
			s.respondJSON(w, http.StatusBadGateway, map[string]string{
				"error": "search backend unavailable",
				"text":  q.Text,
			})
			return
		}
		if s.cache != nil {
			s.cache.Set(key, resp)
		}
	}

	// Successful query texts feed the spell vocabulary.
	s.checker.Observe(q.Text)
	if s.tracker != nil && !fromCache {
		s.tracker.TrackSearch(&analytics.SearchEvent{
			SessionID: q.Context.SessionID,
			UserID:    q.Context.UserID,
			Text:      q.Text,
			QueryType: string(q.Type),
			Profile:   prof.Name,
			Hits:      resp.TotalCount,
		})
	}

	model := s.renderer.Render(resp, q)
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"query":        q,
		"page":         model,
		"cached":       fromCache,
		"search_after": resp.SearchAfter,
	})
}

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	prefix := r.URL.Query().Get("q")
	if prefix == "" {
		s.respondError(w, http.StatusBadRequest, "q is required")
		return
	}
	prof := s.resolveProfile(r.URL.Query().Get("profile"))
	// A prefix below the profile's minimum is a normal typing state, not an
	// error: answer empty without a backend round trip.
	if !prof.Autocomplete.Enabled || utf8.RuneCountInString(prefix) < prof.Autocomplete.MinChars {
		s.respondJSON(w, http.StatusOK, map[string]interface{}{"suggestions": []models.Suggestion{}})
		return
	}
	limit := prof.Autocomplete.MaxSuggestions
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	suggestions, err := s.backend.Suggest(r.Context(), prefix, prof.Name, limit)
	if err != nil {
		s.logger.Error("suggest failed", zap.Error(err))
		s.respondError(w, http.StatusBadGateway, "search backend unavailable")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"suggestions": suggestions})
}

func (s *Server) handleFacets(w http.ResponseWriter, r *http.Request) {
	var req searchAPIRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	prof := s.resolveProfile(req.Profile)
	q, err := s.buildQuery(&req, prof)
	if err != nil {
		s.respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	facets, err := s.backend.Facets(r.Context(), q, prof.Name)
	if err != nil {
		s.logger.Error("facets failed", zap.Error(err))
		s.respondError(w, http.StatusBadGateway, "search backend unavailable")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"facets": facets})
}

func (s *Server) handleProfilesList(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"profiles": s.profiles.Names()})
}

func (s *Server) handleProfileGet(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	p, ok := s.profiles.Get(name)
	if !ok {
		s.respondError(w, http.StatusNotFound, "profile not found")
		return
	}
	s.respondJSON(w, http.StatusOK, p)
}

// handleProfileValidate checks a profile document without installing it.
// Validation collects every defect in one pass rather than stopping at the
// first, so a response lists everything to fix.
func (s *Server) handleProfileValidate(w http.ResponseWriter, r *http.Request) {
	var p profile.Profile
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	profile.ApplyDefaults(&p)
	if errs := profile.Validate(&p); len(errs) > 0 {
		s.respondJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"valid":  false,
			"errors": errs,
		})
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"valid":     true,
		"signature": p.Signature(),
	})
}

type clickRequest struct {
	SessionID string  `json:"session_id"`
	Text      string  `json:"text"`
	ResultID  string  `json:"result_id"`
	Position  int     `json:"position"`
	Score     float64 `json:"score,omitempty"`
}

// handleTrackClick accepts a click event and returns immediately. Recording
// failures are logged server-side, never returned to the caller.
func (s *Server) handleTrackClick(w http.ResponseWriter, r *http.Request) {
	var req clickRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ResultID == "" {
		s.respondError(w, http.StatusBadRequest, "result_id is required")
		return
	}
	if s.tracker != nil {
		s.tracker.TrackClick(&analytics.ClickEvent{
			SessionID: req.SessionID,
			Text:      req.Text,
			ResultID:  req.ResultID,
			Position:  req.Position,
			Score:     req.Score,
		})
	}
	s.respondJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
