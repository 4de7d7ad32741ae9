package discovery

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/wannasleep66/vibe-barter-sub001/internal/filter"
	"github.com/wannasleep66/vibe-barter-sub001/internal/model"
	"github.com/wannasleep66/vibe-barter-sub001/internal/rank"
	"github.com/wannasleep66/vibe-barter-sub001/internal/store"
)

// Handler is the JSON/HTTP mirror of the in-process discovery contracts.
// Viewer identity arrives in the x-user-id header forwarded by the Gateway.
//
// Routes:
//
//	GET    /listings/search        → filtered, paginated listing search
//	GET    /listings/{listingId}   → listing detail with author profile
//	GET    /recommendations        → personalized ranked page
//	PUT    /preferences            → store preferences + invalidate cache
//	POST   /interactions           → record a behavioral interaction
//	DELETE /cache/{viewerId}       → drop a viewer's cached rankings
type Handler struct {
	svc *Service
}

// NewHandler returns a Handler around svc.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts all discovery routes on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/listings/search", h.search)
	r.Get("/listings/{listingID}", h.getListing)
	r.Get("/recommendations", h.recommendations)
	r.Put("/preferences", h.updatePreferences)
	r.Post("/interactions", h.recordInteraction)
	r.Delete("/cache/{viewerID}", h.invalidateCache)
}

// ─── Individual handlers ──────────────────────────────────────────────────────

func (h *Handler) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	raw := filter.RawParams{
		Query:                q.Get("q"),
		Type:                 q.Get("type"),
		CategoryIDs:          q["category"],
		IncludeSubcategories: q.Get("includeSubcategories"),
		TagIDs:               q["tag"],
		TagMode:              q.Get("tagMode"),
		Location:             q.Get("location"),
		MinRating:            q.Get("minRating"),
		MaxRating:            q.Get("maxRating"),
		MinViews:             q.Get("minViews"),
		MaxViews:             q.Get("maxViews"),
		MinApplications:      q.Get("minApplications"),
		MaxApplications:      q.Get("maxApplications"),
		CreatedAfter:         q.Get("createdAfter"),
		CreatedBefore:        q.Get("createdBefore"),
		ExpiresAfter:         q.Get("expiresAfter"),
		ExpiresBefore:        q.Get("expiresBefore"),
		IsActive:             q.Get("isActive"),
		IsArchived:           q.Get("isArchived"),
		HasPortfolio:         q.Get("hasPortfolio"),
		Languages:            q["language"],
		MinAuthorRating:      q.Get("minAuthorRating"),
		MaxAuthorRating:      q.Get("maxAuthorRating"),
		SortBy:               q.Get("sortBy"),
		SortOrder:            q.Get("sortOrder"),
		Page:                 q.Get("page"),
		Limit:                q.Get("limit"),
	}

	result, err := h.svc.Search(r.Context(), raw)
	if err != nil {
		writeError(w, err)
		return
	}
	jsonOK(w, result)
}

func (h *Handler) getListing(w http.ResponseWriter, r *http.Request) {
	detail, err := h.svc.GetListing(r.Context(), chi.URLParam(r, "listingID"))
	if err != nil {
		writeError(w, err)
		return
	}
	jsonOK(w, detail)
}

func (h *Handler) recommendations(w http.ResponseWriter, r *http.Request) {
	viewerID := r.Header.Get("x-user-id")
	if viewerID == "" {
		jsonError(w, "missing x-user-id header", http.StatusUnauthorized)
		return
	}

	q := r.URL.Query()
	opts := rank.Options{FallbackToGeneral: q.Get("fallback") != "false"}
	var err error
	if opts.Page, err = intParam(q.Get("page")); err != nil {
		jsonError(w, "page must be an integer", http.StatusBadRequest)
		return
	}
	if opts.Limit, err = intParam(q.Get("limit")); err != nil {
		jsonError(w, "limit must be an integer", http.StatusBadRequest)
		return
	}
	if raw := q.Get("minScore"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			jsonError(w, "minScore must be a number", http.StatusBadRequest)
			return
		}
		opts.MinScore = v
		opts.MinScoreSet = true
	}
	opts.ExcludeInteracted = q.Get("excludeInteracted") == "true"

	result, err := h.svc.GetRecommendations(r.Context(), viewerID, opts)
	if err != nil {
		writeError(w, err)
		return
	}
	jsonOK(w, result)
}

func (h *Handler) updatePreferences(w http.ResponseWriter, r *http.Request) {
	viewerID := r.Header.Get("x-user-id")
	if viewerID == "" {
		jsonError(w, "missing x-user-id header", http.StatusUnauthorized)
		return
	}

	var pref model.ViewerPreference
	if err := json.NewDecoder(r.Body).Decode(&pref); err != nil {
		jsonError(w, "invalid preference body", http.StatusBadRequest)
		return
	}
	pref.ViewerID = viewerID

	if err := h.svc.UpdatePreferences(r.Context(), &pref); err != nil {
		writeError(w, err)
		return
	}
	jsonOK(w, map[string]string{"status": "updated"})
}

func (h *Handler) recordInteraction(w http.ResponseWriter, r *http.Request) {
	viewerID := r.Header.Get("x-user-id")
	if viewerID == "" {
		jsonError(w, "missing x-user-id header", http.StatusUnauthorized)
		return
	}

	var body struct {
		ListingID string `json:"listingId"`
		Type      string `json:"type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.ListingID == "" {
		jsonError(w, "body must contain listingId and type", http.StatusBadRequest)
		return
	}

	if err := h.svc.RecordInteraction(r.Context(), viewerID, body.ListingID, body.Type); err != nil {
		writeError(w, err)
		return
	}
	jsonOK(w, map[string]string{"status": "recorded"})
}

func (h *Handler) invalidateCache(w http.ResponseWriter, r *http.Request) {
	viewerID := chi.URLParam(r, "viewerID")
	if err := h.svc.InvalidateViewerCache(r.Context(), viewerID); err != nil {
		writeError(w, err)
		return
	}
	jsonOK(w, map[string]string{"status": "invalidated"})
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func intParam(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

// writeError maps service errors onto status codes: validation → 400,
// missing entity → 404, anything else → 500.
func writeError(w http.ResponseWriter, err error) {
	var vErr *filter.ValidationError
	switch {
	case errors.As(err, &vErr):
		jsonError(w, vErr.Msg, http.StatusBadRequest)
	case errors.Is(err, store.ErrNotFound):
		jsonError(w, "not found", http.StatusNotFound)
	default:
		slog.Error("discovery request failed", "err", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
	}
}

func jsonOK(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
