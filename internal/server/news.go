package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/deusflow/geonews/internal/app"
	"github.com/deusflow/geonews/internal/models"
	"github.com/deusflow/geonews/internal/pagination"
	"github.com/deusflow/geonews/internal/pipeline"
	"github.com/deusflow/geonews/internal/resolver"
	"github.com/deusflow/geonews/internal/sources"
	"github.com/deusflow/geonews/internal/storage"
)

type newsHandler struct {
	resolver  ContextResolver
	discovery PageFetcher
	scheduler IngestControl
	analyzer  ArticleAnalyzer
	store     Store
	sources   SourceSelector
	pageMax   int
}

// newsQuery holds the raw discovery parameters.
type newsQuery struct {
	City      string `validate:"max=100"`
	State     string `validate:"max=100"`
	Country   string `validate:"max=100"`
	Continent string `validate:"max=50"`
	Category  string `validate:"max=50"`
	Language  string `validate:"max=200"`
	Source    string `validate:"max=200"`
	Cursor    string `validate:"max=2048"`
	Limit     int
}

// hints parses and validates the query into resolver hints.
func hints(r *http.Request) (resolver.Hints, error) {
	q := r.URL.Query()
	nq := newsQuery{
		City:      q.Get("city"),
		State:     q.Get("state"),
		Country:   q.Get("country"),
		Continent: q.Get("continent"),
		Category:  q.Get("category"),
		Language:  q.Get("language"),
		Source:    q.Get("source"),
		Cursor:    q.Get("cursor"),
	}

	var err error
	if nq.Limit, err = queryInt(r, "limit"); err != nil {
		return resolver.Hints{}, errors.New("limit must be an integer")
	}
	if err := validate.Struct(nq); err != nil {
		return resolver.Hints{}, err
	}
	analyzed, err := queryBool(r, "analyzed")
	if err != nil {
		return resolver.Hints{}, errors.New("analyzed must be true or false")
	}

	return resolver.Hints{
		City:      nq.City,
		State:     nq.State,
		Country:   nq.Country,
		Continent: nq.Continent,
		Language:  nq.Language,
		Category:  nq.Category,
		Source:    nq.Source,
		Analyzed:  analyzed,
		Cursor:    nq.Cursor,
		Limit:     nq.Limit,
	}, nil
}

// discover serves one context-aware page. An empty first page asks the
// scheduler for an out-of-band fetch of the matching sources.
func (h *newsHandler) discover(w http.ResponseWriter, r *http.Request) {
	hs, err := hints(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid query", err)
		return
	}

	c := h.resolver.Resolve(r.Context(), hs)
	page, err := h.discovery.Fetch(r.Context(), c)
	if errors.Is(err, pagination.ErrInvalidCursor) {
		respondWithError(w, http.StatusBadRequest, "Invalid cursor", err)
		return
	}
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load news", err)
		return
	}

	if page.Empty && c.Cursor == "" && h.scheduler != nil && h.scheduler.Trigger(page.Context) {
		w.Header().Set("X-Refresh-Triggered", "true")
	}
	respondWithJSON(w, http.StatusOK, page)
}

type recentPage struct {
	Articles   []models.Article `json:"articles"`
	NextCursor string           `json:"next_cursor,omitempty"`
	HasMore    bool             `json:"has_more"`
}

// recent lists all articles newest first.
func (h *newsHandler) recent(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid query", errors.New("limit must be an integer"))
		return
	}
	limit = storage.RecentOrder.ClampLimit(limit)
	if h.pageMax > 0 && limit > h.pageMax {
		limit = h.pageMax
	}

	after, err := storage.RecentOrder.Decode(r.URL.Query().Get("cursor"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid cursor", err)
		return
	}

	rows, err := h.store.ListRecent(r.Context(), after, limit+1)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to list articles", err)
		return
	}

	page := recentPage{Articles: []models.Article{}}
	if len(rows) > limit {
		page.HasMore = true
		rows = rows[:limit]
	}
	for _, a := range rows {
		a.RawText = ""
		page.Articles = append(page.Articles, a)
	}

	if page.HasMore {
		last := rows[len(rows)-1]
		page.NextCursor, err = storage.RecentOrder.Encode(map[string]any{"created_at": last.CreatedAt, "id": last.ID})
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, "Failed to encode cursor", err)
			return
		}
	}
	respondWithJSON(w, http.StatusOK, page)
}

type analyzeRequest struct {
	Stages []string `json:"stages" validate:"omitempty,dive,required"`
	Mode   string   `json:"mode" validate:"max=16"`
}

func (h *newsHandler) analyze(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondWithError(w, http.StatusBadRequest, "Missing article ID", nil)
		return
	}

	var req analyzeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	stages, err := pipeline.ParseStages(req.Stages)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid stages", err)
		return
	}
	mode, err := app.ParseMode(req.Mode)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid mode", err)
		return
	}

	res, err := h.analyzer.Analyze(r.Context(), id, stages, mode)
	switch {
	case err == nil:
		respondWithJSON(w, http.StatusOK, res)
	case errors.Is(err, app.ErrNotFound):
		respondWithError(w, http.StatusNotFound, "Article not found", nil)
	case errors.Is(err, app.ErrExtraction):
		respondWithJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"error":     "Could not extract article text",
			"detail":    err.Error(),
			"retryable": true,
		})
	case errors.Is(err, app.ErrProcessing):
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
		body := map[string]interface{}{
			"error":     "Analysis failed",
			"detail":    err.Error(),
			"retryable": true,
		}
		if res != nil {
			body["result"] = res
		}
		respondWithJSON(w, http.StatusServiceUnavailable, body)
	default:
		respondWithError(w, http.StatusInternalServerError, "Failed to analyze article", err)
	}
}

func (h *newsHandler) document(w http.ResponseWriter, r *http.Request) {
	doc, err := h.store.GetDocument(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, storage.ErrNotFound) {
		respondWithError(w, http.StatusNotFound, "Document not found", nil)
		return
	}
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load document", err)
		return
	}
	respondWithJSON(w, http.StatusOK, doc)
}

// selectSources previews which feeds a fetch for the request context
// would poll.
func (h *newsHandler) selectSources(w http.ResponseWriter, r *http.Request) {
	hs, err := hints(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid query", err)
		return
	}
	c := h.resolver.Resolve(r.Context(), hs)

	selected := h.sources.Select(c)
	if selected == nil {
		selected = []sources.Source{}
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"context": c,
		"count":   len(selected),
		"sources": selected,
	})
}
