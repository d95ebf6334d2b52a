package server

import (
	"net/http"

	"github.com/deusflow/geonews/internal/metrics"
	"github.com/deusflow/geonews/internal/translate"
)

type opsHandler struct {
	resolver   ContextResolver
	scheduler  IngestControl
	translator BatchTranslator
	store      Store
	aiStats    StatsSource
}

// health reports the last ingest cycle outcome.
func (h *opsHandler) health(w http.ResponseWriter, r *http.Request) {
	stats := metrics.Global.GetStats()

	status, code := "ok", http.StatusOK
	if !metrics.Global.Healthy() {
		status, code = "error", http.StatusServiceUnavailable
	}

	response := map[string]interface{}{
		"status":     status,
		"last_run":   stats["last_run_time"],
		"last_error": stats["last_error"],
	}
	if h.scheduler != nil {
		response["scheduler_paused"] = h.scheduler.Status().Paused
	}
	respondWithJSON(w, code, response)
}

func (h *opsHandler) stats(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"service": metrics.Global.GetStats(),
	}
	if h.store != nil {
		counts, err := h.store.Stats(r.Context())
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, "Failed to load store stats", err)
			return
		}
		response["store"] = counts
	}
	if h.aiStats != nil {
		response["ai"] = h.aiStats.GetStats()
	}
	if h.scheduler != nil {
		response["scheduler"] = h.scheduler.Status()
	}
	respondWithJSON(w, http.StatusOK, response)
}

type translateRequest struct {
	Texts          []string `json:"texts" validate:"required,min=1,max=50,dive,max=50000"`
	SourceLanguage string   `json:"source_language" validate:"max=16"`
}

type translateResponse struct {
	Results []translate.Result `json:"results"`
}

func (h *opsHandler) translate(w http.ResponseWriter, r *http.Request) {
	var req translateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	results := h.translator.Batch(r.Context(), req.Texts, req.SourceLanguage)
	respondWithJSON(w, http.StatusOK, translateResponse{Results: results})
}

func (h *opsHandler) languages(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, translate.SupportedLanguages())
}

func (h *opsHandler) schedulerStatus(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.scheduler.Status())
}

func (h *opsHandler) pause(w http.ResponseWriter, r *http.Request) {
	h.scheduler.Pause()
	respondWithJSON(w, http.StatusOK, h.scheduler.Status())
}

func (h *opsHandler) resume(w http.ResponseWriter, r *http.Request) {
	h.scheduler.Resume()
	respondWithJSON(w, http.StatusOK, h.scheduler.Status())
}

// trigger queues an immediate fetch of the sources matching the query's
// context. Without parameters every global source is polled.
func (h *opsHandler) trigger(w http.ResponseWriter, r *http.Request) {
	hs, err := hints(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid query", err)
		return
	}
	c := h.resolver.Resolve(r.Context(), hs)

	if !h.scheduler.Trigger(c) {
		respondWithError(w, http.StatusTooManyRequests, "Fetch queue is full", nil)
		return
	}
	respondWithJSON(w, http.StatusAccepted, map[string]interface{}{
		"queued":  true,
		"context": c,
	})
}
