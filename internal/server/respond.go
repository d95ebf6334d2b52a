package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/deusflow/geonews/internal/logger"
	"github.com/deusflow/geonews/internal/metrics"
)

// retryAfterSeconds is advertised when an analysis can be retried.
const retryAfterSeconds = 30

var validate = validator.New()

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		logger.Error("marshal response failed", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"failed to marshal response"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string, err error) {
	response := map[string]string{"error": message}
	if err != nil && code >= http.StatusInternalServerError {
		logger.Error("HTTP error", "code", code, "message", message, "error", err)
	} else if err != nil {
		response["detail"] = err.Error()
	}
	respondWithJSON(w, code, response)
}

// decodeJSON reads an optional JSON body into v and validates it.
func decodeJSON(r *http.Request, v interface{}) error {
	if r.Body != nil && r.ContentLength != 0 {
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(v); err != nil {
			return err
		}
	}
	return validate.Struct(v)
}

func queryInt(r *http.Request, name string) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

// queryBool returns nil when the parameter is absent.
func queryBool(r *http.Request, name string) (*bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func metricsHandler() http.Handler {
	return promhttp.InstrumentMetricHandler(metrics.Global.Registry(), metrics.Global.Handler())
}
