package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/geonews/internal/app"
	"github.com/deusflow/geonews/internal/config"
	"github.com/deusflow/geonews/internal/discovery"
	"github.com/deusflow/geonews/internal/models"
	"github.com/deusflow/geonews/internal/pipeline"
	"github.com/deusflow/geonews/internal/resolver"
	"github.com/deusflow/geonews/internal/scheduler"
	"github.com/deusflow/geonews/internal/sources"
	"github.com/deusflow/geonews/internal/storage"
	"github.com/deusflow/geonews/internal/translate"
)

type fakeScheduler struct {
	paused    bool
	full      bool
	triggered []models.Context
}

func (f *fakeScheduler) Trigger(c models.Context) bool {
	if f.full {
		return false
	}
	f.triggered = append(f.triggered, c)
	return true
}

func (f *fakeScheduler) Pause()  { f.paused = true }
func (f *fakeScheduler) Resume() { f.paused = false }

func (f *fakeScheduler) Status() scheduler.Status {
	return scheduler.Status{Paused: f.paused, Schedule: "@every 5m"}
}

type fakeAnalyzer struct {
	gotStages []pipeline.Stage
	gotMode   app.Mode
}

func (f *fakeAnalyzer) Analyze(_ context.Context, id string, stages []pipeline.Stage, mode app.Mode) (*pipeline.Result, error) {
	f.gotStages, f.gotMode = stages, mode
	switch id {
	case "missing":
		return nil, app.ErrNotFound
	case "paywalled":
		return nil, fmt.Errorf("%w: only 12 characters", app.ErrExtraction)
	case "flaky":
		return &pipeline.Result{DocumentID: "d1", Error: "sentiment: engine down"}, fmt.Errorf("%w: sentiment: engine down", app.ErrProcessing)
	}
	return &pipeline.Result{DocumentID: "d1", Success: true, Stages: stages}, nil
}

type upperTranslator struct{}

func (upperTranslator) Batch(_ context.Context, texts []string, src string) []translate.Result {
	out := make([]translate.Result, len(texts))
	for i, t := range texts {
		out[i] = translate.Result{Text: strings.ToUpper(t), Source: src, Engine: "fake", Chunks: 1}
	}
	return out
}

type testEnv struct {
	store    *storage.MemoryStore
	sched    *fakeScheduler
	analyzer *fakeAnalyzer
	handler  http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := storage.NewMemoryStore("")
	env := &testEnv{store: store, sched: &fakeScheduler{}, analyzer: &fakeAnalyzer{}}

	srv := NewServer(&config.Config{HTTPAddr: ":0", HTTPTimeout: 5 * time.Second, PageSizeMax: 50}, Deps{
		Resolver:   resolver.New(nil, store),
		Discovery:  discovery.NewFetcher(store, 50, 300),
		Scheduler:  env.sched,
		Analyzer:   env.analyzer,
		Translator: upperTranslator{},
		Sources:    sources.DefaultCatalog(),
		Store:      store,
	})
	env.handler = srv.Handler()
	return env
}

func (e *testEnv) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) seed(t *testing.T, n int) {
	t.Helper()
	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < n; i++ {
		_, err := e.store.InsertIfNew(context.Background(), &models.Article{
			ID:        fmt.Sprintf("a%d", i),
			URL:       fmt.Sprintf("https://news.example/%d", i),
			Title:     fmt.Sprintf("Story %d", i),
			Source:    "Wire",
			Language:  "en",
			Country:   "india",
			Continent: "asia",
			Category:  "national",
			RawText:   "full body",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestDiscoverReturnsPage(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, 3)

	rec := env.do(t, http.MethodGet, "/api/v1/news?country=India&limit=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var page discovery.Page
	decode(t, rec, &page)
	assert.Len(t, page.Items, 2)
	assert.True(t, page.HasMore)
	assert.NotEmpty(t, page.NextCursor)
	assert.Equal(t, models.ScopeCountry, page.Context.Scope)
	assert.Empty(t, env.sched.triggered)

	rec = env.do(t, http.MethodGet, "/api/v1/news?country=India&limit=2&cursor="+page.NextCursor, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var next discovery.Page
	decode(t, rec, &next)
	require.Len(t, next.Items, 1)
	assert.False(t, next.HasMore)
	for _, it := range page.Items {
		assert.NotEqual(t, it.ID, next.Items[0].ID)
	}
}

func TestDiscoverEmptyTriggersFetch(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/news?country=kenya", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var page discovery.Page
	decode(t, rec, &page)
	assert.True(t, page.Empty)
	assert.Equal(t, discovery.EmptyMessage, page.Message)
	assert.Equal(t, "true", rec.Header().Get("X-Refresh-Triggered"))
	require.Len(t, env.sched.triggered, 1)
	assert.Equal(t, "kenya", env.sched.triggered[0].Country)
}

func TestDiscoverRejectsBadInput(t *testing.T) {
	env := newTestEnv(t)

	for _, target := range []string{
		"/api/v1/news?cursor=not-a-cursor",
		"/api/v1/news?limit=ten",
		"/api/v1/news?analyzed=maybe",
		"/api/v1/news?city=" + strings.Repeat("x", 101),
	} {
		rec := env.do(t, http.MethodGet, target, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestOversizedLimitIsClamped(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, 60)

	rec := env.do(t, http.MethodGet, "/api/v1/news?country=india&limit=5000", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var page discovery.Page
	decode(t, rec, &page)
	assert.Len(t, page.Items, 50)
	assert.True(t, page.HasMore)

	rec = env.do(t, http.MethodGet, "/api/v1/news/recent?limit=5000", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var recent recentPage
	decode(t, rec, &recent)
	assert.Len(t, recent.Articles, 50)
	assert.True(t, recent.HasMore)
}

func TestRecentPagesThroughAll(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, 3)

	rec := env.do(t, http.MethodGet, "/api/v1/news/recent?limit=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var first recentPage
	decode(t, rec, &first)
	require.Len(t, first.Articles, 2)
	assert.Equal(t, "a2", first.Articles[0].ID)
	assert.Empty(t, first.Articles[0].RawText)
	require.True(t, first.HasMore)

	rec = env.do(t, http.MethodGet, "/api/v1/news/recent?limit=2&cursor="+first.NextCursor, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var second recentPage
	decode(t, rec, &second)
	require.Len(t, second.Articles, 1)
	assert.Equal(t, "a0", second.Articles[0].ID)
	assert.False(t, second.HasMore)
	assert.Empty(t, second.NextCursor)
}

func TestAnalyzeStatusCodes(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/news/a1/analyze", `{"stages":["summary"],"mode":"missing"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []pipeline.Stage{pipeline.StageSummary}, env.analyzer.gotStages)
	assert.Equal(t, app.ModeMissing, env.analyzer.gotMode)

	rec = env.do(t, http.MethodPost, "/api/v1/news/a1/analyze", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, env.analyzer.gotStages)
	assert.Equal(t, app.ModeFull, env.analyzer.gotMode)

	rec = env.do(t, http.MethodPost, "/api/v1/news/missing/analyze", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/news/paywalled/analyze", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var body map[string]interface{}
	decode(t, rec, &body)
	assert.Equal(t, true, body["retryable"])

	rec = env.do(t, http.MethodPost, "/api/v1/news/flaky/analyze", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "30", rec.Header().Get("Retry-After"))
	body = nil
	decode(t, rec, &body)
	assert.Contains(t, body, "result")
}

func TestAnalyzeAcceptsEveryStage(t *testing.T) {
	env := newTestEnv(t)

	names := make([]string, 0, len(pipeline.AllStages))
	for _, s := range pipeline.AllStages {
		names = append(names, string(s))
	}
	body, err := json.Marshal(analyzeRequest{Stages: names})
	require.NoError(t, err)

	rec := env.do(t, http.MethodPost, "/api/v1/news/a1/analyze", string(body))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Len(t, env.analyzer.gotStages, 8)
	assert.ElementsMatch(t, pipeline.AllStages, env.analyzer.gotStages)
}

func TestAnalyzeRejectsBadBody(t *testing.T) {
	env := newTestEnv(t)

	for _, body := range []string{
		`{"stages":["astrology"]}`,
		`{"mode":"partial"}`,
		`{"stages":[""]}`,
		`{"unknown":true}`,
		`not json`,
	} {
		rec := env.do(t, http.MethodPost, "/api/v1/news/a1/analyze", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestDocumentLookup(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.store.CreateDocument(context.Background(), &models.Document{ID: "d1", RawText: "text"}))

	rec := env.do(t, http.MethodGet, "/api/v1/documents/d1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var doc models.Document
	decode(t, rec, &doc)
	assert.Equal(t, "d1", doc.ID)

	rec = env.do(t, http.MethodGet, "/api/v1/documents/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSourcesPreviewFallsBackToGlobal(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/sources", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Count   int              `json:"count"`
		Sources []sources.Source `json:"sources"`
	}
	decode(t, rec, &body)
	require.NotZero(t, body.Count)
	for _, s := range body.Sources {
		assert.True(t, s.IsGlobal(), s.Name)
	}
}

func TestTranslateBatch(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/translate", `{"texts":["hola","adios"],"source_language":"es"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp translateResponse
	decode(t, rec, &resp)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "HOLA", resp.Results[0].Text)
	assert.Equal(t, "es", resp.Results[1].Source)

	rec = env.do(t, http.MethodPost, "/api/v1/translate", `{"texts":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSchedulerControl(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/scheduler/pause", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.sched.paused)

	rec = env.do(t, http.MethodGet, "/api/v1/scheduler", "")
	var st scheduler.Status
	decode(t, rec, &st)
	assert.True(t, st.Paused)

	env.do(t, http.MethodPost, "/api/v1/scheduler/resume", "")
	assert.False(t, env.sched.paused)

	rec = env.do(t, http.MethodPost, "/api/v1/scheduler/trigger?country=india", "")
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, env.sched.triggered, 1)
	assert.Equal(t, "india", env.sched.triggered[0].Country)

	env.sched.full = true
	rec = env.do(t, http.MethodPost, "/api/v1/scheduler/trigger", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestHealthStatsAndMetrics(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, 1)

	rec := env.do(t, http.MethodGet, "/health", "")
	assert.Contains(t, []int{http.StatusOK, http.StatusServiceUnavailable}, rec.Code)
	var health map[string]interface{}
	decode(t, rec, &health)
	assert.Contains(t, health, "status")
	assert.Equal(t, false, health["scheduler_paused"])

	rec = env.do(t, http.MethodGet, "/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var stats map[string]json.RawMessage
	decode(t, rec, &stats)
	assert.Contains(t, stats, "service")
	assert.Contains(t, stats, "store")
	assert.NotContains(t, stats, "ai")

	rec = env.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "promhttp_metric_handler_requests_total")
}

func TestRespondWithErrorHidesServerDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	respondWithError(rec, http.StatusInternalServerError, "Failed", errors.New("pq: connection refused"))
	assert.NotContains(t, rec.Body.String(), "connection refused")

	rec = httptest.NewRecorder()
	respondWithError(rec, http.StatusBadRequest, "Invalid", errors.New("limit must be an integer"))
	assert.Contains(t, rec.Body.String(), "limit must be an integer")
}
