// Package scheduler polls the feed catalog on a cron schedule and stores
// new articles. It is the only writer of articles.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/deusflow/geonews/internal/classify"
	"github.com/deusflow/geonews/internal/logger"
	"github.com/deusflow/geonews/internal/metrics"
	"github.com/deusflow/geonews/internal/models"
	"github.com/deusflow/geonews/internal/nlp"
	"github.com/deusflow/geonews/internal/rss"
	"github.com/deusflow/geonews/internal/sources"
)

const (
	DefaultSchedule     = "@every 5m"
	DefaultMaxPerSource = 10
	DefaultImageTimeout = 8 * time.Second
	DefaultArticleTTL   = 24 * time.Hour

	triggerQueue = 8
)

type FeedFetcher interface {
	Fetch(ctx context.Context, feedURL string) ([]rss.Entry, error)
}

type ImageResolver interface {
	Resolve(ctx context.Context, pageURL string) (string, error)
}

type Classifier interface {
	Classify(ctx context.Context, text string) classify.Result
}

// ArticleWriter is the part of the article store the scheduler writes to.
type ArticleWriter interface {
	InsertIfNew(ctx context.Context, a *models.Article) (models.InsertResult, error)
	PurgeExpired(ctx context.Context, olderThan time.Time) (int64, error)
}

type Settings struct {
	Schedule     string
	MaxPerSource int
	SourcePause  time.Duration
	ImageTimeout time.Duration
	ArticleTTL   time.Duration
}

func (s *Settings) defaults() {
	if s.Schedule == "" {
		s.Schedule = DefaultSchedule
	}
	if s.MaxPerSource <= 0 {
		s.MaxPerSource = DefaultMaxPerSource
	}
	if s.SourcePause < 0 {
		s.SourcePause = 0
	}
	if s.ImageTimeout <= 0 {
		s.ImageTimeout = DefaultImageTimeout
	}
	if s.ArticleTTL <= 0 {
		s.ArticleTTL = DefaultArticleTTL
	}
}

// CycleStats summarises one ingestion cycle.
type CycleStats struct {
	Sources    int           `json:"sources"`
	Stored     int           `json:"stored"`
	Duplicates int           `json:"duplicates"`
	NoImage    int           `json:"no_image"`
	Errors     int           `json:"errors"`
	Purged     int64         `json:"purged"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration"`
}

// Status is the scheduler state reported by the API.
type Status struct {
	Paused    bool        `json:"paused"`
	Schedule  string      `json:"schedule"`
	NextRun   time.Time   `json:"next_run"`
	LastCycle *CycleStats `json:"last_cycle,omitempty"`
}

type Scheduler struct {
	catalog    sources.Catalog
	feeds      FeedFetcher
	images     ImageResolver
	classifier Classifier
	store      ArticleWriter
	gazetteer  *nlp.Gazetteer
	settings   Settings
	schedule   cron.Schedule

	paused  atomic.Bool
	trigger chan models.Context
	cycleMu sync.Mutex

	mu        sync.Mutex
	nextRun   time.Time
	lastCycle *CycleStats

	now   func() time.Time
	newID func() string
	log   *slog.Logger
}

type Option func(*Scheduler)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

func New(catalog sources.Catalog, feeds FeedFetcher, images ImageResolver, classifier Classifier,
	store ArticleWriter, settings Settings, opts ...Option) (*Scheduler, error) {
	settings.defaults()
	schedule, err := cron.ParseStandard(settings.Schedule)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", settings.Schedule, err)
	}

	s := &Scheduler{
		catalog:    catalog,
		feeds:      feeds,
		images:     images,
		classifier: classifier,
		store:      store,
		gazetteer:  nlp.NewGazetteer(),
		settings:   settings,
		schedule:   schedule,
		trigger:    make(chan models.Context, triggerQueue),
		now:        time.Now,
		newID:      uuid.NewString,
		log:        logger.With("scheduler"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Run ingests once immediately and then on every schedule tick until ctx
// is cancelled. Targeted refreshes queued with Trigger run between ticks.
func (s *Scheduler) Run(ctx context.Context) error {
	s.log.Info("scheduler started", "schedule", s.settings.Schedule, "sources", len(s.catalog))
	if !s.paused.Load() {
		s.RunOnce(ctx)
	}

	for {
		next := s.schedule.Next(s.now())
		s.mu.Lock()
		s.nextRun = next
		s.mu.Unlock()

		timer := time.NewTimer(next.Sub(s.now()))
		select {
		case <-ctx.Done():
			timer.Stop()
			s.log.Info("scheduler stopped")
			return nil
		case <-timer.C:
			if s.paused.Load() {
				s.log.Debug("tick skipped, scheduler paused")
				continue
			}
			s.RunOnce(ctx)
		case c := <-s.trigger:
			timer.Stop()
			if s.paused.Load() {
				continue
			}
			selected := s.catalog.Select(c)
			s.log.Info("targeted refresh", "scope", c.Scope, "sources", len(selected))
			s.runCycle(ctx, selected)
		}
	}
}

// RunOnce runs a full cycle over the whole catalog.
func (s *Scheduler) RunOnce(ctx context.Context) CycleStats {
	return s.runCycle(ctx, s.catalog)
}

// Trigger queues a refresh of the sources relevant to c. It never blocks;
// false means the queue was full.
func (s *Scheduler) Trigger(c models.Context) bool {
	select {
	case s.trigger <- c:
		return true
	default:
		return false
	}
}

func (s *Scheduler) Pause() {
	if !s.paused.Swap(true) {
		s.log.Info("scheduler paused")
	}
}

func (s *Scheduler) Resume() {
	if s.paused.Swap(false) {
		s.log.Info("scheduler resumed")
	}
}

func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{
		Paused:   s.paused.Load(),
		Schedule: s.settings.Schedule,
		NextRun:  s.nextRun,
	}
	if s.lastCycle != nil {
		cp := *s.lastCycle
		st.LastCycle = &cp
	}
	return st
}

func (s *Scheduler) runCycle(ctx context.Context, srcs []sources.Source) CycleStats {
	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()

	stats := CycleStats{StartedAt: s.now()}
	for i, src := range srcs {
		if s.paused.Load() || ctx.Err() != nil {
			break
		}
		if i > 0 && s.settings.SourcePause > 0 {
			if !sleep(ctx, s.settings.SourcePause) {
				break
			}
		}

		stats.Sources++
		if err := s.ingestSource(ctx, src, &stats); err != nil {
			stats.Errors++
			metrics.Global.IncrementSourceErrors(src.Name)
			s.log.Warn("source failed", "source", src.Name, "error", err)
		}
	}

	purged, err := s.store.PurgeExpired(ctx, s.now().Add(-s.settings.ArticleTTL))
	if err != nil {
		s.log.Error("purge failed", "error", err)
		metrics.Global.SetError(err.Error())
	}
	stats.Purged = purged
	stats.Duration = s.now().Sub(stats.StartedAt)

	metrics.Global.RecordCycleTime(stats.Duration)
	metrics.Global.SetLastRun()
	s.mu.Lock()
	s.lastCycle = &stats
	s.mu.Unlock()

	s.log.Info("cycle finished",
		"sources", stats.Sources,
		"stored", stats.Stored,
		"duplicates", stats.Duplicates,
		"no_image", stats.NoImage,
		"errors", stats.Errors,
		"purged", stats.Purged,
		"duration", stats.Duration)
	return stats
}

func (s *Scheduler) ingestSource(ctx context.Context, src sources.Source, stats *CycleStats) error {
	entries, err := s.feeds.Fetch(ctx, src.FeedURL)
	if err != nil {
		return err
	}

	stored := 0
	for _, e := range entries {
		if stored >= s.settings.MaxPerSource || s.paused.Load() || ctx.Err() != nil {
			break
		}

		image := s.resolveImage(ctx, e)
		if image == "" {
			stats.NoImage++
			metrics.Global.IncrementImagesRejected()
			continue
		}

		a := s.buildArticle(ctx, src, e, image)
		res, err := s.store.InsertIfNew(ctx, a)
		if err != nil {
			s.log.Warn("insert failed", "source", src.Name, "url", e.URL, "error", err)
			continue
		}
		if res == models.AlreadyKnown {
			stats.Duplicates++
			metrics.Global.IncrementDuplicatesSkipped()
			continue
		}
		stored++
		stats.Stored++
		metrics.Global.IncrementArticlesIngested(src.Name)
	}

	s.log.Debug("source ingested", "source", src.Name, "entries", len(entries), "stored", stored)
	return nil
}

// resolveImage prefers the page's og:image or twitter:image and falls back
// to the image the feed supplied.
func (s *Scheduler) resolveImage(ctx context.Context, e rss.Entry) string {
	if s.images != nil {
		ictx, cancel := context.WithTimeout(ctx, s.settings.ImageTimeout)
		image, err := s.images.Resolve(ictx, e.URL)
		cancel()
		if err != nil {
			s.log.Debug("image lookup failed", "url", e.URL, "error", err)
		} else if image != "" {
			return image
		}
	}
	return e.ImageURL
}

func (s *Scheduler) buildArticle(ctx context.Context, src sources.Source, e rss.Entry, image string) *models.Article {
	a := &models.Article{
		ID:          s.newID(),
		URL:         e.URL,
		Title:       e.Title,
		Snippet:     e.Snippet,
		Source:      src.Name,
		Language:    src.PrimaryLanguage(),
		Country:     src.Country,
		Continent:   src.Continent,
		Category:    src.PrimaryCategory(),
		ImageURL:    image,
		PublishedAt: e.PublishedAt,
		CreatedAt:   s.now().UTC(),
	}

	text := strings.TrimSpace(e.Title + ". " + e.Snippet)
	if s.classifier != nil {
		res := s.classifier.Classify(ctx, text)
		a.InferredCategory = res.Category
		a.SubCategory = res.SubCategory
		a.CategoryConfidence = res.Confidence
	}

	// City and state tags only come from the text when they agree with
	// the source's own country.
	if !src.IsGlobal() {
		if loc := s.gazetteer.Find(text); loc != nil && loc.Country == src.Country {
			a.City = loc.City
			a.State = loc.State
		}
	}
	return a
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
