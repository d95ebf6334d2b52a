// Package metadata answers place → language questions for the resolver.
// Countries come from the restcountries API, other levels from static
// seeds; answers are memoized in a fast cache and a persistent table.
package metadata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/text/language"

	"github.com/deusflow/geonews/internal/cache"
	"github.com/deusflow/geonews/internal/logger"
	"github.com/deusflow/geonews/internal/models"
	"github.com/deusflow/geonews/internal/storage"
)

const (
	DefaultBaseURL = "https://restcountries.com/v3.1"
	memoTTL        = 24 * time.Hour
	missTTL        = time.Hour
)

type Service struct {
	baseURL string
	client  *http.Client
	persist storage.LanguageCache
	memo    cache.Store
	log     *slog.Logger
}

type Option func(*Service)

// WithBaseURL points the country lookup at another restcountries host.
func WithBaseURL(u string) Option {
	return func(s *Service) { s.baseURL = strings.TrimRight(u, "/") }
}

func WithHTTPClient(c *http.Client) Option {
	return func(s *Service) { s.client = c }
}

// New builds a Service. persist and memo may be nil.
func New(persist storage.LanguageCache, memo cache.Store, opts ...Option) *Service {
	s := &Service{
		baseURL: DefaultBaseURL,
		client:  &http.Client{Timeout: 5 * time.Second},
		persist: persist,
		memo:    memo,
		log:     logger.With("metadata"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Languages returns the ISO 639-1 codes spoken at name, most prominent
// first. An unknown place yields an empty list and no error.
func (s *Service) Languages(ctx context.Context, level models.Scope, name string) ([]string, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return nil, nil
	}
	kind := string(level)
	memoKey := "geolang:" + kind + ":" + name

	if s.memo != nil {
		if v, ok, err := s.memo.Get(ctx, memoKey); err == nil && ok {
			if v == "" {
				return nil, nil
			}
			return strings.Split(v, ","), nil
		} else if err != nil {
			s.log.Debug("memo lookup failed", "key", memoKey, "error", err)
		}
	}

	if s.persist != nil {
		langs, ok, err := s.persist.GetLanguages(ctx, kind, name)
		if err != nil {
			s.log.Warn("language cache read failed", "kind", kind, "name", name, "error", err)
		} else if ok && len(langs) > 0 {
			s.remember(ctx, memoKey, langs, memoTTL)
			return langs, nil
		}
	}

	var langs []string
	var err error
	switch level {
	case models.ScopeCountry:
		langs, err = s.fetchCountry(ctx, name)
		if err != nil {
			return nil, err
		}
	case models.ScopeState:
		langs = stateLanguages[name]
	case models.ScopeCity:
		langs = cityLanguages[name]
	case models.ScopeContinent:
		langs = continentLanguages[name]
	default:
		return nil, fmt.Errorf("unsupported level %q", level)
	}

	if len(langs) == 0 {
		s.remember(ctx, memoKey, nil, missTTL)
		return nil, nil
	}
	if s.persist != nil {
		if err := s.persist.PutLanguages(ctx, kind, name, langs); err != nil {
			s.log.Warn("language cache write failed", "kind", kind, "name", name, "error", err)
		}
	}
	s.remember(ctx, memoKey, langs, memoTTL)
	return langs, nil
}

// ContinentOf places a known country on its continent, or returns "".
func (s *Service) ContinentOf(country string) string {
	return countryContinents[strings.ToLower(strings.TrimSpace(country))]
}

// remember memoizes langs under key. An empty list records a miss.
func (s *Service) remember(ctx context.Context, key string, langs []string, ttl time.Duration) {
	if s.memo == nil {
		return
	}
	if err := s.memo.Set(ctx, key, strings.Join(langs, ","), ttl); err != nil {
		s.log.Debug("memo write failed", "key", key, "error", err)
	}
}

type countryRecord struct {
	Languages json.RawMessage `json:"languages"`
}

// fetchCountry asks restcountries for the official languages of a country.
// A 404 means the name is unknown and is not an error.
func (s *Service) fetchCountry(ctx context.Context, country string) ([]string, error) {
	endpoint := s.baseURL + "/name/" + url.PathEscape(country)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("restcountries request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("restcountries returned status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("error reading response: %w", err)
	}
	var records []countryRecord
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("error parsing response: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	codes, err := objectKeys(records[0].Languages)
	if err != nil {
		return nil, fmt.Errorf("error parsing languages: %w", err)
	}

	var out []string
	for _, iso3 := range codes {
		out = appendUnique(out, toISO6391(iso3))
	}
	s.log.Debug("country languages fetched", "country", country, "languages", out)
	return out, nil
}

// objectKeys lists the keys of a JSON object in document order.
func objectKeys(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected object, got %v", tok)
	}

	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := tok.(string)
		keys = append(keys, key)

		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, err
		}
	}
	return keys, nil
}

// toISO6391 maps a three-letter code to its two-letter form. Codes without
// one fall back to English.
func toISO6391(iso3 string) string {
	base, err := language.ParseBase(iso3)
	if err != nil {
		return "en"
	}
	code := base.String()
	if len(code) != 2 {
		return "en"
	}
	return code
}

func appendUnique(list []string, v string) []string {
	for _, x := range list {
		if x == v {
			return list
		}
	}
	return append(list, v)
}
