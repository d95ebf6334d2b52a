package nlp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/deusflow/geonews/internal/cache"
	"github.com/deusflow/geonews/internal/logger"
	"github.com/deusflow/geonews/internal/models"
)

const (
	DefaultGeocoderURL = "https://nominatim.openstreetmap.org"
	geocodeMemoTTL     = 24 * time.Hour
	userAgent          = "geonews/1.0 (+https://github.com/deusflow/geonews)"
)

type nominatimResult struct {
	Importance float64 `json:"importance"`
	Address    struct {
		City    string `json:"city"`
		Town    string `json:"town"`
		Village string `json:"village"`
		County  string `json:"county"`
		State   string `json:"state"`
		Country string `json:"country"`
	} `json:"address"`
}

// Nominatim geocodes place names through an OpenStreetMap Nominatim
// server. Calls are limited to one per second and memoized, misses
// included.
type Nominatim struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	memo    *cache.Cache[*models.Location]
	log     *slog.Logger
}

func NewNominatim(baseURL string, timeout time.Duration) *Nominatim {
	if baseURL == "" {
		baseURL = DefaultGeocoderURL
	}
	return &Nominatim{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(1), 1),
		memo:    cache.New[*models.Location](2048, 0),
		log:     logger.With("geocoder"),
	}
}

// Geocode resolves place to a lower-cased city/state/country triple, or
// nil when the server knows no such place.
func (n *Nominatim) Geocode(ctx context.Context, place string) (*models.Location, error) {
	key := strings.ToLower(strings.TrimSpace(place))
	if key == "" {
		return nil, nil
	}
	if loc, ok := n.memo.Get(key); ok {
		return loc, nil
	}

	if err := n.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("q", place)
	params.Set("format", "json")
	params.Set("addressdetails", "1")
	params.Set("limit", "1")
	params.Set("accept-language", "en")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocode %q: %w", place, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocode %q: status %d", place, resp.StatusCode)
	}

	var results []nominatimResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("geocode %q: %w", place, err)
	}

	var loc *models.Location
	if len(results) > 0 {
		a := results[0].Address
		city := firstNonEmpty(a.City, a.Town, a.Village, a.County)
		loc = &models.Location{
			City:       strings.ToLower(city),
			State:      strings.ToLower(a.State),
			Country:    strings.ToLower(a.Country),
			Confidence: round3(min(1, 0.5+results[0].Importance/2)),
		}
		if loc.Empty() {
			loc = nil
		}
	}
	n.memo.Set(key, loc, geocodeMemoTTL)
	n.log.Debug("geocoded", "place", place, "found", loc != nil)
	return loc, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
