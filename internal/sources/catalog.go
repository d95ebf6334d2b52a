// Package sources holds the feed catalog and picks the sources that apply
// to a discovery context.
package sources

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Global is the country and continent tag of worldwide wire sources.
const Global = "global"

// Source is one feed in the catalog.
type Source struct {
	Name       string   `yaml:"name" json:"name" validate:"required"`
	FeedURL    string   `yaml:"feed_url" json:"feed_url" validate:"required,url"`
	Languages  []string `yaml:"languages" json:"languages" validate:"required,min=1,dive,required"`
	Country    string   `yaml:"country" json:"country" validate:"required"`
	Continent  string   `yaml:"continent" json:"continent" validate:"required"`
	Categories []string `yaml:"categories" json:"categories" validate:"required,min=1"`
}

// PrimaryLanguage is the language stamped on articles from this source.
func (s Source) PrimaryLanguage() string {
	return s.Languages[0]
}

// PrimaryCategory is the category stamped on articles from this source.
func (s Source) PrimaryCategory() string {
	return s.Categories[0]
}

// IsGlobal reports whether the source is a worldwide wire.
func (s Source) IsGlobal() bool {
	return s.Country == Global
}

// Catalog is the ordered list of known feeds.
type Catalog []Source

// catalogFile is the YAML layout:
//
//	sources:
//	  - name: BBC India
//	    feed_url: https://...
//	    languages: [hi]
//	    country: india
//	    continent: asia
//	    categories: [national, politics]
type catalogFile struct {
	Sources []Source `yaml:"sources"`
}

var validate = validator.New()

// LoadCatalog reads a feed catalog from a YAML file. Tags are lower-cased.
func LoadCatalog(path string) (Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg catalogFile
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode catalog %s: %w", path, err)
	}
	if len(cfg.Sources) == 0 {
		return nil, fmt.Errorf("catalog %s has no sources", path)
	}

	out := make(Catalog, 0, len(cfg.Sources))
	for i, s := range cfg.Sources {
		s = normalize(s)
		if err := validate.Struct(s); err != nil {
			return nil, fmt.Errorf("catalog %s: source %d (%q): %w", path, i, s.Name, err)
		}
		out = append(out, s)
	}
	return out, nil
}

func normalize(s Source) Source {
	s.Name = strings.TrimSpace(s.Name)
	s.FeedURL = strings.TrimSpace(s.FeedURL)
	s.Country = strings.ToLower(strings.TrimSpace(s.Country))
	s.Continent = strings.ToLower(strings.TrimSpace(s.Continent))
	s.Languages = lowerAll(s.Languages)
	s.Categories = lowerAll(s.Categories)
	return s
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// DefaultCatalog is used when no catalog file is configured.
func DefaultCatalog() Catalog {
	return Catalog{
		{
			Name:       "TV9 Marathi",
			FeedURL:    "https://www.tv9marathi.com/feed",
			Languages:  []string{"mr"},
			Country:    "india",
			Continent:  "asia",
			Categories: []string{"national", "politics", "disaster"},
		},
		{
			Name:       "BBC India",
			FeedURL:    "https://feeds.bbci.co.uk/hindi/rss.xml",
			Languages:  []string{"hi"},
			Country:    "india",
			Continent:  "asia",
			Categories: []string{"national", "politics", "disaster"},
		},
		{
			Name:       "BBC India (English)",
			FeedURL:    "https://feeds.bbci.co.uk/news/world/asia/india/rss.xml",
			Languages:  []string{"en"},
			Country:    "india",
			Continent:  "asia",
			Categories: []string{"national", "politics", "disaster", "business"},
		},
		{
			Name:       "Al Jazeera Arabic",
			FeedURL:    "https://www.aljazeera.net/aljazeerarss",
			Languages:  []string{"ar"},
			Country:    "qatar",
			Continent:  "asia",
			Categories: []string{"national", "politics", "disaster", "terror"},
		},
		{
			Name:       "BBC Middle East",
			FeedURL:    "https://feeds.bbci.co.uk/arabic/rss.xml",
			Languages:  []string{"ar"},
			Country:    "qatar",
			Continent:  "asia",
			Categories: []string{"national", "politics", "terror"},
		},
		{
			Name:       "El País",
			FeedURL:    "https://feeds.elpais.com/mrss-s/pages/ep/site/elpais.com/portada",
			Languages:  []string{"es"},
			Country:    "spain",
			Continent:  "europe",
			Categories: []string{"national", "politics"},
		},
		{
			Name:       "Le Monde",
			FeedURL:    "https://www.lemonde.fr/rss/une.xml",
			Languages:  []string{"fr"},
			Country:    "france",
			Continent:  "europe",
			Categories: []string{"national", "politics"},
		},
		{
			Name:       "BBC Brazil",
			FeedURL:    "https://feeds.bbci.co.uk/portuguese/rss.xml",
			Languages:  []string{"pt"},
			Country:    "brazil",
			Continent:  "south_america",
			Categories: []string{"national", "politics", "disaster"},
		},
		{
			Name:       "BBC World",
			FeedURL:    "https://feeds.bbci.co.uk/news/world/rss.xml",
			Languages:  []string{"en"},
			Country:    Global,
			Continent:  Global,
			Categories: []string{"world", "politics", "disaster"},
		},
		{
			Name:       "Al Jazeera English",
			FeedURL:    "https://www.aljazeera.com/xml/rss/all.xml",
			Languages:  []string{"en"},
			Country:    Global,
			Continent:  Global,
			Categories: []string{"world", "politics"},
		},
		{
			Name:       "The Guardian World",
			FeedURL:    "https://www.theguardian.com/world/rss",
			Languages:  []string{"en"},
			Country:    Global,
			Continent:  Global,
			Categories: []string{"world", "politics", "business"},
		},
	}
}
