package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/geonews/internal/models"
	"github.com/deusflow/geonews/internal/storage"
)

type fakeLookup struct {
	langs      map[string][]string
	fail       map[string]bool
	continents map[string]string
	calls      []string
}

func (f *fakeLookup) Languages(_ context.Context, level models.Scope, name string) ([]string, error) {
	key := string(level) + ":" + name
	f.calls = append(f.calls, key)
	if f.fail[key] {
		return nil, errors.New("upstream down")
	}
	return f.langs[key], nil
}

func (f *fakeLookup) ContinentOf(country string) string {
	return f.continents[country]
}

func newFake() *fakeLookup {
	return &fakeLookup{
		langs: map[string][]string{
			"city:pune":         {"mr"},
			"state:maharashtra": {"mr", "hi"},
			"country:india":     {"hi", "en"},
			"continent:asia":    {"en"},
			"country:france":    {"fr"},
		},
		fail:       map[string]bool{},
		continents: map[string]string{"india": "asia", "france": "europe"},
	}
}

func TestResolveScope(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		hints Hints
		want  models.Scope
	}{
		{"city wins", Hints{City: "Pune", State: "Maharashtra", Country: "India"}, models.ScopeCity},
		{"state", Hints{City: "unknown", State: "Maharashtra", Country: "India"}, models.ScopeState},
		{"country", Hints{Country: "India"}, models.ScopeCountry},
		{"continent", Hints{Continent: "Asia"}, models.ScopeContinent},
		{"global", Hints{City: "unknown", Country: "null"}, models.ScopeGlobal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(nil, nil).Resolve(context.Background(), tt.hints)
			assert.Equal(t, tt.want, c.Scope)
		})
	}
}

func TestResolveUserLanguageWins(t *testing.T) {
	t.Parallel()
	lookup := newFake()
	c := New(lookup, nil).Resolve(context.Background(), Hints{Country: "india", Language: " EN, hi ,en"})

	assert.Equal(t, []string{"en", "hi"}, c.Languages)
	assert.Equal(t, models.ProvenanceUserProvided, c.Provenance)
	assert.Empty(t, lookup.calls)
}

func TestResolveInfersUnion(t *testing.T) {
	t.Parallel()
	lookup := newFake()
	c := New(lookup, nil).Resolve(context.Background(), Hints{City: "Pune", State: "Maharashtra", Country: "India"})

	assert.Equal(t, []string{"mr", "hi", "en"}, c.Languages)
	assert.Equal(t, models.ProvenanceInferred, c.Provenance)
	assert.Equal(t, "asia", c.Continent)
	assert.Equal(t, []string{"city:pune", "state:maharashtra", "country:india", "continent:asia"}, lookup.calls)
}

func TestResolveLookupFailureMeansNoLanguages(t *testing.T) {
	t.Parallel()
	lookup := newFake()
	lookup.fail["country:france"] = true
	counters := storage.NewMemoryStore("")

	c := New(lookup, counters).Resolve(context.Background(), Hints{Country: "France"})
	assert.Empty(t, c.Languages)
	assert.NotNil(t, c.Languages)
	assert.Equal(t, models.ProvenanceNone, c.Provenance)

	got, err := counters.Counters(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, got[MetricCalls])
	assert.EqualValues(t, 1, got[MetricFallback])
}

func TestResolveCountsEveryCall(t *testing.T) {
	t.Parallel()
	counters := storage.NewMemoryStore("")
	r := New(newFake(), counters)

	r.Resolve(context.Background(), Hints{Country: "india"})
	r.Resolve(context.Background(), Hints{Country: "india", Category: "Sports"})

	got, err := counters.Counters(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, got[MetricCalls])
	assert.Zero(t, got[MetricFallback])
}

func TestResolveNormalizesCategory(t *testing.T) {
	t.Parallel()
	c := New(nil, nil).Resolve(context.Background(), Hints{Category: "unknown"})
	assert.Empty(t, c.Category)
	c = New(nil, nil).Resolve(context.Background(), Hints{Category: " Sports "})
	assert.Equal(t, "sports", c.Category)
}
