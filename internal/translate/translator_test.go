package translate

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/geonews/internal/storage"
)

type fakeEngine struct {
	name  string
	calls atomic.Int32
	fn    func(text string) (string, error)
}

func (f *fakeEngine) Name() string { return f.name }

func (f *fakeEngine) Translate(_ context.Context, text, _, _ string) (string, error) {
	f.calls.Add(1)
	return f.fn(text)
}

func upper(name string) *fakeEngine {
	return &fakeEngine{name: name, fn: func(text string) (string, error) { return strings.ToUpper(text), nil }}
}

func failing(name string) *fakeEngine {
	return &fakeEngine{name: name, fn: func(string) (string, error) { return "", errors.New("boom") }}
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func TestToEnglishSkips(t *testing.T) {
	t.Parallel()
	primary := upper("google")
	tr := New(primary, nil, nil)

	res := tr.ToEnglish(context.Background(), "already english", "en")
	assert.True(t, res.Skipped)
	assert.Equal(t, "already english", res.Text)
	assert.Equal(t, EngineNone, res.Engine)

	res = tr.ToEnglish(context.Background(), "   ", "hi")
	assert.True(t, res.Skipped)
	assert.Zero(t, primary.calls.Load())
}

func TestFallbackToSecondaryOpensBreaker(t *testing.T) {
	t.Parallel()
	var googleCalls atomic.Int32
	google := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		googleCalls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer google.Close()

	libre := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/languages":
			_, _ = w.Write([]byte(`[{"code":"en","name":"English","targets":["es"]},{"code":"es","name":"Spanish","targets":["en"]}]`))
		case "/translate":
			var req libreRequest
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "es", req.Source)
			assert.Equal(t, "en", req.Target)
			_, _ = w.Write([]byte(`{"translatedText":"the flood reached the city"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer libre.Close()

	clk := &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	breaker := NewBreaker(5*time.Minute, clk.now)
	tr := New(
		NewGoogleEngine(google.URL, time.Second),
		NewLibreEngine(libre.URL, "", time.Second),
		breaker,
	)

	res := tr.ToEnglish(context.Background(), "la inundación llegó a la ciudad", "es")
	assert.False(t, res.Failed)
	assert.Equal(t, "the flood reached the city", res.Text)
	assert.Equal(t, "libretranslate", res.Engine)
	assert.EqualValues(t, 1, googleCalls.Load())
	assert.True(t, breaker.Open())

	res = tr.ToEnglish(context.Background(), "otra noticia", "es")
	assert.Equal(t, "libretranslate", res.Engine)
	assert.EqualValues(t, 1, googleCalls.Load(), "primary must be skipped while the breaker is open")

	clk.t = clk.t.Add(5 * time.Minute)
	tr.ToEnglish(context.Background(), "una tercera", "es")
	assert.EqualValues(t, 2, googleCalls.Load(), "primary is re-tested after the cooldown")
}

func TestBothEnginesFail(t *testing.T) {
	t.Parallel()
	tr := New(failing("google"), failing("libretranslate"), nil, WithChunkSize(10))

	res := tr.ToEnglish(context.Background(), "एक दो तीन चार पांच छह", "hi")
	assert.True(t, res.Failed)
	assert.Equal(t, EngineFailed, res.Engine)
	assert.Greater(t, res.Chunks, 1)
	for _, part := range strings.Split(res.Text, " ") {
		assert.Contains(t, []string{"[translation", "failed]"}, part)
	}
}

func TestPartialFailureKeepsTranslatedChunks(t *testing.T) {
	t.Parallel()
	primary := &fakeEngine{name: "google", fn: func(text string) (string, error) {
		if strings.Contains(text, "दो") {
			return "", errors.New("boom")
		}
		return "ONE", nil
	}}
	tr := New(primary, nil, nil, WithChunkSize(4))

	res := tr.ToEnglish(context.Background(), "एक. दो.", "hi")
	require.True(t, res.Failed)
	assert.Equal(t, "google", res.Engine)
	assert.Contains(t, res.Text, FailedSentinel)
	assert.Contains(t, res.Merged, "ONE")
	assert.Contains(t, res.Merged, "दो")
	assert.NotContains(t, res.Merged, FailedSentinel)

	res = New(failing("google"), nil, nil).ToEnglish(context.Background(), "एक", "hi")
	assert.True(t, res.Failed)
	assert.Empty(t, res.Merged)
}

func TestBatchDeduplicates(t *testing.T) {
	t.Parallel()
	primary := upper("google")
	tr := New(primary, nil, nil)

	results := tr.Batch(context.Background(), []string{"uno", "dos", "uno", "uno"}, "es")
	require.Len(t, results, 4)
	assert.EqualValues(t, 2, primary.calls.Load())
	assert.Equal(t, "UNO", results[0].Text)
	assert.Equal(t, "DOS", results[1].Text)
	assert.Equal(t, "UNO", results[3].Text)
}

func TestBatchSharesBreaker(t *testing.T) {
	t.Parallel()
	primary := failing("google")
	secondary := upper("libretranslate")
	tr := New(primary, secondary, nil)

	results := tr.Batch(context.Background(), []string{"a", "b", "c"}, "fr")
	assert.EqualValues(t, 1, primary.calls.Load())
	assert.EqualValues(t, 3, secondary.calls.Load())
	for _, r := range results {
		assert.Equal(t, "libretranslate", r.Engine)
	}
}

func TestTranslationCache(t *testing.T) {
	t.Parallel()
	primary := upper("google")
	tr := New(primary, nil, nil, WithCache(storage.NewMemoryStore("")))

	first := tr.ToEnglish(context.Background(), "bonjour", "fr")
	second := tr.ToEnglish(context.Background(), "bonjour", "fr")
	assert.Equal(t, "BONJOUR", first.Text)
	assert.Equal(t, "BONJOUR", second.Text)
	assert.Equal(t, "google", second.Engine)
	assert.EqualValues(t, 1, primary.calls.Load())
}

func TestGoogleEngineParsesSegments(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "gtx", r.URL.Query().Get("client"))
		assert.Equal(t, "de", r.URL.Query().Get("sl"))
		assert.Equal(t, "en", r.URL.Query().Get("tl"))
		_, _ = w.Write([]byte(`[[["Good morning. ","Guten Morgen. ",null,null,10],["How are you?","Wie geht es?",null,null,10]],null,"de"]`))
	}))
	defer srv.Close()

	out, err := NewGoogleEngine(srv.URL, time.Second).Translate(context.Background(), "Guten Morgen. Wie geht es?", "de", "en")
	require.NoError(t, err)
	assert.Equal(t, "Good morning. How are you?", out)

	_, err = parseGoogleResponse([]byte(`{}`))
	assert.Error(t, err)
	_, err = parseGoogleResponse([]byte(`[]`))
	assert.Error(t, err)
}

func TestBreakerCooldown(t *testing.T) {
	t.Parallel()
	clk := &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	b := NewBreaker(time.Minute, clk.now)

	assert.True(t, b.Allow())
	b.RecordFailure()
	assert.False(t, b.Allow())

	clk.t = clk.t.Add(59 * time.Second)
	assert.False(t, b.Allow())

	clk.t = clk.t.Add(time.Second)
	assert.True(t, b.Allow())
	assert.False(t, b.Open())
}

func TestSplitChunks(t *testing.T) {
	t.Parallel()
	text := "First sentence here. Second one follows! Third is a question? Fourth"
	chunks := splitChunks(text, 30)
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, len([]rune(c)), 30)
	}
	assert.Equal(t, "First sentence here.", chunks[0])
	assert.Equal(t, strings.Join(strings.Fields(text), " "), strings.Join(chunks, " "))

	assert.Equal(t, []string{"short"}, splitChunks("short", 30))
	assert.Equal(t, []string{"abcde", "fghij"}, splitChunks("abcdefghij", 5))
}

func TestNormalizeLanguage(t *testing.T) {
	t.Parallel()
	tests := map[string]string{
		"":        "en",
		"unknown": "en",
		"EN":      "en",
		"zh":      "zh-CN",
		"zh-TW":   "zh-CN",
		"iw":      "he",
		"jw":      "jv",
		"in":      "id",
		"pt-BR":   "pt",
		"Hindi":   "hi",
		" mr ":    "mr",
		"xx":      "en",
		"klingon": "en",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeLanguage(in), in)
	}
}

func TestResolvePair(t *testing.T) {
	t.Parallel()
	langs := []libreLanguage{
		{Code: "en", Name: "English", Targets: []string{"zh", "iw", "pb"}},
		{Code: "zh", Name: "Chinese", Targets: []string{"en"}},
		{Code: "iw", Name: "Hebrew", Targets: []string{"en"}},
		{Code: "pb", Name: "Portuguese (Brazil)", Targets: []string{"en"}},
		{Code: "ko", Name: "Korean", Targets: []string{"ja"}},
	}

	tests := []struct {
		from, want string
		ok         bool
	}{
		{from: "zh-CN", want: "zh", ok: true},
		{from: "he", want: "iw", ok: true},
		{from: "pt", want: "pb", ok: true},
		{from: "ko", ok: false},
		{from: "sw", ok: false},
	}
	for _, tt := range tests {
		src, dst, ok := resolvePair(langs, tt.from, "en")
		assert.Equal(t, tt.ok, ok, tt.from)
		if tt.ok {
			assert.Equal(t, tt.want, src, tt.from)
			assert.Equal(t, "en", dst)
		}
	}
}
