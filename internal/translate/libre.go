package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/deusflow/geonews/internal/cache"
)

// ErrUnsupportedPair is returned when the engine cannot translate between
// the requested languages.
var ErrUnsupportedPair = errors.New("unsupported language pair")

const languagesTTL = time.Hour

type libreLanguage struct {
	Code    string   `json:"code"`
	Name    string   `json:"name"`
	Targets []string `json:"targets"`
}

type libreRequest struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
	APIKey string `json:"api_key,omitempty"`
}

type libreResponse struct {
	TranslatedText string `json:"translatedText"`
	Error          string `json:"error"`
}

// LibreEngine talks to a self-hosted LibreTranslate-compatible server.
type LibreEngine struct {
	baseURL string
	apiKey  string
	client  *http.Client

	languages   *cache.Cache[[]libreLanguage]
	unsupported *cache.Cache[bool]
}

func NewLibreEngine(baseURL, apiKey string, timeout time.Duration) *LibreEngine {
	return &LibreEngine{
		baseURL:     strings.TrimRight(baseURL, "/"),
		apiKey:      apiKey,
		client:      &http.Client{Timeout: timeout},
		languages:   cache.New[[]libreLanguage](1, 0),
		unsupported: cache.New[bool](256, 0),
	}
}

func (l *LibreEngine) Name() string { return "libretranslate" }

func (l *LibreEngine) Translate(ctx context.Context, text, from, to string) (string, error) {
	pairKey := from + "->" + to
	if _, known := l.unsupported.Get(pairKey); known {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedPair, pairKey)
	}

	langs, err := l.listLanguages(ctx)
	if err != nil {
		return "", err
	}
	source, target, ok := resolvePair(langs, from, to)
	if !ok {
		l.unsupported.Set(pairKey, true, languagesTTL)
		return "", fmt.Errorf("%w: %s", ErrUnsupportedPair, pairKey)
	}

	payload, err := json.Marshal(libreRequest{Q: text, Source: source, Target: target, Format: "text", APIKey: l.apiKey})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.baseURL+"/translate", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("HTTP error: %w", err)
	}
	defer resp.Body.Close()

	var out libreResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("error parsing response: %w", err)
	}
	if resp.StatusCode != http.StatusOK || out.Error != "" {
		return "", fmt.Errorf("libretranslate returned status %d: %s", resp.StatusCode, out.Error)
	}
	if strings.TrimSpace(out.TranslatedText) == "" {
		return "", errors.New("empty translation")
	}
	return out.TranslatedText, nil
}

func (l *LibreEngine) listLanguages(ctx context.Context) ([]libreLanguage, error) {
	if langs, ok := l.languages.Get("languages"); ok {
		return langs, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.baseURL+"/languages", nil)
	if err != nil {
		return nil, err
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("libretranslate languages returned status: %d", resp.StatusCode)
	}
	var langs []libreLanguage
	if err := json.NewDecoder(resp.Body).Decode(&langs); err != nil {
		return nil, fmt.Errorf("error parsing languages: %w", err)
	}
	l.languages.Set("languages", langs, languagesTTL)
	return langs, nil
}

// resolvePair maps from and to onto codes the server knows. A server that
// lists no targets for a source is assumed to translate it anywhere.
func resolvePair(langs []libreLanguage, from, to string) (string, string, bool) {
	src := resolveCode(langs, from)
	dst := resolveCode(langs, to)
	if src == nil || dst == nil {
		return "", "", false
	}
	if len(src.Targets) > 0 && !containsFold(src.Targets, dst.Code) {
		return "", "", false
	}
	return src.Code, dst.Code, true
}

// resolveCode tries, in order: exact code, shared base prefix, the alias
// table in both directions, then the English language name.
func resolveCode(langs []libreLanguage, code string) *libreLanguage {
	for i := range langs {
		if strings.EqualFold(langs[i].Code, code) {
			return &langs[i]
		}
	}

	base := baseCode(code)
	for i := range langs {
		if strings.EqualFold(baseCode(langs[i].Code), base) {
			return &langs[i]
		}
	}

	lower := strings.ToLower(code)
	for alias, canonical := range aliases {
		var other string
		switch {
		case alias == lower:
			other = canonical
		case strings.EqualFold(canonical, code):
			other = alias
		default:
			continue
		}
		for i := range langs {
			if strings.EqualFold(langs[i].Code, other) {
				return &langs[i]
			}
		}
	}

	if name := englishName(code); name != "" {
		for i := range langs {
			if strings.EqualFold(langs[i].Name, name) || strings.HasPrefix(strings.ToLower(langs[i].Name), strings.ToLower(name)) {
				return &langs[i]
			}
		}
	}
	return nil
}

func baseCode(code string) string {
	if i := strings.IndexAny(code, "-_"); i > 0 {
		return strings.ToLower(code[:i])
	}
	return strings.ToLower(code)
}

func containsFold(list []string, v string) bool {
	for _, s := range list {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}
