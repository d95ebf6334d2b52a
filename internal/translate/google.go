package translate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Engine translates text between two language codes.
type Engine interface {
	Name() string
	Translate(ctx context.Context, text, from, to string) (string, error)
}

const DefaultGoogleURL = "https://translate.googleapis.com/translate_a/single"

// GoogleEngine calls the public Google Translate endpoint. Each call is a
// single attempt bounded by the client timeout.
type GoogleEngine struct {
	baseURL string
	client  *http.Client
}

func NewGoogleEngine(baseURL string, timeout time.Duration) *GoogleEngine {
	if baseURL == "" {
		baseURL = DefaultGoogleURL
	}
	return &GoogleEngine{baseURL: baseURL, client: &http.Client{Timeout: timeout}}
}

func (g *GoogleEngine) Name() string { return "google" }

func (g *GoogleEngine) Translate(ctx context.Context, text, from, to string) (string, error) {
	params := url.Values{}
	params.Set("client", "gtx")
	params.Set("sl", from)
	params.Set("tl", to)
	params.Set("dt", "t")
	params.Set("q", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return "", err
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("HTTP error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("google translate returned status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("error reading response: %w", err)
	}

	translation, err := parseGoogleResponse(body)
	if err != nil {
		return "", fmt.Errorf("error parsing response: %w", err)
	}
	if strings.TrimSpace(translation) == "" {
		return "", errors.New("empty translation")
	}
	return translation, nil
}

// parseGoogleResponse joins the translated segments of a gtx response,
// which is an array whose first element lists [translated, original, ...]
// pairs.
func parseGoogleResponse(body []byte) (string, error) {
	var response []any
	if err := json.Unmarshal(body, &response); err != nil {
		return "", err
	}
	if len(response) == 0 {
		return "", errors.New("empty response from Google Translate")
	}

	segments, ok := response[0].([]any)
	if !ok {
		return "", errors.New("unexpected response format")
	}

	var result strings.Builder
	for _, segment := range segments {
		if parts, ok := segment.([]any); ok && len(parts) > 0 {
			if translated, ok := parts[0].(string); ok {
				result.WriteString(translated)
			}
		}
	}
	return result.String(), nil
}
