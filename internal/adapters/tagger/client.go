// Package tagger talks to an external music auto-tagging service that
// returns musicnn-style taggrams, and maps them onto genre and mood
// estimates.
package tagger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/ewilliams-labs/cadence/internal/core/domain"
	"github.com/ewilliams-labs/cadence/internal/core/ports"
)

const (
	defaultModel   = "MSD_musicnn"
	defaultTimeout = 60 * time.Second
	maxErrorBody   = 512
)

// Config configures a Client.
type Config struct {
	BaseURL      string
	Model        string
	ClientID     string
	ClientSecret string
	TokenURL     string
	Timeout      time.Duration
	MaxRetries   int
	Backoff      time.Duration
}

// Client is an HTTP client for the tagging service.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	model       string
	maxRetries  int
	baseBackoff time.Duration
	logger      *zap.Logger
}

// compile-time interface assertion
var _ ports.GenreMoodModel = (*Client)(nil)

// NewClient constructs a tagging client. When ClientID is set, requests are
// authorized with an OAuth2 client-credentials token from TokenURL.
func NewClient(cfg Config, base *http.Client, logger *zap.Logger) *Client {
	if base == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		base = &http.Client{Timeout: timeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	httpClient := base
	if cfg.ClientID != "" {
		cc := clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
		}
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
		httpClient = cc.Client(ctx)
		httpClient.Timeout = base.Timeout
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	return &Client{
		httpClient:  httpClient,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		model:       model,
		maxRetries:  cfg.MaxRetries,
		baseBackoff: cfg.Backoff,
		logger:      logger.Named("tagger"),
	}
}

// taggramResponse is the wire format of POST /v1/taggram.
type taggramResponse struct {
	Tags    []string    `json:"tags"`
	Taggram [][]float64 `json:"taggram"`
}

// Classify implements ports.GenreMoodModel. Any failure yields the unknown
// result with a single warning.
func (c *Client) Classify(ctx context.Context, wavPath string) domain.Outcome[domain.GenreMoodResult] {
	scores, err := c.fetchTagScores(ctx, wavPath)
	if err != nil {
		c.logger.Warn("tagging failed", zap.String("path", wavPath), zap.Error(err))
		return domain.Fallback(domain.UnknownGenreMood(), fmt.Sprintf("genre/mood: tagger failed: %v", err))
	}
	return domain.Ok(MapTags(scores))
}

// fetchTagScores uploads the WAV file and returns the time-averaged score
// of every tag, keyed by lower-case tag name.
func (c *Client) fetchTagScores(ctx context.Context, wavPath string) (map[string]float64, error) {
	body, err := os.ReadFile(wavPath)
	if err != nil {
		return nil, fmt.Errorf("tagger: read audio: %w", err)
	}

	url := fmt.Sprintf("%s/v1/taggram?model=%s", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("tagger: %w", err)
	}
	req.Header.Set("Content-Type", "audio/wav")
	req.Header.Set("Accept", "application/json")

	resp, err := c.doRequestWithRetry(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("tagger: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var tr taggramResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("tagger: decode response: %w", err)
	}
	return averageTaggram(tr)
}

func averageTaggram(tr taggramResponse) (map[string]float64, error) {
	if len(tr.Taggram) == 0 || len(tr.Tags) == 0 {
		return nil, fmt.Errorf("tagger: empty taggram")
	}
	n := len(tr.Tags)
	for i, row := range tr.Taggram {
		if len(row) < n {
			n = len(row)
		}
		if n == 0 {
			return nil, fmt.Errorf("tagger: taggram row %d is empty", i)
		}
	}

	scores := make(map[string]float64, n)
	for j := 0; j < n; j++ {
		var sum float64
		for _, row := range tr.Taggram {
			sum += row[j]
		}
		scores[strings.ToLower(strings.TrimSpace(tr.Tags[j]))] = sum / float64(len(tr.Taggram))
	}
	return scores, nil
}

// Unavailable is the model used when no tagging service is configured.
type Unavailable struct {
	Reason string
}

var _ ports.GenreMoodModel = Unavailable{}

// Classify returns the unknown result with one warning.
func (u Unavailable) Classify(ctx context.Context, wavPath string) domain.Outcome[domain.GenreMoodResult] {
	reason := u.Reason
	if reason == "" {
		reason = "tagger not configured"
	}
	return domain.Fallback(domain.UnknownGenreMood(), "genre/mood: "+reason)
}
