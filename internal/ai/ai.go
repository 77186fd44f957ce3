// package ai fetches short album write-ups from an OpenAI-compatible chat
// endpoint. Purely additive flavor; every failure degrades to "no blurb".
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/soundleaf/folderplay/internal/shared"
)

// Client talks to a chat completions endpoint.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	http    *http.Client
	logger  *log.Logger
}

// NewClient creates a blurb client from config. Returns nil when no API key
// is configured; a nil Client is safe to call and always misses.
func NewClient(cfg shared.AIConfig, logger *log.Logger) *Client {
	if cfg.APIKey == "" || cfg.BaseURL == "" {
		return nil
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		http:    &http.Client{Timeout: 30 * time.Second},
		logger:  logger,
	}
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// AlbumBlurb asks for a few sentences about an album, given its folder name
// and a sample of track titles.
func (c *Client) AlbumBlurb(ctx context.Context, album, artist string, trackTitles []string) (string, error) {
	if c == nil {
		return "", shared.ErrMissingConfig
	}

	prompt := fmt.Sprintf("In 2-3 sentences, describe the album %q", album)
	if artist != "" {
		prompt += fmt.Sprintf(" by %s", artist)
	}
	if len(trackTitles) > 0 {
		sample := trackTitles
		if len(sample) > 5 {
			sample = sample[:5]
		}
		prompt += fmt.Sprintf(". It contains tracks like %s", strings.Join(sample, ", "))
	}
	prompt += ". If you do not recognize it, say so in one sentence."

	body, err := json.Marshal(chatRequest{
		Model:    c.model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("blurb request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("blurb request rejected: status %d", resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("blurb response unparseable: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("blurb response empty")
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}
