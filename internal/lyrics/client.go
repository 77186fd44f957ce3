package lyrics

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// Client fetches LRC text from a lookup service that answers
// GET <base>?title=<title>&artist=<artist> with plain LRC in the body.
type Client struct {
	apiURL string
	http   *http.Client
	logger *log.Logger
}

// NewClient creates a lyrics client against the given endpoint.
func NewClient(apiURL string, logger *log.Logger) *Client {
	return &Client{
		apiURL: apiURL,
		http:   &http.Client{Timeout: 15 * time.Second},
		logger: logger,
	}
}

// Fetch looks up lyrics by title and artist. A miss, a malformed response,
// or any transport failure reports not ok.
func (c *Client) Fetch(ctx context.Context, title, artist string) (string, bool) {
	if c.apiURL == "" || title == "" {
		return "", false
	}

	query := url.Values{}
	query.Set("title", title)
	if artist != "" {
		query.Set("artist", artist)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"?"+query.Encode(), nil)
	if err != nil {
		return "", false
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("lyric lookup failed", "title", title, "error", err)
		return "", false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", false
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", false
	}

	text := strings.TrimSpace(string(data))
	if text == "" || len(ParseLRC(text)) == 0 {
		return "", false
	}
	return text, true
}
