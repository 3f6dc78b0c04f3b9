// Package archive provides a rate-limited client for a public-domain
// text archive with an Internet-Archive-style JSON API.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/librariumapp/librarium-server/internal/ratelimit"
)

const (
	// Rate limit: 1 request per second, burst of 3. The archive is a
	// shared public service; stay polite.
	defaultRPS   = 1.0
	defaultBurst = 3

	defaultTimeout = 30 * time.Second

	defaultNumResults = 25
	maxNumResults     = 100

	// Single key for the limiter; the archive has one host.
	limiterKey = "archive"
)

// Client is a rate-limited archive API client.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *ratelimit.KeyedRateLimiter
	logger  *slog.Logger
}

// New creates a new archive client.
func New(baseURL string, rps float64, logger *slog.Logger) *Client {
	if rps <= 0 {
		rps = defaultRPS
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout: defaultTimeout,
		},
		limiter: ratelimit.New(rps, defaultBurst),
		logger:  logger,
	}
}

// Close releases resources held by the client.
func (c *Client) Close() {
	c.limiter.Stop()
}

// Search queries the archive for public-domain texts matching query.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = defaultNumResults
	}
	if limit > maxNumResults {
		limit = maxNumResults
	}

	params := url.Values{}
	params.Set("q", query+" AND mediatype:texts")
	params.Set("fl[]", "identifier,title")
	params.Set("rows", strconv.Itoa(limit))
	params.Set("output", "json")

	body, err := c.doRequest(ctx, "/advancedsearch.php", params)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Response struct {
			Docs []struct {
				Identifier string          `json:"identifier"`
				Title      json.RawMessage `json:"title"`
			} `json:"docs"`
		} `json:"response"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	results := make([]SearchResult, 0, len(payload.Response.Docs))
	for _, doc := range payload.Response.Docs {
		results = append(results, SearchResult{
			Identifier: doc.Identifier,
			Title:      flexString(doc.Title),
		})
	}
	return results, nil
}

// Fetch retrieves the full metadata for one archive item.
func (c *Client) Fetch(ctx context.Context, identifier string) (*Item, error) {
	body, err := c.doRequest(ctx, "/metadata/"+url.PathEscape(identifier), nil)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Metadata struct {
			Identifier  string          `json:"identifier"`
			Title       json.RawMessage `json:"title"`
			Creator     json.RawMessage `json:"creator"`
			Date        json.RawMessage `json:"date"`
			Description json.RawMessage `json:"description"`
			Subject     json.RawMessage `json:"subject"`
			Language    json.RawMessage `json:"language"`
		} `json:"metadata"`
		Files []File `json:"files"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode metadata response: %w", err)
	}
	if payload.Metadata.Identifier == "" {
		// The metadata endpoint returns an empty object for unknown items.
		return nil, ErrNotFound
	}

	item := &Item{
		Identifier:  payload.Metadata.Identifier,
		Title:       flexString(payload.Metadata.Title),
		Creators:    flexStrings(payload.Metadata.Creator),
		Year:        parseYear(flexString(payload.Metadata.Date)),
		Description: cleanDescription(flexString(payload.Metadata.Description)),
		Subjects:    flexStrings(payload.Metadata.Subject),
		Language:    flexString(payload.Metadata.Language),
		Files:       payload.Files,
	}
	return item, nil
}

// DownloadFile streams one file from the archive into w.
// Returns the number of bytes written.
func (c *Client) DownloadFile(ctx context.Context, identifier, name string, w io.Writer) (int64, error) {
	if err := c.limiter.Wait(ctx, limiterKey); err != nil {
		return 0, fmt.Errorf("rate limit wait: %w", err)
	}

	u := c.baseURL + "/download/" + url.PathEscape(identifier) + "/" + url.PathEscape(name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "Librarium/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if err := statusError(resp.StatusCode); err != nil {
		return 0, err
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("stream file: %w", err)
	}
	return n, nil
}

// doRequest executes a rate-limited GET and returns the response body.
func (c *Client) doRequest(ctx context.Context, path string, query url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx, limiterKey); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "Librarium/1.0")

	c.logger.Debug("archive request", "path", path)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if err := statusError(resp.StatusCode); err != nil {
		return nil, err
	}
	return body, nil
}

func statusError(code int) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusNotFound:
		return ErrNotFound
	case code == http.StatusTooManyRequests:
		return ErrRateLimited
	case code == http.StatusBadRequest:
		return ErrBadRequest
	case code >= 500:
		return ErrServer
	default:
		return fmt.Errorf("archive: unexpected status %d", code)
	}
}

// flexString decodes an archive field that may be a string or an array
// of strings, returning the first value.
func flexString(raw json.RawMessage) string {
	vals := flexStrings(raw)
	if len(vals) == 0 {
		return ""
	}
	return vals[0]
}

// flexStrings decodes an archive field that may be a string or an array
// of strings.
func flexStrings(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var one string
	if err := json.Unmarshal(raw, &one); err == nil {
		if one == "" {
			return nil
		}
		return []string{one}
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err == nil {
		return many
	}
	return nil
}

// yearPattern matches the first 4-digit year in a date string.
var yearPattern = regexp.MustCompile(`\b(\d{4})\b`)

// parseYear extracts a year from archive date strings like "1851",
// "1851-01-01", or "ca. 1851".
func parseYear(date string) int {
	m := yearPattern.FindString(date)
	if m == "" {
		return 0
	}
	year, err := strconv.Atoi(m)
	if err != nil {
		return 0
	}
	return year
}

// htmlTagPattern matches common HTML tags to detect markup in descriptions.
var htmlTagPattern = regexp.MustCompile(`<(p|br|div|span|b|i|strong|em|a|ul|ol|li|h[1-6]|blockquote)[\s>/]`)

// cleanDescription converts HTML descriptions to Markdown. Archive
// descriptions are frequently raw HTML; plain-text descriptions pass
// through unchanged.
func cleanDescription(s string) string {
	if s == "" || !htmlTagPattern.MatchString(strings.ToLower(s)) {
		return s
	}
	markdown, err := htmltomarkdown.ConvertString(s)
	if err != nil {
		return s
	}
	return strings.TrimSpace(markdown)
}
