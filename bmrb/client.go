package bmrb

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zlib"

	"github.com/bmrb-io/nmrstar/star"
)

const (
	// DefaultBaseURL is the root of the public BMRB API.
	DefaultBaseURL = "https://api.bmrb.io/v2"
	// DefaultSchemaURL is the head of the published NMR-STAR dictionary
	// in CSV form.
	DefaultSchemaURL = "https://raw.githubusercontent.com/uwbmrb/nmr-star-dictionary/master/xlschem_ann.csv"

	userAgent = "nmrstar-go/1.0"
)

// ErrEntryNotFound reports that the requested entry is not in the
// public database.
var ErrEntryNotFound = errors.New("entry does not exist in the public database")

// APIError is a response from the BMRB API that cannot be used: a
// non-success status code, or a success wrapping an error payload.
type APIError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("bmrb api: GET %s returned status %d: %s", e.URL, e.StatusCode, e.Body)
}

// Client talks to the BMRB web API. The zero value is not usable; use
// NewClient.
type Client struct {
	baseURL   string
	schemaURL string
	http      *http.Client

	// The API rate limiter answers 403. The client waits retryWait,
	// multiplies the wait by five and tries again, giving up once the
	// wait passes retryGiveUp.
	retryWait   time.Duration
	retryGiveUp time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at a different API root.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(url, "/")
	}
}

// WithSchemaURL overrides where FetchSchema downloads the dictionary.
func WithSchemaURL(url string) Option {
	return func(c *Client) {
		c.schemaURL = url
	}
}

// WithHTTPClient substitutes the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithRetrySchedule adjusts the rate limit backoff: the first wait,
// and the wait past which the client stops retrying.
func WithRetrySchedule(first, giveUp time.Duration) Option {
	return func(c *Client) {
		c.retryWait = first
		c.retryGiveUp = giveUp
	}
}

// NewClient returns a Client for the public BMRB API.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:     DefaultBaseURL,
		schemaURL:   DefaultSchemaURL,
		http:        newHTTPClient(),
		retryWait:   5 * time.Second,
		retryGiveUp: 25 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// newHTTPClient creates an HTTP client with default timeouts.
func newHTTPClient() *http.Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: 10 * time.Second, // connect timeout
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   30 * time.Second, // request timeout
	}
}

// FetchEntry downloads an entry from the public database. The id may
// carry the "bmr" accession prefix in any capitalization. A missing
// entry reports ErrEntryNotFound.
func (c *Client) FetchEntry(ctx context.Context, id string) (*star.Entry, error) {
	id = strings.TrimPrefix(strings.ToLower(id), "bmr")

	url := fmt.Sprintf("%s/entry/%s?format=zlib", c.baseURL, id)
	body, err := c.get(ctx, url)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("entry '%s': %w", id, ErrEntryNotFound)
		}
		return nil, err
	}

	zr, err := zlib.NewReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("decompressing entry '%s': %w", id, err)
	}
	raw, err := io.ReadAll(zr)
	if err == nil {
		err = zr.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("decompressing entry '%s': %w", id, err)
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("decoding entry '%s': %w", id, err)
	}
	if msg, ok := probe["error"]; ok {
		return nil, &APIError{StatusCode: http.StatusOK, URL: url, Body: string(msg)}
	}

	entry := new(star.Entry)
	if err := json.Unmarshal(raw, entry); err != nil {
		return nil, fmt.Errorf("decoding entry '%s': %w", id, err)
	}
	return entry, nil
}

// FetchSaveframe downloads an entry and returns its saveframes in the
// given category.
func (c *Client) FetchSaveframe(ctx context.Context, id, category string) ([]*star.Saveframe, error) {
	entry, err := c.FetchEntry(ctx, id)
	if err != nil {
		return nil, err
	}
	frames := entry.SaveframesByCategory(category)
	if len(frames) == 0 {
		return nil, fmt.Errorf("entry '%s' has no saveframe of category '%s'", id, category)
	}
	return frames, nil
}

// FetchSchema downloads the NMR-STAR dictionary and parses it. An
// empty version fetches the head of the dictionary; otherwise the
// named ref of the dictionary repository is fetched in its place.
func (c *Client) FetchSchema(ctx context.Context, version string) (*star.Schema, error) {
	url := c.schemaURL
	if version != "" {
		url = strings.Replace(url, "master", version, 1)
	}
	body, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}
	return star.LoadSchema(bytes.NewReader(body))
}

// get fetches a URL, retrying 403 responses on the client's backoff
// schedule. Responses other than 200 come back as an *APIError.
func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	wait := c.retryWait
	for {
		body, status, err := c.getOnce(ctx, url)
		if err != nil {
			return nil, err
		}
		if status == http.StatusForbidden && wait <= c.retryGiveUp {
			if err := sleep(ctx, wait); err != nil {
				return nil, err
			}
			wait *= 5
			continue
		}
		if status != http.StatusOK {
			return nil, &APIError{StatusCode: status, URL: url, Body: strings.TrimSpace(string(body))}
		}
		return body, nil
	}
}

func (c *Client) getOnce(ctx context.Context, url string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, err
	}
	return body, resp.StatusCode, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
