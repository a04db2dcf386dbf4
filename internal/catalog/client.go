// Package catalog is the client for the external board-game catalog API:
// collection summaries plus batched detail lookups, behind the upstream's
// rate-limit and retry-on-202 rules.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// DefaultMinDelay is the minimum spacing the upstream requires between
// successive calls.
const DefaultMinDelay = 5 * time.Second

var (
	// ErrNotFound means the user's collection does not exist or is private.
	ErrNotFound = errors.New("catalog: collection not found or private")

	// ErrStillProcessing means the upstream answered 202 twice: the request
	// was queued, the single permitted retry was made after the rate-limit
	// delay, and it was still not ready. Retryable by the caller later.
	ErrStillProcessing = errors.New("catalog: upstream still processing after retry")
)

// SummaryGame is one row of the lightweight collection summary.
type SummaryGame struct {
	ID   string
	Name string
}

// GameDetail is a full detail record for one game.
type GameDetail struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Thumbnail     string  `json:"thumbnail,omitempty"`
	YearPublished int     `json:"yearPublished,omitempty"`
	Weight        float64 `json:"weight,omitempty"`
	PlayingTime   int     `json:"playingTime,omitempty"`
	MinPlayers    int     `json:"minPlayers,omitempty"`
	MaxPlayers    int     `json:"maxPlayers,omitempty"`
}

// Client talks to the catalog API. All calls share one rate limiter: the
// mutex is held across the inter-call delay, so requests to the upstream are
// strictly sequential. No parallel fan-out is permitted by the API's terms.
type Client struct {
	baseURL  string
	http     *http.Client
	minDelay time.Duration

	mu       sync.Mutex
	lastCall time.Time
}

// NewClient creates a client for the given base URL. minDelay <= 0 falls
// back to DefaultMinDelay.
func NewClient(baseURL string, minDelay time.Duration) *Client {
	if minDelay <= 0 {
		minDelay = DefaultMinDelay
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &http.Client{Timeout: 30 * time.Second},
		minDelay: minDelay,
	}
}

type summaryResponse struct {
	Items []struct {
		ID   Field `json:"id"`
		Name Field `json:"name"`
	} `json:"items"`
}

// FetchSummary returns the ids and names of every game in the user's
// collection. A 202 means the upstream queued the export; one retry is made
// after the rate-limit delay before giving up with ErrStillProcessing.
func (c *Client) FetchSummary(ctx context.Context, username string) ([]SummaryGame, error) {
	u := fmt.Sprintf("%s/collection?username=%s&brief=1", c.baseURL, url.QueryEscape(username))

	body, err := c.get(ctx, u)
	if err != nil {
		return nil, err
	}

	var resp summaryResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("catalog: decoding summary: %w", err)
	}

	out := make([]SummaryGame, 0, len(resp.Items))
	for _, it := range resp.Items {
		out = append(out, SummaryGame{ID: it.ID.String(), Name: it.Name.String()})
	}
	return out, nil
}

type detailResponse struct {
	Items []struct {
		ID            Field `json:"id"`
		Name          Field `json:"name"`
		Thumbnail     Field `json:"thumbnail"`
		YearPublished Field `json:"yearPublished"`
		Weight        Field `json:"averageWeight"`
		PlayingTime   Field `json:"playingTime"`
		MinPlayers    Field `json:"minPlayers"`
		MaxPlayers    Field `json:"maxPlayers"`
	} `json:"items"`
}

// FetchDetails returns full detail records for one batch of ids. Batching
// across calls is the caller's job; each call counts against the rate limit.
func (c *Client) FetchDetails(ctx context.Context, ids []string) ([]GameDetail, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	u := fmt.Sprintf("%s/things?ids=%s", c.baseURL, url.QueryEscape(strings.Join(ids, ",")))

	body, err := c.get(ctx, u)
	if err != nil {
		return nil, err
	}

	var resp detailResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("catalog: decoding details: %w", err)
	}

	out := make([]GameDetail, 0, len(resp.Items))
	for _, it := range resp.Items {
		out = append(out, GameDetail{
			ID:            it.ID.String(),
			Name:          it.Name.String(),
			Thumbnail:     it.Thumbnail.String(),
			YearPublished: it.YearPublished.Int(),
			Weight:        it.Weight.Float(),
			PlayingTime:   it.PlayingTime.Int(),
			MinPlayers:    it.MinPlayers.Int(),
			MaxPlayers:    it.MaxPlayers.Int(),
		})
	}
	return out, nil
}

// get performs one rate-limited request, retrying exactly once on 202.
func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	for attempt := 0; attempt < 2; attempt++ {
		status, body, err := c.doOne(ctx, url)
		if err != nil {
			return nil, err
		}

		switch status {
		case http.StatusOK:
			return body, nil
		case http.StatusAccepted:
			// Queued upstream; the next doOne waits out the delay first.
			continue
		case http.StatusNotFound, http.StatusForbidden:
			return nil, ErrNotFound
		default:
			return nil, fmt.Errorf("catalog: unexpected status %d", status)
		}
	}
	return nil, ErrStillProcessing
}

func (c *Client) doOne(ctx context.Context, url string) (int, []byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if wait := c.minDelay - time.Since(c.lastCall); wait > 0 {
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return 0, nil, ctx.Err()
		}
	}
	c.lastCall = time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, body, nil
}
