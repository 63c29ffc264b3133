// Package snapshot is the HTTP client for the external snapshot store: the
// append-only collection of per-source JSON files the scraping/AI pipeline
// produces. It is the only place raw network and shape errors exist; callers
// above it only ever see data or its absence.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"

	"krx-signal-board/config"
	"krx-signal-board/simulation"
)

var (
	// ErrNotFound means the store has no file under the requested name.
	ErrNotFound = errors.New("snapshot file not found")
	// ErrMalformed means the file was retrieved but its shape is unusable.
	// Malformed files fail closed here so price arithmetic never sees them.
	ErrMalformed = errors.New("malformed snapshot file")
)

// Client fetches index and snapshot files with a bounded retry policy.
type Client struct {
	http *resty.Client
}

// NewClient creates a store client from config.
func NewClient(cfg config.SnapshotConfig) *Client {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(cfg.RetryWaitMin).
		SetRetryMaxWaitTime(cfg.RetryWaitMax).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= http.StatusInternalServerError
		})

	return &Client{http: client}
}

// IndexFilename returns the per-source index file name.
func IndexFilename(src simulation.Source) string {
	return fmt.Sprintf("%s_index.json", src)
}

// Filename builds the conventional snapshot file name for (source, date,
// time). The index stays authoritative for resolution; this exists to verify
// the mapping and to name freshly produced files.
func Filename(src simulation.Source, date, t string) string {
	return fmt.Sprintf("%s_%s_%s.json", src, date, t)
}

// BaselineFilename returns the simulation baseline file name for a date.
func BaselineFilename(date string) string {
	return fmt.Sprintf("simulation_%s.json", date)
}

// FetchIndex retrieves a source's history index.
func (c *Client) FetchIndex(ctx context.Context, src simulation.Source) (*simulation.HistoryIndex, error) {
	var idx simulation.HistoryIndex
	if err := c.getJSON(ctx, IndexFilename(src), &idx); err != nil {
		return nil, err
	}
	if idx.History == nil {
		return nil, fmt.Errorf("%w: %s has no history array", ErrMalformed, IndexFilename(src))
	}
	return &idx, nil
}

// FetchSourceSnapshot retrieves a vision or kis snapshot by filename.
func (c *Client) FetchSourceSnapshot(ctx context.Context, src simulation.Source, filename string) (*simulation.SourceSnapshot, error) {
	var snap simulation.SourceSnapshot
	if err := c.getJSON(ctx, filename, &snap); err != nil {
		return nil, err
	}
	if snap.Date == "" || snap.Results == nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformed, filename)
	}
	return &snap, nil
}

// FetchCombinedSnapshot retrieves a combined snapshot by filename.
func (c *Client) FetchCombinedSnapshot(ctx context.Context, filename string) (*simulation.CombinedSnapshot, error) {
	var snap simulation.CombinedSnapshot
	if err := c.getJSON(ctx, filename, &snap); err != nil {
		return nil, err
	}
	if snap.Date == "" || snap.Stocks == nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformed, filename)
	}
	return &snap, nil
}

// FetchBaseline retrieves the baseline simulation dataset for a date.
// Returns (nil, nil) when the store has no dataset for that date yet.
func (c *Client) FetchBaseline(ctx context.Context, date string) (*simulation.SimulationData, error) {
	var data simulation.SimulationData
	err := c.getJSON(ctx, BaselineFilename(date), &data)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if data.Date == "" {
		return nil, fmt.Errorf("%w: %s", ErrMalformed, BaselineFilename(date))
	}
	return &data, nil
}

func (c *Client) getJSON(ctx context.Context, filename string, dest interface{}) error {
	resp, err := c.http.R().SetContext(ctx).Get("/" + filename)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", filename, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrNotFound, filename)
	}
	if resp.IsError() {
		return fmt.Errorf("fetch %s: unexpected status %d", filename, resp.StatusCode())
	}
	if err := json.Unmarshal(resp.Body(), dest); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformed, filename, err)
	}
	return nil
}
