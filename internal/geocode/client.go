// Package geocode turns coordinates into a human-friendly address using a
// Nominatim-compatible reverse geocoding endpoint.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/electronjoe/sitestamp/internal/config"
	"github.com/electronjoe/sitestamp/internal/logger"
	"github.com/electronjoe/sitestamp/internal/stamp"
)

var (
	ErrTimeout     = errors.New("geocode: timed out")
	ErrUnavailable = errors.New("geocode: service unavailable")
	ErrNoResult    = errors.New("geocode: no address for coordinate")
)

// Client resolves addresses, consulting its cache first. Failed coordinates
// are remembered for the client's lifetime and never retried; they are not
// written to the cache file.
type Client struct {
	endpoint   string
	userAgent  string
	timeout    time.Duration
	httpClient *http.Client
	cache      *Cache
	failed     map[string]error
	log        *logger.Logger
}

type reverseResponse struct {
	DisplayName string `json:"display_name"`
	Error       string `json:"error"`
}

// New builds a Client from cfg. An empty cfg.CachePath means the default
// cache location.
func New(cfg config.Geocode, log *logger.Logger) (*Client, error) {
	path := cfg.CachePath
	if path == "" {
		p, err := DefaultCachePath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	cache, err := LoadCache(path)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Client{
		endpoint:   cfg.Endpoint,
		userAgent:  cfg.UserAgent,
		timeout:    cfg.Timeout,
		httpClient: &http.Client{},
		cache:      cache,
		failed:     make(map[string]error),
		log:        log,
	}, nil
}

// Lookup returns the address for lat/lon.
func (c *Client) Lookup(ctx context.Context, lat, lon float64) (string, error) {
	if addr, ok := c.cache.Get(lat, lon); ok {
		return addr, nil
	}
	key := cacheKey(lat, lon)
	if err, ok := c.failed[key]; ok {
		return "", err
	}

	addr, err := c.fetch(ctx, lat, lon)
	if err != nil {
		// A cancelled run says nothing about the coordinate.
		if ctx.Err() == nil {
			c.failed[key] = err
		}
		return "", err
	}
	c.cache.Set(lat, lon, addr)
	return addr, nil
}

func (c *Client) fetch(ctx context.Context, lat, lon float64) (string, error) {

	u, err := url.Parse(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("geocode endpoint: %w", err)
	}
	q := u.Query()
	q.Set("format", "jsonv2")
	q.Set("lat", strconv.FormatFloat(lat, 'f', 6, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', 6, 64))
	u.RawQuery = q.Encode()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return "", fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %s", ErrUnavailable, resp.Status)
	}

	var body reverseResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		if isTimeout(err) {
			return "", fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return "", fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	if body.DisplayName == "" {
		return "", ErrNoResult
	}
	return body.DisplayName, nil
}

// Resolve is Lookup that never fails: any error yields the "Address"
// placeholder.
func (c *Client) Resolve(ctx context.Context, lat, lon float64) string {
	addr, err := c.Lookup(ctx, lat, lon)
	if err != nil {
		c.log.Warn("Reverse geocoding failed", "lat", lat, "lon", lon, "error", err)
		return stamp.UnknownAddress
	}
	return addr
}

// Close persists newly resolved addresses.
func (c *Client) Close() error {
	return c.cache.Save()
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
